// Package interaction detects text selections and dwell-hovered words over a
// rendered text surface.
package interaction

import (
	"regexp"
	"unicode"
)

// Point is a position in surface coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned box in surface coordinates.
type Rect struct {
	Left, Top, Right, Bottom float64
}

// Width returns the horizontal extent of r.
func (r Rect) Width() float64 { return r.Right - r.Left }

// BottomCenter is the anchor used to position a definition popover.
func (r Rect) BottomCenter() Point {
	return Point{X: r.Left + r.Width()/2, Y: r.Bottom}
}

// Union returns the smallest rect containing r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		Left:   min(r.Left, o.Left),
		Top:    min(r.Top, o.Top),
		Right:  max(r.Right, o.Right),
		Bottom: max(r.Bottom, o.Bottom),
	}
}

// Caret is a position between two characters of a text node. Offset counts
// runes from the start of the node.
type Caret struct {
	Node   int
	Offset int
}

// Surface is the platform's view of rendered text.
type Surface interface {
	// CaretFromPoint resolves the text node and offset under p.
	CaretFromPoint(p Point) (Caret, bool)
	// NodeText returns the full text of a node.
	NodeText(node int) string
	// RangeBounds returns the bounding box of runes [start, end) of node.
	RangeBounds(node, start, end int) (Rect, bool)
	// Selection returns the currently selected text, if any.
	Selection() string
}

// Word is a resolved word under the pointer.
type Word struct {
	Text   string
	Node   int
	Start  int
	End    int
	Bounds Rect
	Anchor Point
}

func (w Word) sameAs(o Word) bool {
	return w.Node == o.Node && w.Start == o.Start && w.End == o.End
}

var wordPattern = regexp.MustCompile(`^[\p{L}\p{M}\p{N}'’-]+$`)

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsDigit(r) || isJoiner(r)
}

func isJoiner(r rune) bool {
	return r == '\'' || r == '’' || r == '-'
}

// ResolveWord finds the word under p. It expands from the caret over word
// characters, trims apostrophes and hyphens from the edges, and rejects
// anything that fails the strict word pattern.
func ResolveWord(s Surface, p Point) (Word, bool) {
	if s == nil {
		return Word{}, false
	}
	c, ok := s.CaretFromPoint(p)
	if !ok {
		return Word{}, false
	}
	text := []rune(s.NodeText(c.Node))
	if c.Offset < 0 || c.Offset > len(text) {
		return Word{}, false
	}

	start, end := c.Offset, c.Offset
	for start > 0 && isWordRune(text[start-1]) {
		start--
	}
	for end < len(text) && isWordRune(text[end]) {
		end++
	}
	for start < end && isJoiner(text[start]) {
		start++
	}
	for end > start && isJoiner(text[end-1]) {
		end--
	}
	if start == end {
		return Word{}, false
	}

	word := string(text[start:end])
	if !wordPattern.MatchString(word) {
		return Word{}, false
	}
	bounds, ok := s.RangeBounds(c.Node, start, end)
	if !ok {
		return Word{}, false
	}
	return Word{
		Text:   word,
		Node:   c.Node,
		Start:  start,
		End:    end,
		Bounds: bounds,
		Anchor: bounds.BottomCenter(),
	}, true
}
