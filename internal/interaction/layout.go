package interaction

import (
	"math"
	"regexp"
	"strings"
	"sync"
)

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// Layout renders text onto a fixed-pitch grid: paragraphs are word-wrapped
// to Width columns with one blank row between them. Each paragraph is a text
// node. Layout implements Surface and supports drag selection.
type Layout struct {
	mu sync.RWMutex

	cellW, cellH float64
	width        int
	nodes        [][]rune
	lines        []layoutLine

	selecting bool
	extended  bool
	selAnchor Caret
	selFocus  Caret
}

type layoutLine struct {
	row   int
	node  int
	start int // rune offset within node
	text  []rune
}

// NewLayout lays text out at width columns with 1x1 cells.
func NewLayout(text string, width int) *Layout {
	l := &Layout{cellW: 1, cellH: 1}
	l.Reflow(text, width)
	return l
}

// SetCellSize sets the size of one character cell in surface coordinates.
func (l *Layout) SetCellSize(w, h float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w > 0 {
		l.cellW = w
	}
	if h > 0 {
		l.cellH = h
	}
}

// Reflow replaces the laid-out text and clears the selection.
func (l *Layout) Reflow(text string, width int) {
	if width < 1 {
		width = 1
	}

	var nodes [][]rune
	for _, para := range paragraphBreak.Split(text, -1) {
		if strings.TrimSpace(para) == "" {
			continue
		}
		nodes = append(nodes, []rune(strings.Trim(para, "\n")))
	}

	var lines []layoutLine
	row := 0
	for n, runes := range nodes {
		if n > 0 {
			row++ // blank row between paragraphs
		}
		for _, seg := range wrap(runes, width) {
			lines = append(lines, layoutLine{row: row, node: n, start: seg[0], text: runes[seg[0]:seg[1]]})
			row++
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.width = width
	l.nodes = nodes
	l.lines = lines
	l.selecting = false
	l.extended = false
	l.selAnchor, l.selFocus = Caret{}, Caret{}
}

// wrap returns [start, end) rune spans for each visual line. Hard newlines
// always break; otherwise lines break at the last space that fits, or mid-word
// when a word is longer than width.
func wrap(runes []rune, width int) [][2]int {
	var spans [][2]int
	lineStart := 0
	for lineStart <= len(runes) {
		hard := -1
		for i := lineStart; i < len(runes) && i-lineStart <= width; i++ {
			if runes[i] == '\n' {
				hard = i
				break
			}
		}
		switch {
		case hard >= 0:
			spans = append(spans, [2]int{lineStart, hard})
			lineStart = hard + 1
			continue
		case len(runes)-lineStart <= width:
			spans = append(spans, [2]int{lineStart, len(runes)})
			return spans
		}

		brk := -1
		for i := lineStart + width; i > lineStart; i-- {
			if runes[i] == ' ' {
				brk = i
				break
			}
		}
		if brk < 0 {
			spans = append(spans, [2]int{lineStart, lineStart + width})
			lineStart += width
			continue
		}
		spans = append(spans, [2]int{lineStart, brk})
		lineStart = brk + 1
	}
	return spans
}

// Rows returns the rendered rows, including blank separator rows.
func (l *Layout) Rows() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.lines) == 0 {
		return nil
	}
	rows := make([]string, l.lines[len(l.lines)-1].row+1)
	for _, ln := range l.lines {
		rows[ln.row] = string(ln.text)
	}
	return rows
}

// CaretFromPoint maps p to the character cell under it. Points outside any
// character return false.
func (l *Layout) CaretFromPoint(p Point) (Caret, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.caretAt(p)
}

func (l *Layout) caretAt(p Point) (Caret, bool) {
	if p.X < 0 || p.Y < 0 {
		return Caret{}, false
	}
	row := int(math.Floor(p.Y / l.cellH))
	col := int(math.Floor(p.X / l.cellW))
	for _, ln := range l.lines {
		if ln.row != row {
			continue
		}
		if col >= len(ln.text) {
			return Caret{}, false
		}
		return Caret{Node: ln.node, Offset: ln.start + col}, true
	}
	return Caret{}, false
}

// NodeText returns a paragraph's text.
func (l *Layout) NodeText(node int) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if node < 0 || node >= len(l.nodes) {
		return ""
	}
	return string(l.nodes[node])
}

// RangeBounds returns the union of the cells covering [start, end) of node.
func (l *Layout) RangeBounds(node, start, end int) (Rect, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if end <= start {
		return Rect{}, false
	}

	var (
		out   Rect
		found bool
	)
	for _, ln := range l.lines {
		if ln.node != node {
			continue
		}
		lo := max(start, ln.start)
		hi := min(end, ln.start+len(ln.text))
		if lo >= hi {
			continue
		}
		r := Rect{
			Left:   float64(lo-ln.start) * l.cellW,
			Top:    float64(ln.row) * l.cellH,
			Right:  float64(hi-ln.start) * l.cellW,
			Bottom: float64(ln.row+1) * l.cellH,
		}
		if !found {
			out, found = r, true
		} else {
			out = out.Union(r)
		}
	}
	return out, found
}

// BeginSelection anchors a drag selection at the cell under p.
func (l *Layout) BeginSelection(p Point) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.caretAt(p)
	l.selecting = ok
	l.extended = false
	l.selAnchor, l.selFocus = c, c
}

// ExtendSelection moves the drag focus to the cell under p. Both the anchor
// and focus cells are part of the selection.
func (l *Layout) ExtendSelection(p Point) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.selecting {
		return
	}
	if c, ok := l.caretAt(p); ok {
		l.selFocus = c
		l.extended = l.extended || c != l.selAnchor
	}
}

// ClearSelection drops any selection.
func (l *Layout) ClearSelection() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selecting = false
	l.extended = false
	l.selAnchor, l.selFocus = Caret{}, Caret{}
}

// Selection returns the selected text, paragraphs joined by a blank line.
func (l *Layout) Selection() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	from, to, ok := l.orderedSelection()
	if !ok {
		return ""
	}

	var parts []string
	for n := from.Node; n <= to.Node; n++ {
		runes := l.nodes[n]
		lo, hi := 0, len(runes)
		if n == from.Node {
			lo = from.Offset
		}
		if n == to.Node {
			hi = min(to.Offset, len(runes))
		}
		if lo < hi {
			parts = append(parts, string(runes[lo:hi]))
		}
	}
	return strings.Join(parts, "\n\n")
}

// SelectionBounds returns the box around the selection.
func (l *Layout) SelectionBounds() (Rect, bool) {
	l.mu.RLock()
	from, to, ok := l.orderedSelection()
	l.mu.RUnlock()
	if !ok {
		return Rect{}, false
	}

	var (
		out   Rect
		found bool
	)
	for n := from.Node; n <= to.Node; n++ {
		lo, hi := 0, math.MaxInt32
		if n == from.Node {
			lo = from.Offset
		}
		if n == to.Node {
			hi = to.Offset
		}
		r, ok := l.RangeBounds(n, lo, hi)
		if !ok {
			continue
		}
		if !found {
			out, found = r, true
		} else {
			out = out.Union(r)
		}
	}
	return out, found
}

// orderedSelection returns the selection as a half-open [from, to) span in
// document order. Must be called with lock held.
func (l *Layout) orderedSelection() (Caret, Caret, bool) {
	if !l.selecting || !l.extended {
		return Caret{}, Caret{}, false
	}
	from, to := l.selAnchor, l.selFocus
	if to.Node < from.Node || (to.Node == from.Node && to.Offset < from.Offset) {
		from, to = to, from
	}
	to.Offset++
	return from, to, true
}

var _ Surface = (*Layout)(nil)
