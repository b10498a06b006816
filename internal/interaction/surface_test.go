package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cell returns the centre of the character cell at col, row.
func cell(col, row int) Point {
	return Point{X: float64(col) + 0.5, Y: float64(row) + 0.5}
}

func TestResolveWord(t *testing.T) {
	l := NewLayout("Hello brave new world.", 40)

	w, ok := ResolveWord(l, cell(7, 0))
	require.True(t, ok)
	assert.Equal(t, "brave", w.Text)
	assert.Equal(t, 6, w.Start)
	assert.Equal(t, 11, w.End)
	assert.Equal(t, Rect{Left: 6, Top: 0, Right: 11, Bottom: 1}, w.Bounds)
	assert.Equal(t, Point{X: 8.5, Y: 1}, w.Anchor)

	w, ok = ResolveWord(l, cell(20, 0))
	require.True(t, ok)
	assert.Equal(t, "world", w.Text, "trailing punctuation is not part of the word")
}

func TestResolveWord_Joiners(t *testing.T) {
	tests := []struct {
		name string
		text string
		col  int
		want string
		ok   bool
	}{
		{name: "contraction", text: "don't stop", col: 1, want: "don't", ok: true},
		{name: "hyphenated", text: "well-known fact", col: 6, want: "well-known", ok: true},
		{name: "quoted", text: "say 'hello' now", col: 6, want: "hello", ok: true},
		{name: "dash only", text: "x -- y", col: 2, ok: false},
		{name: "unicode letters", text: "naïve café", col: 8, want: "café", ok: true},
		{name: "combining marks", text: "cafe\u0301 noir", col: 1, want: "cafe\u0301", ok: true},
		{name: "punctuation", text: "a ... b", col: 3, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, ok := ResolveWord(NewLayout(tt.text, 40), cell(tt.col, 0))
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, w.Text)
			}
		})
	}
}

func TestResolveWord_OutsideText(t *testing.T) {
	l := NewLayout("short\n\nnext", 40)

	_, ok := ResolveWord(l, cell(30, 0))
	assert.False(t, ok, "past end of line")

	_, ok = ResolveWord(l, cell(0, 1))
	assert.False(t, ok, "blank separator row")

	_, ok = ResolveWord(l, Point{X: -1, Y: 0})
	assert.False(t, ok)

	_, ok = ResolveWord(nil, cell(0, 0))
	assert.False(t, ok)
}

func TestRect(t *testing.T) {
	r := Rect{Left: 10, Top: 5, Right: 30, Bottom: 25}
	assert.Equal(t, 20.0, r.Width())
	assert.Equal(t, Point{X: 20, Y: 25}, r.BottomCenter())
	assert.Equal(t, Rect{Left: 0, Top: 5, Right: 30, Bottom: 40}, r.Union(Rect{Left: 0, Top: 20, Right: 5, Bottom: 40}))
}
