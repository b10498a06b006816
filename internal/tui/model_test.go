package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/adoread/internal/document"
	"github.com/jackzampolin/adoread/internal/interaction"
	"github.com/jackzampolin/adoread/internal/lookup"
	"github.com/jackzampolin/adoread/internal/reader"
)

type stubBackend struct {
	mu      sync.Mutex
	defined []string
	asked   []string
}

func (b *stubBackend) Define(_ context.Context, word, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.defined = append(b.defined, word)
	return "meaning of " + word, nil
}

func (b *stubBackend) Chat(_ context.Context, message, _, _ string) (lookup.ChatResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.asked = append(b.asked, message)
	return lookup.ChatResponse{Text: "It is a common word.", SessionID: "s-1"}, nil
}

func (b *stubBackend) definedWords() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.defined...)
}

// stepClock runs timers only when Advance is called.
type stepClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*stepTimer
}

type stepTimer struct {
	c    *stepClock
	at   time.Time
	f    func()
	done bool
}

func (t *stepTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	was := !t.done
	t.done = true
	return was
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) AfterFunc(d time.Duration, f func()) interaction.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &stepTimer{c: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var next *stepTimer
		for _, t := range c.timers {
			if !t.done && !t.at.After(target) && (next == nil || t.at.Before(next.at)) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.done = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
	}
}

type harness struct {
	model   *Model
	ctrl    *reader.Controller
	backend *stubBackend
	events  *Events
	clock   *stepClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	events := NewEvents()
	backend := &stubBackend{}
	ctrl, err := reader.New(context.Background(), reader.Config{
		Backend:  backend,
		OnChange: events.Changed,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctrl.Close() })

	doc := document.New("notes.txt", "The first page speaks of alpha.\fThe second page speaks of beta.\fThe third page speaks of gamma.", document.Paginator{})
	require.NoError(t, ctrl.LoadDocument(doc))

	clock := &stepClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	m, err := New(context.Background(), Config{
		Controller: ctrl,
		Events:     events,
		Clock:      clock,
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)

	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return &harness{model: m, ctrl: ctrl, backend: backend, events: events, clock: clock}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// mouseAt addresses a layout cell: the text starts after the left padding
// and the header row.
func mouseAt(col, row int, action tea.MouseAction, button tea.MouseButton) tea.MouseMsg {
	return tea.MouseMsg{X: col + padX, Y: row + headerRows, Action: action, Button: button}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(context.Background(), Config{Events: NewEvents()})
	require.Error(t, err)

	_, err = New(context.Background(), Config{Controller: &reader.Controller{}})
	require.Error(t, err)
}

func TestView_RendersPage(t *testing.T) {
	h := newHarness(t)

	out := h.model.View()
	assert.Contains(t, out, "notes.txt")
	assert.Contains(t, out, "The first page speaks of alpha.")
	assert.Contains(t, out, "Page 1 of 3")
}

func TestKeys_PageNavigation(t *testing.T) {
	h := newHarness(t)

	h.model.Update(key("n"))
	assert.Equal(t, 2, h.ctrl.View().Page)
	assert.Contains(t, h.model.View(), "The second page speaks of beta.")
	assert.Contains(t, h.model.View(), "Page 2 of 3")

	h.model.Update(key("p"))
	h.model.Update(key("p"))
	assert.Equal(t, 1, h.ctrl.View().Page)
}

func TestKeys_ViewModeAndPreferences(t *testing.T) {
	h := newHarness(t)

	h.model.Update(key("v"))
	v := h.ctrl.View()
	assert.Equal(t, reader.ViewContinuous, v.Preferences.ViewMode)
	out := h.model.View()
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "gamma")
	assert.NotContains(t, out, "Page 1 of 3")

	// Page keys do nothing in continuous view.
	h.model.Update(key("n"))
	assert.Equal(t, 1, h.ctrl.View().Page)

	h.model.Update(key("t"))
	assert.Equal(t, reader.ThemeSepia, h.ctrl.View().Preferences.Theme)

	h.model.Update(key("+"))
	assert.Equal(t, reader.DefaultFontSize+1, h.ctrl.View().Preferences.FontSize)
	assert.Less(t, h.model.textWidth, baseMeasure)

	h.model.Update(key("]"))
	assert.InDelta(t, reader.DefaultLineHeight+0.2, h.ctrl.View().Preferences.LineHeight, 1e-9)
	assert.Equal(t, 1, h.model.cellHeight)
	h.model.Update(key("]"))
	h.model.Update(key("]"))
	assert.Equal(t, 2, h.model.cellHeight)
}

func TestMouse_DragSelectionDefinesPhrase(t *testing.T) {
	h := newHarness(t)

	// "The first page": drag from the f of "first" to the e of "page".
	h.model.Update(mouseAt(4, 0, tea.MouseActionPress, tea.MouseButtonLeft))
	h.model.Update(mouseAt(13, 0, tea.MouseActionMotion, tea.MouseButtonLeft))
	_, cmd := h.model.Update(mouseAt(13, 0, tea.MouseActionRelease, tea.MouseButtonNone))
	require.NotNil(t, cmd)

	msg := cmd()
	done, ok := msg.(lookupDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)
	assert.Equal(t, []string{"first page"}, h.backend.definedWords())

	h.model.Update(changedMsg{})
	out := h.model.View()
	assert.Contains(t, out, "meaning of first page")

	h.model.Update(key("esc"))
	assert.False(t, h.ctrl.View().Popover.Open)
}

func TestMouse_ClickWithoutDragDoesNothing(t *testing.T) {
	h := newHarness(t)

	h.model.Update(mouseAt(4, 0, tea.MouseActionPress, tea.MouseButtonLeft))
	_, cmd := h.model.Update(mouseAt(4, 0, tea.MouseActionRelease, tea.MouseButtonNone))
	assert.Nil(t, cmd)
	assert.Empty(t, h.backend.definedWords())
}

func TestMouse_DwellPostsHover(t *testing.T) {
	h := newHarness(t)

	h.model.Update(mouseAt(6, 0, tea.MouseActionMotion, tea.MouseButtonNone))
	h.clock.Advance(interaction.DefaultConfig().Dwell)

	var hover *hoverMsg
	var sawProgress bool
	for len(h.events.msgs) > 0 {
		switch msg := (<-h.events.msgs).(type) {
		case hoverMsg:
			hover = &msg
		case progressMsg:
			if msg.percent > 0 {
				sawProgress = true
			}
		}
	}
	require.NotNil(t, hover)
	assert.Equal(t, "first", hover.word)
	assert.True(t, sawProgress)

	cmd := h.model.hover(hover.word, hover.anchor)
	require.NoError(t, cmd().(lookupDoneMsg).err)
	v := h.ctrl.View()
	assert.True(t, v.Popover.IsHover)
	assert.Equal(t, "meaning of first", v.Popover.Definition)
}

func TestMouse_LeavingTextCancelsDwell(t *testing.T) {
	h := newHarness(t)

	h.model.Update(mouseAt(6, 0, tea.MouseActionMotion, tea.MouseButtonNone))
	h.model.Update(tea.MouseMsg{X: 0, Y: 0, Action: tea.MouseActionMotion})
	h.clock.Advance(5 * time.Second)

	for len(h.events.msgs) > 0 {
		_, isHover := (<-h.events.msgs).(hoverMsg)
		assert.False(t, isHover)
	}
}

func TestProgressMsg_ShowsDwell(t *testing.T) {
	h := newHarness(t)

	h.model.Update(progressMsg{percent: 50})
	assert.Equal(t, 50, h.model.dwell)
	h.model.Update(progressMsg{percent: 0})
	assert.Zero(t, h.model.dwell)
}

func TestChat_SendsMessage(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.model.hover("alpha", interaction.Point{})().(lookupDoneMsg).err)
	h.model.Update(changedMsg{})

	h.model.Update(key("c"))
	require.Equal(t, modeChat, h.model.mode)
	assert.Contains(t, h.model.View(), "Hi! I'm your document assistant.")

	h.model.Update(key("why?"))
	_, cmd := h.model.Update(key("enter"))
	require.NotNil(t, cmd)
	require.NoError(t, cmd().(chatDoneMsg).err)

	h.model.Update(changedMsg{})
	assert.Contains(t, h.model.View(), "It is a common word.")
	assert.Equal(t, "s-1", h.ctrl.View().Popover.SessionID)

	h.model.Update(key("esc"))
	assert.Equal(t, modeRead, h.model.mode)
}

func TestChat_RequiresWord(t *testing.T) {
	h := newHarness(t)

	h.model.Update(key("c"))
	assert.Equal(t, modeRead, h.model.mode)
	assert.Contains(t, h.model.View(), reader.ErrNoWord.Error())
}

func TestHistory_ListAndRemove(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.model.hover("alpha", interaction.Point{})().(lookupDoneMsg).err)
	require.NoError(t, h.model.hover("speaks", interaction.Point{})().(lookupDoneMsg).err)

	h.model.Update(key("h"))
	out := h.model.View()
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "meaning of speaks")

	h.model.Update(key("d"))
	entries := h.ctrl.View().History
	require.Len(t, entries, 1)
	assert.Equal(t, "alpha", entries[0].Word)

	h.model.Update(key("C"))
	assert.Empty(t, h.ctrl.View().History)
	assert.Contains(t, h.model.View(), "No words looked up yet.")

	h.model.Update(key("esc"))
	assert.Equal(t, modeRead, h.model.mode)
}

func TestQuit(t *testing.T) {
	h := newHarness(t)

	_, cmd := h.model.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, h.model.View())
}

func TestEvents_ChangedCoalesces(t *testing.T) {
	e := NewEvents()
	e.Changed()
	e.Changed()
	assert.Len(t, e.changed, 1)

	assert.IsType(t, changedMsg{}, e.listen()())
	e.Close()
	assert.Nil(t, e.listen()())
}
