package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jackzampolin/adoread/internal/interaction"
)

type (
	// changedMsg means the controller state moved; re-read the snapshot.
	changedMsg struct{}
	// progressMsg carries the dwell indicator percentage.
	progressMsg struct{ percent int }
	// hoverMsg is a word the pointer dwelt on.
	hoverMsg struct {
		word   string
		anchor interaction.Point
	}
	// lookupDoneMsg ends a define request started by the model.
	lookupDoneMsg struct{ err error }
	// chatDoneMsg ends a chat request started by the model.
	chatDoneMsg struct{ err error }
)

// Events carries notifications from other goroutines (controller changes,
// dwell timers) into the bubbletea loop. Pass Changed as the controller's
// OnChange callback.
type Events struct {
	changed chan struct{}
	msgs    chan tea.Msg
	done    chan struct{}
	once    sync.Once
}

// NewEvents creates an event bridge.
func NewEvents() *Events {
	return &Events{
		changed: make(chan struct{}, 1),
		msgs:    make(chan tea.Msg, 32),
		done:    make(chan struct{}),
	}
}

// Changed records that the controller state changed. Bursts collapse into
// one pending notification.
func (e *Events) Changed() {
	select {
	case e.changed <- struct{}{}:
	default:
	}
}

// offer queues msg unless the buffer is full.
func (e *Events) offer(msg tea.Msg) {
	select {
	case e.msgs <- msg:
	default:
	}
}

// post queues msg, waiting for room until the bridge closes.
func (e *Events) post(msg tea.Msg) {
	select {
	case e.msgs <- msg:
	case <-e.done:
	}
}

// Close releases any goroutine blocked in post or listen.
func (e *Events) Close() {
	e.once.Do(func() { close(e.done) })
}

// listen waits for the next notification.
func (e *Events) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-e.changed:
			return changedMsg{}
		case msg := <-e.msgs:
			return msg
		case <-e.done:
			return nil
		}
	}
}
