package interaction

import (
	"math"
	"strings"
	"sync"
	"time"
)

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. Tests substitute a manual clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Config holds the gesture timings.
type Config struct {
	Dwell            time.Duration // hover time before a word resolves
	ProgressInterval time.Duration // tick period of the progress indicator
	ProgressStep     int           // percent added per tick
	TapMaxDuration   time.Duration // a touch shorter than this is a tap
	TapMaxMovement   float64       // max travel on either axis for a tap
}

// DefaultConfig returns the standard desktop/touch timings.
func DefaultConfig() Config {
	return Config{
		Dwell:            2 * time.Second,
		ProgressInterval: 100 * time.Millisecond,
		ProgressStep:     5,
		TapMaxDuration:   300 * time.Millisecond,
		TapMaxMovement:   10,
	}
}

// Callbacks receive gesture results. All are optional and are never called
// with the tracker's lock held.
type Callbacks struct {
	// OnSelection fires when a mouse-up or tap finds a non-empty selection.
	OnSelection func()
	// OnWordHover fires when a dwell completes or a tap lands on a word.
	OnWordHover func(word string, anchor Point)
	// OnProgress reports dwell progress in percent; 0 means cleared.
	OnProgress func(percent int)
}

// State is the hover state.
type State int

const (
	StateIdle State = iota
	StateHovering
)

func (s State) String() string {
	if s == StateHovering {
		return "hovering"
	}
	return "idle"
}

// Tracker turns pointer and touch events over a Surface into selection and
// hover callbacks.
//
// Every cancel path stops both timers and bumps a generation counter, so a
// timer callback that was already running when it was cancelled does nothing.
type Tracker struct {
	mu sync.Mutex

	surface Surface
	clock   Clock
	cfg     Config
	cb      Callbacks

	state    State
	current  Word
	progress int
	gen      uint64
	dwell    Timer
	ticker   Timer

	touching   bool
	touchStart Point
	touchAt    time.Time

	closed bool
}

// NewTracker creates a tracker over s. A nil clock uses SystemClock.
func NewTracker(s Surface, clock Clock, cfg Config, cb Callbacks) *Tracker {
	if clock == nil {
		clock = SystemClock
	}
	def := DefaultConfig()
	if cfg.Dwell <= 0 {
		cfg.Dwell = def.Dwell
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = def.ProgressInterval
	}
	if cfg.ProgressStep <= 0 {
		cfg.ProgressStep = def.ProgressStep
	}
	if cfg.TapMaxDuration <= 0 {
		cfg.TapMaxDuration = def.TapMaxDuration
	}
	if cfg.TapMaxMovement <= 0 {
		cfg.TapMaxMovement = def.TapMaxMovement
	}
	return &Tracker{surface: s, clock: clock, cfg: cfg, cb: cb}
}

// SetSurface swaps the surface (e.g. after a page change) and cancels any hover.
func (t *Tracker) SetSurface(s Surface) {
	t.mu.Lock()
	t.surface = s
	notify := t.cancelLocked()
	t.mu.Unlock()
	notify()
}

// State returns the current hover state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Hovered returns the word being dwelt on, if any.
func (t *Tracker) Hovered() (Word, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.state == StateHovering
}

// Progress returns the dwell indicator percentage.
func (t *Tracker) Progress() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// PointerMove handles pointer motion at p. Moving onto a new word restarts
// the dwell; moving within the same word leaves it running; moving off any
// word cancels it.
func (t *Tracker) PointerMove(p Point) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	w, ok := ResolveWord(t.surface, p)
	if ok && t.state == StateHovering && t.current.sameAs(w) {
		t.mu.Unlock()
		return
	}
	notify := t.cancelLocked()
	if ok {
		t.startLocked(w)
	}
	t.mu.Unlock()
	notify()
}

// PointerLeave handles the pointer leaving the text container.
func (t *Tracker) PointerLeave() {
	t.mu.Lock()
	notify := t.cancelLocked()
	t.mu.Unlock()
	notify()
}

// PointerUp handles a mouse-up by checking the selection.
func (t *Tracker) PointerUp() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	selected := t.hasSelectionLocked()
	t.mu.Unlock()

	if selected && t.cb.OnSelection != nil {
		t.cb.OnSelection()
	}
}

// TouchStart records the start of a touch at p.
func (t *Tracker) TouchStart(p Point) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.touching = true
	t.touchStart = p
	t.touchAt = t.clock.Now()
}

// TouchEnd completes a touch at p. A quick, short tap checks the selection
// and then resolves the word under p immediately.
func (t *Tracker) TouchEnd(p Point) {
	t.mu.Lock()
	if t.closed || !t.touching {
		t.mu.Unlock()
		return
	}
	t.touching = false

	elapsed := t.clock.Now().Sub(t.touchAt)
	dx := math.Abs(p.X - t.touchStart.X)
	dy := math.Abs(p.Y - t.touchStart.Y)
	if elapsed >= t.cfg.TapMaxDuration || dx >= t.cfg.TapMaxMovement || dy >= t.cfg.TapMaxMovement {
		t.mu.Unlock()
		return
	}

	selected := t.hasSelectionLocked()
	w, ok := ResolveWord(t.surface, p)
	t.mu.Unlock()

	if selected && t.cb.OnSelection != nil {
		t.cb.OnSelection()
	}
	if ok && t.cb.OnWordHover != nil {
		t.cb.OnWordHover(w.Text, w.Anchor)
	}
}

// Close cancels everything; later events are ignored.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.touching = false
	notify := t.cancelLocked()
	t.mu.Unlock()
	notify()
}

func (t *Tracker) hasSelectionLocked() bool {
	if t.surface == nil {
		return false
	}
	return hasText(t.surface.Selection())
}

// startLocked begins dwelling on w. Must be called with lock held.
func (t *Tracker) startLocked(w Word) {
	t.gen++
	gen := t.gen
	t.state = StateHovering
	t.current = w
	t.progress = 0
	t.dwell = t.clock.AfterFunc(t.cfg.Dwell, func() { t.fire(gen) })
	t.ticker = t.clock.AfterFunc(t.cfg.ProgressInterval, func() { t.tick(gen) })
}

// cancelLocked stops both timers and resets progress. It returns the
// notification to run after unlocking.
func (t *Tracker) cancelLocked() func() {
	t.gen++
	if t.dwell != nil {
		t.dwell.Stop()
		t.dwell = nil
	}
	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
	}
	wasActive := t.state == StateHovering || t.progress != 0
	t.state = StateIdle
	t.current = Word{}
	t.progress = 0

	if !wasActive || t.cb.OnProgress == nil {
		return func() {}
	}
	onProgress := t.cb.OnProgress
	return func() { onProgress(0) }
}

func (t *Tracker) tick(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.state != StateHovering {
		t.mu.Unlock()
		return
	}
	t.progress = min(t.progress+t.cfg.ProgressStep, 100)
	p := t.progress
	t.ticker = t.clock.AfterFunc(t.cfg.ProgressInterval, func() { t.tick(gen) })
	t.mu.Unlock()

	if t.cb.OnProgress != nil {
		t.cb.OnProgress(p)
	}
}

func (t *Tracker) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.state != StateHovering {
		t.mu.Unlock()
		return
	}
	w := t.current
	t.dwell = nil
	notify := t.cancelLocked()
	t.mu.Unlock()

	if t.cb.OnWordHover != nil {
		t.cb.OnWordHover(w.Text, w.Anchor)
	}
	notify()
}

func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}
