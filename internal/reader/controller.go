// Package reader holds the reading session's view-model: the loaded
// document, display preferences, the definition popover and the word
// history. Front ends call intent methods and render View snapshots.
package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/romdo/go-debounce"
	"github.com/segmentio/ksuid"

	"github.com/jackzampolin/adoread/internal/document"
	"github.com/jackzampolin/adoread/internal/history"
	"github.com/jackzampolin/adoread/internal/lookup"
)

var (
	// ErrNoDocument is returned by intents that need a loaded document.
	ErrNoDocument = errors.New("no document loaded")
	// ErrBusy is returned by SendChat while a message is in flight.
	ErrBusy = errors.New("a chat message is already in flight")
	// ErrNoWord is returned by chat intents when no popover is open.
	ErrNoWord = errors.New("no word selected")
)

// Backend answers definition and chat requests. *lookup.Client
// satisfies it.
type Backend interface {
	Define(ctx context.Context, word, contextText string) (string, error)
	Chat(ctx context.Context, message, documentText, sessionID string) (lookup.ChatResponse, error)
}

// HistoryStore persists the word history. *history.Store satisfies it.
type HistoryStore interface {
	Load(ctx context.Context) []history.Entry
	Save(ctx context.Context, list []history.Entry) error
	Clear(ctx context.Context) ([]history.Entry, error)
}

// Config configures a Controller.
type Config struct {
	Backend Backend
	History HistoryStore // optional; nil keeps history in memory only
	Logger  *slog.Logger

	// SaveDelay coalesces history writes; SaveMaxWait bounds how long a
	// pending write can be postponed.
	SaveDelay   time.Duration
	SaveMaxWait time.Duration

	// OnChange is called after every state change, without the lock held.
	OnChange func()

	// Now is the clock used for history timestamps.
	Now func() time.Time
}

// Controller is the reader view-model. All methods are safe for
// concurrent use; Select, Hover and SendChat block on the backend and are
// meant to be called off the UI goroutine.
type Controller struct {
	mu sync.Mutex

	backend Backend
	store   HistoryStore
	logger  *slog.Logger
	notify  func()
	now     func() time.Time

	doc     *document.Document
	page    int
	prefs   Preferences
	popover Popover
	history []history.Entry

	// defineGen is bumped on every define request and on every popover
	// reset; a response whose generation is stale is dropped.
	defineGen uint64
	chatGen   uint64

	dirty      bool
	save       func()
	cancelSave func()
	saveMu     sync.Mutex
	closed     bool
}

// New creates a controller and loads the saved history.
func New(ctx context.Context, cfg Config) (*Controller, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("reader: backend is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.SaveDelay <= 0 {
		cfg.SaveDelay = 500 * time.Millisecond
	}
	if cfg.SaveMaxWait < cfg.SaveDelay {
		cfg.SaveMaxWait = 4 * cfg.SaveDelay
	}

	c := &Controller{
		backend: cfg.Backend,
		store:   cfg.History,
		logger:  cfg.Logger,
		notify:  cfg.OnChange,
		now:     cfg.Now,
		prefs:   DefaultPreferences(),
		history: []history.Entry{},
	}
	if c.store != nil {
		c.history = c.store.Load(ctx)
	}
	c.save, c.cancelSave = debounce.NewWithMaxWait(cfg.SaveDelay, cfg.SaveMaxWait, c.flush)
	return c, nil
}

// Close flushes pending history writes. Later intents still update the
// in-memory state but are no longer persisted.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.defineGen++
	c.chatGen++
	c.mu.Unlock()

	c.cancelSave()
	return c.persist(context.Background())
}

func (c *Controller) changed() {
	if c.notify != nil {
		c.notify()
	}
}

// View returns a snapshot of the current state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Preferences: c.prefs,
		Popover:     c.popover,
		History:     history.Truncate(c.history),
	}
	v.Popover.Chat = slices.Clone(c.popover.Chat)
	if c.doc != nil {
		v.HasDocument = true
		v.DocumentName = c.doc.Name
		v.Page = c.page
		v.PageCount = c.doc.PageCount()
		v.Words = c.doc.Stats.Words
		if c.prefs.ViewMode == ViewContinuous {
			v.Pages = c.doc.PageTexts()
		} else {
			v.PageText = c.doc.PageText(c.page)
		}
	}
	return v
}

// Document returns the loaded document, or nil.
func (c *Controller) Document() *document.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc
}

// LoadDocument replaces the current document and returns to page one.
func (c *Controller) LoadDocument(doc *document.Document) error {
	if doc.IsEmpty() || doc.PageCount() == 0 {
		return ErrNoDocument
	}
	c.mu.Lock()
	c.doc = doc
	c.page = 1
	c.closePopoverLocked()
	c.mu.Unlock()

	c.logger.Info("document loaded", "name", doc.Name, "pages", doc.PageCount(), "words", doc.Stats.Words)
	c.changed()
	return nil
}

// NewFile discards the current document so another can be loaded.
func (c *Controller) NewFile() {
	c.mu.Lock()
	c.doc = nil
	c.page = 0
	c.closePopoverLocked()
	c.mu.Unlock()
	c.changed()
}

// SetViewMode switches between page and continuous layout.
func (c *Controller) SetViewMode(m ViewMode) error {
	if m != ViewPage && m != ViewContinuous {
		return fmt.Errorf("unknown view mode %q", m)
	}
	c.mu.Lock()
	c.prefs.ViewMode = m
	c.mu.Unlock()
	c.changed()
	return nil
}

// ToggleTheme flips between the light and sepia themes.
func (c *Controller) ToggleTheme() Theme {
	c.mu.Lock()
	if c.prefs.Theme == ThemeSepia {
		c.prefs.Theme = ThemeLight
	} else {
		c.prefs.Theme = ThemeSepia
	}
	t := c.prefs.Theme
	c.mu.Unlock()
	c.changed()
	return t
}

// AdjustFontSize changes the font size by delta points, clamped to
// [MinFontSize, MaxFontSize].
func (c *Controller) AdjustFontSize(delta int) int {
	c.mu.Lock()
	c.prefs.FontSize = min(max(c.prefs.FontSize+delta, MinFontSize), MaxFontSize)
	size := c.prefs.FontSize
	c.mu.Unlock()
	c.changed()
	return size
}

// SetLineHeight sets the line height, clamped to [MinLineHeight, MaxLineHeight].
func (c *Controller) SetLineHeight(h float64) float64 {
	if math.IsNaN(h) {
		h = DefaultLineHeight
	}
	c.mu.Lock()
	c.prefs.LineHeight = min(max(h, MinLineHeight), MaxLineHeight)
	h = c.prefs.LineHeight
	c.mu.Unlock()
	c.changed()
	return h
}

// SetFontFamily sets the CSS-style font family. Blank restores the default.
func (c *Controller) SetFontFamily(family string) {
	family = strings.TrimSpace(family)
	if family == "" {
		family = DefaultFontFamily
	}
	c.mu.Lock()
	c.prefs.FontFamily = family
	c.mu.Unlock()
	c.changed()
}

// NextPage advances one page; it stops at the last page.
func (c *Controller) NextPage() (int, error) {
	return c.movePage(func(p int) int { return p + 1 })
}

// PrevPage goes back one page; it stops at the first page.
func (c *Controller) PrevPage() (int, error) {
	return c.movePage(func(p int) int { return p - 1 })
}

// GoToPage jumps to the 1-based page n, clamped to the document.
func (c *Controller) GoToPage(n int) (int, error) {
	return c.movePage(func(int) int { return n })
}

func (c *Controller) movePage(next func(int) int) (int, error) {
	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		return 0, ErrNoDocument
	}
	target := min(max(next(c.page), 1), c.doc.PageCount())
	if target == c.page {
		c.mu.Unlock()
		return target, nil
	}
	c.page = target
	c.closePopoverLocked()
	c.mu.Unlock()
	c.changed()
	return target, nil
}

// ClosePopover dismisses the definition card.
func (c *Controller) ClosePopover() {
	c.mu.Lock()
	c.closePopoverLocked()
	c.mu.Unlock()
	c.changed()
}

// closePopoverLocked also invalidates any define or chat in flight.
func (c *Controller) closePopoverLocked() {
	c.popover = Popover{}
	c.defineGen++
	c.chatGen++
}

// Select looks up a selected word or phrase. A selection equal to the
// word already shown is ignored.
func (c *Controller) Select(ctx context.Context, text string, anchor history.Position) error {
	return c.lookup(ctx, text, anchor, false)
}

// Hover looks up a word the pointer dwelt on. The word already shown in
// an open popover is ignored.
func (c *Controller) Hover(ctx context.Context, word string, anchor history.Position) error {
	return c.lookup(ctx, word, anchor, true)
}

func (c *Controller) lookup(ctx context.Context, text string, anchor history.Position, hover bool) error {
	word := strings.TrimSpace(text)
	if word == "" {
		return nil
	}

	c.mu.Lock()
	if c.doc == nil {
		c.mu.Unlock()
		return ErrNoDocument
	}
	if c.popover.Open && c.popover.Word == word {
		c.mu.Unlock()
		return nil
	}
	c.defineGen++
	c.chatGen++
	gen := c.defineGen
	c.popover = Popover{
		Open:    true,
		Word:    word,
		Loading: true,
		Anchor:  anchor,
		IsHover: hover,
	}
	contextText := c.contextLocked()
	c.mu.Unlock()
	c.changed()

	def, err := c.backend.Define(ctx, word, contextText)

	c.mu.Lock()
	if gen != c.defineGen {
		c.mu.Unlock()
		c.logger.Debug("discarding stale definition", "word", word)
		return nil
	}
	c.popover.Loading = false
	if err != nil {
		c.popover.Definition = lookup.DefineFailedMessage
		c.popover.Failed = true
		c.mu.Unlock()
		c.logger.Warn("definition failed", "word", word, "error", err)
		c.changed()
		return fmt.Errorf("define %q: %w", word, err)
	}

	c.popover.Definition = def
	pos := anchor
	c.history = history.Upsert(c.history, history.Entry{
		ID:          ksuid.New().String(),
		Word:        word,
		Definition:  def,
		Timestamp:   c.now().UnixMilli(),
		Position:    &pos,
		IsHoverMode: hover,
	})
	if e, ok := history.Find(c.history, word); ok {
		c.popover.EntryID = e.ID
		c.popover.Chat = e.ChatMessages
		c.popover.ChatOpen = len(e.ChatMessages) > 0
	}
	c.mu.Unlock()

	c.scheduleSave()
	c.changed()
	return nil
}

// contextLocked is the text a definition is interpreted against: the
// current page, or the whole document in continuous view.
func (c *Controller) contextLocked() string {
	if c.prefs.ViewMode == ViewContinuous {
		return c.doc.Text
	}
	return c.doc.PageText(c.page)
}

// OpenChat shows the conversation for the current word, greeting the
// reader when it is empty.
func (c *Controller) OpenChat() error {
	c.mu.Lock()
	if !c.popover.Open || c.popover.Loading {
		c.mu.Unlock()
		return ErrNoWord
	}
	c.popover.ChatOpen = true
	if len(c.popover.Chat) == 0 {
		c.popover.Chat = []history.ChatTurn{{Sender: history.SenderAssistant, Text: ChatGreeting}}
		c.syncChatLocked()
	}
	c.mu.Unlock()

	c.scheduleSave()
	c.changed()
	return nil
}

// SendChat sends message in the current word's conversation and appends
// the reply, or an apology when the request fails.
func (c *Controller) SendChat(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}

	c.mu.Lock()
	if !c.popover.Open || c.popover.Loading {
		c.mu.Unlock()
		return ErrNoWord
	}
	if c.popover.Sending {
		c.mu.Unlock()
		return ErrBusy
	}
	c.popover.Sending = true
	c.popover.ChatOpen = true
	c.popover.Chat = append(slices.Clone(c.popover.Chat), history.ChatTurn{Sender: history.SenderUser, Text: message})
	c.syncChatLocked()
	gen := c.chatGen
	sessionID := c.popover.SessionID
	var docText string
	if c.doc != nil {
		docText = c.doc.Text
	}
	c.mu.Unlock()
	c.changed()

	resp, err := c.backend.Chat(ctx, message, docText, sessionID)

	reply := resp.Text
	switch {
	case err != nil:
		c.logger.Warn("chat failed", "error", err)
		reply = lookup.ChatFailedMessage
	case strings.TrimSpace(reply) == "":
		reply = lookup.ChatEmptyMessage
	}

	c.mu.Lock()
	if gen != c.chatGen {
		c.mu.Unlock()
		return nil
	}
	c.popover.Sending = false
	if err == nil {
		c.popover.SessionID = resp.SessionID
	}
	c.popover.Chat = append(slices.Clone(c.popover.Chat), history.ChatTurn{Sender: history.SenderAssistant, Text: reply})
	c.syncChatLocked()
	c.mu.Unlock()

	c.scheduleSave()
	c.changed()
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}

// syncChatLocked copies the popover conversation into its history entry.
func (c *Controller) syncChatLocked() {
	if c.popover.EntryID == "" {
		return
	}
	c.history = history.AppendChat(c.history, c.popover.EntryID, c.popover.Chat)
	c.dirty = true
}

// History returns the word history, newest first.
func (c *Controller) History() []history.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return history.Truncate(c.history)
}

// RemoveHistory deletes one entry.
func (c *Controller) RemoveHistory(id string) {
	c.mu.Lock()
	c.history = history.Remove(c.history, id)
	if c.popover.EntryID == id {
		c.popover.EntryID = ""
	}
	c.mu.Unlock()
	c.scheduleSave()
	c.changed()
}

// ClearHistory deletes every entry and the persisted copy.
func (c *Controller) ClearHistory(ctx context.Context) error {
	c.mu.Lock()
	c.history = []history.Entry{}
	c.popover.EntryID = ""
	c.dirty = false
	store := c.store
	c.mu.Unlock()

	var err error
	if store != nil {
		c.saveMu.Lock()
		_, err = store.Clear(ctx)
		c.saveMu.Unlock()
	}
	c.changed()
	return err
}

func (c *Controller) scheduleSave() {
	c.mu.Lock()
	c.dirty = true
	closed := c.closed
	c.mu.Unlock()
	if !closed && c.store != nil {
		c.save()
	}
}

func (c *Controller) flush() {
	if err := c.persist(context.Background()); err != nil {
		c.logger.Error("failed to save history", "error", err)
	}
}

// persist writes the history if it changed since the last write.
func (c *Controller) persist(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.mu.Lock()
	if !c.dirty {
		c.mu.Unlock()
		return nil
	}
	list := history.Truncate(c.history)
	c.dirty = false
	c.mu.Unlock()

	if err := c.store.Save(ctx, list); err != nil {
		c.mu.Lock()
		c.dirty = true
		c.mu.Unlock()
		return err
	}
	return nil
}
