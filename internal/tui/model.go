// Package tui is the terminal front end of the reader. It renders the
// controller's View, turns mouse motion and drags into hover and selection
// gestures, and shows definitions and chat in a panel under the text.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jackzampolin/adoread/internal/history"
	"github.com/jackzampolin/adoread/internal/interaction"
	"github.com/jackzampolin/adoread/internal/reader"
)

// Controller is the part of *reader.Controller the model drives.
type Controller interface {
	View() reader.View
	NextPage() (int, error)
	PrevPage() (int, error)
	SetViewMode(m reader.ViewMode) error
	ToggleTheme() reader.Theme
	AdjustFontSize(delta int) int
	SetLineHeight(h float64) float64
	ClosePopover()
	Select(ctx context.Context, text string, anchor history.Position) error
	Hover(ctx context.Context, word string, anchor history.Position) error
	OpenChat() error
	SendChat(ctx context.Context, message string) error
	RemoveHistory(id string)
	ClearHistory(ctx context.Context) error
}

// Config configures a Model.
type Config struct {
	Controller Controller
	Events     *Events // required; its Changed must be the controller's OnChange
	Logger     *slog.Logger
	Clock      interaction.Clock  // nil uses the wall clock
	Gestures   interaction.Config // zero values use interaction.DefaultConfig
}

type mode int

const (
	modeRead mode = iota
	modeChat
	modeHistory
)

const (
	padX         = 2
	headerRows   = 1
	footerRows   = 1
	baseMeasure  = 80 // text columns at the default font size
	minTextWidth = 20
)

// Model is the bubbletea model of the reader.
type Model struct {
	ctx    context.Context
	ctrl   Controller
	events *Events
	logger *slog.Logger

	layout  *interaction.Layout
	tracker *interaction.Tracker

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	dwellBar progress.Model

	width, height int
	snapshot      reader.View
	styles        Styles

	// laid-out text and the geometry it was laid out with
	text       string
	textWidth  int
	cellHeight int

	mode      mode
	cursor    int // selected history row
	dwell     int
	dragging  bool
	selected  bool // set by the tracker during PointerUp
	status    string
	statusErr bool
	quitting  bool
}

// New creates a model. ctx bounds the definition and chat requests it
// starts.
func New(ctx context.Context, cfg Config) (*Model, error) {
	if cfg.Controller == nil {
		return nil, errors.New("tui: controller is required")
	}
	if cfg.Events == nil {
		return nil, errors.New("tui: events are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	input := textinput.New()
	input.Placeholder = "Ask about this word or the document"
	input.CharLimit = 2000

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(baseMeasure, 20)
	vp.MouseWheelEnabled = true

	m := &Model{
		ctx:        ctx,
		ctrl:       cfg.Controller,
		events:     cfg.Events,
		logger:     cfg.Logger,
		layout:     interaction.NewLayout("", baseMeasure),
		viewport:   vp,
		input:      input,
		spinner:    spin,
		dwellBar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(20), progress.WithoutPercentage()),
		cellHeight: 1,
	}
	m.tracker = interaction.NewTracker(m.layout, cfg.Clock, cfg.Gestures, interaction.Callbacks{
		// PointerUp runs inside Update, so the flag is read right after.
		OnSelection: func() { m.selected = true },
		OnWordHover: func(word string, anchor interaction.Point) {
			m.events.post(hoverMsg{word: word, anchor: anchor})
		},
		OnProgress: func(percent int) {
			m.events.offer(progressMsg{percent: percent})
		},
	})
	m.sync()
	return m, nil
}

// Close stops the gesture timers and releases the event bridge.
func (m *Model) Close() {
	m.tracker.Close()
	m.events.Close()
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.events.listen(), m.spinner.Tick)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.sync()
		return m, nil

	case changedMsg:
		m.sync()
		return m, m.events.listen()

	case progressMsg:
		m.dwell = msg.percent
		return m, m.events.listen()

	case hoverMsg:
		return m, tea.Batch(m.hover(msg.word, msg.anchor), m.events.listen())

	case lookupDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, reader.ErrNoDocument) {
			m.setError(msg.err)
		}
		return m, nil

	case chatDoneMsg:
		if msg.err != nil {
			m.setError(msg.err)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m, m.handleMouse(msg)

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return m.quit()
	}
	switch m.mode {
	case modeChat:
		return m.handleChatKey(msg)
	case modeHistory:
		return m.handleHistoryKey(msg)
	}

	m.status = ""
	switch msg.String() {
	case "q":
		return m.quit()
	case "esc":
		m.ctrl.ClosePopover()
	case "n", "right":
		m.movePage(m.ctrl.NextPage)
	case "p", "left":
		m.movePage(m.ctrl.PrevPage)
	case "v":
		next := reader.ViewContinuous
		if m.snapshot.Preferences.ViewMode == reader.ViewContinuous {
			next = reader.ViewPage
		}
		if err := m.ctrl.SetViewMode(next); err != nil {
			m.setError(err)
		}
	case "t":
		m.ctrl.ToggleTheme()
	case "+", "=":
		m.ctrl.AdjustFontSize(1)
	case "-":
		m.ctrl.AdjustFontSize(-1)
	case "]":
		m.ctrl.SetLineHeight(m.snapshot.Preferences.LineHeight + 0.2)
	case "[":
		m.ctrl.SetLineHeight(m.snapshot.Preferences.LineHeight - 0.2)
	case "c":
		if err := m.ctrl.OpenChat(); err != nil {
			m.setError(err)
			break
		}
		m.mode = modeChat
		m.sync()
		return m.input.Focus()
	case "h":
		m.mode = modeHistory
		m.cursor = 0
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	m.sync()
	return nil
}

func (m *Model) handleChatKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.mode = modeRead
		m.input.Blur()
		m.sync()
		return nil
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.snapshot.Popover.Sending {
			return nil
		}
		m.input.Reset()
		return m.sendChat(text)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) handleHistoryKey(msg tea.KeyMsg) tea.Cmd {
	entries := m.snapshot.History
	switch msg.String() {
	case "esc", "h", "q":
		m.mode = modeRead
	case "up", "k":
		m.cursor = max(m.cursor-1, 0)
	case "down", "j":
		m.cursor = min(m.cursor+1, max(len(entries)-1, 0))
	case "d", "delete", "backspace":
		if m.cursor < len(entries) {
			m.ctrl.RemoveHistory(entries[m.cursor].ID)
		}
	case "C":
		if err := m.ctrl.ClearHistory(m.ctx); err != nil {
			m.setError(err)
		}
		m.cursor = 0
	}
	m.sync()
	m.cursor = min(m.cursor, max(len(m.snapshot.History)-1, 0))
	return nil
}

func (m *Model) movePage(move func() (int, error)) {
	if m.snapshot.Preferences.ViewMode == reader.ViewContinuous {
		return
	}
	if _, err := move(); err != nil {
		m.setError(err)
		return
	}
	m.viewport.GotoTop()
}

func (m *Model) quit() tea.Cmd {
	m.quitting = true
	m.Close()
	return tea.Quit
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.tracker.PointerLeave()
		return cmd
	}
	if m.mode != modeRead {
		return nil
	}

	p, inside := m.textPoint(msg.X, msg.Y)
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || !inside {
			return nil
		}
		m.dragging = true
		m.layout.BeginSelection(p)
	case tea.MouseActionMotion:
		if m.dragging {
			if inside {
				m.layout.ExtendSelection(p)
			}
			return nil
		}
		if !inside {
			m.tracker.PointerLeave()
			return nil
		}
		m.tracker.PointerMove(p)
	case tea.MouseActionRelease:
		if !m.dragging {
			return nil
		}
		m.dragging = false
		m.selected = false
		m.tracker.PointerUp()
		text := m.layout.Selection()
		bounds, ok := m.layout.SelectionBounds()
		m.layout.ClearSelection()
		if !m.selected || !ok {
			return nil
		}
		m.selected = false
		return m.selectText(text, bounds.BottomCenter())
	}
	return nil
}

// textPoint maps a terminal cell to layout coordinates.
func (m *Model) textPoint(x, y int) (interaction.Point, bool) {
	col := x - padX
	row := y - headerRows
	if col < 0 || col >= m.textWidth || row < 0 || row >= m.viewport.Height {
		return interaction.Point{}, false
	}
	return interaction.Point{
		X: float64(col),
		Y: float64(row + m.viewport.YOffset),
	}, true
}

func (m *Model) hover(word string, anchor interaction.Point) tea.Cmd {
	ctx := m.ctx
	pos := history.Position{X: anchor.X, Y: anchor.Y}
	return func() tea.Msg {
		return lookupDoneMsg{err: m.ctrl.Hover(ctx, word, pos)}
	}
}

func (m *Model) selectText(text string, anchor interaction.Point) tea.Cmd {
	ctx := m.ctx
	pos := history.Position{X: anchor.X, Y: anchor.Y}
	return func() tea.Msg {
		return lookupDoneMsg{err: m.ctrl.Select(ctx, text, pos)}
	}
}

func (m *Model) sendChat(text string) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return chatDoneMsg{err: m.ctrl.SendChat(ctx, text)}
	}
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
	m.logger.Debug("reader error", "error", err)
}

// sync re-reads the controller snapshot and re-lays the text when the
// page, width or line spacing changed.
func (m *Model) sync() {
	m.snapshot = m.ctrl.View()
	m.styles = StylesFor(m.snapshot.Preferences.Theme)
	if m.status == "" {
		m.statusErr = false
	}
	if !m.snapshot.Popover.Open && m.mode == modeChat {
		m.mode = modeRead
		m.input.Blur()
	}

	width := m.measure()
	cellH := 1
	if m.snapshot.Preferences.LineHeight >= 2 {
		cellH = 2
	}
	text := m.snapshot.PageText
	if m.snapshot.Preferences.ViewMode == reader.ViewContinuous {
		text = strings.Join(m.snapshot.Pages, "\n\n")
	}

	relaid := false
	if text != m.text || width != m.textWidth || cellH != m.cellHeight {
		m.text, m.textWidth, m.cellHeight = text, width, cellH
		m.layout.Reflow(text, width)
		m.layout.SetCellSize(1, float64(cellH))
		m.tracker.SetSurface(m.layout)
		m.dragging = false
		relaid = true
	}

	m.viewport.Width = width
	m.viewport.Height = max(m.height-headerRows-footerRows-lipgloss.Height(m.panel()), 1)
	if relaid {
		m.viewport.SetContent(m.renderText())
	}
	m.dwellBar.Width = min(20, max(m.width/4, 5))
}

// measure is the text column width. Larger fonts get a narrower measure.
func (m *Model) measure() int {
	size := m.snapshot.Preferences.FontSize
	if size <= 0 {
		size = reader.DefaultFontSize
	}
	w := baseMeasure * reader.DefaultFontSize / size
	if m.width > 0 {
		w = min(w, m.width-2*padX)
	}
	return max(w, minTextWidth)
}

func (m *Model) renderText() string {
	rows := m.layout.Rows()
	if m.cellHeight == 1 {
		return strings.Join(rows, "\n")
	}
	out := make([]string, 0, len(rows)*m.cellHeight)
	for _, r := range rows {
		out = append(out, r)
		for i := 1; i < m.cellHeight; i++ {
			out = append(out, "")
		}
	}
	return strings.Join(out, "\n")
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	if m.mode == modeHistory {
		b.WriteString(m.historyView())
	} else {
		b.WriteString(lipgloss.NewStyle().PaddingLeft(padX).Render(m.styles.Text.Render(m.viewport.View())))
		if panel := m.panel(); panel != "" {
			b.WriteString("\n")
			b.WriteString(panel)
		}
	}
	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m *Model) header() string {
	v := m.snapshot
	title := "adoread"
	if v.HasDocument {
		title = fmt.Sprintf("adoread · %s · %d words", v.DocumentName, v.Words)
	}
	right := fmt.Sprintf("%s view · %s", v.Preferences.ViewMode, v.Preferences.Theme)
	gap := max(m.width-lipgloss.Width(title)-lipgloss.Width(right)-2, 1)
	return m.styles.Header.Render(title + strings.Repeat(" ", gap) + right)
}

func (m *Model) footer() string {
	v := m.snapshot
	var parts []string
	if v.HasDocument && v.Preferences.ViewMode == reader.ViewPage {
		parts = append(parts, fmt.Sprintf("Page %d of %d", v.Page, v.PageCount))
	}
	if m.dwell > 0 {
		parts = append(parts, m.dwellBar.ViewAs(float64(m.dwell)/100))
	}
	switch {
	case m.status != "" && m.statusErr:
		parts = append(parts, m.styles.Error.Render(m.status))
	case m.status != "":
		parts = append(parts, m.status)
	default:
		parts = append(parts, m.hints())
	}
	return m.styles.Status.Render(strings.Join(parts, "  "))
}

func (m *Model) hints() string {
	switch m.mode {
	case modeChat:
		return "enter send · esc back"
	case modeHistory:
		return "↑/↓ move · d remove · C clear · esc back"
	}
	return "n/p page · v view · t theme · +/- size · [/] spacing · c chat · h history · q quit"
}

// panel renders the definition card and its conversation.
func (m *Model) panel() string {
	pop := m.snapshot.Popover
	if !pop.Open {
		return ""
	}
	width := max(min(m.textWidth, m.width-2*padX)-4, minTextWidth)

	var b strings.Builder
	b.WriteString(m.styles.Word.Render(pop.Word))
	if pop.IsHover {
		b.WriteString(m.styles.Muted.Render("  (hover)"))
	}
	b.WriteString("\n")
	switch {
	case pop.Loading:
		b.WriteString(m.spinner.View() + " Loading definition...")
	case pop.Failed:
		b.WriteString(m.styles.Error.Render(pop.Definition))
	default:
		b.WriteString(pop.Definition)
	}

	if pop.ChatOpen {
		for _, turn := range pop.Chat {
			b.WriteString("\n")
			if turn.Sender == history.SenderUser {
				b.WriteString(m.styles.User.Render("you: ") + turn.Text)
			} else {
				b.WriteString(m.styles.Assistant.Render(turn.Text))
			}
		}
		if pop.Sending {
			b.WriteString("\n" + m.spinner.View() + " thinking...")
		}
		if m.mode == modeChat {
			b.WriteString("\n" + m.input.View())
		}
	}
	return lipgloss.NewStyle().PaddingLeft(padX).Render(m.styles.Popover.Width(width).Render(b.String()))
}

func (m *Model) historyView() string {
	entries := m.snapshot.History
	rows := max(m.height-headerRows-footerRows, 1)
	if len(entries) == 0 {
		return m.styles.Muted.Render("  No words looked up yet.")
	}

	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	var lines []string
	for i := start; i < len(entries) && len(lines) < rows; i++ {
		e := entries[i]
		def := strings.ReplaceAll(e.Definition, "\n", " ")
		room := max(m.width-lipgloss.Width(e.Word)-8, 10)
		if len([]rune(def)) > room {
			def = string([]rune(def)[:room-1]) + "…"
		}
		line := fmt.Sprintf("  %s  %s", m.styles.Word.Render(e.Word), m.styles.Muted.Render(def))
		if i == m.cursor {
			line = m.styles.Cursor.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Run runs the reader until the user quits or ctx ends.
func Run(ctx context.Context, cfg Config) error {
	m, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("reader: %w", err)
	}
	return nil
}
