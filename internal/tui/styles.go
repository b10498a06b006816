package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jackzampolin/adoread/internal/reader"
)

// Styles holds the lipgloss styles for one reading theme.
type Styles struct {
	Header    lipgloss.Style
	Text      lipgloss.Style
	Status    lipgloss.Style
	Muted     lipgloss.Style
	Error     lipgloss.Style
	Popover   lipgloss.Style
	Word      lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Cursor    lipgloss.Style
}

type palette struct {
	fg, bg, accent, muted, border, failure lipgloss.Color
}

var palettes = map[reader.Theme]palette{
	reader.ThemeLight: {
		fg:      "#1f2328",
		bg:      "#ffffff",
		accent:  "#0969da",
		muted:   "#6e7781",
		border:  "#d0d7de",
		failure: "#cf222e",
	},
	reader.ThemeSepia: {
		fg:      "#5b4636",
		bg:      "#f4ecd8",
		accent:  "#8b5e34",
		muted:   "#9c8b74",
		border:  "#c9b99a",
		failure: "#a4372a",
	},
}

// StylesFor returns the styles for theme, falling back to light.
func StylesFor(theme reader.Theme) Styles {
	p, ok := palettes[theme]
	if !ok {
		p = palettes[reader.ThemeLight]
	}
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.bg).
			Background(p.accent).
			Padding(0, 1),
		Text:   lipgloss.NewStyle().Foreground(p.fg).Background(p.bg),
		Status: lipgloss.NewStyle().Foreground(p.muted).Padding(0, 1),
		Muted:  lipgloss.NewStyle().Foreground(p.muted),
		Error:  lipgloss.NewStyle().Foreground(p.failure),
		Popover: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.border).
			Foreground(p.fg).
			Padding(0, 1),
		Word:      lipgloss.NewStyle().Bold(true).Foreground(p.accent),
		User:      lipgloss.NewStyle().Bold(true).Foreground(p.accent),
		Assistant: lipgloss.NewStyle().Foreground(p.fg),
		Cursor:    lipgloss.NewStyle().Reverse(true),
	}
}
