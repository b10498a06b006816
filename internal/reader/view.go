package reader

import (
	"github.com/jackzampolin/adoread/internal/history"
)

// ViewMode selects how the document is laid out.
type ViewMode string

const (
	ViewPage       ViewMode = "page"
	ViewContinuous ViewMode = "continuous"
)

// Theme is the reading color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeSepia Theme = "sepia"
)

// Preference limits and defaults.
const (
	MinFontSize       = 12
	MaxFontSize       = 24
	DefaultFontSize   = 16
	MinLineHeight     = 1.2
	MaxLineHeight     = 2.4
	DefaultLineHeight = 1.6
	DefaultFontFamily = "'Georgia', serif"
)

// ChatGreeting opens every new conversation.
const ChatGreeting = "Hi! I'm your document assistant. You can ask me questions about the uploaded document or anything else."

// Preferences are the reader's display settings.
type Preferences struct {
	ViewMode   ViewMode `json:"viewMode"`
	Theme      Theme    `json:"theme"`
	FontSize   int      `json:"fontSize"`
	LineHeight float64  `json:"lineHeight"`
	FontFamily string   `json:"fontFamily"`
}

// DefaultPreferences returns the settings a fresh reader starts with.
func DefaultPreferences() Preferences {
	return Preferences{
		ViewMode:   ViewPage,
		Theme:      ThemeLight,
		FontSize:   DefaultFontSize,
		LineHeight: DefaultLineHeight,
		FontFamily: DefaultFontFamily,
	}
}

// Popover is the definition card for the current word.
type Popover struct {
	Open       bool               `json:"open"`
	Word       string             `json:"word"`
	Definition string             `json:"definition"`
	Loading    bool               `json:"loading"`
	Failed     bool               `json:"failed"`
	Anchor     history.Position   `json:"anchor"`
	IsHover    bool               `json:"isHover"`
	EntryID    string             `json:"entryId,omitempty"`
	ChatOpen   bool               `json:"chatOpen"`
	Chat       []history.ChatTurn `json:"chat,omitempty"`
	Sending    bool               `json:"sending"`
	SessionID  string             `json:"sessionId,omitempty"`
}

// View is a snapshot of everything the presentation layer renders.
type View struct {
	DocumentName string          `json:"documentName,omitempty"`
	HasDocument  bool            `json:"hasDocument"`
	Page         int             `json:"page"`
	PageCount    int             `json:"pageCount"`
	PageText     string          `json:"pageText,omitempty"`
	Pages        []string        `json:"pages,omitempty"`
	Words        int             `json:"words"`
	Preferences  Preferences     `json:"preferences"`
	Popover      Popover         `json:"popover"`
	History      []history.Entry `json:"history"`
}
