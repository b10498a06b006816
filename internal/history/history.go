// Package history keeps the capped, newest-first list of looked-up words.
//
// The list functions are pure: they never modify their input slice or the
// entries in it. Store adds JSON persistence over a kv.Store.
package history

import (
	"slices"
)

// MaxEntries is the number of entries kept when saving.
const MaxEntries = 50

// StorageKey is the key the list is persisted under.
const StorageKey = "word-history"

// Chat turn senders.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Position is the last known anchor of an entry's popover.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ChatTurn is one message in an entry's conversation.
type ChatTurn struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// Entry is one looked-up word.
type Entry struct {
	ID           string     `json:"id"`
	Word         string     `json:"word"`
	Definition   string     `json:"definition"`
	Timestamp    int64      `json:"timestamp"` // ms since epoch, set once
	Position     *Position  `json:"position,omitempty"`
	IsHoverMode  bool       `json:"isHoverMode"`
	ChatMessages []ChatTurn `json:"chatMessages,omitempty"`
	DocumentText string     `json:"documentText,omitempty"`
}

func (e Entry) clone() Entry {
	if e.Position != nil {
		p := *e.Position
		e.Position = &p
	}
	e.ChatMessages = slices.Clone(e.ChatMessages)
	return e
}

func cloneAll(list []Entry) []Entry {
	out := make([]Entry, len(list))
	for i, e := range list {
		out[i] = e.clone()
	}
	return out
}

// Upsert merges e into list by word. A new word is prepended. An existing
// word keeps its ID, timestamp and position in the list; its definition,
// position and hover flag are replaced and e's chat turns are appended to
// its conversation.
func Upsert(list []Entry, e Entry) []Entry {
	idx := slices.IndexFunc(list, func(x Entry) bool { return x.Word == e.Word })
	if idx < 0 {
		out := make([]Entry, 0, len(list)+1)
		out = append(out, e.clone())
		return append(out, cloneAll(list)...)
	}

	out := cloneAll(list)
	cur := &out[idx]
	cur.Definition = e.Definition
	cur.IsHoverMode = e.IsHoverMode
	if e.Position != nil {
		p := *e.Position
		cur.Position = &p
	}
	if e.DocumentText != "" {
		cur.DocumentText = e.DocumentText
	}
	if len(e.ChatMessages) > 0 {
		cur.ChatMessages = append(cur.ChatMessages, e.ChatMessages...)
	}
	return out
}

// AppendChat sets the conversation of the entry with the given ID to turns.
// The list is returned unchanged (as a copy) when no entry matches.
func AppendChat(list []Entry, id string, turns []ChatTurn) []Entry {
	out := cloneAll(list)
	for i := range out {
		if out[i].ID == id {
			out[i].ChatMessages = slices.Clone(turns)
			break
		}
	}
	return out
}

// Remove drops the entry with the given ID.
func Remove(list []Entry, id string) []Entry {
	out := make([]Entry, 0, len(list))
	for _, e := range list {
		if e.ID != id {
			out = append(out, e.clone())
		}
	}
	return out
}

// Find returns the entry for word.
func Find(list []Entry, word string) (Entry, bool) {
	for _, e := range list {
		if e.Word == word {
			return e.clone(), true
		}
	}
	return Entry{}, false
}

// Truncate returns at most the first MaxEntries entries.
func Truncate(list []Entry) []Entry {
	if len(list) > MaxEntries {
		list = list[:MaxEntries]
	}
	return cloneAll(list)
}
