package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/adoread/internal/kv"
)

func entry(id, word string, ts int64) Entry {
	return Entry{ID: id, Word: word, Definition: "def of " + word, Timestamp: ts}
}

func TestUpsert_NewWordPrepends(t *testing.T) {
	list := []Entry{entry("1", "alpha", 100)}
	got := Upsert(list, entry("2", "beta", 200))

	require.Len(t, got, 2)
	assert.Equal(t, "beta", got[0].Word)
	assert.Equal(t, "alpha", got[1].Word)
	assert.Len(t, list, 1, "input is not modified")
}

func TestUpsert_ExistingWordMerges(t *testing.T) {
	orig := entry("1", "alpha", 100)
	orig.ChatMessages = []ChatTurn{{Sender: SenderUser, Text: "hi"}}
	list := []Entry{entry("0", "zeta", 50), orig}

	update := Entry{
		ID:           "new-id",
		Word:         "alpha",
		Definition:   "better",
		Timestamp:    999,
		Position:     &Position{X: 3, Y: 4},
		IsHoverMode:  true,
		ChatMessages: []ChatTurn{{Sender: SenderAssistant, Text: "hello"}},
	}
	got := Upsert(list, update)

	require.Len(t, got, 2)
	merged := got[1]
	assert.Equal(t, "1", merged.ID)
	assert.Equal(t, int64(100), merged.Timestamp)
	assert.Equal(t, "better", merged.Definition)
	assert.True(t, merged.IsHoverMode)
	assert.Equal(t, &Position{X: 3, Y: 4}, merged.Position)
	assert.Equal(t, []ChatTurn{
		{Sender: SenderUser, Text: "hi"},
		{Sender: SenderAssistant, Text: "hello"},
	}, merged.ChatMessages)

	assert.Equal(t, "def of alpha", list[1].Definition, "input entry is not modified")
	assert.Len(t, list[1].ChatMessages, 1)
}

func TestUpsert_Idempotent(t *testing.T) {
	e := entry("1", "alpha", 100)
	e.ChatMessages = []ChatTurn{{Sender: SenderUser, Text: "q"}, {Sender: SenderAssistant, Text: "a"}}

	once := Upsert(nil, e)
	later := e
	later.Timestamp = 200
	twice := Upsert(once, later)

	require.Len(t, twice, 1)
	assert.Equal(t, int64(100), twice[0].Timestamp)
	assert.Equal(t, once[0].ID, twice[0].ID)
}

func TestUpsert_RepeatedTurnsAreAppended(t *testing.T) {
	turns := []ChatTurn{{Sender: SenderUser, Text: "what?"}, {Sender: SenderAssistant, Text: "a thing"}}
	e := entry("1", "alpha", 100)
	e.ChatMessages = turns

	list := Upsert(nil, e)
	list = Upsert(list, e)

	require.Len(t, list, 1)
	require.Len(t, list[0].ChatMessages, 4)
	assert.Equal(t, turns, list[0].ChatMessages[2:])
}

func TestUpsert_NoAliasing(t *testing.T) {
	e := entry("1", "alpha", 100)
	e.Position = &Position{X: 1, Y: 1}
	got := Upsert(nil, e)
	got[0].Position.X = 42
	assert.Equal(t, 1.0, e.Position.X)
}

func TestAppendChat(t *testing.T) {
	list := []Entry{entry("1", "alpha", 1), entry("2", "beta", 2)}
	turns := []ChatTurn{{Sender: SenderUser, Text: "what?"}}

	got := AppendChat(list, "2", turns)
	assert.Equal(t, turns, got[1].ChatMessages)
	assert.Empty(t, list[1].ChatMessages)

	turns[0].Text = "mutated"
	assert.Equal(t, "what?", got[1].ChatMessages[0].Text)

	assert.Equal(t, list, AppendChat(list, "missing", turns))
}

func TestRemoveAndFind(t *testing.T) {
	list := []Entry{entry("1", "alpha", 1), entry("2", "beta", 2)}
	got := Remove(list, "1")
	require.Len(t, got, 1)
	assert.Equal(t, "beta", got[0].Word)
	assert.Len(t, list, 2)

	e, ok := Find(list, "beta")
	assert.True(t, ok)
	assert.Equal(t, "2", e.ID)
	_, ok = Find(list, "gamma")
	assert.False(t, ok)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemory(), nil)

	e := entry("1", "alpha", 100)
	e.Position = &Position{X: 10, Y: 20}
	e.ChatMessages = []ChatTurn{{Sender: SenderUser, Text: "hi"}}
	list := []Entry{e, entry("2", "beta", 50)}

	require.NoError(t, s.Save(ctx, list))
	assert.Equal(t, list, s.Load(ctx))
}

func TestStore_SaveKeepsNewest(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemory(), nil)

	var list []Entry
	for i := 0; i < 60; i++ {
		list = Upsert(list, entry(fmt.Sprint(i), fmt.Sprintf("word%d", i), int64(i)))
	}
	require.NoError(t, s.Save(ctx, list))

	got := s.Load(ctx)
	require.Len(t, got, MaxEntries)
	assert.Equal(t, "word59", got[0].Word)
	assert.Equal(t, "word10", got[MaxEntries-1].Word)
}

func TestStore_BrowserFormat(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	raw := `[{"id":"abc","word":"ephemeral","definition":"short-lived","timestamp":1700000000000,` +
		`"position":{"x":120.5,"y":300},"isHoverMode":true,` +
		`"chatMessages":[{"sender":"user","text":"example?"}],"documentText":"doc"}]`
	require.NoError(t, mem.Set(ctx, StorageKey, raw))

	got := NewStore(mem, nil).Load(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, Entry{
		ID:           "abc",
		Word:         "ephemeral",
		Definition:   "short-lived",
		Timestamp:    1700000000000,
		Position:     &Position{X: 120.5, Y: 300},
		IsHoverMode:  true,
		ChatMessages: []ChatTurn{{Sender: SenderUser, Text: "example?"}},
		DocumentText: "doc",
	}, got[0])
}

func TestStore_LoadFailuresYieldEmpty(t *testing.T) {
	ctx := context.Background()

	t.Run("absent", func(t *testing.T) {
		assert.Equal(t, []Entry{}, NewStore(kv.NewMemory(), nil).Load(ctx))
	})

	for name, raw := range map[string]string{
		"corrupt":    "{not json",
		"wrong type": `{"word":"x"}`,
		"null":       "null",
	} {
		t.Run(name, func(t *testing.T) {
			mem := kv.NewMemory()
			require.NoError(t, mem.Set(ctx, StorageKey, raw))
			assert.Equal(t, []Entry{}, NewStore(mem, nil).Load(ctx))
		})
	}
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	s := NewStore(mem, nil)
	require.NoError(t, s.Save(ctx, []Entry{entry("1", "alpha", 1)}))

	got, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = mem.Get(ctx, StorageKey)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestStore_RecoversFromCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	f, err := kv.NewFile(path)
	require.NoError(t, err)
	defer f.Close()
	s := NewStore(f, nil)

	assert.Empty(t, s.Load(ctx))
	require.NoError(t, s.Save(ctx, []Entry{entry("1", "alpha", 1)}))
	got := s.Load(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "alpha", got[0].Word)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	cleared, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Empty(t, cleared)
	assert.Empty(t, s.Load(ctx))
}
