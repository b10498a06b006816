package kv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemory() },
		"file": func(t *testing.T) Store {
			s, err := NewFile(filepath.Join(t.TempDir(), "state", "kv.json"))
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLite(filepath.Join(t.TempDir(), "kv.db"))
			require.NoError(t, err)
			return s
		},
	}
}

func TestStores(t *testing.T) {
	ctx := context.Background()

	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { s.Close() })

			_, err := s.Get(ctx, "word-history")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, "word-history", `[{"word":"a"}]`))
			got, err := s.Get(ctx, "word-history")
			require.NoError(t, err)
			assert.Equal(t, `[{"word":"a"}]`, got)

			require.NoError(t, s.Set(ctx, "word-history", `[]`))
			got, err = s.Get(ctx, "word-history")
			require.NoError(t, err)
			assert.Equal(t, `[]`, got)

			require.NoError(t, s.Set(ctx, "other", "x"))
			require.NoError(t, s.Delete(ctx, "word-history"))
			_, err = s.Get(ctx, "word-history")
			assert.ErrorIs(t, err, ErrNotFound)

			got, err = s.Get(ctx, "other")
			require.NoError(t, err)
			assert.Equal(t, "x", got)

			require.NoError(t, s.Delete(ctx, "missing"), "deleting an absent key is not an error")
		})
	}
}

func TestFile_SharedBetweenHandles(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.json")

	a, err := NewFile(path)
	require.NoError(t, err)
	defer a.Close()
	b, err := NewFile(path)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.Set(ctx, "k", "v1"))
	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", got)
}

func TestFile_CorruptFileIsReplacedOnWrite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "h.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := NewFile(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(ctx, "word-history")
	require.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, s.Delete(ctx, "word-history"))
	require.NoError(t, s.Set(ctx, "word-history", "[]"))
	got, err := s.Get(ctx, "word-history")
	require.NoError(t, err)
	assert.Equal(t, "[]", got)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	require.NoError(t, s.Delete(ctx, "word-history"))
	_, err = s.Get(ctx, "word-history")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", "persisted"))
	require.NoError(t, s.Close())

	s, err = NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "persisted", got)
}

func TestOpen(t *testing.T) {
	s, err := Open(BackendMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(BackendFile, filepath.Join(t.TempDir(), "h.json"))
	require.NoError(t, err)
	assert.IsType(t, &File{}, s)
	s.Close()

	_, err = Open("redis", "")
	assert.Error(t, err)
}
