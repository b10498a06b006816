package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackzampolin/adoread/internal/kv"
)

// Store persists the history list as a JSON array under StorageKey.
type Store struct {
	kv     kv.Store
	logger *slog.Logger
}

// NewStore wraps a key-value store. A nil logger uses slog.Default.
func NewStore(s kv.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: s, logger: logger}
}

// Save writes the newest MaxEntries entries.
func (s *Store) Save(ctx context.Context, list []Entry) error {
	list = Truncate(list)
	if list == nil {
		list = []Entry{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	if err := s.kv.Set(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}

// Load reads the saved list. A missing, unreadable or corrupt value yields
// an empty list; the problem is logged and never returned.
func (s *Store) Load(ctx context.Context) []Entry {
	raw, err := s.kv.Get(ctx, StorageKey)
	if errors.Is(err, kv.ErrNotFound) {
		return []Entry{}
	}
	if err != nil {
		s.logger.Warn("failed to read history", "error", err)
		return []Entry{}
	}

	var list []Entry
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		s.logger.Warn("discarding corrupt history", "error", err, "bytes", len(raw))
		return []Entry{}
	}
	if list == nil {
		return []Entry{}
	}
	return list
}

// Clear erases the stored key and returns the empty list.
func (s *Store) Clear(ctx context.Context) ([]Entry, error) {
	if err := s.kv.Delete(ctx, StorageKey); err != nil {
		return []Entry{}, fmt.Errorf("clearing history: %w", err)
	}
	return []Entry{}, nil
}
