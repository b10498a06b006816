// Package session holds per-client chat conversations for the chat endpoint.
package session

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/jackzampolin/adoread/internal/providers"
)

const (
	DefaultIdleTTL     = 30 * time.Minute
	DefaultMaxSessions = 1000
)

// Session is one conversation. Its first message is the system instruction
// it was seeded with.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	messages []providers.Message
	lastUsed time.Time
}

// Messages returns a copy of the conversation so far.
func (s *Session) Messages() []providers.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Turns returns the number of completed user turns.
func (s *Session) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.messages {
		if m.Role == providers.RoleUser {
			n++
		}
	}
	return n
}

// Exchange runs one turn. fn receives the conversation with the user message
// appended and returns the reply. The turn is committed only when fn
// succeeds; turns within a session never overlap.
func (s *Session) Exchange(ctx context.Context, userText string, fn func(ctx context.Context, msgs []providers.Message) (string, error)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := append(slices.Clone(s.messages), providers.Message{Role: providers.RoleUser, Content: userText})
	reply, err := fn(ctx, msgs)
	if err != nil {
		return "", err
	}
	s.messages = append(msgs, providers.Message{Role: providers.RoleAssistant, Content: reply})
	s.lastUsed = time.Now()
	return reply, nil
}

// Config configures a Registry.
type Config struct {
	IdleTTL     time.Duration
	MaxSessions int
	Logger      *slog.Logger
	// OnEvict is called after a session expires or is pushed out by capacity.
	OnEvict func(id string)
}

// Registry maps session IDs to sessions. Idle sessions expire after IdleTTL
// and the least recently used session is dropped beyond MaxSessions.
type Registry struct {
	cache   *expirable.LRU[string, *Session]
	logger  *slog.Logger
	onEvict func(id string)

	// mu makes get-or-create atomic.
	mu sync.Mutex
}

// NewRegistry creates a registry.
func NewRegistry(cfg Config) *Registry {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{logger: logger, onEvict: cfg.OnEvict}
	r.cache = expirable.NewLRU[string, *Session](cfg.MaxSessions, r.evicted, cfg.IdleTTL)
	return r
}

func (r *Registry) evicted(id string, s *Session) {
	r.logger.Debug("chat session evicted", "session_id", id, "created_at", s.CreatedAt)
	if r.onEvict != nil {
		r.onEvict(id)
	}
}

// NewID returns a fresh session ID.
func NewID() string {
	return uuid.New().String()
}

// Acquire returns the session for id, creating it with seed when it does not
// exist. An empty id gets a generated one. Every call refreshes the idle TTL.
func (r *Registry) Acquire(id string, seed func() []providers.Message) (s *Session, created bool) {
	if id == "" {
		id = NewID()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.cache.Get(id); ok {
		r.cache.Add(id, s)
		return s, false
	}

	now := time.Now()
	s = &Session{ID: id, CreatedAt: now, lastUsed: now}
	if seed != nil {
		s.messages = seed()
	}
	r.cache.Add(id, s)
	r.logger.Debug("chat session created", "session_id", id)
	return s, true
}

// Get returns an existing session without refreshing it.
func (r *Registry) Get(id string) (*Session, bool) {
	return r.cache.Peek(id)
}

// Remove drops a session.
func (r *Registry) Remove(id string) bool {
	return r.cache.Remove(id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Purge drops every session.
func (r *Registry) Purge() {
	r.cache.Purge()
}
