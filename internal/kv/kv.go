// Package kv provides the small string key-value persistence capability the
// reader uses for local state such as word history.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key is absent.
var ErrNotFound = errors.New("kv: key not found")

// Store is a string key-value store. Implementations are safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open returns a store for the named backend rooted at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		return NewFile(path)
	case BackendSQLite, "":
		return NewSQLite(path)
	default:
		return nil, errors.New("kv: unknown backend " + backend)
	}
}
