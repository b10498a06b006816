package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// File stores all keys in one JSON object on disk. An advisory lock file
// next to it serializes access between processes, so the terminal reader
// and the history CLI can share one file.
type File struct {
	mu     sync.Mutex
	path   string
	lock   *flock.Flock
	logger *slog.Logger
}

// ErrCorrupt is returned by Get when the file holds invalid JSON. Writes
// discard a corrupt file and start from an empty object.
var ErrCorrupt = errors.New("kv: corrupt store file")

// NewFile opens (or prepares to create) a JSON store at path.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("kv: file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &File{path: path, lock: flock.New(path + ".lock"), logger: slog.Default()}, nil
}

// SetLogger sets the logger used to report discarded corrupt files.
func (f *File) SetLogger(logger *slog.Logger) {
	if logger != nil {
		f.logger = logger
	}
}

// Path returns the JSON file location.
func (f *File) Path() string { return f.path }

func (f *File) Get(ctx context.Context, key string) (string, error) {
	var (
		v  string
		ok bool
	)
	err := f.withLock(ctx, false, func() error {
		data, err := f.read()
		if err != nil {
			return err
		}
		v, ok = data[key]
		return nil
	})
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *File) Set(ctx context.Context, key, value string) error {
	return f.withLock(ctx, true, func() error {
		data, _, err := f.readForWrite()
		if err != nil {
			return err
		}
		data[key] = value
		return f.write(data)
	})
}

func (f *File) Delete(ctx context.Context, key string) error {
	return f.withLock(ctx, true, func() error {
		data, discarded, err := f.readForWrite()
		if err != nil {
			return err
		}
		if _, ok := data[key]; !ok && !discarded {
			return nil
		}
		delete(data, key)
		return f.write(data)
	})
}

func (f *File) Close() error {
	return f.lock.Close()
}

func (f *File) withLock(ctx context.Context, exclusive bool, fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	var err error
	if exclusive {
		err = f.lock.Lock()
	} else {
		err = f.lock.RLock()
	}
	if err != nil {
		return fmt.Errorf("locking %s: %w", f.path, err)
	}
	defer f.lock.Unlock()
	return fn()
}

func (f *File) read() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.path, err)
	}
	data := make(map[string]string)
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrCorrupt, f.path, err)
	}
	return data, nil
}

// readForWrite is read for the write paths. A corrupt file yields an
// empty map and discarded=true so the caller overwrites it.
func (f *File) readForWrite() (data map[string]string, discarded bool, err error) {
	data, err = f.read()
	if errors.Is(err, ErrCorrupt) {
		f.logger.Warn("discarding corrupt store file", "path", f.path, "error", err)
		return make(map[string]string), true, nil
	}
	return data, false, err
}

// write replaces the file atomically via a temp file and rename.
func (f *File) write(data map[string]string) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing %s: %w", f.path, err)
	}
	return nil
}
