// Package home locates the adoread home directory and the files kept in it.
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the adoread home directory.
	DefaultDirName = ".adoread"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// DatabaseFileName holds the SQLite word history and LLM call ledger.
	DatabaseFileName = "adoread.db"

	// HistoryFileName is the word history when the file backend is used.
	HistoryFileName = "history.json"

	// LogsDirName is the subdirectory for log files.
	LogsDirName = "logs"
)

// Dir represents the adoread home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.adoread).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// DatabasePath returns the path to the SQLite database.
func (d *Dir) DatabasePath() string {
	return filepath.Join(d.path, DatabaseFileName)
}

// HistoryPath returns the path of the word history for backend, which is
// "file" or "sqlite" (the default).
func (d *Dir) HistoryPath(backend string) string {
	if backend == "file" {
		return filepath.Join(d.path, HistoryFileName)
	}
	return d.DatabasePath()
}

// LogsDir returns the directory for log files.
func (d *Dir) LogsDir() string {
	return filepath.Join(d.path, LogsDirName)
}

// LogPath returns the path of the named log file.
func (d *Dir) LogPath(name string) string {
	return filepath.Join(d.LogsDir(), name+".log")
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	// Creating the logs directory also creates the parent
	if err := os.MkdirAll(d.LogsDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create home directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
