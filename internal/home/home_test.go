package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-adoread")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-adoread" {
			t.Errorf("expected path /tmp/test-adoread, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-adoread")

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"ConfigPath", dir.ConfigPath(), "/tmp/test-adoread/config.yaml"},
		{"DatabasePath", dir.DatabasePath(), "/tmp/test-adoread/adoread.db"},
		{"HistoryPath sqlite", dir.HistoryPath("sqlite"), "/tmp/test-adoread/adoread.db"},
		{"HistoryPath default", dir.HistoryPath(""), "/tmp/test-adoread/adoread.db"},
		{"HistoryPath file", dir.HistoryPath("file"), "/tmp/test-adoread/history.json"},
		{"LogsDir", dir.LogsDir(), "/tmp/test-adoread/logs"},
		{"LogPath", dir.LogPath("read"), "/tmp/test-adoread/logs/read.log"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, tt.got)
			}
		})
	}
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	dir, _ := New(filepath.Join(tmpDir, "adoread-home"))

	if dir.Exists() {
		t.Error("expected directory to not exist initially")
	}

	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("failed to ensure exists: %v", err)
	}

	if !dir.Exists() {
		t.Error("expected directory to exist after EnsureExists")
	}
	if _, err := os.Stat(dir.LogsDir()); os.IsNotExist(err) {
		t.Error("expected logs directory to exist")
	}

	// Idempotent
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("second EnsureExists failed: %v", err)
	}
}

func TestDir_ConfigExists(t *testing.T) {
	dir, _ := New(t.TempDir())

	if dir.ConfigExists() {
		t.Error("expected config to not exist initially")
	}

	if err := os.WriteFile(dir.ConfigPath(), []byte("test: true"), 0o644); err != nil {
		t.Fatalf("failed to create config: %v", err)
	}

	if !dir.ConfigExists() {
		t.Error("expected config to exist after creation")
	}
}
