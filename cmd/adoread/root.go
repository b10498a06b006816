package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/adoread/internal/api"
	"github.com/jackzampolin/adoread/internal/config"
	"github.com/jackzampolin/adoread/internal/history"
	"github.com/jackzampolin/adoread/internal/home"
	"github.com/jackzampolin/adoread/internal/kv"
	"github.com/jackzampolin/adoread/internal/logging"
	"github.com/jackzampolin/adoread/version"
)

const defaultServerURL = "http://localhost:8080"

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
	serverURL    string
)

var rootCmd = &cobra.Command{
	Use:   "adoread",
	Short: "Document reader with in-context definitions and chat",
	Long: `adoread reads .txt and .docx documents page by page and explains words
in the context they appear in.

  - adoread serve           runs the HTTP API and the browser reader
  - adoread read <file>     opens the terminal reader against a running server
  - adoread api ...         calls any API route from the command line
  - adoread history ...     manages the local word history`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.adoread/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "adoread home directory (default: ~/.adoread)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", string(api.DefaultOutput), "output format: text, yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn, error (default from config)",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	if serverURL != "" {
		return serverURL
	}
	if v := os.Getenv(config.EnvPrefix + "_SERVER_URL"); v != "" {
		return v
	}
	return defaultServerURL
}

// openHome resolves the home directory and creates it when missing.
func openHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}
	return h, nil
}

// loadConfig reads --config, or config.yaml from the working directory or
// the home directory. Missing files fall back to defaults.
func loadConfig(h *home.Dir) (*config.Manager, error) {
	cm, err := config.NewManager(cfgFile, h.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cm, nil
}

// newLogger builds the process logger from config, honoring --log-level.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	return logging.FromConfig(level, cfg.Logging.Format, w)
}

// openHistory opens the configured word history store. The returned
// close function releases the underlying KV store.
func openHistory(h *home.Dir, cfg *config.Config, logger *slog.Logger) (*history.Store, func() error, error) {
	backend := cfg.History.Backend
	path := cfg.History.Path
	if path == "" {
		path = h.HistoryPath(backend)
	}
	store, err := kv.Open(backend, path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history store: %w", err)
	}
	if f, ok := store.(*kv.File); ok {
		f.SetLogger(logger)
	}
	return history.NewStore(store, logger), store.Close, nil
}
