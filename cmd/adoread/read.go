package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/adoread/internal/api"
	"github.com/jackzampolin/adoread/internal/document"
	"github.com/jackzampolin/adoread/internal/logging"
	"github.com/jackzampolin/adoread/internal/lookup"
	"github.com/jackzampolin/adoread/internal/reader"
	"github.com/jackzampolin/adoread/internal/tui"
)

var (
	readPage       int
	readContinuous bool
	readSepia      bool
)

var readCmd = &cobra.Command{
	Use:   "read <file>",
	Short: "Open a .txt or .docx document in the terminal reader",
	Long: `Open a document in the terminal reader.

Rest the mouse on a word for two seconds, or drag across a phrase, to get a
definition in context from the server. Definitions are kept in the local
word history. Logs go to ~/.adoread/logs/read.log.

The reader needs a running server for definitions and chat (adoread serve).

Examples:
  adoread read notes.txt
  adoread read thesis.docx --page 12
  adoread read story.txt --continuous --server http://reader.local:8080`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		h, err := openHome()
		if err != nil {
			return err
		}
		cm, err := loadConfig(h)
		if err != nil {
			return err
		}
		cfg := cm.Get()

		logFile, err := logging.OpenFile(h.LogPath("read"))
		if err != nil {
			return err
		}
		defer logFile.Close()
		logger := newLogger(cfg, logFile)

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		ingester := document.Ingester{
			Paginator: document.Paginator{WordsPerPage: cfg.Defaults.WordsPerPage},
			MaxBytes:  cfg.MaxUploadBytes(),
		}
		doc, err := ingester.Ingest(filepath.Base(args[0]), f)
		f.Close()
		if err != nil {
			return err
		}

		probe := api.NewClient(getServerURL(), api.WithTimeout(2*time.Second))
		var health map[string]any
		if err := probe.Get(ctx, "/health", &health); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: server at %s is not reachable; definitions will fail until it is\n", getServerURL())
			logger.Warn("server not reachable", "server", getServerURL(), "error", err)
		}

		store, closeStore, err := openHistory(h, cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore()

		events := tui.NewEvents()
		ctrl, err := reader.New(ctx, reader.Config{
			Backend:  lookup.New(lookup.Config{ServerURL: getServerURL()}),
			History:  store,
			Logger:   logger,
			OnChange: events.Changed,
		})
		if err != nil {
			return err
		}
		defer ctrl.Close()

		if err := ctrl.LoadDocument(doc); err != nil {
			return fmt.Errorf("%s: %w", doc.Name, err)
		}
		if readContinuous {
			if err := ctrl.SetViewMode(reader.ViewContinuous); err != nil {
				return err
			}
		}
		if readSepia {
			ctrl.ToggleTheme()
		}
		if readPage > 1 {
			if _, err := ctrl.GoToPage(readPage); err != nil {
				return err
			}
		}

		return tui.Run(ctx, tui.Config{
			Controller: ctrl,
			Events:     events,
			Logger:     logger,
		})
	},
}

func init() {
	readCmd.Flags().IntVar(&readPage, "page", 1, "Page to open at")
	readCmd.Flags().BoolVar(&readContinuous, "continuous", false, "Start in continuous view")
	readCmd.Flags().BoolVar(&readSepia, "sepia", false, "Start with the sepia theme")
	readCmd.Flags().StringVar(
		&serverURL, "server", "", "Server URL (default $ADOREAD_SERVER_URL or "+defaultServerURL+")",
	)

	rootCmd.AddCommand(readCmd)
}
