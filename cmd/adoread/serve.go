package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/adoread/internal/server"
	"github.com/jackzampolin/adoread/version"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the adoread server",
	Long: `Start the adoread HTTP server.

The server provides:
  - /api/define, /api/chat, /api/feed   - LLM-backed reading assistance
  - /api/documents, /api/paginate       - document extraction and pagination
  - /health, /ready, /status            - health checks
  - /metrics, /swagger                  - Prometheus metrics and API docs
  - /                                   - the browser reader

Configuration is reloaded when the config file changes.

Examples:
  adoread serve                    # Start on the configured port (default 8080)
  adoread serve --port 3000        # Start on custom port
  adoread serve --host 0.0.0.0     # Bind to all interfaces`,
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
		logger := newLogger(cm.Get(), os.Stderr)
		cm.SetLogger(logger)
		if file := cm.File(); file != "" {
			logger.Info("using config file", "path", file)
			cm.WatchConfig()
		}

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: cm,
			Home:          h,
			Version:       version.GitRelease,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config: 127.0.0.1)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default from config: 8080)")

	rootCmd.AddCommand(serveCmd)
}
