package main

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/adoread/internal/api"
	"github.com/jackzampolin/adoread/internal/server/endpoints"
)

func init() {
	registry := endpoints.NewRegistry(endpoints.Config{})
	registry.AddCommand(newWaitCmd())

	apiCmd := registry.BuildCommands(getServerURL)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "", "Server URL (default $ADOREAD_SERVER_URL or "+defaultServerURL+")",
	)
	rootCmd.AddCommand(apiCmd)
}

// WaitResult is printed once the server answers.
type WaitResult struct {
	Server string `json:"server"`
	Status string `json:"status"`
	Waited string `json:"waited"`
}

func newWaitCmd() *cobra.Command {
	var (
		timeout time.Duration
		ready   bool
	)
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait until the server is up",
		Long: `Poll the server until /health answers, or /ready with --ready.
Useful in scripts that start "adoread serve" in the background.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			path := "/health"
			if ready {
				path = "/ready"
			}
			client := api.NewClient(getServerURL(), api.WithTimeout(2*time.Second))
			start := time.Now()

			var resp endpoints.HealthResponse
			err := retry.Do(
				func() error {
					return client.Get(ctx, path, &resp)
				},
				retry.Context(ctx),
				retry.Attempts(0),
				retry.Delay(250*time.Millisecond),
				retry.MaxDelay(2*time.Second),
				retry.LastErrorOnly(true),
			)
			if err != nil {
				return fmt.Errorf("server at %s not available after %s: %w", getServerURL(), timeout, err)
			}
			return api.Output(WaitResult{
				Server: getServerURL(),
				Status: resp.Status,
				Waited: time.Since(start).Round(time.Millisecond).String(),
			})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "How long to keep trying")
	cmd.Flags().BoolVar(&ready, "ready", false, "Wait for /ready instead of /health")
	return cmd
}
