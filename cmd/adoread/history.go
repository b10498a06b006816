package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/adoread/internal/api"
	"github.com/jackzampolin/adoread/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the local word history",
	Long: `The word history holds the newest 50 words and phrases you looked up,
with their definitions and any chat about them. It is shared by every
"adoread read" session on this machine.`,
}

// HistoryItem is one history entry as printed by "history list".
type HistoryItem struct {
	ID         string `json:"id"`
	Word       string `json:"word"`
	Definition string `json:"definition"`
	LookedUp   string `json:"lookedUp"`
	Hover      bool   `json:"hover"`
	ChatTurns  int    `json:"chatTurns"`
}

// withHistory opens the configured history store for the duration of fn.
func withHistory(fn func(store *history.Store) error) error {
	h, err := openHome()
	if err != nil {
		return err
	}
	cm, err := loadConfig(h)
	if err != nil {
		return err
	}
	cfg := cm.Get()
	store, closeStore, err := openHistory(h, cfg, newLogger(cfg, io.Discard))
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(store)
}

func newHistoryListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List looked-up words, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(func(store *history.Store) error {
				entries := store.Load(cmd.Context())
				if limit > 0 && len(entries) > limit {
					entries = entries[:limit]
				}
				items := make([]HistoryItem, 0, len(entries))
				for _, e := range entries {
					items = append(items, HistoryItem{
						ID:         e.ID,
						Word:       e.Word,
						Definition: e.Definition,
						LookedUp:   time.UnixMilli(e.Timestamp).Format(time.RFC3339),
						Hover:      e.IsHoverMode,
						ChatTurns:  len(e.ChatMessages),
					})
				}
				return api.Output(items)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many entries")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <word>",
		Short: "Show one entry with its chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(func(store *history.Store) error {
				e, ok := history.Find(store.Load(cmd.Context()), args[0])
				if !ok {
					return fmt.Errorf("%q is not in the history", args[0])
				}
				return api.Output(e)
			})
		},
	}
}

func newHistoryRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id|word>",
		Short: "Remove one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(func(store *history.Store) error {
				ctx := cmd.Context()
				list := store.Load(ctx)
				id := args[0]
				if e, ok := history.Find(list, args[0]); ok {
					id = e.ID
				}
				next := history.Remove(list, id)
				if len(next) == len(list) {
					return fmt.Errorf("%q is not in the history", args[0])
				}
				if err := store.Save(ctx, next); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}
}

func newHistoryClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(func(store *history.Store) error {
				if _, err := store.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
				return nil
			})
		},
	}
}

func init() {
	historyCmd.AddCommand(newHistoryListCmd())
	historyCmd.AddCommand(newHistoryShowCmd())
	historyCmd.AddCommand(newHistoryRemoveCmd())
	historyCmd.AddCommand(newHistoryClearCmd())

	rootCmd.AddCommand(historyCmd)
}
