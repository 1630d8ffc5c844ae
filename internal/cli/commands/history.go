package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/viewsmith/viewsmith/internal/state"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <component-id>",
		Short: "Show the save history for a component",
		Long: `Print the recorded saves for a component from the state journal:
when each save happened, how it was written (mutation, patch or fresh
generation) and the resulting content hash.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args[0])
		},
	}
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of saves to show")
	return cmd
}

func runHistory(cmd *cobra.Command, id string) error {
	cfg := GetConfig(cmd.Context())
	limit, _ := cmd.Flags().GetInt("limit")

	store := state.NewSQLiteStore()
	if err := store.Open(cfg.StatePath); err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer func() { _ = store.Close() }()
	if err := store.InitSchema(); err != nil {
		return fmt.Errorf("failed to initialize state store: %w", err)
	}

	saves, err := store.History(id, limit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(saves) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No saves recorded for %s\n", id)
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Saved At", "Mode", "Bytes", "Hash"})
	for _, s := range saves {
		t.AppendRow(table.Row{s.CreatedAt.Format("2006-01-02 15:04:05"), s.Mode, s.Bytes, shortHash(s.Hash)})
	}
	t.Render()
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
