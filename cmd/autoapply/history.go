package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/autoapply/internal/history"
	"github.com/jonathan/autoapply/internal/observability"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded application attempts",
	Long:  "Lists the newest application attempts from the history store named by AUTOAPPLY_HISTORY_DSN or history_dsn in the config file.",
	RunE:  runHistory,
}

var (
	historyLimit int
	historyJSON  bool
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print entries as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.HistoryDSN == "" {
		return fmt.Errorf("no history store configured (set AUTOAPPLY_HISTORY_DSN)")
	}
	if historyLimit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	store, err := history.Open(cmd.Context(), cfg.HistoryDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if historyJSON {
		return writeJSON(cmd.OutOrStdout(), entries)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintHistory(entries)
	return nil
}
