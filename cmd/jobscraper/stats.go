package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cjordan223/web-scrape-ai/internal/scrape"
	"github.com/cjordan223/web-scrape-ai/internal/store"
)

// newStatsCmd creates and configures the 'stats' subcommand.
func newStatsCmd() *cobra.Command {
	var recent int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Prints accumulated totals and recent runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd, recent)
		},
	}

	cmd.Flags().IntVar(&recent, "recent", 5, "number of recent runs to include")

	return cmd
}

type statsOutput struct {
	Counts     store.Counts       `json:"counts"`
	ActiveRun  bool               `json:"active_run"`
	RecentRuns []scrape.ScrapeRun `json:"recent_runs"`
}

func runStats(cmd *cobra.Command, recent int) error {
	ctx := cmd.Context()

	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	reader, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	counts, err := reader.Counts(ctx)
	if err != nil {
		return fmt.Errorf("fetch counts: %w", err)
	}
	active, err := reader.ActiveRun(ctx)
	if err != nil {
		return fmt.Errorf("check active run: %w", err)
	}
	runs, err := reader.ListRuns(ctx, recent, 0)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(statsOutput{Counts: counts, ActiveRun: active, RecentRuns: runs}); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	return nil
}
