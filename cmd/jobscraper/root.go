package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cjordan223/web-scrape-ai/internal/config"
	"github.com/cjordan223/web-scrape-ai/internal/logging"
	"github.com/cjordan223/web-scrape-ai/internal/metrics"
	"github.com/cjordan223/web-scrape-ai/internal/runner"
	"github.com/cjordan223/web-scrape-ai/internal/store"
	"github.com/cjordan223/web-scrape-ai/internal/store/memory"
	"github.com/cjordan223/web-scrape-ai/internal/store/postgres"
)

var cfgFile string

// Exit codes for the scrape command. Partial gets its own code so cron
// wrappers can distinguish "some candidates failed" from a dead run.
const (
	exitOK      = 0
	exitFailed  = 1
	exitPartial = 2
)

// backingStore is the full persistence surface: everything the coordinator
// writes plus everything the read API serves.
type backingStore interface {
	runner.Store
	store.Reader
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobscraper",
		Short: "Decides and persists job postings discovered by search collaborators.",
		Long: `jobscraper is the decision and persistence core of the job-search pipeline.
It canonicalizes candidate URLs, skips postings seen in earlier runs, scores
the rest through an ordered filter pipeline, and records every decision with
its full verdict trail.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is env-only configuration)")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatsCmd())

	return cmd
}

// execute runs the CLI and returns the process exit code.
func execute() int {
	metrics.Init()
	code := exitOK
	root := newRootCmd()
	root.SetContext(contextWithExit(&code))
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailed
	}
	return code
}

type exitCodeKey struct{}

func contextWithExit(code *int) context.Context {
	return context.WithValue(context.Background(), exitCodeKey{}, code)
}

// setExit records a non-zero exit code without aborting cleanup paths.
func setExit(ctx context.Context, code int) {
	if p, ok := ctx.Value(exitCodeKey{}).(*int); ok && p != nil {
		*p = code
	}
}

// bootstrap loads config and builds the logger every subcommand needs.
func bootstrap() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// openStore selects Postgres when a DSN is configured and falls back to the
// in-memory store otherwise. The returned closer is safe to call once.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (backingStore, func(), error) {
	if cfg.DB.DSN == "" {
		logger.Warn("db.dsn not set, using in-memory store; nothing will survive this process")
		return memory.New(), func() {}, nil
	}
	pg, err := postgres.Open(ctx, postgres.Config{DSN: cfg.DB.DSN, MaxConns: cfg.DB.MaxConns})
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres store: %w", err)
	}
	return pg, pg.Close, nil
}

func syncLogger(logger *zap.Logger) {
	if err := logger.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", err)
	}
}
