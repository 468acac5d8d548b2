package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cjordan223/web-scrape-ai/internal/clock/system"
	"github.com/cjordan223/web-scrape-ai/internal/filter"
	"github.com/cjordan223/web-scrape-ai/internal/id/uuid"
	"github.com/cjordan223/web-scrape-ai/internal/runner"
	"github.com/cjordan223/web-scrape-ai/internal/scrape"
	"github.com/cjordan223/web-scrape-ai/internal/store/seencache"
	"github.com/cjordan223/web-scrape-ai/internal/urlnorm"
)

// newScrapeCmd creates and configures the 'scrape' subcommand.
func newScrapeCmd() *cobra.Command {
	var (
		inputPath string
		dryRun    bool
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Runs one decision cycle over a batch of candidate postings",
		Long: `Reads a JSON array of candidate postings, canonicalizes and dedupes their
URLs, evaluates each survivor through the filter pipeline, and persists every
decision under a new run-ledger entry.

Exits 0 on success, 2 when some candidates failed, 1 when the run failed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrape(cmd, inputPath, dryRun, force)
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "-", "candidate JSON file, or - for stdin")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "evaluate without writing any state")
	cmd.Flags().BoolVar(&force, "force", false, "start even if the ledger shows a run in progress")

	return cmd
}

func runScrape(cmd *cobra.Command, inputPath string, dryRun, force bool) error {
	ctx := cmd.Context()

	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	candidates, err := loadCandidates(inputPath)
	if err != nil {
		return fmt.Errorf("load candidates: %w", err)
	}

	backing, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	st := runner.Store(backing)
	if cfg.Redis.Enabled {
		cache, err := seencache.Open(ctx, seencache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, backing, logger.Named("seencache"))
		if err != nil {
			logger.Warn("redis unavailable, continuing without seen cache", zap.Error(err))
		} else {
			defer func() {
				if cerr := cache.Close(); cerr != nil {
					logger.Warn("seen cache close failed", zap.Error(cerr))
				}
			}()
			st = cache
		}
	}

	engine, err := filter.NewEngine(cfg.FilterConfig())
	if err != nil {
		return fmt.Errorf("build filter engine: %w", err)
	}

	coord := runner.New(st, urlnorm.DefaultRules(), engine, system.New(), uuid.New(), logger.Named("runner"))

	run, err := coord.RunCycle(ctx, candidates, runner.Options{DryRun: dryRun, Force: force})
	if errors.Is(err, runner.ErrRunInProgress) {
		return fmt.Errorf("%w (use --force to override a stale ledger entry)", err)
	}
	if err != nil && run.ID == "" {
		return err
	}

	printRunSummary(cmd.OutOrStdout(), run, logger)

	switch run.Status {
	case scrape.RunStatusPartial:
		setExit(ctx, exitPartial)
	case scrape.RunStatusFailed:
		setExit(ctx, exitFailed)
	}
	return nil
}

// loadCandidates decodes the discovery batch from a file or stdin.
func loadCandidates(path string) ([]scrape.CandidatePosting, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close() //nolint:errcheck // read-only file
		r = f
	}

	var candidates []scrape.CandidatePosting
	dec := json.NewDecoder(r)
	if err := dec.Decode(&candidates); err != nil {
		return nil, fmt.Errorf("decode candidates: %w", err)
	}

	for i := range candidates {
		if candidates[i].Board == "" {
			candidates[i].Board = scrape.BoardFromURL(candidates[i].URL)
		} else {
			candidates[i].Board = scrape.ParseBoard(string(candidates[i].Board))
		}
	}
	return candidates, nil
}

func printRunSummary(w io.Writer, run scrape.ScrapeRun, logger *zap.Logger) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		logger.Error("write run summary failed", zap.Error(err))
	}
}
