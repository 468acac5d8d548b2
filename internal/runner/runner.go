// Package runner coordinates a full decision cycle: canonicalize each
// candidate URL, skip already-seen postings, evaluate the rest, and persist
// every decision under a run-ledger entry.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cjordan223/web-scrape-ai/internal/filter"
	"github.com/cjordan223/web-scrape-ai/internal/metrics"
	"github.com/cjordan223/web-scrape-ai/internal/scrape"
	"github.com/cjordan223/web-scrape-ai/internal/store"
	"github.com/cjordan223/web-scrape-ai/internal/urlnorm"
)

// ErrRunInProgress reports that another run holds the ledger.
var ErrRunInProgress = errors.New("a run is already in progress")

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints run identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Store is the persistence surface the coordinator needs.
type Store interface {
	store.Store
	ActiveRun(ctx context.Context) (bool, error)
}

// Options tunes a single cycle.
type Options struct {
	// DryRun evaluates every candidate but writes nothing: no seen marks,
	// no decision rows, no ledger entry.
	DryRun bool
	// Force starts the run even when the ledger shows one in progress and
	// re-evaluates URLs already marked seen, recovering from a crashed run
	// that never finalized. Persistence still refuses a second decision for
	// the same canonical URL.
	Force bool
}

// Coordinator drives one candidate batch through the pipeline.
type Coordinator struct {
	store  Store
	rules  *urlnorm.Rules
	engine *filter.Engine
	clock  Clock
	ids    IDGenerator
	logger *zap.Logger
}

// New creates a Coordinator.
func New(st Store, rules *urlnorm.Rules, engine *filter.Engine, clk Clock, ids IDGenerator, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		store:  st,
		rules:  rules,
		engine: engine,
		clock:  clk,
		ids:    ids,
		logger: logger,
	}
}

// RunCycle processes the batch and returns the finalized ledger entry.
// Per-candidate failures are collected into the entry rather than aborting
// the cycle; only setup failures and context cancellation return an error.
func (c *Coordinator) RunCycle(ctx context.Context, candidates []scrape.CandidatePosting, opts Options) (scrape.ScrapeRun, error) {
	if !opts.DryRun {
		active, err := c.store.ActiveRun(ctx)
		if err != nil {
			return scrape.ScrapeRun{}, fmt.Errorf("check active run: %w", err)
		}
		if active && !opts.Force {
			return scrape.ScrapeRun{}, ErrRunInProgress
		}
		if active && opts.Force {
			c.logger.Warn("forcing run while ledger shows one in progress")
		}
	}

	runID, err := c.ids.NewID()
	if err != nil {
		return scrape.ScrapeRun{}, fmt.Errorf("mint run id: %w", err)
	}

	run := scrape.ScrapeRun{
		ID:        runID,
		StartedAt: c.clock.Now(),
		RawCount:  len(candidates),
		Status:    scrape.RunStatusRunning,
	}
	if !opts.DryRun {
		if err := c.store.BeginRun(ctx, run); err != nil {
			return scrape.ScrapeRun{}, fmt.Errorf("begin run: %w", err)
		}
	}
	c.logger.Info("run started",
		zap.String("run_id", run.ID),
		zap.Int("candidates", len(candidates)),
		zap.Bool("dry_run", opts.DryRun))

	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			run.ErrorCount++
			run.Errors = append(run.Errors, fmt.Sprintf("run aborted: %v", err))
			return c.finish(ctx, run, opts, err)
		}
		c.processCandidate(ctx, &run, cand, opts)
	}

	return c.finish(ctx, run, opts, nil)
}

func (c *Coordinator) processCandidate(ctx context.Context, run *scrape.ScrapeRun, cand scrape.CandidatePosting, opts Options) {
	canonical, err := c.rules.Canonicalize(cand.URL)
	if err != nil {
		c.recordMalformed(ctx, run, cand, err, opts)
		return
	}

	seen, err := c.store.HasSeen(ctx, canonical)
	if err != nil {
		run.ErrorCount++
		run.Errors = append(run.Errors, fmt.Sprintf("%s: seen lookup: %v", canonical, err))
		return
	}
	if seen && !opts.Force {
		run.DedupCount++
		metrics.ObserveDedupSkip()
		c.logger.Debug("skipping seen url", zap.String("url", canonical))
		return
	}

	cand.URL = canonical
	eval := c.engine.Evaluate(cand)

	if !opts.DryRun {
		err := c.store.Persist(ctx, store.DecisionRecord{
			CanonicalURL: canonical,
			Title:        cand.Title,
			Board:        cand.Board,
			Seniority:    eval.Seniority,
			Disposition:  eval.Disposition,
			Score:        eval.Score,
			Trail:        eval.Trail,
			RunID:        run.ID,
			DecidedAt:    c.clock.Now(),
		})
		if errors.Is(err, scrape.ErrDuplicateRecord) {
			// Lost a race with a concurrent writer; the first decision stands.
			run.DedupCount++
			metrics.ObserveDedupSkip()
			return
		}
		if err != nil {
			run.ErrorCount++
			run.Errors = append(run.Errors, fmt.Sprintf("%s: persist: %v", canonical, err))
			return
		}
	}

	c.countDisposition(run, eval)
}

// recordMalformed persists a rejection for a URL that cannot be
// canonicalized, so the raw string is never re-offered on the next run.
func (c *Coordinator) recordMalformed(ctx context.Context, run *scrape.ScrapeRun, cand scrape.CandidatePosting, cause error, opts Options) {
	metrics.ObserveMalformedURL()
	c.logger.Warn("malformed candidate url", zap.String("url", cand.URL), zap.Error(cause))

	trail := scrape.VerdictTrail{{
		Stage:   filter.StageURLDomain,
		Outcome: scrape.OutcomeHardBlock,
		Reason:  fmt.Sprintf("malformed url: %v", cause),
	}}

	if !opts.DryRun {
		err := c.store.Persist(ctx, store.DecisionRecord{
			CanonicalURL: cand.URL,
			Title:        cand.Title,
			Board:        cand.Board,
			Seniority:    scrape.SeniorityUnknown,
			Disposition:  scrape.DispositionRejected,
			Trail:        trail,
			RunID:        run.ID,
			DecidedAt:    c.clock.Now(),
		})
		if errors.Is(err, scrape.ErrDuplicateRecord) {
			run.DedupCount++
			metrics.ObserveDedupSkip()
			return
		}
		if err != nil {
			run.ErrorCount++
			run.Errors = append(run.Errors, fmt.Sprintf("%s: persist: %v", cand.URL, err))
			return
		}
	}

	run.RejectedCount++
	metrics.ObservePosting(string(scrape.DispositionRejected))
	metrics.ObserveStageBlock(filter.StageURLDomain)
}

func (c *Coordinator) countDisposition(run *scrape.ScrapeRun, eval scrape.Evaluation) {
	switch eval.Disposition {
	case scrape.DispositionAccepted:
		run.AcceptedCount++
	case scrape.DispositionRejected:
		run.RejectedCount++
		if final := eval.Trail.Final(); final.Outcome == scrape.OutcomeHardBlock {
			metrics.ObserveStageBlock(final.Stage)
		}
	case scrape.DispositionQuarantined:
		run.QuarantinedCount++
	}
	metrics.ObservePosting(string(eval.Disposition))
}

func (c *Coordinator) finish(ctx context.Context, run scrape.ScrapeRun, opts Options, cause error) (scrape.ScrapeRun, error) {
	run.CompletedAt = c.clock.Now()
	run.Elapsed = run.CompletedAt.Sub(run.StartedAt)
	run.Status = terminalStatus(run, cause)

	if !opts.DryRun {
		// Finalize with a fresh context so a canceled run still closes its
		// ledger entry.
		finalizeCtx := ctx
		if ctx.Err() != nil {
			var cancel context.CancelFunc
			finalizeCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
		}
		if err := c.store.FinalizeRun(finalizeCtx, run); err != nil {
			return run, fmt.Errorf("finalize run: %w", err)
		}
	}

	metrics.ObserveRun(string(run.Status), run.Elapsed)
	c.logger.Info("run finished",
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int("raw", run.RawCount),
		zap.Int("dedup", run.DedupCount),
		zap.Int("accepted", run.AcceptedCount),
		zap.Int("rejected", run.RejectedCount),
		zap.Int("quarantined", run.QuarantinedCount),
		zap.Int("errors", run.ErrorCount),
		zap.Duration("elapsed", run.Elapsed))

	if cause != nil {
		return run, fmt.Errorf("run aborted: %w", cause)
	}
	return run, nil
}

func terminalStatus(run scrape.ScrapeRun, cause error) scrape.RunStatus {
	decided := run.AcceptedCount + run.RejectedCount + run.QuarantinedCount
	switch {
	case cause != nil:
		return scrape.RunStatusFailed
	case run.ErrorCount == 0:
		return scrape.RunStatusSuccess
	case decided > 0 || run.DedupCount > 0:
		return scrape.RunStatusPartial
	default:
		return scrape.RunStatusFailed
	}
}
