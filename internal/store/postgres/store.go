// Package postgres provides the Postgres-backed system of record.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cjordan223/web-scrape-ai/internal/scrape"
	"github.com/cjordan223/web-scrape-ai/internal/store"
)

// schema is applied on Open. Each decided table carries a unique url
// constraint; cross-table uniqueness is enforced inside the Persist
// transaction.
const schema = `
CREATE TABLE IF NOT EXISTS seen_urls (
	url        TEXT PRIMARY KEY,
	first_seen TIMESTAMPTZ NOT NULL,
	last_seen  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
	id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	url           TEXT NOT NULL UNIQUE,
	title         TEXT NOT NULL,
	board         TEXT NOT NULL,
	seniority     TEXT NOT NULL,
	score         INT NOT NULL,
	verdict_trail JSONB NOT NULL,
	run_id        TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_run_id ON results(run_id);
CREATE INDEX IF NOT EXISTS idx_results_created_at ON results(created_at);

CREATE TABLE IF NOT EXISTS rejected (
	id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	url           TEXT NOT NULL UNIQUE,
	title         TEXT NOT NULL,
	board         TEXT NOT NULL,
	stage         TEXT NOT NULL,
	reason        TEXT NOT NULL,
	verdict_trail JSONB NOT NULL,
	run_id        TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rejected_run_id ON rejected(run_id);
CREATE INDEX IF NOT EXISTS idx_rejected_stage ON rejected(stage);

CREATE TABLE IF NOT EXISTS quarantine (
	id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	url           TEXT NOT NULL UNIQUE,
	title         TEXT NOT NULL,
	board         TEXT NOT NULL,
	score         INT NOT NULL,
	verdict_trail JSONB NOT NULL,
	run_id        TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	run_id            TEXT PRIMARY KEY,
	started_at        TIMESTAMPTZ NOT NULL,
	completed_at      TIMESTAMPTZ,
	elapsed_ms        BIGINT,
	raw_count         INT NOT NULL DEFAULT 0,
	dedup_count       INT NOT NULL DEFAULT 0,
	accepted_count    INT NOT NULL DEFAULT 0,
	rejected_count    INT NOT NULL DEFAULT 0,
	quarantined_count INT NOT NULL DEFAULT 0,
	error_count       INT NOT NULL DEFAULT 0,
	errors            JSONB,
	status            TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// DB abstracts the pgx pool so tests can substitute pgxmock.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Store implements store.Store and store.Reader on Postgres.
type Store struct {
	db DB
}

// Config controls the Postgres connection pool.
type Config struct {
	DSN      string
	MaxConns int32
}

// Open connects to Postgres and applies the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Store{db: pool}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return s, nil
}

// NewWithDB constructs a Store from an existing pool, primarily for testing.
func NewWithDB(db DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &Store{db: db}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s == nil || s.db == nil {
		return
	}
	s.db.Close()
}

// HasSeen reports membership in the historical seen set.
func (s *Store) HasSeen(ctx context.Context, canonicalURL string) (bool, error) {
	var seen bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM seen_urls WHERE url = $1)`, canonicalURL,
	).Scan(&seen)
	if err != nil {
		return false, fmt.Errorf("query seen_urls: %w", err)
	}
	return seen, nil
}

const markSeenSQL = `
INSERT INTO seen_urls (url, first_seen, last_seen)
VALUES ($1, $2, $2)
ON CONFLICT (url) DO UPDATE SET last_seen = EXCLUDED.last_seen`

// MarkSeen upserts the seen row, preserving first_seen.
func (s *Store) MarkSeen(ctx context.Context, canonicalURL string, at time.Time) error {
	if _, err := s.db.Exec(ctx, markSeenSQL, canonicalURL, at); err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

const decidedSQL = `
SELECT EXISTS (SELECT 1 FROM results WHERE url = $1)
    OR EXISTS (SELECT 1 FROM rejected WHERE url = $1)
    OR EXISTS (SELECT 1 FROM quarantine WHERE url = $1)`

// Persist writes the seen upsert and the disposition row in one transaction.
// A canonical URL that already carries a decision in any table fails with
// scrape.ErrDuplicateRecord; of two concurrent writers for the same URL only
// one commits.
func (s *Store) Persist(ctx context.Context, rec store.DecisionRecord) error {
	trailJSON, err := json.Marshal(rec.Trail)
	if err != nil {
		return fmt.Errorf("marshal verdict trail: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin persist tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var decided bool
	if err := tx.QueryRow(ctx, decidedSQL, rec.CanonicalURL).Scan(&decided); err != nil {
		return fmt.Errorf("check decided: %w", err)
	}
	if decided {
		return fmt.Errorf("%w: %s", scrape.ErrDuplicateRecord, rec.CanonicalURL)
	}

	if _, err := tx.Exec(ctx, markSeenSQL, rec.CanonicalURL, rec.DecidedAt); err != nil {
		return fmt.Errorf("mark seen in tx: %w", err)
	}

	if err := insertDecision(ctx, tx, rec, trailJSON); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", scrape.ErrDuplicateRecord, rec.CanonicalURL)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit persist tx: %w", err)
	}
	return nil
}

func insertDecision(ctx context.Context, tx pgx.Tx, rec store.DecisionRecord, trailJSON []byte) error {
	switch rec.Disposition {
	case scrape.DispositionAccepted:
		_, err := tx.Exec(ctx, `
INSERT INTO results (url, title, board, seniority, score, verdict_trail, run_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			rec.CanonicalURL, rec.Title, rec.Board, rec.Seniority,
			rec.Score, trailJSON, rec.RunID, rec.DecidedAt)
		if err != nil {
			return fmt.Errorf("insert result: %w", err)
		}
	case scrape.DispositionRejected:
		final := rec.Trail.Final()
		_, err := tx.Exec(ctx, `
INSERT INTO rejected (url, title, board, stage, reason, verdict_trail, run_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			rec.CanonicalURL, rec.Title, rec.Board, final.Stage, final.Reason,
			trailJSON, rec.RunID, rec.DecidedAt)
		if err != nil {
			return fmt.Errorf("insert rejected: %w", err)
		}
	case scrape.DispositionQuarantined:
		_, err := tx.Exec(ctx, `
INSERT INTO quarantine (url, title, board, score, verdict_trail, run_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.CanonicalURL, rec.Title, rec.Board, rec.Score,
			trailJSON, rec.RunID, rec.DecidedAt)
		if err != nil {
			return fmt.Errorf("insert quarantine: %w", err)
		}
	default:
		return fmt.Errorf("unknown disposition %q", rec.Disposition)
	}
	return nil
}

// BeginRun inserts the ledger row in running status.
func (s *Store) BeginRun(ctx context.Context, run scrape.ScrapeRun) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO runs (run_id, started_at, status)
VALUES ($1, $2, $3)`,
		run.ID, run.StartedAt, scrape.RunStatusRunning)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// FinalizeRun moves the ledger row from running to its terminal status.
// Finalizing twice is an error: the row is immutable once finalized.
func (s *Store) FinalizeRun(ctx context.Context, run scrape.ScrapeRun) error {
	errorsJSON, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("marshal run errors: %w", err)
	}
	tag, err := s.db.Exec(ctx, `
UPDATE runs
SET completed_at = $1, elapsed_ms = $2, raw_count = $3, dedup_count = $4,
    accepted_count = $5, rejected_count = $6, quarantined_count = $7,
    error_count = $8, errors = $9, status = $10
WHERE run_id = $11 AND status = $12`,
		run.CompletedAt, run.Elapsed.Milliseconds(), run.RawCount, run.DedupCount,
		run.AcceptedCount, run.RejectedCount, run.QuarantinedCount,
		run.ErrorCount, errorsJSON, run.Status, run.ID, scrape.RunStatusRunning)
	if err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finalize run %s: %w", run.ID, store.ErrNotFound)
	}
	return nil
}

// ActiveRun reports whether any ledger row is in running status.
func (s *Store) ActiveRun(ctx context.Context) (bool, error) {
	var active bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM runs WHERE status = $1)`, scrape.RunStatusRunning,
	).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("query active run: %w", err)
	}
	return active, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
