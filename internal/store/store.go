// Package store defines the dedup and persistence contracts for decided
// postings. The store is the system of record: every canonical URL ever seen,
// every decision with its verdict trail, and the per-run ledger.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/cjordan223/web-scrape-ai/internal/scrape"
)

// ErrNotFound reports a lookup for a row that does not exist.
var ErrNotFound = errors.New("record not found")

// DecisionRecord is everything persisted for one decided posting.
type DecisionRecord struct {
	CanonicalURL string
	Title        string
	Board        scrape.JobBoard
	Seniority    scrape.Seniority
	Disposition  scrape.Disposition
	Score        int
	Trail        scrape.VerdictTrail
	RunID        string
	DecidedAt    time.Time
}

// Store is the write surface used by the run coordinator. Implementations
// must make Persist atomic: marking the URL seen and writing the disposition
// row either both commit or both roll back.
type Store interface {
	// HasSeen reports whether the canonical URL was observed in any run.
	HasSeen(ctx context.Context, canonicalURL string) (bool, error)
	// MarkSeen upserts the URL into the seen set. The first-seen timestamp
	// is preserved; last-seen is updated.
	MarkSeen(ctx context.Context, canonicalURL string, at time.Time) error
	// Persist writes exactly one record into the table matching the
	// disposition. It fails with an error matching scrape.ErrDuplicateRecord
	// when the canonical URL already carries a decision in any table: the
	// first decision is final.
	Persist(ctx context.Context, rec DecisionRecord) error
	// BeginRun inserts the run-ledger row in running status.
	BeginRun(ctx context.Context, run scrape.ScrapeRun) error
	// FinalizeRun moves the ledger row to its terminal status exactly once.
	FinalizeRun(ctx context.Context, run scrape.ScrapeRun) error
}

// Reader is the read-only surface exposed to the dashboard collaborator.
type Reader interface {
	ListResults(ctx context.Context, limit, offset int) ([]ResultRow, error)
	ListRejected(ctx context.Context, limit, offset int) ([]RejectedRow, error)
	ListQuarantined(ctx context.Context, limit, offset int) ([]QuarantineRow, error)
	ListRuns(ctx context.Context, limit, offset int) ([]scrape.ScrapeRun, error)
	// ActiveRun reports whether a run-ledger row is currently in running
	// status.
	ActiveRun(ctx context.Context) (bool, error)
	Counts(ctx context.Context) (Counts, error)
}

// ResultRow is one accepted posting.
type ResultRow struct {
	ID        int64               `json:"id"`
	URL       string              `json:"url"`
	Title     string              `json:"title"`
	Board     scrape.JobBoard     `json:"board"`
	Seniority scrape.Seniority    `json:"seniority"`
	Score     int                 `json:"score"`
	Trail     scrape.VerdictTrail `json:"verdict_trail"`
	RunID     string              `json:"run_id"`
	CreatedAt time.Time           `json:"created_at"`
}

// RejectedRow is one rejected posting with its blocking stage and reason.
type RejectedRow struct {
	ID        int64               `json:"id"`
	URL       string              `json:"url"`
	Title     string              `json:"title"`
	Board     scrape.JobBoard     `json:"board"`
	Stage     string              `json:"stage"`
	Reason    string              `json:"reason"`
	Trail     scrape.VerdictTrail `json:"verdict_trail"`
	RunID     string              `json:"run_id"`
	CreatedAt time.Time           `json:"created_at"`
}

// QuarantineRow is one posting held for manual review.
type QuarantineRow struct {
	ID        int64               `json:"id"`
	URL       string              `json:"url"`
	Title     string              `json:"title"`
	Board     scrape.JobBoard     `json:"board"`
	Score     int                 `json:"score"`
	Trail     scrape.VerdictTrail `json:"verdict_trail"`
	RunID     string              `json:"run_id"`
	CreatedAt time.Time           `json:"created_at"`
}

// Counts summarizes accumulated store contents.
type Counts struct {
	SeenURLs    int64 `json:"seen_urls"`
	Accepted    int64 `json:"accepted"`
	Rejected    int64 `json:"rejected"`
	Quarantined int64 `json:"quarantined"`
	Runs        int64 `json:"runs"`
}
