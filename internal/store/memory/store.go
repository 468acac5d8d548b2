// Package memory provides an in-memory store for development and testing.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cjordan223/web-scrape-ai/internal/scrape"
	"github.com/cjordan223/web-scrape-ai/internal/store"
)

type seenEntry struct {
	firstSeen time.Time
	lastSeen  time.Time
}

// Store implements store.Store and store.Reader with in-process maps. It is
// safe for one writer concurrent with many readers.
type Store struct {
	mu          sync.RWMutex
	seen        map[string]seenEntry
	decided     map[string]scrape.Disposition
	results     []store.ResultRow
	rejected    []store.RejectedRow
	quarantined []store.QuarantineRow
	runs        map[string]scrape.ScrapeRun
	runOrder    []string
	nextID      int64
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		seen:    make(map[string]seenEntry),
		decided: make(map[string]scrape.Disposition),
		runs:    make(map[string]scrape.ScrapeRun),
	}
}

// HasSeen reports membership in the seen set.
func (s *Store) HasSeen(_ context.Context, canonicalURL string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[canonicalURL]
	return ok, nil
}

// MarkSeen upserts the seen entry, preserving the first-seen timestamp.
func (s *Store) MarkSeen(_ context.Context, canonicalURL string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markSeenLocked(canonicalURL, at)
	return nil
}

func (s *Store) markSeenLocked(canonicalURL string, at time.Time) {
	entry, ok := s.seen[canonicalURL]
	if !ok {
		s.seen[canonicalURL] = seenEntry{firstSeen: at, lastSeen: at}
		return
	}
	entry.lastSeen = at
	s.seen[canonicalURL] = entry
}

// Persist records the decision atomically under the write lock.
func (s *Store) Persist(_ context.Context, rec store.DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.decided[rec.CanonicalURL]; dup {
		return fmt.Errorf("%w: %s", scrape.ErrDuplicateRecord, rec.CanonicalURL)
	}

	s.nextID++
	switch rec.Disposition {
	case scrape.DispositionAccepted:
		s.results = append(s.results, store.ResultRow{
			ID: s.nextID, URL: rec.CanonicalURL, Title: rec.Title, Board: rec.Board,
			Seniority: rec.Seniority, Score: rec.Score, Trail: rec.Trail,
			RunID: rec.RunID, CreatedAt: rec.DecidedAt,
		})
	case scrape.DispositionRejected:
		final := rec.Trail.Final()
		s.rejected = append(s.rejected, store.RejectedRow{
			ID: s.nextID, URL: rec.CanonicalURL, Title: rec.Title, Board: rec.Board,
			Stage: final.Stage, Reason: final.Reason, Trail: rec.Trail,
			RunID: rec.RunID, CreatedAt: rec.DecidedAt,
		})
	case scrape.DispositionQuarantined:
		s.quarantined = append(s.quarantined, store.QuarantineRow{
			ID: s.nextID, URL: rec.CanonicalURL, Title: rec.Title, Board: rec.Board,
			Score: rec.Score, Trail: rec.Trail,
			RunID: rec.RunID, CreatedAt: rec.DecidedAt,
		})
	default:
		return fmt.Errorf("unknown disposition %q", rec.Disposition)
	}

	s.decided[rec.CanonicalURL] = rec.Disposition
	s.markSeenLocked(rec.CanonicalURL, rec.DecidedAt)
	return nil
}

// BeginRun inserts the ledger entry in running status.
func (s *Store) BeginRun(_ context.Context, run scrape.ScrapeRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("run %s already exists", run.ID)
	}
	run.Status = scrape.RunStatusRunning
	s.runs[run.ID] = run
	s.runOrder = append(s.runOrder, run.ID)
	return nil
}

// FinalizeRun moves the ledger entry to its terminal status exactly once.
func (s *Store) FinalizeRun(_ context.Context, run scrape.ScrapeRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.runs[run.ID]
	if !ok || existing.Status != scrape.RunStatusRunning {
		return fmt.Errorf("finalize run %s: %w", run.ID, store.ErrNotFound)
	}
	s.runs[run.ID] = run
	return nil
}

// ActiveRun reports whether any ledger entry is running.
func (s *Store) ActiveRun(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, run := range s.runs {
		if run.Status == scrape.RunStatusRunning {
			return true, nil
		}
	}
	return false, nil
}

// ListResults returns accepted postings, newest first.
func (s *Store) ListResults(_ context.Context, limit, offset int) ([]store.ResultRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]store.ResultRow, len(s.results))
	copy(rows, s.results)
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return page(rows, limit, offset), nil
}

// ListRejected returns rejected postings, newest first.
func (s *Store) ListRejected(_ context.Context, limit, offset int) ([]store.RejectedRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]store.RejectedRow, len(s.rejected))
	copy(rows, s.rejected)
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return page(rows, limit, offset), nil
}

// ListQuarantined returns held postings, newest first.
func (s *Store) ListQuarantined(_ context.Context, limit, offset int) ([]store.QuarantineRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]store.QuarantineRow, len(s.quarantined))
	copy(rows, s.quarantined)
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return page(rows, limit, offset), nil
}

// ListRuns returns ledger entries, newest first.
func (s *Store) ListRuns(_ context.Context, limit, offset int) ([]scrape.ScrapeRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	runs := make([]scrape.ScrapeRun, 0, len(s.runOrder))
	for i := len(s.runOrder) - 1; i >= 0; i-- {
		runs = append(runs, s.runs[s.runOrder[i]])
	}
	return page(runs, limit, offset), nil
}

// Counts returns accumulated totals.
func (s *Store) Counts(_ context.Context) (store.Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return store.Counts{
		SeenURLs:    int64(len(s.seen)),
		Accepted:    int64(len(s.results)),
		Rejected:    int64(len(s.rejected)),
		Quarantined: int64(len(s.quarantined)),
		Runs:        int64(len(s.runs)),
	}, nil
}

func page[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
