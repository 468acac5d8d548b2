package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cjordan223/web-scrape-ai/internal/scrape"
	"github.com/cjordan223/web-scrape-ai/internal/store"
)

// ListResults returns accepted postings, newest first.
func (s *Store) ListResults(ctx context.Context, limit, offset int) ([]store.ResultRow, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, url, title, board, seniority, score, verdict_trail, run_id, created_at
FROM results
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []store.ResultRow
	for rows.Next() {
		var r store.ResultRow
		var trailJSON []byte
		if err := rows.Scan(&r.ID, &r.URL, &r.Title, &r.Board, &r.Seniority,
			&r.Score, &trailJSON, &r.RunID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		if err := json.Unmarshal(trailJSON, &r.Trail); err != nil {
			return nil, fmt.Errorf("decode verdict trail: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

// ListRejected returns rejected postings, newest first.
func (s *Store) ListRejected(ctx context.Context, limit, offset int) ([]store.RejectedRow, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, url, title, board, stage, reason, verdict_trail, run_id, created_at
FROM rejected
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list rejected: %w", err)
	}
	defer rows.Close()

	var out []store.RejectedRow
	for rows.Next() {
		var r store.RejectedRow
		var trailJSON []byte
		if err := rows.Scan(&r.ID, &r.URL, &r.Title, &r.Board, &r.Stage,
			&r.Reason, &trailJSON, &r.RunID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan rejected row: %w", err)
		}
		if err := json.Unmarshal(trailJSON, &r.Trail); err != nil {
			return nil, fmt.Errorf("decode verdict trail: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rejected: %w", err)
	}
	return out, nil
}

// ListQuarantined returns postings held for review, newest first.
func (s *Store) ListQuarantined(ctx context.Context, limit, offset int) ([]store.QuarantineRow, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, url, title, board, score, verdict_trail, run_id, created_at
FROM quarantine
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list quarantine: %w", err)
	}
	defer rows.Close()

	var out []store.QuarantineRow
	for rows.Next() {
		var r store.QuarantineRow
		var trailJSON []byte
		if err := rows.Scan(&r.ID, &r.URL, &r.Title, &r.Board, &r.Score,
			&trailJSON, &r.RunID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan quarantine row: %w", err)
		}
		if err := json.Unmarshal(trailJSON, &r.Trail); err != nil {
			return nil, fmt.Errorf("decode verdict trail: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quarantine: %w", err)
	}
	return out, nil
}

// ListRuns returns run-ledger rows, newest first.
func (s *Store) ListRuns(ctx context.Context, limit, offset int) ([]scrape.ScrapeRun, error) {
	rows, err := s.db.Query(ctx, `
SELECT run_id, started_at, completed_at, elapsed_ms, raw_count, dedup_count,
       accepted_count, rejected_count, quarantined_count, error_count, errors, status
FROM runs
ORDER BY started_at DESC
LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []scrape.ScrapeRun
	for rows.Next() {
		var run scrape.ScrapeRun
		var completedAt *time.Time
		var elapsedMs *int64
		var errorsJSON []byte
		if err := rows.Scan(&run.ID, &run.StartedAt, &completedAt, &elapsedMs,
			&run.RawCount, &run.DedupCount, &run.AcceptedCount, &run.RejectedCount,
			&run.QuarantinedCount, &run.ErrorCount, &errorsJSON, &run.Status); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		if completedAt != nil {
			run.CompletedAt = *completedAt
		}
		if elapsedMs != nil {
			run.Elapsed = time.Duration(*elapsedMs) * time.Millisecond
		}
		if len(errorsJSON) > 0 {
			if err := json.Unmarshal(errorsJSON, &run.Errors); err != nil {
				return nil, fmt.Errorf("decode run errors: %w", err)
			}
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// Counts returns accumulated totals across all tables.
func (s *Store) Counts(ctx context.Context) (store.Counts, error) {
	var c store.Counts
	err := s.db.QueryRow(ctx, `
SELECT (SELECT count(*) FROM seen_urls),
       (SELECT count(*) FROM results),
       (SELECT count(*) FROM rejected),
       (SELECT count(*) FROM quarantine),
       (SELECT count(*) FROM runs)`,
	).Scan(&c.SeenURLs, &c.Accepted, &c.Rejected, &c.Quarantined, &c.Runs)
	if err != nil {
		return store.Counts{}, fmt.Errorf("query counts: %w", err)
	}
	return c, nil
}
