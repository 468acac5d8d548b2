// Package main hosts the jobscraper entrypoint.
//
// Architecture overview:
//   - CLI: Cobra subcommands (scrape, serve, stats) share a Viper-backed
//     config layer. The scrape command reads a JSON batch of candidate
//     postings from a file or stdin and runs one full decision cycle.
//   - Pipeline: internal/urlnorm canonicalizes every candidate URL before any
//     other processing. internal/filter evaluates survivors through ordered
//     hard gates and soft scoring stages, producing a verdict trail per
//     posting. internal/runner coordinates the cycle and books everything
//     under a run-ledger entry.
//   - Persistence: internal/store defines the contracts; Postgres (pgx pool)
//     is the system of record with accepted, rejected, and quarantine tables
//     plus the seen-URL set and run ledger. An in-memory store backs
//     development and tests, and an optional Redis set caches seen-URL
//     membership checks.
//   - Observability: zap provides structured logging; Prometheus counters and
//     histograms track dispositions, stage blocks, dedup skips, and runs, and
//     are exported via the serve command's /metrics handler.
//
// Operational notes:
//   - Exit codes: scrape exits 0 when every candidate was decided or skipped,
//     2 when some candidates failed, and 1 when the run itself failed.
//   - Overlap: a second scrape refuses to start while the ledger shows a run
//     in progress; --force overrides a stale entry left by a crashed run.
//   - Configuration: env vars use the JOBSCRAPER_ prefix with underscores,
//     e.g. JOBSCRAPER_DB_DSN, JOBSCRAPER_SERVER_PORT,
//     JOBSCRAPER_FILTER_SCORE_ACCEPT_THRESHOLD. A YAML file passed via
//     --config is merged underneath the environment.
//   - Run locally: go run ./cmd/jobscraper scrape --input batch.json, then
//     go run ./cmd/jobscraper serve to browse decisions.
package main
