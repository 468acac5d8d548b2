// Package api hosts the read-only HTTP server, middleware, and REST handlers
// for operator access. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/results, /v1/rejected, /v1/quarantine for decision browsing.
//   - GET /v1/runs and /v1/runs/active for run-ledger inspection.
//   - GET /v1/stats for accumulated totals.
package api
