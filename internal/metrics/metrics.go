// Package metrics exposes Prometheus collectors for the decision pipeline
// and the read API.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	postingsTotal              *prometheus.CounterVec
	stageBlocksTotal           *prometheus.CounterVec
	dedupSkipsTotal            prometheus.Counter
	malformedURLsTotal         prometheus.Counter
	runsTotal                  *prometheus.CounterVec
	runDurationSeconds         prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		postingsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobscraper_postings_total",
				Help: "Total number of decided postings, labeled by disposition.",
			},
			[]string{"disposition"},
		)

		stageBlocksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobscraper_stage_blocks_total",
				Help: "Total number of hard-block verdicts, labeled by stage.",
			},
			[]string{"stage"},
		)

		dedupSkipsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "jobscraper_dedup_skips_total",
				Help: "Total number of postings skipped because the canonical URL was already seen.",
			},
		)

		malformedURLsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "jobscraper_malformed_urls_total",
				Help: "Total number of candidate URLs that failed canonicalization.",
			},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobscraper_runs_total",
				Help: "Total number of completed runs, labeled by terminal status.",
			},
			[]string{"status"},
		)

		runDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "jobscraper_run_duration_seconds",
				Help:    "Histogram of wall-clock run durations.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePosting increments the disposition counter for a decided posting.
func ObservePosting(disposition string) {
	postingsTotal.WithLabelValues(disposition).Inc()
}

// ObserveStageBlock increments the hard-block counter for the given stage.
func ObserveStageBlock(stage string) {
	stageBlocksTotal.WithLabelValues(stage).Inc()
}

// ObserveDedupSkip increments the dedup skip counter.
func ObserveDedupSkip() {
	dedupSkipsTotal.Inc()
}

// ObserveMalformedURL increments the malformed URL counter.
func ObserveMalformedURL() {
	malformedURLsTotal.Inc()
}

// ObserveRun records a completed run and its duration.
func ObserveRun(status string, duration time.Duration) {
	runsTotal.WithLabelValues(status).Inc()
	runDurationSeconds.Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
