package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cjordan223/web-scrape-ai/internal/metrics"
	"github.com/cjordan223/web-scrape-ai/internal/scrape"
	"github.com/cjordan223/web-scrape-ai/internal/store"
	"github.com/cjordan223/web-scrape-ai/internal/store/memory"
)

func seededStore(t *testing.T) *memory.Store {
	t.Helper()

	s := memory.New()
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()

	require.NoError(t, s.Persist(ctx, store.DecisionRecord{
		CanonicalURL: "https://boards.greenhouse.io/acme/jobs/1",
		Title:        "Senior Security Engineer",
		Board:        scrape.BoardGreenhouse,
		Seniority:    scrape.SenioritySenior,
		Disposition:  scrape.DispositionAccepted,
		Score:        5,
		Trail:        scrape.VerdictTrail{{Stage: "title_relevance", Outcome: scrape.OutcomePass, Reason: "matched", Score: 2}},
		RunID:        "run-1",
		DecidedAt:    base,
	}))
	require.NoError(t, s.Persist(ctx, store.DecisionRecord{
		CanonicalURL: "https://boards.greenhouse.io/acme/jobs/2",
		Title:        "Security Engineering Intern",
		Board:        scrape.BoardGreenhouse,
		Seniority:    scrape.SeniorityUnknown,
		Disposition:  scrape.DispositionRejected,
		Trail: scrape.VerdictTrail{
			{Stage: "url_domain", Outcome: scrape.OutcomePass, Reason: "domain ok"},
			{Stage: "early_career", Outcome: scrape.OutcomeHardBlock, Reason: `early-career term: "intern"`},
		},
		RunID:     "run-1",
		DecidedAt: base.Add(time.Minute),
	}))
	require.NoError(t, s.BeginRun(ctx, scrape.ScrapeRun{ID: "run-1", StartedAt: base}))

	return s
}

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	metrics.Init()
	st := seededStore(t)
	ts := httptest.NewServer(NewServer(st, zap.NewNop()).Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			t.Log(cerr)
		}
	}()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)

	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/healthz", &body))
	assert.Equal(t, "ok", body["status"])

	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/readyz", &body))
	assert.Equal(t, "ready", body["status"])
}

func TestListResults(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)

	var body struct {
		Items  []store.ResultRow `json:"items"`
		Limit  int               `json:"limit"`
		Offset int               `json:"offset"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/results", &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "https://boards.greenhouse.io/acme/jobs/1", body.Items[0].URL)
	assert.Equal(t, 50, body.Limit)
}

func TestListRejectedCarriesBlockingStage(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)

	var body struct {
		Items []store.RejectedRow `json:"items"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/rejected", &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "early_career", body.Items[0].Stage)
	assert.Len(t, body.Items[0].Trail, 2)
}

func TestPaginationParams(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)

	var body struct {
		Items  []store.ResultRow `json:"items"`
		Limit  int               `json:"limit"`
		Offset int               `json:"offset"`
	}
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/results?limit=1&offset=5", &body))
	assert.Equal(t, 1, body.Limit)
	assert.Equal(t, 5, body.Offset)
	assert.Empty(t, body.Items)

	// Limits are capped, bad values fall back to defaults.
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/results?limit=9999", &body))
	assert.Equal(t, 500, body.Limit)
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/results?limit=bogus", &body))
	assert.Equal(t, 50, body.Limit)
}

func TestActiveRun(t *testing.T) {
	t.Parallel()

	ts, st := newTestServer(t)

	var body map[string]bool
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/runs/active", &body))
	assert.True(t, body["active"])

	require.NoError(t, st.FinalizeRun(context.Background(), scrape.ScrapeRun{
		ID:     "run-1",
		Status: scrape.RunStatusSuccess,
	}))
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/runs/active", &body))
	assert.False(t, body["active"])
}

func TestStats(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)

	var counts store.Counts
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/v1/stats", &counts))
	assert.Equal(t, int64(2), counts.SeenURLs)
	assert.Equal(t, int64(1), counts.Accepted)
	assert.Equal(t, int64(1), counts.Rejected)
	assert.Equal(t, int64(1), counts.Runs)
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()

	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			t.Log(cerr)
		}
	}()
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
