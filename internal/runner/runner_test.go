package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cjordan223/web-scrape-ai/internal/filter"
	"github.com/cjordan223/web-scrape-ai/internal/metrics"
	"github.com/cjordan223/web-scrape-ai/internal/scrape"
	"github.com/cjordan223/web-scrape-ai/internal/store"
	"github.com/cjordan223/web-scrape-ai/internal/store/memory"
	"github.com/cjordan223/web-scrape-ai/internal/urlnorm"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

type fakeIDs struct {
	n int
}

func (g *fakeIDs) NewID() (string, error) {
	g.n++
	return fmt.Sprintf("run-%d", g.n), nil
}

func testEngine(t *testing.T) *filter.Engine {
	t.Helper()
	e, err := filter.NewEngine(filter.Config{
		TitleKeywords:      []string{"security"},
		TitleRoleWords:     []string{"engineer", "analyst"},
		EarlyCareerExclude: true,
		MaxExperienceYears: 6,
		URLDomainBlocklist: []string{"reddit.com"},
		MinJDChars:         50,
		AcceptThreshold:    3,
		RejectThreshold:    0,
	})
	require.NoError(t, err)
	return e
}

func newTestCoordinator(t *testing.T, st Store) *Coordinator {
	t.Helper()
	metrics.Init()
	return New(st, urlnorm.DefaultRules(), testEngine(t), &fakeClock{t: time.Unix(1700000000, 0).UTC()}, &fakeIDs{}, zap.NewNop())
}

func goodJD() string {
	return "5+ years of experience building detections. " + strings.Repeat("Own our tooling. ", 5)
}

func testBatch() []scrape.CandidatePosting {
	return []scrape.CandidatePosting{
		{
			URL:    "https://boards.greenhouse.io/acme/jobs/1?gh_src=newsletter",
			Title:  "Senior Security Engineer",
			Board:  scrape.BoardGreenhouse,
			JDText: goodJD(),
		},
		{
			// Same posting behind the alias host; must dedup against the first.
			URL:   "https://job-boards.greenhouse.io/acme/jobs/1",
			Title: "Senior Security Engineer",
			Board: scrape.BoardGreenhouse,
		},
		{
			URL:   "https://boards.greenhouse.io/acme/jobs/2",
			Title: "Security Engineering Intern",
			Board: scrape.BoardGreenhouse,
		},
		{
			URL:   "not a url",
			Title: "Security Engineer",
		},
	}
}

func TestRunCycleEndToEnd(t *testing.T) {
	t.Parallel()

	st := memory.New()
	coord := newTestCoordinator(t, st)
	ctx := context.Background()

	run, err := coord.RunCycle(ctx, testBatch(), Options{})
	require.NoError(t, err)

	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, scrape.RunStatusSuccess, run.Status)
	assert.Equal(t, 4, run.RawCount)
	assert.Equal(t, 1, run.DedupCount)
	assert.Equal(t, 1, run.AcceptedCount)
	assert.Equal(t, 2, run.RejectedCount)
	assert.Equal(t, 0, run.QuarantinedCount)
	assert.Equal(t, 0, run.ErrorCount)
	assert.False(t, run.CompletedAt.IsZero())
	assert.Greater(t, run.Elapsed, time.Duration(0))

	results, err := st.ListResults(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://boards.greenhouse.io/acme/jobs/1", results[0].URL)
	assert.Equal(t, "run-1", results[0].RunID)

	rejected, err := st.ListRejected(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, rejected, 2)

	// The malformed URL is recorded under its raw string so the next run
	// skips it too.
	var sawMalformed bool
	for _, row := range rejected {
		if row.URL == "not a url" {
			sawMalformed = true
			assert.Equal(t, "url_domain", row.Stage)
		}
	}
	assert.True(t, sawMalformed)

	active, err := st.ActiveRun(ctx)
	require.NoError(t, err)
	assert.False(t, active)
}

// Re-running the same batch decides nothing new: every canonical URL is
// already seen.
func TestRunCycleRerunIsNoOp(t *testing.T) {
	t.Parallel()

	st := memory.New()
	coord := newTestCoordinator(t, st)
	ctx := context.Background()

	_, err := coord.RunCycle(ctx, testBatch(), Options{})
	require.NoError(t, err)

	before, err := st.Counts(ctx)
	require.NoError(t, err)

	rerun, err := coord.RunCycle(ctx, testBatch(), Options{})
	require.NoError(t, err)

	assert.Equal(t, scrape.RunStatusSuccess, rerun.Status)
	assert.Equal(t, 4, rerun.DedupCount)
	assert.Equal(t, 0, rerun.AcceptedCount)
	assert.Equal(t, 0, rerun.RejectedCount)
	assert.Equal(t, 0, rerun.QuarantinedCount)

	after, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.SeenURLs, after.SeenURLs)
	assert.Equal(t, before.Accepted, after.Accepted)
	assert.Equal(t, before.Rejected, after.Rejected)
	assert.Equal(t, before.Runs+1, after.Runs)
}

func TestRunCycleDryRunWritesNothing(t *testing.T) {
	t.Parallel()

	st := memory.New()
	coord := newTestCoordinator(t, st)
	ctx := context.Background()

	run, err := coord.RunCycle(ctx, testBatch(), Options{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, scrape.RunStatusSuccess, run.Status)
	assert.Equal(t, 1, run.AcceptedCount)
	assert.Equal(t, 2, run.RejectedCount)
	// Without persistence the alias duplicate is evaluated, not deduped.
	assert.Equal(t, 0, run.DedupCount)

	counts, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.Counts{}, counts)
}

func TestRunCycleRefusesOverlap(t *testing.T) {
	t.Parallel()

	st := memory.New()
	coord := newTestCoordinator(t, st)
	ctx := context.Background()

	stale := scrape.ScrapeRun{ID: "stale", StartedAt: time.Unix(1690000000, 0).UTC()}
	require.NoError(t, st.BeginRun(ctx, stale))

	_, err := coord.RunCycle(ctx, testBatch(), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunInProgress))

	// Force overrides the stale ledger entry.
	run, err := coord.RunCycle(ctx, testBatch(), Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, scrape.RunStatusSuccess, run.Status)
}

// A URL can be marked seen without ever being decided, for example by a run
// that crashed between MarkSeen and Persist. Force re-evaluates it.
func TestRunCycleForceReevaluatesSeen(t *testing.T) {
	t.Parallel()

	st := memory.New()
	coord := newTestCoordinator(t, st)
	ctx := context.Background()

	canonical := "https://boards.greenhouse.io/acme/jobs/1"
	require.NoError(t, st.MarkSeen(ctx, canonical, time.Unix(1690000000, 0).UTC()))

	batch := []scrape.CandidatePosting{{
		URL:    "https://boards.greenhouse.io/acme/jobs/1?gh_src=newsletter",
		Title:  "Senior Security Engineer",
		Board:  scrape.BoardGreenhouse,
		JDText: goodJD(),
	}}

	// Without Force the seen mark alone skips the posting.
	run, err := coord.RunCycle(ctx, batch, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, run.DedupCount)
	assert.Equal(t, 0, run.AcceptedCount)

	// Force evaluates it; persistence succeeds because no decision exists.
	run, err = coord.RunCycle(ctx, batch, Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 0, run.DedupCount)
	assert.Equal(t, 1, run.AcceptedCount)

	results, err := st.ListResults(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, canonical, results[0].URL)
}

// Force re-evaluates decided URLs too, but the first decision stands: the
// duplicate persist is recovered as a dedup skip.
func TestRunCycleForceNeverOverwritesDecision(t *testing.T) {
	t.Parallel()

	st := memory.New()
	coord := newTestCoordinator(t, st)
	ctx := context.Background()

	_, err := coord.RunCycle(ctx, testBatch(), Options{})
	require.NoError(t, err)

	before, err := st.Counts(ctx)
	require.NoError(t, err)

	forced, err := coord.RunCycle(ctx, testBatch(), Options{Force: true})
	require.NoError(t, err)

	assert.Equal(t, scrape.RunStatusSuccess, forced.Status)
	assert.Equal(t, 4, forced.DedupCount)
	assert.Equal(t, 0, forced.AcceptedCount)
	assert.Equal(t, 0, forced.RejectedCount)
	assert.Equal(t, 0, forced.QuarantinedCount)

	after, err := st.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Accepted, after.Accepted)
	assert.Equal(t, before.Rejected, after.Rejected)
	assert.Equal(t, before.Quarantined, after.Quarantined)
}

type failingStore struct {
	*memory.Store
	failURL string
}

func (f *failingStore) Persist(ctx context.Context, rec store.DecisionRecord) error {
	if rec.CanonicalURL == f.failURL {
		return errors.New("disk on fire")
	}
	return f.Store.Persist(ctx, rec)
}

func TestRunCyclePartialOnPersistError(t *testing.T) {
	t.Parallel()

	st := &failingStore{Store: memory.New(), failURL: "https://boards.greenhouse.io/acme/jobs/2"}
	coord := newTestCoordinator(t, st)

	run, err := coord.RunCycle(context.Background(), testBatch(), Options{})
	require.NoError(t, err)

	assert.Equal(t, scrape.RunStatusPartial, run.Status)
	assert.Equal(t, 1, run.ErrorCount)
	require.Len(t, run.Errors, 1)
	assert.Contains(t, run.Errors[0], "disk on fire")
	assert.Equal(t, 1, run.AcceptedCount)
}

func TestRunCycleCanceledContext(t *testing.T) {
	t.Parallel()

	st := memory.New()
	coord := newTestCoordinator(t, st)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := coord.RunCycle(ctx, testBatch(), Options{})
	require.Error(t, err)
	assert.Equal(t, scrape.RunStatusFailed, run.Status)

	// The ledger entry still reaches a terminal state.
	active, aerr := st.ActiveRun(context.Background())
	require.NoError(t, aerr)
	assert.False(t, active)
}
