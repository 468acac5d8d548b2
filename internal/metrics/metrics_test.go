package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Reset collectors for testing purposes.
	postingsTotal = nil
	stageBlocksTotal = nil
	runsTotal = nil
	httpRequestsTotal = nil
	httpRequestDurationSeconds = nil

	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if postingsTotal == nil || stageBlocksTotal == nil || runsTotal == nil ||
		httpRequestsTotal == nil || httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	ObservePosting("accepted")
	if val := testutil.ToFloat64(postingsTotal.WithLabelValues("accepted")); val != 1 {
		t.Errorf("Expected postingsTotal{accepted} to be 1, got %f", val)
	}

	ObserveStageBlock("early_career")
	if val := testutil.ToFloat64(stageBlocksTotal.WithLabelValues("early_career")); val != 1 {
		t.Errorf("Expected stageBlocksTotal{early_career} to be 1, got %f", val)
	}

	ObserveDedupSkip()
	if val := testutil.ToFloat64(dedupSkipsTotal); val != 1 {
		t.Errorf("Expected dedupSkipsTotal to be 1, got %f", val)
	}

	ObserveRun("success", 2*time.Second)
	if val := testutil.ToFloat64(runsTotal.WithLabelValues("success")); val != 1 {
		t.Errorf("Expected runsTotal{success} to be 1, got %f", val)
	}
}
