package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

func TestRecordPollCycleUpdatesCountersAndGauge(t *testing.T) {
	m := newTestMetrics()
	m.RecordPollCycle(5, 2*time.Millisecond)
	m.RecordPollCycle(3, time.Millisecond)

	if got := m.PollCycles.Load(); got != 2 {
		t.Fatalf("expected 2 poll cycles, got %d", got)
	}
	if got := m.PendingCount.Load(); got != 3 {
		t.Fatalf("expected pending count to reflect last call, got %d", got)
	}
}

func TestRecordYieldResumeBucketsByKind(t *testing.T) {
	m := newTestMetrics()
	m.RecordYieldResume(YieldIOWait)
	m.RecordYieldResume(YieldIOWait)
	m.RecordYieldResume(YieldSleepUntil)

	if got := m.YieldResumed[YieldIOWait].Load(); got != 2 {
		t.Fatalf("expected 2 io_wait resumes, got %d", got)
	}
	if got := m.YieldResumed[YieldSleepUntil].Load(); got != 1 {
		t.Fatalf("expected 1 sleep_until resume, got %d", got)
	}
}

func TestRecordYieldResumeIgnoresOutOfRangeKind(t *testing.T) {
	m := newTestMetrics()
	m.RecordYieldResume(YieldKind(-1))
	m.RecordYieldResume(yieldKindCount)
	for _, c := range m.YieldResumed {
		if c.Load() != 0 {
			t.Fatalf("expected out-of-range kinds to be ignored")
		}
	}
}

func TestRecordPledgeDecisionSplitsGrantsAndDenials(t *testing.T) {
	m := newTestMetrics()
	m.RecordPledgeDecision("fs", true)
	m.RecordPledgeDecision("net", false)
	m.RecordPledgeDecision("net", false)

	if got := m.PledgeGrants.Load(); got != 1 {
		t.Fatalf("expected 1 grant, got %d", got)
	}
	if got := m.PledgeDenials.Load(); got != 2 {
		t.Fatalf("expected 2 denials, got %d", got)
	}
}

func TestSnapshotReflectsRecordedState(t *testing.T) {
	m := newTestMetrics()
	m.SetWorkerCounts(4, 2)
	m.RecordTaskSubmitted()
	m.RecordTaskCompleted()

	snap := m.Snapshot()
	workers, ok := snap["workers"].(map[string]any)
	if !ok {
		t.Fatalf("expected workers section in snapshot")
	}
	if workers["total"] != int64(4) || workers["busy"] != int64(2) {
		t.Fatalf("unexpected worker counts in snapshot: %v", workers)
	}

	threadpool := snap["threadpool"].(map[string]any)
	if threadpool["submitted"] != int64(1) || threadpool["completed"] != int64(1) {
		t.Fatalf("unexpected threadpool counts in snapshot: %v", threadpool)
	}
}

func TestJSONHandlerServesSnapshot(t *testing.T) {
	m := newTestMetrics()
	m.RecordPollCycle(1, time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics.json", nil)
	rec := httptest.NewRecorder()
	m.JSONHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding JSON body: %v", err)
	}
	if _, ok := body["scheduler"]; !ok {
		t.Fatalf("expected scheduler section in JSON body: %v", body)
	}
}
