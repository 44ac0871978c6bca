package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPrometheusHandlerUnavailableBeforeInit(t *testing.T) {
	promMetrics = nil

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	PrometheusHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before InitPrometheus, got %d", rec.Code)
	}
}

func TestInitPrometheusExposesRecordedMetrics(t *testing.T) {
	InitPrometheus("lus_test", nil)
	t.Cleanup(func() { promMetrics = nil })

	RecordPrometheusPollCycle(5 * time.Millisecond)
	RecordPrometheusYieldResume(YieldIOWait)
	SetPrometheusWorkerCounts(3, 1)
	RecordPrometheusPledgeDecision("fs", true)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	PrometheusHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "lus_test_poll_cycles_total") {
		t.Fatalf("expected poll cycles counter in scrape output, got: %s", body)
	}
	if !strings.Contains(body, "lus_test_pledge_decisions_total") {
		t.Fatalf("expected pledge decisions counter in scrape output, got: %s", body)
	}
}

func TestPrometheusRegistryNilBeforeInit(t *testing.T) {
	promMetrics = nil
	if PrometheusRegistry() != nil {
		t.Fatalf("expected nil registry before InitPrometheus")
	}
}

func TestYieldKindLabel(t *testing.T) {
	cases := map[YieldKind]string{
		YieldIOWait:         "io_wait",
		YieldSleepUntil:     "sleep_until",
		YieldThreadPoolWait: "thread_pool_wait",
		yieldKindCount:      "unknown",
	}
	for kind, want := range cases {
		if got := yieldKindLabel(kind); got != want {
			t.Fatalf("yieldKindLabel(%v) = %q, want %q", kind, got, want)
		}
	}
}
