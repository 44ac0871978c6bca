// Package metrics collects and exposes Lus runtime observability data.
//
// # Design rationale
//
// Two metric stores coexist in this package:
//
//  1. The in-process Metrics struct (atomic counters + gauges) for quick
//     introspection (Snapshot, JSONHandler) without any external dependency.
//  2. A Prometheus registry (prometheus.go) for scraping by external
//     monitoring systems.
//
// # Concurrency — hot path
//
// RecordPollCycle and RecordYieldResume are called from the scheduler's
// poll loop; their in-process counters use atomic increments only, never
// a lock. Per-kind counters live in a fixed-size array indexed by the
// yield-reason enum rather than a map. Once InitPrometheus has run, both
// also forward to the Prometheus collectors, whose labelled lookups do
// take a lock and consult a map.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// YieldKind indexes the per-reason resume counters. Mirrors the detached
// yield reasons a coroutine can report to the scheduler.
type YieldKind int

const (
	YieldIOWait YieldKind = iota
	YieldSleepUntil
	YieldThreadPoolWait
	yieldKindCount
)

// Metrics collects and exposes Lus runtime metrics.
type Metrics struct {
	PollCycles     atomic.Int64
	PendingCount   atomic.Int64
	YieldResumed   [yieldKindCount]atomic.Int64
	WorkersTotal   atomic.Int64
	WorkersBusy    atomic.Int64
	PledgeGrants   atomic.Int64
	PledgeDenials  atomic.Int64
	TasksSubmitted atomic.Int64
	TasksCompleted atomic.Int64

	startTime time.Time
}

var global = &Metrics{startTime: time.Now()}

// Global returns the global metrics instance.
func Global() *Metrics { return global }

// StartTime returns the time when the metrics system was initialized.
func StartTime() time.Time { return global.startTime }

// RecordPollCycle records completion of one scheduler poll cycle.
func (m *Metrics) RecordPollCycle(pending int, elapsed time.Duration) {
	m.PollCycles.Add(1)
	m.PendingCount.Store(int64(pending))
	RecordPrometheusPollCycle(elapsed)
}

// RecordYieldResume records a coroutine resumed for the given yield reason.
func (m *Metrics) RecordYieldResume(kind YieldKind) {
	if kind < 0 || kind >= yieldKindCount {
		return
	}
	m.YieldResumed[kind].Add(1)
	RecordPrometheusYieldResume(kind)
}

// SetWorkerCounts updates the worker-pool size gauges.
func (m *Metrics) SetWorkerCounts(total, busy int) {
	m.WorkersTotal.Store(int64(total))
	m.WorkersBusy.Store(int64(busy))
	SetPrometheusWorkerCounts(total, busy)
}

// RecordPledgeDecision records a pledge grant or denial for a permission name.
func (m *Metrics) RecordPledgeDecision(name string, granted bool) {
	if granted {
		m.PledgeGrants.Add(1)
	} else {
		m.PledgeDenials.Add(1)
	}
	RecordPrometheusPledgeDecision(name, granted)
}

// RecordTaskSubmitted records a thread-pool task submission.
func (m *Metrics) RecordTaskSubmitted() {
	m.TasksSubmitted.Add(1)
}

// RecordTaskCompleted records a thread-pool task completion.
func (m *Metrics) RecordTaskCompleted() {
	m.TasksCompleted.Add(1)
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"uptime_seconds": int64(time.Since(m.startTime).Seconds()),
		"scheduler": map[string]any{
			"poll_cycles":    m.PollCycles.Load(),
			"pending_count":  m.PendingCount.Load(),
			"io_wait":        m.YieldResumed[YieldIOWait].Load(),
			"sleep_until":    m.YieldResumed[YieldSleepUntil].Load(),
			"thread_pool":    m.YieldResumed[YieldThreadPoolWait].Load(),
		},
		"workers": map[string]any{
			"total": m.WorkersTotal.Load(),
			"busy":  m.WorkersBusy.Load(),
		},
		"pledge": map[string]any{
			"grants":  m.PledgeGrants.Load(),
			"denials": m.PledgeDenials.Load(),
		},
		"threadpool": map[string]any{
			"submitted": m.TasksSubmitted.Load(),
			"completed": m.TasksCompleted.Load(),
		},
	}
}

// JSONHandler returns an HTTP handler that exposes metrics in JSON format.
func (m *Metrics) JSONHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m.Snapshot())
	})
}
