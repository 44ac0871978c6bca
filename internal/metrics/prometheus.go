package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

// PrometheusMetrics wraps prometheus collectors for the Lus runtime core.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	pollCyclesTotal    prometheus.Counter
	pollCycleDuration  prometheus.Histogram
	pendingGauge       prometheus.Gauge
	yieldResumedTotal  *prometheus.CounterVec
	workerPoolSize     *prometheus.GaugeVec
	pledgeDecisions    *prometheus.CounterVec
	threadPoolTasks    *prometheus.CounterVec
}

var defaultPollBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100}

var promMetrics *PrometheusMetrics

// InitPrometheus initializes the Prometheus metrics subsystem.
func InitPrometheus(namespace string, buckets []float64) {
	if len(buckets) == 0 {
		buckets = defaultPollBuckets
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	pm := &PrometheusMetrics{
		registry: registry,

		pollCyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_cycles_total",
			Help:      "Total number of scheduler poll cycles executed",
		}),

		pollCycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_cycle_duration_milliseconds",
			Help:      "Wall-clock duration of a single scheduler poll cycle",
			Buckets:   buckets,
		}),

		pendingGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_count",
			Help:      "Number of coroutines currently pending on the scheduler",
		}),

		yieldResumedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "yield_resumed_total",
			Help:      "Total detached coroutines resumed, by yield reason",
		}, []string{"reason"}),

		workerPoolSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_pool_size",
			Help:      "Current worker pool size by state (total, busy)",
		}, []string{"state"}),

		pledgeDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pledge_decisions_total",
			Help:      "Pledge grant/deny decisions by permission name and result",
		}, []string{"name", "result"}),

		threadPoolTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "thread_pool_tasks_total",
			Help:      "Thread pool tasks by outcome (submitted, completed)",
		}, []string{"outcome"}),
	}

	registry.MustRegister(
		pm.pollCyclesTotal,
		pm.pollCycleDuration,
		pm.pendingGauge,
		pm.yieldResumedTotal,
		pm.workerPoolSize,
		pm.pledgeDecisions,
		pm.threadPoolTasks,
	)

	promMetrics = pm
}

func yieldKindLabel(kind YieldKind) string {
	switch kind {
	case YieldIOWait:
		return "io_wait"
	case YieldSleepUntil:
		return "sleep_until"
	case YieldThreadPoolWait:
		return "thread_pool_wait"
	default:
		return "unknown"
	}
}

// RecordPrometheusPollCycle records one poll cycle's duration.
func RecordPrometheusPollCycle(elapsed time.Duration) {
	if promMetrics == nil {
		return
	}
	promMetrics.pollCyclesTotal.Inc()
	promMetrics.pollCycleDuration.Observe(float64(elapsed.Microseconds()) / 1000.0)
}

// RecordPrometheusYieldResume records a detached coroutine resume by reason.
func RecordPrometheusYieldResume(kind YieldKind) {
	if promMetrics == nil {
		return
	}
	promMetrics.yieldResumedTotal.WithLabelValues(yieldKindLabel(kind)).Inc()
}

// SetPrometheusWorkerCounts sets the worker pool size gauges.
func SetPrometheusWorkerCounts(total, busy int) {
	if promMetrics == nil {
		return
	}
	promMetrics.workerPoolSize.WithLabelValues("total").Set(float64(total))
	promMetrics.workerPoolSize.WithLabelValues("busy").Set(float64(busy))
}

// RecordPrometheusPledgeDecision records a pledge grant/deny by permission name.
func RecordPrometheusPledgeDecision(name string, granted bool) {
	if promMetrics == nil {
		return
	}
	result := "denied"
	if granted {
		result = "granted"
	}
	promMetrics.pledgeDecisions.WithLabelValues(name, result).Inc()
}

// PrometheusHandler returns an HTTP handler for Prometheus metrics scraping.
func PrometheusHandler() http.Handler {
	if promMetrics == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("prometheus metrics not initialized"))
		})
	}
	return promhttp.HandlerFor(promMetrics.registry, promhttp.HandlerOpts{})
}

// PrometheusRegistry returns the prometheus registry (for custom collectors).
func PrometheusRegistry() *prometheus.Registry {
	if promMetrics == nil {
		return nil
	}
	return promMetrics.registry
}
