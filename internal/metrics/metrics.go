// Package metrics provides Prometheus metrics for the translator.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "subtrans"

// Metrics holds all Prometheus metrics of the process.
type Metrics struct {
	// Orchestrator metrics
	TranslateRequests *prometheus.CounterVec
	TranslateLatency  *prometheus.HistogramVec
	TranslateRetries  *prometheus.CounterVec

	// Browser pool metrics
	SessionsLive       prometheus.Gauge
	SessionsFree       prometheus.Gauge
	SessionEvents      *prometheus.CounterVec
	RepairCycles       prometheus.Counter
	CorrelationEntries prometheus.Gauge
	PoolErrors         *prometheus.CounterVec

	// File pipeline metrics
	FilesProcessed *prometheus.CounterVec
	CuesEmitted    prometheus.Counter
	FileDuration   prometheus.Histogram

	// Event publishing metrics
	EventsPublished *prometheus.CounterVec
}

// DefaultMetrics is the global metrics instance registered with the default registry.
var DefaultMetrics = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics creates all metrics and registers them with reg.
// A nil reg creates unregistered collectors, which is useful in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TranslateRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translate_requests_total",
			Help:      "Translation requests by backend and outcome",
		}, []string{"backend", "outcome"}),
		TranslateLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "translate_latency_seconds",
			Help:      "Latency of successful translation requests",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"backend"}),
		TranslateRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translate_retries_total",
			Help:      "Retries of translation requests by error kind",
		}, []string{"kind"}),
		SessionsLive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "browser_sessions_live",
			Help:      "Browser sessions currently open, busy or free",
		}),
		SessionsFree: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "browser_sessions_free",
			Help:      "Browser sessions waiting in the free list",
		}),
		SessionEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "browser_session_events_total",
			Help:      "Browser session lifecycle events",
		}, []string{"event"}),
		RepairCycles: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "browser_repair_cycles_total",
			Help:      "Pool repair cycles started",
		}),
		CorrelationEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "browser_correlation_entries",
			Help:      "Observed results waiting to be claimed",
		}),
		PoolErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "browser_pool_errors_total",
			Help:      "Pool errors by kind",
		}, []string{"kind"}),
		FilesProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Subtitle files handled by status",
		}, []string{"status"}),
		CuesEmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cues_emitted_total",
			Help:      "Translated cues written",
		}),
		FileDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_duration_seconds",
			Help:      "Time spent translating one subtitle file",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Job events published by result",
		}, []string{"result"}),
	}
}

// RecordTranslate records one translation attempt.
func (m *Metrics) RecordTranslate(backend string, err error, kind string, elapsed time.Duration) {
	if err != nil {
		m.TranslateRequests.WithLabelValues(backend, kind).Inc()
		return
	}
	m.TranslateRequests.WithLabelValues(backend, "success").Inc()
	m.TranslateLatency.WithLabelValues(backend).Observe(elapsed.Seconds())
}

// RecordRetry records a retried translation.
func (m *Metrics) RecordRetry(kind string) {
	m.TranslateRetries.WithLabelValues(kind).Inc()
}

// RecordPool updates the pool gauges.
func (m *Metrics) RecordPool(live, free, correlation int) {
	m.SessionsLive.Set(float64(live))
	m.SessionsFree.Set(float64(free))
	m.CorrelationEntries.Set(float64(correlation))
}

// RecordSessionEvent records created, retired or failed sessions.
func (m *Metrics) RecordSessionEvent(event string) {
	m.SessionEvents.WithLabelValues(event).Inc()
}

// RecordRepair records a repair cycle start.
func (m *Metrics) RecordRepair() {
	m.RepairCycles.Inc()
}

// RecordPoolError records a pool error by kind.
func (m *Metrics) RecordPoolError(kind string) {
	m.PoolErrors.WithLabelValues(kind).Inc()
}

// RecordFile records a finished file.
func (m *Metrics) RecordFile(status string, cues int, elapsed time.Duration) {
	m.FilesProcessed.WithLabelValues(status).Inc()
	m.CuesEmitted.Add(float64(cues))
	if elapsed > 0 {
		m.FileDuration.Observe(elapsed.Seconds())
	}
}

// RecordEvent records a publish result.
func (m *Metrics) RecordEvent(err error) {
	if err != nil {
		m.EventsPublished.WithLabelValues("error").Inc()
		return
	}
	m.EventsPublished.WithLabelValues("ok").Inc()
}
