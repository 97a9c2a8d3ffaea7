package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the reconciliation engine.
// A zero-config (disabled) instance is safe to use: every recording
// method is a no-op.
type Metrics struct {
	config MetricsConfig

	// Apply run metrics
	appliesStarted   prometheus.Counter
	appliesCompleted *prometheus.CounterVec
	applyDuration    *prometheus.HistogramVec

	// Resource operation metrics
	resourceOps        *prometheus.CounterVec
	resourceOpDuration *prometheus.HistogramVec

	// Diff metrics
	diffsComputed *prometheus.CounterVec
	diffDuration  prometheus.Histogram

	// Error metrics
	errorsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		appliesStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "applies_started_total",
				Help:      "Total number of apply runs started",
			},
		),
		appliesCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "applies_completed_total",
				Help:      "Total number of apply runs completed",
			},
			[]string{"status"},
		),
		applyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "apply_duration_seconds",
				Help:      "Duration of apply runs in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),

		resourceOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resource_operations_total",
				Help:      "Total number of resource operations executed",
			},
			[]string{"operation", "status"},
		),
		resourceOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resource_operation_duration_seconds",
				Help:      "Duration of resource operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		diffsComputed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diffs_computed_total",
				Help:      "Total number of blueprint diffs computed",
			},
			[]string{"result"},
		),
		diffDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "diff_duration_seconds",
				Help:      "Duration of diff computation in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors by class",
			},
			[]string{"class"},
		),
	}

	registry.MustRegister(
		m.appliesStarted,
		m.appliesCompleted,
		m.applyDuration,
		m.resourceOps,
		m.resourceOpDuration,
		m.diffsComputed,
		m.diffDuration,
		m.errorsTotal,
	)

	return m, nil
}

// RecordApplyStarted increments the counter for started apply runs.
func (m *Metrics) RecordApplyStarted() {
	if m.appliesStarted == nil {
		return
	}
	m.appliesStarted.Inc()
}

// RecordApplyCompleted records a completed apply run with its status and duration.
func (m *Metrics) RecordApplyCompleted(status string, duration time.Duration) {
	if m.appliesCompleted == nil {
		return
	}
	m.appliesCompleted.WithLabelValues(status).Inc()
	m.applyDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordResourceOperation records one create/update/delete against a resource.
func (m *Metrics) RecordResourceOperation(operation, status string, duration time.Duration) {
	if m.resourceOps == nil {
		return
	}
	m.resourceOps.WithLabelValues(operation, status).Inc()
	m.resourceOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordDiffComputed records a completed diff with its overall result.
func (m *Metrics) RecordDiffComputed(result string, duration time.Duration) {
	if m.diffsComputed == nil {
		return
	}
	m.diffsComputed.WithLabelValues(result).Inc()
	m.diffDuration.Observe(duration.Seconds())
}

// RecordError records an error by class.
func (m *Metrics) RecordError(class string) {
	if m.errorsTotal == nil {
		return
	}
	m.errorsTotal.WithLabelValues(class).Inc()
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics. The server runs
// in the background for the life of the process.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		_ = server.ListenAndServe()
	}()

	return nil
}
