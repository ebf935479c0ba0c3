// Package metrics provides Prometheus metrics for the live scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the scoring service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Scoring metrics
	pointsScored     prometheus.Counter
	duplicateActions prometheus.Counter
	undosRecorded    prometheus.Counter
	setsCompleted    prometheus.Counter
	matchesCompleted prometheus.Counter
	matchesCancelled prometheus.Counter
	activeMatches    prometheus.Gauge

	// Broadcast metrics
	subscriberCount    prometheus.Gauge
	broadcastsSent     prometheus.Counter
	broadcastsDropped  prometheus.Counter
	reconcileRequests  prometheus.Counter
	reconcileUnchanged prometheus.Counter

	// Persistence metrics
	persistLatency prometheus.Histogram
	persistErrors  prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking by component
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "matchpoint",
		subsystem:        "scoring",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.pointsScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "points_scored_total",
		Help:      "Total number of points committed to the event log",
	})
	m.duplicateActions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_actions_total",
		Help:      "Total number of retried client actions absorbed idempotently",
	})
	m.undosRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "undos_total",
		Help:      "Total number of point retractions",
	})
	m.setsCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sets_completed_total",
		Help:      "Total number of sets archived",
	})
	m.matchesCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "matches_completed_total",
		Help:      "Total number of matches completed",
	})
	m.matchesCancelled = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "matches_cancelled_total",
		Help:      "Total number of matches cancelled",
	})
	m.activeMatches = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "matches",
		Help:      "Number of matches currently tracked",
	})

	m.subscriberCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "subscribers",
		Help:      "Live connections across all match rooms",
	})
	m.broadcastsSent = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcasts_sent_total",
		Help:      "Snapshots delivered to subscriber channels",
	})
	m.broadcastsDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcasts_dropped_total",
		Help:      "Snapshots dropped for slow subscribers (recovered via resync)",
	})
	m.reconcileRequests = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reconcile_requests_total",
		Help:      "Resync requests served",
	})
	m.reconcileUnchanged = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reconcile_unchanged_total",
		Help:      "Resync requests answered with the cheap no-change signal",
	})

	m.persistLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persist_latency_milliseconds",
		Help:      "Histogram of storage write latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.persistErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persist_errors_total",
		Help:      "Storage writes that failed or timed out",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_total",
			Help:      "Errors by component and type",
		},
		[]string{"component", "error_type"},
	)
}

// Package-level helpers against the global manager.

// RecordPointScored increments the committed point counter.
func RecordPointScored() { globalManager.pointsScored.Inc() }

// RecordDuplicateAction increments the absorbed retry counter.
func RecordDuplicateAction() { globalManager.duplicateActions.Inc() }

// RecordUndo increments the retraction counter.
func RecordUndo() { globalManager.undosRecorded.Inc() }

// RecordSetCompleted increments the archived set counter.
func RecordSetCompleted() { globalManager.setsCompleted.Inc() }

// RecordMatchCompleted increments the completed match counter.
func RecordMatchCompleted() { globalManager.matchesCompleted.Inc() }

// RecordMatchCancelled increments the cancelled match counter.
func RecordMatchCancelled() { globalManager.matchesCancelled.Inc() }

// UpdateActiveMatches sets the tracked match gauge.
func UpdateActiveMatches(n int) { globalManager.activeMatches.Set(float64(n)) }

// UpdateSubscriberCount sets the live connection gauge.
func UpdateSubscriberCount(n int) { globalManager.subscriberCount.Set(float64(n)) }

// RecordBroadcastSent increments the delivered snapshot counter.
func RecordBroadcastSent() { globalManager.broadcastsSent.Inc() }

// RecordBroadcastDropped increments the dropped snapshot counter.
func RecordBroadcastDropped() { globalManager.broadcastsDropped.Inc() }

// RecordReconcile counts a resync request; unchanged marks the cheap path.
func RecordReconcile(unchanged bool) {
	globalManager.reconcileRequests.Inc()
	if unchanged {
		globalManager.reconcileUnchanged.Inc()
	}
}

// RecordPersistLatency observes one storage write duration.
func RecordPersistLatency(latencyMs float64) { globalManager.persistLatency.Observe(latencyMs) }

// RecordPersistError increments the failed write counter.
func RecordPersistError() { globalManager.persistErrors.Inc() }

// RecordHTTPRequest counts one request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes one request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent counts an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom registry used for /healthz scraping.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
