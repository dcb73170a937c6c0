// Package metrics provides Prometheus metrics for the vigil threat-monitoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Pipeline metrics
	framesProcessed   prometheus.Counter
	frameLatency      prometheus.Histogram
	detectorErrors    *prometheus.CounterVec
	analysesStarted   prometheus.Counter
	analysesCompleted prometheus.Counter
	analysesFailed    prometheus.Counter
	activeAnalyses    prometheus.Gauge

	// Detection metrics
	eventsDetected *prometheus.CounterVec
	trackedPersons prometheus.Gauge
	trackedObjects prometheus.Gauge

	// Alert metrics
	alertsCreated      *prometheus.CounterVec
	alertStatusUpdates *prometheus.CounterVec
	broadcastSent      prometheus.Counter
	broadcastDropped   prometheus.Counter
	persistErrors      prometheus.Counter
	alertListeners     prometheus.Gauge

	// Capture metrics
	framesCaptured    prometheus.Counter
	framesDropped     prometheus.Counter
	streamReconnects  prometheus.Counter
	streamFailures    prometheus.Counter
	captureQueueDepth prometheus.Gauge

	// Ranking metrics
	rankSamplesScored  prometheus.Counter
	rankSamplesDropped prometheus.Counter
	rankUpdateErrors   prometheus.Counter
	rankQueueDepth     prometheus.Gauge
	rankWorkers        prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage prometheus.Gauge
	systemGoroutines  prometheus.Gauge
	systemGCPause     prometheus.Histogram
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
		namespace:        "vigil",
		subsystem:        "threat",
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

	m.framesProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_processed_total",
		Help:      "Total number of frames fed through threat detectors",
	})

	m.frameLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frame_latency_milliseconds",
		Help:      "Per-frame processing latency across all active detectors",
		Buckets:   m.histogramBuckets,
	})

	m.detectorErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "detector_errors_total",
			Help:      "Per-frame detector failures by threat type",
		},
		[]string{"detector"},
	)

	m.analysesStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "analyses_started_total",
		Help:      "Total number of analyses started",
	})

	m.analysesCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "analyses_completed_total",
		Help:      "Total number of analyses that ran to completion",
	})

	m.analysesFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "analyses_failed_total",
		Help:      "Total number of analyses that ended in the error state",
	})

	m.activeAnalyses = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_analyses",
		Help:      "Number of analyses currently processing frames",
	})

	m.eventsDetected = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "events_detected_total",
			Help:      "Detected events by event type, alert-worthy or not",
		},
		[]string{"type"},
	)

	m.trackedPersons = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_persons",
		Help:      "Persons tracked in the most recent processed frame",
	})

	m.trackedObjects = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_objects",
		Help:      "Objects tracked in the most recent processed frame",
	})

	m.alertsCreated = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "alerts_created_total",
			Help:      "Persisted threat alerts by threat type",
		},
		[]string{"type"},
	)

	m.alertStatusUpdates = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "alert_status_updates_total",
			Help:      "Alert status transitions by target status",
		},
		[]string{"status"},
	)

	m.broadcastSent = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "alert_broadcasts_total",
		Help:      "Alerts delivered to registered listeners",
	})

	m.broadcastDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "alert_broadcast_drops_total",
		Help:      "Alert deliveries dropped due to slow or broken listeners",
	})

	m.persistErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "alert_persist_errors_total",
		Help:      "Non-fatal alert persistence failures",
	})

	m.alertListeners = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "alert_listeners",
		Help:      "Currently registered alert broadcast listeners",
	})

	m.framesCaptured = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_captured_total",
		Help:      "Frames read from live sources by capture loops",
	})

	m.framesDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_dropped_total",
		Help:      "Frames evicted from capture queues to keep them fresh",
	})

	m.streamReconnects = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stream_reconnects_total",
		Help:      "Stream reconnection attempts",
	})

	m.streamFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stream_failures_total",
		Help:      "Streams abandoned after exhausting reconnection attempts",
	})

	m.captureQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "capture_queue_depth",
		Help:      "Frames waiting in the capture queue",
	})

	m.rankSamplesScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rank_samples_scored_total",
		Help:      "Alert samples scored into the incident severity ranking",
	})

	m.rankSamplesDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rank_samples_dropped_total",
		Help:      "Alert samples dropped because the ranking queue was full",
	})

	m.rankUpdateErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rank_update_errors_total",
		Help:      "Failed severity ranking store updates",
	})

	m.rankQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rank_queue_depth",
		Help:      "Alert samples waiting in the ranking queue",
	})

	m.rankWorkers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rank_workers",
		Help:      "Running severity ranking workers",
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

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_usage_bytes",
		Help:      "Current heap allocation in bytes",
	})

	m.systemGoroutines = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutine_count",
		Help:      "Current number of goroutines",
	})

	m.systemGCPause = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "gc_pause_milliseconds",
		Help:      "Average garbage collection pause time in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// Package-level helpers operating on the global manager.

func RecordFrameProcessed()                { globalManager.framesProcessed.Inc() }
func RecordFrameLatency(latencyMs float64) { globalManager.frameLatency.Observe(latencyMs) }

func RecordDetectorError(detector string) {
	globalManager.detectorErrors.WithLabelValues(detector).Inc()
}

func RecordAnalysisStarted()   { globalManager.analysesStarted.Inc() }
func RecordAnalysisCompleted() { globalManager.analysesCompleted.Inc() }
func RecordAnalysisFailed()    { globalManager.analysesFailed.Inc() }

func UpdateActiveAnalyses(n int) { globalManager.activeAnalyses.Set(float64(n)) }

func RecordEventDetected(eventType string) {
	globalManager.eventsDetected.WithLabelValues(eventType).Inc()
}

func UpdateTrackedPersons(n int) { globalManager.trackedPersons.Set(float64(n)) }
func UpdateTrackedObjects(n int) { globalManager.trackedObjects.Set(float64(n)) }

func RecordAlertCreated(threatType string) {
	globalManager.alertsCreated.WithLabelValues(threatType).Inc()
}

func RecordAlertStatusUpdate(status string) {
	globalManager.alertStatusUpdates.WithLabelValues(status).Inc()
}

func RecordBroadcastSent()    { globalManager.broadcastSent.Inc() }
func RecordBroadcastDropped() { globalManager.broadcastDropped.Inc() }
func RecordPersistError()     { globalManager.persistErrors.Inc() }

func UpdateAlertListeners(n int) { globalManager.alertListeners.Set(float64(n)) }

func RecordFrameCaptured()   { globalManager.framesCaptured.Inc() }
func RecordFrameDropped()    { globalManager.framesDropped.Inc() }
func RecordStreamReconnect() { globalManager.streamReconnects.Inc() }
func RecordStreamFailure()   { globalManager.streamFailures.Inc() }

func UpdateCaptureQueueDepth(n int) { globalManager.captureQueueDepth.Set(float64(n)) }

func RecordRankSampleScored()  { globalManager.rankSamplesScored.Inc() }
func RecordRankSampleDropped() { globalManager.rankSamplesDropped.Inc() }
func RecordRankUpdateError()   { globalManager.rankUpdateErrors.Inc() }

func UpdateRankQueueDepth(n int) { globalManager.rankQueueDepth.Set(float64(n)) }
func UpdateRankWorkers(n int)    { globalManager.rankWorkers.Set(float64(n)) }

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }
func UpdateSystemGoroutineCount(n int)     { globalManager.systemGoroutines.Set(float64(n)) }
func RecordSystemGCPauseTime(ms float64)   { globalManager.systemGCPause.Observe(ms) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
