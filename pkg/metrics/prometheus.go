// Package metrics provides Prometheus metrics for the exambot service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the exambot service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ingestion
	ingestRuns         *prometheus.CounterVec
	ingestDuration     prometheus.Histogram
	ingestRowsScanned  prometheus.Counter
	ingestRowsSkipped  prometheus.Counter
	ingestIssues       prometheus.Counter
	scheduleCourses    prometheus.Gauge
	scheduleGeneration prometheus.Gauge

	// Source acquisition
	sourceFetchDuration prometheus.Histogram
	sourceFetchBytes    prometheus.Gauge

	// Queries
	queryRequests *prometheus.CounterVec
	queryMisses   *prometheus.CounterVec
	queryPages    prometheus.Counter

	// Notifications
	notifyOutcomes    *prometheus.CounterVec
	notifyStepLatency *prometheus.HistogramVec
	notifyDeleted     prometheus.Counter

	// Background jobs
	jobQueueSize  prometheus.Gauge
	jobsProcessed *prometheus.CounterVec
	jobsCoalesced prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "exambot",
		subsystem:        "schedule",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	msBuckets := []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

	m.ingestRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_runs_total",
		Help:      "Ingestion runs by result",
	}, []string{"result"})

	m.ingestDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_duration_milliseconds",
		Help:      "Wall time of a full ingestion run in milliseconds",
		Buckets:   msBuckets,
	})

	m.ingestRowsScanned = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_rows_scanned_total",
		Help:      "Spreadsheet rows examined by ingestion",
	})

	m.ingestRowsSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_rows_skipped_total",
		Help:      "Spreadsheet rows skipped because the course cell was not a course",
	})

	m.ingestIssues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ingest_cell_issues_total",
		Help:      "Cells that could not be decoded and were left empty",
	})

	m.scheduleCourses = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "courses",
		Help:      "Courses in the current schedule generation",
	})

	m.scheduleGeneration = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "generation",
		Help:      "Generation number of the current schedule snapshot",
	})

	m.sourceFetchDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "source_fetch_duration_milliseconds",
		Help:      "Time spent downloading the timetable workbook",
		Buckets:   msBuckets,
	})

	m.sourceFetchBytes = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "source_fetch_bytes",
		Help:      "Size of the last downloaded workbook",
	})

	m.queryRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "query_requests_total",
		Help:      "Schedule queries by kind (exam, roles, list, ical)",
	}, []string{"kind"})

	m.queryMisses = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "query_misses_total",
		Help:      "Requested tokens that produced no line, by reason",
	}, []string{"reason"})

	m.queryPages = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "query_pages_total",
		Help:      "Formatted pages emitted",
	})

	m.notifyOutcomes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notify_outcomes_total",
		Help:      "Reconciliation outcomes by result",
	}, []string{"result"})

	m.notifyStepLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notify_step_duration_milliseconds",
		Help:      "Latency of each reconciliation step",
		Buckets:   msBuckets,
	}, []string{"step"})

	m.notifyDeleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notify_messages_deleted_total",
		Help:      "Stale notification messages deleted",
	})

	m.jobQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "job_queue_size",
		Help:      "Background jobs waiting to run",
	})

	m.jobsProcessed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "jobs_processed_total",
		Help:      "Background jobs processed by kind and result",
	}, []string{"kind", "result"})

	m.jobsCoalesced = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "jobs_coalesced_total",
		Help:      "Jobs dropped because an identical job was already pending",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Errors by component and type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Ingestion Metrics Functions.

// RecordIngestRun counts an ingestion run with its result label.
func RecordIngestRun(result string) {
	globalManager.ingestRuns.WithLabelValues(result).Inc()
}

// RecordIngestDuration records ingestion wall time in milliseconds.
func RecordIngestDuration(latencyMs float64) {
	globalManager.ingestDuration.Observe(latencyMs)
}

// RecordIngestRows adds scanned and skipped row counts.
func RecordIngestRows(scanned, skipped int) {
	globalManager.ingestRowsScanned.Add(float64(scanned))
	globalManager.ingestRowsSkipped.Add(float64(skipped))
}

// RecordIngestIssues adds undecodable cell counts.
func RecordIngestIssues(count int) {
	globalManager.ingestIssues.Add(float64(count))
}

// UpdateSchedule sets the course count and generation of the live snapshot.
func UpdateSchedule(courses int, generation uint64) {
	globalManager.scheduleCourses.Set(float64(courses))
	globalManager.scheduleGeneration.Set(float64(generation))
}

// Source Metrics Functions.

// RecordSourceFetch records a workbook download.
func RecordSourceFetch(latencyMs float64, bytes int) {
	globalManager.sourceFetchDuration.Observe(latencyMs)
	globalManager.sourceFetchBytes.Set(float64(bytes))
}

// Query Metrics Functions.

// RecordQuery counts a query of the given kind.
func RecordQuery(kind string) {
	globalManager.queryRequests.WithLabelValues(kind).Inc()
}

// RecordQueryMiss counts a miss with its reason.
func RecordQueryMiss(reason string) {
	globalManager.queryMisses.WithLabelValues(reason).Inc()
}

// RecordQueryPages adds emitted page count.
func RecordQueryPages(count int) {
	globalManager.queryPages.Add(float64(count))
}

// Notification Metrics Functions.

// RecordNotifyOutcome counts a reconciliation outcome.
func RecordNotifyOutcome(result string) {
	globalManager.notifyOutcomes.WithLabelValues(result).Inc()
}

// RecordNotifyStep records the latency of one reconciliation step.
func RecordNotifyStep(step string, latencyMs float64) {
	globalManager.notifyStepLatency.WithLabelValues(step).Observe(latencyMs)
}

// RecordNotifyDeleted adds deleted stale message count.
func RecordNotifyDeleted(count int) {
	globalManager.notifyDeleted.Add(float64(count))
}

// Job Metrics Functions.

// UpdateJobQueueSize sets the pending job count.
func UpdateJobQueueSize(size int) {
	globalManager.jobQueueSize.Set(float64(size))
}

// RecordJobProcessed counts a processed job.
func RecordJobProcessed(kind, result string) {
	globalManager.jobsProcessed.WithLabelValues(kind, result).Inc()
}

// RecordJobCoalesced counts a job dropped as a duplicate of a pending one.
func RecordJobCoalesced() {
	globalManager.jobsCoalesced.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
