// Package metrics provides Prometheus metrics for the perfboard reporting service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	batchBuckets     []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ingestion
	uploads          *prometheus.CounterVec
	uploadDuration   *prometheus.HistogramVec
	rowsStored       *prometheus.CounterVec
	rowWarnings      *prometheus.CounterVec
	batchFiles       prometheus.Histogram
	archiveFailures  prometheus.Counter
	duplicateUploads prometheus.Counter

	// Query side
	summaryRequests prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	cacheErrors     prometheus.Counter
	queryLatency    *prometheus.HistogramVec

	// Record counts
	records *prometheus.GaugeVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInFlight        prometheus.Gauge
	rateLimited         *prometheus.CounterVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "perfboard",
		subsystem:        "api",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		batchBuckets:     []float64{1, 2, 3, 5, 10, 20},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	}, labels)
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.uploads = m.counterVec("uploads_total", "Uploaded files by kind and outcome", "kind", "status")
	m.uploadDuration = m.histogramVec("upload_duration_milliseconds", "Time spent parsing and storing one file", m.histogramBuckets, "kind")
	m.rowsStored = m.counterVec("rows_stored_total", "Rows written by uploads", "kind")
	m.rowWarnings = m.counterVec("row_warnings_total", "Rows skipped with a warning during parsing", "kind")
	m.batchFiles = m.histogram("batch_files", "Number of files per batch upload", m.batchBuckets)
	m.archiveFailures = m.counter("archive_failures_total", "Raw upload archive writes that failed")
	m.duplicateUploads = m.counter("duplicate_uploads_total", "Files rejected as duplicates inside a batch")

	m.summaryRequests = m.counter("summary_requests_total", "Dashboard summary requests")
	m.cacheHits = m.counter("summary_cache_hits_total", "Summary cache hits")
	m.cacheMisses = m.counter("summary_cache_misses_total", "Summary cache misses")
	m.cacheErrors = m.counter("summary_cache_errors_total", "Summary cache backend errors")
	m.queryLatency = m.histogramVec("repository_query_latency_milliseconds", "Repository query latency", m.histogramBuckets, "operation")

	m.records = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "records",
		Help: "Stored records by table", ConstLabels: m.constLabels,
	}, []string{"table"})

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets, "endpoint", "method", "status_code")
	m.httpInFlight = m.gauge("http_in_flight_requests", "HTTP requests currently being served")
	m.rateLimited = m.counterVec("rate_limited_total", "Requests rejected by the rate limiter", "endpoint")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordUpload counts one processed file.
func RecordUpload(kind, status string) {
	globalManager.uploads.WithLabelValues(kind, status).Inc()
}

// RecordUploadDuration records how long one file took end to end.
func RecordUploadDuration(kind string, ms float64) {
	globalManager.uploadDuration.WithLabelValues(kind).Observe(ms)
}

// RecordRowsStored adds n stored rows for kind.
func RecordRowsStored(kind string, n int) {
	globalManager.rowsStored.WithLabelValues(kind).Add(float64(n))
}

// RecordRowWarnings adds n skipped rows for kind.
func RecordRowWarnings(kind string, n int) {
	globalManager.rowWarnings.WithLabelValues(kind).Add(float64(n))
}

// RecordBatchSize observes the number of files in one batch request.
func RecordBatchSize(n int) {
	globalManager.batchFiles.Observe(float64(n))
}

// RecordArchiveFailure counts a failed raw-file archive write.
func RecordArchiveFailure() {
	globalManager.archiveFailures.Inc()
}

// RecordDuplicateUpload counts a duplicate file inside a batch.
func RecordDuplicateUpload() {
	globalManager.duplicateUploads.Inc()
}

// RecordSummaryRequest counts a summary computation request.
func RecordSummaryRequest() {
	globalManager.summaryRequests.Inc()
}

// RecordCacheHit counts a summary cache hit.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss counts a summary cache miss.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordCacheError counts a failed cache round trip.
func RecordCacheError() {
	globalManager.cacheErrors.Inc()
}

// RecordRepositoryQueryLatency records repository latency for an operation.
func RecordRepositoryQueryLatency(operation string, ms float64) {
	globalManager.queryLatency.WithLabelValues(operation).Observe(ms)
}

// UpdateRecordCount sets the number of stored rows for a table.
func UpdateRecordCount(table string, n int64) {
	globalManager.records.WithLabelValues(table).Set(float64(n))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// IncInFlight and DecInFlight track concurrently served requests.
func IncInFlight() { globalManager.httpInFlight.Inc() }

// DecInFlight decrements the in-flight gauge.
func DecInFlight() { globalManager.httpInFlight.Dec() }

// RecordRateLimited counts a request rejected by a limiter.
func RecordRateLimited(endpoint string) {
	globalManager.rateLimited.WithLabelValues(endpoint).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

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
