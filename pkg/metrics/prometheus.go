// Package metrics provides Prometheus metrics for the lead scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	registry       prometheus.Registerer

	// Scoring
	leadsScored      *prometheus.CounterVec
	dimensionScores  *prometheus.HistogramVec
	overallScores    prometheus.Histogram
	scoringLatency   prometheus.Histogram
	scoringFallbacks *prometheus.CounterVec
	batchSize        prometheus.Histogram

	// Requests and idempotency
	scoreRequests   prometheus.Counter
	duplicateScores prometheus.Counter

	// Queue
	queueSize       prometheus.Gauge
	queueCapacity   prometheus.Gauge
	queueEnqueued   prometheus.Counter
	queueDequeued   prometheus.Counter
	queueRejections *prometheus.CounterVec

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            *prometheus.CounterVec

	// Repository
	prospectsTotal          prometheus.Gauge
	rankedLeads             prometheus.Gauge
	repositoryLatency       *prometheus.HistogramVec
	repositorySnapshotCount prometheus.Counter

	// Publishing
	eventsPublished *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics singleton

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // metrics must exist before any package records into them
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// dimensionBuckets cover the closed 1..10 scoring range at half-point steps.
var dimensionBuckets = []float64{1, 2, 3, 4, 5, 5.5, 6, 6.5, 7, 7.5, 8, 8.5, 9, 9.5, 10}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "leads",
		subsystem:      "scoring",
		latencyBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.leadsScored = m.counterVec("leads_scored_total", "Leads scored, by resulting category", "category")
	m.dimensionScores = m.histogramVec("dimension_score", "Distribution of BANT sub-scores", dimensionBuckets, "dimension")
	m.overallScores = m.histogram("overall_score", "Distribution of weighted overall scores", dimensionBuckets)
	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "Time spent computing one BANT score", m.latencyBuckets)
	m.scoringFallbacks = m.counterVec("scoring_fallbacks_total", "Dimensions that fell back to the neutral score", "dimension")
	m.batchSize = m.histogram("batch_size", "Number of prospects per batch scoring call", []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000})

	m.scoreRequests = m.counter("score_requests_total", "Asynchronous scoring requests accepted")
	m.duplicateScores = m.counter("score_requests_duplicate_total", "Scoring requests dropped as duplicates")

	m.queueSize = m.gauge("queue_size", "Current number of queued scoring requests")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of queued scoring requests")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Scoring requests enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Scoring requests dequeued")
	m.queueRejections = m.counterVec("queue_rejections_total", "Scoring requests rejected by the queue", "reason")

	m.workerCount = m.gauge("worker_count", "Number of scoring workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "End-to-end processing time of one request", m.latencyBuckets)
	m.workerErrors = m.counterVec("worker_errors_total", "Worker failures by stage", "stage")

	m.prospectsTotal = m.gauge("prospects_total", "Prospects held by the repository")
	m.rankedLeads = m.gauge("ranked_leads", "Leads present in the ranking index")
	m.repositoryLatency = m.histogramVec("repository_latency_milliseconds", "Repository operation latency", m.latencyBuckets, "operation")
	m.repositorySnapshotCount = m.counter("repository_snapshots_total", "Ranking snapshots published")

	m.eventsPublished = m.counterVec("events_published_total", "Lead events handed to the publisher", "outcome")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", m.latencyBuckets, "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordLeadScored counts one scored lead and observes its scores.
func RecordLeadScored(category string, budget, authority, need, timeline, overall float64) {
	globalManager.leadsScored.WithLabelValues(category).Inc()
	globalManager.dimensionScores.WithLabelValues("budget").Observe(budget)
	globalManager.dimensionScores.WithLabelValues("authority").Observe(authority)
	globalManager.dimensionScores.WithLabelValues("need").Observe(need)
	globalManager.dimensionScores.WithLabelValues("timeline").Observe(timeline)
	globalManager.overallScores.Observe(overall)
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordScoringFallback counts a dimension that returned the neutral score after a failure.
func RecordScoringFallback(dimension string) {
	globalManager.scoringFallbacks.WithLabelValues(dimension).Inc()
}

// RecordBatchSize observes the size of a batch scoring call.
func RecordBatchSize(n int) {
	globalManager.batchSize.Observe(float64(n))
}

// RecordScoreRequest counts an accepted asynchronous scoring request.
func RecordScoreRequest() {
	globalManager.scoreRequests.Inc()
}

// RecordDuplicateScoreRequest counts a request dropped by idempotency checks.
func RecordDuplicateScoreRequest() {
	globalManager.duplicateScores.Inc()
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an enqueued request.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a dequeued request.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueRejection counts a request the queue refused.
func RecordQueueRejection(reason string) {
	globalManager.queueRejections.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records request processing time in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a worker failure at the given stage.
func RecordWorkerError(stage string) {
	globalManager.workerErrors.WithLabelValues(stage).Inc()
}

// UpdateProspectsTotal sets the number of stored prospects.
func UpdateProspectsTotal(count int) {
	globalManager.prospectsTotal.Set(float64(count))
}

// UpdateRankedLeads sets the number of leads in the ranking index.
func UpdateRankedLeads(count int) {
	globalManager.rankedLeads.Set(float64(count))
}

// RecordRepositoryLatency records a repository operation's latency.
func RecordRepositoryLatency(operation string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// IncrementRepositorySnapshotCount counts a published ranking snapshot.
func IncrementRepositorySnapshotCount() {
	globalManager.repositorySnapshotCount.Inc()
}

// RecordEventPublished counts a publish attempt by outcome (ok, error).
func RecordEventPublished(outcome string) {
	globalManager.eventsPublished.WithLabelValues(outcome).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry holding the service metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
