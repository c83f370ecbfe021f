// Package metrics provides Prometheus metrics for the epocher service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the epocher service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Matching metrics
	conditionsProcessed *prometheus.CounterVec
	outcomes            *prometheus.CounterVec
	outputRows          prometheus.Counter
	matchingLatency     prometheus.Histogram
	markersSkipped      prometheus.Counter
	policyMissing       prometheus.Counter

	// Detection metrics
	eventsDetected *prometheus.CounterVec

	// Job metrics
	jobsSubmitted  prometheus.Counter
	jobsDuplicate  prometheus.Counter
	jobsCompleted  *prometheus.CounterVec
	jobLatency     prometheus.Histogram
	storedResults  prometheus.Gauge
	dedupeEntries  prometheus.Gauge
	queueSize      prometheus.Gauge
	queueCapacity  prometheus.Gauge
	queueRejected  *prometheus.CounterVec
	workerCount    prometheus.Gauge
	workerBusy     prometheus.Gauge
	workerFailures prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
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
		namespace:        "epocher",
		subsystem:        "matching",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.conditionsProcessed = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("conditions_total"),
		Help:        "Conditions processed by result (ok, skipped, failed)",
		ConstLabels: labels,
	}, []string{"result"})

	m.outcomes = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("outcomes_total"),
		Help:        "Output records by outcome",
		ConstLabels: labels,
	}, []string{"outcome"})

	m.outputRows = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("output_rows_total"),
		Help:        "Total number of output records emitted by the matching engine",
		ConstLabels: labels,
	})

	m.matchingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("engine_latency_milliseconds"),
		Help:        "Matching engine invocation latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.markersSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("markers_out_of_range_total"),
		Help:        "Markers dropped because their window starts before sample 0",
		ConstLabels: labels,
	})

	m.policyMissing = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("counts_policy_missing_total"),
		Help:        "Engine invocations that ran without a counts policy",
		ConstLabels: labels,
	})

	m.eventsDetected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("events_detected_total"),
		Help:        "Events detected on trigger channels",
		ConstLabels: labels,
	}, []string{"channel"})

	m.jobsSubmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("jobs_submitted_total"),
		Help:        "Jobs accepted into the queue",
		ConstLabels: labels,
	})

	m.jobsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("jobs_duplicate_total"),
		Help:        "Jobs rejected as duplicates",
		ConstLabels: labels,
	})

	m.jobsCompleted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("jobs_completed_total"),
		Help:        "Jobs completed by status (ok, partial)",
		ConstLabels: labels,
	}, []string{"status"})

	m.jobLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("job_latency_milliseconds"),
		Help:        "Time to process one job in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.storedResults = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("stored_results"),
		Help:        "Job results held in the repository",
		ConstLabels: labels,
	})

	m.dedupeEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("dedupe_entries"),
		Help:        "Job ids tracked by the deduper",
		ConstLabels: labels,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_size"),
		Help:        "Current number of queued jobs",
		ConstLabels: labels,
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_capacity"),
		Help:        "Maximum number of queued jobs",
		ConstLabels: labels,
	})

	m.queueRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_rejected_total"),
		Help:        "Jobs the queue refused, by reason",
		ConstLabels: labels,
	}, []string{"reason"})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("worker_count"),
		Help:        "Number of job workers",
		ConstLabels: labels,
	})

	m.workerBusy = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("worker_busy"),
		Help:        "Workers currently processing a job",
		ConstLabels: labels,
	})

	m.workerFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("worker_failures_total"),
		Help:        "Jobs a worker could not store",
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_requests_total"),
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_total"),
		Help:        "Errors by component and type",
		ConstLabels: labels,
	}, []string{"component", "error_type"})
}

// RecordCondition counts a processed condition by result.
func RecordCondition(result string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.conditionsProcessed.WithLabelValues(result).Inc()
	}
}

// RecordOutcome counts one output record with the given outcome name.
func RecordOutcome(outcome string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.outcomes.WithLabelValues(outcome).Inc()
	}
}

// RecordOutputRows adds n emitted output records.
func RecordOutputRows(n int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.outputRows.Add(float64(n))
	}
}

// RecordMatchingLatency records one engine invocation.
func RecordMatchingLatency(latencyMs float64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.matchingLatency.Observe(latencyMs)
	}
}

// RecordMarkersSkipped adds n out-of-range markers.
func RecordMarkersSkipped(n int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.markersSkipped.Add(float64(n))
	}
}

// RecordPolicyMissing counts an invocation without a counts policy.
func RecordPolicyMissing() {
	if globalManager != nil && globalManager.enabled {
		globalManager.policyMissing.Inc()
	}
}

// RecordEventsDetected adds n detected events for a channel.
func RecordEventsDetected(channel string, n int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.eventsDetected.WithLabelValues(channel).Add(float64(n))
	}
}

// RecordJobSubmitted counts an accepted job.
func RecordJobSubmitted() {
	if globalManager != nil && globalManager.enabled {
		globalManager.jobsSubmitted.Inc()
	}
}

// RecordJobDuplicate counts a duplicate job submission.
func RecordJobDuplicate() {
	if globalManager != nil && globalManager.enabled {
		globalManager.jobsDuplicate.Inc()
	}
}

// RecordJobCompleted counts a finished job by status.
func RecordJobCompleted(status string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.jobsCompleted.WithLabelValues(status).Inc()
	}
}

// RecordJobLatency records the processing time of one job.
func RecordJobLatency(latencyMs float64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.jobLatency.Observe(latencyMs)
	}
}

// UpdateStoredResults sets the repository size.
func UpdateStoredResults(count int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.storedResults.Set(float64(count))
	}
}

// UpdateDedupeEntries sets the number of tracked job ids.
func UpdateDedupeEntries(count int64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.dedupeEntries.Set(float64(count))
	}
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.queueCapacity.Set(float64(capacity))
	}
}

// RecordQueueRejected counts a refused enqueue.
func RecordQueueRejected(reason string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.queueRejected.WithLabelValues(reason).Inc()
	}
}

// UpdateWorkerCount sets the number of workers.
func UpdateWorkerCount(count int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.workerCount.Set(float64(count))
	}
}

// AddWorkerBusy moves the busy-worker gauge by delta.
func AddWorkerBusy(delta int) {
	if globalManager != nil && globalManager.enabled {
		globalManager.workerBusy.Add(float64(delta))
	}
}

// RecordWorkerFailure counts a job a worker could not complete.
func RecordWorkerFailure() {
	if globalManager != nil && globalManager.enabled {
		globalManager.workerFailures.Inc()
	}
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records the duration of an HTTP request.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if globalManager != nil && globalManager.enabled {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByComponent counts an error raised by a component.
func RecordErrorByComponent(component, errorType string) {
	if globalManager != nil && globalManager.enabled {
		globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// GetRegistry returns the custom registry serving the global metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
