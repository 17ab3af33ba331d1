// Package metrics provides Prometheus metrics for the signupdesk page host.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Remote API calls made by the page controller.
	apiRequests        *prometheus.CounterVec
	apiRequestDuration *prometheus.HistogramVec

	// Page behaviour.
	messagesShown      *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	activitiesRendered prometheus.Gauge
	pagesOpen          prometheus.Gauge

	// UI event loop.
	uiTasks        prometheus.Counter
	uiTaskErrors   *prometheus.CounterVec
	uiQueueSize    prometheus.Gauge
	uiTaskDuration prometheus.Histogram

	// Page host HTTP.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager registered on the configured registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "signupdesk",
		subsystem:        "page",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 7000, 10000},
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one block per collector
	auto := promauto.With(m.registry)

	m.apiRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "api_requests_total",
		Help:        "Remote API calls by endpoint and outcome",
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "outcome"})

	m.apiRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "api_request_duration_milliseconds",
		Help:        "Remote API call latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"endpoint"})

	m.messagesShown = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "messages_shown_total",
		Help:        "Status messages shown by category",
		ConstLabels: m.customLabels,
	}, []string{"category"})

	m.validationFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "validation_failures_total",
		Help:        "Signup submissions rejected before any network call",
		ConstLabels: m.customLabels,
	}, []string{"reason"})

	m.activitiesRendered = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "activities_rendered",
		Help:        "Number of activity cards rendered by the latest successful load",
		ConstLabels: m.customLabels,
	})

	m.pagesOpen = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "pages_open",
		Help:        "Pages whose event loop is currently running",
		ConstLabels: m.customLabels,
	})

	m.uiTasks = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ui_tasks_total",
		Help:        "Tasks executed on page event loops",
		ConstLabels: m.customLabels,
	})

	m.uiTaskErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ui_task_errors_total",
		Help:        "Tasks rejected or abandoned by page event loops",
		ConstLabels: m.customLabels,
	}, []string{"reason"})

	m.uiQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ui_queue_size",
		Help:        "Tasks waiting in the most recently sampled event loop",
		ConstLabels: m.customLabels,
	})

	m.uiTaskDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ui_task_duration_milliseconds",
		Help:        "Time spent running a single event loop task",
		Buckets:     []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 25, 50, 100},
		ConstLabels: m.customLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "requests_total",
		Help:        "Page host HTTP requests by route, method and status",
		ConstLabels: m.customLabels,
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "request_duration_milliseconds",
		Help:        "Page host HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"route", "method"})
}

// RecordAPIRequest counts one remote API call.
func RecordAPIRequest(endpoint, outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.apiRequests.WithLabelValues(endpoint, outcome).Inc()
}

// RecordAPILatency records a remote API call latency.
func RecordAPILatency(endpoint string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.apiRequestDuration.WithLabelValues(endpoint).Observe(latencyMs)
}

// RecordMessageShown counts a status message by category.
func RecordMessageShown(category string) {
	if !globalManager.enabled {
		return
	}
	globalManager.messagesShown.WithLabelValues(category).Inc()
}

// RecordValidationFailure counts a rejected submission.
func RecordValidationFailure(reason string) {
	if !globalManager.enabled {
		return
	}
	globalManager.validationFailures.WithLabelValues(reason).Inc()
}

// UpdateActivitiesRendered sets the number of cards last rendered.
func UpdateActivitiesRendered(count int) {
	globalManager.activitiesRendered.Set(float64(count))
}

// IncPagesOpen marks one more running page loop.
func IncPagesOpen() { globalManager.pagesOpen.Inc() }

// DecPagesOpen marks one page loop stopped.
func DecPagesOpen() { globalManager.pagesOpen.Dec() }

// RecordUITask counts one executed event loop task and its duration.
func RecordUITask(durationMs float64) {
	globalManager.uiTasks.Inc()
	globalManager.uiTaskDuration.Observe(durationMs)
}

// RecordUITaskError counts a task the loop could not run.
func RecordUITaskError(reason string) {
	globalManager.uiTaskErrors.WithLabelValues(reason).Inc()
}

// UpdateUIQueueSize sets the sampled event loop backlog.
func UpdateUIQueueSize(size int) {
	globalManager.uiQueueSize.Set(float64(size))
}

// RecordHTTPRequest records a page host request.
func RecordHTTPRequest(route, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(route, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(route, method).Observe(durationMs)
}

// Init rebuilds the global manager on a fresh registry with opts. It is
// meant to be called once at startup, before any page is served.
func Init(opts ...Option) {
	registry := prometheus.NewRegistry()
	globalManager = NewManager(append(opts[:len(opts):len(opts)], WithPrometheusRegistry(registry))...)
	customRegistry = registry
}

// Enabled reports whether page components record metrics.
func Enabled() bool { return globalManager.enabled }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
