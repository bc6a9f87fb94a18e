// Package metrics provides Prometheus metrics for the valuation service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Valuation metrics
	valuationsTotal     prometheus.Counter
	valuationErrors     prometheus.Counter
	fallbackValuations  prometheus.Counter
	predictionLatency   prometheus.Histogram
	uncertaintyPercent  prometheus.Histogram
	predictorsLoaded    prometheus.Gauge
	registryDegraded    prometheus.Gauge

	// Cache metrics
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheStoreFailures prometheus.Counter
	cacheLookupLatency prometheus.Histogram

	// Batch metrics
	batchRequests     prometheus.Counter
	batchItems        prometheus.Counter
	batchItemFailures prometheus.Counter

	// Fanout metrics
	fanoutConnections prometheus.Gauge
	fanoutBroadcasts  prometheus.Counter
	fanoutSendErrors  prometheus.Counter

	// Persistence metrics
	persistQueueDepth prometheus.Gauge
	persistWrites     prometheus.Counter
	persistFailures   prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid the default Go collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager with the provided options.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "appraisal",
		subsystem:        "valuation",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // metric registration is inherently long
	auto := promauto.With(m.registry)

	m.valuationsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "valuations_total",
		Help:      "Total number of valuations computed",
	})

	m.valuationErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "valuation_errors_total",
		Help:      "Total number of valuation requests rejected as invalid",
	})

	m.fallbackValuations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fallback_valuations_total",
		Help:      "Total number of valuations served by the income-capitalization fallback",
	})

	m.predictionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "prediction_latency_milliseconds",
		Help:      "Histogram of end-to-end prediction latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.uncertaintyPercent = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "uncertainty_percentage",
		Help:      "Histogram of reported uncertainty percentages",
		Buckets:   []float64{1.5, 2.0, 2.5, 3.0, 3.5, 4.0},
	})

	m.predictorsLoaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "predictors_loaded",
		Help:      "Number of predictors currently loaded in the registry",
	})

	m.registryDegraded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "registry_degraded",
		Help:      "1 when the predictor registry is running in degraded (fallback) mode",
	})

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_hits_total",
		Help:      "Total number of request cache hits",
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_misses_total",
		Help:      "Total number of request cache misses",
	})

	m.cacheStoreFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_store_failures_total",
		Help:      "Total number of cache store errors degraded to misses",
	})

	m.cacheLookupLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_lookup_latency_milliseconds",
		Help:      "Histogram of cache lookup latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.batchRequests = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_requests_total",
		Help:      "Total number of batch valuation requests",
	})

	m.batchItems = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_items_total",
		Help:      "Total number of items processed across all batches",
	})

	m.batchItemFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_item_failures_total",
		Help:      "Total number of per-item failures captured in batch results",
	})

	m.fanoutConnections = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fanout_connections",
		Help:      "Current number of live notification subscribers",
	})

	m.fanoutBroadcasts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fanout_broadcasts_total",
		Help:      "Total number of broadcast messages sent",
	})

	m.fanoutSendErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fanout_send_errors_total",
		Help:      "Total number of failed subscriber sends (subscriber removed)",
	})

	m.persistQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persist_queue_depth",
		Help:      "Current depth of the write-behind persistence queue",
	})

	m.persistWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persist_writes_total",
		Help:      "Total number of valuations written to the persistence store",
	})

	m.persistFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persist_failures_total",
		Help:      "Total number of persistence writes that failed (logged, never surfaced)",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint, method and status code",
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
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Current heap memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Current number of goroutines",
	})
}

// Package-level helpers operating on the global manager.

func RecordValuation() {
	globalManager.valuationsTotal.Inc()
}

func RecordValuationError() {
	globalManager.valuationErrors.Inc()
}

func RecordFallbackValuation() {
	globalManager.fallbackValuations.Inc()
}

func RecordPredictionLatency(latencyMs float64) {
	globalManager.predictionLatency.Observe(latencyMs)
}

func RecordUncertainty(percent float64) {
	globalManager.uncertaintyPercent.Observe(percent)
}

func UpdatePredictorsLoaded(count int) {
	globalManager.predictorsLoaded.Set(float64(count))
}

func UpdateRegistryDegraded(degraded bool) {
	v := 0.0
	if degraded {
		v = 1.0
	}
	globalManager.registryDegraded.Set(v)
}

func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

func RecordCacheStoreFailure() {
	globalManager.cacheStoreFailures.Inc()
}

func RecordCacheLookupLatency(latencyMs float64) {
	globalManager.cacheLookupLatency.Observe(latencyMs)
}

func RecordBatchRequest() {
	globalManager.batchRequests.Inc()
}

func RecordBatchItems(count int) {
	globalManager.batchItems.Add(float64(count))
}

func RecordBatchItemFailure() {
	globalManager.batchItemFailures.Inc()
}

func UpdateFanoutConnections(count int) {
	globalManager.fanoutConnections.Set(float64(count))
}

func RecordBroadcast() {
	globalManager.fanoutBroadcasts.Inc()
}

func RecordFanoutSendError() {
	globalManager.fanoutSendErrors.Inc()
}

func UpdatePersistQueueDepth(depth int) {
	globalManager.persistQueueDepth.Set(float64(depth))
}

func RecordPersistWrite() {
	globalManager.persistWrites.Inc()
}

func RecordPersistFailure() {
	globalManager.persistFailures.Inc()
}

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// Handler returns an http.Handler serving the custom registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}

// GetRegistry exposes the custom registry for test assertions.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
