// Package metrics provides Prometheus metrics for the rank benchmark.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label names.
const (
	labelStrategy  = "strategy"
	labelOperation = "operation"
)

// defaultLatencyBuckets are tuned for single round trips to a local database.
var defaultLatencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000} //nolint:gochecknoglobals // bucket layout

// Manager manages all Prometheus metrics of a benchmark run.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Rank query metrics, one series per strategy
	rankQueryLatency *prometheus.HistogramVec
	rankQueryErrors  *prometheus.CounterVec
	rankNotFound     *prometheus.CounterVec
	rankKeysExamined prometheus.Histogram

	// Benchmark results
	benchmarkMeanLatency *prometheus.GaugeVec
	benchmarkCalls       *prometheus.CounterVec

	// Seeding
	seedDocumentsInserted prometheus.Counter
	seedDuration          prometheus.Gauge
	collectionDocuments   prometheus.Gauge

	// Store round trips
	storeOperationLatency *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rankbench",
		subsystem:        "zrank",
		histogramBuckets: defaultLatencyBuckets,
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

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	m.rankQueryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rank_query_duration_milliseconds",
		Help:        "Latency of one rank computation in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{labelStrategy})

	m.rankQueryErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rank_query_errors_total",
		Help:        "Rank computations that failed",
		ConstLabels: constLabels,
	}, []string{labelStrategy})

	m.rankNotFound = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rank_not_found_total",
		Help:        "Rank computations for users that are not in the collection",
		ConstLabels: constLabels,
	}, []string{labelStrategy})

	m.rankKeysExamined = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rank_keys_examined",
		Help:        "Index keys examined by the hinted rank query",
		Buckets:     prometheus.ExponentialBuckets(1, 4, 10),
		ConstLabels: constLabels,
	})

	m.benchmarkMeanLatency = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "benchmark_mean_latency_milliseconds",
		Help:        "Mean latency per rank call of the last benchmark sweep",
		ConstLabels: constLabels,
	}, []string{labelStrategy})

	m.benchmarkCalls = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "benchmark_calls_total",
		Help:        "Timed rank calls issued by benchmark sweeps",
		ConstLabels: constLabels,
	}, []string{labelStrategy})

	m.seedDocumentsInserted = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "seed_documents_inserted_total",
		Help:        "Score records inserted while seeding",
		ConstLabels: constLabels,
	})

	m.seedDuration = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "seed_duration_seconds",
		Help:        "Wall time of the last seeding run",
		ConstLabels: constLabels,
	})

	m.collectionDocuments = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "collection_documents",
		Help:        "Documents counted in the leaderboard collection after seeding",
		ConstLabels: constLabels,
	})

	m.storeOperationLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "store_operation_duration_milliseconds",
		Help:        "Latency of individual store round trips in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{labelOperation})
}

// Rank Query Metrics Functions.

// RecordRankQueryLatency records the latency of one rank computation.
func RecordRankQueryLatency(strategy string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.rankQueryLatency.WithLabelValues(strategy).Observe(latencyMs)
}

// RecordRankQueryError increments the rank error counter of a strategy.
func RecordRankQueryError(strategy string) {
	if !globalManager.enabled {
		return
	}
	globalManager.rankQueryErrors.WithLabelValues(strategy).Inc()
}

// RecordRankNotFound increments the lookup-miss counter of a strategy.
func RecordRankNotFound(strategy string) {
	if !globalManager.enabled {
		return
	}
	globalManager.rankNotFound.WithLabelValues(strategy).Inc()
}

// RecordKeysExamined records the examined-key count of a hinted query.
func RecordKeysExamined(keys int64) {
	if !globalManager.enabled {
		return
	}
	globalManager.rankKeysExamined.Observe(float64(keys))
}

// Benchmark Metrics Functions.

// UpdateBenchmarkMeanLatency sets the mean latency of the last sweep of a strategy.
func UpdateBenchmarkMeanLatency(strategy string, meanMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.benchmarkMeanLatency.WithLabelValues(strategy).Set(meanMs)
}

// RecordBenchmarkCall increments the timed call counter of a strategy.
func RecordBenchmarkCall(strategy string) {
	if !globalManager.enabled {
		return
	}
	globalManager.benchmarkCalls.WithLabelValues(strategy).Inc()
}

// Seeding Metrics Functions.

// RecordSeedDocuments adds n inserted documents.
func RecordSeedDocuments(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.seedDocumentsInserted.Add(float64(n))
}

// UpdateSeedDuration sets the wall time of the last seeding run.
func UpdateSeedDuration(seconds float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.seedDuration.Set(seconds)
}

// UpdateCollectionDocuments sets the counted collection size.
func UpdateCollectionDocuments(count int64) {
	if !globalManager.enabled {
		return
	}
	globalManager.collectionDocuments.Set(float64(count))
}

// Store Metrics Functions.

// RecordStoreOperationLatency records the latency of a store round trip.
func RecordStoreOperationLatency(operation string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.storeOperationLatency.WithLabelValues(operation).Observe(latencyMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
