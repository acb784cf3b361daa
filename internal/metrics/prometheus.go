package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the celestial server
type Metrics struct {
	// Operation metrics
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	RequestErrors    *prometheus.CounterVec

	// Result cache metrics
	ResultCacheHitsTotal   prometheus.Counter
	ResultCacheMissesTotal prometheus.Counter
	ResultCacheEntries     prometheus.Gauge
	ResultStoreWritesTotal prometheus.Counter

	// Provider factory metrics
	ProviderBuildsTotal   *prometheus.CounterVec
	ProviderBuildDuration prometheus.Histogram

	// Prerequisite cache metrics
	PrereqFetchesTotal   prometheus.Counter
	PrereqFetchDuration  prometheus.Histogram
	PrereqCacheHitsTotal prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics on reg.
// A nil registerer uses the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "celestio",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Total number of operation requests",
		}, []string{"operation", "backend"}),
		RequestsDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "celestio",
			Subsystem: "server",
			Name:      "request_duration_seconds",
			Help:      "Operation request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		RequestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "celestio",
			Subsystem: "server",
			Name:      "request_errors_total",
			Help:      "Total number of failed operation requests",
		}, []string{"operation", "code"}),

		ResultCacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "celestio",
			Subsystem: "result_cache",
			Name:      "hits_total",
			Help:      "Total number of result cache hits",
		}),
		ResultCacheMissesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "celestio",
			Subsystem: "result_cache",
			Name:      "misses_total",
			Help:      "Total number of result cache misses",
		}),
		ResultCacheEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "celestio",
			Subsystem: "result_cache",
			Name:      "entries",
			Help:      "Number of entries in the in-process result cache",
		}),
		ResultStoreWritesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "celestio",
			Subsystem: "result_cache",
			Name:      "store_writes_total",
			Help:      "Total number of durable result store writes",
		}),

		ProviderBuildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "celestio",
			Subsystem: "factory",
			Name:      "provider_builds_total",
			Help:      "Total number of provider instance constructions",
		}, []string{"backend"}),
		ProviderBuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "celestio",
			Subsystem: "factory",
			Name:      "provider_build_duration_seconds",
			Help:      "Provider construction duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		PrereqFetchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "celestio",
			Subsystem: "prereq_cache",
			Name:      "fetches_total",
			Help:      "Total number of prerequisite file fetches from the byte store",
		}),
		PrereqFetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "celestio",
			Subsystem: "prereq_cache",
			Name:      "fetch_duration_seconds",
			Help:      "Prerequisite fetch duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 180},
		}),
		PrereqCacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "celestio",
			Subsystem: "prereq_cache",
			Name:      "hits_total",
			Help:      "Total number of prerequisite requests served from the warm local cache",
		}),
	}
}
