package qail

import "github.com/prometheus/client_golang/prometheus"

var (
	// metricQueryTotal counts executed commands by command kind.
	metricQueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qail_query_total",
			Help: "Total number of commands executed",
		},
		[]string{"kind"},
	)

	// metricCacheHits counts statement cache hits across all connections.
	metricCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qail_statement_cache_hits_total",
			Help: "Total number of statement cache hits",
		},
	)

	// metricCacheMisses counts statement cache misses across all connections.
	metricCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qail_statement_cache_misses_total",
			Help: "Total number of statement cache misses",
		},
	)

	// metricPoolBorrows counts pool borrow operations.
	metricPoolBorrows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qail_pool_borrows_total",
			Help: "Total number of pool borrows",
		},
	)

	// metricPoolExhausted counts borrows failed on an exhausted pool.
	metricPoolExhausted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qail_pool_exhausted_total",
			Help: "Total number of borrows failed because the pool was exhausted",
		},
	)

	// metricPoolIdle reports the number of idle pooled connections.
	metricPoolIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "qail_pool_idle_connections",
			Help: "Number of idle pooled connections",
		},
	)
)

// RegisterMetrics registers the driver collectors with the given registerer.
// Registration is left to the caller, the driver holds no global registry
// state of its own.
func RegisterMetrics(registerer prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		metricQueryTotal,
		metricCacheHits,
		metricCacheMisses,
		metricPoolBorrows,
		metricPoolExhausted,
		metricPoolIdle,
	}

	for _, collector := range collectors {
		if err := registerer.Register(collector); err != nil {
			return err
		}
	}

	return nil
}
