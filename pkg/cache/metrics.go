package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by backend (memory, redis, postgres)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketdata_cache_hits_total",
			Help: "Total number of market-data cache hits",
		},
		[]string{"backend"},
	)

	// CacheMisses tracks cache misses (absent or expired) by backend
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketdata_cache_misses_total",
			Help: "Total number of market-data cache misses",
		},
		[]string{"backend"},
	)

	// CacheWrites tracks successful cache writes by backend
	CacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketdata_cache_writes_total",
			Help: "Total number of market-data cache writes",
		},
		[]string{"backend"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketdata_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"backend", "operation"}, // "get", "put"
	)
)
