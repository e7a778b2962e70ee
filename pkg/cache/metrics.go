package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by operation
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"operation"}, // "items", "details"
	)

	// CacheMisses tracks cache misses by operation
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_cache_misses_total",
			Help: "Total number of response cache misses",
		},
		[]string{"operation"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
