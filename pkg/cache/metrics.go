package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHitsTotal tracks appraisal cache hits.
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionhouse_appraisal_cache_hits_total",
		Help: "Total number of appraisal cache hits",
	})

	// CacheMissesTotal tracks appraisal cache misses.
	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionhouse_appraisal_cache_misses_total",
		Help: "Total number of appraisal cache misses",
	})

	// CacheSetsTotal tracks appraisal cache writes.
	CacheSetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optionhouse_appraisal_cache_sets_total",
		Help: "Total number of appraisal cache writes",
	})
)
