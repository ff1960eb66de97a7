package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheFlushes tracks persisted batches by cache name
	CacheFlushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ladder_cache_flushes_total",
			Help: "Total number of batches persisted by batching caches",
		},
		[]string{"cache"},
	)

	// CacheFlushRecords tracks the size of persisted batches
	CacheFlushRecords = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ladder_cache_flush_records",
			Help:    "Number of records per persisted batch",
			Buckets: []float64{1, 8, 16, 32, 64, 128, 256, 512, 1024},
		},
		[]string{"cache"},
	)

	// CachePersistErrors tracks failed persist calls
	CachePersistErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ladder_cache_persist_errors_total",
			Help: "Total number of failed persist calls",
		},
		[]string{"cache"},
	)

	// CachePending tracks records waiting for a full batch
	CachePending = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ladder_cache_pending_records",
			Help: "Records buffered in batching caches awaiting persistence",
		},
		[]string{"cache"},
	)
)
