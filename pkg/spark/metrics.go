package spark

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// History Server client metrics
	clientRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sparkinsight_client_requests_total",
			Help: "Total number of History Server API requests",
		},
		[]string{"endpoint", "status"}, // status: success or error
	)

	clientRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sparkinsight_client_request_duration_seconds",
			Help:    "History Server API request latency including retries",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	clientCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sparkinsight_client_cache_total",
			Help: "Disk cache lookups by result",
		},
		[]string{"result"}, // hit or miss
	)
)
