package comparator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Comparison metrics
	comparisonDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sparkinsight_comparison_duration_seconds",
			Help:    "Time taken to produce a full comparison report",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		},
	)

	comparisonsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sparkinsight_comparisons_total",
			Help: "Total number of comparison attempts",
		},
		[]string{"status"}, // success or error
	)

	sectionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sparkinsight_comparison_section_failures_total",
			Help: "Report sections that degraded to an error entry",
		},
		[]string{"section"},
	)
)
