package recommend

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Rule execution metrics
	ruleRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sparkinsight_recommend_rule_runs_total",
			Help: "Rule executions by outcome",
		},
		[]string{"rule", "status"}, // status: finding, no_finding, error
	)

	ruleBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sparkinsight_recommend_batch_duration_seconds",
			Help:    "Time taken to run the full rule set against a comparison",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1},
		},
	)
)
