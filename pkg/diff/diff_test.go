package diff

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warrenzhu25/spark-insight/pkg/spark"
)

func TestCompareSignificantChange(t *testing.T) {
	result := Compare(
		map[string]float64{"x": 100},
		map[string]float64{"x": 150},
		Options{},
	)

	require.Contains(t, result.Differences, "x")
	entry := result.Differences["x"]
	assert.Equal(t, 100.0, entry.Before)
	assert.Equal(t, 150.0, entry.After)
	assert.Equal(t, 50.0, entry.Absolute)
	require.NotNil(t, entry.Percent)
	assert.Equal(t, 50.0, *entry.Percent)
	assert.Equal(t, []string{"x"}, result.Significant)
	assert.Empty(t, result.Insignificant)
}

func TestCompareInsignificantChange(t *testing.T) {
	result := Compare(
		map[string]float64{"x": 100},
		map[string]float64{"x": 105},
		Options{Threshold: 0.1},
	)

	assert.Empty(t, result.Differences)
	assert.Empty(t, result.Significant)
	assert.Equal(t, []string{"x"}, result.Insignificant)
}

func TestCompareZeroBaseline(t *testing.T) {
	result := Compare(
		map[string]float64{"x": 0},
		map[string]float64{"x": 5},
		Options{},
	)

	require.Contains(t, result.Differences, "x")
	entry := result.Differences["x"]
	assert.Nil(t, entry.Percent, "zero baseline yields nil percent")
	assert.Equal(t, 5.0, entry.Absolute)
	assert.Equal(t, []string{"x"}, result.Significant, "unbounded change is always significant")
}

func TestCompareEqualValuesSkipped(t *testing.T) {
	result := Compare(
		map[string]float64{"x": 42, "y": 0},
		map[string]float64{"x": 42, "y": 0},
		Options{},
	)

	assert.Empty(t, result.Differences)
	assert.Empty(t, result.Significant)
	assert.Empty(t, result.Insignificant)
}

func TestCompareAbsentKeysTreatedAsZero(t *testing.T) {
	result := Compare(
		map[string]float64{"only_before": 10},
		map[string]float64{"only_after": 20},
		Options{},
	)

	require.Contains(t, result.Differences, "only_before")
	require.Contains(t, result.Differences, "only_after")

	gone := result.Differences["only_before"]
	assert.Equal(t, -10.0, gone.Absolute)
	require.NotNil(t, gone.Percent)
	assert.Equal(t, -100.0, *gone.Percent)

	appeared := result.Differences["only_after"]
	assert.Equal(t, 20.0, appeared.Absolute)
	assert.Nil(t, appeared.Percent)
}

func TestCompareExclude(t *testing.T) {
	result := Compare(
		map[string]float64{"keep": 1, "skip": 1},
		map[string]float64{"keep": 10, "skip": 10},
		Options{Exclude: []string{"skip"}},
	)

	assert.Contains(t, result.Differences, "keep")
	assert.NotContains(t, result.Differences, "skip")
}

func TestCompareDeterministicOrder(t *testing.T) {
	before := map[string]float64{"c": 1, "a": 1, "b": 1}
	after := map[string]float64{"c": 10, "a": 10, "b": 10}

	result := Compare(before, after, Options{})
	assert.Equal(t, []string{"a", "b", "c"}, result.Significant)
}

func TestCompareDefaultThreshold(t *testing.T) {
	result := Compare(nil, nil, Options{})
	assert.Equal(t, DefaultThreshold, result.Threshold)

	result = Compare(nil, nil, Options{Threshold: 0.3})
	assert.Equal(t, 0.3, result.Threshold)
}

func TestCompareDistributions(t *testing.T) {
	before := map[string]spark.MetricDistribution{
		"executorRunTime": {10, 20, 100, 200, 500},
		"jvmGcTime":       {1, 2, 3, 4, 5},
		"unchanged":       {1, 1, 1, 1, 1},
	}
	after := map[string]spark.MetricDistribution{
		"executorRunTime": {10, 20, 200, 200, 1000},
		"jvmGcTime":       {1, 2, 3, 4, 5},
		"onlyAfter":       {9, 9, 9, 9, 9},
	}

	out := CompareDistributions(before, after, 0.1)

	require.Contains(t, out, "executorRunTime")
	entry := out["executorRunTime"]
	require.NotNil(t, entry.Median)
	assert.Equal(t, 100.0, entry.Median.Before)
	assert.Equal(t, 200.0, entry.Median.After)
	require.NotNil(t, entry.Max)
	assert.Equal(t, 1000.0, entry.Max.After)

	assert.NotContains(t, out, "jvmGcTime", "identical distributions are omitted")
	assert.NotContains(t, out, "unchanged")
	assert.NotContains(t, out, "onlyAfter", "metrics missing on one side are skipped")
}

func TestSafeRatio(t *testing.T) {
	tests := []struct {
		name string
		v1   float64
		v2   float64
		want float64
	}{
		{"normal", 2, 6, 3},
		{"both zero", 0, 0, 1},
		{"shrinking", 10, 5, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeRatio(tt.v1, tt.v2))
		})
	}

	assert.True(t, math.IsInf(SafeRatio(0, 5), 1), "zero baseline with growth is unbounded")
}

func TestFilterSignificantRatios(t *testing.T) {
	metrics := map[string]float64{
		"gc_time_ratio":          1.05,
		"run_time_ratio":         1.5,
		"memory_percent_change":  5,
		"shuffle_percent_change": -40,
		"executor_count":         8,
	}

	out := FilterSignificantRatios(metrics, 0.1)

	assert.NotContains(t, out, "gc_time_ratio")
	assert.Contains(t, out, "run_time_ratio")
	assert.NotContains(t, out, "memory_percent_change")
	assert.Contains(t, out, "shuffle_percent_change")
	assert.Contains(t, out, "executor_count", "non-ratio keys pass through")
}
