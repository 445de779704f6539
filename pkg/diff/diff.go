// Package diff computes statistically-filtered metric deltas between two
// Spark application runs. Percent change is tri-state: a nil percent means
// the baseline was zero, so the relative change is unbounded and always
// reported as significant.
package diff

import (
	"math"
	"sort"

	"github.com/warrenzhu25/spark-insight/pkg/spark"
)

// DefaultThreshold is the minimum relative change treated as significant.
const DefaultThreshold = 0.1

// Entry describes one significant metric difference.
type Entry struct {
	Before   float64 `json:"app1_value" yaml:"app1_value"`
	After    float64 `json:"app2_value" yaml:"app2_value"`
	Absolute float64 `json:"absolute_diff" yaml:"absolute_diff"`
	// Percent is the relative change in percent, rounded to two decimals.
	// Nil when the baseline value was zero.
	Percent *float64 `json:"percent_change" yaml:"percent_change"`
}

// Result is the outcome of comparing two scalar metric maps.
type Result struct {
	Differences   map[string]Entry `json:"differences" yaml:"differences"`
	Significant   []string         `json:"significant_keys" yaml:"significant_keys"`
	Insignificant []string         `json:"insignificant_keys" yaml:"insignificant_keys"`
	Threshold     float64          `json:"threshold" yaml:"threshold"`
}

// Options tunes a comparison.
type Options struct {
	// Threshold is the minimum |relative change| to report; 0 means DefaultThreshold.
	Threshold float64
	// Exclude lists keys skipped entirely (e.g. auto-generated identifiers).
	Exclude []string
}

func (o Options) threshold() float64 {
	if o.Threshold <= 0 {
		return DefaultThreshold
	}
	return o.Threshold
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Compare diffs two scalar metric maps. Keys are unioned with absent values
// treated as zero; equal values are skipped. Only significant differences
// appear in Differences, but every differing key is classified into
// Significant or Insignificant. Output ordering is deterministic.
func Compare(before, after map[string]float64, opts Options) Result {
	threshold := opts.threshold()

	excluded := make(map[string]bool, len(opts.Exclude))
	for _, k := range opts.Exclude {
		excluded[k] = true
	}

	keys := make(map[string]bool, len(before)+len(after))
	for k := range before {
		keys[k] = true
	}
	for k := range after {
		keys[k] = true
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		if !excluded[k] {
			sorted = append(sorted, k)
		}
	}
	sort.Strings(sorted)

	result := Result{
		Differences:   make(map[string]Entry),
		Significant:   []string{},
		Insignificant: []string{},
		Threshold:     threshold,
	}

	for _, key := range sorted {
		v1 := before[key]
		v2 := after[key]
		if v1 == v2 {
			continue
		}

		var percent *float64
		significant := true
		if v1 != 0 {
			ratio := (v2 - v1) / v1
			significant = math.Abs(ratio) >= threshold
			p := round2(ratio * 100)
			percent = &p
		}

		if !significant {
			result.Insignificant = append(result.Insignificant, key)
			continue
		}

		result.Significant = append(result.Significant, key)
		result.Differences[key] = Entry{
			Before:   round2(v1),
			After:    round2(v2),
			Absolute: round2(v2 - v1),
			Percent:  percent,
		}
	}

	return result
}

// DistributionEntry holds the significant quantile deltas of one metric.
type DistributionEntry struct {
	Median *Entry `json:"median,omitempty" yaml:"median,omitempty"`
	Max    *Entry `json:"max,omitempty" yaml:"max,omitempty"`
}

// CompareDistributions diffs two sets of 5-point quantile distributions,
// comparing the median and max points of each shared metric with the scalar
// significance rule. Metrics whose quantile deltas are all insignificant are
// omitted.
func CompareDistributions(before, after map[string]spark.MetricDistribution, threshold float64) map[string]DistributionEntry {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	out := make(map[string]DistributionEntry)
	for name, d1 := range before {
		d2, ok := after[name]
		if !ok {
			continue
		}

		entry := DistributionEntry{
			Median: comparePoint(d1.Median(), d2.Median(), threshold),
			Max:    comparePoint(d1.Max(), d2.Max(), threshold),
		}
		if entry.Median != nil || entry.Max != nil {
			out[name] = entry
		}
	}
	return out
}

// comparePoint returns an Entry when the change is significant, nil otherwise.
func comparePoint(v1, v2, threshold float64) *Entry {
	if v1 == v2 {
		return nil
	}

	var percent *float64
	if v1 != 0 {
		ratio := (v2 - v1) / v1
		if math.Abs(ratio) < threshold {
			return nil
		}
		p := round2(ratio * 100)
		percent = &p
	}

	return &Entry{
		Before:   round2(v1),
		After:    round2(v2),
		Absolute: round2(v2 - v1),
		Percent:  percent,
	}
}
