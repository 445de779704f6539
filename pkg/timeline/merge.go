package timeline

import (
	"fmt"
	"strings"
	"time"
)

// rangeSeparator joins the two endpoints of a timestamp range label.
const rangeSeparator = " to "

// deltaKey is the difference field whose runs MergeConsecutive collapses.
const deltaKey = "diff"

// ComparisonEntry is one bucket of a side-by-side timeline comparison:
// a human-readable timestamp range and the per-run differences in it.
type ComparisonEntry struct {
	TimestampRange string             `json:"timestamp_range"`
	Differences    map[string]float64 `json:"differences"`
}

// CompareExecutorCounts aligns two timelines bucket by bucket and emits the
// executor-count delta for each shared interval. The shorter timeline bounds
// the comparison.
func CompareExecutorCounts(t1, t2 *Timeline) []ComparisonEntry {
	n := len(t1.Intervals)
	if len(t2.Intervals) < n {
		n = len(t2.Intervals)
	}

	entries := make([]ComparisonEntry, 0, n)
	for i := 0; i < n; i++ {
		iv1 := t1.Intervals[i]
		iv2 := t2.Intervals[i]
		entries = append(entries, ComparisonEntry{
			TimestampRange: rangeLabel(iv1.Start, iv1.End),
			Differences: map[string]float64{
				"app1_executors": float64(iv1.ActiveExecutors),
				"app2_executors": float64(iv2.ActiveExecutors),
				deltaKey:         float64(iv2.ActiveExecutors - iv1.ActiveExecutors),
			},
		})
	}
	return entries
}

func rangeLabel(start, end time.Time) string {
	return start.Format("15:04") + rangeSeparator + end.Format("15:04")
}

// MergeConsecutive collapses runs of consecutive entries with an equal
// executor-count delta into a single entry spanning the whole run, keeping
// the first entry's raw counts. Periods where both runs scale in lockstep
// compress even when the absolute counts churn. The operation is a single
// scan and idempotent: merging a merged slice is a no-op.
func MergeConsecutive(entries []ComparisonEntry) []ComparisonEntry {
	if len(entries) == 0 {
		return []ComparisonEntry{}
	}

	merged := make([]ComparisonEntry, 0, len(entries))
	current := entries[0]

	for _, entry := range entries[1:] {
		if current.Differences[deltaKey] == entry.Differences[deltaKey] {
			current.TimestampRange = extendRange(current.TimestampRange, entry.TimestampRange)
			continue
		}
		merged = append(merged, current)
		current = entry
	}
	merged = append(merged, current)

	return merged
}

// extendRange keeps the start of the accumulated range and adopts the end of
// the newly absorbed one.
func extendRange(current, next string) string {
	start := current
	if idx := strings.Index(current, rangeSeparator); idx >= 0 {
		start = current[:idx]
	}
	end := next
	if idx := strings.LastIndex(next, rangeSeparator); idx >= 0 {
		end = next[idx+len(rangeSeparator):]
	}
	return fmt.Sprintf("%s%s%s", start, rangeSeparator, end)
}
