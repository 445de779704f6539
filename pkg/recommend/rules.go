package recommend

import (
	"context"
	"fmt"
	"math"

	"github.com/warrenzhu25/spark-insight/pkg/diff"
	"github.com/warrenzhu25/spark-insight/pkg/spark"
)

// Built-in threshold fallbacks.
const (
	defaultLargeStageDiffSeconds = 60.0
	defaultGCPressureThreshold   = 0.2

	// skewRatioHigh/Low bound acceptable resource ratios between runs.
	skewRatioHigh = 1.5
	skewRatioLow  = 1.0 / skewRatioHigh

	// executorCountSkew is the relative executor-count difference worth flagging.
	executorCountSkew = 0.5

	// successRateDrop is the job success-rate decline worth flagging.
	successRateDrop = 0.1
)

func defaultRules() []namedRule {
	return []namedRule{
		{name: "resource_allocation", run: resourceAllocationRule},
		{name: "stage_regression", run: largeStageRegressionRule},
		{name: "gc_pressure", run: gcPressureRule},
		{name: "executor_count", run: executorCountRule},
		{name: "memory_spill", run: memorySpillRule},
		{name: "shuffle_volume", run: shuffleVolumeRule},
		{name: "job_success_rate", run: jobSuccessRateRule},
	}
}

func (t Thresholds) largeStageDiff() float64 {
	if t.LargeStageDiffSeconds <= 0 {
		return defaultLargeStageDiffSeconds
	}
	return t.LargeStageDiffSeconds
}

func (t Thresholds) gcPressure() float64 {
	if t.GCPressureThreshold <= 0 {
		return defaultGCPressureThreshold
	}
	return t.GCPressureThreshold
}

func intOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func skewed(ratio float64) bool {
	return ratio > skewRatioHigh || ratio < skewRatioLow
}

// resourceAllocationRule flags runs whose granted cores or per-executor
// memory differ enough that the comparison itself is apples to oranges.
func resourceAllocationRule(_ context.Context, rc *Context) (*Recommendation, error) {
	if rc.App1 == nil || rc.App2 == nil {
		return nil, nil
	}

	cores1 := intOr(rc.App1.CoresGranted, intOr(rc.App1.MaxCores, 0))
	cores2 := intOr(rc.App2.CoresGranted, intOr(rc.App2.MaxCores, 0))
	mem1 := intOr(rc.App1.MemoryPerExecutorMB, 0)
	mem2 := intOr(rc.App2.MemoryPerExecutorMB, 0)

	coreRatio := diff.SafeRatio(float64(cores1), float64(cores2))
	memRatio := diff.SafeRatio(float64(mem1), float64(mem2))

	coreSkew := cores1 > 0 && cores2 > 0 && skewed(coreRatio)
	memSkew := mem1 > 0 && mem2 > 0 && skewed(memRatio)
	if !coreSkew && !memSkew {
		return nil, nil
	}

	under := rc.App1.ID
	if coreRatio < 1 || (!coreSkew && memRatio < 1) {
		under = rc.App2.ID
	}

	return &Recommendation{
		Type:     "resource_allocation",
		Priority: PriorityMedium,
		Issue:    fmt.Sprintf("resource allocation differs significantly between runs; %s is under-provisioned", under),
		Suggestion: "Align executor cores and memory between runs before comparing performance; " +
			"differences in allocation dominate most other effects.",
		Details: map[string]any{
			"app1_cores":              cores1,
			"app2_cores":              cores2,
			"core_ratio":              coreRatio,
			"app1_memory_per_exec_mb": mem1,
			"app2_memory_per_exec_mb": mem2,
			"memory_ratio":            memRatio,
		},
	}, nil
}

// largeStageRegressionRule flags the worst matched-stage duration regression
// above the configured threshold.
func largeStageRegressionRule(_ context.Context, rc *Context) (*Recommendation, error) {
	threshold := rc.Thresholds.largeStageDiff()

	var worst *Recommendation
	worstDiff := 0.0

	for _, m := range rc.StageMatches {
		d1 := m.Stage1.DurationSeconds()
		d2 := m.Stage2.DurationSeconds()
		if d1 <= 0 || d2 <= 0 {
			continue
		}

		delta := math.Abs(d2 - d1)
		if delta <= threshold || delta <= worstDiff {
			continue
		}
		worstDiff = delta

		slower := appID(rc.App1)
		slowStage := m.Stage1.StageID
		if d2 > d1 {
			slower = appID(rc.App2)
			slowStage = m.Stage2.StageID
		}

		worst = &Recommendation{
			Type:     "stage_regression",
			Priority: PriorityHigh,
			Issue: fmt.Sprintf("stage %q is %.0fs slower in %s (stage %d)",
				m.Stage1.Name, delta, slower, slowStage),
			Suggestion: "Inspect the slower stage's task metrics for skew, spill, or shuffle " +
				"growth; it accounts for the largest runtime difference between the runs.",
			Details: map[string]any{
				"stage_name":      m.Stage1.Name,
				"app1_duration_s": d1,
				"app2_duration_s": d2,
				"diff_seconds":    delta,
				"slower_app":      slower,
			},
		}
	}

	return worst, nil
}

// gcPressureRule flags a run spending an outsized share of executor time in GC.
func gcPressureRule(_ context.Context, rc *Context) (*Recommendation, error) {
	threshold := rc.Thresholds.gcPressure()

	ratio1 := gcRatio(rc.Executors1)
	ratio2 := gcRatio(rc.Executors2)
	if ratio1 <= threshold && ratio2 <= threshold {
		return nil, nil
	}

	pressured := appID(rc.App1)
	ratio := ratio1
	if ratio2 > ratio1 {
		pressured = appID(rc.App2)
		ratio = ratio2
	}

	return &Recommendation{
		Type:     "gc_pressure",
		Priority: PriorityHigh,
		Issue:    fmt.Sprintf("%s spends %.0f%% of executor time in garbage collection", pressured, ratio*100),
		Suggestion: "Increase executor memory or reduce per-task memory pressure " +
			"(fewer cores per executor, more partitions) to bring GC time down.",
		Details: map[string]any{
			"app1_gc_ratio": ratio1,
			"app2_gc_ratio": ratio2,
			"threshold":     threshold,
		},
	}, nil
}

// executorCountRule flags runs with substantially different executor counts.
func executorCountRule(_ context.Context, rc *Context) (*Recommendation, error) {
	count1 := executorCount(rc.Executors1)
	count2 := executorCount(rc.Executors2)
	if count1 == 0 && count2 == 0 {
		return nil, nil
	}

	larger := math.Max(float64(count1), float64(count2))
	if larger == 0 {
		return nil, nil
	}
	relDiff := math.Abs(float64(count2-count1)) / larger
	if relDiff <= executorCountSkew {
		return nil, nil
	}

	return &Recommendation{
		Type:     "executor_count",
		Priority: PriorityMedium,
		Issue: fmt.Sprintf("executor counts differ by %.0f%% (%d vs %d)",
			relDiff*100, count1, count2),
		Suggestion: "Check dynamic allocation settings and cluster capacity; " +
			"a large executor-count gap usually explains throughput differences.",
		Details: map[string]any{
			"app1_executors": count1,
			"app2_executors": count2,
		},
	}, nil
}

// memorySpillRule flags a run that started spilling to memory/disk.
func memorySpillRule(_ context.Context, rc *Context) (*Recommendation, error) {
	spill1 := totalSpill(rc.Stages1)
	spill2 := totalSpill(rc.Stages2)
	if spill2 == 0 {
		return nil, nil
	}
	if spill1 > 0 && diff.SafeRatio(float64(spill1), float64(spill2)) < skewRatioHigh {
		return nil, nil
	}

	return &Recommendation{
		Type:     "memory_spill",
		Priority: PriorityMedium,
		Issue: fmt.Sprintf("%s spills %s to memory/disk during execution",
			appID(rc.App2), formatBytes(spill2)),
		Suggestion: "Increase spark.executor.memory or spark.sql.shuffle.partitions " +
			"so working sets fit in memory; spilling is a common source of regressions.",
		Details: map[string]any{
			"app1_spill_bytes": spill1,
			"app2_spill_bytes": spill2,
		},
	}, nil
}

// shuffleVolumeRule reports large changes in total shuffle volume.
func shuffleVolumeRule(_ context.Context, rc *Context) (*Recommendation, error) {
	vol1 := totalShuffle(rc.Stages1)
	vol2 := totalShuffle(rc.Stages2)
	if vol1 == 0 || vol2 == 0 {
		return nil, nil
	}

	ratio := diff.SafeRatio(float64(vol1), float64(vol2))
	if !skewed(ratio) {
		return nil, nil
	}

	return &Recommendation{
		Type:     "shuffle_volume",
		Priority: PriorityLow,
		Issue: fmt.Sprintf("total shuffle volume changed %.1fx between runs (%s vs %s)",
			ratio, formatBytes(vol1), formatBytes(vol2)),
		Suggestion: "A shuffle volume change of this size usually means different input " +
			"data or a changed query plan; verify the runs are comparable.",
		Details: map[string]any{
			"app1_shuffle_bytes": vol1,
			"app2_shuffle_bytes": vol2,
		},
	}, nil
}

// jobSuccessRateRule flags a drop in job success rate between the runs.
func jobSuccessRateRule(_ context.Context, rc *Context) (*Recommendation, error) {
	rate1, ok1 := successRate(rc.Jobs1)
	rate2, ok2 := successRate(rc.Jobs2)
	if !ok1 || !ok2 {
		return nil, nil
	}
	if rate2 >= rate1-successRateDrop {
		return nil, nil
	}

	return &Recommendation{
		Type:     "job_success_rate",
		Priority: PriorityHigh,
		Issue: fmt.Sprintf("job success rate dropped from %.0f%% to %.0f%% in %s",
			rate1*100, rate2*100, appID(rc.App2)),
		Suggestion: "Inspect failed jobs and their stages for task failures; " +
			"retried work inflates runtime and skews every other comparison.",
		Details: map[string]any{
			"app1_success_rate": rate1,
			"app2_success_rate": rate2,
		},
	}, nil
}

// helpers

func appID(app *spark.ApplicationInfo) string {
	if app == nil {
		return "unknown"
	}
	return app.ID
}

func gcRatio(executors []spark.ExecutorSummary) float64 {
	var gc, run int64
	for i := range executors {
		gc += executors[i].TotalGCTime
		run += executors[i].TotalDuration
	}
	if run == 0 {
		return 0
	}
	return float64(gc) / float64(run)
}

func executorCount(executors []spark.ExecutorSummary) int {
	count := 0
	for i := range executors {
		if !executors[i].IsDriver() {
			count++
		}
	}
	return count
}

func totalSpill(stages []spark.StageData) int64 {
	var total int64
	for i := range stages {
		total += stages[i].MemoryBytesSpilled + stages[i].DiskBytesSpilled
	}
	return total
}

func totalShuffle(stages []spark.StageData) int64 {
	var total int64
	for i := range stages {
		total += stages[i].ShuffleReadBytes + stages[i].ShuffleWriteBytes
	}
	return total
}

func successRate(jobs []spark.JobData) (float64, bool) {
	if len(jobs) == 0 {
		return 0, false
	}
	succeeded := 0
	for i := range jobs {
		if jobs[i].Status == "SUCCEEDED" {
			succeeded++
		}
	}
	return float64(succeeded) / float64(len(jobs)), true
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(b)/float64(div), "KMGTPE"[exp])
}
