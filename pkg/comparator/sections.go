package comparator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/warrenzhu25/spark-insight/pkg/diff"
	"github.com/warrenzhu25/spark-insight/pkg/matcher"
	"github.com/warrenzhu25/spark-insight/pkg/spark"
	"github.com/warrenzhu25/spark-insight/pkg/timeline"
	"github.com/warrenzhu25/spark-insight/pkg/version"
)

// autoGeneratedProperties never constitute a meaningful environment
// difference; they change on every run by construction.
var autoGeneratedProperties = map[string]bool{
	"spark.app.id":        true,
	"spark.driver.host":   true,
	"spark.driver.port":   true,
	"spark.app.startTime": true,
}

// watchedSystemProperties are the JVM/system keys whose drift commonly
// explains behavioral differences between otherwise identical runs.
var watchedSystemProperties = [...]string{
	"java.version",
	"java.runtime.version",
	"os.name",
	"os.version",
	"user.timezone",
	"file.encoding",
}

// notSet marks a property absent from one run in a key-difference row.
const notSet = "NOT_SET"

// buildOverviewSection compares executor fleets: counts, capacity, and
// efficiency ratios filtered down to the significant ones.
func buildOverviewSection(data1, data2 *appData, threshold float64) map[string]any {
	agg1 := aggregateExecutors(data1.executors)
	agg2 := aggregateExecutors(data2.executors)

	efficiency := map[string]float64{}
	for _, field := range [...]string{
		"total_duration_ms", "total_gc_time_ms", "total_tasks", "failed_tasks",
		"total_input_bytes", "total_shuffle_read_bytes", "total_shuffle_write_bytes",
		"memory_used_bytes",
	} {
		v1 := agg1[field]
		v2 := agg2[field]
		efficiency[field+"_ratio"] = diff.SafeRatio(v1, v2)
		if v1 != 0 {
			efficiency[field+"_percent_change"] = (v2 - v1) / v1 * 100
		}
	}

	return map[string]any{
		"app1":       agg1,
		"app2":       agg2,
		"efficiency": diff.FilterSignificantRatios(efficiency, threshold),
	}
}

func aggregateExecutors(executors []spark.ExecutorSummary) map[string]float64 {
	out := map[string]float64{}
	for i := range executors {
		e := &executors[i]
		if e.IsDriver() {
			continue
		}
		out["executor_count"]++
		out["total_cores"] += float64(e.TotalCores)
		out["max_memory_bytes"] += float64(e.MaxMemory)
		out["memory_used_bytes"] += float64(e.MemoryUsed)
		out["total_duration_ms"] += float64(e.TotalDuration)
		out["total_gc_time_ms"] += float64(e.TotalGCTime)
		out["total_tasks"] += float64(e.TotalTasks)
		out["failed_tasks"] += float64(e.FailedTasks)
		out["total_input_bytes"] += float64(e.TotalInputBytes)
		out["total_shuffle_read_bytes"] += float64(e.TotalShuffleRead)
		out["total_shuffle_write_bytes"] += float64(e.TotalShuffleWrite)
	}
	return out
}

// taskSummaryQuantiles is the 5-point quantile set requested per stage.
const taskSummaryQuantiles = "0.05,0.25,0.5,0.75,0.95"

// stageDifference is one row of the stage deep dive.
type stageDifference struct {
	StageName         string                            `json:"stage_name"`
	App1StageID       int                               `json:"app1_stage_id"`
	App2StageID       int                               `json:"app2_stage_id"`
	App1DurationSec   float64                           `json:"app1_duration_seconds"`
	App2DurationSec   float64                           `json:"app2_duration_seconds"`
	DiffSeconds       float64                           `json:"diff_seconds"`
	DiffPercent       float64                           `json:"diff_percent"`
	SlowerApp         string                            `json:"slower_app"`
	Similarity        float64                           `json:"similarity"`
	TaskDistributions map[string]diff.DistributionEntry `json:"task_distributions,omitempty"`
}

// buildStageSection matches stages across the runs and surfaces the top
// duration differences, enriched with per-task metric quantile comparisons,
// plus aggregate stage totals.
func (c *Comparator) buildStageSection(ctx context.Context, data1, data2 *appData, matches []matcher.Match, topN int, threshold float64) map[string]any {
	type row struct {
		diff  stageDifference
		match matcher.Match
	}

	rows := make([]row, 0, len(matches))
	for _, m := range matches {
		d1 := m.Stage1.DurationSeconds()
		d2 := m.Stage2.DurationSeconds()
		if d1 <= 0 || d2 <= 0 {
			continue
		}

		delta := d2 - d1
		slower := data1.app.ID
		if d2 > d1 {
			slower = data2.app.ID
		}
		rows = append(rows, row{
			diff: stageDifference{
				StageName:       m.Stage1.Name,
				App1StageID:     m.Stage1.StageID,
				App2StageID:     m.Stage2.StageID,
				App1DurationSec: d1,
				App2DurationSec: d2,
				DiffSeconds:     delta,
				DiffPercent:     math.Abs(delta) / math.Max(d1, d2) * 100,
				SlowerApp:       slower,
				Similarity:      m.Similarity,
			},
			match: m,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return math.Abs(rows[i].diff.DiffSeconds) > math.Abs(rows[j].diff.DiffSeconds)
	})
	if len(rows) > topN {
		rows = rows[:topN]
	}

	// Task summaries are fetched only for the surfaced rows; each one is two
	// extra History Server calls.
	differences := make([]stageDifference, 0, len(rows))
	for _, r := range rows {
		r.diff.TaskDistributions = c.taskDistributions(ctx, data1.app.ID, data2.app.ID, r.match, threshold)
		differences = append(differences, r.diff)
	}

	totals := diff.Compare(stageTotals(data1.stages), stageTotals(data2.stages), diff.Options{Threshold: threshold})

	return map[string]any{
		"matched_stages":        len(matches),
		"app1_total_stages":     len(data1.stages),
		"app2_total_stages":     len(data2.stages),
		"top_stage_differences": differences,
		"stage_totals_diff":     totals,
	}
}

// taskDistributions compares the task-metric quantiles of one matched stage
// pair. A failed fetch leaves the row without distributions; the deep dive
// itself still stands.
func (c *Comparator) taskDistributions(ctx context.Context, appID1, appID2 string, m matcher.Match, threshold float64) map[string]diff.DistributionEntry {
	d1, err := c.provider.GetStageTaskSummary(ctx, appID1, m.Stage1.StageID, m.Stage1.AttemptID, taskSummaryQuantiles)
	if err != nil {
		slog.Debug("task summary unavailable", "app", appID1, "stage", m.Stage1.StageID, "error", err.Error())
		return nil
	}
	d2, err := c.provider.GetStageTaskSummary(ctx, appID2, m.Stage2.StageID, m.Stage2.AttemptID, taskSummaryQuantiles)
	if err != nil {
		slog.Debug("task summary unavailable", "app", appID2, "stage", m.Stage2.StageID, "error", err.Error())
		return nil
	}

	out := diff.CompareDistributions(d1.Distributions(), d2.Distributions(), threshold)
	if len(out) == 0 {
		return nil
	}
	return out
}

func stageTotals(stages []spark.StageData) map[string]float64 {
	out := map[string]float64{}
	for i := range stages {
		s := &stages[i]
		out["executor_run_time_ms"] += float64(s.ExecutorRunTime)
		out["executor_cpu_time_ms"] += float64(s.ExecutorCpuTime)
		out["jvm_gc_time_ms"] += float64(s.JvmGcTime)
		out["input_bytes"] += float64(s.InputBytes)
		out["output_bytes"] += float64(s.OutputBytes)
		out["shuffle_read_bytes"] += float64(s.ShuffleReadBytes)
		out["shuffle_write_bytes"] += float64(s.ShuffleWriteBytes)
		out["memory_spilled_bytes"] += float64(s.MemoryBytesSpilled)
		out["disk_spilled_bytes"] += float64(s.DiskBytesSpilled)
		out["num_tasks"] += float64(s.NumTasks)
		out["failed_tasks"] += float64(s.NumFailedTasks)
	}
	return out
}

// buildTimelineSection builds both executor timelines, compares them bucket
// by bucket, and merges constant-delta periods.
func buildTimelineSection(data1, data2 *appData, opts timeline.Options) map[string]any {
	t1 := timeline.BuildAppTimeline(data1.app, data1.executors, data1.stages, opts)
	t2 := timeline.BuildAppTimeline(data2.app, data2.executors, data2.stages, opts)

	out := map[string]any{
		"app1_summary": t1.Summary,
		"app2_summary": t2.Summary,
	}

	if t1.InsufficientData || t2.InsufficientData {
		out["insufficient_data"] = true
		if t1.InsufficientData {
			out["app1_reason"] = t1.Reason
		}
		if t2.InsufficientData {
			out["app2_reason"] = t2.Reason
		}
		return out
	}

	if t1.Truncated || t2.Truncated {
		out["truncated"] = true
	}

	entries := timeline.MergeConsecutive(timeline.CompareExecutorCounts(t1, t2))
	out["executor_count_comparison"] = entries
	out["peak_executor_diff"] = t2.Summary.PeakExecutorCount - t1.Summary.PeakExecutorCount
	out["avg_executor_diff"] = t2.Summary.AvgExecutorCount - t1.Summary.AvgExecutorCount
	return out
}

// buildEnvironmentSection diffs Spark properties, watched system properties,
// and JVM runtime info.
func buildEnvironmentSection(data1, data2 *appData) map[string]any {
	props1 := spark.PropertiesMap(data1.env.SparkProperties)
	props2 := spark.PropertiesMap(data2.env.SparkProperties)

	different := map[string]any{}
	app1Only := map[string]string{}
	app2Only := map[string]string{}

	for key, v1 := range props1 {
		if autoGeneratedProperties[key] {
			continue
		}
		v2, ok := props2[key]
		switch {
		case !ok:
			app1Only[key] = v1
		case v1 != v2:
			different[key] = map[string]string{"app1": v1, "app2": v2}
		}
	}
	for key, v2 := range props2 {
		if autoGeneratedProperties[key] {
			continue
		}
		if _, ok := props1[key]; !ok {
			app2Only[key] = v2
		}
	}

	sys1 := spark.PropertiesMap(data1.env.SystemProperties)
	sys2 := spark.PropertiesMap(data2.env.SystemProperties)
	sysDifferences := map[string]any{}
	for _, key := range watchedSystemProperties {
		v1, ok1 := sys1[key]
		v2, ok2 := sys2[key]
		if v1 == v2 {
			continue
		}
		if !ok1 {
			v1 = notSet
		}
		if !ok2 {
			v2 = notSet
		}
		sysDifferences[key] = map[string]string{"app1": v1, "app2": v2}
	}

	jvm := map[string]any{
		"app1": data1.env.Runtime,
		"app2": data2.env.Runtime,
	}
	if drift := javaVersionDrift(data1.env.Runtime.JavaVersion, data2.env.Runtime.JavaVersion); drift != "" {
		jvm["java_version_drift"] = drift
	}

	return map[string]any{
		"spark_properties": map[string]any{
			"different": different,
			"app1_only": app1Only,
			"app2_only": app2Only,
		},
		"system_properties": map[string]any{
			"key_differences": sysDifferences,
		},
		"jvm_info": jvm,
		"summary": map[string]int{
			"different_count": len(different),
			"app1_only_count": len(app1Only),
			"app2_only_count": len(app2Only),
		},
	}
}

// javaVersionDrift describes a Java runtime difference between the runs, or
// "" when the versions agree or cannot be parsed.
func javaVersionDrift(v1, v2 string) string {
	if v1 == v2 {
		return ""
	}
	parsed1, err1 := version.ParseVersion(v1)
	parsed2, err2 := version.ParseVersion(v2)
	if err1 != nil || err2 != nil {
		return fmt.Sprintf("java versions differ: %q vs %q", v1, v2)
	}
	switch parsed1.Compare(parsed2) {
	case 0:
		return ""
	case -1:
		return fmt.Sprintf("app2 runs a newer java (%s vs %s)", parsed1, parsed2)
	default:
		return fmt.Sprintf("app2 runs an older java (%s vs %s)", parsed1, parsed2)
	}
}
