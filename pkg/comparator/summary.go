package comparator

import (
	"github.com/warrenzhu25/spark-insight/pkg/spark"
)

const (
	bytesPerGB  = 1 << 30
	msPerMinute = 60000.0
)

// Summarize aggregates one application's stages, executors, and jobs into a
// flat scalar map suitable for diffing. Units are normalized to minutes and
// gigabytes so the numbers stay human-scaled.
func Summarize(app *spark.ApplicationInfo, stages []spark.StageData, executors []spark.ExecutorSummary, jobs []spark.JobData) map[string]float64 {
	out := map[string]float64{}

	var runTime, cpuTime, gcTime int64
	var input, output, shuffleRead, shuffleWrite, spill int64
	var failedTasks, completedTasks int64
	completedStages, failedStages := 0, 0

	for i := range stages {
		s := &stages[i]
		runTime += s.ExecutorRunTime
		cpuTime += s.ExecutorCpuTime
		gcTime += s.JvmGcTime
		input += s.InputBytes
		output += s.OutputBytes
		shuffleRead += s.ShuffleReadBytes
		shuffleWrite += s.ShuffleWriteBytes
		spill += s.MemoryBytesSpilled + s.DiskBytesSpilled
		failedTasks += int64(s.NumFailedTasks)
		completedTasks += int64(s.NumCompleteTasks)

		switch s.Status {
		case "COMPLETE":
			completedStages++
		case "FAILED":
			failedStages++
		}
	}

	out["executor_run_time_minutes"] = float64(runTime) / msPerMinute
	out["executor_cpu_time_minutes"] = float64(cpuTime) / msPerMinute
	out["jvm_gc_time_minutes"] = float64(gcTime) / msPerMinute
	out["input_gb"] = float64(input) / bytesPerGB
	out["output_gb"] = float64(output) / bytesPerGB
	out["shuffle_read_gb"] = float64(shuffleRead) / bytesPerGB
	out["shuffle_write_gb"] = float64(shuffleWrite) / bytesPerGB
	out["spill_gb"] = float64(spill) / bytesPerGB
	out["failed_tasks"] = float64(failedTasks)
	out["completed_tasks"] = float64(completedTasks)
	out["total_stages"] = float64(len(stages))
	out["completed_stages"] = float64(completedStages)
	out["failed_stages"] = float64(failedStages)

	execCount := 0
	var execDuration, execGC int64
	for i := range executors {
		if executors[i].IsDriver() {
			continue
		}
		execCount++
		execDuration += executors[i].TotalDuration
		execGC += executors[i].TotalGCTime
	}
	out["executor_count"] = float64(execCount)

	// Utilization: executor busy time against the wall-clock window times
	// the executor count. Rough but comparable across runs.
	if app != nil && len(app.Attempts) > 0 && execCount > 0 {
		attempt := app.Attempts[0]
		if attempt.StartTime != nil && attempt.EndTime != nil {
			wall := attempt.EndTime.Sub(attempt.StartTime.Time).Milliseconds()
			if wall > 0 {
				utilization := float64(execDuration) / (float64(wall) * float64(execCount)) * 100
				if utilization > 100 {
					utilization = 100
				}
				out["executor_utilization_percent"] = utilization
			}
		}
	}

	failedJobs := 0
	for i := range jobs {
		if jobs[i].Status == "FAILED" {
			failedJobs++
		}
	}
	out["total_jobs"] = float64(len(jobs))
	out["failed_jobs"] = float64(failedJobs)

	return out
}

// appOverview describes one application in the report header.
func appOverview(app *spark.ApplicationInfo) map[string]any {
	if app == nil {
		return map[string]any{}
	}

	out := map[string]any{
		"id":   app.ID,
		"name": app.Name,
	}
	if len(app.Attempts) == 0 {
		return out
	}

	attempt := app.Attempts[0]
	out["spark_user"] = attempt.SparkUser
	out["spark_version"] = attempt.AppSparkVersion
	out["completed"] = attempt.Completed
	out["duration_seconds"] = float64(attempt.Duration) / 1000.0
	if attempt.StartTime != nil {
		out["start_time"] = attempt.StartTime.Time
	}
	if attempt.EndTime != nil {
		out["end_time"] = attempt.EndTime.Time
	}
	return out
}
