package spark

import (
	"fmt"
	"strings"
	"time"
)

// Timestamp wraps time.Time to handle the History Server's wire format.
// Spark serializes timestamps as "2024-01-15T10:30:00.000GMT"; newer
// deployments behind proxies may emit RFC3339 instead, so both are accepted.
type Timestamp struct {
	time.Time
}

const sparkTimeLayout = "2006-01-02T15:04:05.000GMT"

// UnmarshalJSON parses either the Spark GMT layout or RFC3339.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(sparkTimeLayout, s); err == nil {
		t.Time = parsed.UTC()
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("unsupported timestamp format %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

// MarshalJSON emits the Spark GMT layout for wire compatibility.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(sparkTimeLayout) + `"`), nil
}

// NewTimestamp wraps a time.Time. Convenience for tests and fixtures.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t}
}

// ApplicationAttemptInfo describes one attempt of a Spark application.
type ApplicationAttemptInfo struct {
	AttemptID       *string    `json:"attemptId,omitempty"`
	StartTime       *Timestamp `json:"startTime,omitempty"`
	EndTime         *Timestamp `json:"endTime,omitempty"`
	LastUpdated     *Timestamp `json:"lastUpdated,omitempty"`
	Duration        int64      `json:"duration"`
	SparkUser       string     `json:"sparkUser"`
	Completed       bool       `json:"completed"`
	AppSparkVersion string     `json:"appSparkVersion"`
}

// ApplicationInfo is the History Server's top-level application record.
type ApplicationInfo struct {
	ID                  string                   `json:"id"`
	Name                string                   `json:"name"`
	CoresGranted        *int                     `json:"coresGranted,omitempty"`
	MaxCores            *int                     `json:"maxCores,omitempty"`
	CoresPerExecutor    *int                     `json:"coresPerExecutor,omitempty"`
	MemoryPerExecutorMB *int                     `json:"memoryPerExecutorMB,omitempty"`
	Attempts            []ApplicationAttemptInfo `json:"attempts"`
}

// StageData carries the per-stage aggregate metrics the History Server
// exposes at /applications/{id}/stages.
type StageData struct {
	Status                string     `json:"status"`
	StageID               int        `json:"stageId"`
	AttemptID             int        `json:"attemptId"`
	Name                  string     `json:"name"`
	Details               string     `json:"details,omitempty"`
	SchedulingPool        string     `json:"schedulingPool,omitempty"`
	FailureReason         *string    `json:"failureReason,omitempty"`
	NumTasks              int        `json:"numTasks"`
	NumActiveTasks        int        `json:"numActiveTasks"`
	NumCompleteTasks      int        `json:"numCompleteTasks"`
	NumFailedTasks        int        `json:"numFailedTasks"`
	NumKilledTasks        int        `json:"numKilledTasks"`
	SubmissionTime        *Timestamp `json:"submissionTime,omitempty"`
	FirstTaskLaunchedTime *Timestamp `json:"firstTaskLaunchedTime,omitempty"`
	CompletionTime        *Timestamp `json:"completionTime,omitempty"`
	ExecutorRunTime       int64      `json:"executorRunTime"`
	ExecutorCpuTime       int64      `json:"executorCpuTime"`
	JvmGcTime             int64      `json:"jvmGcTime"`
	InputBytes            int64      `json:"inputBytes"`
	InputRecords          int64      `json:"inputRecords"`
	OutputBytes           int64      `json:"outputBytes"`
	OutputRecords         int64      `json:"outputRecords"`
	ShuffleReadBytes      int64      `json:"shuffleReadBytes"`
	ShuffleReadRecords    int64      `json:"shuffleReadRecords"`
	ShuffleWriteBytes     int64      `json:"shuffleWriteBytes"`
	ShuffleWriteRecords   int64      `json:"shuffleWriteRecords"`
	MemoryBytesSpilled    int64      `json:"memoryBytesSpilled"`
	DiskBytesSpilled      int64      `json:"diskBytesSpilled"`
	PeakExecutionMemory   int64      `json:"peakExecutionMemory"`
}

// DurationSeconds returns the wall-clock stage duration when both submission
// and completion are present, falling back to executor run time, then zero.
func (s *StageData) DurationSeconds() float64 {
	if s.SubmissionTime != nil && s.CompletionTime != nil {
		return s.CompletionTime.Sub(s.SubmissionTime.Time).Seconds()
	}
	if s.ExecutorRunTime > 0 {
		return float64(s.ExecutorRunTime) / 1000.0
	}
	return 0
}

// ExecutorSummary describes one executor (or the driver) of an application.
type ExecutorSummary struct {
	ID                string     `json:"id"`
	HostPort          string     `json:"hostPort"`
	IsActive          bool       `json:"isActive"`
	RddBlocks         int        `json:"rddBlocks"`
	MemoryUsed        int64      `json:"memoryUsed"`
	DiskUsed          int64      `json:"diskUsed"`
	TotalCores        int        `json:"totalCores"`
	MaxTasks          int        `json:"maxTasks"`
	ActiveTasks       int        `json:"activeTasks"`
	FailedTasks       int        `json:"failedTasks"`
	CompletedTasks    int        `json:"completedTasks"`
	TotalTasks        int        `json:"totalTasks"`
	TotalDuration     int64      `json:"totalDuration"`
	TotalGCTime       int64      `json:"totalGCTime"`
	TotalInputBytes   int64      `json:"totalInputBytes"`
	TotalShuffleRead  int64      `json:"totalShuffleRead"`
	TotalShuffleWrite int64      `json:"totalShuffleWrite"`
	MaxMemory         int64      `json:"maxMemory"`
	AddTime           *Timestamp `json:"addTime,omitempty"`
	RemoveTime        *Timestamp `json:"removeTime,omitempty"`
	RemoveReason      *string    `json:"removeReason,omitempty"`
}

// IsDriver reports whether this summary describes the driver entry.
func (e *ExecutorSummary) IsDriver() bool {
	return e.ID == "driver"
}

// RuntimeInfo holds the JVM runtime properties of an application.
type RuntimeInfo struct {
	JavaVersion  string `json:"javaVersion"`
	JavaHome     string `json:"javaHome"`
	ScalaVersion string `json:"scalaVersion"`
}

// ApplicationEnvironmentInfo is the /environment endpoint payload. Property
// lists arrive as two-element arrays on the wire.
type ApplicationEnvironmentInfo struct {
	Runtime          RuntimeInfo `json:"runtime"`
	SparkProperties  [][2]string `json:"sparkProperties"`
	HadoopProperties [][2]string `json:"hadoopProperties,omitempty"`
	SystemProperties [][2]string `json:"systemProperties"`
	ClasspathEntries [][2]string `json:"classpathEntries,omitempty"`
}

// PropertiesMap converts a wire property list into a lookup map.
// Later duplicates win, matching the History Server's display behavior.
func PropertiesMap(props [][2]string) map[string]string {
	m := make(map[string]string, len(props))
	for _, p := range props {
		m[p[0]] = p[1]
	}
	return m
}

// JobData is the /jobs endpoint record.
type JobData struct {
	JobID              int        `json:"jobId"`
	Name               string     `json:"name"`
	SubmissionTime     *Timestamp `json:"submissionTime,omitempty"`
	CompletionTime     *Timestamp `json:"completionTime,omitempty"`
	StageIDs           []int      `json:"stageIds,omitempty"`
	Status             string     `json:"status"`
	NumTasks           int        `json:"numTasks"`
	NumActiveTasks     int        `json:"numActiveTasks"`
	NumCompletedTasks  int        `json:"numCompletedTasks"`
	NumSkippedTasks    int        `json:"numSkippedTasks"`
	NumFailedTasks     int        `json:"numFailedTasks"`
	NumKilledTasks     int        `json:"numKilledTasks"`
	NumActiveStages    int        `json:"numActiveStages"`
	NumCompletedStages int        `json:"numCompletedStages"`
	NumSkippedStages   int        `json:"numSkippedStages"`
	NumFailedStages    int        `json:"numFailedStages"`
}

// MetricDistribution is a 5-point quantile summary (min, p25, median, p75, max)
// as served with the default quantile set.
type MetricDistribution []float64

// Median returns the middle quantile, or 0 when the distribution is malformed.
func (d MetricDistribution) Median() float64 {
	if len(d) < 3 {
		return 0
	}
	return d[2]
}

// Max returns the last of the five quantiles, or 0 when malformed.
func (d MetricDistribution) Max() float64 {
	if len(d) < 5 {
		return 0
	}
	return d[4]
}

// TaskMetricDistributions is the /taskSummary endpoint payload: per-metric
// quantile distributions across all tasks of a stage attempt.
type TaskMetricDistributions struct {
	Quantiles           []float64                  `json:"quantiles"`
	Duration            MetricDistribution         `json:"duration"`
	ExecutorRunTime     MetricDistribution         `json:"executorRunTime"`
	ExecutorCpuTime     MetricDistribution         `json:"executorCpuTime"`
	JvmGcTime           MetricDistribution         `json:"jvmGcTime"`
	SchedulerDelay      MetricDistribution         `json:"schedulerDelay"`
	PeakExecutionMemory MetricDistribution         `json:"peakExecutionMemory"`
	MemoryBytesSpilled  MetricDistribution         `json:"memoryBytesSpilled"`
	DiskBytesSpilled    MetricDistribution         `json:"diskBytesSpilled"`
	InputMetrics        *InputMetricDistributions  `json:"inputMetrics,omitempty"`
	OutputMetrics       *OutputMetricDistributions `json:"outputMetrics,omitempty"`
	ShuffleReadMetrics  *ShuffleReadDistributions  `json:"shuffleReadMetrics,omitempty"`
	ShuffleWriteMetrics *ShuffleWriteDistributions `json:"shuffleWriteMetrics,omitempty"`
}

// InputMetricDistributions holds input-side task metric quantiles.
type InputMetricDistributions struct {
	BytesRead   MetricDistribution `json:"bytesRead"`
	RecordsRead MetricDistribution `json:"recordsRead"`
}

// OutputMetricDistributions holds output-side task metric quantiles.
type OutputMetricDistributions struct {
	BytesWritten   MetricDistribution `json:"bytesWritten"`
	RecordsWritten MetricDistribution `json:"recordsWritten"`
}

// ShuffleReadDistributions holds shuffle-read task metric quantiles.
type ShuffleReadDistributions struct {
	ReadBytes     MetricDistribution `json:"readBytes"`
	ReadRecords   MetricDistribution `json:"readRecords"`
	FetchWaitTime MetricDistribution `json:"fetchWaitTime"`
}

// ShuffleWriteDistributions holds shuffle-write task metric quantiles.
type ShuffleWriteDistributions struct {
	WriteBytes   MetricDistribution `json:"writeBytes"`
	WriteRecords MetricDistribution `json:"writeRecords"`
	WriteTime    MetricDistribution `json:"writeTime"`
}

// Distributions flattens the named metric distributions into a map keyed the
// way they appear in comparison reports. Nested metrics use a prefixed name.
func (t *TaskMetricDistributions) Distributions() map[string]MetricDistribution {
	out := map[string]MetricDistribution{
		"duration":            t.Duration,
		"executorRunTime":     t.ExecutorRunTime,
		"executorCpuTime":     t.ExecutorCpuTime,
		"jvmGcTime":           t.JvmGcTime,
		"schedulerDelay":      t.SchedulerDelay,
		"peakExecutionMemory": t.PeakExecutionMemory,
		"memoryBytesSpilled":  t.MemoryBytesSpilled,
		"diskBytesSpilled":    t.DiskBytesSpilled,
	}
	if t.InputMetrics != nil {
		out["input.bytesRead"] = t.InputMetrics.BytesRead
		out["input.recordsRead"] = t.InputMetrics.RecordsRead
	}
	if t.OutputMetrics != nil {
		out["output.bytesWritten"] = t.OutputMetrics.BytesWritten
		out["output.recordsWritten"] = t.OutputMetrics.RecordsWritten
	}
	if t.ShuffleReadMetrics != nil {
		out["shuffleRead.readBytes"] = t.ShuffleReadMetrics.ReadBytes
		out["shuffleRead.readRecords"] = t.ShuffleReadMetrics.ReadRecords
	}
	if t.ShuffleWriteMetrics != nil {
		out["shuffleWrite.writeBytes"] = t.ShuffleWriteMetrics.WriteBytes
		out["shuffleWrite.writeRecords"] = t.ShuffleWriteMetrics.WriteRecords
	}
	return out
}
