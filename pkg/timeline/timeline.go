// Package timeline reconstructs executor and stage lifecycles into
// fixed-width interval buckets so two runs can be compared minute by minute.
package timeline

import (
	"time"

	"github.com/warrenzhu25/spark-insight/pkg/spark"
)

const (
	// DefaultIntervalMinutes is the bucket width.
	DefaultIntervalMinutes = 1
	// DefaultMaxIntervals caps timeline length; a runaway window (bad event
	// data, clock skew) truncates instead of exhausting memory.
	DefaultMaxIntervals = 10000
	// fallbackWindow bounds an application that never recorded an end time.
	fallbackWindow = 24 * time.Hour
)

// Options tunes timeline construction.
type Options struct {
	// IntervalMinutes is the bucket width in minutes; 0 means DefaultIntervalMinutes.
	IntervalMinutes int
	// MaxIntervals caps the number of buckets; 0 means DefaultMaxIntervals.
	MaxIntervals int
}

func (o Options) interval() time.Duration {
	minutes := o.IntervalMinutes
	if minutes <= 0 {
		minutes = DefaultIntervalMinutes
	}
	return time.Duration(minutes) * time.Minute
}

func (o Options) maxIntervals() int {
	if o.MaxIntervals <= 0 {
		return DefaultMaxIntervals
	}
	return o.MaxIntervals
}

// Interval is one timeline bucket with the resources active in it.
type Interval struct {
	Start           time.Time `json:"interval_start"`
	End             time.Time `json:"interval_end"`
	ActiveExecutors int       `json:"active_executors"`
	TotalCores      int       `json:"total_cores"`
	TotalMemoryMB   int64     `json:"total_memory_mb"`
	ActiveStages    int       `json:"active_stages"`
	ActiveStageIDs  []int     `json:"active_stage_ids,omitempty"`
}

// Summary aggregates a timeline.
type Summary struct {
	TotalExecutors    int     `json:"total_executors"`
	TotalStages       int     `json:"total_stages"`
	PeakExecutorCount int     `json:"peak_executor_count"`
	AvgExecutorCount  float64 `json:"avg_executor_count"`
	PeakCores         int     `json:"peak_cores"`
	PeakMemoryMB      int64   `json:"peak_memory_mb"`
}

// Timeline is the bucketed view of one application (or one stage window).
type Timeline struct {
	AppID           string     `json:"app_id"`
	StageID         *int       `json:"stage_id,omitempty"`
	Start           time.Time  `json:"start"`
	End             time.Time  `json:"end"`
	IntervalMinutes int        `json:"interval_minutes"`
	Intervals       []Interval `json:"intervals"`
	// Truncated marks that the window needed more buckets than MaxIntervals.
	Truncated bool    `json:"truncated,omitempty"`
	Summary   Summary `json:"summary"`
	// InsufficientData is set instead of an error when the application has
	// no recorded start time.
	InsufficientData bool   `json:"insufficient_data,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// BuildAppTimeline buckets the lifecycle of an application. An application
// with no attempts or no recorded start yields an insufficient-data timeline,
// not an error. A missing end time bounds the window at start+24h.
func BuildAppTimeline(app *spark.ApplicationInfo, executors []spark.ExecutorSummary, stages []spark.StageData, opts Options) *Timeline {
	tl := &Timeline{IntervalMinutes: int(opts.interval().Minutes())}
	if app != nil {
		tl.AppID = app.ID
	}

	if app == nil || len(app.Attempts) == 0 || app.Attempts[0].StartTime == nil {
		tl.InsufficientData = true
		tl.Reason = "application has no recorded start time"
		return tl
	}

	start := app.Attempts[0].StartTime.Time
	end := start.Add(fallbackWindow)
	if app.Attempts[0].EndTime != nil && !app.Attempts[0].EndTime.IsZero() {
		end = app.Attempts[0].EndTime.Time
	}

	build(tl, start, end, executors, stages, opts)
	return tl
}

// BuildStageTimeline buckets executor activity across a single stage's
// execution window.
func BuildStageTimeline(appID string, stage *spark.StageData, executors []spark.ExecutorSummary, opts Options) *Timeline {
	stageID := stage.StageID
	tl := &Timeline{
		AppID:           appID,
		StageID:         &stageID,
		IntervalMinutes: int(opts.interval().Minutes()),
	}

	if stage.SubmissionTime == nil {
		tl.InsufficientData = true
		tl.Reason = "stage has no recorded submission time"
		return tl
	}

	start := stage.SubmissionTime.Time
	end := start
	if stage.CompletionTime != nil {
		end = stage.CompletionTime.Time
	}

	build(tl, start, end, executors, nil, opts)
	return tl
}

func build(tl *Timeline, start, end time.Time, executors []spark.ExecutorSummary, stages []spark.StageData, opts Options) {
	interval := opts.interval()
	maxIntervals := opts.maxIntervals()

	// A zero or inverted window still gets one bucket so callers always see
	// the resources present at the instant of the snapshot.
	if !end.After(start) {
		end = start.Add(interval)
	}

	tl.Start = start
	tl.End = end

	current := start
	for current.Before(end) && len(tl.Intervals) < maxIntervals {
		bucketEnd := current.Add(interval)
		if bucketEnd.After(end) {
			bucketEnd = end
		}

		iv := Interval{Start: current, End: bucketEnd}
		for i := range executors {
			if activeIn(executors[i].AddTime, executors[i].RemoveTime, start, end, current, bucketEnd) {
				iv.ActiveExecutors++
				iv.TotalCores += executors[i].TotalCores
				iv.TotalMemoryMB += executors[i].MaxMemory / (1024 * 1024)
			}
		}
		for i := range stages {
			if activeIn(stages[i].SubmissionTime, stages[i].CompletionTime, start, end, current, bucketEnd) {
				iv.ActiveStages++
				iv.ActiveStageIDs = append(iv.ActiveStageIDs, stages[i].StageID)
			}
		}

		tl.Intervals = append(tl.Intervals, iv)
		current = bucketEnd
	}

	tl.Truncated = current.Before(end)
	tl.Summary = summarize(tl.Intervals, len(executors), len(stages))
}

// activeIn reports whether a resource with the given lifecycle bounds is
// active in [bucketStart, bucketEnd]. A missing begin time falls back to the
// window start, a missing end time to the window end.
func activeIn(begin, finish *spark.Timestamp, windowStart, windowEnd, bucketStart, bucketEnd time.Time) bool {
	b := windowStart
	if begin != nil {
		b = begin.Time
	}
	f := windowEnd
	if finish != nil {
		f = finish.Time
	}
	return !b.After(bucketEnd) && !f.Before(bucketStart)
}

func summarize(intervals []Interval, totalExecutors, totalStages int) Summary {
	s := Summary{
		TotalExecutors: totalExecutors,
		TotalStages:    totalStages,
	}
	if len(intervals) == 0 {
		return s
	}

	sum := 0
	for _, iv := range intervals {
		sum += iv.ActiveExecutors
		if iv.ActiveExecutors > s.PeakExecutorCount {
			s.PeakExecutorCount = iv.ActiveExecutors
		}
		if iv.TotalCores > s.PeakCores {
			s.PeakCores = iv.TotalCores
		}
		if iv.TotalMemoryMB > s.PeakMemoryMB {
			s.PeakMemoryMB = iv.TotalMemoryMB
		}
	}
	s.AvgExecutorCount = float64(sum) / float64(len(intervals))
	return s
}
