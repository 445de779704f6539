package timeline

import (
	"testing"
	"time"

	"github.com/warrenzhu25/spark-insight/pkg/spark"
)

var base = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func app(start, end time.Time) *spark.ApplicationInfo {
	attempt := spark.ApplicationAttemptInfo{Completed: true}
	if !start.IsZero() {
		attempt.StartTime = spark.NewTimestamp(start)
	}
	if !end.IsZero() {
		attempt.EndTime = spark.NewTimestamp(end)
	}
	return &spark.ApplicationInfo{
		ID:       "app-1",
		Name:     "test",
		Attempts: []spark.ApplicationAttemptInfo{attempt},
	}
}

func executor(id string, cores int, memory int64, add, remove time.Time) spark.ExecutorSummary {
	e := spark.ExecutorSummary{ID: id, TotalCores: cores, MaxMemory: memory}
	if !add.IsZero() {
		e.AddTime = spark.NewTimestamp(add)
	}
	if !remove.IsZero() {
		e.RemoveTime = spark.NewTimestamp(remove)
	}
	return e
}

func TestBuildAppTimelineBucketCount(t *testing.T) {
	tests := []struct {
		name        string
		windowMin   int
		intervalMin int
		maxBuckets  int
		wantBuckets int
		wantTrunc   bool
	}{
		{"exact division", 10, 1, 0, 10, false},
		{"five minute buckets", 10, 5, 0, 2, false},
		{"partial last bucket", 10, 3, 0, 4, false},
		{"truncated at cap", 1500, 1, 1000, 1000, true},
		{"cap not reached", 30, 1, 1000, 30, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := app(base, base.Add(time.Duration(tt.windowMin)*time.Minute))
			tl := BuildAppTimeline(a, nil, nil, Options{
				IntervalMinutes: tt.intervalMin,
				MaxIntervals:    tt.maxBuckets,
			})

			if len(tl.Intervals) != tt.wantBuckets {
				t.Errorf("got %d buckets, want %d", len(tl.Intervals), tt.wantBuckets)
			}
			if tl.Truncated != tt.wantTrunc {
				t.Errorf("truncated = %v, want %v", tl.Truncated, tt.wantTrunc)
			}
		})
	}
}

func TestBuildAppTimelineLastBucketClamped(t *testing.T) {
	end := base.Add(10 * time.Minute)
	tl := BuildAppTimeline(app(base, end), nil, nil, Options{IntervalMinutes: 3})

	last := tl.Intervals[len(tl.Intervals)-1]
	if !last.End.Equal(end) {
		t.Errorf("last bucket end = %v, want %v", last.End, end)
	}
	if last.End.Sub(last.Start) != time.Minute {
		t.Errorf("last bucket width = %v, want 1m", last.End.Sub(last.Start))
	}
}

func TestBuildAppTimelineInsufficientData(t *testing.T) {
	tests := []struct {
		name string
		app  *spark.ApplicationInfo
	}{
		{"nil app", nil},
		{"no attempts", &spark.ApplicationInfo{ID: "app-1"}},
		{"no start time", app(time.Time{}, time.Time{})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := BuildAppTimeline(tt.app, nil, nil, Options{})
			if !tl.InsufficientData {
				t.Fatal("expected insufficient data marker")
			}
			if tl.Reason == "" {
				t.Error("expected a reason")
			}
			if len(tl.Intervals) != 0 {
				t.Error("insufficient data timeline should have no intervals")
			}
		})
	}
}

func TestBuildAppTimelineMissingEndUses24hWindow(t *testing.T) {
	tl := BuildAppTimeline(app(base, time.Time{}), nil, nil, Options{IntervalMinutes: 60})
	if len(tl.Intervals) != 24 {
		t.Errorf("got %d hourly buckets, want 24", len(tl.Intervals))
	}
}

func TestBuildAppTimelineZeroWindowCoerced(t *testing.T) {
	tl := BuildAppTimeline(app(base, base), nil, nil, Options{})
	if len(tl.Intervals) != 1 {
		t.Fatalf("zero-width window should coerce to one bucket, got %d", len(tl.Intervals))
	}
}

func TestBuildAppTimelineExecutorActivity(t *testing.T) {
	end := base.Add(10 * time.Minute)
	executors := []spark.ExecutorSummary{
		// Whole window, no explicit add/remove.
		executor("driver", 1, 1024*1024*1024, time.Time{}, time.Time{}),
		// Joins at minute 2, leaves at minute 5.
		executor("1", 4, 4*1024*1024*1024, base.Add(2*time.Minute), base.Add(5*time.Minute)),
		// Joins at minute 8, never removed.
		executor("2", 4, 4*1024*1024*1024, base.Add(8*time.Minute), time.Time{}),
	}

	tl := BuildAppTimeline(app(base, end), executors, nil, Options{})

	if got := tl.Intervals[0].ActiveExecutors; got != 1 {
		t.Errorf("bucket 0 executors = %d, want 1", got)
	}
	if got := tl.Intervals[3].ActiveExecutors; got != 2 {
		t.Errorf("bucket 3 executors = %d, want 2", got)
	}
	if got := tl.Intervals[6].ActiveExecutors; got != 1 {
		t.Errorf("bucket 6 executors = %d, want 1", got)
	}
	if got := tl.Intervals[9].ActiveExecutors; got != 2 {
		t.Errorf("bucket 9 executors = %d, want 2", got)
	}

	if got := tl.Intervals[3].TotalCores; got != 5 {
		t.Errorf("bucket 3 cores = %d, want 5", got)
	}

	if tl.Summary.PeakExecutorCount != 2 {
		t.Errorf("peak executors = %d, want 2", tl.Summary.PeakExecutorCount)
	}
	if tl.Summary.TotalExecutors != 3 {
		t.Errorf("total executors = %d, want 3", tl.Summary.TotalExecutors)
	}
	if tl.Summary.AvgExecutorCount <= 0 {
		t.Error("average executor count should be positive")
	}
}

func TestBuildAppTimelineStageActivity(t *testing.T) {
	end := base.Add(4 * time.Minute)
	stages := []spark.StageData{
		{
			StageID:        0,
			SubmissionTime: spark.NewTimestamp(base),
			CompletionTime: spark.NewTimestamp(base.Add(90 * time.Second)),
		},
		{
			StageID:        1,
			SubmissionTime: spark.NewTimestamp(base.Add(2 * time.Minute)),
			CompletionTime: spark.NewTimestamp(base.Add(150 * time.Second)),
		},
	}

	tl := BuildAppTimeline(app(base, end), nil, stages, Options{})

	if got := tl.Intervals[0].ActiveStages; got != 1 {
		t.Errorf("bucket 0 stages = %d, want 1", got)
	}
	if got := tl.Intervals[0].ActiveStageIDs; len(got) != 1 || got[0] != 0 {
		t.Errorf("bucket 0 stage ids = %v, want [0]", got)
	}
	if got := tl.Intervals[3].ActiveStages; got != 0 {
		t.Errorf("bucket 3 stages = %d, want 0", got)
	}
	if tl.Summary.TotalStages != 2 {
		t.Errorf("total stages = %d, want 2", tl.Summary.TotalStages)
	}
}

func TestBuildStageTimeline(t *testing.T) {
	stage := &spark.StageData{
		StageID:        7,
		SubmissionTime: spark.NewTimestamp(base),
		CompletionTime: spark.NewTimestamp(base.Add(3 * time.Minute)),
	}
	executors := []spark.ExecutorSummary{
		executor("1", 4, 0, base, time.Time{}),
	}

	tl := BuildStageTimeline("app-1", stage, executors, Options{})

	if tl.StageID == nil || *tl.StageID != 7 {
		t.Fatal("stage id should be recorded")
	}
	if len(tl.Intervals) != 3 {
		t.Errorf("got %d buckets, want 3", len(tl.Intervals))
	}
	if tl.Intervals[0].ActiveExecutors != 1 {
		t.Error("executor should be active in the stage window")
	}
}

func TestBuildStageTimelineNoSubmission(t *testing.T) {
	tl := BuildStageTimeline("app-1", &spark.StageData{StageID: 1}, nil, Options{})
	if !tl.InsufficientData {
		t.Fatal("expected insufficient data for stage without submission time")
	}
}
