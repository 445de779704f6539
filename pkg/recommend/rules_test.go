package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warrenzhu25/spark-insight/pkg/matcher"
	"github.com/warrenzhu25/spark-insight/pkg/spark"
)

func intPtr(v int) *int { return &v }

func appInfo(id string, cores, memMB int) *spark.ApplicationInfo {
	app := &spark.ApplicationInfo{ID: id, Name: id}
	if cores > 0 {
		app.CoresGranted = intPtr(cores)
	}
	if memMB > 0 {
		app.MemoryPerExecutorMB = intPtr(memMB)
	}
	return app
}

func TestResourceAllocationRule(t *testing.T) {
	tests := []struct {
		name    string
		app1    *spark.ApplicationInfo
		app2    *spark.ApplicationInfo
		finding bool
	}{
		{
			name:    "balanced",
			app1:    appInfo("app-1", 100, 8192),
			app2:    appInfo("app-2", 110, 8192),
			finding: false,
		},
		{
			name:    "core skew",
			app1:    appInfo("app-1", 200, 8192),
			app2:    appInfo("app-2", 100, 8192),
			finding: true,
		},
		{
			name:    "memory skew",
			app1:    appInfo("app-1", 100, 16384),
			app2:    appInfo("app-2", 100, 4096),
			finding: true,
		},
		{
			name:    "missing apps",
			app1:    nil,
			app2:    nil,
			finding: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := resourceAllocationRule(context.Background(), &Context{App1: tt.app1, App2: tt.app2})
			require.NoError(t, err)
			if tt.finding {
				require.NotNil(t, rec)
				assert.Equal(t, "resource_allocation", rec.Type)
				assert.Equal(t, PriorityMedium, rec.Priority)
			} else {
				assert.Nil(t, rec)
			}
		})
	}
}

func TestLargeStageRegressionRule(t *testing.T) {
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	mkStage := func(id int, name string, durSeconds int) *spark.StageData {
		return &spark.StageData{
			StageID:        id,
			Name:           name,
			SubmissionTime: spark.NewTimestamp(base),
			CompletionTime: spark.NewTimestamp(base.Add(time.Duration(durSeconds) * time.Second)),
		}
	}

	rc := &Context{
		App1: appInfo("app-1", 0, 0),
		App2: appInfo("app-2", 0, 0),
		StageMatches: []matcher.Match{
			{Stage1: mkStage(1, "fast stage", 30), Stage2: mkStage(1, "fast stage", 35)},
			{Stage1: mkStage(2, "slow stage", 100), Stage2: mkStage(2, "slow stage", 400)},
			{Stage1: mkStage(3, "medium stage", 50), Stage2: mkStage(3, "medium stage", 150)},
		},
	}

	rec, err := largeStageRegressionRule(context.Background(), rc)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, PriorityHigh, rec.Priority)
	assert.Equal(t, "slow stage", rec.Details["stage_name"], "worst regression wins")
	assert.Equal(t, "app-2", rec.Details["slower_app"])
}

func TestLargeStageRegressionRuleBelowThreshold(t *testing.T) {
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	s1 := &spark.StageData{
		StageID:        1,
		Name:           "s",
		SubmissionTime: spark.NewTimestamp(base),
		CompletionTime: spark.NewTimestamp(base.Add(30 * time.Second)),
	}
	s2 := &spark.StageData{
		StageID:        1,
		Name:           "s",
		SubmissionTime: spark.NewTimestamp(base),
		CompletionTime: spark.NewTimestamp(base.Add(60 * time.Second)),
	}

	rec, err := largeStageRegressionRule(context.Background(), &Context{
		StageMatches: []matcher.Match{{Stage1: s1, Stage2: s2}},
	})
	require.NoError(t, err)
	assert.Nil(t, rec, "30s diff is under the 60s default threshold")
}

func TestGCPressureRule(t *testing.T) {
	healthy := []spark.ExecutorSummary{
		{ID: "1", TotalGCTime: 100, TotalDuration: 10000},
	}
	pressured := []spark.ExecutorSummary{
		{ID: "1", TotalGCTime: 3000, TotalDuration: 10000},
	}

	rec, err := gcPressureRule(context.Background(), &Context{
		App1:       appInfo("app-1", 0, 0),
		App2:       appInfo("app-2", 0, 0),
		Executors1: healthy,
		Executors2: pressured,
	})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "gc_pressure", rec.Type)
	assert.Contains(t, rec.Issue, "app-2")

	rec, err = gcPressureRule(context.Background(), &Context{
		Executors1: healthy,
		Executors2: healthy,
	})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestExecutorCountRule(t *testing.T) {
	mk := func(n int) []spark.ExecutorSummary {
		out := []spark.ExecutorSummary{{ID: "driver"}}
		for i := 0; i < n; i++ {
			out = append(out, spark.ExecutorSummary{ID: "e"})
		}
		return out
	}

	rec, err := executorCountRule(context.Background(), &Context{
		Executors1: mk(10),
		Executors2: mk(2),
	})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 10, rec.Details["app1_executors"], "driver excluded from counts")

	rec, err = executorCountRule(context.Background(), &Context{
		Executors1: mk(10),
		Executors2: mk(8),
	})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestMemorySpillRule(t *testing.T) {
	noSpill := []spark.StageData{{StageID: 1}}
	spilling := []spark.StageData{{StageID: 1, MemoryBytesSpilled: 1 << 30}}

	rec, err := memorySpillRule(context.Background(), &Context{
		App2:    appInfo("app-2", 0, 0),
		Stages1: noSpill,
		Stages2: spilling,
	})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "memory_spill", rec.Type)

	rec, err = memorySpillRule(context.Background(), &Context{
		Stages1: spilling,
		Stages2: noSpill,
	})
	require.NoError(t, err)
	assert.Nil(t, rec, "spill that went away is an improvement, not a finding")
}

func TestShuffleVolumeRule(t *testing.T) {
	small := []spark.StageData{{ShuffleReadBytes: 1 << 30}}
	large := []spark.StageData{{ShuffleReadBytes: 10 << 30}}

	rec, err := shuffleVolumeRule(context.Background(), &Context{Stages1: small, Stages2: large})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, PriorityLow, rec.Priority)

	rec, err = shuffleVolumeRule(context.Background(), &Context{Stages1: small, Stages2: small})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestJobSuccessRateRule(t *testing.T) {
	jobs := func(succeeded, failed int) []spark.JobData {
		var out []spark.JobData
		for i := 0; i < succeeded; i++ {
			out = append(out, spark.JobData{Status: "SUCCEEDED"})
		}
		for i := 0; i < failed; i++ {
			out = append(out, spark.JobData{Status: "FAILED"})
		}
		return out
	}

	rec, err := jobSuccessRateRule(context.Background(), &Context{
		App2:  appInfo("app-2", 0, 0),
		Jobs1: jobs(10, 0),
		Jobs2: jobs(6, 4),
	})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, PriorityHigh, rec.Priority)

	rec, err = jobSuccessRateRule(context.Background(), &Context{
		Jobs1: jobs(10, 0),
		Jobs2: jobs(10, 0),
	})
	require.NoError(t, err)
	assert.Nil(t, rec)

	rec, err = jobSuccessRateRule(context.Background(), &Context{Jobs1: nil, Jobs2: jobs(1, 0)})
	require.NoError(t, err)
	assert.Nil(t, rec, "missing job data on one side yields no finding")
}

func TestDefaultRulesRegistered(t *testing.T) {
	engine := New()
	out := engine.Apply(context.Background(), &Context{})
	assert.Empty(t, out, "empty context should produce no findings from any default rule")
}
