// Package comparator orchestrates full run-to-run comparisons: it resolves
// both applications, fetches their datasets, computes independent report
// sections concurrently, and synthesizes prioritized recommendations.
package comparator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/warrenzhu25/spark-insight/pkg/diff"
	"github.com/warrenzhu25/spark-insight/pkg/matcher"
	"github.com/warrenzhu25/spark-insight/pkg/recommend"
	"github.com/warrenzhu25/spark-insight/pkg/spark"
	"github.com/warrenzhu25/spark-insight/pkg/timeline"

	xerrors "github.com/warrenzhu25/spark-insight/pkg/errors"
)

// SchemaVersion identifies the report layout for downstream consumers.
const SchemaVersion = "1"

// Report is the comparison result: nested primitive structures only, so it
// serializes cleanly to JSON, YAML, or tables without type surprises.
type Report map[string]any

// Comparator runs comparisons against a data provider.
type Comparator struct {
	provider spark.Provider
	engine   *recommend.Engine
	defaults Options
}

// Option is a functional option for configuring the Comparator.
type Option func(*Comparator)

// WithRecommendEngine replaces the built-in recommendation engine.
func WithRecommendEngine(engine *recommend.Engine) Option {
	return func(c *Comparator) {
		c.engine = engine
	}
}

// WithDefaults sets the fallback Options applied when a Compare call leaves
// fields zero.
func WithDefaults(opts Options) Option {
	return func(c *Comparator) {
		c.defaults = opts
	}
}

// New creates a Comparator with the provided options.
func New(provider spark.Provider, opts ...Option) (*Comparator, error) {
	if provider == nil {
		return nil, xerrors.New(xerrors.ErrCodeInvalidRequest, "provider cannot be nil")
	}

	c := &Comparator{
		provider: provider,
		engine:   recommend.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// appData bundles everything fetched about one application. Dataset errors
// are recorded per field so one failed endpoint degrades only the report
// sections that need it.
type appData struct {
	app       *spark.ApplicationInfo
	stages    []spark.StageData
	executors []spark.ExecutorSummary
	jobs      []spark.JobData
	env       *spark.ApplicationEnvironmentInfo

	stagesErr    error
	executorsErr error
	jobsErr      error
	envErr       error
}

// fetch resolves the application record (hard failure) and then pulls the
// dependent datasets in parallel, recording their errors individually.
func (c *Comparator) fetch(ctx context.Context, appID string) (*appData, error) {
	app, err := c.provider.GetApplication(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("resolving application %s: %w", appID, err)
	}

	data := &appData{app: app}

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		data.stages, data.stagesErr = c.provider.ListStages(ctx, appID)
	}()
	go func() {
		defer wg.Done()
		data.executors, data.executorsErr = c.provider.ListAllExecutors(ctx, appID)
	}()
	go func() {
		defer wg.Done()
		data.jobs, data.jobsErr = c.provider.ListJobs(ctx, appID)
	}()
	go func() {
		defer wg.Done()
		data.env, data.envErr = c.provider.GetEnvironment(ctx, appID)
	}()
	wg.Wait()

	return data, nil
}

// merge fills zero fields of opts from the comparator defaults.
func (c *Comparator) merge(opts Options) Options {
	d := c.defaults
	if opts.TopStages == 0 {
		opts.TopStages = d.TopStages
	}
	if opts.SignificanceThreshold == 0 {
		opts.SignificanceThreshold = d.SignificanceThreshold
	}
	if opts.SimilarityThreshold == 0 {
		opts.SimilarityThreshold = d.SimilarityThreshold
	}
	if opts.IntervalMinutes == 0 {
		opts.IntervalMinutes = d.IntervalMinutes
	}
	if opts.MaxIntervals == 0 {
		opts.MaxIntervals = d.MaxIntervals
	}
	if opts.LargeStageDiffSeconds == 0 {
		opts.LargeStageDiffSeconds = d.LargeStageDiffSeconds
	}
	if opts.GCPressureThreshold == 0 {
		opts.GCPressureThreshold = d.GCPressureThreshold
	}
	return opts
}

// sectionError is the in-report representation of a failed section.
func sectionError(err error, suggestion string) map[string]any {
	out := map[string]any{"error": err.Error()}
	if suggestion != "" {
		out["suggestion"] = suggestion
	}
	return out
}

// Compare produces a full comparison report for two applications. Only a
// failure to resolve either application fails the call; every other problem
// degrades to an error entry in the affected section.
func (c *Comparator) Compare(ctx context.Context, appID1, appID2 string, opts Options) (Report, error) {
	opts = c.merge(opts)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		comparisonDuration.Observe(time.Since(start).Seconds())
	}()

	slog.Debug("starting comparison", "app1", appID1, "app2", appID2)

	var data1, data2 *appData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data1, err = c.fetch(gctx, appID1)
		return err
	})
	g.Go(func() error {
		var err error
		data2, err = c.fetch(gctx, appID2)
		return err
	})
	if err := g.Wait(); err != nil {
		comparisonsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	var matches []matcher.Match
	if data1.stagesErr == nil && data2.stagesErr == nil {
		matches = matcher.Pair(data1.stages, data2.stages, matcher.Options{
			SimilarityThreshold: opts.SimilarityThreshold,
			RequireOverlap:      opts.RequireOverlap,
		})
	}

	report := Report{
		"schema_version": SchemaVersion,
		"applications": map[string]any{
			"app1": appOverview(data1.app),
			"app2": appOverview(data2.app),
		},
	}

	var mu sync.Mutex
	set := func(key string, value any) {
		mu.Lock()
		report[key] = value
		mu.Unlock()
	}

	// Sections are independent: each one writes either its payload or an
	// error entry, never failing siblings.
	sg, _ := errgroup.WithContext(ctx)

	sg.Go(func() error {
		runSection("aggregated_overview", set, func() (any, error) {
			if err := firstErr(data1.executorsErr, data2.executorsErr); err != nil {
				return nil, err
			}
			return buildOverviewSection(data1, data2, opts.SignificanceThreshold), nil
		}, "verify the History Server serves /allexecutors for both applications")
		return nil
	})

	sg.Go(func() error {
		runSection("stage_deep_dive", set, func() (any, error) {
			if err := firstErr(data1.stagesErr, data2.stagesErr); err != nil {
				return nil, err
			}
			return c.buildStageSection(ctx, data1, data2, matches, opts.topStages(), opts.SignificanceThreshold), nil
		}, "verify the History Server serves /stages for both applications")
		return nil
	})

	sg.Go(func() error {
		runSection("executor_timeline", set, func() (any, error) {
			if err := firstErr(data1.executorsErr, data2.executorsErr); err != nil {
				return nil, err
			}
			return buildTimelineSection(data1, data2, timeline.Options{
				IntervalMinutes: opts.IntervalMinutes,
				MaxIntervals:    opts.MaxIntervals,
			}), nil
		}, "")
		return nil
	})

	sg.Go(func() error {
		runSection("environment_comparison", set, func() (any, error) {
			if err := firstErr(data1.envErr, data2.envErr); err != nil {
				return nil, err
			}
			return buildEnvironmentSection(data1, data2), nil
		}, "verify the History Server serves /environment for both applications")
		return nil
	})

	sg.Go(func() error {
		runSection("app_summary_diff", set, func() (any, error) {
			if err := firstErr(data1.stagesErr, data2.stagesErr); err != nil {
				return nil, err
			}
			summary1 := Summarize(data1.app, data1.stages, data1.executors, data1.jobs)
			summary2 := Summarize(data2.app, data2.stages, data2.executors, data2.jobs)
			return diff.Compare(summary1, summary2, diff.Options{Threshold: opts.SignificanceThreshold}), nil
		}, "")
		return nil
	})

	_ = sg.Wait()

	recs := c.engine.Apply(ctx, &recommend.Context{
		App1:         data1.app,
		App2:         data2.app,
		Executors1:   data1.executors,
		Executors2:   data2.executors,
		Stages1:      data1.stages,
		Stages2:      data2.stages,
		Jobs1:        data1.jobs,
		Jobs2:        data2.jobs,
		StageMatches: matches,
		Thresholds: recommend.Thresholds{
			LargeStageDiffSeconds: opts.LargeStageDiffSeconds,
			GCPressureThreshold:   opts.GCPressureThreshold,
		},
	})
	recs = recommend.Dedupe(recs)
	report["recommendations"] = recs

	key, err := recommend.Prioritize(recs, recommend.DefaultTopN)
	if err != nil {
		// Unreachable with a fixed positive topN, but do not drop the report.
		slog.Error("failed to prioritize recommendations", "error", err.Error())
		key = []recommend.Recommendation{}
	}
	report["key_recommendations"] = key

	comparisonsTotal.WithLabelValues("success").Inc()
	slog.Debug("comparison complete",
		"app1", appID1,
		"app2", appID2,
		"recommendations", len(recs),
		"duration", time.Since(start).String(),
	)
	return report, nil
}

// runSection executes one section builder, converting errors and panics into
// the section's error entry.
func runSection(name string, set func(string, any), build func() (any, error), suggestion string) {
	defer func() {
		if r := recover(); r != nil {
			sectionFailures.WithLabelValues(name).Inc()
			slog.Error("section panicked", "section", name, "panic", fmt.Sprintf("%v", r))
			set(name, sectionError(fmt.Errorf("internal error: %v", r), suggestion))
		}
	}()

	value, err := build()
	if err != nil {
		sectionFailures.WithLabelValues(name).Inc()
		slog.Warn("section failed", "section", name, "error", err.Error())
		set(name, sectionError(err, suggestion))
		return
	}
	set(name, value)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
