// Package recommend turns comparison findings into prioritized remediation
// recommendations. Rules run independently; one misbehaving rule is logged
// and skipped rather than aborting the batch.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/warrenzhu25/spark-insight/pkg/matcher"
	"github.com/warrenzhu25/spark-insight/pkg/spark"

	xerrors "github.com/warrenzhu25/spark-insight/pkg/errors"
)

// DefaultTopN is the number of key recommendations surfaced to the caller.
const DefaultTopN = 5

// Thresholds are the tunables rules read.
type Thresholds struct {
	// LargeStageDiffSeconds is the minimum absolute duration regression of a
	// matched stage pair worth flagging.
	LargeStageDiffSeconds float64
	// GCPressureThreshold is the gc-time to run-time ratio above which an
	// application is considered GC-bound.
	GCPressureThreshold float64
}

// Context carries everything rules may inspect about the two runs.
type Context struct {
	App1, App2             *spark.ApplicationInfo
	Executors1, Executors2 []spark.ExecutorSummary
	Stages1, Stages2       []spark.StageData
	Jobs1, Jobs2           []spark.JobData
	StageMatches           []matcher.Match
	Thresholds             Thresholds
}

// Rule inspects a comparison context and returns a recommendation, or nil
// when it has nothing to say.
type Rule func(ctx context.Context, rc *Context) (*Recommendation, error)

// namedRule pairs a rule with its metric label.
type namedRule struct {
	name string
	run  Rule
}

// Engine applies a configured rule set to comparison contexts.
type Engine struct {
	rules []namedRule
}

// Option configures an Engine.
type Option func(*Engine)

// WithRule appends a custom rule.
func WithRule(name string, rule Rule) Option {
	return func(e *Engine) {
		e.rules = append(e.rules, namedRule{name: name, run: rule})
	}
}

// WithoutDefaultRules drops the built-in rule set; only rules added through
// WithRule will run.
func WithoutDefaultRules() Option {
	return func(e *Engine) {
		e.rules = nil
	}
}

// New creates an Engine with the built-in rules plus any options.
func New(opts ...Option) *Engine {
	e := &Engine{rules: defaultRules()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply runs every rule against the context. Rule failures are logged,
// counted, and skipped. Results are normalized but not deduplicated; callers
// typically combine them with section-embedded recommendations first.
func (e *Engine) Apply(ctx context.Context, rc *Context) []Recommendation {
	start := time.Now()
	defer func() {
		ruleBatchDuration.Observe(time.Since(start).Seconds())
	}()

	out := make([]Recommendation, 0, len(e.rules))
	for _, rule := range e.rules {
		if ctx.Err() != nil {
			slog.Warn("recommendation batch canceled", "rule", rule.name)
			break
		}

		rec, err := rule.run(ctx, rc)
		if err != nil {
			ruleRunsTotal.WithLabelValues(rule.name, "error").Inc()
			slog.Error("recommendation rule failed",
				"rule", rule.name,
				"error", err.Error(),
			)
			continue
		}
		if rec == nil {
			ruleRunsTotal.WithLabelValues(rule.name, "no_finding").Inc()
			continue
		}

		ruleRunsTotal.WithLabelValues(rule.name, "finding").Inc()
		out = append(out, Normalize(*rec))
	}
	return out
}

// Prioritize filters to actionable recommendations (medium and above),
// stable-sorts by priority rank, and truncates to topN. A zero topN uses
// DefaultTopN; a negative one is a contract violation.
func Prioritize(recs []Recommendation, topN int) ([]Recommendation, error) {
	if topN < 0 {
		return nil, xerrors.New(xerrors.ErrCodeInvalidRequest,
			fmt.Sprintf("topN must be non-negative, got %d", topN))
	}
	if topN == 0 {
		topN = DefaultTopN
	}

	filtered := make([]Recommendation, 0, len(recs))
	for _, r := range recs {
		if r.Priority.Actionable() {
			filtered = append(filtered, r)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Priority.Rank() < filtered[j].Priority.Rank()
	})

	if len(filtered) > topN {
		filtered = filtered[:topN]
	}
	return filtered, nil
}
