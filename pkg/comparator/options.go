package comparator

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/warrenzhu25/spark-insight/pkg/config"

	xerrors "github.com/warrenzhu25/spark-insight/pkg/errors"
)

// DefaultTopStages is the number of stage regressions surfaced in the deep dive.
const DefaultTopStages = 3

// Options tunes a single comparison. Zero values fall back to the engine
// defaults, so Options{} is always usable.
type Options struct {
	// TopStages caps the stage deep dive; 0 means DefaultTopStages.
	TopStages int `json:"top_stages" mapstructure:"top_stages"`
	// SignificanceThreshold is the minimum relative metric change reported.
	SignificanceThreshold float64 `json:"significance_threshold" mapstructure:"significance_threshold"`
	// SimilarityThreshold is the minimum stage-name similarity for matching.
	SimilarityThreshold float64 `json:"similarity_threshold" mapstructure:"similarity_threshold"`
	// RequireOverlap drops stage pairings whose windows never overlap.
	RequireOverlap bool `json:"require_overlap" mapstructure:"require_overlap"`
	// IntervalMinutes is the timeline bucket width.
	IntervalMinutes int `json:"interval_minutes" mapstructure:"interval_minutes"`
	// MaxIntervals caps timeline length.
	MaxIntervals int `json:"max_intervals" mapstructure:"max_intervals"`
	// LargeStageDiffSeconds is the stage regression threshold for rules.
	LargeStageDiffSeconds float64 `json:"large_stage_diff_seconds" mapstructure:"large_stage_diff_seconds"`
	// GCPressureThreshold is the gc-to-runtime ratio threshold for rules.
	GCPressureThreshold float64 `json:"gc_pressure_threshold" mapstructure:"gc_pressure_threshold"`
}

// OptionsFromEngine seeds Options from loaded configuration.
func OptionsFromEngine(e config.Engine) Options {
	return Options{
		SignificanceThreshold: e.SignificanceThreshold,
		SimilarityThreshold:   e.StageMatchSimilarity,
		IntervalMinutes:       e.TimelineIntervalMinutes,
		MaxIntervals:          e.TimelineMaxIntervals,
		LargeStageDiffSeconds: e.LargeStageDiffSeconds,
		GCPressureThreshold:   e.GCPressureThreshold,
	}
}

// Validate rejects out-of-contract values before any fetching happens.
func (o Options) Validate() error {
	var result *multierror.Error

	if o.TopStages < 0 {
		result = multierror.Append(result, fmt.Errorf("top_stages must be non-negative, got %d", o.TopStages))
	}
	if o.SignificanceThreshold < 0 || o.SignificanceThreshold > 1 {
		result = multierror.Append(result, fmt.Errorf("significance_threshold must be within [0, 1], got %v", o.SignificanceThreshold))
	}
	if o.SimilarityThreshold < 0 || o.SimilarityThreshold > 1 {
		result = multierror.Append(result, fmt.Errorf("similarity_threshold must be within [0, 1], got %v", o.SimilarityThreshold))
	}
	if o.IntervalMinutes < 0 {
		result = multierror.Append(result, fmt.Errorf("interval_minutes must be non-negative, got %d", o.IntervalMinutes))
	}
	if o.MaxIntervals < 0 {
		result = multierror.Append(result, fmt.Errorf("max_intervals must be non-negative, got %d", o.MaxIntervals))
	}
	if o.LargeStageDiffSeconds < 0 {
		result = multierror.Append(result, fmt.Errorf("large_stage_diff_seconds must be non-negative, got %v", o.LargeStageDiffSeconds))
	}

	if err := result.ErrorOrNil(); err != nil {
		return xerrors.Wrap(xerrors.ErrCodeInvalidRequest, "invalid comparison options", err)
	}
	return nil
}

func (o Options) topStages() int {
	if o.TopStages == 0 {
		return DefaultTopStages
	}
	return o.TopStages
}
