// Package matcher pairs corresponding stages across two Spark application
// runs. Stage IDs are not stable across runs, so stages are matched by name
// similarity with execution-window overlap as a tiebreaker.
package matcher

import (
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/warrenzhu25/spark-insight/pkg/spark"
)

// DefaultSimilarityThreshold is the minimum name similarity for a pairing.
const DefaultSimilarityThreshold = 0.75

// Match is one stage pairing with its scores.
type Match struct {
	Stage1         *spark.StageData `json:"stage1"`
	Stage2         *spark.StageData `json:"stage2"`
	Similarity     float64          `json:"similarity"`
	OverlapSeconds float64          `json:"overlap_seconds"`
}

// Options tunes the matcher.
type Options struct {
	// SimilarityThreshold is the minimum normalized name similarity;
	// 0 means DefaultSimilarityThreshold.
	SimilarityThreshold float64
	// RequireOverlap drops candidates whose execution windows never overlap.
	RequireOverlap bool
}

func (o Options) threshold() float64 {
	if o.SimilarityThreshold <= 0 {
		return DefaultSimilarityThreshold
	}
	return o.SimilarityThreshold
}

// Similarity computes the normalized Levenshtein similarity of two stage
// names, case-insensitive. Either name empty yields 0.
func Similarity(name1, name2 string) float64 {
	if name1 == "" || name2 == "" {
		return 0
	}
	a := strings.ToLower(name1)
	b := strings.ToLower(name2)
	if a == b {
		return 1
	}

	dist := levenshtein.ComputeDistance(a, b)
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	return 1 - float64(dist)/float64(longest)
}

// Overlap returns the overlap of two stage execution windows in seconds.
// A stage with no submission time contributes no overlap; a missing
// completion time collapses the window to its start.
func Overlap(s1, s2 *spark.StageData) float64 {
	if s1.SubmissionTime == nil || s2.SubmissionTime == nil {
		return 0
	}

	start1, end1 := window(s1)
	start2, end2 := window(s2)

	latestStart := start1
	if start2.After(latestStart) {
		latestStart = start2
	}
	earliestEnd := end1
	if end2.Before(earliestEnd) {
		earliestEnd = end2
	}

	overlap := earliestEnd.Sub(latestStart).Seconds()
	if overlap < 0 {
		return 0
	}
	return overlap
}

func window(s *spark.StageData) (start, end time.Time) {
	start = s.SubmissionTime.Time
	end = start
	if s.CompletionTime != nil {
		end = s.CompletionTime.Time
	}
	return start, end
}

// Pair greedily matches stages1 against stages2 one-to-one. For each stage in
// stages1, the unreserved stage in stages2 with the highest similarity wins,
// overlap breaking ties toward the earlier candidate. Stages with no eligible
// candidate are omitted. The result is sorted by (similarity, overlap)
// descending. Pair is pure and never fails.
func Pair(stages1, stages2 []spark.StageData, opts Options) []Match {
	threshold := opts.threshold()

	matches := make([]Match, 0, min(len(stages1), len(stages2)))
	used := make([]bool, len(stages2))

	for i := range stages1 {
		s1 := &stages1[i]

		bestIdx := -1
		bestSim := 0.0
		bestOverlap := 0.0

		for j := range stages2 {
			if used[j] {
				continue
			}
			s2 := &stages2[j]

			sim := Similarity(s1.Name, s2.Name)
			if sim < threshold {
				continue
			}

			overlap := Overlap(s1, s2)
			if opts.RequireOverlap && overlap <= 0 {
				continue
			}

			if sim > bestSim || (sim == bestSim && overlap > bestOverlap) {
				bestIdx = j
				bestSim = sim
				bestOverlap = overlap
			}
		}

		if bestIdx < 0 {
			continue
		}

		used[bestIdx] = true
		matches = append(matches, Match{
			Stage1:         s1,
			Stage2:         &stages2[bestIdx],
			Similarity:     bestSim,
			OverlapSeconds: bestOverlap,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].OverlapSeconds > matches[j].OverlapSeconds
	})

	return matches
}
