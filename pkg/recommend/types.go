package recommend

// Priority classifies how urgently a recommendation should be acted on.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
	PriorityInfo     Priority = "info"
)

// priorityRanks orders priorities for sorting; unknown values sort last.
var priorityRanks = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
	PriorityInfo:     4,
}

// Rank returns the sort rank of a priority. Unknown priorities rank below low.
func (p Priority) Rank() int {
	if rank, ok := priorityRanks[p]; ok {
		return rank
	}
	return len(priorityRanks)
}

// Actionable reports whether the priority is medium or above.
func (p Priority) Actionable() bool {
	return p.Rank() <= priorityRanks[PriorityMedium]
}

// DefaultType is assigned to recommendations that do not declare a category.
const DefaultType = "general"

// Recommendation is one remediation suggestion derived from a comparison.
type Recommendation struct {
	Type       string         `json:"type" yaml:"type"`
	Priority   Priority       `json:"priority" yaml:"priority"`
	Issue      string         `json:"issue" yaml:"issue"`
	Suggestion string         `json:"suggestion" yaml:"suggestion"`
	Details    map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
}

// Normalize fills missing classification fields with defaults.
func Normalize(r Recommendation) Recommendation {
	if r.Type == "" {
		r.Type = DefaultType
	}
	if r.Priority == "" {
		r.Priority = PriorityLow
	}
	return r
}

// Dedupe removes duplicate recommendations, keyed by (type, issue,
// suggestion), preserving first-seen order.
func Dedupe(recs []Recommendation) []Recommendation {
	type key struct {
		typ, issue, suggestion string
	}
	seen := make(map[key]bool, len(recs))
	out := make([]Recommendation, 0, len(recs))
	for _, r := range recs {
		k := key{r.Type, r.Issue, r.Suggestion}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}
