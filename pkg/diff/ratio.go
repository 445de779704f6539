package diff

import (
	"math"
	"strings"
)

// SafeRatio returns v2/v1 guarding against a zero baseline: +Inf when only
// the second value is non-zero, 1.0 when both are zero.
func SafeRatio(v1, v2 float64) float64 {
	if v1 == 0 {
		if v2 > 0 {
			return math.Inf(1)
		}
		return 1.0
	}
	return v2 / v1
}

// FilterSignificantRatios keeps only ratio-style metrics that deviate enough
// to matter. Keys ending in "_ratio" are kept when |value-1| >= threshold;
// keys ending in "_percent_change" when |value| >= threshold*100. Other keys
// pass through untouched.
func FilterSignificantRatios(metrics map[string]float64, threshold float64) map[string]float64 {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	out := make(map[string]float64, len(metrics))
	for key, value := range metrics {
		switch {
		case strings.HasSuffix(key, "_ratio"):
			if math.Abs(value-1) >= threshold || math.IsInf(value, 0) {
				out[key] = value
			}
		case strings.HasSuffix(key, "_percent_change"):
			if math.Abs(value) >= threshold*100 {
				out[key] = value
			}
		default:
			out[key] = value
		}
	}
	return out
}
