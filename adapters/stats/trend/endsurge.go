package trend

import (
	"math"

	"burtrend/domain/stats"
)

// EndSurgeResult compares the closing stretch of a phrase with the rest.
// Slope carries the magnitude and Statistic Cohen's d.
type EndSurgeResult struct {
	stats.TrendResult
	TailSize    int     `json:"tail_size"`
	Magnitude   float64 `json:"magnitude"`
	EffectSize  float64 `json:"effect_size"`
	HasEndSurge bool    `json:"has_end_surge"`
}

// TailSize is the number of closing values treated as the ending:
// floor(n*fraction), at least one.
func TailSize(n int, fraction float64) int {
	tail := int(math.Floor(float64(n) * fraction))
	if tail < 1 {
		tail = 1
	}
	return tail
}

// EndSurge tests whether the last EndFraction of the phrase rises above the
// remainder. A surge needs a significant pooled t-test and a large positive
// effect (d >= MinEffectSize). Identical groups give d = 0; perfectly
// separated groups give an infinite d.
func EndSurge(values []float64, p stats.Params) EndSurgeResult {
	n := len(values)
	if n < p.MinSamples {
		return EndSurgeResult{TrendResult: stats.NotApplicable(stats.TestEndSurge, n, stats.WarningLowN)}
	}

	tail := TailSize(n, p.EndFraction)
	t := pooledTTest(values[:n-tail], values[n-tail:])
	if math.IsNaN(t.P) {
		return EndSurgeResult{TrendResult: stats.NotApplicable(stats.TestEndSurge, n, stats.WarningLowVariance), TailSize: tail}
	}

	return EndSurgeResult{
		TrendResult: stats.TrendResult{
			Test:       stats.TestEndSurge,
			Applicable: true,
			N:          n,
			Slope:      t.Diff,
			Statistic:  t.CohensD,
			PValue:     t.P,
			Direction:  stats.DirectionOf(t.Diff),
		},
		TailSize:    tail,
		Magnitude:   t.Diff,
		EffectSize:  t.CohensD,
		HasEndSurge: t.P < p.Alpha && t.CohensD >= p.MinEffectSize,
	}
}
