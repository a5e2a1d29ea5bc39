package trend

import (
	"math"

	"burtrend/domain/stats"
)

// StepResult locates the strongest abrupt level shift in a phrase. Position
// is the index of the first value after the shift; Slope carries the
// magnitude and Statistic the t statistic.
type StepResult struct {
	stats.TrendResult
	Position   int     `json:"position"`
	Magnitude  float64 `json:"magnitude"`
	MeanBefore float64 `json:"mean_before"`
	MeanAfter  float64 `json:"mean_after"`
	HasStep    bool    `json:"has_step"`
}

// StepChange tests every split point with a pooled two-sample t-test and
// keeps the split with the lowest p-value. Ties go to the larger absolute
// shift, then to the earlier split.
func StepChange(values []float64, p stats.Params) StepResult {
	n := len(values)
	if n < p.MinSamples {
		return StepResult{TrendResult: stats.NotApplicable(stats.TestStepChange, n, stats.WarningLowN), Position: -1}
	}

	bestK := -1
	var best twoSample
	for k := 1; k < n; k++ {
		t := pooledTTest(values[:k], values[k:])
		if math.IsNaN(t.P) {
			continue
		}
		if bestK < 0 || t.P < best.P || (t.P == best.P && math.Abs(t.Diff) > math.Abs(best.Diff)) {
			bestK, best = k, t
		}
	}
	if bestK < 0 {
		return StepResult{TrendResult: stats.NotApplicable(stats.TestStepChange, n, stats.WarningLowVariance), Position: -1}
	}

	return StepResult{
		TrendResult: stats.TrendResult{
			Test:       stats.TestStepChange,
			Applicable: true,
			N:          n,
			Slope:      best.Diff,
			Statistic:  best.T,
			PValue:     best.P,
			Direction:  stats.DirectionOf(best.Diff),
		},
		Position:   bestK,
		Magnitude:  best.Diff,
		MeanBefore: best.MeanBefore,
		MeanAfter:  best.MeanAfter,
		HasStep:    best.P < p.Alpha && best.Diff != 0,
	}
}
