// Package surge scans phrases for short-lived monotonic surges with a
// seasonal Mann-Kendall test over sliding windows.
package surge

import (
	"math"

	"burtrend/adapters/stats/trend"
	"burtrend/domain/stats"

	mstats "github.com/montanaflynn/stats"
)

// SeasonalMannKendall tests values for a monotonic trend while comparing
// only positions that share a season (position mod period). S, its variance
// and the number of comparisons are summed over seasons; tau is S over the
// comparison count. Sen's slope pools the within-season pairwise slopes and
// is expressed per position. Without any within-season pair the window is
// not applicable.
func SeasonalMannKendall(values []float64, period int) stats.Window {
	w := stats.Window{
		Size:      len(values),
		End:       len(values) - 1,
		Direction: stats.NoChange,
		Tau:       math.NaN(),
		Z:         math.NaN(),
		PValue:    math.NaN(),
		SensSlope: math.NaN(),
	}
	if period < 1 {
		period = 1
	}

	var s, varS float64
	pairs := 0
	var slopes []float64
	for season := 0; season < period; season++ {
		var sub []float64
		for i := season; i < len(values); i += period {
			sub = append(sub, values[i])
		}
		if len(sub) < 2 {
			continue
		}
		ss, vs := trend.Score(sub)
		s += ss
		varS += vs
		pairs += len(sub) * (len(sub) - 1) / 2
		for i := 0; i < len(sub)-1; i++ {
			for j := i + 1; j < len(sub); j++ {
				slopes = append(slopes, (sub[j]-sub[i])/float64((j-i)*period))
			}
		}
	}

	w.Comparisons = pairs
	if pairs == 0 {
		w.Reason = stats.WarningNoSeasonalPairs
		return w
	}

	w.Applicable = true
	w.S = s
	w.Tau = s / float64(pairs)
	w.Z = trend.ZScore(s, varS)
	w.PValue = trend.TwoSidedP(w.Z)
	w.SensSlope, _ = mstats.Median(slopes)
	w.Direction = stats.DirectionOf(s)
	return w
}
