package trend

import (
	"math"
	"sort"

	"burtrend/domain/stats"

	mstats "github.com/montanaflynn/stats"
)

// Sens is Sen's slope estimate with its rank-based confidence interval
type Sens struct {
	Slope     float64        `json:"slope"`
	Intercept float64        `json:"intercept"`
	CI        stats.Interval `json:"ci"`
	Pairs     int            `json:"pairs"`
}

// SensSlope is the median of all pairwise slopes (x_j - x_i)/(j - i). The
// interval takes C = z*sqrt(Var(S)) and reads the ordered slopes at ranks
// (N-C)/2 and (N+C)/2 + 1, interpolating between neighbours and clamping to
// the available range.
func SensSlope(values []float64, varS, z float64) Sens {
	n := len(values)
	slopes := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			slopes = append(slopes, (values[j]-values[i])/float64(j-i))
		}
	}
	if len(slopes) == 0 {
		nan := math.NaN()
		return Sens{Slope: nan, Intercept: nan, CI: stats.Interval{Lower: nan, Upper: nan}}
	}
	sort.Float64s(slopes)

	slope, _ := mstats.Median(slopes)
	medianY, _ := mstats.Median(values)
	intercept := medianY - slope*float64(n-1)/2

	N := float64(len(slopes))
	c := z * math.Sqrt(math.Max(varS, 0))
	return Sens{
		Slope:     slope,
		Intercept: intercept,
		CI: stats.Interval{
			Lower: rankValue(slopes, (N-c)/2),
			Upper: rankValue(slopes, (N+c)/2+1),
		},
		Pairs: len(slopes),
	}
}

// rankValue reads a sorted slice at a fractional 1-based rank
func rankValue(sorted []float64, rank float64) float64 {
	n := float64(len(sorted))
	rank = math.Max(1, math.Min(n, rank))
	lo := math.Floor(rank)
	frac := rank - lo
	i := int(lo) - 1
	if frac == 0 || i+1 >= len(sorted) {
		return sorted[i]
	}
	return sorted[i] + frac*(sorted[i+1]-sorted[i])
}
