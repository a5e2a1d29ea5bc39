package trend

import (
	"math"
	"sort"

	"burtrend/domain/stats"

	"gonum.org/v1/gonum/stat/distuv"
)

// MKResult is a Mann-Kendall test outcome. Slope holds Sen's slope and
// Statistic holds Kendall's tau.
type MKResult struct {
	stats.TrendResult
	S         float64       `json:"s"`
	VarS      float64       `json:"var_s"`
	Z         float64       `json:"z"`
	Tau       float64       `json:"tau"`
	Trend     stats.MKTrend `json:"trend"`
	Intercept float64       `json:"intercept"`

	// CorrectionFactor is n/n* of the Hamed-Rao variance inflation; 1 for
	// the original test.
	CorrectionFactor float64 `json:"correction_factor"`
}

// MannKendall is the original non-parametric monotonic trend test with
// tie-corrected variance and continuity-corrected normal approximation.
func MannKendall(values []float64, p stats.Params) MKResult {
	n := len(values)
	if n < p.MinSamples {
		return notApplicableMK(stats.TestMannKendall, n)
	}

	s := mkScore(values)
	varS := tieCorrectedVariance(values)
	return buildMK(stats.TestMannKendall, values, s, varS, 1, p)
}

// ModifiedMannKendall applies the Hamed-Rao correction: the variance of S is
// inflated by the effective sample size implied by the significant
// autocorrelations of the ranks of the Sen-detrended series.
func ModifiedMannKendall(values []float64, p stats.Params) MKResult {
	n := len(values)
	if n < p.MinSamples {
		return notApplicableMK(stats.TestModifiedMK, n)
	}

	s := mkScore(values)
	varS := tieCorrectedVariance(values)

	slope := SensSlope(values, varS, p.ZCritical()).Slope
	detrended := make([]float64, n)
	for i, v := range values {
		detrended[i] = v - slope*float64(i)
	}
	ranks := averageRanks(detrended)
	acf := autocorrelation(ranks, n-1)

	bound := p.ZCritical() / math.Sqrt(float64(n))
	fn := float64(n)
	sum := 0.0
	for k := 1; k < n; k++ {
		r := acf[k]
		if r >= -bound && r <= bound {
			continue
		}
		fk := float64(k)
		sum += (fn - fk) * (fn - fk - 1) * (fn - fk - 2) * r
	}
	factor := 1 + 2/(fn*(fn-1)*(fn-2))*sum
	if factor <= 0 || math.IsNaN(factor) {
		factor = 1
	}

	return buildMK(stats.TestModifiedMK, values, s, varS*factor, factor, p)
}

func buildMK(test stats.TestType, values []float64, s, varS, factor float64, p stats.Params) MKResult {
	n := float64(len(values))
	z := mkZ(s, varS)
	pv := normalTwoSided(z)
	tau := s / (0.5 * n * (n - 1))

	sens := SensSlope(values, varS, p.ZCritical())
	ci := sens.CI

	trend := stats.TrendNone
	if pv < p.Alpha {
		if z > 0 {
			trend = stats.TrendIncreasing
		} else if z < 0 {
			trend = stats.TrendDecreasing
		}
	}

	return MKResult{
		TrendResult: stats.TrendResult{
			Test:       test,
			Applicable: true,
			N:          len(values),
			Slope:      sens.Slope,
			Statistic:  tau,
			PValue:     pv,
			Direction:  stats.DirectionOf(s),
			CI:         &ci,
		},
		S:                s,
		VarS:             varS,
		Z:                z,
		Tau:              tau,
		Trend:            trend,
		Intercept:        sens.Intercept,
		CorrectionFactor: factor,
	}
}

func notApplicableMK(test stats.TestType, n int) MKResult {
	return MKResult{
		TrendResult:      stats.NotApplicable(test, n, stats.WarningLowN),
		Trend:            stats.TrendNone,
		Z:                math.NaN(),
		Tau:              math.NaN(),
		CorrectionFactor: 1,
	}
}

// mkScore is S = sum over i<j of sign(x_j - x_i)
func mkScore(values []float64) float64 {
	s := 0.0
	for i := 0; i < len(values)-1; i++ {
		for j := i + 1; j < len(values); j++ {
			s += sign(values[j] - values[i])
		}
	}
	return s
}

// tieCorrectedVariance is Var(S) = [n(n-1)(2n+5) - Σ t(t-1)(2t+5)] / 18
// where t runs over the sizes of groups of tied values.
func tieCorrectedVariance(values []float64) float64 {
	n := float64(len(values))
	counts := make(map[float64]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	ties := 0.0
	for _, c := range counts {
		if c > 1 {
			t := float64(c)
			ties += t * (t - 1) * (2*t + 5)
		}
	}
	return (n*(n-1)*(2*n+5) - ties) / 18
}

// mkZ applies the continuity correction; no variance means no evidence
func mkZ(s, varS float64) float64 {
	if varS <= 0 {
		return 0
	}
	switch {
	case s > 0:
		return (s - 1) / math.Sqrt(varS)
	case s < 0:
		return (s + 1) / math.Sqrt(varS)
	default:
		return 0
	}
}

func normalTwoSided(z float64) float64 {
	return math.Min(1, 2*distuv.UnitNormal.Survival(math.Abs(z)))
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// averageRanks assigns 1-based ranks, averaging over ties
func averageRanks(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	ranks := make([]float64, len(values))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// autocorrelation returns the sample ACF for lags 0..maxLag using the
// biased (divide by n) autocovariance. A series without variance has
// zero autocorrelation at every positive lag.
func autocorrelation(values []float64, maxLag int) []float64 {
	n := len(values)
	acf := make([]float64, maxLag+1)
	if n == 0 {
		return acf
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	c0 := sumSquares(values, mean)
	if c0 == 0 {
		acf[0] = 1
		return acf
	}
	for k := 0; k <= maxLag && k < n; k++ {
		c := 0.0
		for t := 0; t+k < n; t++ {
			c += (values[t] - mean) * (values[t+k] - mean)
		}
		acf[k] = c / c0
	}
	return acf
}

// Score returns the Mann-Kendall S statistic of values and its
// tie-corrected variance
func Score(values []float64) (s, varS float64) {
	return mkScore(values), tieCorrectedVariance(values)
}

// ZScore is the continuity-corrected standard score of S
func ZScore(s, varS float64) float64 {
	return mkZ(s, varS)
}

// TwoSidedP is the two-sided standard normal p-value of z
func TwoSidedP(z float64) float64 {
	return normalTwoSided(z)
}
