package fit

import (
	"math"

	"burtrend/domain/stats"

	gstat "gonum.org/v1/gonum/stat"
)

// Linear fits y = intercept + slope*t by ordinary least squares. The p-value
// tests H0: slope = 0 with n-2 degrees of freedom.
func Linear(values []float64) Fit {
	n := len(values)
	if n < 3 {
		return notFit(stats.ModelLinear, n, stats.WarningLowN)
	}
	if isConstant(values) {
		return constantFit(stats.ModelLinear, values, []float64{values[0], 0}, n-2)
	}

	x := positions(n)
	intercept, slope := gstat.LinearRegression(x, values, nil, false)
	if !finite(intercept, slope) {
		return notFit(stats.ModelLinear, n, stats.WarningLowVariance)
	}

	f := Fit{
		Kind:   stats.ModelLinear,
		OK:     true,
		N:      n,
		Params: []float64{intercept, slope},
		DF:     n - 2,
	}
	var ssr float64
	f.Residuals, ssr = residualsOf(values, f.Predict)
	f.R2 = gstat.RSquared(x, values, nil, intercept, slope)

	xMean := gstat.Mean(x, nil)
	sxx := 0.0
	for _, v := range x {
		sxx += (v - xMean) * (v - xMean)
	}
	f.StdErr = math.Sqrt(ssr / float64(f.DF) / sxx)
	f.PValue = waldPValue(slope, f.StdErr, f.DF)
	f.Direction = stats.DirectionOf(slope)
	return f
}

// SlopeInterval is the two-sided confidence interval for the slope of a
// linear fit at the given level, using the t quantile with n-2 df.
func SlopeInterval(f Fit, level float64) stats.Interval {
	if !f.OK || f.Kind != stats.ModelLinear || f.DF < 1 {
		return stats.Interval{Lower: math.NaN(), Upper: math.NaN()}
	}
	tq := tQuantile(0.5+level/2, f.DF)
	slope := f.Params[1]
	return stats.Interval{
		Lower: slope - tq*f.StdErr,
		Upper: slope + tq*f.StdErr,
	}
}

// DurbinWatson tests residuals for first-order autocorrelation; values near 2
// mean none. Residuals that vanish entirely carry no evidence and score 2.
func DurbinWatson(residuals []float64) float64 {
	if len(residuals) < 2 {
		return math.NaN()
	}
	num, den := 0.0, residuals[0]*residuals[0]
	for i := 1; i < len(residuals); i++ {
		d := residuals[i] - residuals[i-1]
		num += d * d
		den += residuals[i] * residuals[i]
	}
	if den < 1e-24 {
		return 2
	}
	return num / den
}
