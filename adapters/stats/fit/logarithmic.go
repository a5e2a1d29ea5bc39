package fit

import (
	"math"

	"burtrend/domain/stats"

	gstat "gonum.org/v1/gonum/stat"
)

// Logarithmic fits y = a*ln(t+1+eps) + b. The model is linear in its
// parameters, so it is solved exactly by regressing y on the transformed
// position; the p-value tests H0: a = 0 with n-2 df.
func Logarithmic(values []float64) Fit {
	n := len(values)
	if n < 3 {
		return notFit(stats.ModelLogarithmic, n, stats.WarningLowN)
	}
	if isConstant(values) {
		return constantFit(stats.ModelLogarithmic, values, []float64{0, values[0]}, n-2)
	}

	u := make([]float64, n)
	for i := range u {
		u[i] = logTerm(float64(i))
	}
	b, a := gstat.LinearRegression(u, values, nil, false)
	if !finite(a, b) {
		return notFit(stats.ModelLogarithmic, n, stats.WarningLowVariance)
	}

	f := Fit{
		Kind:   stats.ModelLogarithmic,
		OK:     true,
		N:      n,
		Params: []float64{a, b},
		DF:     n - 2,
	}
	var ssr float64
	f.Residuals, ssr = residualsOf(values, f.Predict)
	f.R2 = rSquared(values, ssr)

	uMean := gstat.Mean(u, nil)
	suu := 0.0
	for _, v := range u {
		suu += (v - uMean) * (v - uMean)
	}
	f.StdErr = math.Sqrt(ssr / float64(f.DF) / suu)
	f.PValue = waldPValue(a, f.StdErr, f.DF)
	f.Direction = stats.DirectionOf(a)
	return f
}
