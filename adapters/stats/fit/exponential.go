package fit

import (
	"errors"
	"math"

	"burtrend/domain/stats"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	gstat "gonum.org/v1/gonum/stat"
)

// maxExponent keeps exp(b*t) inside float64 range during the search
const maxExponent = 700

// Exponential fits y = a*exp(b*t) by nonlinear least squares. The search
// starts from a log-linear regression and is bounded by maxIter BFGS
// iterations; hitting a bound or producing non-finite parameters yields a
// fit with OK=false. The p-value is the Wald test of b with n-2 df.
func Exponential(values []float64, maxIter int) Fit {
	n := len(values)
	if n < 3 {
		return notFit(stats.ModelExponential, n, stats.WarningLowN)
	}
	if isConstant(values) {
		return constantFit(stats.ModelExponential, values, []float64{values[0], 0}, n-2)
	}
	if maxIter < 1 {
		maxIter = 200
	}

	x := positions(n)
	last := x[n-1]
	sse := func(p []float64) float64 {
		if math.Abs(p[1]*last) > maxExponent {
			return math.Inf(1)
		}
		s := 0.0
		for i, y := range values {
			r := p[0]*math.Exp(p[1]*x[i]) - y
			s += r * r
		}
		return s
	}
	grad := func(g, p []float64) {
		g[0], g[1] = 0, 0
		if math.Abs(p[1]*last) > maxExponent {
			g[0], g[1] = math.NaN(), math.NaN()
			return
		}
		for i, y := range values {
			e := math.Exp(p[1] * x[i])
			r := p[0]*e - y
			g[0] += 2 * r * e
			g[1] += 2 * r * p[0] * x[i] * e
		}
	}

	problem := optimize.Problem{Func: sse, Grad: grad}
	settings := &optimize.Settings{
		MajorIterations: maxIter,
		FuncEvaluations: maxIter * 50,
	}
	start := initialGuess(x, values)
	res, err := optimize.Minimize(problem, start, settings, &optimize.BFGS{})
	params, ok := settle(res, err, start, sse)
	if !ok {
		return notFit(stats.ModelExponential, n, stats.WarningNotConverged)
	}
	a, b := params[0], params[1]
	if !finite(a, b) || math.Abs(b*last) > maxExponent {
		return notFit(stats.ModelExponential, n, stats.WarningNotConverged)
	}

	f := Fit{
		Kind:   stats.ModelExponential,
		OK:     true,
		N:      n,
		Params: []float64{a, b},
		DF:     n - 2,
	}
	var ssr float64
	f.Residuals, ssr = residualsOf(values, f.Predict)
	f.R2 = rSquared(values, ssr)
	f.StdErr = growthStdErr(x, a, b, ssr/float64(f.DF))
	f.PValue = waldPValue(b, f.StdErr, f.DF)
	f.Direction = stats.DirectionOf(b)
	return f
}

// initialGuess regresses ln(y) on t when every value is positive, otherwise
// starts flat at the mean.
func initialGuess(x, values []float64) []float64 {
	logs := make([]float64, len(values))
	for i, v := range values {
		if v <= 0 {
			return []float64{gstat.Mean(values, nil), 0}
		}
		logs[i] = math.Log(v)
	}
	alpha, beta := gstat.LinearRegression(x, logs, nil, false)
	if !finite(alpha, beta) {
		return []float64{gstat.Mean(values, nil), 0}
	}
	return []float64{math.Exp(alpha), beta}
}

// growthStdErr is the asymptotic standard error of b from s²(JᵀJ)⁻¹
func growthStdErr(x []float64, a, b, s2 float64) float64 {
	n := len(x)
	jac := mat.NewDense(n, 2, nil)
	for i, t := range x {
		e := math.Exp(b * t)
		jac.Set(i, 0, e)
		jac.Set(i, 1, a*t*e)
	}
	var jtj, inv mat.Dense
	jtj.Mul(jac.T(), jac)
	if err := inv.Inverse(&jtj); err != nil {
		return math.NaN()
	}
	v := s2 * inv.At(1, 1)
	if v < 0 {
		return math.NaN()
	}
	return math.Sqrt(v)
}

// settle decides whether the search produced usable parameters. Hitting an
// iteration or evaluation bound is non-convergence. A line search that stalls
// (the start was already at the optimum to floating-point precision) is
// accepted, keeping whichever of the start and the last iterate fits better.
func settle(res *optimize.Result, err error, start []float64, sse func([]float64) float64) ([]float64, bool) {
	if res != nil {
		switch res.Status {
		case optimize.IterationLimit, optimize.FunctionEvaluationLimit,
			optimize.GradientEvaluationLimit, optimize.RuntimeLimit:
			return nil, false
		}
	}
	if err != nil && !stalled(err) {
		return nil, false
	}

	best := start
	bestF := sse(start)
	if res != nil && len(res.X) == 2 && finite(res.F) && res.F <= bestF {
		best, bestF = res.X, res.F
	}
	if !finite(bestF) {
		return nil, false
	}
	return best, true
}

func stalled(err error) bool {
	return errors.Is(err, optimize.ErrNoProgress) ||
		errors.Is(err, optimize.ErrLinesearcherFailure) ||
		errors.Is(err, optimize.ErrNonDescentDirection)
}
