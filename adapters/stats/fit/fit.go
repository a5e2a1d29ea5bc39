// Package fit fits the four candidate curve families to a phrase and picks
// the best one. Positions are t = 0..n-1.
package fit

import (
	"math"

	"burtrend/domain/stats"

	"gonum.org/v1/gonum/stat/distuv"
)

// Logarithmic models are evaluated at ln(t + LogOffset + LogEpsilon) so
// that position 0 stays finite. Fitting and prediction share the offset.
const (
	LogOffset  = 1.0
	LogEpsilon = 1e-6
)

// Fit is a fitted curve. Params are ordered per model:
//
//	linear:      [intercept, slope]          y = p0 + p1*t
//	exponential: [a, b]                      y = a*exp(b*t)
//	logarithmic: [a, b]                      y = a*ln(t+1+eps) + b
//	quadratic:   [a, b, c]                   y = a*t² + b*t + c
type Fit struct {
	Kind      stats.ModelKind   `json:"kind"`
	OK        bool              `json:"ok"`
	Reason    stats.WarningCode `json:"reason,omitempty"`
	N         int               `json:"n"`
	Params    []float64         `json:"params"`
	R2        float64           `json:"r2"`
	PValue    float64           `json:"p_value"` // test of the key coefficient
	StdErr    float64           `json:"std_err"` // of the key coefficient
	DF        int               `json:"df"`
	Direction stats.Direction   `json:"direction"`
	Shape     stats.Shape       `json:"shape,omitempty"`
	Vertex    float64           `json:"vertex,omitempty"`
	Residuals []float64         `json:"-"`
}

// Coefficient returns the model's key coefficient: the slope, the growth
// rate, the log coefficient or the quadratic term.
func (f Fit) Coefficient() float64 {
	if !f.OK {
		return math.NaN()
	}
	switch f.Kind {
	case stats.ModelLinear, stats.ModelExponential:
		return f.Params[1]
	default:
		return f.Params[0]
	}
}

// Predict evaluates the fitted curve at position t
func (f Fit) Predict(t float64) float64 {
	if !f.OK {
		return math.NaN()
	}
	p := f.Params
	switch f.Kind {
	case stats.ModelLinear:
		return p[0] + p[1]*t
	case stats.ModelExponential:
		return p[0] * math.Exp(p[1]*t)
	case stats.ModelLogarithmic:
		return p[0]*logTerm(t) + p[1]
	case stats.ModelQuadratic:
		return p[0]*t*t + p[1]*t + p[2]
	}
	return math.NaN()
}

// Result converts the fit into a trend result for its model's test
func (f Fit) Result() stats.TrendResult {
	if !f.OK {
		return stats.NotApplicable(f.Kind.TestType(), f.N, f.Reason)
	}
	return stats.TrendResult{
		Test:       f.Kind.TestType(),
		Applicable: true,
		N:          f.N,
		Slope:      f.Coefficient(),
		Statistic:  f.R2,
		PValue:     f.PValue,
		Direction:  f.Direction,
	}
}

func notFit(kind stats.ModelKind, n int, reason stats.WarningCode) Fit {
	return Fit{
		Kind:      kind,
		N:         n,
		Reason:    reason,
		R2:        math.NaN(),
		PValue:    math.NaN(),
		StdErr:    math.NaN(),
		Direction: stats.NoChange,
	}
}

func logTerm(t float64) float64 {
	return math.Log(t + LogOffset + LogEpsilon)
}

func positions(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}
	return x
}

func isConstant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// residualsOf returns y - yhat and the residual sum of squares
func residualsOf(y []float64, predict func(float64) float64) ([]float64, float64) {
	res := make([]float64, len(y))
	ssr := 0.0
	for i, v := range y {
		res[i] = v - predict(float64(i))
		ssr += res[i] * res[i]
	}
	return res, ssr
}

// rSquared is 1 - SSres/SStot; a series without variance has R² = 0
func rSquared(y []float64, ssr float64) float64 {
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	sst := 0.0
	for _, v := range y {
		d := v - mean
		sst += d * d
	}
	if sst == 0 {
		return 0
	}
	return 1 - ssr/sst
}

// waldPValue is the two-sided Student's t p-value of coef/se with df degrees
// of freedom. A zero standard error means an exact fit: p is 0 for a non-zero
// coefficient and 1 otherwise.
func waldPValue(coef, se float64, df int) float64 {
	if df < 1 || math.IsNaN(coef) || math.IsNaN(se) {
		return math.NaN()
	}
	if se == 0 {
		if coef == 0 {
			return 1
		}
		return 0
	}
	t := math.Abs(coef / se)
	if math.IsInf(t, 0) {
		return 0
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	return math.Min(1, 2*dist.Survival(t))
}

// constantFit is the exact description of a phrase with no variation
func constantFit(kind stats.ModelKind, values []float64, params []float64, df int) Fit {
	return Fit{
		Kind:      kind,
		OK:        true,
		N:         len(values),
		Params:    params,
		R2:        0,
		PValue:    1,
		StdErr:    0,
		DF:        df,
		Direction: stats.NoChange,
		Residuals: make([]float64, len(values)),
	}
}

func tQuantile(p float64, df int) float64 {
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}.Quantile(p)
}
