package fit

import (
	"math"
	"math/rand"
	"testing"

	"burtrend/domain/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(n int, intercept, slope float64) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = intercept + slope*float64(i)
	}
	return v
}

func TestLinearPerfectLine(t *testing.T) {
	f := Linear(line(8, 0.8, 0.2))
	require.True(t, f.OK)

	assert.InDelta(t, 0.2, f.Coefficient(), 1e-12)
	assert.InDelta(t, 0.8, f.Params[0], 1e-12)
	assert.InDelta(t, 1.0, f.R2, 1e-12)
	assert.Less(t, f.PValue, 1e-6)
	assert.Equal(t, stats.Increase, f.Direction)
	assert.Equal(t, 6, f.DF)
}

func TestLinearConstant(t *testing.T) {
	f := Linear([]float64{1.4, 1.4, 1.4, 1.4, 1.4, 1.4})
	require.True(t, f.OK)

	assert.Equal(t, 0.0, f.Coefficient())
	assert.Equal(t, 0.0, f.R2)
	assert.Equal(t, 1.0, f.PValue)
	assert.Equal(t, stats.NoChange, f.Direction)
}

func TestLinearTooShort(t *testing.T) {
	f := Linear([]float64{1, 2})
	assert.False(t, f.OK)
	assert.Equal(t, stats.WarningLowN, f.Reason)
	assert.True(t, math.IsNaN(f.Predict(1)))

	r := f.Result()
	assert.False(t, r.Applicable)
	assert.Equal(t, stats.TestLinear, r.Test)
}

func TestLinearReversalFlipsSign(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	values := make([]float64, 12)
	for i := range values {
		values[i] = 1.2 + 0.05*float64(i) + rng.NormFloat64()*0.1
	}
	reversed := make([]float64, len(values))
	for i, v := range values {
		reversed[len(values)-1-i] = v
	}

	a, b := Linear(values), Linear(reversed)
	assert.InDelta(t, a.Coefficient(), -b.Coefficient(), 1e-12)
	assert.InDelta(t, a.R2, b.R2, 1e-12)
	assert.InDelta(t, a.PValue, b.PValue, 1e-9)
}

func TestSlopeIntervalAndDurbinWatson(t *testing.T) {
	values := []float64{1.1, 1.3, 1.2, 1.6, 1.5, 1.9, 1.8, 2.1}
	f := Linear(values)
	require.True(t, f.OK)

	ci := SlopeInterval(f, 0.95)
	assert.True(t, ci.Contains(f.Coefficient()))
	assert.Less(t, ci.Lower, ci.Upper)

	assert.InDelta(t, 3.0, DurbinWatson([]float64{1, -1, 1, -1}), 1e-12)
	assert.Equal(t, 2.0, DurbinWatson([]float64{0, 0, 0}))
	assert.True(t, math.IsNaN(DurbinWatson([]float64{1})))
}

func TestExponentialRecoversGrowth(t *testing.T) {
	values := make([]float64, 10)
	for i := range values {
		values[i] = 1.2 * math.Exp(0.1*float64(i))
	}
	f := Exponential(values, 200)
	require.True(t, f.OK, "reason: %s", f.Reason)

	assert.InDelta(t, 1.2, f.Params[0], 1e-4)
	assert.InDelta(t, 0.1, f.Coefficient(), 1e-4)
	assert.Greater(t, f.R2, 0.999)
	assert.Equal(t, stats.Increase, f.Direction)
	assert.InDelta(t, values[9], f.Predict(9), 1e-3)
}

func TestExponentialNoisyDecay(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	values := make([]float64, 16)
	for i := range values {
		values[i] = 2.0*math.Exp(-0.05*float64(i)) + rng.NormFloat64()*0.02
	}
	f := Exponential(values, 200)
	require.True(t, f.OK, "reason: %s", f.Reason)
	assert.Equal(t, stats.Decrease, f.Direction)
	assert.Less(t, f.PValue, 0.01)
}

func TestLogarithmicUsesSameOffset(t *testing.T) {
	values := make([]float64, 9)
	for i := range values {
		values[i] = 0.5*math.Log(float64(i)+LogOffset+LogEpsilon) + 1
	}
	f := Logarithmic(values)
	require.True(t, f.OK)

	assert.InDelta(t, 0.5, f.Coefficient(), 1e-9)
	assert.InDelta(t, 1.0, f.Params[1], 1e-9)
	assert.InDelta(t, values[0], f.Predict(0), 1e-9)
	assert.InDelta(t, values[8], f.Predict(8), 1e-9)
	assert.False(t, math.IsInf(f.Predict(0), 0))
}

func TestQuadraticShape(t *testing.T) {
	values := make([]float64, 9)
	for i := range values {
		d := float64(i) - 4
		values[i] = 2 - 0.1*d*d
	}
	f := Quadratic(values)
	require.True(t, f.OK)

	assert.InDelta(t, -0.1, f.Coefficient(), 1e-9)
	assert.Equal(t, stats.ShapeInvertedU, f.Shape)
	assert.InDelta(t, 4.0, f.Vertex, 1e-6)
	assert.Less(t, f.PValue, 0.01)

	u := Quadratic([]float64{2, 1.2, 1, 1.2, 2})
	require.True(t, u.OK)
	assert.Equal(t, stats.ShapeU, u.Shape)

	assert.False(t, Quadratic([]float64{1, 2, 3}).OK)
}

func TestSelectBest(t *testing.T) {
	best, ok := SelectBest(All(line(8, 1.0, 0.1), 200)...)
	require.True(t, ok)
	assert.Equal(t, stats.ModelLinear, best.Kind, "quadratic ties with linear on a line and loses on priority")

	tied := []Fit{
		{Kind: stats.ModelQuadratic, OK: true, R2: 0.7},
		{Kind: stats.ModelExponential, OK: true, R2: 0.7},
		{Kind: stats.ModelLogarithmic, OK: false, R2: 0.9},
	}
	best, ok = SelectBest(tied...)
	require.True(t, ok)
	assert.Equal(t, stats.ModelExponential, best.Kind)

	_, ok = SelectBest(notFit(stats.ModelLinear, 2, stats.WarningLowN))
	assert.False(t, ok)
}

func TestClassifySurge(t *testing.T) {
	p := stats.DefaultParams()

	rising := Linear([]float64{1.0, 1.21, 1.39, 1.62, 1.8, 2.0})
	call := ClassifySurge(rising, p)
	assert.True(t, call.Gate)
	assert.InDelta(t, 1.0, call.Delta, 0.05)
	assert.Equal(t, stats.Increase, call.Direction)

	gentle := Linear([]float64{1.0, 1.05, 1.1, 1.15, 1.2, 1.25})
	call = ClassifySurge(gentle, p)
	assert.True(t, call.Gate)
	assert.False(t, call.Qualifies(), "delta of 0.25 stays below the surge threshold")

	calls, ok := ClassifyPhrase(All([]float64{2.0, 1.8, 1.6, 1.4, 1.2, 1.0}, 200), p)
	require.True(t, ok)
	assert.Equal(t, stats.ModelLinear, calls.Kind)
	assert.Equal(t, stats.Decrease, calls.Direction)
}
