package fit

import (
	"math"

	"burtrend/domain/stats"

	"gonum.org/v1/gonum/mat"
)

// Quadratic fits y = a*t² + b*t + c by least squares. The p-value tests the
// curvature term a with n-3 df; a > 0 is U-shaped, a < 0 an inverted U.
func Quadratic(values []float64) Fit {
	n := len(values)
	if n < 4 {
		return notFit(stats.ModelQuadratic, n, stats.WarningLowN)
	}
	if isConstant(values) {
		f := constantFit(stats.ModelQuadratic, values, []float64{0, 0, values[0]}, n-3)
		f.Shape = stats.ShapeNone
		f.Vertex = math.NaN()
		return f
	}

	design := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		t := float64(i)
		design.Set(i, 0, t*t)
		design.Set(i, 1, t)
		design.Set(i, 2, 1)
	}
	y := mat.NewVecDense(n, append([]float64(nil), values...))

	var qr mat.QR
	qr.Factorize(design)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, y); err != nil {
		return notFit(stats.ModelQuadratic, n, stats.WarningLowVariance)
	}
	a, b, c := beta.AtVec(0), beta.AtVec(1), beta.AtVec(2)
	if !finite(a, b, c) {
		return notFit(stats.ModelQuadratic, n, stats.WarningLowVariance)
	}

	f := Fit{
		Kind:   stats.ModelQuadratic,
		OK:     true,
		N:      n,
		Params: []float64{a, b, c},
		DF:     n - 3,
		Vertex: math.NaN(),
	}
	var ssr float64
	f.Residuals, ssr = residualsOf(values, f.Predict)
	f.R2 = rSquared(values, ssr)

	var xtx, inv mat.Dense
	xtx.Mul(design.T(), design)
	if err := inv.Inverse(&xtx); err != nil {
		f.StdErr = math.NaN()
	} else {
		f.StdErr = math.Sqrt(ssr / float64(f.DF) * inv.At(0, 0))
	}
	f.PValue = waldPValue(a, f.StdErr, f.DF)
	f.Direction = stats.DirectionOf(a)

	switch {
	case a > 0:
		f.Shape = stats.ShapeU
	case a < 0:
		f.Shape = stats.ShapeInvertedU
	default:
		f.Shape = stats.ShapeNone
	}
	if a != 0 {
		f.Vertex = -b / (2 * a)
	}
	return f
}
