package trend

import (
	"math"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// twoSample is a pooled-variance Student's t-test of after vs. before
type twoSample struct {
	MeanBefore float64
	MeanAfter  float64
	Diff       float64 // MeanAfter - MeanBefore
	T          float64
	P          float64
	DF         int
	CohensD    float64
}

// pooledTTest compares two groups under equal variances. A group of size one
// is allowed as long as the pooled degrees of freedom stay positive. With
// zero pooled variance the groups separate perfectly: p is 0 when the means
// differ and 1 when they coincide.
func pooledTTest(before, after []float64) twoSample {
	n1, n2 := len(before), len(after)
	res := twoSample{DF: n1 + n2 - 2, P: math.NaN(), T: math.NaN(), CohensD: math.NaN()}
	if n1 < 1 || n2 < 1 || res.DF < 1 {
		return res
	}

	res.MeanBefore, _ = mstats.Mean(before)
	res.MeanAfter, _ = mstats.Mean(after)
	res.Diff = res.MeanAfter - res.MeanBefore

	if allEqual(before, after) {
		res.Diff, res.T, res.P, res.CohensD = 0, 0, 1, 0
		return res
	}

	ss := sumSquares(before, res.MeanBefore) + sumSquares(after, res.MeanAfter)
	pooledVar := ss / float64(res.DF)
	se := math.Sqrt(pooledVar * (1/float64(n1) + 1/float64(n2)))

	if pooledVar == 0 || se == 0 {
		switch {
		case res.Diff == 0:
			res.T, res.P, res.CohensD = 0, 1, 0
		default:
			res.T = math.Copysign(math.Inf(1), res.Diff)
			res.CohensD = res.T
			res.P = 0
		}
		return res
	}

	res.T = res.Diff / se
	res.CohensD = res.Diff / math.Sqrt(pooledVar)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(res.DF)}
	res.P = math.Min(1, 2*dist.Survival(math.Abs(res.T)))
	return res
}

func sumSquares(values []float64, mean float64) float64 {
	s := 0.0
	for _, v := range values {
		d := v - mean
		s += d * d
	}
	return s
}

func allEqual(groups ...[]float64) bool {
	first, seen := 0.0, false
	for _, g := range groups {
		for _, v := range g {
			if !seen {
				first, seen = v, true
				continue
			}
			if v != first {
				return false
			}
		}
	}
	return true
}
