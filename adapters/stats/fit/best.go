package fit

import "math"

// r2Tolerance treats R² values this close as tied
const r2Tolerance = 1e-12

// SelectBest returns the fit with the highest R². Ties go to the simpler
// model following stats.ModelPriority. Fits that failed are ignored; the
// second return is false when nothing fit.
func SelectBest(fits ...Fit) (Fit, bool) {
	var best Fit
	found := false
	for _, f := range fits {
		if !f.OK || math.IsNaN(f.R2) {
			continue
		}
		if !found {
			best, found = f, true
			continue
		}
		switch {
		case f.R2 > best.R2+r2Tolerance:
			best = f
		case math.Abs(f.R2-best.R2) <= r2Tolerance && f.Kind.Rank() < best.Kind.Rank():
			best = f
		}
	}
	return best, found
}

// All fits every model family to values
func All(values []float64, maxIter int) []Fit {
	return []Fit{
		Linear(values),
		Exponential(values, maxIter),
		Logarithmic(values),
		Quadratic(values),
	}
}
