// Package correction controls the false discovery rate across pools of
// p-values with the Benjamini-Hochberg step-up procedure.
package correction

import (
	"math"
	"sort"
)

// MethodBH labels corrections produced by this package
const MethodBH = "BH"

// Outcome is the result of one Benjamini-Hochberg pass. Corrected and
// Rejected align positionally with the input; excluded (NaN) slots hold NaN
// and false.
type Outcome struct {
	Corrected []float64
	Rejected  []bool
	Valid     int
	Alpha     float64
}

// Compact returns the corrected values of the valid slots, in input order
func (o Outcome) Compact() []float64 {
	out := make([]float64, 0, o.Valid)
	for _, q := range o.Corrected {
		if !math.IsNaN(q) {
			out = append(out, q)
		}
	}
	return out
}

// Rejections counts rejected hypotheses
func (o Outcome) Rejections() int {
	n := 0
	for _, r := range o.Rejected {
		if r {
			n++
		}
	}
	return n
}

// BenjaminiHochberg adjusts p-values for a family of m valid tests:
// q(i) = min over k >= i of p(k)*m/k on the ascending order, capped at 1.
// NaN entries are missing values; they are excluded from m and keep their
// slot in the output. A hypothesis is rejected when its q-value is below alpha.
func BenjaminiHochberg(pvalues []float64, alpha float64) Outcome {
	out := Outcome{
		Corrected: make([]float64, len(pvalues)),
		Rejected:  make([]bool, len(pvalues)),
		Alpha:     alpha,
	}

	idx := make([]int, 0, len(pvalues))
	for i, p := range pvalues {
		out.Corrected[i] = math.NaN()
		if !math.IsNaN(p) {
			idx = append(idx, i)
		}
	}
	m := len(idx)
	out.Valid = m
	if m == 0 {
		return out
	}

	sort.SliceStable(idx, func(a, b int) bool {
		return pvalues[idx[a]] < pvalues[idx[b]]
	})

	// Walk from the largest p-value down, carrying the running minimum so
	// that corrected values never decrease with rank.
	running := 1.0
	for rank := m; rank >= 1; rank-- {
		i := idx[rank-1]
		q := pvalues[i] * float64(m) / float64(rank)
		if q < running {
			running = q
		}
		out.Corrected[i] = clamp01(running)
		out.Rejected[i] = out.Corrected[i] < alpha
	}

	return out
}

// Rate returns count/total, or 0 for an empty total
func Rate(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
