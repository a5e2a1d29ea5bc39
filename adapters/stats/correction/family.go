package correction

import (
	"fmt"
	"math"

	"burtrend/domain/core"
	"burtrend/domain/stats"
)

// Family is one declared pool of p-values. Members are added during the
// per-phrase pass; Correct seals the pool, runs a single BH pass over every
// member and hands each member its annotation.
type Family struct {
	key     stats.FamilyKey
	pvalues []float64
	sinks   []func(stats.Correction)
	sealed  bool
	summary stats.FamilySummary
}

// NewFamily opens an empty pool
func NewFamily(key stats.FamilyKey) *Family {
	return &Family{key: key}
}

// Key returns the family declaration
func (f *Family) Key() stats.FamilyKey { return f.key }

// Size is the number of members added so far, including NaN slots
func (f *Family) Size() int { return len(f.pvalues) }

// Add registers a p-value together with the callback that receives its
// correction. NaN p-values hold a slot but receive no annotation.
func (f *Family) Add(p float64, annotate func(stats.Correction)) error {
	if f.sealed {
		return fmt.Errorf("%w: %s", core.ErrFamilySealed, f.key)
	}
	f.pvalues = append(f.pvalues, p)
	f.sinks = append(f.sinks, annotate)
	return nil
}

// AddResult registers an applicable trend result; others are skipped
func (f *Family) AddResult(r *stats.TrendResult) error {
	if r == nil || !r.Applicable {
		return nil
	}
	return f.Add(r.PValue, r.Annotate)
}

// AddWindow registers an applicable window; others are skipped
func (f *Family) AddWindow(w *stats.Window) error {
	if w == nil || !w.Applicable {
		return nil
	}
	return f.Add(w.PValue, w.Annotate)
}

// Correct runs Benjamini-Hochberg over the whole pool exactly once
func (f *Family) Correct(alpha float64) (stats.FamilySummary, error) {
	if f.sealed {
		return f.summary, fmt.Errorf("%w: %s", core.ErrFamilySealed, f.key)
	}
	f.sealed = true

	outcome := BenjaminiHochberg(f.pvalues, alpha)
	id := f.key.ID()

	rawHits := 0
	for i, p := range f.pvalues {
		if math.IsNaN(p) {
			continue
		}
		if p < alpha {
			rawHits++
		}
		if f.sinks[i] == nil {
			continue
		}
		f.sinks[i](stats.Correction{
			FamilyID:    id,
			FamilySize:  outcome.Valid,
			Method:      MethodBH,
			QValue:      outcome.Corrected[i],
			Significant: outcome.Rejected[i],
		})
	}

	f.summary = stats.FamilySummary{
		ID:         id,
		Key:        f.key,
		Method:     MethodBH,
		Alpha:      alpha,
		Size:       outcome.Valid,
		RawHits:    rawHits,
		Rejections: outcome.Rejections(),
	}
	return f.summary, nil
}

// Sealed reports whether Correct has run
func (f *Family) Sealed() bool { return f.sealed }
