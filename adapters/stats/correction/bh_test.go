package correction

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"

	"burtrend/domain/core"
	"burtrend/domain/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBenjaminiHochbergKnownValues(t *testing.T) {
	out := BenjaminiHochberg([]float64{0.01, 0.04, 0.03, 0.005}, 0.05)

	want := []float64{0.02, 0.04, 0.04, 0.02}
	require.Len(t, out.Corrected, 4)
	for i := range want {
		assert.InDelta(t, want[i], out.Corrected[i], 1e-12, "slot %d", i)
	}
	assert.Equal(t, 4, out.Rejections())
}

func TestBenjaminiHochbergMonotoneEnvelope(t *testing.T) {
	// Raw p*m/k would give 0.03 for the smallest p-value; the step-up
	// envelope pulls it down to the next rank's 0.0165.
	out := BenjaminiHochberg([]float64{0.01, 0.011, 0.2}, 0.05)

	assert.InDelta(t, 0.0165, out.Corrected[0], 1e-12)
	assert.InDelta(t, 0.0165, out.Corrected[1], 1e-12)
	assert.InDelta(t, 0.2, out.Corrected[2], 1e-12)
	assert.Equal(t, []bool{true, true, false}, out.Rejected)
}

func TestBenjaminiHochbergMissingValues(t *testing.T) {
	nan := math.NaN()
	out := BenjaminiHochberg([]float64{nan, 0.01, 0.04, nan}, 0.05)

	assert.Equal(t, 2, out.Valid)
	assert.True(t, math.IsNaN(out.Corrected[0]))
	assert.True(t, math.IsNaN(out.Corrected[3]))
	assert.InDelta(t, 0.02, out.Corrected[1], 1e-12)
	assert.InDelta(t, 0.04, out.Corrected[2], 1e-12)
	assert.False(t, out.Rejected[0])

	compact := out.Compact()
	assert.Len(t, compact, out.Valid)
}

func TestBenjaminiHochbergEmpty(t *testing.T) {
	out := BenjaminiHochberg(nil, 0.05)
	assert.Equal(t, 0, out.Valid)
	assert.Empty(t, out.Compact())
	assert.Equal(t, 0, out.Rejections())
	assert.Equal(t, 0.0, Rate(out.Rejections(), out.Valid))
}

func TestBenjaminiHochbergProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(200)
		p := make([]float64, n)
		for i := range p {
			switch r := rng.Float64(); {
			case r < 0.1:
				p[i] = math.NaN()
			case r < 0.3:
				p[i] = rng.Float64() * 0.01
			default:
				p[i] = rng.Float64()
			}
		}

		out := BenjaminiHochberg(p, 0.05)

		valid := 0
		raw := 0
		type pair struct{ p, q float64 }
		var pairs []pair
		for i := range p {
			if math.IsNaN(p[i]) {
				continue
			}
			valid++
			if p[i] < 0.05 {
				raw++
			}
			q := out.Corrected[i]
			if q < p[i]-1e-15 || q > 1 {
				t.Fatalf("trial %d: q=%v outside [p=%v, 1]", trial, q, p[i])
			}
			pairs = append(pairs, pair{p[i], q})
		}

		if len(out.Compact()) != valid {
			t.Fatalf("trial %d: compact length %d, want %d", trial, len(out.Compact()), valid)
		}
		if out.Rejections() > raw {
			t.Fatalf("trial %d: %d rejections exceed %d raw hits", trial, out.Rejections(), raw)
		}

		sort.Slice(pairs, func(a, b int) bool { return pairs[a].p < pairs[b].p })
		for k := 1; k < len(pairs); k++ {
			if pairs[k].q < pairs[k-1].q-1e-15 {
				t.Fatalf("trial %d: corrected values not monotone at rank %d", trial, k)
			}
		}
	}
}

func TestFamilyAnnotatesMembersOnce(t *testing.T) {
	key := stats.FamilyKey{Analysis: "mann_kendall", Test: stats.TestMannKendall, Scope: "original"}
	fam := NewFamily(key)

	results := []stats.TrendResult{
		{Test: stats.TestMannKendall, Applicable: true, PValue: 0.001},
		{Test: stats.TestMannKendall, Applicable: true, PValue: 0.8},
		stats.NotApplicable(stats.TestMannKendall, 2, stats.WarningLowN),
	}
	for i := range results {
		require.NoError(t, fam.AddResult(&results[i]))
	}
	assert.Equal(t, 2, fam.Size())

	summary, err := fam.Correct(0.05)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Size)
	assert.Equal(t, 1, summary.Rejections)
	assert.Equal(t, 1, summary.RawHits)
	assert.Equal(t, key.ID(), summary.ID)

	require.NotNil(t, results[0].Correction)
	assert.True(t, results[0].Significant())
	assert.InDelta(t, 0.002, results[0].QValue(), 1e-12)
	assert.False(t, results[1].Significant())
	assert.Nil(t, results[2].Correction)

	_, err = fam.Correct(0.05)
	assert.True(t, errors.Is(err, core.ErrFamilySealed))
	assert.True(t, errors.Is(fam.Add(0.01, nil), core.ErrFamilySealed))
}

func TestFamilyWindows(t *testing.T) {
	fam := NewFamily(stats.FamilyKey{Analysis: "localized", Test: stats.TestSeasonalMK, Scope: "all_windows"})
	windows := []stats.Window{
		{Applicable: true, PValue: 0.0001},
		{Applicable: false, Reason: stats.WarningNoSeasonalPairs},
		{Applicable: true, PValue: 0.5},
	}
	for i := range windows {
		require.NoError(t, fam.AddWindow(&windows[i]))
	}
	_, err := fam.Correct(0.05)
	require.NoError(t, err)

	assert.InDelta(t, 0.0002, windows[0].QValue(), 1e-12)
	assert.True(t, math.IsNaN(windows[1].QValue()))
	assert.InDelta(t, 0.5, windows[2].QValue(), 1e-12)
}
