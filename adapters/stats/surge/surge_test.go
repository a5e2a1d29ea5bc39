package surge

import (
	"math"
	"testing"

	"burtrend/adapters/stats/trend"
	"burtrend/domain/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeasonalPeriodOneMatchesMannKendall(t *testing.T) {
	values := []float64{1.2, 1.5, 1.3, 1.7, 1.6, 1.9, 2.0, 1.8}
	w := SeasonalMannKendall(values, 1)
	mk := trend.MannKendall(values, stats.DefaultParams())

	require.True(t, w.Applicable)
	assert.Equal(t, mk.S, w.S)
	assert.InDelta(t, mk.Tau, w.Tau, 1e-12)
	assert.InDelta(t, mk.PValue, w.PValue, 1e-12)
	assert.Equal(t, 28, w.Comparisons)
}

func TestSeasonalWithinSeasonPairsOnly(t *testing.T) {
	w := SeasonalMannKendall([]float64{1, 2, 3, 4, 5, 6, 7, 8}, 4)
	require.True(t, w.Applicable)
	assert.Equal(t, 4, w.Comparisons)
	assert.Equal(t, 4.0, w.S)
	assert.Equal(t, 1.0, w.Tau)
	assert.InDelta(t, 1.5, w.Z, 1e-12)
	assert.InDelta(t, 0.1336, w.PValue, 1e-4)
	assert.Equal(t, 1.0, w.SensSlope, "slope is per position, not per cycle")
	assert.Equal(t, stats.Increase, w.Direction)

	short := SeasonalMannKendall([]float64{1, 2, 3, 4}, 4)
	assert.False(t, short.Applicable)
	assert.Equal(t, stats.WarningNoSeasonalPairs, short.Reason)
	assert.True(t, math.IsNaN(short.PValue))
}

func TestScanEnumeratesWindows(t *testing.T) {
	sc := NewScanner(stats.DefaultParams())
	values := []float64{1.4, 1.3, 1.5, 1.2, 1.6, 1.8, 2.0, 2.2, 1.4, 1.3}
	scan := sc.Scan(values)

	// sizes 4, 6 and 8 over ten values: 7 + 5 + 3 windows
	require.Len(t, scan.Windows, 15)
	assert.Equal(t, 0, scan.Windows[0].Start)
	assert.Equal(t, 3, scan.Windows[0].End)
	assert.Equal(t, 8, scan.Windows[14].Size)
	assert.Equal(t, 9, scan.Windows[14].End)

	for _, w := range scan.Windows[:7] {
		assert.False(t, w.Applicable, "size 4 with period 4 has no within-season pairs")
	}
	assert.Equal(t, 8, scan.Tested())
}

func TestBestWindowComesFromSameSet(t *testing.T) {
	p := stats.DefaultParams()
	p.SeasonalPeriod = 1
	sc := NewScanner(p)

	values := []float64{1.5, 1.4, 1.5, 1.4, 1.0, 1.2, 1.4, 1.6, 1.8, 2.0, 1.5, 1.4}
	scan := sc.Scan(values)

	best, ok := scan.Best()
	require.True(t, ok)
	assert.GreaterOrEqual(t, math.Abs(best.Tau), p.MinTau)

	found := false
	for _, w := range scan.Windows {
		if w.Start == best.Start && w.Size == best.Size {
			found = true
			assert.Equal(t, w.PValue, best.PValue)
			assert.Equal(t, w.Tau, best.Tau)
		}
		if w.Applicable {
			assert.LessOrEqual(t, math.Abs(w.Tau), math.Abs(best.Tau))
		}
	}
	assert.True(t, found)
	assert.Equal(t, 1.0, best.Tau)
	assert.Equal(t, 4, best.Start)
	assert.Equal(t, 6, best.Size, "among perfectly monotone windows the longest has the lowest p")
	assert.True(t, scan.HasLocalSurge)
}

func TestScanShortPhrase(t *testing.T) {
	sc := NewScanner(stats.DefaultParams())
	scan := sc.Scan([]float64{1, 2, 3})
	assert.Empty(t, scan.Windows)
	_, ok := scan.Best()
	assert.False(t, ok)
	assert.False(t, scan.HasLocalSurge)
}

func TestSummarizeUsesCorrectedValues(t *testing.T) {
	sc := &Scanner{MinTau: 0.4, Alpha: 0.05, FDRAlpha: 0.05}
	scan := Scan{
		BestIndex: -1,
		Windows: []stats.Window{
			{Start: 0, Size: 6, Applicable: true, Tau: 0.9, PValue: 0.001},
			{Start: 1, Size: 6, Applicable: true, Tau: -0.95, PValue: 0.0005},
			{Start: 2, Size: 6, Applicable: true, Tau: 0.2, PValue: 0.001},
			{Start: 3, Size: 6, Applicable: true, Tau: 0.8, PValue: 0.01},
		},
	}
	scan.Windows[0].Annotate(stats.Correction{QValue: 0.01})
	scan.Windows[1].Annotate(stats.Correction{QValue: 0.2})
	scan.Windows[2].Annotate(stats.Correction{QValue: 0.01})

	sum := sc.Summarize(&scan)
	assert.Equal(t, 1, sum.Significant)
	assert.True(t, sum.HasSignificant)
	require.NotNil(t, sum.Strongest)
	assert.Equal(t, 0, sum.Strongest.Start)
}
