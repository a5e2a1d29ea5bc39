package app

import (
	"context"
	"math"
	"testing"

	"burtrend/domain/stats"
	"burtrend/internal/nullmodel"
	"burtrend/ports"

	mstats "github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Pure Gaussian noise should almost never survive Mann-Kendall with FDR
// correction, and only about alpha of it before correction.
func TestMannKendallNullCalibration(t *testing.T) {
	phrases, err := nullmodel.Generate(nullmodel.Config{
		Phrases: 1000,
		Seed:    7,
		Mean:    1.4,
		Std:     0.5,
		Lengths: []int{8},
	})
	require.NoError(t, err)

	rep, err := NewMannKendallService(ports.StaticSource(phrases), stats.DefaultParams(), NewRunner(4)).Run(context.Background())
	require.NoError(t, err)

	raw := Percent(rep.Original.RawIncrease+rep.Original.RawDecrease, len(rep.Phrases))
	fdr := Percent(rep.Original.FDRIncrease+rep.Original.FDRDecrease, len(rep.Phrases))
	assert.GreaterOrEqual(t, raw, 1.0)
	assert.LessOrEqual(t, raw, 10.0)
	assert.LessOrEqual(t, fdr, 8.0)
	assert.LessOrEqual(t, fdr, raw)
	assert.InDelta(t, 0.0, rep.MeanTau, 0.05)
}

func TestCompareToNull(t *testing.T) {
	tests := []struct {
		name     string
		observed float64
		mean     float64
		sd       float64
		wantZ    float64
		wantP    float64
	}{
		{"three sd above", 5, 2, 1, 3, 0.0026997960632601866},
		{"at the mean", 2, 2, 0.5, 0, 1},
		{"below", 1, 2, 0.5, -2, 0.04550026389635842},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z, p := CompareToNull(tt.observed, tt.mean, tt.sd)
			assert.InDelta(t, tt.wantZ, z, 1e-12)
			assert.InDelta(t, tt.wantP, p, 1e-9)
		})
	}

	z, p := CompareToNull(3, 1, 0)
	assert.True(t, math.IsNaN(z))
	assert.True(t, math.IsNaN(p))
}

func TestParseNullKind(t *testing.T) {
	for _, k := range NullKinds {
		got, err := ParseNullKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseNullKind("linear")
	assert.Error(t, err)
}

func TestNullModelServiceDeterministic(t *testing.T) {
	gen := nullmodel.DefaultConfig()
	gen.Phrases = 150
	gen.Lengths = []int{8, 10, 12}
	observed := 12.0
	opts := NullModelOptions{Kind: NullMannKendall, Simulations: 3, Generator: gen, Observed: &observed}

	first, err := NewNullModelService(nil, stats.DefaultParams(), NewRunner(1), opts).Run(context.Background())
	require.NoError(t, err)
	second, err := NewNullModelService(nil, stats.DefaultParams(), NewRunner(2), opts).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, first.Simulations, 3)
	for i, sim := range first.Simulations {
		assert.Equal(t, gen.Seed+int64(i), sim.Seed)
		assert.Equal(t, 150, sim.Phrases)
		assert.LessOrEqual(t, sim.Rate, sim.RawRate+1e-9)
	}
	assert.Equal(t, first.Simulations, second.Simulations)
	assert.Equal(t, first.Mean, second.Mean)
	assert.LessOrEqual(t, first.Min, first.Mean)
	assert.GreaterOrEqual(t, first.Max, first.Mean)

	require.NotNil(t, first.Observed)
	if first.SD > 0 {
		assert.InDelta(t, (observed-first.Mean)/first.SD, first.Z, 1e-9)
	} else {
		assert.True(t, math.IsNaN(first.Z))
	}
	assert.NotEmpty(t, first.Verdict())
	assert.Len(t, first.Tables(), 2)
}

func TestNullModelServiceFitsObserved(t *testing.T) {
	corpus := trendCorpus()
	opts := NullModelOptions{
		Kind:            NullStructure,
		Simulations:     2,
		Generator:       nullmodel.DefaultConfig(),
		FitObserved:     true,
		CompareObserved: true,
	}

	rep, err := NewNullModelService(corpus, stats.DefaultParams(), NewRunner(1), opts).Run(context.Background())
	require.NoError(t, err)

	// the three-value phrase is too short to analyse: its values still shape
	// the BUR distribution, but its length is never drawn
	var all []float64
	for _, p := range corpus {
		all = append(all, p.Values()...)
	}
	mean, _ := mstats.Mean(all)
	std, _ := mstats.StandardDeviationPopulation(all)
	assert.Equal(t, 4, rep.Generator.Phrases)
	assert.Equal(t, []int{8, 10, 8, 8}, rep.Generator.Lengths)
	assert.InDelta(t, mean, rep.Generator.Mean, 1e-12)
	assert.InDelta(t, std, rep.Generator.Std, 1e-12)

	structure, err := NewStructureService(corpus, stats.DefaultParams(), NewRunner(1), SigModeBoth).Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rep.Observed)
	assert.InDelta(t, structure.SignificantRate(), *rep.Observed, 1e-12)
}

func TestNullModelServiceNeedsSource(t *testing.T) {
	opts := NullModelOptions{Kind: NullLocalized, Simulations: 1, Generator: nullmodel.DefaultConfig(), CompareObserved: true}
	_, err := NewNullModelService(nil, stats.DefaultParams(), NewRunner(1), opts).Run(context.Background())
	assert.Error(t, err)
}
