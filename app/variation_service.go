package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"burtrend/adapters/stats/trend"
	"burtrend/domain/phrase"
	"burtrend/domain/stats"
	"burtrend/internal/logger"
	"burtrend/ports"

	mstats "github.com/montanaflynn/stats"
)

// VariationService measures the spread of BUR inside each phrase
type VariationService struct {
	source    ports.PhraseSource
	params    stats.Params
	runner    *Runner
	ascending bool
}

// VariationPhrase is the spread of one phrase
type VariationPhrase struct {
	Key       phrase.Key            `json:"key"`
	Artist    string                `json:"artist"`
	Variation trend.VariationResult `json:"variation"`
}

// ArtistVariation is the mean within-phrase sd of one artist
type ArtistVariation struct {
	Artist  string  `json:"artist"`
	Phrases int     `json:"phrases"`
	MeanSD  float64 `json:"mean_sd"`
}

// VariationReport is the outcome of a variation run
type VariationReport struct {
	RunInfo
	Phrases   []VariationPhrase `json:"phrases"`
	MeanSD    float64           `json:"mean_sd"`
	Artists   []ArtistVariation `json:"artists"`
	Ascending bool              `json:"ascending"`
}

const metricSD = "sd"

// NewVariationService builds the service; artists are ranked by mean sd,
// highest first unless ascending is set.
func NewVariationService(source ports.PhraseSource, params stats.Params, runner *Runner, ascending bool) *VariationService {
	return &VariationService{source: source, params: params, runner: runner, ascending: ascending}
}

// Run executes the analysis
func (s *VariationService) Run(ctx context.Context) (*VariationReport, error) {
	started := time.Now()
	phrases, dropped, err := loadPhrases(ctx, s.source, s.params)
	if err != nil {
		return nil, err
	}

	results, err := MapPhrases(ctx, s.runner, phrases, func(p phrase.Phrase) VariationPhrase {
		return VariationPhrase{Key: p.Key(), Artist: p.Artist(), Variation: trend.Variation(p.Values(), s.params)}
	})
	if err != nil {
		return nil, err
	}

	rep := &VariationReport{Phrases: results, Ascending: s.ascending, MeanSD: math.NaN()}
	tally := NewTally()
	var sds []float64
	for _, r := range results {
		if !r.Variation.Applicable {
			continue
		}
		sds = append(sds, r.Variation.StdDev)
		tally.Add(r.Artist)
		tally.Observe(r.Artist, metricSD, r.Variation.StdDev)
	}
	if len(sds) > 0 {
		rep.MeanSD, _ = mstats.Mean(sds)
	}
	for _, a := range tally.Sorted() {
		rep.Artists = append(rep.Artists, ArtistVariation{Artist: a.Artist, Phrases: a.Phrases, MeanSD: a.Mean(metricSD)})
	}
	sort.SliceStable(rep.Artists, func(i, j int) bool {
		if s.ascending {
			return rep.Artists[i].MeanSD < rep.Artists[j].MeanSD
		}
		return rep.Artists[i].MeanSD > rep.Artists[j].MeanSD
	})
	rep.RunInfo = newRunInfo(AnalysisVariation, len(results), dropped, started)

	logger.Info("variation analysis complete",
		"phrases", len(results), "artists", len(rep.Artists), "mean_sd", rep.MeanSD, "runtime_ms", rep.RuntimeMs)
	return rep, nil
}

func (r *VariationReport) Title() string { return "BUR variation within phrases" }

func (r *VariationReport) Highlights() []string {
	order := "highest"
	if r.Ascending {
		order = "lowest"
	}
	out := []string{
		fmt.Sprintf("Phrases analysed: %d", len(r.Phrases)),
		fmt.Sprintf("Average within-phrase standard deviation: %.4f", r.MeanSD),
	}
	if len(r.Artists) > 0 {
		a := r.Artists[0]
		out = append(out, fmt.Sprintf("Artist with the %s variation: %s (%.4f over %d phrases)", order, a.Artist, a.MeanSD, a.Phrases))
	}
	return out
}

func (r *VariationReport) Tables() []ports.Table {
	detail := ports.Table{
		Name:    "bur_variation_phrases",
		Columns: withKeyColumns("mean", "sd", "min", "max"),
		Detail:  true,
	}
	for _, p := range r.Phrases {
		v := p.Variation
		if !v.Applicable {
			continue
		}
		detail.Append(append(keyCells(p.Key, p.Artist, v.N), ff(v.Mean), ff(v.StdDev), ff(v.Min), ff(v.Max))...)
	}

	artists := ports.Table{Name: "bur_variation_artists", Columns: []string{"rank", "artist", "phrases", "mean_sd"}}
	for i, a := range r.Artists {
		artists.Append(fint(i+1), a.Artist, fint(a.Phrases), ff(a.MeanSD))
	}
	return []ports.Table{detail, artists}
}
