package app

import (
	"context"
	"fmt"
	"time"

	"burtrend/adapters/stats/correction"
	"burtrend/adapters/stats/trend"
	"burtrend/domain/phrase"
	"burtrend/domain/stats"
	"burtrend/internal/logger"
	"burtrend/ports"

	mstats "github.com/montanaflynn/stats"
)

// Analysis names, used in family keys and table names
const (
	AnalysisSurge         = "surge"
	AnalysisComprehensive = "comprehensive"
	AnalysisMannKendall   = "mann_kendall"
	AnalysisLocalized     = "localized"
	AnalysisStructure     = "structure"
	AnalysisVariation     = "variation"
	AnalysisNullModel     = "null_model"
)

// SurgeService tests every phrase for a linear BUR trend and corrects all
// slope p-values as one family.
type SurgeService struct {
	source ports.PhraseSource
	params stats.Params
	runner *Runner
}

// SurgePhrase is the linear trend of one phrase
type SurgePhrase struct {
	Key    phrase.Key              `json:"key"`
	Artist string                  `json:"artist"`
	Trend  trend.LinearTrendResult `json:"trend"`
}

// Significant reports an FDR-significant slope
func (s SurgePhrase) Significant() bool { return s.Trend.Significant() }

// SurgeReport is the outcome of a surge run
type SurgeReport struct {
	RunInfo
	Phrases        []SurgePhrase `json:"phrases"`
	Increase       int           `json:"significant_increase"`
	Decrease       int           `json:"significant_decrease"`
	MeanDW         float64       `json:"mean_durbin_watson"`
	Autocorrelated int           `json:"autocorrelated"`
	Artists        []ArtistTally `json:"artists"`
}

func NewSurgeService(source ports.PhraseSource, params stats.Params, runner *Runner) *SurgeService {
	return &SurgeService{source: source, params: params, runner: runner}
}

// Run executes the analysis
func (s *SurgeService) Run(ctx context.Context) (*SurgeReport, error) {
	started := time.Now()
	phrases, dropped, err := loadPhrases(ctx, s.source, s.params)
	if err != nil {
		return nil, err
	}

	results, err := MapPhrases(ctx, s.runner, phrases, func(p phrase.Phrase) SurgePhrase {
		return SurgePhrase{Key: p.Key(), Artist: p.Artist(), Trend: trend.LinearTrend(p.Values(), s.params)}
	})
	if err != nil {
		return nil, err
	}

	family := correction.NewFamily(stats.FamilyKey{Analysis: AnalysisSurge, Test: stats.TestLinear, Scope: "all_phrases"})
	for i := range results {
		if err := family.AddResult(&results[i].Trend.TrendResult); err != nil {
			return nil, err
		}
	}
	families, err := correctFamilies(s.params.FDRAlpha, family)
	if err != nil {
		return nil, err
	}

	rep := &SurgeReport{Phrases: results}
	tally := NewTally()
	var dws []float64
	for _, r := range results {
		var labels []string
		if r.Significant() {
			switch r.Trend.Direction {
			case stats.Increase:
				rep.Increase++
				labels = append(labels, labelIncrease)
			case stats.Decrease:
				rep.Decrease++
				labels = append(labels, labelDecrease)
			}
		}
		if r.Trend.Applicable {
			dws = append(dws, r.Trend.DurbinWatson)
			if r.Trend.Autocorrelated {
				rep.Autocorrelated++
			}
		}
		tally.Add(r.Artist, labels...)
	}
	if len(dws) > 0 {
		rep.MeanDW, _ = mstats.Mean(dws)
	}
	rep.Artists = tally.Sorted()
	rep.RunInfo = newRunInfo(AnalysisSurge, len(results), dropped, started)
	rep.Families = families

	logger.Info("surge analysis complete",
		"phrases", len(results), "increase", rep.Increase, "decrease", rep.Decrease, "runtime_ms", rep.RuntimeMs)
	return rep, nil
}

const (
	labelIncrease = "increase"
	labelDecrease = "decrease"
)

func (r *SurgeReport) Title() string { return "BUR surge analysis (linear trend)" }

func (r *SurgeReport) Highlights() []string {
	n := len(r.Phrases)
	return []string{
		fmt.Sprintf("Phrases analysed: %d (skipped %d shorter than the minimum)", n, r.Dropped),
		fmt.Sprintf("Significant increase: %d / %d (%.1f%%)", r.Increase, n, Percent(r.Increase, n)),
		fmt.Sprintf("Significant decrease: %d / %d (%.1f%%)", r.Decrease, n, Percent(r.Decrease, n)),
		fmt.Sprintf("Mean Durbin-Watson: %.3f (2 = no autocorrelation)", r.MeanDW),
		fmt.Sprintf("Phrases with strong autocorrelation (DW < threshold): %d (%.1f%%)", r.Autocorrelated, Percent(r.Autocorrelated, n)),
	}
}

func (r *SurgeReport) Tables() []ports.Table {
	detail := ports.Table{
		Name: "bur_surge_results_fdr",
		Columns: withKeyColumns("slope", "ci_lower", "ci_upper", "r2", "p_value", "p_value_corrected",
			"significant_fdr", "direction", "durbin_watson", "std_err", "intercept"),
		Detail: true,
	}
	for _, p := range r.Phrases {
		t := p.Trend
		lo, hi := "", ""
		if t.CI != nil {
			lo, hi = ff(t.CI.Lower), ff(t.CI.Upper)
		}
		detail.Append(append(keyCells(p.Key, p.Artist, t.N),
			ff(t.Slope), lo, hi, ff(t.Statistic), ff(t.PValue), qvalue(t.Correction),
			fbool(p.Significant()), string(t.Direction), ff(t.DurbinWatson), ff(t.StdErr), ff(t.Intercept))...)
	}

	artists := ports.Table{
		Name:    "bur_surge_artists",
		Columns: []string{"artist", "phrases", "increase", "increase_pct", "decrease", "decrease_pct"},
	}
	for _, a := range r.Artists {
		artists.Append(a.Artist, fint(a.Phrases),
			fint(a.Count(labelIncrease)), fpct(a.Percent(labelIncrease)),
			fint(a.Count(labelDecrease)), fpct(a.Percent(labelDecrease)))
	}

	return []ports.Table{detail, artists, familyTable("bur_surge_families", r.Families)}
}
