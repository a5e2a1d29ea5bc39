package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"burtrend/adapters/stats/correction"
	"burtrend/adapters/stats/trend"
	"burtrend/domain/phrase"
	"burtrend/domain/stats"
	"burtrend/internal/logger"
	"burtrend/ports"

	mstats "github.com/montanaflynn/stats"
)

// MannKendallService runs the original and the Hamed-Rao modified
// Mann-Kendall tests on every phrase, each corrected as its own family.
type MannKendallService struct {
	source ports.PhraseSource
	params stats.Params
	runner *Runner
}

// MKPhrase holds both Mann-Kendall variants for one phrase
type MKPhrase struct {
	Key      phrase.Key     `json:"key"`
	Artist   string         `json:"artist"`
	Original trend.MKResult `json:"original"`
	Modified trend.MKResult `json:"modified"`
}

// MKCounts tallies one variant before and after correction
type MKCounts struct {
	Test        stats.TestType `json:"test"`
	RawIncrease int            `json:"raw_increase"`
	RawDecrease int            `json:"raw_decrease"`
	FDRIncrease int            `json:"fdr_increase"`
	FDRDecrease int            `json:"fdr_decrease"`
}

// MannKendallReport is the outcome of a Mann-Kendall run
type MannKendallReport struct {
	RunInfo
	Phrases        []MKPhrase    `json:"phrases"`
	Original       MKCounts      `json:"original"`
	Modified       MKCounts      `json:"modified"`
	MeanTau        float64       `json:"mean_tau"`
	MedianTau      float64       `json:"median_tau"`
	MeanSlope      float64       `json:"mean_sens_slope"`
	MedianSlope    float64       `json:"median_sens_slope"`
	PositiveSlopes int           `json:"positive_slopes"`
	Artists        []ArtistTally `json:"artists"`
}

const (
	labelMKInc  = "mk_inc"
	labelMKDec  = "mk_dec"
	labelModInc = "mk_mod_inc"
	labelModDec = "mk_mod_dec"
	metricTau   = "tau"
	metricSens  = "sens_slope"
)

func NewMannKendallService(source ports.PhraseSource, params stats.Params, runner *Runner) *MannKendallService {
	return &MannKendallService{source: source, params: params, runner: runner}
}

// Run executes the analysis
func (s *MannKendallService) Run(ctx context.Context) (*MannKendallReport, error) {
	started := time.Now()
	phrases, dropped, err := loadPhrases(ctx, s.source, s.params)
	if err != nil {
		return nil, err
	}

	results, err := MapPhrases(ctx, s.runner, phrases, func(p phrase.Phrase) MKPhrase {
		values := p.Values()
		return MKPhrase{
			Key:      p.Key(),
			Artist:   p.Artist(),
			Original: trend.MannKendall(values, s.params),
			Modified: trend.ModifiedMannKendall(values, s.params),
		}
	})
	if err != nil {
		return nil, err
	}

	original := correction.NewFamily(stats.FamilyKey{Analysis: AnalysisMannKendall, Test: stats.TestMannKendall, Scope: "all_phrases"})
	modified := correction.NewFamily(stats.FamilyKey{Analysis: AnalysisMannKendall, Test: stats.TestModifiedMK, Scope: "all_phrases"})
	for i := range results {
		if err := original.AddResult(&results[i].Original.TrendResult); err != nil {
			return nil, err
		}
		if err := modified.AddResult(&results[i].Modified.TrendResult); err != nil {
			return nil, err
		}
	}
	families, err := correctFamilies(s.params.FDRAlpha, original, modified)
	if err != nil {
		return nil, err
	}

	rep := &MannKendallReport{
		Phrases:  results,
		Original: MKCounts{Test: stats.TestMannKendall},
		Modified: MKCounts{Test: stats.TestModifiedMK},
	}
	tally := NewTally()
	var taus, slopes []float64
	for _, r := range results {
		var labels []string
		if rep.Original.count(r.Original) {
			labels = append(labels, mkLabel(r.Original, labelMKInc, labelMKDec))
		}
		if rep.Modified.count(r.Modified) {
			labels = append(labels, mkLabel(r.Modified, labelModInc, labelModDec))
		}
		tally.Add(r.Artist, labels...)

		if !r.Original.Applicable || math.IsNaN(r.Original.Tau) {
			continue
		}
		taus = append(taus, r.Original.Tau)
		slopes = append(slopes, r.Original.Slope)
		if r.Original.Slope > 0 {
			rep.PositiveSlopes++
		}
		tally.Observe(r.Artist, metricTau, r.Original.Tau)
		tally.Observe(r.Artist, metricSens, r.Original.Slope)
	}
	if len(taus) > 0 {
		rep.MeanTau, _ = mstats.Mean(taus)
		rep.MedianTau, _ = mstats.Median(taus)
		rep.MeanSlope, _ = mstats.Mean(slopes)
		rep.MedianSlope, _ = mstats.Median(slopes)
	}
	rep.Artists = tally.Sorted()
	rep.RunInfo = newRunInfo(AnalysisMannKendall, len(results), dropped, started)
	rep.Families = families

	logger.Info("mann-kendall analysis complete",
		"phrases", len(results),
		"fdr_increase", rep.Original.FDRIncrease,
		"fdr_decrease", rep.Original.FDRDecrease,
		"modified_fdr_increase", rep.Modified.FDRIncrease,
		"runtime_ms", rep.RuntimeMs)
	return rep, nil
}

// count records r and reports whether it survived correction
func (c *MKCounts) count(r trend.MKResult) bool {
	switch r.Trend {
	case stats.TrendIncreasing:
		c.RawIncrease++
	case stats.TrendDecreasing:
		c.RawDecrease++
	}
	if !r.Significant() {
		return false
	}
	switch r.Direction {
	case stats.Increase:
		c.FDRIncrease++
	case stats.Decrease:
		c.FDRDecrease++
	default:
		return false
	}
	return true
}

func mkLabel(r trend.MKResult, inc, dec string) string {
	if r.Direction == stats.Increase {
		return inc
	}
	return dec
}

// SignificantRate is the percentage of phrases with an FDR-significant
// modified Mann-Kendall trend in either direction
func (r *MannKendallReport) SignificantRate() float64 {
	return Percent(r.Modified.FDRIncrease+r.Modified.FDRDecrease, len(r.Phrases))
}

func (r *MannKendallReport) Title() string { return "Mann-Kendall BUR trend analysis" }

func (r *MannKendallReport) Highlights() []string {
	n := len(r.Phrases)
	line := func(name string, c MKCounts) string {
		return fmt.Sprintf("%s: increasing %d raw / %d FDR (%.1f%%), decreasing %d raw / %d FDR (%.1f%%)",
			name, c.RawIncrease, c.FDRIncrease, Percent(c.FDRIncrease, n),
			c.RawDecrease, c.FDRDecrease, Percent(c.FDRDecrease, n))
	}
	return []string{
		fmt.Sprintf("Phrases analysed: %d (skipped %d shorter than the minimum)", n, r.Dropped),
		line("Original Mann-Kendall", r.Original),
		line("Modified Mann-Kendall", r.Modified),
		fmt.Sprintf("Kendall's tau: mean %.4f, median %.4f", r.MeanTau, r.MedianTau),
		fmt.Sprintf("Sen's slope: mean %.5f, median %.5f, positive in %.1f%% of phrases",
			r.MeanSlope, r.MedianSlope, Percent(r.PositiveSlopes, n)),
	}
}

func (r *MannKendallReport) Tables() []ports.Table {
	detail := ports.Table{
		Name: "mann_kendall_results_fdr",
		Columns: withKeyColumns(
			"mk_trend", "mk_p", "mk_p_fdr", "mk_significant_fdr", "mk_tau", "mk_z", "mk_s", "mk_var_s",
			"mk_mod_trend", "mk_mod_p", "mk_mod_p_fdr", "mk_mod_significant_fdr", "mk_mod_z", "mk_mod_factor",
			"sens_slope", "sens_intercept", "sens_ci_lower", "sens_ci_upper"),
		Detail: true,
	}
	for _, p := range r.Phrases {
		o, m := p.Original, p.Modified
		lo, hi := "", ""
		if o.CI != nil {
			lo, hi = ff(o.CI.Lower), ff(o.CI.Upper)
		}
		detail.Append(append(keyCells(p.Key, p.Artist, o.N),
			string(o.Trend), ff(o.PValue), qvalue(o.Correction), fbool(o.Significant()),
			ff(o.Tau), ff(o.Z), ff(o.S), ff(o.VarS),
			string(m.Trend), ff(m.PValue), qvalue(m.Correction), fbool(m.Significant()),
			ff(m.Z), ff(m.CorrectionFactor),
			ff(o.Slope), ff(o.Intercept), lo, hi)...)
	}

	artists := ports.Table{
		Name: "mann_kendall_artists",
		Columns: []string{"artist", "phrases", labelMKInc, labelMKDec, labelModInc, labelModDec,
			"avg_tau", "avg_sens_slope"},
	}
	for _, a := range r.Artists {
		artists.Append(a.Artist, fint(a.Phrases),
			fint(a.Count(labelMKInc)), fint(a.Count(labelMKDec)),
			fint(a.Count(labelModInc)), fint(a.Count(labelModDec)),
			ff(a.Mean(metricTau)), ff(a.Mean(metricSens)))
	}

	return []ports.Table{detail, artists, familyTable("mann_kendall_families", r.Families)}
}
