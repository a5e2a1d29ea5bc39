package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"burtrend/adapters/stats/correction"
	"burtrend/adapters/stats/surge"
	"burtrend/domain/phrase"
	"burtrend/domain/stats"
	"burtrend/internal/errors"
	"burtrend/internal/logger"
	"burtrend/ports"

	mstats "github.com/montanaflynn/stats"
)

// WindowMode selects which windows enter the correction family
type WindowMode string

const (
	// WindowsAll pools every applicable window of every phrase
	WindowsAll WindowMode = "all"
	// WindowsBest pools only the strongest window of each phrase
	WindowsBest WindowMode = "best"
)

// ParseWindowMode validates a mode name
func ParseWindowMode(s string) (WindowMode, error) {
	switch WindowMode(s) {
	case WindowsAll, WindowsBest:
		return WindowMode(s), nil
	}
	return "", errors.InvalidInputf("unknown window mode %q (want all or best)", s)
}

// LocalizedService scans every phrase with sliding seasonal Mann-Kendall
// windows and corrects the window p-values according to its mode.
type LocalizedService struct {
	source ports.PhraseSource
	params stats.Params
	runner *Runner
	mode   WindowMode
}

// LocalizedPhrase is the scan of one phrase with its post-correction summary
type LocalizedPhrase struct {
	Key     phrase.Key    `json:"key"`
	Artist  string        `json:"artist"`
	Scan    surge.Scan    `json:"scan"`
	Summary surge.Summary `json:"summary"`
}

// LocalizedReport is the outcome of a localized surge run
type LocalizedReport struct {
	RunInfo
	Mode    WindowMode        `json:"mode"`
	Phrases []LocalizedPhrase `json:"phrases"`

	// window level
	WindowsTested int `json:"windows_tested"`
	RawWindows    int `json:"raw_significant_windows"`
	FDRWindows    int `json:"fdr_significant_windows"`

	// phrase level
	RawPhrases int `json:"raw_surge_phrases"`
	FDRPhrases int `json:"fdr_surge_phrases"`

	// strongest significant window of each FDR-positive phrase
	MeanTau   float64 `json:"mean_tau"`
	Increase  int     `json:"increase"`
	Decrease  int     `json:"decrease"`
	MeanStart float64 `json:"mean_start"`

	Artists []ArtistTally `json:"artists"`
}

const (
	labelRawSurge = "local_surge_raw"
	labelFDRSurge = "local_surge_fdr"
	metricAbsTau  = "abs_tau"
)

func NewLocalizedService(source ports.PhraseSource, params stats.Params, runner *Runner, mode WindowMode) *LocalizedService {
	if mode == "" {
		mode = WindowsAll
	}
	return &LocalizedService{source: source, params: params, runner: runner, mode: mode}
}

// Run executes the analysis
func (s *LocalizedService) Run(ctx context.Context) (*LocalizedReport, error) {
	started := time.Now()
	phrases, dropped, err := loadPhrases(ctx, s.source, s.params)
	if err != nil {
		return nil, err
	}

	scanner := surge.NewScanner(s.params)
	results, err := MapPhrases(ctx, s.runner, phrases, func(p phrase.Phrase) LocalizedPhrase {
		return LocalizedPhrase{Key: p.Key(), Artist: p.Artist(), Scan: scanner.Scan(p.Values())}
	})
	if err != nil {
		return nil, err
	}

	scope := "all_windows"
	if s.mode == WindowsBest {
		scope = "best_window"
	}
	family := correction.NewFamily(stats.FamilyKey{Analysis: AnalysisLocalized, Test: stats.TestSeasonalMK, Scope: scope})
	for i := range results {
		if err := s.addWindows(family, &results[i].Scan); err != nil {
			return nil, err
		}
	}
	families, err := correctFamilies(s.params.FDRAlpha, family)
	if err != nil {
		return nil, err
	}

	rep := &LocalizedReport{Mode: s.mode, Phrases: results}
	tally := NewTally()
	var taus, starts []float64
	for i := range results {
		r := &results[i]
		r.Summary = scanner.Summarize(&r.Scan)

		rep.WindowsTested += r.Scan.Tested()
		rep.RawWindows += r.Scan.RawSignificant
		rep.FDRWindows += r.Summary.Significant

		var labels []string
		if r.Scan.HasLocalSurge {
			rep.RawPhrases++
			labels = append(labels, labelRawSurge)
		}
		if w := r.Summary.Strongest; w != nil {
			rep.FDRPhrases++
			labels = append(labels, labelFDRSurge)
			taus = append(taus, w.Tau)
			starts = append(starts, float64(w.Start))
			switch w.Direction {
			case stats.Increase:
				rep.Increase++
			case stats.Decrease:
				rep.Decrease++
			}
			tally.Observe(r.Artist, metricAbsTau, math.Abs(w.Tau))
		}
		tally.Add(r.Artist, labels...)
	}
	if len(taus) > 0 {
		rep.MeanTau, _ = mstats.Mean(taus)
		rep.MeanStart, _ = mstats.Mean(starts)
	}
	rep.Artists = tally.Sorted()
	rep.RunInfo = newRunInfo(AnalysisLocalized, len(results), dropped, started)
	rep.Families = families

	logger.Info("localized surge analysis complete",
		"mode", string(s.mode), "phrases", len(results), "windows", rep.WindowsTested,
		"raw_windows", rep.RawWindows, "fdr_windows", rep.FDRWindows, "runtime_ms", rep.RuntimeMs)
	return rep, nil
}

func (s *LocalizedService) addWindows(family *correction.Family, scan *surge.Scan) error {
	if s.mode == WindowsBest {
		if w, ok := scan.Best(); ok {
			return family.AddWindow(w)
		}
		return nil
	}
	for i := range scan.Windows {
		if err := family.AddWindow(&scan.Windows[i]); err != nil {
			return err
		}
	}
	return nil
}

// RawRate is the percentage of phrases with a raw local surge
func (r *LocalizedReport) RawRate() float64 { return Percent(r.RawPhrases, len(r.Phrases)) }

// SignificantRate is the percentage of phrases with a local surge after FDR
func (r *LocalizedReport) SignificantRate() float64 { return Percent(r.FDRPhrases, len(r.Phrases)) }

// ReductionFactor is how many raw window hits correction removes per
// surviving one; NaN when nothing survives.
func (r *LocalizedReport) ReductionFactor() float64 {
	if r.FDRWindows == 0 {
		return math.NaN()
	}
	return float64(r.RawWindows) / float64(r.FDRWindows)
}

func (r *LocalizedReport) Title() string {
	return fmt.Sprintf("Localized BUR surge analysis (%s windows)", r.Mode)
}

func (r *LocalizedReport) Highlights() []string {
	n := len(r.Phrases)
	out := []string{
		fmt.Sprintf("Phrases analysed: %d (skipped %d shorter than the minimum)", n, r.Dropped),
		fmt.Sprintf("Windows tested: %d", r.WindowsTested),
		fmt.Sprintf("Significant windows: %d raw (%.2f%%), %d after FDR (%.2f%%)",
			r.RawWindows, Percent(r.RawWindows, r.WindowsTested),
			r.FDRWindows, Percent(r.FDRWindows, r.WindowsTested)),
		fmt.Sprintf("Phrases with a local surge: %d raw (%.1f%%), %d after FDR (%.1f%%)",
			r.RawPhrases, r.RawRate(), r.FDRPhrases, r.SignificantRate()),
	}
	if rf := r.ReductionFactor(); !math.IsNaN(rf) {
		out = append(out, fmt.Sprintf("FDR reduction factor: %.1fx", rf))
	}
	if r.FDRPhrases > 0 {
		out = append(out,
			fmt.Sprintf("Significant surges: mean tau %.3f, %d increasing, %d decreasing, mean start position %.1f",
				r.MeanTau, r.Increase, r.Decrease, r.MeanStart))
	}
	return out
}

func (r *LocalizedReport) Tables() []ports.Table {
	detail := ports.Table{
		Name: "localized_surge_results_fdr",
		Columns: withKeyColumns("windows_tested", "raw_significant_windows", "has_local_surge",
			"best_start", "best_end", "best_size", "best_tau", "best_p", "best_p_fdr", "best_direction",
			"n_significant_windows_fdr", "significant_local_surge",
			"fdr_start", "fdr_end", "fdr_size", "fdr_tau", "fdr_p_fdr", "fdr_direction"),
		Detail: true,
	}
	for _, p := range r.Phrases {
		row := keyCells(p.Key, p.Artist, p.Scan.N)
		row = append(row, fint(p.Scan.Tested()), fint(p.Scan.RawSignificant), fbool(p.Scan.HasLocalSurge))
		if w, ok := p.Scan.Best(); ok {
			row = append(row, fint(w.Start), fint(w.End), fint(w.Size), ff(w.Tau), ff(w.PValue), qvalue(w.Correction), string(w.Direction))
		} else {
			row = append(row, "", "", "", "", "", "", "")
		}
		row = append(row, fint(p.Summary.Significant), fbool(p.Summary.HasSignificant))
		if w := p.Summary.Strongest; w != nil {
			row = append(row, fint(w.Start), fint(w.End), fint(w.Size), ff(w.Tau), qvalue(w.Correction), string(w.Direction))
		} else {
			row = append(row, "", "", "", "", "", "")
		}
		detail.Append(row...)
	}

	artists := ports.Table{
		Name:    "localized_surge_artists",
		Columns: []string{"artist", "phrases", labelRawSurge, "raw_pct", labelFDRSurge, "fdr_pct", "mean_abs_tau_fdr"},
	}
	for _, a := range r.Artists {
		meanTau := math.NaN()
		if hits := a.Count(labelFDRSurge); hits > 0 {
			meanTau = a.Sums[metricAbsTau] / float64(hits)
		}
		artists.Append(a.Artist, fint(a.Phrases),
			fint(a.Count(labelRawSurge)), fpct(a.Percent(labelRawSurge)),
			fint(a.Count(labelFDRSurge)), fpct(a.Percent(labelFDRSurge)), ff(meanTau))
	}

	return []ports.Table{detail, artists, familyTable("localized_surge_families", r.Families)}
}
