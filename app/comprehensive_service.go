package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"burtrend/adapters/stats/correction"
	"burtrend/adapters/stats/trend"
	"burtrend/domain/core"
	"burtrend/domain/phrase"
	"burtrend/domain/stats"
	"burtrend/internal/logger"
	"burtrend/ports"
)

// ComprehensiveService runs the full trend battery on every phrase. Each
// model or detector is corrected as its own family across all phrases.
type ComprehensiveService struct {
	source ports.PhraseSource
	params stats.Params
	runner *Runner
}

// ComprehensivePhrase is the battery outcome of one phrase
type ComprehensivePhrase struct {
	Key    phrase.Key          `json:"key"`
	Artist string              `json:"artist"`
	Result trend.Comprehensive `json:"result"`
}

// ModelCount summarises one model or detector over the run
type ModelCount struct {
	Test     stats.TestType `json:"test"`
	Tested   int            `json:"tested"`
	Increase int            `json:"significant_increase"`
	Decrease int            `json:"significant_decrease"`

	// Detected counts the detector's own raw flag (step and end surge only)
	Detected int `json:"detected"`

	// phrases the test could not run on, and how many of those were fits
	// whose optimiser gave up
	NotApplicable int `json:"not_applicable"`
	NotConverged  int `json:"not_converged"`
}

// Significant is the total number of FDR-significant phrases
func (m ModelCount) Significant() int { return m.Increase + m.Decrease }

// ComprehensiveReport is the outcome of a comprehensive run
type ComprehensiveReport struct {
	RunInfo
	Phrases    []ComprehensivePhrase   `json:"phrases"`
	Models     []ModelCount            `json:"models"`
	ShapeU     int                     `json:"quadratic_u"`
	ShapeInvU  int                     `json:"quadratic_inverted_u"`
	BestModels map[stats.ModelKind]int `json:"best_models"`
	SurgeCalls map[string]int          `json:"surge_calls"`
	Artists    []ArtistTally           `json:"artists"`
}

// per-artist labels
const (
	labelLinearInc   = "linear_inc"
	labelExpInc      = "exp_inc"
	labelLogInc      = "log_inc"
	labelQuadSig     = "quad_sig"
	labelStepFound   = "step_detected"
	labelEndSurge    = "end_surge"
	labelAnySurgeInc = "surge_inc"
)

var batteryTests = []stats.TestType{
	stats.TestLinear,
	stats.TestExponential,
	stats.TestLogarithmic,
	stats.TestQuadratic,
	stats.TestStepChange,
	stats.TestEndSurge,
}

// positions of the raw detectors within batteryTests
const (
	stepIndex     = 4
	endSurgeIndex = 5
)

func NewComprehensiveService(source ports.PhraseSource, params stats.Params, runner *Runner) *ComprehensiveService {
	return &ComprehensiveService{source: source, params: params, runner: runner}
}

// Run executes the analysis
func (s *ComprehensiveService) Run(ctx context.Context) (*ComprehensiveReport, error) {
	started := time.Now()
	phrases, dropped, err := loadPhrases(ctx, s.source, s.params)
	if err != nil {
		return nil, err
	}

	results, err := MapPhrases(ctx, s.runner, phrases, func(p phrase.Phrase) ComprehensivePhrase {
		return ComprehensivePhrase{Key: p.Key(), Artist: p.Artist(), Result: trend.RunComprehensive(p.Values(), s.params)}
	})
	if err != nil {
		return nil, err
	}

	families := make([]*correction.Family, len(batteryTests))
	for i, test := range batteryTests {
		families[i] = correction.NewFamily(stats.FamilyKey{Analysis: AnalysisComprehensive, Test: test, Scope: "all_phrases"})
	}
	for i := range results {
		for j, r := range results[i].Result.Results() {
			if err := families[j].AddResult(r); err != nil {
				return nil, err
			}
		}
	}
	summaries, err := correctFamilies(s.params.FDRAlpha, families...)
	if err != nil {
		return nil, err
	}

	rep := &ComprehensiveReport{
		Phrases:    results,
		Models:     make([]ModelCount, len(batteryTests)),
		BestModels: make(map[stats.ModelKind]int),
		SurgeCalls: make(map[string]int),
	}
	for i, test := range batteryTests {
		rep.Models[i].Test = test
	}
	tally := NewTally()
	for i := range results {
		c := &results[i].Result
		for j, r := range c.Results() {
			rep.Models[j].count(r)
		}
		if c.Step.HasStep {
			rep.Models[stepIndex].Detected++
		}
		if c.EndSurge.HasEndSurge {
			rep.Models[endSurgeIndex].Detected++
		}
		if c.Quadratic.Significant() {
			switch c.Shape {
			case stats.ShapeU:
				rep.ShapeU++
			case stats.ShapeInvertedU:
				rep.ShapeInvU++
			}
		}
		if c.HasBest {
			rep.BestModels[c.Best.Kind]++
		}
		if c.Surge.Qualifies() {
			rep.SurgeCalls[surgeLabel(c)]++
		}
		tally.Add(results[i].Artist, artistLabels(c)...)
	}
	for _, m := range rep.Models {
		if m.NotApplicable > 0 {
			logger.Debug("test not applicable",
				"test", string(m.Test), "phrases", m.NotApplicable, "not_converged", m.NotConverged)
		}
	}
	rep.Artists = tally.Sorted()
	rep.RunInfo = newRunInfo(AnalysisComprehensive, len(results), dropped, started)
	rep.Families = summaries

	logger.Info("comprehensive analysis complete",
		"phrases", len(results), "best_models", len(rep.BestModels), "runtime_ms", rep.RuntimeMs)
	return rep, nil
}

func (m *ModelCount) count(r *stats.TrendResult) {
	if err := r.Err(); err != nil {
		m.NotApplicable++
		if core.IsNotConverged(err) {
			m.NotConverged++
		}
		return
	}
	m.Tested++
	if !r.Significant() {
		return
	}
	switch r.Direction {
	case stats.Increase:
		m.Increase++
	case stats.Decrease:
		m.Decrease++
	}
}

func surgeLabel(c *trend.Comprehensive) string {
	return string(c.Surge.Kind) + "_" + string(c.Surge.Direction)
}

func artistLabels(c *trend.Comprehensive) []string {
	var labels []string
	if c.Linear.Significant() && c.Linear.Direction == stats.Increase {
		labels = append(labels, labelLinearInc)
	}
	if c.Exponential.Significant() && c.Exponential.Direction == stats.Increase {
		labels = append(labels, labelExpInc)
	}
	if c.Logarithmic.Significant() && c.Logarithmic.Direction == stats.Increase {
		labels = append(labels, labelLogInc)
	}
	if c.Quadratic.Significant() {
		labels = append(labels, labelQuadSig)
	}
	if c.Step.HasStep {
		labels = append(labels, labelStepFound)
	}
	if c.EndSurge.HasEndSurge {
		labels = append(labels, labelEndSurge)
	}
	if c.Surge.Qualifies() && c.Surge.Direction == stats.Increase {
		labels = append(labels, labelAnySurgeInc)
	}
	return labels
}

// Model returns the counts of one test
func (r *ComprehensiveReport) Model(test stats.TestType) (ModelCount, bool) {
	for _, m := range r.Models {
		if m.Test == test {
			return m, true
		}
	}
	return ModelCount{}, false
}

// SurgeRate is the percentage of phrases with a qualifying curve surge
func (r *ComprehensiveReport) SurgeRate() float64 {
	calls := 0
	for _, n := range r.SurgeCalls {
		calls += n
	}
	return Percent(calls, len(r.Phrases))
}

// RawLinearRate is the percentage of phrases whose uncorrected linear slope
// p-value is below alpha
func (r *ComprehensiveReport) RawLinearRate(alpha float64) float64 {
	hits := 0
	for _, p := range r.Phrases {
		if l := p.Result.Linear; l.Applicable && l.PValue < alpha {
			hits++
		}
	}
	return Percent(hits, len(r.Phrases))
}

func (r *ComprehensiveReport) Title() string { return "Comprehensive BUR trend analysis" }

func (r *ComprehensiveReport) Highlights() []string {
	n := len(r.Phrases)
	out := []string{fmt.Sprintf("Phrases analysed: %d (skipped %d shorter than the minimum)", n, r.Dropped)}
	for _, m := range r.Models {
		switch m.Test {
		case stats.TestQuadratic:
			out = append(out, fmt.Sprintf("%s: %d significant (%.1f%%), U-shaped %d, inverted-U %d",
				m.Test, m.Significant(), Percent(m.Significant(), n), r.ShapeU, r.ShapeInvU))
		case stats.TestStepChange, stats.TestEndSurge:
			out = append(out, fmt.Sprintf("%s: %d detected (%.1f%%), %d significant after FDR",
				m.Test, m.Detected, Percent(m.Detected, n), m.Significant()))
		default:
			out = append(out, fmt.Sprintf("%s: %d increase (%.1f%%), %d decrease (%.1f%%)",
				m.Test, m.Increase, Percent(m.Increase, n), m.Decrease, Percent(m.Decrease, n)))
		}
	}
	for _, kind := range sortedKinds(r.BestModels) {
		out = append(out, fmt.Sprintf("Best model %s: %d (%.1f%%)", kind, r.BestModels[kind], Percent(r.BestModels[kind], n)))
	}
	return out
}

func sortedKinds(m map[stats.ModelKind]int) []stats.ModelKind {
	kinds := make([]stats.ModelKind, 0, len(m))
	for k := range m {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i].Rank() < kinds[j].Rank() })
	return kinds
}

func (r *ComprehensiveReport) Tables() []ports.Table {
	detail := ports.Table{
		Name: "comprehensive_trend_analysis",
		Columns: withKeyColumns(
			"linear_slope", "linear_r2", "linear_p", "linear_p_fdr", "linear_significant_fdr",
			"exp_growth_rate", "exp_r2", "exp_p", "exp_p_fdr", "exp_significant_fdr",
			"log_coefficient", "log_r2", "log_p", "log_p_fdr", "log_significant_fdr",
			"quad_a", "quad_r2", "quad_p", "quad_p_fdr", "quad_significant_fdr", "quad_shape",
			"step_position", "step_magnitude", "step_p", "step_p_fdr", "has_step",
			"end_surge_magnitude", "end_surge_effect_size", "end_surge_p", "end_surge_p_fdr", "has_end_surge",
			"best_model", "best_r2", "surge_model", "surge_direction", "surge_delta"),
		Detail: true,
	}
	for _, p := range r.Phrases {
		c := p.Result
		row := keyCells(p.Key, p.Artist, c.Linear.N)
		for _, t := range []stats.TrendResult{c.Linear.TrendResult, c.Exponential, c.Logarithmic, c.Quadratic} {
			row = append(row, ff(t.Slope), ff(t.Statistic), ff(t.PValue), qvalue(t.Correction), fbool(t.Significant()))
		}
		row = append(row, string(c.Shape))
		row = append(row, fint(c.Step.Position), ff(c.Step.Magnitude), ff(c.Step.PValue), qvalue(c.Step.Correction), fbool(c.Step.HasStep))
		row = append(row, ff(c.EndSurge.Magnitude), ff(c.EndSurge.EffectSize), ff(c.EndSurge.PValue), qvalue(c.EndSurge.Correction), fbool(c.EndSurge.HasEndSurge))
		best, bestR2 := "", ""
		if c.HasBest {
			best, bestR2 = string(c.Best.Kind), ff(c.Best.R2)
		}
		surgeKind, surgeDelta := "", ""
		if c.Surge.Qualifies() {
			surgeKind, surgeDelta = string(c.Surge.Kind), ff(c.Surge.Delta)
		}
		row = append(row, best, bestR2, surgeKind, string(c.Surge.Direction), surgeDelta)
		detail.Append(row...)
	}

	models := ports.Table{
		Name:    "comprehensive_models",
		Columns: []string{"test", "tested", "significant_increase", "significant_decrease", "significant_pct",
			"detected", "detected_pct", "not_applicable", "not_converged"},
	}
	n := len(r.Phrases)
	for _, m := range r.Models {
		models.Append(string(m.Test), fint(m.Tested), fint(m.Increase), fint(m.Decrease),
			fpct(Percent(m.Significant(), n)), fint(m.Detected), fpct(Percent(m.Detected, n)),
			fint(m.NotApplicable), fint(m.NotConverged))
	}

	best := ports.Table{Name: "comprehensive_best_models", Columns: []string{"model", "phrases", "pct"}}
	for _, kind := range sortedKinds(r.BestModels) {
		best.Append(string(kind), fint(r.BestModels[kind]), fpct(Percent(r.BestModels[kind], n)))
	}

	surges := ports.Table{Name: "comprehensive_surge_calls", Columns: []string{"call", "phrases", "pct"}}
	calls := make([]string, 0, len(r.SurgeCalls))
	for c := range r.SurgeCalls {
		calls = append(calls, c)
	}
	sort.Strings(calls)
	for _, c := range calls {
		surges.Append(c, fint(r.SurgeCalls[c]), fpct(Percent(r.SurgeCalls[c], n)))
	}

	artists := ports.Table{
		Name: "comprehensive_artists",
		Columns: []string{"artist", "phrases", labelLinearInc, labelExpInc, labelLogInc,
			labelQuadSig, labelStepFound, labelEndSurge, labelAnySurgeInc},
	}
	for _, a := range r.Artists {
		artists.Append(a.Artist, fint(a.Phrases),
			fint(a.Count(labelLinearInc)), fint(a.Count(labelExpInc)), fint(a.Count(labelLogInc)),
			fint(a.Count(labelQuadSig)), fint(a.Count(labelStepFound)), fint(a.Count(labelEndSurge)),
			fint(a.Count(labelAnySurgeInc)))
	}

	return []ports.Table{detail, models, best, surges, artists, familyTable("comprehensive_families", r.Families)}
}
