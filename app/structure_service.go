package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"burtrend/adapters/stats/trend"
	"burtrend/domain/phrase"
	"burtrend/domain/stats"
	"burtrend/internal/errors"
	"burtrend/internal/logger"
	"burtrend/ports"
)

// SigMode picks which edge-significance categories rank an artist
type SigMode string

const (
	// SigModeBoth counts phrases whose first and last notes are both significant
	SigModeBoth SigMode = "both"
	// SigModeAny counts phrases with at least one significant edge
	SigModeAny SigMode = "any"
)

// ParseSigMode validates a mode name
func ParseSigMode(s string) (SigMode, error) {
	switch SigMode(s) {
	case SigModeBoth, SigModeAny:
		return SigMode(s), nil
	}
	return "", errors.InvalidInputf("unknown significance mode %q (want both or any)", s)
}

// Matches reports whether a significance category counts under the mode
func (m SigMode) Matches(c trend.StructureCategory) bool {
	if m == SigModeAny {
		return c == trend.SigBoth || c == trend.SigBeginning || c == trend.SigEnd
	}
	return c == trend.SigBoth
}

// StructureService compares the first and last BUR of every phrase with its
// middle. Edge z-tests use the fixed critical value and are not corrected.
type StructureService struct {
	source  ports.PhraseSource
	params  stats.Params
	runner  *Runner
	sigMode SigMode
}

// StructurePhrase is the edge analysis of one phrase
type StructurePhrase struct {
	Key       phrase.Key            `json:"key"`
	Artist    string                `json:"artist"`
	Structure trend.StructureResult `json:"structure"`
}

// StructureReport is the outcome of a phrase-structure run
type StructureReport struct {
	RunInfo
	SigMode    SigMode                         `json:"sig_mode"`
	Phrases    []StructurePhrase               `json:"phrases"`
	Applicable int                             `json:"applicable"`
	Categories map[trend.StructureCategory]int `json:"categories"`
	Artists    []ArtistTally                   `json:"artists"`
}

var (
	structureCategories = []trend.StructureCategory{trend.BothHigher, trend.BeginningHigher, trend.EndHigher, trend.NoneHigher}
	signifCategories    = []trend.StructureCategory{trend.SigBoth, trend.SigBeginning, trend.SigEnd, trend.SigNone}
)

const labelSigRanked = "sig_ranked"

func NewStructureService(source ports.PhraseSource, params stats.Params, runner *Runner, sigMode SigMode) *StructureService {
	if sigMode == "" {
		sigMode = SigModeBoth
	}
	return &StructureService{source: source, params: params, runner: runner, sigMode: sigMode}
}

// Run executes the analysis
func (s *StructureService) Run(ctx context.Context) (*StructureReport, error) {
	started := time.Now()
	phrases, dropped, err := loadPhrases(ctx, s.source, s.params)
	if err != nil {
		return nil, err
	}

	results, err := MapPhrases(ctx, s.runner, phrases, func(p phrase.Phrase) StructurePhrase {
		return StructurePhrase{Key: p.Key(), Artist: p.Artist(), Structure: trend.PhraseStructure(p.Values(), s.params)}
	})
	if err != nil {
		return nil, err
	}

	rep := &StructureReport{
		SigMode:    s.sigMode,
		Phrases:    results,
		Categories: make(map[trend.StructureCategory]int),
	}
	tally := NewTally()
	for _, r := range results {
		st := r.Structure
		if !st.Applicable {
			tally.Add(r.Artist)
			continue
		}
		rep.Applicable++
		rep.Categories[st.Category]++
		rep.Categories[st.SignifCategory]++

		labels := []string{string(st.Category), string(st.SignifCategory)}
		if s.sigMode.Matches(st.SignifCategory) {
			labels = append(labels, labelSigRanked)
		}
		tally.Add(r.Artist, labels...)
	}
	rep.Artists = tally.Sorted()
	sort.SliceStable(rep.Artists, func(i, j int) bool {
		return rep.Artists[i].Percent(labelSigRanked) > rep.Artists[j].Percent(labelSigRanked)
	})
	rep.RunInfo = newRunInfo(AnalysisStructure, len(results), dropped, started)

	logger.Info("phrase structure analysis complete",
		"phrases", len(results), "applicable", rep.Applicable,
		"sig_both", rep.Categories[trend.SigBoth], "runtime_ms", rep.RuntimeMs)
	return rep, nil
}

// CategoryPercent is the share of applicable phrases in category c
func (r *StructureReport) CategoryPercent(c trend.StructureCategory) float64 {
	return Percent(r.Categories[c], r.Applicable)
}

// SignificantRate is the percentage of applicable phrases whose edges are
// significant under the report's mode
func (r *StructureReport) SignificantRate() float64 {
	n := 0
	for _, c := range signifCategories {
		if r.SigMode.Matches(c) {
			n += r.Categories[c]
		}
	}
	return Percent(n, r.Applicable)
}

func (r *StructureReport) Title() string { return "BUR phrase structure analysis" }

func (r *StructureReport) Highlights() []string {
	out := []string{fmt.Sprintf("Phrases analysed: %d (%d long enough for an edge comparison)", len(r.Phrases), r.Applicable)}
	for _, c := range structureCategories {
		out = append(out, fmt.Sprintf("%s: %d (%.1f%%)", c, r.Categories[c], r.CategoryPercent(c)))
	}
	for _, c := range signifCategories {
		out = append(out, fmt.Sprintf("%s: %d (%.1f%%)", c, r.Categories[c], r.CategoryPercent(c)))
	}
	out = append(out, fmt.Sprintf("Significant edges (%s): %.1f%%", r.SigMode, r.SignificantRate()))
	return out
}

func (r *StructureReport) Tables() []ports.Table {
	detail := ports.Table{
		Name: "phrase_structure_results",
		Columns: withKeyColumns("first", "last", "middle_mean", "middle_std", "first_delta", "last_delta",
			"beginning", "end", "first_z", "last_z", "first_significant", "last_significant",
			"category", "significance_category"),
		Detail: true,
	}
	for _, p := range r.Phrases {
		st := p.Structure
		if !st.Applicable {
			continue
		}
		detail.Append(append(keyCells(p.Key, p.Artist, st.N),
			ff(st.First), ff(st.Last), ff(st.MiddleMean), ff(st.MiddleStd), ff(st.FirstDelta), ff(st.LastDelta),
			string(st.Beginning), string(st.End), ff(st.FirstZ), ff(st.LastZ),
			fbool(st.FirstSignif), fbool(st.LastSignif), string(st.Category), string(st.SignifCategory))...)
	}

	categories := ports.Table{Name: "phrase_structure_categories", Columns: []string{"category", "phrases", "pct"}}
	for _, c := range append(append([]trend.StructureCategory(nil), structureCategories...), signifCategories...) {
		categories.Append(string(c), fint(r.Categories[c]), fpct(r.CategoryPercent(c)))
	}

	cols := []string{"artist", "phrases"}
	for _, c := range structureCategories {
		cols = append(cols, string(c)+"_pct")
	}
	for _, c := range signifCategories {
		cols = append(cols, string(c)+"_pct")
	}
	artists := ports.Table{Name: "phrase_structure_artists", Columns: append(cols, "sig_"+string(r.SigMode)+"_pct")}
	for _, a := range r.Artists {
		row := []string{a.Artist, fint(a.Phrases)}
		for _, c := range structureCategories {
			row = append(row, fpct(a.Percent(string(c))))
		}
		for _, c := range signifCategories {
			row = append(row, fpct(a.Percent(string(c))))
		}
		artists.Append(append(row, fpct(a.Percent(labelSigRanked)))...)
	}

	return []ports.Table{detail, categories, artists}
}
