package app

import (
	"context"
	"math"
	"strconv"
	"time"

	"burtrend/adapters/stats/correction"
	"burtrend/domain/core"
	"burtrend/domain/phrase"
	"burtrend/domain/stats"
	"burtrend/internal/errors"
	"burtrend/internal/logger"
	"burtrend/ports"
)

// Report is the common surface of every analysis result
type Report interface {
	Title() string
	Highlights() []string
	Tables() []ports.Table
}

// RunInfo identifies one analysis run
type RunInfo struct {
	RunID     core.RunID            `json:"run_id"`
	Analysis  string                `json:"analysis"`
	Phrases   int                   `json:"phrases"`
	Dropped   int                   `json:"dropped"`
	Families  []stats.FamilySummary `json:"families"`
	RuntimeMs int64                 `json:"runtime_ms"`
}

// Publish writes every table of r to w
func Publish(ctx context.Context, r Report, w ports.TableWriter) error {
	for _, t := range r.Tables() {
		if err := w.WriteTable(ctx, t); err != nil {
			return errors.Wrapf(err, "write table %s", t.Name)
		}
	}
	return nil
}

// loadPhrases fetches phrases and drops those shorter than MinSamples
func loadPhrases(ctx context.Context, source ports.PhraseSource, p stats.Params) ([]phrase.Phrase, int, error) {
	all, err := source.Load(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(err, "load phrases")
	}
	return analysable(all, p)
}

// analysable keeps the phrases with at least MinSamples values
func analysable(all []phrase.Phrase, p stats.Params) ([]phrase.Phrase, int, error) {
	kept, dropped := phrase.FilterMinLength(all, p.MinSamples)
	if len(kept) == 0 {
		return nil, len(dropped), errors.WithCode(errors.CodeInvalidInput, core.ErrEmptyDataset)
	}
	if len(dropped) > 0 {
		logger.Debug("short phrases skipped", "dropped", len(dropped), "min_samples", p.MinSamples)
	}
	return kept, len(dropped), nil
}

// correctFamilies seals every family in order and returns their summaries
func correctFamilies(alpha float64, families ...*correction.Family) ([]stats.FamilySummary, error) {
	out := make([]stats.FamilySummary, 0, len(families))
	for _, f := range families {
		sum, err := f.Correct(alpha)
		if err != nil {
			return nil, errors.Wrapf(err, "correct family %s", f.Key())
		}
		logger.Debug("family corrected",
			"family", sum.Key.String(), "size", sum.Size, "raw_hits", sum.RawHits, "rejections", sum.Rejections)
		out = append(out, sum)
	}
	return out, nil
}

func newRunInfo(analysis string, phrases, dropped int, started time.Time) RunInfo {
	return RunInfo{
		RunID:     core.NewRunID(),
		Analysis:  analysis,
		Phrases:   phrases,
		Dropped:   dropped,
		RuntimeMs: time.Since(started).Milliseconds(),
	}
}

// ============================================================================
// CELL FORMATTING
// ============================================================================

func ff(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', 8, 64)
}

func fpct(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func fint(v int) string { return strconv.Itoa(v) }

func fbool(v bool) string { return strconv.FormatBool(v) }

func qvalue(c *stats.Correction) string {
	if c == nil {
		return ""
	}
	return ff(c.QValue)
}

func significant(c *stats.Correction) bool {
	return c != nil && c.Significant
}

func keyCells(k phrase.Key, artist string, n int) []string {
	return []string{k.SoloID, k.SegmentID, artist, fint(n)}
}

var keyColumns = []string{"id", "seg_id", "artist", "n_values"}

func withKeyColumns(cols ...string) []string {
	return append(append([]string(nil), keyColumns...), cols...)
}

func familyTable(name string, families []stats.FamilySummary) ports.Table {
	t := ports.Table{
		Name:    name,
		Columns: []string{"family", "family_id", "method", "alpha", "size", "raw_significant", "fdr_significant"},
	}
	for _, f := range families {
		t.Append(f.Key.String(), f.ID.String(), f.Method, ff(f.Alpha), fint(f.Size), fint(f.RawHits), fint(f.Rejections))
	}
	return t
}
