package csvdata

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"

	"burtrend/domain/phrase"
	"burtrend/internal/errors"
)

// CleanStats summarizes a Clean pass
type CleanStats struct {
	OriginalRows    int
	CleanedRows     int
	OriginalPhrases int
	CleanedPhrases  int
	MinValues       int
}

func (s CleanStats) RowsRemoved() int    { return s.OriginalRows - s.CleanedRows }
func (s CleanStats) PhrasesRemoved() int { return s.OriginalPhrases - s.CleanedPhrases }

func (s CleanStats) RowsRemovedPct() float64 {
	return percent(s.RowsRemoved(), s.OriginalRows)
}

func (s CleanStats) PhrasesRemovedPct() float64 {
	return percent(s.PhrasesRemoved(), s.OriginalPhrases)
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(part) / float64(total)
}

// Clean keeps only rows whose phrase has at least minValues rows. Row order
// and every column are preserved.
func (t *Table) Clean(minValues int) (*Table, CleanStats, error) {
	if minValues < 1 {
		return nil, CleanStats{}, errors.ValidationError("minimum values per phrase must be >= 1")
	}
	idx, err := t.requireColumns(ColumnID, ColumnSegment)
	if err != nil {
		return nil, CleanStats{}, err
	}
	cols := columns{id: idx[ColumnID], segment: idx[ColumnSegment]}

	keys := make([]phrase.Key, len(t.Rows))
	counts := make(map[phrase.Key]int)
	for i, row := range t.Rows {
		k, err := cols.key(row)
		if err != nil {
			return nil, CleanStats{}, err
		}
		keys[i] = k
		counts[k]++
	}

	out := &Table{Header: append([]string(nil), t.Header...)}
	kept := make(map[phrase.Key]struct{})
	for i, row := range t.Rows {
		if counts[keys[i]] < minValues {
			continue
		}
		kept[keys[i]] = struct{}{}
		out.Rows = append(out.Rows, row)
	}

	return out, CleanStats{
		OriginalRows:    len(t.Rows),
		CleanedRows:     len(out.Rows),
		OriginalPhrases: len(counts),
		CleanedPhrases:  len(kept),
		MinValues:       minValues,
	}, nil
}

// Save writes the table to path with the given delimiter, creating the
// parent directory when needed.
func (t *Table) Save(ctx context.Context, path string, delim rune) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.IOError(filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.IOError(path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = delim
	if err := w.Write(t.Header); err != nil {
		return errors.IOError(path, err)
	}
	for _, row := range t.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.Write(row.Cells); err != nil {
			return errors.IOError(path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.IOError(path, err)
	}
	return f.Close()
}
