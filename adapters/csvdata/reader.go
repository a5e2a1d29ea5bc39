// Package csvdata reads the phrase BUR dataset and writes result tables as
// delimited text.
package csvdata

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"burtrend/domain/core"
	"burtrend/domain/phrase"
	"burtrend/internal/errors"
	"burtrend/internal/logger"
)

// Dataset column names
const (
	ColumnID      = "id"
	ColumnSegment = "seg_id"
	ColumnBUR     = "swing_ratios"
)

// DefaultDelimiter is the separator of the raw and filtered dataset files
const DefaultDelimiter = ';'

// Row is one data record together with its 1-based line number in the file
type Row struct {
	Line  int
	Cells []string
}

// Table is the raw dataset: the header and every data row, untouched.
// Cleaning works on tables so that extra columns survive a round trip.
type Table struct {
	Header []string
	Rows   []Row
}

// Reader loads a delimited dataset file
type Reader struct {
	path      string
	delimiter rune
}

// NewReader creates a reader for path using the default ';' delimiter
func NewReader(path string) *Reader {
	return &Reader{path: path, delimiter: DefaultDelimiter}
}

// WithDelimiter returns a copy of the reader using delim
func (r *Reader) WithDelimiter(delim rune) *Reader {
	cp := *r
	cp.delimiter = delim
	return &cp
}

// Path returns the file the reader loads
func (r *Reader) Path() string { return r.path }

// ReadTable reads the whole file into memory
func (r *Reader) ReadTable(ctx context.Context) (*Table, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("dataset " + r.path)
		}
		return nil, errors.IOError(r.path, err)
	}
	defer f.Close()

	t, err := ParseTable(ctx, f, r.delimiter)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", r.path)
	}
	logger.Debug("dataset read", "path", r.path, "rows", len(t.Rows), "columns", len(t.Header))
	return t, nil
}

// Load reads the file and groups it into phrases. It satisfies ports.PhraseSource.
func (r *Reader) Load(ctx context.Context) ([]phrase.Phrase, error) {
	t, err := r.ReadTable(ctx)
	if err != nil {
		return nil, err
	}
	phrases, err := t.Phrases()
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", r.path)
	}
	logger.Info("phrases loaded", "path", r.path, "phrases", len(phrases), "values", len(t.Rows))
	return phrases, nil
}

// ParseTable reads delimited records from src. The first record is the header.
func ParseTable(ctx context.Context, src io.Reader, delim rune) (*Table, error) {
	cr := csv.NewReader(src)
	cr.Comma = delim
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.InvalidInput("empty file: missing header row")
	}
	if err != nil {
		return nil, errors.InvalidInputf("malformed header: %v", err)
	}

	t := &Table{Header: make([]string, len(header))}
	for i, h := range header {
		t.Header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.InvalidInputf("malformed record: %v", err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		t.Rows = append(t.Rows, Row{Line: line, Cells: rec})
	}
	return t, nil
}

// Column returns the index of the named column or -1
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

type columns struct {
	id, segment, bur int
}

func (t *Table) requireColumns(names ...string) (map[string]int, error) {
	idx := make(map[string]int, len(names))
	for _, name := range names {
		i := t.Column(name)
		if i < 0 {
			return nil, errors.InvalidInputf("missing required column %q", name)
		}
		idx[name] = i
	}
	return idx, nil
}

func (t *Table) keyColumns() (columns, error) {
	idx, err := t.requireColumns(ColumnID, ColumnSegment, ColumnBUR)
	if err != nil {
		return columns{}, err
	}
	return columns{id: idx[ColumnID], segment: idx[ColumnSegment], bur: idx[ColumnBUR]}, nil
}

func cell(row Row, i int, name string) (string, error) {
	if i >= len(row.Cells) {
		return "", errors.InvalidInputf("line %d: missing %s value", row.Line, name)
	}
	return strings.TrimSpace(row.Cells[i]), nil
}

func (c columns) key(row Row) (phrase.Key, error) {
	id, err := cell(row, c.id, ColumnID)
	if err != nil {
		return phrase.Key{}, err
	}
	seg, err := cell(row, c.segment, ColumnSegment)
	if err != nil {
		return phrase.Key{}, err
	}
	if id == "" {
		return phrase.Key{}, errors.InvalidInputf("line %d: empty %s", row.Line, ColumnID)
	}
	return phrase.Key{SoloID: id, SegmentID: seg}, nil
}

// Phrases groups the rows into phrases ordered by key, preserving row order
// within each phrase.
func (t *Table) Phrases() ([]phrase.Phrase, error) {
	cols, err := t.keyColumns()
	if err != nil {
		return nil, err
	}

	b := phrase.NewBuilder()
	for _, row := range t.Rows {
		key, err := cols.key(row)
		if err != nil {
			return nil, err
		}
		raw, err := cell(row, cols.bur, ColumnBUR)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.InvalidInputf("line %d: invalid %s value %q", row.Line, ColumnBUR, raw)
		}
		b.Add(key, v)
	}

	phrases := b.Phrases()
	if len(phrases) == 0 {
		return nil, errors.WithCode(errors.CodeInvalidInput, core.ErrEmptyDataset)
	}
	return phrases, nil
}
