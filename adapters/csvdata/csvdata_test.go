package csvdata

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"burtrend/internal/errors"
	"burtrend/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `id;seg_id;swing_ratios;onset
CharlieParker_Confirmation;10;1.5;0.1
CharlieParker_Confirmation;2;1.2;0.2
CharlieParker_Confirmation;10;1.7;0.3
CharlieParker_Confirmation;2;1.3;0.4
ArtPepper_Stardust;1;2.0;0.5
CharlieParker_Confirmation;2;1.4;0.6
`

func parse(t *testing.T, src string) *Table {
	t.Helper()
	tbl, err := ParseTable(context.Background(), strings.NewReader(src), DefaultDelimiter)
	require.NoError(t, err)
	return tbl
}

func TestPhrasesGroupingAndOrder(t *testing.T) {
	phrases, err := parse(t, sample).Phrases()
	require.NoError(t, err)
	require.Len(t, phrases, 3)

	assert.Equal(t, "ArtPepper_Stardust", phrases[0].Key().SoloID)
	assert.Equal(t, "Art Pepper", phrases[0].Artist())

	// numeric segment order: 2 before 10
	assert.Equal(t, "2", phrases[1].Key().SegmentID)
	assert.Equal(t, []float64{1.2, 1.3, 1.4}, phrases[1].Values())
	assert.Equal(t, "10", phrases[2].Key().SegmentID)
	assert.Equal(t, []float64{1.5, 1.7}, phrases[2].Values())
	assert.Equal(t, "Charlie Parker", phrases[2].Artist())
}

func TestPhrasesErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
	}{
		{"missing column", "id;seg_id\nA_x;1\n", `missing required column "swing_ratios"`},
		{"bad value", "id;seg_id;swing_ratios\nA_x;1;1.2\nA_x;1;abc\n", "line 3"},
		{"non-finite value", "id;seg_id;swing_ratios\nA_x;1;NaN\n", "line 2"},
		{"short row", "id;seg_id;swing_ratios\nA_x;1\n", "line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.src).Phrases()
			require.Error(t, err)
			assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestEmptyDataset(t *testing.T) {
	_, err := parse(t, "id;seg_id;swing_ratios\n").Phrases()
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	_, err = ParseTable(context.Background(), strings.NewReader(""), DefaultDelimiter)
	assert.Error(t, err)
}

func TestCleanKeepsLongPhrases(t *testing.T) {
	cleaned, stats, err := parse(t, sample).Clean(3)
	require.NoError(t, err)

	assert.Equal(t, 6, stats.OriginalRows)
	assert.Equal(t, 3, stats.CleanedRows)
	assert.Equal(t, 3, stats.OriginalPhrases)
	assert.Equal(t, 1, stats.CleanedPhrases)
	assert.Equal(t, 2, stats.PhrasesRemoved())
	assert.InDelta(t, 50.0, stats.RowsRemovedPct(), 1e-9)

	// extra columns survive
	assert.Equal(t, []string{"id", "seg_id", "swing_ratios", "onset"}, cleaned.Header)
	for _, row := range cleaned.Rows {
		assert.Equal(t, "2", row.Cells[1])
		assert.Len(t, row.Cells, 4)
	}

	_, _, err = parse(t, sample).Clean(0)
	assert.Error(t, err)
}

func TestReaderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "raw.csv")
	require.NoError(t, os.WriteFile(raw, []byte(sample), 0o644))

	ctx := context.Background()
	tbl, err := NewReader(raw).ReadTable(ctx)
	require.NoError(t, err)
	cleaned, _, err := tbl.Clean(2)
	require.NoError(t, err)

	out := filepath.Join(dir, "nested", "filtered.csv")
	require.NoError(t, cleaned.Save(ctx, out, DefaultDelimiter))

	phrases, err := NewReader(out).Load(ctx)
	require.NoError(t, err)
	require.Len(t, phrases, 2)
	assert.Equal(t, 3, phrases[0].Len())
}

func TestReaderMissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "nope.csv")).Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestReaderDelimiter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comma.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,seg_id,swing_ratios\nA_x,1,1.5\n"), 0o644))

	phrases, err := NewReader(path).WithDelimiter(',').Load(context.Background())
	require.NoError(t, err)
	require.Len(t, phrases, 1)
	assert.Equal(t, []float64{1.5}, phrases[0].Values())
}

func TestWriterWritesTable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w := NewWriter(dir)

	table := ports.Table{Name: "surge results", Columns: []string{"artist", "count"}}
	table.Append("Art Pepper", "3")
	require.NoError(t, w.WriteTable(context.Background(), table))

	data, err := os.ReadFile(w.PathFor(table.Name))
	require.NoError(t, err)
	assert.Equal(t, "artist,count\nArt Pepper,3\n", string(data))
	assert.Equal(t, filepath.Join(dir, "surge_results.csv"), w.PathFor(table.Name))

	assert.Error(t, w.WriteTable(context.Background(), ports.Table{}))
}
