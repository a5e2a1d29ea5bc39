package excel

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"burtrend/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWorkbookWritesOneSheetPerTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.xlsx")
	wb, err := NewWorkbook(path)
	require.NoError(t, err)
	defer wb.Close()

	ctx := context.Background()
	surge := ports.Table{Name: "surge", Columns: []string{"artist", "rate"}}
	surge.Append("Art Pepper", "0.25")
	require.NoError(t, wb.WriteTable(ctx, surge))

	again := ports.Table{Name: "surge", Columns: []string{"x"}}
	require.NoError(t, wb.WriteTable(ctx, again))
	require.NoError(t, wb.Save())

	assert.Equal(t, []string{"surge", "surge (2)"}, wb.Sheets())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"surge", "surge (2)"}, f.GetSheetList())
	rows, err := f.GetRows("surge")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"artist", "rate"}, rows[0])
	assert.Equal(t, []string{"Art Pepper", "0.25"}, rows[1])
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "a_b_c", SheetName("a/b:c"))
	assert.Equal(t, "Table", SheetName("  "))
	long := SheetName(strings.Repeat("x", 40))
	assert.Len(t, long, maxSheetName)
}

func TestCellValue(t *testing.T) {
	assert.Equal(t, 1.5, cellValue("1.5"))
	assert.Equal(t, "NaN", cellValue("NaN"))
	assert.Equal(t, "Art Pepper", cellValue("Art Pepper"))
}
