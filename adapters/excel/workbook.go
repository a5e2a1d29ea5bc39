// Package excel exports result tables to a single XLSX workbook, one sheet
// per table.
package excel

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"burtrend/internal/errors"
	"burtrend/internal/logger"
	"burtrend/ports"

	"github.com/xuri/excelize/v2"
)

const (
	defaultSheet  = "Sheet1"
	maxSheetName  = 31
	invalidInName = `:\/?*[]`
)

// Workbook collects tables in memory until Save is called
type Workbook struct {
	mu     sync.Mutex
	path   string
	file   *excelize.File
	bold   int
	sheets []string
}

// NewWorkbook prepares a workbook that will be written to path
func NewWorkbook(path string) (*Workbook, error) {
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "create header style")
	}
	return &Workbook{path: path, file: f, bold: bold}, nil
}

// Path returns the destination file
func (w *Workbook) Path() string { return w.path }

// Sheets returns the sheet names added so far, in order
func (w *Workbook) Sheets() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.sheets...)
}

// WriteTable implements ports.TableWriter by adding the table as a new sheet.
// Cells that parse as finite numbers are stored as numbers.
func (w *Workbook) WriteTable(ctx context.Context, table ports.Table) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	sheet := w.uniqueName(SheetName(table.Name))
	if _, err := w.file.NewSheet(sheet); err != nil {
		return errors.Wrapf(err, "add sheet %s", sheet)
	}

	for c, h := range table.Columns {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		if err := w.file.SetCellValue(sheet, cell, h); err != nil {
			return errors.Wrapf(err, "write header of %s", sheet)
		}
	}
	if len(table.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(table.Columns), 1)
		if err := w.file.SetCellStyle(sheet, "A1", last, w.bold); err != nil {
			return errors.Wrapf(err, "style header of %s", sheet)
		}
		if err := w.file.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return errors.Wrapf(err, "freeze header of %s", sheet)
		}
	}

	for r, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := w.file.SetCellValue(sheet, cell, cellValue(v)); err != nil {
				return errors.Wrapf(err, "write row %d of %s", r+1, sheet)
			}
		}
	}

	w.sheets = append(w.sheets, sheet)
	return nil
}

// Save writes the workbook. The default empty sheet is dropped once at least
// one table was added.
func (w *Workbook) Save() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.sheets) > 0 && !w.has(defaultSheet) {
		if err := w.file.DeleteSheet(defaultSheet); err != nil {
			return errors.Wrap(err, "drop default sheet")
		}
		w.file.SetActiveSheet(0)
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return errors.IOError(filepath.Dir(w.path), err)
	}
	if err := w.file.SaveAs(w.path); err != nil {
		return errors.IOError(w.path, err)
	}
	logger.Info("workbook written", "path", w.path, "sheets", len(w.sheets))
	return nil
}

// Close releases the in-memory workbook
func (w *Workbook) Close() error {
	return w.file.Close()
}

func (w *Workbook) has(name string) bool {
	for _, s := range w.sheets {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

func (w *Workbook) uniqueName(name string) string {
	if !w.has(name) {
		return name
	}
	for i := 2; ; i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		candidate := truncate(name, maxSheetName-len(suffix)) + suffix
		if !w.has(candidate) {
			return candidate
		}
	}
}

// SheetName maps a table name onto a valid worksheet name
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidInName, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")
	if name == "" {
		name = "Table"
	}
	return truncate(name, maxSheetName)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func cellValue(s string) interface{} {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return s
	}
	return v
}
