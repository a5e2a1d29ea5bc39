package csvdata

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"burtrend/internal/errors"
	"burtrend/internal/logger"
	"burtrend/ports"
)

// Writer stores result tables as comma-separated files under one directory
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir. The directory is created on the
// first write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// PathFor returns the file a table with the given name is written to
func (w *Writer) PathFor(name string) string {
	return filepath.Join(w.dir, fileName(name)+".csv")
}

// WriteTable implements ports.TableWriter
func (w *Writer) WriteTable(ctx context.Context, table ports.Table) error {
	if table.Name == "" {
		return errors.ValidationError("table name is required")
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return errors.IOError(w.dir, err)
	}

	path := w.PathFor(table.Name)
	f, err := os.Create(path)
	if err != nil {
		return errors.IOError(path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(table.Columns); err != nil {
		return errors.IOError(path, err)
	}
	for _, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := cw.Write(row); err != nil {
			return errors.IOError(path, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.IOError(path, err)
	}

	logger.Info("table written", "path", path, "rows", table.Len())
	return f.Close()
}

func fileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
}
