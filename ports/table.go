package ports

import "context"

// Table is a rendered result table: one header row plus string cells.
// Services build tables; writers decide the file format.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string

	// Detail marks per-phrase tables: exported to files, not printed
	Detail bool
}

// Append adds one row; cells beyond the column count are kept as is
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Len returns the number of data rows
func (t Table) Len() int { return len(t.Rows) }

// TableWriter persists result tables
type TableWriter interface {
	WriteTable(ctx context.Context, table Table) error
}

// MultiWriter fans one table out to several writers, stopping at the first error
type MultiWriter []TableWriter

func (m MultiWriter) WriteTable(ctx context.Context, table Table) error {
	for _, w := range m {
		if w == nil {
			continue
		}
		if err := w.WriteTable(ctx, table); err != nil {
			return err
		}
	}
	return nil
}

// SummaryOnly forwards only tables that are not marked Detail
type SummaryOnly struct {
	Next TableWriter
}

func (s SummaryOnly) WriteTable(ctx context.Context, table Table) error {
	if table.Detail || s.Next == nil {
		return nil
	}
	return s.Next.WriteTable(ctx, table)
}
