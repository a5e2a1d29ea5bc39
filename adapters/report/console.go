package report

import (
	"context"
	"fmt"
	"io"

	"burtrend/ports"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

// Console prints tables to a terminal, truncated to the first top rows
// when top > 0.
type Console struct {
	w   io.Writer
	top int
}

func NewConsole(w io.Writer, top int) *Console {
	return &Console{w: w, top: top}
}

// WriteTable implements ports.TableWriter
func (c *Console) WriteTable(ctx context.Context, t ports.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rows := t.Rows
	hidden := 0
	if c.top > 0 && len(rows) > c.top {
		hidden = len(rows) - c.top
		rows = rows[:c.top]
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(t.Columns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	if _, err := fmt.Fprintln(c.w, titleStyle.Render(t.Name)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(c.w, tbl.Render()); err != nil {
		return err
	}
	if hidden > 0 {
		if _, err := fmt.Fprintln(c.w, mutedStyle.Render(fmt.Sprintf("... %d more rows", hidden))); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(c.w)
	return err
}

// Summary prints a bold title followed by one line per highlight
func (c *Console) Summary(title string, lines []string) error {
	if _, err := fmt.Fprintln(c.w, titleStyle.Render(title)); err != nil {
		return err
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(c.w, "  %s\n", l); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(c.w)
	return err
}
