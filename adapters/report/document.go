// Package report renders run results for people: a Markdown/HTML summary,
// console tables and per-performer histograms.
package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"burtrend/internal/errors"
	"burtrend/ports"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Document accumulates a Markdown summary of one run
type Document struct {
	mu    sync.Mutex
	title string
	buf   bytes.Buffer
}

func NewDocument(title string) *Document {
	d := &Document{title: title}
	fmt.Fprintf(&d.buf, "# %s\n\n", title)
	return d
}

func (d *Document) Heading(level int, text string) {
	if level < 1 {
		level = 1
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(&d.buf, "%s %s\n\n", strings.Repeat("#", level), text)
}

func (d *Document) Paragraph(format string, args ...interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(&d.buf, format, args...)
	d.buf.WriteString("\n\n")
}

func (d *Document) Bullets(items ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, item := range items {
		fmt.Fprintf(&d.buf, "- %s\n", item)
	}
	d.buf.WriteString("\n")
}

// WriteTable implements ports.TableWriter by appending a Markdown table
func (d *Document) WriteTable(ctx context.Context, table ports.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	fmt.Fprintf(&d.buf, "## %s\n\n", table.Name)
	if len(table.Columns) == 0 {
		return nil
	}
	writeRow(&d.buf, table.Columns)
	sep := make([]string, len(table.Columns))
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(&d.buf, sep)
	for _, row := range table.Rows {
		cells := make([]string, len(table.Columns))
		copy(cells, row)
		writeRow(&d.buf, cells)
	}
	d.buf.WriteString("\n")
	return nil
}

func writeRow(buf *bytes.Buffer, cells []string) {
	buf.WriteString("|")
	for _, c := range cells {
		buf.WriteString(" ")
		buf.WriteString(strings.ReplaceAll(c, "|", `\|`))
		buf.WriteString(" |")
	}
	buf.WriteString("\n")
}

// Markdown returns the document source
func (d *Document) Markdown() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.buf.Bytes()...)
}

// HTML renders the document as a complete HTML page
func (d *Document) HTML() []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{
		Title: d.title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML(d.Markdown(), p, r)
}

// Save writes HTML when path ends in .html or .htm, Markdown otherwise
func (d *Document) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.IOError(filepath.Dir(path), err)
	}
	data := d.Markdown()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		data = d.HTML()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.IOError(path, err)
	}
	return nil
}
