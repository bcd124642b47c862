// Package table renders run results and summaries as terminal tables.
package table

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
)

// Column is a table column. Numeric columns are right aligned.
type Column struct {
	Header  string
	Numeric bool
}

// Table is one titled section of run output.
type Table struct {
	Title   string
	Columns []Column
	Rows    [][]string
	// Footer holds per-column totals. Empty means no footer line.
	Footer []string
}

// Renderer draws run tables.
type Renderer interface {
	Start(ctx context.Context) error
	Stop() error
	Render(t Table) string
	RenderTo(w io.Writer, t Table)
}

type renderer struct {
	log    logrus.FieldLogger
	colors *ColorHelper
}

// NewRenderer creates a table renderer. Titles are colored when the terminal allows it.
func NewRenderer(log logrus.FieldLogger) Renderer {
	return &renderer{
		log:    log.WithField("component", "table.renderer"),
		colors: NewColorHelper(),
	}
}

func (r *renderer) Start(_ context.Context) error {
	r.log.Debug("table renderer started")

	return nil
}

func (r *renderer) Stop() error {
	r.log.Debug("table renderer stopped")

	return nil
}

func (r *renderer) Render(t Table) string {
	buf := &bytes.Buffer{}
	r.RenderTo(buf, t)

	return buf.String()
}

// RenderTo writes the title, then the table. Short rows are padded to the
// column count and long rows are cut.
func (r *renderer) RenderTo(w io.Writer, t Table) {
	if t.Title != "" {
		_, _ = io.WriteString(w, "\n"+r.colors.Header("▸ "+t.Title)+"\n\n")
	}

	headers := make([]string, len(t.Columns))
	alignment := make([]int, len(t.Columns))

	for i, col := range t.Columns {
		headers[i] = strings.ToUpper(col.Header)
		alignment[i] = tablewriter.ALIGN_LEFT

		if col.Numeric {
			alignment[i] = tablewriter.ALIGN_RIGHT
		}
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetColumnAlignment(alignment)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("│")
	table.SetRowSeparator("─")
	table.SetHeaderLine(true)
	table.SetBorder(true)
	table.SetTablePadding(" ")

	if len(t.Footer) > 0 {
		table.SetFooter(fitRow(t.Footer, len(t.Columns)))
		table.SetFooterAlignment(tablewriter.ALIGN_LEFT)
	}

	for _, row := range t.Rows {
		table.Append(fitRow(row, len(t.Columns)))
	}

	table.Render()

	r.log.WithFields(logrus.Fields{
		"title": t.Title,
		"rows":  len(t.Rows),
	}).Debug("rendered table")
}

func fitRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)

	return out
}

var _ Renderer = (*renderer)(nil)
