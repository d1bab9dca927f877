package table

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var headerCaser = cases.Title(language.English)

// Render draws headers and rows as a rounded terminal table. Column names
// are title-cased with underscores expanded ("global_key" → "Global Key").
func Render(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, name := range headers {
		header[i] = headerCaser.String(strings.ReplaceAll(name, "_", " "))
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(headers))
	for i := range headers {
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// RenderAdapter draws the first limit rows of an adapter. A non-positive
// limit renders everything.
func RenderAdapter(adapter Adapter, limit int) (string, error) {
	columns, err := adapter.Columns()
	if err != nil {
		return "", err
	}
	rows, err := adapter.Rows()
	if err != nil {
		return "", err
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	rendered := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(columns))
		for j, column := range columns {
			if value := row[column]; value != nil {
				cells[j] = toCell(value)
			}
		}
		rendered[i] = cells
	}
	return Render(columns, rendered), nil
}

func toCell(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		cell := fmt.Sprint(v)
		cell = strings.ReplaceAll(cell, "\n", " ")
		return strings.TrimSpace(cell)
	}
}
