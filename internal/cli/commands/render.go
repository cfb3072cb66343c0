package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/retailflow/pkg/core"
	"github.com/shopspring/decimal"
)

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// statusLabel colors a run or statement status when the terminal supports it.
func statusLabel(status string) string {
	switch status {
	case string(core.RunStatusCompleted), string(core.StatementStatusSuccess), string(core.LoadStatusLoaded):
		return okStyle.Render(status)
	case string(core.RunStatusFailed): // core.StatementStatusFailed has the same value
		return failedStyle.Render(status)
	default:
		return mutedStyle.Render(status)
	}
}

// renderGrid writes a go-pretty table followed by a row count.
func renderGrid(w io.Writer, title string, cols []string, rows [][]string) {
	if title != "" {
		_, _ = fmt.Fprintln(w, title)
	}
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	t.AppendHeader(header)

	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, v := range r {
			row[i] = v
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(rows))
}

// renderQueryResult renders one batch statement result.
func renderQueryResult(w io.Writer, title string, res core.QueryResult) {
	rows := make([][]string, len(res.Rows))
	for i, r := range res.Rows {
		rows[i] = make([]string, len(r))
		for j, v := range r {
			rows[i][j] = formatValue(v, "")
		}
	}
	renderGrid(w, title, res.Columns, rows)
}

// renderTable renders a result table, formatting values by column type.
func renderTable(w io.Writer, t core.Table) {
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = make([]string, len(r))
		for j, v := range r {
			colType := ""
			if j < len(t.Columns) {
				colType = t.Columns[j].Type
			}
			rows[i][j] = formatValue(v, colType)
		}
	}
	renderGrid(w, t.Name, t.ColumnNames(), rows)
}

func formatValue(v any, colType string) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case *string:
		if val == nil {
			return "NULL"
		}
		return *val
	case []byte:
		return string(val)
	case time.Time:
		if strings.EqualFold(colType, "DATE") {
			return val.Format(time.DateOnly)
		}
		return val.Format(core.TimestampLayout)
	case decimal.Decimal:
		return val.StringFixed(2)
	default:
		return fmt.Sprint(val)
	}
}

// jsonTable is the JSON shape of a rendered result.
type jsonTable struct {
	Name    string   `json:"name,omitempty"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func jsonFromResult(name string, res core.QueryResult) jsonTable {
	return jsonTable{Name: name, Columns: res.Columns, Rows: nonNilRows(res.Rows)}
}

func jsonFromTable(t core.Table) jsonTable {
	return jsonTable{Name: t.Name, Columns: t.ColumnNames(), Rows: nonNilRows(t.Rows)}
}

func nonNilRows(rows [][]any) [][]any {
	if rows == nil {
		return [][]any{}
	}
	return rows
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
