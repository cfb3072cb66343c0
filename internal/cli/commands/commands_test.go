package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/retailflow/pkg/core"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd *cobra.Command
		use string
	}{
		{NewRunCommand(), "run"},
		{NewNormalizeCommand(), "normalize"},
		{NewLoadCommand(), "load"},
		{NewQueryCommand(), "query [sql]"},
		{NewAggregateCommand(), "aggregate"},
		{NewHistoryCommand(), "history [run-id]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.use, tt.cmd.Use)
		assert.NotEmpty(t, tt.cmd.Short, "%s: Short should not be empty", tt.use)
	}

	assert.NotNil(t, NewQueryCommand().Flags().Lookup("script"))
	assert.NotNil(t, NewAggregateCommand().Flags().Lookup("sink"))
	limit := NewHistoryCommand().Flags().Lookup("limit")
	if assert.NotNil(t, limit) {
		assert.Equal(t, "20", limit.DefValue)
	}
}

func TestNewVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("1.2.3")
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	assert.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "retailflow v1.2.3")
	assert.Contains(t, buf.String(), "Store adapters:")
}

func TestFormatValue(t *testing.T) {
	day := time.Date(2010, 12, 1, 0, 0, 0, 0, time.UTC)
	ts := time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC)
	desc := "LANTERN"
	var nilDesc *string

	tests := []struct {
		name    string
		v       any
		colType string
		want    string
	}{
		{"nil", nil, "", "NULL"},
		{"nil string pointer", nilDesc, "TEXT", "NULL"},
		{"string pointer", &desc, "TEXT", "LANTERN"},
		{"bytes", []byte("abc"), "", "abc"},
		{"date column", day, "DATE", "2010-12-01"},
		{"timestamp", ts, "TIMESTAMP", "2010-12-01 08:26:00"},
		{"decimal", decimal.RequireFromString("14"), "NUMERIC(26,2)", "14.00"},
		{"int", int64(42), "BIGINT", "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.v, tt.colType))
		})
	}
}

func TestRenderTable(t *testing.T) {
	buf := new(bytes.Buffer)
	renderTable(buf, core.Table{
		Name: "top_n_products",
		Columns: []core.ColumnDef{
			{Name: "stock_code", Type: "VARCHAR"},
			{Name: "total_sales", Type: "NUMERIC(26,2)"},
		},
		Rows: [][]any{
			{"A", decimal.RequireFromString("9")},
			{"B", decimal.RequireFromString("5")},
		},
	})

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "top_n_products\n"))
	assert.Contains(t, out, "stock_code")
	assert.Contains(t, out, "9.00")
	assert.Contains(t, out, "(2 rows)")
}

func TestRenderQueryResult_Empty(t *testing.T) {
	buf := new(bytes.Buffer)
	renderQueryResult(buf, "", core.QueryResult{Columns: []string{"n"}})
	assert.Equal(t, "(0 rows)\n", buf.String())
}

func TestJSONShapes(t *testing.T) {
	buf := new(bytes.Buffer)
	err := writeJSON(buf, jsonFromResult("result_1", core.QueryResult{Columns: []string{"n"}}))
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), `"rows": []`)
	assert.Contains(t, buf.String(), `"name": "result_1"`)
}

func TestStatusLabel(t *testing.T) {
	for _, s := range []string{"completed", "failed", "running", "success", "already_loaded"} {
		assert.Contains(t, statusLabel(s), s)
	}
}

func TestAbbreviate(t *testing.T) {
	assert.Equal(t, "short", abbreviate("short", 10))
	assert.Equal(t, "abcdefg...", abbreviate("abcdefghijklmnop", 10))
}

func TestRunDuration(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "-", runDuration(&core.Run{StartedAt: start}))

	done := start.Add(1500 * time.Millisecond)
	assert.Equal(t, "1.5s", runDuration(&core.Run{StartedAt: start, CompletedAt: &done}))
}
