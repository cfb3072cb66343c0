package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/retailflow/internal/cli"
	"github.com/leapstack-labs/retailflow/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawDataset = "InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country\n" +
	"536365,85123A,WHITE HANGING HEART T-LIGHT HOLDER,6,12/1/2010 8:26,2.55,17850.0,United Kingdom\n" +
	"536365,71053,WHITE METAL LANTERN,6,12/1/2010 8:26,3.39,17850.0,United Kingdom\n" +
	"536366,22633,\"HAND WARMER, UNION JACK\",6,12/1/2010 8:28,1.85,,United Kingdom\n" +
	"536367,84879,ASSORTED COLOUR BIRD ORNAMENT,32,12/2/2010 8:34,1.69,13047.0,United Kingdom\n"

const projectYAML = `
target:
  type: duckdb
  database: warehouse.duckdb
dataset:
  raw_path: data/online_retail.csv
  canonical_path: out/data.csv
batch:
  script: sql/queries.sql
aggregate:
  top_n: 3
state_path: out/state.db
`

// setupProject writes a complete project and returns its config path.
func setupProject(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"retailflow.yaml":        projectYAML,
		"data/online_retail.csv": rawDataset,
		"sql/queries.sql":        script,
	}
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return filepath.Join(dir, "retailflow.yaml")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "retailflow v")
	assert.Contains(t, out, "duckdb")
	assert.Contains(t, out, "postgres")
}

func TestRunCommand(t *testing.T) {
	cfg := setupProject(t, "SELECT COUNT(*) AS loaded_rows FROM retail.online_retail;\n")

	out, err := execute(t, "--config", cfg, "run")
	require.NoError(t, err)

	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "Normalized 4 records")
	assert.Contains(t, out, "loaded_rows")
	assert.Contains(t, out, "total_sales")
	assert.Contains(t, out, "100.82")
	assert.Contains(t, out, "transactions_per_day")
	assert.Contains(t, out, "top_n_products")
	assert.Contains(t, out, "84879")

	dir := filepath.Dir(cfg)
	assert.FileExists(t, filepath.Join(dir, "out", "data.csv"))
	assert.FileExists(t, filepath.Join(dir, "out", "state.db"))
	assert.FileExists(t, filepath.Join(dir, "warehouse.duckdb"))

	// A second run reuses the loaded table.
	out, err = execute(t, "--config", cfg, "-o", "json", "run")
	require.NoError(t, err)

	var report struct {
		RunID  string `json:"run_id"`
		Status string `json:"status"`
		Load   struct {
			Status string `json:"status"`
		} `json:"load"`
		Results []struct {
			Rows [][]any `json:"rows"`
		} `json:"results"`
		Tables []struct {
			Name string `json:"name"`
		} `json:"tables"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, string(core.RunStatusCompleted), report.Status)
	assert.Equal(t, string(core.LoadStatusAlreadyLoaded), report.Load.Status)
	require.Len(t, report.Results, 1)
	assert.EqualValues(t, 4, report.Results[0].Rows[0][0])
	assert.Len(t, report.Tables, 3)

	out, err = execute(t, "--config", cfg, "history")
	require.NoError(t, err)
	assert.Contains(t, out, report.RunID)
	assert.Contains(t, out, "(2 rows)")

	out, err = execute(t, "--config", cfg, "history", report.RunID)
	require.NoError(t, err)
	assert.Contains(t, out, "already_loaded")
	assert.Contains(t, out, "analytics.top_n_products")
}

func TestRunCommand_FailingStatement(t *testing.T) {
	cfg := setupProject(t, "SELECT 1;\nSELECT * FROM missing_table;\nSELECT 3;\n")

	out, err := execute(t, "--config", cfg, "run")
	require.Error(t, err)

	var stmtErr *core.StatementExecutionError
	require.ErrorAs(t, err, &stmtErr)
	assert.Equal(t, 2, stmtErr.Index)
	assert.Contains(t, out, "failed")

	out, err = execute(t, "--config", cfg, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "failed")
}

func TestStepCommands(t *testing.T) {
	cfg := setupProject(t, "SELECT 1;\n")

	out, err := execute(t, "--config", cfg, "normalize")
	require.NoError(t, err)
	assert.Contains(t, out, "Normalized 4 records")

	out, err = execute(t, "--config", cfg, "load")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded")
	assert.Contains(t, out, "retail.online_retail")

	out, err = execute(t, "--config", cfg, "load")
	require.NoError(t, err)
	assert.Contains(t, out, "already loaded")

	out, err = execute(t, "--config", cfg, "query", "SELECT COUNT(DISTINCT InvoiceNo) AS invoices FROM retail.online_retail")
	require.NoError(t, err)
	assert.Contains(t, out, "invoices")
	assert.Contains(t, out, "(1 rows)")

	out, err = execute(t, "--config", cfg, "aggregate", "--sink")
	require.NoError(t, err)
	assert.Contains(t, out, "top_n_products")
	assert.Contains(t, out, "Wrote 3 tables to schema analytics")

	out, err = execute(t, "--config", cfg, "query", "SELECT COUNT(*) AS n FROM analytics.top_n_products")
	require.NoError(t, err)
	assert.Contains(t, out, "3")
}

func TestAggregateCommand_FreshProject(t *testing.T) {
	cfg := setupProject(t, "SELECT 1;\n")
	dir := filepath.Dir(cfg)

	out, err := execute(t, "--config", cfg, "aggregate")
	require.NoError(t, err)
	assert.Contains(t, out, "total_sales")
	assert.Contains(t, out, "100.82")
	assert.Contains(t, out, "84879")
	assert.FileExists(t, filepath.Join(dir, "out", "data.csv"))

	// later runs read the canonical CSV, the raw file is no longer needed
	require.NoError(t, os.Remove(filepath.Join(dir, "data", "online_retail.csv")))
	out, err = execute(t, "--config", cfg, "aggregate")
	require.NoError(t, err)
	assert.Contains(t, out, "100.82")
}

func TestQueryCommand_ScriptFlag(t *testing.T) {
	cfg := setupProject(t, "SELECT 1;\n")
	other := filepath.Join(filepath.Dir(cfg), "sql", "other.sql")
	require.NoError(t, os.WriteFile(other, []byte("SELECT 'a' AS x; SELECT 'b' AS y;"), 0o600))

	out, err := execute(t, "--config", cfg, "query", "--script", other)
	require.NoError(t, err)
	assert.Contains(t, out, "Result 1")
	assert.Contains(t, out, "Result 2")
}

func TestConfigurationError(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "retailflow.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("target:\n  type: postgres\n  host: localhost\n"), 0o600))

	_, err := execute(t, "--config", cfg, "run")

	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "target.database", cfgErr.Key)
	assert.NoFileExists(t, filepath.Join(dir, ".retailflow", "state.db"))
}
