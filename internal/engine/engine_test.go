package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/retailflow/internal/aggregate"
	"github.com/leapstack-labs/retailflow/internal/batch"
	"github.com/leapstack-labs/retailflow/internal/testutil"
	_ "github.com/leapstack-labs/retailflow/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/retailflow/pkg/adapters/postgres"
	"github.com/leapstack-labs/retailflow/pkg/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawDataset = "InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country\n" +
	"536365,85123A,WHITE HANGING HEART T-LIGHT HOLDER,6,12/1/2010 8:26,2.55,17850.0,United Kingdom\n" +
	"536365,71053,WHITE METAL LANTERN,6,12/1/2010 8:26,3.39,17850.0,United Kingdom\n" +
	"536366,22633,\"HAND WARMER, UNION JACK\",6,12/1/2010 8:28,1.85,,United Kingdom\n"

const script = `SELECT COUNT(*) AS n FROM retail.online_retail;
CREATE TEMP TABLE lanterns AS SELECT * FROM retail.online_retail WHERE StockCode = '71053';
SELECT COUNT(DISTINCT InvoiceNo) AS invoices FROM retail.online_retail;`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func newTestEngine(t *testing.T, mutate func(*Config)) *Engine {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		Target:        &core.TargetConfig{Type: "duckdb"},
		RawPath:       writeFile(t, dir, "raw.csv", rawDataset),
		CanonicalPath: filepath.Join(dir, "out", "data.csv"),
		Warehouse:     core.TableRef{Schema: "retail", Name: "online_retail"},
		Script:        writeFile(t, dir, "queries.sql", script),
		Partitions:    2,
		TopN:          2,
		SinkSchema:    "analytics",
		StatePath:     filepath.Join(dir, "state.db"),
		Logger:        testutil.NewTestLogger(t),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func count(t *testing.T, e *Engine, query string) int64 {
	t.Helper()
	rows, err := e.db.Query(context.Background(), query)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()
	require.True(t, rows.Next())
	var n int64
	require.NoError(t, rows.Scan(&n))
	return n
}

func TestNew_Defaults(t *testing.T) {
	e, err := New(Config{
		Warehouse: core.TableRef{Schema: "retail", Name: "online_retail"},
		StatePath: filepath.Join(t.TempDir(), "state.db"),
	})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	assert.Equal(t, "duckdb", e.dbConfig.Type)
	assert.Equal(t, batch.SplitNaive, e.cfg.SplitMode)
	assert.False(t, e.dbConnected, "connection is lazy")
}

func TestNew_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantKey string
	}{
		{
			name:    "postgres without host",
			cfg:     Config{Target: &core.TargetConfig{Type: "postgres", Database: "retail", User: "u", Password: "p"}},
			wantKey: "target.host",
		},
		{
			name:    "unknown adapter",
			cfg:     Config{Target: &core.TargetConfig{Type: "oracle"}},
			wantKey: "target.type",
		},
		{
			name:    "bad warehouse table",
			cfg:     Config{Warehouse: core.TableRef{Schema: "retail", Name: "online retail"}},
			wantKey: "warehouse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statePath := filepath.Join(t.TempDir(), "state.db")
			tt.cfg.StatePath = statePath

			_, err := New(tt.cfg)

			var cfgErr *core.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantKey, cfgErr.Key)
			assert.NoFileExists(t, statePath, "configuration is validated before anything is opened")
		})
	}
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	report, err := e.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, core.RunStatusCompleted, report.Run.Status)
	assert.NotNil(t, report.Run.CompletedAt)
	assert.Equal(t, 3, report.Records)
	assert.Equal(t, core.LoadStatusLoaded, report.Load.Status)
	assert.Len(t, report.Load.Fingerprint, 16)

	require.Len(t, report.Results, 2, "the CREATE statement contributes no result")
	assert.Equal(t, []string{"n"}, report.Results[0].Columns)
	assert.Equal(t, int64(3), report.Results[0].Rows[0][0])
	assert.Equal(t, []string{"invoices"}, report.Results[1].Columns)
	assert.Equal(t, int64(2), report.Results[1].Rows[0][0])

	require.Len(t, report.Tables, 3)
	assert.Equal(t, aggregate.TableTotalSales, report.Tables[0].Name)
	assert.Equal(t, "46.74", report.Tables[0].Rows[0][0].(decimal.Decimal).String())
	top := report.Tables[2]
	require.Len(t, top.Rows, 2)
	assert.Equal(t, "71053", top.Rows[0][0])
	assert.Equal(t, "85123A", top.Rows[1][0])

	assert.FileExists(t, e.cfg.CanonicalPath)
	assert.Equal(t, int64(3), count(t, e, "SELECT COUNT(*) FROM retail.online_retail"))
	assert.Equal(t, int64(1), count(t, e, "SELECT COUNT(*) FROM analytics.total_sales"))
	assert.Equal(t, int64(1), count(t, e, "SELECT COUNT(*) FROM analytics.transactions_per_day"))
	assert.Equal(t, int64(2), count(t, e, "SELECT COUNT(*) FROM analytics.top_n_products"))

	stmts, err := e.store.ListStatements(ctx, report.Run.ID)
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	for i, s := range stmts {
		assert.Equal(t, i+1, s.Index)
		assert.Equal(t, core.StatementStatusSuccess, s.Status)
	}
	assert.Equal(t, int64(1), stmts[1].RowCount, "CREATE TABLE AS records the rows it wrote")

	load, err := e.store.GetLoad(ctx, report.Run.ID)
	require.NoError(t, err)
	require.NotNil(t, load)
	assert.Equal(t, report.Load.Fingerprint, load.Fingerprint)

	writes, err := e.store.ListSinkWrites(ctx, report.Run.ID)
	require.NoError(t, err)
	assert.Len(t, writes, 3)
}

func TestRun_SecondRunSkipsLoad(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	_, err := e.Run(ctx)
	require.NoError(t, err)

	report, err := e.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, core.LoadStatusAlreadyLoaded, report.Load.Status)
	assert.Equal(t, int64(3), count(t, e, "SELECT COUNT(*) FROM retail.online_retail"))
	assert.Equal(t, int64(2), count(t, e, "SELECT COUNT(*) FROM analytics.top_n_products"), "sink tables are overwritten")

	runs, err := e.store.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRun_WriteCanonical(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.WriteCanonical = true })

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), count(t, e, "SELECT COUNT(*) FROM analytics.sales"))
	assert.Equal(t, int64(1), count(t, e, "SELECT COUNT(*) FROM analytics.sales WHERE CustomerID = '0'"))
	assert.Len(t, report.Tables, 3, "the canonical table is not an aggregation result")

	writes, err := e.store.ListSinkWrites(context.Background(), report.Run.ID)
	require.NoError(t, err)
	assert.Len(t, writes, 4)
}

func TestRun_StatementFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.sql", "SELECT 1;\nSELECT * FROM no_such_table;\nSELECT 3;")
	e := newTestEngine(t, func(c *Config) { c.Script = bad })

	report, err := e.Run(ctx)
	require.Error(t, err)

	var stmtErr *core.StatementExecutionError
	require.ErrorAs(t, err, &stmtErr)
	assert.Equal(t, 2, stmtErr.Index)

	require.NotNil(t, report)
	assert.Equal(t, core.RunStatusFailed, report.Run.Status)
	assert.Contains(t, report.Run.Error, "statement 2")
	assert.Len(t, report.Results, 1, "results before the failure are kept")
	assert.Empty(t, report.Tables, "aggregation never runs")

	stmts, err := e.store.ListStatements(ctx, report.Run.ID)
	require.NoError(t, err)
	require.Len(t, stmts, 2, "statement 3 never runs")
	assert.Equal(t, core.StatementStatusFailed, stmts[1].Status)
	assert.NotEmpty(t, stmts[1].Error)

	writes, err := e.store.ListSinkWrites(ctx, report.Run.ID)
	require.NoError(t, err)
	assert.Empty(t, writes)
}

func TestRun_NormalizationFailure(t *testing.T) {
	dir := t.TempDir()
	raw := writeFile(t, dir, "raw.csv",
		"InvoiceNo,StockCode,Description,Quantity,InvoiceDate,UnitPrice,CustomerID,Country\n"+
			"536365,85123A,HEART,six,12/1/2010 8:26,2.55,17850,United Kingdom\n")
	e := newTestEngine(t, func(c *Config) { c.RawPath = raw })

	report, err := e.Run(context.Background())

	var normErr *core.NormalizationError
	require.ErrorAs(t, err, &normErr)
	assert.Equal(t, core.FieldQuantity, normErr.Field)
	assert.Equal(t, core.RunStatusFailed, report.Run.Status)
	assert.False(t, e.dbConnected, "the store is never touched")
}

func TestRun_WithoutScript(t *testing.T) {
	e := newTestEngine(t, func(c *Config) { c.Script = "" })

	report, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Len(t, report.Tables, 3)
}

func TestSteps_Standalone(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	_, err := e.Normalize(ctx)
	require.NoError(t, err)

	ds, err := e.Canonical()
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())

	outcome, err := e.Load(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, core.LoadStatusLoaded, outcome.Status)

	results, err := e.RunScript(ctx, "SELECT COUNT(*) FROM retail.online_retail")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(3), results[0].Rows[0][0])

	runs, err := e.store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs, "standalone steps are not recorded as runs")
}

func TestSteps_MissingPaths(t *testing.T) {
	e := newTestEngine(t, func(c *Config) {
		c.RawPath = ""
		c.CanonicalPath = ""
		c.Script = ""
	})
	ctx := context.Background()

	tests := []struct {
		name    string
		call    func() error
		wantKey string
	}{
		{"normalize", func() error { _, err := e.Normalize(ctx); return err }, "dataset.raw_path"},
		{"canonical", func() error { _, err := e.Canonical(); return err }, "dataset.canonical_path"},
		{"load", func() error { _, err := e.Load(ctx, nil); return err }, "dataset.canonical_path"},
		{"batch", func() error { _, err := e.RunBatch(ctx); return err }, "batch.script"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfgErr *core.ConfigurationError
			require.ErrorAs(t, tt.call(), &cfgErr)
			assert.Equal(t, tt.wantKey, cfgErr.Key)
		})
	}
}
