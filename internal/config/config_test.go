package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/retailflow/pkg/adapter"
	_ "github.com/leapstack-labs/retailflow/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/retailflow/pkg/adapters/postgres"
	"github.com/leapstack-labs/retailflow/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postgresTarget() *core.TargetConfig {
	return &core.TargetConfig{
		Type:     "postgres",
		Host:     "localhost",
		Port:     5432,
		Database: "retail",
		User:     "etl",
		Password: "secret",
	}
}

func TestValidateTarget(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*core.TargetConfig)
		target  *core.TargetConfig
		wantKey string
	}{
		{name: "valid postgres", target: postgresTarget()},
		{name: "duckdb in memory", target: &core.TargetConfig{Type: "duckdb"}},
		{name: "type is case insensitive", target: &core.TargetConfig{Type: "DuckDB"}},
		{name: "nil target", wantKey: "target"},
		{name: "missing type", target: &core.TargetConfig{}, wantKey: "target.type"},
		{name: "missing host", target: postgresTarget(), mutate: func(c *core.TargetConfig) { c.Host = "" }, wantKey: "target.host"},
		{name: "missing port", target: postgresTarget(), mutate: func(c *core.TargetConfig) { c.Port = 0 }, wantKey: "target.port"},
		{name: "missing database", target: postgresTarget(), mutate: func(c *core.TargetConfig) { c.Database = "" }, wantKey: "target.database"},
		{name: "missing user", target: postgresTarget(), mutate: func(c *core.TargetConfig) { c.User = "" }, wantKey: "target.user"},
		{name: "missing password", target: postgresTarget(), mutate: func(c *core.TargetConfig) { c.Password = "" }, wantKey: "target.password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.mutate != nil {
				tt.mutate(tt.target)
			}
			err := ValidateTarget(tt.target)
			if tt.wantKey == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *core.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantKey, cfgErr.Key)
		})
	}
}

func TestValidateTarget_UnknownType(t *testing.T) {
	err := ValidateTarget(&core.TargetConfig{Type: "oracle"})

	var unknown *adapter.UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "oracle", unknown.Type)
	assert.Contains(t, unknown.Available, "duckdb")
}

func TestApplyTargetDefaults(t *testing.T) {
	pg := &core.TargetConfig{Type: "postgres"}
	ApplyTargetDefaults(pg)
	assert.Equal(t, DefaultPostgresPort, pg.Port)

	empty := &core.TargetConfig{}
	ApplyTargetDefaults(empty)
	assert.Equal(t, "duckdb", empty.Type)
	assert.Zero(t, empty.Port)

	ApplyTargetDefaults(nil)
}

func TestSectionValidation(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantKey string
	}{
		{"warehouse ok", WarehouseConfig{Schema: "retail", Table: "online_retail"}.Validate(), ""},
		{"warehouse without schema", WarehouseConfig{Table: "online_retail"}.Validate(), ""},
		{"warehouse bad schema", WarehouseConfig{Schema: "re tail", Table: "t"}.Validate(), "warehouse.schema"},
		{"warehouse missing table", WarehouseConfig{Schema: "retail"}.Validate(), "warehouse.table"},
		{"warehouse bad table", WarehouseConfig{Table: "t;drop"}.Validate(), "warehouse.table"},
		{"batch default", BatchConfig{}.Validate(), ""},
		{"batch quoted", BatchConfig{SplitMode: "quoted"}.Validate(), ""},
		{"batch unknown mode", BatchConfig{SplitMode: "smart"}.Validate(), "batch.split_mode"},
		{"aggregate ok", AggregateConfig{Partitions: 4, TopN: 5}.Validate(), ""},
		{"aggregate negative partitions", AggregateConfig{Partitions: -1}.Validate(), "aggregate.partitions"},
		{"aggregate negative top_n", AggregateConfig{TopN: -3}.Validate(), "aggregate.top_n"},
		{"sink ok", SinkConfig{Schema: "analytics"}.Validate(), ""},
		{"sink bad schema", SinkConfig{Schema: "1abc"}.Validate(), "sink.schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantKey == "" {
				assert.NoError(t, tt.err)
				return
			}
			var cfgErr *core.ConfigurationError
			require.True(t, errors.As(tt.err, &cfgErr), "got %v", tt.err)
			assert.Equal(t, tt.wantKey, cfgErr.Key)
		})
	}
}

func TestWarehouseTableRef(t *testing.T) {
	ref := WarehouseConfig{Schema: "retail", Table: "online_retail"}.TableRef()
	assert.Equal(t, "retail.online_retail", ref.String())
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	assert.Empty(t, FindProjectRoot(nested))

	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileNameAlt), []byte("verbose: true\n"), 0o600))
	assert.Equal(t, root, FindProjectRoot(nested))
	assert.Equal(t, filepath.Join(root, ConfigFileNameAlt), FindConfigFile(root))

	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("verbose: true\n"), 0o600))
	assert.Equal(t, filepath.Join(root, ConfigFileName), FindConfigFile(root), ".yaml wins over .yml")
}
