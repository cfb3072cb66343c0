package config

import "github.com/leapstack-labs/retailflow/pkg/core"

// Default configuration values.
const (
	DefaultTargetType      = "duckdb"
	DefaultPostgresPort    = 5432
	DefaultWarehouseSchema = "retail"
	DefaultWarehouseTable  = "online_retail"
	DefaultSplitMode       = "naive"
	DefaultTopN            = 10
	DefaultSinkSchema      = "analytics"
	DefaultStatePath       = ".retailflow/state.db"
	DefaultCanonicalPath   = ".retailflow/data.csv"
)

// Defaults returns the default values keyed by their config path.
func Defaults() map[string]any {
	return map[string]any{
		"target.type":            DefaultTargetType,
		"dataset.canonical_path": DefaultCanonicalPath,
		"warehouse.schema":       DefaultWarehouseSchema,
		"warehouse.table":        DefaultWarehouseTable,
		"batch.split_mode":       DefaultSplitMode,
		"aggregate.partitions":   0,
		"aggregate.top_n":        DefaultTopN,
		"sink.schema":            DefaultSinkSchema,
		"sink.write_canonical":   false,
		"state_path":             DefaultStatePath,
		"verbose":                false,
	}
}

// ApplyTargetDefaults applies default values to a TargetConfig based on the target type.
func ApplyTargetDefaults(t *core.TargetConfig) {
	if t == nil {
		return
	}
	if t.Type == "" {
		t.Type = DefaultTargetType
	}
	if t.Type == "postgres" && t.Port == 0 {
		t.Port = DefaultPostgresPort
	}
}
