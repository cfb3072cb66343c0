// Package config provides the pipeline configuration sections shared by the
// CLI and the engine, with their defaults and validation.
package config

import "github.com/leapstack-labs/retailflow/pkg/core"

// DatasetConfig locates the raw input and the canonical CSV written by normalize.
type DatasetConfig struct {
	RawPath       string `koanf:"raw_path"`
	CanonicalPath string `koanf:"canonical_path"`
}

// WarehouseConfig names the table canonical records are loaded into.
type WarehouseConfig struct {
	Schema string `koanf:"schema"`
	Table  string `koanf:"table"`
}

// TableRef returns the warehouse table reference.
func (w WarehouseConfig) TableRef() core.TableRef {
	return core.TableRef{Schema: w.Schema, Name: w.Table}
}

// BatchConfig holds the SQL script executed after loading.
type BatchConfig struct {
	Script    string `koanf:"script"`
	SplitMode string `koanf:"split_mode"` // naive, quoted
}

// AggregateConfig tunes the aggregation engine.
type AggregateConfig struct {
	Partitions int `koanf:"partitions"` // 0 = one per CPU
	TopN       int `koanf:"top_n"`
}

// SinkConfig controls where result tables are written.
type SinkConfig struct {
	Schema         string `koanf:"schema"`
	WriteCanonical bool   `koanf:"write_canonical"`
}
