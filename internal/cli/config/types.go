// Package config loads the retailflow CLI configuration from defaults, the
// retailflow.yaml file, RETAILFLOW_* environment variables and flags.
//
// The pipeline sections are defined in internal/config and re-exported here
// via type aliases for convenience.
package config

import (
	intconfig "github.com/leapstack-labs/retailflow/internal/config"
	"github.com/leapstack-labs/retailflow/pkg/core"
)

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = core.TargetConfig

// Section aliases.
type (
	DatasetConfig   = intconfig.DatasetConfig
	WarehouseConfig = intconfig.WarehouseConfig
	BatchConfig     = intconfig.BatchConfig
	AggregateConfig = intconfig.AggregateConfig
	SinkConfig      = intconfig.SinkConfig
)

// Output formats for rendered results.
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// DefaultOutput is the default result format.
const DefaultOutput = OutputTable

// Config holds all CLI configuration options.
type Config struct {
	Target    *TargetConfig   `koanf:"target"`
	Dataset   DatasetConfig   `koanf:"dataset"`
	Warehouse WarehouseConfig `koanf:"warehouse"`
	Batch     BatchConfig     `koanf:"batch"`
	Aggregate AggregateConfig `koanf:"aggregate"`
	Sink      SinkConfig      `koanf:"sink"`
	StatePath string          `koanf:"state_path"`
	Verbose   bool            `koanf:"verbose"`
	Output    string          `koanf:"output"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}
