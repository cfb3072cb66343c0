package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/retailflow/internal/batch"
	"github.com/leapstack-labs/retailflow/pkg/adapter"
	"github.com/leapstack-labs/retailflow/pkg/core"
)

// ErrRequired is wrapped by a ConfigurationError for a missing key.
var ErrRequired = errors.New("is required")

// ValidateTarget checks that the target names a registered adapter and, for
// network stores, carries every connection key.
func ValidateTarget(t *core.TargetConfig) error {
	if t == nil {
		return &core.ConfigurationError{Key: "target", Err: ErrRequired}
	}
	if t.Type == "" {
		return &core.ConfigurationError{Key: "target.type", Err: ErrRequired}
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &core.ConfigurationError{
			Key: "target.type",
			Err: &adapter.UnknownAdapterError{Type: t.Type, Available: adapter.ListAdapters()},
		}
	}

	if strings.ToLower(t.Type) != "postgres" {
		return nil
	}
	required := []struct {
		key string
		ok  bool
	}{
		{"target.host", t.Host != ""},
		{"target.port", t.Port > 0},
		{"target.database", t.Database != ""},
		{"target.user", t.User != ""},
		{"target.password", t.Password != ""},
	}
	for _, r := range required {
		if !r.ok {
			return &core.ConfigurationError{Key: r.key, Err: ErrRequired}
		}
	}
	return nil
}

// Validate checks the warehouse identifiers.
func (w WarehouseConfig) Validate() error {
	if w.Schema != "" && !core.ValidIdentifier(w.Schema) {
		return &core.ConfigurationError{Key: "warehouse.schema", Err: fmt.Errorf("invalid identifier %q", w.Schema)}
	}
	if w.Table == "" {
		return &core.ConfigurationError{Key: "warehouse.table", Err: ErrRequired}
	}
	if !core.ValidIdentifier(w.Table) {
		return &core.ConfigurationError{Key: "warehouse.table", Err: fmt.Errorf("invalid identifier %q", w.Table)}
	}
	return nil
}

// Validate checks the split mode.
func (b BatchConfig) Validate() error {
	if _, err := batch.ParseSplitMode(b.SplitMode); err != nil {
		return &core.ConfigurationError{Key: "batch.split_mode", Err: err}
	}
	return nil
}

// Validate checks the aggregation tuning values.
func (a AggregateConfig) Validate() error {
	if a.Partitions < 0 {
		return &core.ConfigurationError{Key: "aggregate.partitions", Err: fmt.Errorf("must not be negative, got %d", a.Partitions)}
	}
	if a.TopN < 0 {
		return &core.ConfigurationError{Key: "aggregate.top_n", Err: fmt.Errorf("must not be negative, got %d", a.TopN)}
	}
	return nil
}

// Validate checks the sink schema.
func (s SinkConfig) Validate() error {
	if s.Schema != "" && !core.ValidIdentifier(s.Schema) {
		return &core.ConfigurationError{Key: "sink.schema", Err: fmt.Errorf("invalid identifier %q", s.Schema)}
	}
	return nil
}
