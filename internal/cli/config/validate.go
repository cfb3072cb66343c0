package config

import (
	"fmt"

	intconfig "github.com/leapstack-labs/retailflow/internal/config"
	"github.com/leapstack-labs/retailflow/pkg/core"
)

// Validate checks every section before any connection is attempted.
// The first problem is returned as a *core.ConfigurationError.
func (c *Config) Validate() error {
	if err := intconfig.ValidateTarget(c.Target); err != nil {
		return err
	}
	checks := []func() error{
		c.Warehouse.Validate,
		c.Batch.Validate,
		c.Aggregate.Validate,
		c.Sink.Validate,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	switch c.Output {
	case OutputTable, OutputJSON:
	default:
		return &core.ConfigurationError{Key: "output", Err: fmt.Errorf("unknown format %q (want %q or %q)", c.Output, OutputTable, OutputJSON)}
	}
	if c.StatePath == "" {
		return &core.ConfigurationError{Key: "state_path", Err: intconfig.ErrRequired}
	}
	return nil
}
