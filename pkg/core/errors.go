package core

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a missing or malformed configuration key.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %v", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ConnectionError reports a store connection that could not be obtained or used.
type ConnectionError struct {
	Op     string
	Target string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("connection: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("connection: %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ErrNotConnected is wrapped by ConnectionError when an adapter is used before Connect.
var ErrNotConnected = errors.New("database connection not established")

// NormalizationError reports a raw record that failed type coercion.
// Index is the 1-based position of the record in its input.
type NormalizationError struct {
	Index int
	Field string
	Value any
	Err   error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize record %d: field %s (%v): %v", e.Index, e.Field, e.Value, e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// LoadError reports a failure while creating or populating a warehouse table.
// The table is not guaranteed to be empty after this error.
type LoadError struct {
	Op    string
	Table string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", e.Table, e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// StatementExecutionError reports the batch statement that failed.
// Index is 1-based within the parsed batch.
type StatementExecutionError struct {
	Index     int
	Statement string
	Err       error
}

func (e *StatementExecutionError) Error() string {
	return fmt.Sprintf("statement %d failed: %v\n  %s", e.Index, e.Err, abbreviate(e.Statement, 200))
}

func (e *StatementExecutionError) Unwrap() error { return e.Err }

// SinkWriteError reports a failed overwrite of a sink table.
type SinkWriteError struct {
	Table string
	Err   error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("sink %s: %v", e.Table, e.Err)
}

func (e *SinkWriteError) Unwrap() error { return e.Err }

func abbreviate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
