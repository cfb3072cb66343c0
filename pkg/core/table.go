package core

import (
	"fmt"
	"regexp"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name can be used unquoted as a schema or table name.
func ValidIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

// TableRef identifies a store table by schema and name.
type TableRef struct {
	Schema string
	Name   string
}

// String returns the qualified name, e.g. "retail.online_retail".
func (t TableRef) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Validate checks that both parts are plain SQL identifiers.
func (t TableRef) Validate() error {
	if t.Schema != "" && !ValidIdentifier(t.Schema) {
		return fmt.Errorf("invalid schema name %q", t.Schema)
	}
	if !ValidIdentifier(t.Name) {
		return fmt.Errorf("invalid table name %q", t.Name)
	}
	return nil
}

// ColumnDef declares a store column.
type ColumnDef struct {
	Name     string
	Type     string
	Nullable bool
}

// CanonicalColumns is the fixed store schema for canonical records.
var CanonicalColumns = []ColumnDef{
	{Name: "InvoiceNo", Type: "VARCHAR"},
	{Name: "StockCode", Type: "VARCHAR"},
	{Name: "Description", Type: "TEXT", Nullable: true},
	{Name: "Quantity", Type: "INTEGER"},
	{Name: "InvoiceDate", Type: "TIMESTAMP"},
	{Name: "UnitPrice", Type: "NUMERIC"},
	{Name: "CustomerID", Type: "VARCHAR"},
	{Name: "Country", Type: "VARCHAR"},
}

// CanonicalHeader returns the canonical column names in order.
func CanonicalHeader() []string {
	names := make([]string, len(CanonicalColumns))
	for i, c := range CanonicalColumns {
		names[i] = c.Name
	}
	return names
}

// Table is a named, in-memory result table.
// Aggregation results and sink payloads use this shape.
type Table struct {
	Name    string
	Columns []ColumnDef
	Rows    [][]any
}

// ColumnNames returns the table's column names in order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// QueryResult is the captured output of one statement that produced a result set.
type QueryResult struct {
	Columns []string
	Rows    [][]any
}
