package adapter

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/retailflow/pkg/core"
)

// CreateSchemaSQL returns an idempotent CREATE SCHEMA statement.
func CreateSchemaSQL(schema string) string {
	return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)
}

// CreateTableSQL renders a CREATE TABLE statement for cols.
// Columns not marked Nullable are declared NOT NULL.
func CreateTableSQL(table core.TableRef, cols []core.ColumnDef, ifNotExists bool) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = c.Name + " " + c.Type
		if !c.Nullable {
			defs[i] += " NOT NULL"
		}
	}

	guard := ""
	if ifNotExists {
		guard = "IF NOT EXISTS "
	}
	return fmt.Sprintf("CREATE TABLE %s%s (%s)", guard, table, strings.Join(defs, ", "))
}

// DropTableSQL returns an idempotent DROP TABLE statement.
func DropTableSQL(table core.TableRef) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
}

// ProbeSQL returns a query yielding at most one row when table has data.
func ProbeSQL(table core.TableRef) string {
	return fmt.Sprintf("SELECT 1 FROM %s LIMIT 1", table)
}
