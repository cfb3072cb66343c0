// Package sink persists result tables to the store, replacing any
// previous contents.
package sink

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/retailflow/pkg/adapter"
	"github.com/leapstack-labs/retailflow/pkg/core"
	"github.com/shopspring/decimal"
)

// Mode selects how existing target data is treated.
type Mode string

// ModeOverwrite drops and recreates the target table.
const ModeOverwrite Mode = "overwrite"

// maxParams keeps a single INSERT under the PostgreSQL bind limit.
const maxParams = 60000

// DefaultChunkRows is the number of rows per multi-row INSERT.
const DefaultChunkRows = 500

// Writer overwrites store tables with in-memory results.
type Writer struct {
	logger    *slog.Logger
	chunkRows int
}

// New creates a Writer. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Writer{logger: logger, chunkRows: DefaultChunkRows}
}

// Write replaces target with result inside one transaction: the schema is
// created if missing, the table dropped and recreated from the result's
// column definitions, and the rows inserted in chunks. Any failure rolls
// back and is returned as a *core.SinkWriteError.
func (w *Writer) Write(ctx context.Context, store adapter.Adapter, result core.Table, target core.TableRef, mode Mode) error {
	if err := w.write(ctx, store, result, target, mode); err != nil {
		return &core.SinkWriteError{Table: target.String(), Err: err}
	}
	w.logger.Info("sink table written", slog.String("table", target.String()), slog.Int("rows", len(result.Rows)))
	return nil
}

func (w *Writer) write(ctx context.Context, store adapter.Adapter, result core.Table, target core.TableRef, mode Mode) error {
	if mode != ModeOverwrite {
		return fmt.Errorf("unsupported write mode %q", mode)
	}
	if err := validate(result, target); err != nil {
		return err
	}

	tx, err := store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if target.Schema != "" {
		if _, err := tx.ExecContext(ctx, adapter.CreateSchemaSQL(target.Schema)); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, adapter.DropTableSQL(target)); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, adapter.CreateTableSQL(target, result.Columns, false)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	if err := w.insert(ctx, tx, result, target); err != nil {
		return err
	}
	return tx.Commit()
}

func (w *Writer) insert(ctx context.Context, tx *sql.Tx, result core.Table, target core.TableRef) error {
	width := len(result.Columns)
	chunk := w.chunkRows
	if chunk*width > maxParams {
		chunk = maxParams / width
	}

	for lo := 0; lo < len(result.Rows); lo += chunk {
		hi := min(lo+chunk, len(result.Rows))
		rows := result.Rows[lo:hi]

		args := make([]any, 0, len(rows)*width)
		for _, row := range rows {
			for i, v := range row {
				args = append(args, bindValue(result.Columns[i], v))
			}
		}

		w.logger.Debug("inserting chunk", slog.String("table", target.String()), slog.Int("from", lo), slog.Int("rows", len(rows)))
		if _, err := tx.ExecContext(ctx, insertSQL(target, result.ColumnNames(), len(rows)), args...); err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", lo+1, hi, err)
		}
	}
	return nil
}

// insertSQL renders a multi-row INSERT with $n placeholders.
func insertSQL(target core.TableRef, cols []string, rows int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", target, strings.Join(cols, ", "))
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range cols {
			if c > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", n)
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// bindValue converts v into a driver-neutral argument for col.
// Dates and timestamps are sent as text so no session time zone applies.
func bindValue(col core.ColumnDef, v any) any {
	switch x := v.(type) {
	case time.Time:
		if strings.EqualFold(col.Type, "DATE") {
			return x.Format(time.DateOnly)
		}
		return x.Format(core.TimestampLayout)
	case decimal.Decimal:
		return x.String()
	case *string:
		if x == nil {
			return nil
		}
		return *x
	default:
		return v
	}
}

func validate(result core.Table, target core.TableRef) error {
	if err := target.Validate(); err != nil {
		return err
	}
	if len(result.Columns) == 0 {
		return fmt.Errorf("result %s has no columns", result.Name)
	}
	for _, c := range result.Columns {
		if !core.ValidIdentifier(c.Name) {
			return fmt.Errorf("invalid column name %q", c.Name)
		}
	}
	for i, row := range result.Rows {
		if len(row) != len(result.Columns) {
			return fmt.Errorf("row %d has %d values, want %d", i+1, len(row), len(result.Columns))
		}
	}
	return nil
}
