package testutil

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/retailflow/pkg/adapter"
	"github.com/leapstack-labs/retailflow/pkg/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Record builds a canonical record for tests. ts uses core.TimestampLayout.
func Record(t testing.TB, invoice, stock string, qty int64, price, ts string) core.Record {
	t.Helper()
	when, err := time.Parse(core.TimestampLayout, ts)
	require.NoError(t, err)
	return core.Record{
		InvoiceID:        invoice,
		StockCode:        stock,
		Quantity:         qty,
		InvoiceTimestamp: when,
		UnitPrice:        decimal.RequireFromString(price),
		CustomerID:       "0",
		Country:          "United Kingdom",
	}
}

// SampleDataset returns the reference dataset used across packages:
// total sales 14.00, top products A (9.00) then B (5.00).
func SampleDataset(t testing.TB) *core.Dataset {
	t.Helper()
	return core.NewDataset([]core.Record{
		Record(t, "1", "A", 2, "1.50", "2010-12-01 08:26:00"),
		Record(t, "1", "B", 1, "5.00", "2010-12-01 08:26:00"),
		Record(t, "2", "A", 4, "1.50", "2010-12-02 09:00:00"),
	})
}

// MockStore is an adapter backed by sqlmock with an in-memory bulk copy.
type MockStore struct {
	adapter.BaseSQLAdapter

	Copies   int
	Copied   []byte
	CopyRows int64
	CopyErr  error
}

// NewMockStore returns a connected MockStore and its sqlmock controller.
func NewMockStore(t testing.TB) (*MockStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &MockStore{BaseSQLAdapter: adapter.BaseSQLAdapter{DB: db}}, mock
}

// Connect is a no-op; the mock is connected on construction.
func (m *MockStore) Connect(context.Context, adapter.Config) error { return nil }

// DialectName identifies the mock dialect.
func (m *MockStore) DialectName() string { return "mock" }

// BulkCopy records the transferred bytes.
func (m *MockStore) BulkCopy(_ context.Context, _ core.TableRef, src io.Reader) (int64, error) {
	m.Copies++
	if m.CopyErr != nil {
		return 0, m.CopyErr
	}
	b, err := io.ReadAll(src)
	if err != nil {
		return 0, err
	}
	m.Copied = b
	return m.CopyRows, nil
}

var _ adapter.Adapter = (*MockStore)(nil)
