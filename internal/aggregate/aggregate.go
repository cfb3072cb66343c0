// Package aggregate computes the derived sales tables from a canonical
// dataset with a partitioned, two-phase reduce.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"github.com/leapstack-labs/retailflow/pkg/core"
	"github.com/shopspring/decimal"
)

// Result table names.
const (
	TableTotalSales         = "total_sales"
	TableTransactionsPerDay = "transactions_per_day"
	TableTopProducts        = "top_n_products"
)

// DefaultTopN is the product count used when n is not positive.
const DefaultTopN = 10

// Money columns are NUMERIC(26,2): at most 24 integer digits.
const (
	moneyType   = "NUMERIC(26,2)"
	moneyPlaces = 2
)

var moneyLimit = decimal.New(1, 24)

// Engine runs aggregations over a fixed number of partitions.
type Engine struct {
	Partitions int
	logger     *slog.Logger
}

// New creates an Engine. partitions <= 0 uses runtime.NumCPU().
// If logger is nil, a discard logger is used.
func New(partitions int, logger *slog.Logger) *Engine {
	if partitions <= 0 {
		partitions = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{Partitions: partitions, logger: logger}
}

func (e *Engine) parts() int {
	if e.Partitions <= 0 {
		return runtime.NumCPU()
	}
	return e.Partitions
}

// TotalSales sums quantity * unit price over all records.
func (e *Engine) TotalSales(ctx context.Context, ds *core.Dataset) (core.Table, error) {
	total, err := reduce(ctx, e.parts(), ds,
		func() decimal.Decimal { return decimal.Zero },
		func(acc decimal.Decimal, r core.Record) decimal.Decimal { return acc.Add(r.LineTotal()) },
		func(acc, p decimal.Decimal) decimal.Decimal { return acc.Add(p) },
	)
	if err != nil {
		return core.Table{}, err
	}

	v, err := money(total)
	if err != nil {
		return core.Table{}, fmt.Errorf("%s: %w", TableTotalSales, err)
	}

	e.logger.Debug("aggregated total sales", slog.String("total", v.StringFixed(moneyPlaces)))
	return core.Table{
		Name:    TableTotalSales,
		Columns: []core.ColumnDef{{Name: "total_sales", Type: moneyType}},
		Rows:    [][]any{{v}},
	}, nil
}

type invoiceSets map[time.Time]map[string]struct{}

// TransactionsPerDay counts distinct invoices per calendar date, ordered by
// count descending then date ascending.
func (e *Engine) TransactionsPerDay(ctx context.Context, ds *core.Dataset) (core.Table, error) {
	days, err := reduce(ctx, e.parts(), ds,
		func() invoiceSets { return make(invoiceSets) },
		func(acc invoiceSets, r core.Record) invoiceSets {
			d := r.InvoiceDate()
			set, ok := acc[d]
			if !ok {
				set = make(map[string]struct{})
				acc[d] = set
			}
			set[r.InvoiceID] = struct{}{}
			return acc
		},
		func(acc, p invoiceSets) invoiceSets {
			for d, ids := range p {
				set, ok := acc[d]
				if !ok {
					acc[d] = ids
					continue
				}
				for id := range ids {
					set[id] = struct{}{}
				}
			}
			return acc
		},
	)
	if err != nil {
		return core.Table{}, err
	}

	type dayCount struct {
		day   time.Time
		count int64
	}
	counts := make([]dayCount, 0, len(days))
	for d, ids := range days {
		counts = append(counts, dayCount{day: d, count: int64(len(ids))})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].day.Before(counts[j].day)
	})

	rows := make([][]any, len(counts))
	for i, c := range counts {
		rows[i] = []any{c.day, c.count}
	}

	e.logger.Debug("aggregated transactions per day", slog.Int("days", len(rows)))
	return core.Table{
		Name: TableTransactionsPerDay,
		Columns: []core.ColumnDef{
			{Name: "invoice_date", Type: "DATE"},
			{Name: "total_transactions", Type: "BIGINT"},
		},
		Rows: rows,
	}, nil
}

type productSums map[string]decimal.Decimal

// TopProducts ranks stock codes by revenue and keeps the first n, ties
// broken by stock code ascending. n <= 0 uses DefaultTopN.
func (e *Engine) TopProducts(ctx context.Context, ds *core.Dataset, n int) (core.Table, error) {
	if n <= 0 {
		n = DefaultTopN
	}

	sums, err := reduce(ctx, e.parts(), ds,
		func() productSums { return make(productSums) },
		func(acc productSums, r core.Record) productSums {
			acc[r.StockCode] = acc[r.StockCode].Add(r.LineTotal())
			return acc
		},
		func(acc, p productSums) productSums {
			for code, v := range p {
				acc[code] = acc[code].Add(v)
			}
			return acc
		},
	)
	if err != nil {
		return core.Table{}, err
	}

	type product struct {
		code  string
		total decimal.Decimal
	}
	ranked := make([]product, 0, len(sums))
	for code, v := range sums {
		ranked = append(ranked, product{code: code, total: v})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if c := ranked[i].total.Cmp(ranked[j].total); c != 0 {
			return c > 0
		}
		return ranked[i].code < ranked[j].code
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	rows := make([][]any, len(ranked))
	for i, p := range ranked {
		v, err := money(p.total)
		if err != nil {
			return core.Table{}, fmt.Errorf("%s: stock code %s: %w", TableTopProducts, p.code, err)
		}
		rows[i] = []any{p.code, v}
	}

	e.logger.Debug("aggregated top products", slog.Int("n", n), slog.Int("products", len(sums)))
	return core.Table{
		Name: TableTopProducts,
		Columns: []core.ColumnDef{
			{Name: "stock_code", Type: "VARCHAR"},
			{Name: "total_sales", Type: moneyType},
		},
		Rows: rows,
	}, nil
}

// All computes total sales, transactions per day and the top n products,
// in that order.
func (e *Engine) All(ctx context.Context, ds *core.Dataset, n int) ([]core.Table, error) {
	total, err := e.TotalSales(ctx, ds)
	if err != nil {
		return nil, err
	}
	perDay, err := e.TransactionsPerDay(ctx, ds)
	if err != nil {
		return nil, err
	}
	top, err := e.TopProducts(ctx, ds, n)
	if err != nil {
		return nil, err
	}
	return []core.Table{total, perDay, top}, nil
}

// money rounds half away from zero to 2 places and enforces the
// NUMERIC(26,2) range.
func money(d decimal.Decimal) (decimal.Decimal, error) {
	r := d.Round(moneyPlaces)
	if r.Abs().Cmp(moneyLimit) >= 0 {
		return decimal.Zero, fmt.Errorf("value %s overflows %s", r.String(), moneyType)
	}
	return r, nil
}
