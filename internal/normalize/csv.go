package normalize

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/leapstack-labs/retailflow/pkg/core"
)

// WriteCSV writes ds as comma-delimited text with a header row naming the
// store columns in canonical order. An absent description is an empty cell.
func WriteCSV(w io.Writer, ds *core.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(core.CanonicalHeader()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(core.CanonicalColumns))
	for i := 0; i < ds.Len(); i++ {
		rec := ds.At(i)
		row[0] = rec.InvoiceID
		row[1] = rec.StockCode
		row[2] = ""
		if rec.Description != nil {
			row[2] = *rec.Description
		}
		row[3] = strconv.FormatInt(rec.Quantity, 10)
		row[4] = rec.InvoiceTimestamp.Format(core.TimestampLayout)
		row[5] = rec.UnitPrice.String()
		row[6] = rec.CustomerID
		row[7] = rec.Country
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes ds to path, creating parent directories as needed.
func WriteCSVFile(path string, ds *core.Dataset) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create directory for %s: %w", path, err)
		}
	}

	f, err := os.Create(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	return WriteCSV(f, ds)
}

// ReadCSV reads a dataset previously written by WriteCSV. Timestamps must be
// in the canonical layout.
func ReadCSV(r io.Reader) (*core.Dataset, error) {
	return readRecords(r, core.TimestampLayout)
}

// ReadCSVFile reads a canonical dataset from path.
func ReadCSVFile(path string) (*core.Dataset, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	ds, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ds, nil
}

// NormalizeFile normalizes the raw dataset file at path.
func NormalizeFile(path string) (*core.Dataset, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	ds, err := NormalizeReader(f)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", path, err)
	}
	return ds, nil
}
