package normalize

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/leapstack-labs/retailflow/pkg/core"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// headerAliases maps lowercased source header names to raw fields.
// Both the dataset's column names and the raw field names are accepted.
var headerAliases = map[string]string{
	"invoiceno":                core.FieldInvoiceID,
	core.FieldInvoiceID:        core.FieldInvoiceID,
	"stockcode":                core.FieldStockCode,
	core.FieldStockCode:        core.FieldStockCode,
	core.FieldDescription:      core.FieldDescription,
	core.FieldQuantity:         core.FieldQuantity,
	"invoicedate":              core.FieldInvoiceTimestamp,
	core.FieldInvoiceTimestamp: core.FieldInvoiceTimestamp,
	"unitprice":                core.FieldUnitPrice,
	core.FieldUnitPrice:        core.FieldUnitPrice,
	"customerid":               core.FieldCustomerID,
	core.FieldCustomerID:       core.FieldCustomerID,
	core.FieldCountry:          core.FieldCountry,
}

// RawReader streams raw records from comma-delimited text with a header row.
// A leading UTF-8 BOM is dropped. Empty cells are reported as absent (nil).
type RawReader struct {
	r      *csv.Reader
	fields []string // raw field per column; "" for ignored columns
}

// NewRawReader reads and maps the header row of r.
func NewRawReader(r io.Reader) (*RawReader, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read header: empty input")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	fields := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		f, ok := headerAliases[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		if seen[f] {
			return nil, fmt.Errorf("read header: duplicate column for %s", f)
		}
		seen[f] = true
		fields[i] = f
	}

	var missing []string
	for _, f := range core.RawFields {
		if !seen[f] {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("read header: missing columns %s", strings.Join(missing, ", "))
	}

	return &RawReader{r: cr, fields: fields}, nil
}

// Next returns the next raw record, or io.EOF when the input is exhausted.
func (rr *RawReader) Next() (core.RawRecord, error) {
	row, err := rr.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read row: %w", err)
	}

	raw := make(core.RawRecord, len(core.RawFields))
	for i, cell := range row {
		f := rr.fields[i]
		if f == "" {
			continue
		}
		if cell == "" {
			raw[f] = nil
			continue
		}
		raw[f] = cell
	}
	return raw, nil
}

// ReadAll returns every remaining raw record.
func (rr *RawReader) ReadAll() ([]core.RawRecord, error) {
	var out []core.RawRecord
	for {
		raw, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
}
