// Package normalize coerces raw invoice rows into canonical records and
// materializes canonical datasets as delimited text.
package normalize

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/retailflow/pkg/core"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// SourceTimestampLayout is the invoice timestamp layout of the raw dataset
// (month/day/year hour:minute, 24h, no zero padding).
const SourceTimestampLayout = "1/2/2006 15:04"


// MissingCustomerID replaces an absent customer id.
const MissingCustomerID = "0"

var (
	errMissing         = errors.New("required value is missing")
	errNotInteger      = errors.New("not an integer")
	errNotDecimal      = errors.New("not a decimal number")
	errBadTimestamp    = errors.New("unrecognized timestamp")
	errUnsupportedType = errors.New("unsupported value type")
)

// Normalize converts one raw record. A failure is a *core.NormalizationError
// with Index 1.
func Normalize(raw core.RawRecord) (core.Record, error) {
	rec, err := normalize(raw, SourceTimestampLayout)
	if err != nil {
		err.Index = 1
		return core.Record{}, err
	}
	return rec, nil
}

// NormalizeAll converts raws in order. The first failure aborts and carries
// the 1-based index of the offending record.
func NormalizeAll(raws []core.RawRecord) (*core.Dataset, error) {
	recs := make([]core.Record, 0, len(raws))
	for i, raw := range raws {
		rec, err := normalize(raw, SourceTimestampLayout)
		if err != nil {
			err.Index = i + 1
			return nil, err
		}
		recs = append(recs, rec)
	}
	return core.NewDataset(recs), nil
}

// NormalizeReader streams raw rows from delimited text and normalizes them.
func NormalizeReader(r io.Reader) (*core.Dataset, error) {
	return readRecords(r, SourceTimestampLayout)
}

// readRecords normalizes every row of r, parsing timestamps with layout.
func readRecords(r io.Reader, layout string) (*core.Dataset, error) {
	rr, err := NewRawReader(r)
	if err != nil {
		return nil, err
	}

	var recs []core.Record
	for i := 1; ; i++ {
		raw, err := rr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rec, nerr := normalize(raw, layout)
		if nerr != nil {
			nerr.Index = i
			return nil, nerr
		}
		recs = append(recs, rec)
	}
	return core.NewDataset(recs), nil
}

func normalize(raw core.RawRecord, layout string) (core.Record, *core.NormalizationError) {
	var rec core.Record
	var err *core.NormalizationError

	if rec.InvoiceID, err = requiredText(raw, core.FieldInvoiceID); err != nil {
		return rec, err
	}
	if rec.StockCode, err = requiredText(raw, core.FieldStockCode); err != nil {
		return rec, err
	}
	if rec.Description, err = optionalText(raw, core.FieldDescription); err != nil {
		return rec, err
	}
	if rec.Quantity, err = integer(raw, core.FieldQuantity); err != nil {
		return rec, err
	}
	if rec.InvoiceTimestamp, err = timestamp(raw, core.FieldInvoiceTimestamp, layout); err != nil {
		return rec, err
	}
	if rec.UnitPrice, err = price(raw, core.FieldUnitPrice); err != nil {
		return rec, err
	}
	if rec.CustomerID, err = customerID(raw, core.FieldCustomerID); err != nil {
		return rec, err
	}
	if rec.Country, err = requiredText(raw, core.FieldCountry); err != nil {
		return rec, err
	}
	return rec, nil
}

func fieldErr(field string, v any, err error) *core.NormalizationError {
	return &core.NormalizationError{Field: field, Value: v, Err: err}
}

// text renders v as trimmed NFC text. ok is false when v is absent.
func text(v any) (s string, ok bool, err error) {
	switch x := v.(type) {
	case nil:
		return "", false, nil
	case string:
		s = x
	case []byte:
		s = string(x)
	case int:
		s = strconv.Itoa(x)
	case int32:
		s = strconv.FormatInt(int64(x), 10)
	case int64:
		s = strconv.FormatInt(x, 10)
	case float32:
		s = strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		if math.IsNaN(x) {
			return "", false, nil
		}
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case decimal.Decimal:
		s = x.String()
	case fmt.Stringer:
		s = x.String()
	default:
		return "", false, errUnsupportedType
	}
	return norm.NFC.String(strings.TrimSpace(s)), true, nil
}

func requiredText(raw core.RawRecord, field string) (string, *core.NormalizationError) {
	v := raw[field]
	s, ok, err := text(v)
	if err != nil {
		return "", fieldErr(field, v, err)
	}
	if !ok || s == "" {
		return "", fieldErr(field, v, errMissing)
	}
	return s, nil
}

func optionalText(raw core.RawRecord, field string) (*string, *core.NormalizationError) {
	v := raw[field]
	s, ok, err := text(v)
	if err != nil {
		return nil, fieldErr(field, v, err)
	}
	if !ok || s == "" {
		return nil, nil
	}
	return &s, nil
}

func integer(raw core.RawRecord, field string) (int64, *core.NormalizationError) {
	v := raw[field]
	switch x := v.(type) {
	case nil:
		return 0, fieldErr(field, v, errMissing)
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return 0, fieldErr(field, v, errNotInteger)
		}
		return int64(x), nil
	}

	s, ok, err := text(v)
	if err != nil {
		return 0, fieldErr(field, v, err)
	}
	if !ok || s == "" {
		return 0, fieldErr(field, v, errMissing)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return 0, fieldErr(field, v, errNotInteger)
	}
	return d.IntPart(), nil
}

func price(raw core.RawRecord, field string) (decimal.Decimal, *core.NormalizationError) {
	v := raw[field]
	switch x := v.(type) {
	case nil:
		return decimal.Zero, fieldErr(field, v, errMissing)
	case decimal.Decimal:
		return x, nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, fieldErr(field, v, errNotDecimal)
		}
		return decimal.NewFromFloat(x), nil
	}

	s, ok, err := text(v)
	if err != nil {
		return decimal.Zero, fieldErr(field, v, err)
	}
	if !ok || s == "" {
		return decimal.Zero, fieldErr(field, v, errMissing)
	}
	d, perr := decimal.NewFromString(s)
	if perr != nil {
		return decimal.Zero, fieldErr(field, v, errNotDecimal)
	}
	return d, nil
}

func timestamp(raw core.RawRecord, field, layout string) (time.Time, *core.NormalizationError) {
	v := raw[field]
	if t, ok := v.(time.Time); ok {
		return t, nil
	}

	s, ok, err := text(v)
	if err != nil {
		return time.Time{}, fieldErr(field, v, err)
	}
	if !ok || s == "" {
		return time.Time{}, fieldErr(field, v, errMissing)
	}
	t, perr := time.Parse(layout, s)
	if perr != nil {
		return time.Time{}, fieldErr(field, v, errBadTimestamp)
	}
	return t, nil
}

// customerID coerces through an integer so float-typed ids lose their
// ".0" suffix. Fractional parts are truncated.
func customerID(raw core.RawRecord, field string) (string, *core.NormalizationError) {
	v := raw[field]
	switch x := v.(type) {
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		if math.IsNaN(x) {
			return MissingCustomerID, nil
		}
		if math.IsInf(x, 0) {
			return "", fieldErr(field, v, errNotInteger)
		}
		return strconv.FormatInt(int64(x), 10), nil
	}

	s, ok, err := text(v)
	if err != nil {
		return "", fieldErr(field, v, err)
	}
	if !ok || s == "" {
		return MissingCustomerID, nil
	}
	d, perr := decimal.NewFromString(s)
	if perr != nil {
		return "", fieldErr(field, v, errNotInteger)
	}
	return strconv.FormatInt(d.IntPart(), 10), nil
}
