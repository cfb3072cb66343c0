package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Raw record field names, in canonical order.
const (
	FieldInvoiceID        = "invoice_id"
	FieldStockCode        = "stock_code"
	FieldDescription      = "description"
	FieldQuantity         = "quantity"
	FieldInvoiceTimestamp = "invoice_timestamp"
	FieldUnitPrice        = "unit_price"
	FieldCustomerID       = "customer_id"
	FieldCountry          = "country"
)

// RawFields lists the raw record fields in canonical order.
var RawFields = []string{
	FieldInvoiceID,
	FieldStockCode,
	FieldDescription,
	FieldQuantity,
	FieldInvoiceTimestamp,
	FieldUnitPrice,
	FieldCustomerID,
	FieldCountry,
}

// RawRecord is an untyped source row keyed by raw field name.
// A missing key or a nil value means the field is absent.
type RawRecord map[string]any

// TimestampLayout is the canonical textual form of an invoice timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// Record is a normalized, fully typed invoice line item.
type Record struct {
	InvoiceID        string
	StockCode        string
	Description      *string
	Quantity         int64
	InvoiceTimestamp time.Time
	UnitPrice        decimal.Decimal
	CustomerID       string
	Country          string
}

// LineTotal returns quantity * unit price.
func (r Record) LineTotal() decimal.Decimal {
	return r.UnitPrice.Mul(decimal.NewFromInt(r.Quantity))
}

// InvoiceDate returns the calendar date of the invoice timestamp.
func (r Record) InvoiceDate() time.Time {
	t := r.InvoiceTimestamp
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Values returns the record as store column values in canonical column order.
func (r Record) Values() []any {
	var desc any
	if r.Description != nil {
		desc = *r.Description
	}
	return []any{
		r.InvoiceID,
		r.StockCode,
		desc,
		r.Quantity,
		r.InvoiceTimestamp,
		r.UnitPrice,
		r.CustomerID,
		r.Country,
	}
}
