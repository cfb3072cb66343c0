package core

// Dataset is an ordered, immutable sequence of canonical records.
type Dataset struct {
	records []Record
}

// NewDataset builds a dataset from recs. The slice is copied.
func NewDataset(recs []Record) *Dataset {
	cp := make([]Record, len(recs))
	copy(cp, recs)
	return &Dataset{records: cp}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// At returns the record at index i.
func (d *Dataset) At(i int) Record {
	return d.records[i]
}

// Records returns a copy of the records.
func (d *Dataset) Records() []Record {
	cp := make([]Record, d.Len())
	if d != nil {
		copy(cp, d.records)
	}
	return cp
}

// Table renders the dataset as a store table using the canonical schema.
func (d *Dataset) Table(name string) Table {
	rows := make([][]any, 0, d.Len())
	for i := 0; i < d.Len(); i++ {
		rows = append(rows, d.records[i].Values())
	}
	return Table{Name: name, Columns: CanonicalColumns, Rows: rows}
}
