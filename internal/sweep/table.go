package sweep

import (
	"math"
	"strconv"
)

// ValueKind is the type of a single cell.
type ValueKind int

const (
	KindMissing ValueKind = iota
	KindNumber
	KindText
)

// Value is one cell of a Table.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
}

// Missing returns the missing-cell marker.
func Missing() Value { return Value{Kind: KindMissing} }

// Number returns a numeric cell. NaN is stored as missing.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Missing()
	}
	return Value{Kind: KindNumber, Num: f}
}

// Text returns a text cell.
func Text(s string) Value { return Value{Kind: KindText, Str: s} }

// IsMissing reports whether the cell holds no value.
func (v Value) IsMissing() bool { return v.Kind == KindMissing }

// String renders the cell the way it is written to CSV: numbers in their
// shortest exact form, missing cells as the empty string.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return formatNumber(v.Num)
	case KindText:
		return v.Str
	default:
		return ""
	}
}

// Equal compares two cells. Missing equals missing.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num == o.Num
	case KindText:
		return v.Str == o.Str
	default:
		return true
	}
}

func formatNumber(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Column is a named, ordered sequence of cells.
type Column struct {
	Name   string
	Values []Value
}

// IsNumeric reports whether every non-missing cell is a number. A column
// with only missing cells counts as numeric, matching how the spreadsheet
// reader types an all-empty column.
func (c *Column) IsNumeric() bool {
	for _, v := range c.Values {
		if v.Kind == KindText {
			return false
		}
	}
	return true
}

// Table is the in-memory representation of one uploaded file. All columns
// hold the same number of cells and column names are unique.
type Table struct {
	Columns []Column
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// NumCols returns the column count.
func (t *Table) NumCols() int {
	return len(t.Columns)
}

// ColumnNames returns the header in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Row returns a copy of the cells of row i in column order.
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.Columns))
	for j := range t.Columns {
		row[j] = t.Columns[j].Values[i]
	}
	return row
}

// Records renders the table as string rows, header first.
func (t *Table) Records() [][]string {
	records := make([][]string, 0, t.NumRows()+1)
	records = append(records, t.ColumnNames())
	for i := 0; i < t.NumRows(); i++ {
		rec := make([]string, len(t.Columns))
		for j := range t.Columns {
			rec[j] = t.Columns[j].Values[i].String()
		}
		records = append(records, rec)
	}
	return records
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := &Table{Columns: make([]Column, len(t.Columns))}
	for i, c := range t.Columns {
		out.Columns[i] = Column{
			Name:   c.Name,
			Values: append([]Value(nil), c.Values...),
		}
	}
	return out
}

// Equal reports whether two tables have the same header and cells.
func (t *Table) Equal(o *Table) bool {
	if t.NumCols() != o.NumCols() || t.NumRows() != o.NumRows() {
		return false
	}
	for i := range t.Columns {
		if t.Columns[i].Name != o.Columns[i].Name {
			return false
		}
		for r := range t.Columns[i].Values {
			if !t.Columns[i].Values[r].Equal(o.Columns[i].Values[r]) {
				return false
			}
		}
	}
	return true
}

// keepRows retains only the rows whose index is flagged in keep.
func (t *Table) keepRows(keep []bool) {
	for i := range t.Columns {
		vals := t.Columns[i].Values[:0]
		for r, v := range t.Columns[i].Values {
			if keep[r] {
				vals = append(vals, v)
			}
		}
		t.Columns[i].Values = vals
	}
}
