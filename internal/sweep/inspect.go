package sweep

import "fmt"

// PreviewRows is the number of leading rows shown for a file.
const PreviewRows = 5

// Metrics are the descriptive numbers shown for a file.
type Metrics struct {
	SizeKB  float64 `json:"size_kb"`
	Rows    int     `json:"rows"`
	Columns int     `json:"columns"`
}

// SizeLabel formats the size the way it is displayed, e.g. "1.25 KB".
func (m Metrics) SizeLabel() string {
	return fmt.Sprintf("%.2f KB", m.SizeKB)
}

// Inspection is the result of inspecting a table.
type Inspection struct {
	Metrics Metrics
	Preview *Table
}

// Inspect computes metrics for t and a preview of its first PreviewRows
// rows. byteLen is the length of the original upload. t is not modified.
func Inspect(t *Table, byteLen int64) Inspection {
	return Inspection{
		Metrics: Metrics{
			SizeKB:  float64(byteLen) / 1024,
			Rows:    t.NumRows(),
			Columns: t.NumCols(),
		},
		Preview: Head(t, PreviewRows),
	}
}

// Head returns a copy of the first n rows of t.
func Head(t *Table, n int) *Table {
	if n > t.NumRows() {
		n = t.NumRows()
	}
	if n < 0 {
		n = 0
	}
	out := &Table{Columns: make([]Column, len(t.Columns))}
	for i, c := range t.Columns {
		out.Columns[i] = Column{
			Name:   c.Name,
			Values: append([]Value(nil), c.Values[:n]...),
		}
	}
	return out
}
