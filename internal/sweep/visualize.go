package sweep

import (
	"encoding/json"
	"math"
)

// NoNumericNotice is reported when a table has nothing to chart.
const NoNumericNotice = "No numeric columns available for visualization"

// chartSeries is how many numeric columns are drawn.
const chartSeries = 2

// Series is one charted column. Missing cells are NaN.
type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// MarshalJSON writes gaps (NaN) and infinities as null.
func (s Series) MarshalJSON() ([]byte, error) {
	values := make([]*float64, len(s.Values))
	for i := range s.Values {
		v := s.Values[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values[i] = &v
	}
	return json.Marshal(struct {
		Name   string     `json:"name"`
		Values []*float64 `json:"values"`
	}{s.Name, values})
}

// Chart is a bar chart of up to two numeric columns keyed by row index.
type Chart struct {
	Index  []int    `json:"index"`
	Series []Series `json:"series"`
}

// Bounds returns the smallest and largest value among the first rows
// entries of each series, always spanning 0. rows <= 0 covers every row.
func (c *Chart) Bounds(rows int) (lo, hi float64) {
	for _, s := range c.Series {
		values := s.Values
		if rows > 0 && rows < len(values) {
			values = values[:rows]
		}
		for _, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo, hi
}

// Visualization is either a chart or an informational notice.
type Visualization struct {
	Chart  *Chart `json:"chart,omitempty"`
	Notice string `json:"notice,omitempty"`
}

// NumericColumns returns the sub-table of numeric columns. Cells are shared
// with t; callers must not modify the result.
func NumericColumns(t *Table) *Table {
	out := &Table{}
	for _, c := range t.Columns {
		if c.IsNumeric() {
			out.Columns = append(out.Columns, c)
		}
	}
	return out
}

// Visualize derives the chart for t. It never modifies t.
func Visualize(t *Table) Visualization {
	numeric := NumericColumns(t)
	if numeric.NumCols() == 0 {
		return Visualization{Notice: NoNumericNotice}
	}

	n := numeric.NumRows()
	chart := &Chart{Index: make([]int, n)}
	for i := range chart.Index {
		chart.Index[i] = i
	}
	for _, c := range numeric.Columns {
		if len(chart.Series) == chartSeries {
			break
		}
		s := Series{Name: c.Name, Values: make([]float64, n)}
		for i, v := range c.Values {
			if v.Kind == KindNumber {
				s.Values[i] = v.Num
			} else {
				s.Values[i] = math.NaN()
			}
		}
		chart.Series = append(chart.Series, s)
	}
	return Visualization{Chart: chart}
}
