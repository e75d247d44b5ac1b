package sweep

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Action is a user-requested cleaning step.
type Action int

const (
	ActionNone Action = iota
	ActionRemoveDuplicates
	ActionFillMissing
)

// String returns the form value of the action.
func (a Action) String() string {
	switch a {
	case ActionRemoveDuplicates:
		return "remove_duplicates"
	case ActionFillMissing:
		return "fill_missing"
	default:
		return "none"
	}
}

// ParseAction resolves a form value to an Action. The empty string is ActionNone.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ActionNone, nil
	case "remove_duplicates", "dedupe":
		return ActionRemoveDuplicates, nil
	case "fill_missing", "fill":
		return ActionFillMissing, nil
	default:
		return ActionNone, fmt.Errorf("unknown cleaning action %q", s)
	}
}

// CleanResult reports what an action changed.
type CleanResult struct {
	Action Action
	// Removed is the number of duplicate rows dropped.
	Removed int
	// Filled is the number of missing cells replaced by a column mean.
	Filled int
}

// Message is the confirmation shown after the action ran.
func (r CleanResult) Message() string {
	switch r.Action {
	case ActionRemoveDuplicates:
		return fmt.Sprintf("Removed %d duplicate rows!", r.Removed)
	case ActionFillMissing:
		return "Missing values have been filled!"
	default:
		return ""
	}
}

// Apply runs action against t in place.
func Apply(t *Table, action Action) (CleanResult, error) {
	res := CleanResult{Action: action}
	switch action {
	case ActionNone:
	case ActionRemoveDuplicates:
		res.Removed = RemoveDuplicates(t)
	case ActionFillMissing:
		res.Filled = FillMissingNumeric(t)
	default:
		return res, fmt.Errorf("unknown cleaning action %d", int(action))
	}
	return res, nil
}

// RemoveDuplicates drops every row that exactly repeats an earlier row,
// keeping the first occurrence and the order of survivors. It returns the
// number of rows removed.
func RemoveDuplicates(t *Table) int {
	n := t.NumRows()
	if n == 0 {
		return 0
	}

	keep := make([]bool, n)
	seen := make(map[string]struct{}, n)
	removed := 0

	var b strings.Builder
	for i := 0; i < n; i++ {
		b.Reset()
		for j := range t.Columns {
			writeKey(&b, t.Columns[j].Values[i])
		}
		key := b.String()
		if _, dup := seen[key]; dup {
			removed++
			continue
		}
		seen[key] = struct{}{}
		keep[i] = true
	}

	if removed > 0 {
		t.keepRows(keep)
	}
	return removed
}

// writeKey appends an unambiguous encoding of v to b.
func writeKey(b *strings.Builder, v Value) {
	switch v.Kind {
	case KindNumber:
		n := v.Num
		if n == 0 {
			n = 0 // -0 keys as 0
		}
		b.WriteByte('n')
		b.WriteString(strconv.FormatFloat(n, 'g', -1, 64))
	case KindText:
		b.WriteByte('t')
		b.WriteString(strconv.Itoa(len(v.Str)))
		b.WriteByte(':')
		b.WriteString(v.Str)
	default:
		b.WriteByte('m')
	}
	b.WriteByte(0)
}

// FillMissingNumeric replaces the missing cells of every numeric column with
// the arithmetic mean of that column's non-missing cells. Text columns are
// untouched. A column with no non-missing cells has no mean and is left as
// is. It returns the number of cells filled.
func FillMissingNumeric(t *Table) int {
	filled := 0
	for i := range t.Columns {
		col := &t.Columns[i]
		if !col.IsNumeric() {
			continue
		}
		mean, ok := columnMean(col)
		if !ok {
			continue
		}
		for r := range col.Values {
			if col.Values[r].IsMissing() {
				col.Values[r] = Number(mean)
				filled++
			}
		}
	}
	return filled
}

// columnMean returns the mean of the non-missing numbers in col.
func columnMean(col *Column) (float64, bool) {
	var sum float64
	count := 0
	for _, v := range col.Values {
		if v.Kind != KindNumber {
			continue
		}
		sum += v.Num
		count++
	}
	if count == 0 {
		return 0, false
	}
	mean := sum / float64(count)
	if math.IsNaN(mean) {
		return 0, false
	}
	return mean, true
}
