package sweep

// Select projects t down to the named columns, in the order given. An empty
// selection keeps every column. The result never shares cell storage with t.
func Select(t *Table, columns []string) (*Table, error) {
	if len(columns) == 0 {
		return t.Clone(), nil
	}

	out := &Table{Columns: make([]Column, 0, len(columns))}
	picked := make(map[string]bool, len(columns))
	for _, name := range columns {
		if picked[name] {
			continue
		}
		idx := t.ColumnIndex(name)
		if idx < 0 {
			return nil, invalidColumn(name)
		}
		picked[name] = true
		out.Columns = append(out.Columns, Column{
			Name:   name,
			Values: append([]Value(nil), t.Columns[idx].Values...),
		})
	}
	return out, nil
}

// ReconcileSelection drops names that no longer exist in t. It returns nil
// when nothing valid is left, which Select reads as "all columns".
func ReconcileSelection(t *Table, columns []string) []string {
	var kept []string
	for _, name := range columns {
		if t.ColumnIndex(name) >= 0 {
			kept = append(kept, name)
		}
	}
	return kept
}
