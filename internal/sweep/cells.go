package sweep

// cells.go turns raw string records into a typed Table.
//
// Typing rules:
//   - a fixed set of NA tokens (and the empty string) become missing cells;
//     tokens match exactly, so "  " and " NA" are text
//   - a column whose non-missing cells all parse as numbers becomes numeric,
//     unless the source stored one of them as a string
//   - any other column keeps every cell as text
//   - duplicate header names are suffixed ".1", ".2", ...; blank names
//     become "Unnamed: <index>"

import (
	"fmt"
	"strconv"
	"strings"
)

// naTokens are read as missing cells.
var naTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// IsNA reports whether a raw cell is read as missing.
func IsNA(s string) bool {
	_, ok := naTokens[s]
	return ok
}

// parseNumber parses a raw cell as a float. Surrounding whitespace is ignored.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// mangleHeader makes header names unique and non-empty.
func mangleHeader(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	counts := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for used[name] {
			counts[h]++
			name = fmt.Sprintf("%s.%d", h, counts[h])
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// stringCell reports whether the data cell at row i, column j was stored as
// a string by its source. Such a cell is never read as a number.
type stringCell func(i, j int) bool

// buildTable types raw records into a Table. records[0] is the header.
// When strict is set, a data row wider than the header is an error;
// otherwise the header is widened with unnamed columns. isString may be nil.
func buildTable(records [][]string, strict bool, isString stringCell) (*Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no columns to parse from file")
	}

	header := records[0]
	rows := records[1:]

	width := len(header)
	for i, row := range rows {
		if len(row) <= width {
			continue
		}
		if strict {
			return nil, fmt.Errorf("expected %d fields in line %d, saw %d", len(header), i+2, len(row))
		}
		width = len(row)
	}
	for len(header) < width {
		header = append(header, "")
	}

	names := mangleHeader(header)
	t := &Table{Columns: make([]Column, width)}
	for j := range names {
		raw := make([]string, len(rows))
		var forced []bool
		for i, row := range rows {
			if j < len(row) {
				raw[i] = row[j]
			}
			if isString != nil && isString(i, j) {
				if forced == nil {
					forced = make([]bool, len(rows))
				}
				forced[i] = true
			}
		}
		t.Columns[j] = typeColumn(names[j], raw, forced)
	}
	return t, nil
}

// typeColumn decides numeric vs text for one column of raw cells. A true
// entry in text marks a cell stored as a string; text may be nil.
func typeColumn(name string, raw []string, text []bool) Column {
	values := make([]Value, len(raw))
	numeric := true
	for i, s := range raw {
		if IsNA(s) {
			values[i] = Missing()
			continue
		}
		if text != nil && text[i] {
			numeric = false
			values[i] = Text(s)
			continue
		}
		if f, ok := parseNumber(s); ok && numeric {
			values[i] = Number(f)
			continue
		}
		numeric = false
		values[i] = Text(s)
	}
	if numeric {
		return Column{Name: name, Values: values}
	}
	// A single non-numeric cell makes the whole column text.
	for i, s := range raw {
		if !values[i].IsMissing() {
			values[i] = Text(s)
		}
	}
	return Column{Name: name, Values: values}
}
