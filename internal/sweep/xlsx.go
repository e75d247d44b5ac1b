package sweep

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// SheetName is the name of the single sheet written on export.
const SheetName = "Sheet1"

// decodeXLSX reads the first sheet of a workbook. Cells are read raw so
// numbers keep full precision regardless of their display format. Cells the
// workbook stores as strings stay text even when they look numeric.
func decodeXLSX(data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("no sheets found in workbook")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	// GetRows pads gaps, so rows[i] is sheet row i+1.
	records := make([][]string, 0, len(rows))
	sheetRows := make([]int, 0, len(rows))
	for i, row := range rows {
		if isBlankRow(row) {
			continue
		}
		records = append(records, row)
		sheetRows = append(sheetRows, i+1)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	isString := func(i, j int) bool {
		row := records[i+1]
		if j >= len(row) {
			return false
		}
		// Only cells that would otherwise become numbers need the lookup.
		if _, ok := parseNumber(row[j]); !ok {
			return false
		}
		cell, err := excelize.CoordinatesToCellName(j+1, sheetRows[i+1])
		if err != nil {
			return false
		}
		typ, err := f.GetCellType(sheet, cell)
		if err != nil {
			return false
		}
		return isStringType(typ)
	}
	return buildTable(records, false, isString)
}

// isStringType reports whether cells of type t hold text. Formula cells
// only carry this type when their cached result is a string.
func isStringType(t excelize.CellType) bool {
	switch t {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return true
	default:
		return false
	}
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

// encodeXLSX writes t as a single-sheet workbook with a header row.
func encodeXLSX(t *Table, w io.Writer) error {
	if t.NumCols() > excelize.MaxColumns {
		return fmt.Errorf("%d columns exceeds the sheet limit of %d", t.NumCols(), excelize.MaxColumns)
	}
	if t.NumRows()+1 > excelize.TotalRows {
		return fmt.Errorf("%d rows exceeds the sheet limit of %d", t.NumRows(), excelize.TotalRows-1)
	}

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return err
	}

	header := make([]interface{}, t.NumCols())
	for j, name := range t.ColumnNames() {
		if err := checkCellLength(name); err != nil {
			return fmt.Errorf("header %d: %w", j+1, err)
		}
		header[j] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i := 0; i < t.NumRows(); i++ {
		row := make([]interface{}, t.NumCols())
		for j := range t.Columns {
			v := t.Columns[j].Values[i]
			switch {
			case v.Kind == KindNumber && !math.IsInf(v.Num, 0):
				row[j] = v.Num
			case v.Kind == KindMissing:
				row[j] = nil
			default:
				s := v.String()
				if err := checkCellLength(s); err != nil {
					return fmt.Errorf("row %d, column %q: %w", i+1, t.Columns[j].Name, err)
				}
				row[j] = s
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Write(w)
}

func checkCellLength(s string) error {
	if utf8.RuneCountInString(s) > excelize.TotalCellChars {
		return fmt.Errorf("cell text exceeds %d characters", excelize.TotalCellChars)
	}
	return nil
}
