package session

import (
	"time"

	"github.com/JonMunkholm/datasweeper/internal/sweep"
)

// FileView is a read-only snapshot of a file, detached from the session so
// it can be rendered without holding the session lock.
type FileView struct {
	ID         string
	Name       string
	Size       int64
	Format     sweep.Format
	UploadedAt time.Time
	Err        error

	// Inspection describes the current (cleaned) table, not its projection.
	Inspection sweep.Inspection
	// Columns lists every column available for selection.
	Columns []string
	// Selection is the effective projection; empty means all columns.
	Selection []string
	// Projected is the table after column selection.
	Projected *sweep.Table
	ShowChart bool
	// Chart is set only when ShowChart is.
	Chart  *sweep.Visualization
	Notice string
}

// Failed reports whether the file could not be ingested.
func (v FileView) Failed() bool {
	return v.Err != nil
}

// Selected reports whether column is part of the effective projection.
func (v FileView) Selected(column string) bool {
	if len(v.Selection) == 0 {
		return true
	}
	for _, c := range v.Selection {
		if c == column {
			return true
		}
	}
	return false
}

func (fs *FileState) view() FileView {
	v := FileView{
		ID:         fs.ID,
		Name:       fs.Name,
		Size:       fs.Size,
		Format:     fs.Format,
		UploadedAt: fs.UploadedAt,
		Err:        fs.Err,
		ShowChart:  fs.ShowChart,
		Notice:     fs.Notice,
		Selection:  append([]string(nil), fs.Selection...),
	}
	if fs.Table == nil {
		return v
	}

	v.Inspection = sweep.Inspect(fs.Table, fs.Size)
	v.Columns = fs.Table.ColumnNames()

	projected, err := sweep.Select(fs.Table, fs.Selection)
	if err != nil {
		// Selection is validated on write, so this only trips if the
		// table changed underneath it.
		projected = fs.Table.Clone()
		v.Selection = nil
	}
	v.Projected = projected

	if fs.ShowChart {
		chart := sweep.Visualize(projected)
		v.Chart = &chart
	}
	return v
}
