package sweep

// Request is one full pass of user intent over a file.
type Request struct {
	// Actions run in order after ingest.
	Actions []Action
	// Columns is the projection; empty keeps every column.
	Columns []string
	// Visualize asks for a chart of the projected table.
	Visualize bool
	// Target is the export format. Nil skips export.
	Target *Format
}

// FileResult is the outcome of processing one upload. When Err is set the
// fields describing later stages are zero.
type FileResult struct {
	Name       string
	Format     Format
	Inspection Inspection
	Cleaning   []CleanResult
	Table      *Table
	Chart      *Visualization
	Export     *Export
	Err        error
}

// Failed reports whether processing stopped early.
func (r *FileResult) Failed() bool {
	return r.Err != nil
}

// Process runs ingest, inspect, clean, select, visualize and export for one
// file. Inspection describes the table as ingested, before any cleaning.
func Process(f UploadedFile, req Request) FileResult {
	res := FileResult{Name: f.Name}

	t, format, err := Ingest(f)
	if err != nil {
		res.Err = err
		return res
	}
	res.Format = format
	res.Inspection = Inspect(t, f.Size())

	for _, a := range req.Actions {
		cr, err := Apply(t, a)
		if err != nil {
			res.Err = err
			return res
		}
		res.Cleaning = append(res.Cleaning, cr)
	}

	projected, err := Select(t, req.Columns)
	if err != nil {
		res.Err = err
		return res
	}
	res.Table = projected

	if req.Visualize {
		v := Visualize(projected)
		res.Chart = &v
	}

	if req.Target != nil {
		exp, err := ExportTable(projected, *req.Target, f.Name)
		if err != nil {
			res.Err = err
			return res
		}
		res.Export = exp
	}
	return res
}

// ProcessAll processes files in upload order. A failure is recorded on that
// file's result and never stops the others.
func ProcessAll(files []UploadedFile, req Request) []FileResult {
	results := make([]FileResult, len(files))
	for i, f := range files {
		results[i] = Process(f, req)
	}
	return results
}
