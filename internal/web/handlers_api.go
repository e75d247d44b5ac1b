package web

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/datasweeper/internal/logging"
	"github.com/JonMunkholm/datasweeper/internal/session"
	"github.com/JonMunkholm/datasweeper/internal/sweep"
)

// tableDTO is a table in row-major JSON form. Missing cells are null and
// infinities are the strings "inf" and "-inf".
type tableDTO struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func newTableDTO(t *sweep.Table) *tableDTO {
	if t == nil {
		return nil
	}
	dto := &tableDTO{Columns: t.ColumnNames(), Rows: make([][]any, t.NumRows())}
	for i := range dto.Rows {
		row := t.Row(i)
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = cellValue(v)
		}
		dto.Rows[i] = cells
	}
	return dto
}

func cellValue(v sweep.Value) any {
	switch v.Kind {
	case sweep.KindNumber:
		if math.IsInf(v.Num, 0) || math.IsNaN(v.Num) {
			return v.String()
		}
		return v.Num
	case sweep.KindText:
		return v.Str
	default:
		return nil
	}
}

// fileDTO is the API view of one file in a session.
type fileDTO struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Format     string         `json:"format"`
	SizeBytes  int64          `json:"size_bytes"`
	UploadedAt time.Time      `json:"uploaded_at"`
	Metrics    *sweep.Metrics `json:"metrics,omitempty"`
	Columns    []string       `json:"columns,omitempty"`
	Selection  []string       `json:"selection,omitempty"`
	Preview    *tableDTO      `json:"preview,omitempty"`
	ShowChart  bool           `json:"show_chart"`
	Notice     string         `json:"notice,omitempty"`
	Error      *ErrorResponse `json:"error,omitempty"`
}

func newFileDTO(v session.FileView, detailed bool) fileDTO {
	dto := fileDTO{
		ID:         v.ID,
		Name:       v.Name,
		Format:     v.Format.String(),
		SizeBytes:  v.Size,
		UploadedAt: v.UploadedAt,
		ShowChart:  v.ShowChart,
		Notice:     v.Notice,
	}
	if v.Failed() {
		resp := newErrorResponse(v.Err)
		dto.Error = &resp
		return dto
	}
	m := v.Inspection.Metrics
	dto.Metrics = &m
	dto.Columns = v.Columns
	dto.Selection = v.Selection
	if detailed {
		dto.Preview = newTableDTO(v.Inspection.Preview)
	}
	return dto
}

type fileListResponse struct {
	Files []fileDTO `json:"files"`
}

func newFileList(views []session.FileView) fileListResponse {
	resp := fileListResponse{Files: make([]fileDTO, len(views))}
	for i, v := range views {
		resp.Files[i] = newFileDTO(v, false)
	}
	return resp
}

// handleListFiles returns a summary of every file in the session.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, newFileList(sessionFrom(r.Context()).Files()))
}

// lookupFile validates the fileID path parameter and loads the file.
func (s *Server) lookupFile(r *http.Request) (session.FileView, error) {
	ref := fileRef{FileID: chi.URLParam(r, "fileID")}
	if err := validateForm(ref); err != nil {
		return session.FileView{}, err
	}
	return sessionFrom(r.Context()).File(ref.FileID)
}

// handleGetFile returns one file with its preview.
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	v, err := s.lookupFile(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	render.JSON(w, r, newFileDTO(v, true))
}

// handleGetChart returns the chart of the file's projection, whether or not
// the page currently shows it.
func (s *Server) handleGetChart(w http.ResponseWriter, r *http.Request) {
	v, err := s.lookupFile(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if v.Failed() {
		s.respondError(w, r, fmt.Errorf("%w: %w", session.ErrFileFailed, v.Err), 0)
		return
	}
	if v.Chart != nil {
		render.JSON(w, r, v.Chart)
		return
	}
	render.JSON(w, r, sweep.Visualize(v.Projected))
}

type cleanDTO struct {
	Action  string `json:"action"`
	Removed int    `json:"removed"`
	Filled  int    `json:"filled"`
	Message string `json:"message"`
}

type exportDTO struct {
	FileName string `json:"file_name"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
	// Data is base64 encoded by encoding/json.
	Data []byte `json:"data"`
}

// convertResult is the outcome for one file of a conversion request.
type convertResult struct {
	Name     string               `json:"name"`
	Format   string               `json:"format,omitempty"`
	Metrics  *sweep.Metrics       `json:"metrics,omitempty"`
	Preview  *tableDTO            `json:"preview,omitempty"`
	Cleaning []cleanDTO           `json:"cleaning,omitempty"`
	Columns  []string             `json:"columns,omitempty"`
	Chart    *sweep.Visualization `json:"chart,omitempty"`
	Export   *exportDTO           `json:"export,omitempty"`
	Error    *ErrorResponse       `json:"error,omitempty"`
}

type convertResponse struct {
	Results []convertResult `json:"results"`
}

func newConvertResult(res sweep.FileResult) convertResult {
	out := convertResult{Name: res.Name}
	if res.Failed() {
		resp := newErrorResponse(res.Err)
		out.Error = &resp
		return out
	}
	out.Format = res.Format.String()
	m := res.Inspection.Metrics
	out.Metrics = &m
	out.Preview = newTableDTO(res.Inspection.Preview)
	for _, c := range res.Cleaning {
		out.Cleaning = append(out.Cleaning, cleanDTO{
			Action:  c.Action.String(),
			Removed: c.Removed,
			Filled:  c.Filled,
			Message: c.Message(),
		})
	}
	if res.Table != nil {
		out.Columns = res.Table.ColumnNames()
	}
	out.Chart = res.Chart
	if res.Export != nil {
		out.Export = &exportDTO{
			FileName: res.Export.FileName,
			MIMEType: res.Export.MIMEType,
			Size:     res.Export.Size(),
			Data:     res.Export.Data,
		}
	}
	return out
}

// handleConvert runs the whole pipeline over the uploaded files without
// touching any session. Each file succeeds or fails on its own.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	uploads, err := s.readUploads(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	defer r.MultipartForm.RemoveAll()

	form := parseConvertForm(r)
	if err := validateForm(form); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	req := form.request()

	if err := s.limiter.Acquire(ctx); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	defer s.limiter.Release()

	resp := convertResponse{Results: make([]convertResult, 0, len(uploads))}
	for _, u := range uploads {
		start := time.Now()
		var res sweep.FileResult
		if u.Err != nil {
			res = sweep.FileResult{Name: u.Name, Err: u.Err}
			res.Format, _, _ = sweep.FormatFromName(u.Name)
		} else {
			res = sweep.Process(u.File, req)
		}
		s.observeResult(res, u.Size, time.Since(start))

		if res.Failed() {
			logger.Warn("file failed", "file", res.Name, "code", sweep.MapError(res.Err).Code, "error", res.Err)
		}
		resp.Results = append(resp.Results, newConvertResult(res))
	}

	render.JSON(w, r, resp)
}

func (s *Server) observeResult(res sweep.FileResult, size int64, took time.Duration) {
	if s.metrics == nil {
		return
	}
	code := ""
	if res.Failed() {
		code = sweep.MapError(res.Err).Code
	}
	s.metrics.ObserveIngest(res.Format.String(), size, took, code)
	for _, c := range res.Cleaning {
		s.metrics.CleanActions.WithLabelValues(c.Action.String()).Inc()
	}
	if res.Export != nil {
		s.metrics.Exports.WithLabelValues(res.Export.Format.String()).Inc()
	}
}
