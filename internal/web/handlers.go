package web

import (
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/datasweeper/internal/logging"
	"github.com/JonMunkholm/datasweeper/internal/sweep"
	"github.com/JonMunkholm/datasweeper/internal/web/templates"
)

// acceptedExtensions lists what the upload input offers, compressed
// variants included.
func acceptedExtensions() []string {
	return append(sweep.Extensions(), sweep.CompressedExtensions()...)
}

// renderPage writes a full HTML page.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}

// handleIndex renders the session's files.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	s.renderPage(w, r, http.StatusOK, templates.Home(templates.HomeParams{
		Files:      sess.Files(),
		Extensions: acceptedExtensions(),
		MaxFiles:   s.cfg.Upload.MaxFiles,
		MaxBars:    s.cfg.Chart.MaxBars,
	}))
}

// afterFileAction answers a successful file mutation: the file as JSON for
// API clients, otherwise a redirect back to the file's panel.
func (s *Server) afterFileAction(w http.ResponseWriter, r *http.Request, fileID string) {
	if wantsJSON(r) {
		v, err := sessionFrom(r.Context()).File(fileID)
		if err != nil {
			s.respondError(w, r, err, 0)
			return
		}
		render.JSON(w, r, newFileDTO(v, true))
		return
	}
	http.Redirect(w, r, "/#file-"+fileID, http.StatusSeeOther)
}

// handleClean applies one cleaning action to a file.
func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	form := cleanForm{
		fileRef: fileRef{FileID: chi.URLParam(r, "fileID")},
		Action:  r.PostFormValue("action"),
	}
	if err := validateForm(form); err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	action, _ := sweep.ParseAction(form.Action)
	res, err := sessionFrom(r.Context()).Apply(form.FileID, action)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if s.metrics != nil {
		s.metrics.CleanActions.WithLabelValues(action.String()).Inc()
	}
	logging.WithFields(r.Context(), "file_id", form.FileID).Info("cleaning applied",
		"action", action.String(),
		"removed", res.Removed,
		"filled", res.Filled,
	)

	s.afterFileAction(w, r, form.FileID)
}

// handleColumns records the column selection for a file.
func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	form := columnsForm{
		fileRef: fileRef{FileID: chi.URLParam(r, "fileID")},
		Columns: r.PostForm["columns"],
	}
	if err := validateForm(form); err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	if err := sessionFrom(r.Context()).SetSelection(form.FileID, form.Columns); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.afterFileAction(w, r, form.FileID)
}

// handleChart toggles the visualization of a file.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	form := chartForm{
		fileRef: fileRef{FileID: chi.URLParam(r, "fileID")},
		Show:    r.PostFormValue("show"),
	}
	if err := validateForm(form); err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	show, _ := strconv.ParseBool(form.Show)
	if err := sessionFrom(r.Context()).SetChart(form.FileID, show); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.afterFileAction(w, r, form.FileID)
}

// handleDownload serializes the file's current projection as an attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	form := downloadForm{
		fileRef: fileRef{FileID: chi.URLParam(r, "fileID")},
		Format:  r.URL.Query().Get("format"),
	}
	if err := validateForm(form); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	target, _ := sweep.ParseFormat(form.Format)

	ctx := r.Context()
	if err := s.limiter.Acquire(ctx); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	exp, err := sessionFrom(ctx).Export(form.FileID, target)
	s.limiter.Release()
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	if s.metrics != nil {
		s.metrics.Exports.WithLabelValues(target.String()).Inc()
	}
	logging.WithFields(ctx, "file_id", form.FileID).Info("export served",
		"file", exp.FileName,
		"format", target.String(),
		"bytes", exp.Size(),
	)

	w.Header().Set("Content-Type", exp.MIMEType)
	w.Header().Set("Content-Disposition", attachment(exp.FileName))
	http.ServeContent(w, r, exp.FileName, time.Time{}, exp.Reader())
}

// attachment builds a Content-Disposition value, encoding non-ASCII names.
func attachment(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

// handleRemove drops one file from the session.
func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	ref := fileRef{FileID: chi.URLParam(r, "fileID")}
	if err := validateForm(ref); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if err := sessionFrom(r.Context()).Remove(ref.FileID); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleReset discards every file in the session.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r.Context()).Reset()
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleHealth reports liveness and upload capacity.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
		"limiter":  s.limiter.Status(),
	})
}
