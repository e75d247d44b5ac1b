package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/datasweeper/internal/logging"
	"github.com/JonMunkholm/datasweeper/internal/session"
	"github.com/JonMunkholm/datasweeper/internal/sweep"
)

var (
	errNoFiles       = errors.New("no file provided")
	errFileTooLarge  = errors.New("file too large")
	errTooManyInForm = errors.New("too many files in one upload")
)

// multipartMemory is how much of a multipart body is buffered in memory
// before spilling to temporary files.
const multipartMemory = 32 << 20

// upload is one file taken from a multipart request. Err is set when the
// file was rejected before parsing.
type upload struct {
	Name string
	Size int64
	File sweep.UploadedFile
	Err  error
}

// maxBodySize bounds a whole upload request.
func (s *Server) maxBodySize() int64 {
	return s.cfg.Upload.MaxFileSize*int64(s.cfg.Upload.MaxFiles) + 1<<20
}

// readUploads pulls every "files" part out of the request. Oversized files
// are returned with Err set instead of failing the whole request.
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request) ([]upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodySize())

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large") {
			return nil, fmt.Errorf("%w: %w", errFileTooLarge, err)
		}
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, errNoFiles
		}
		return nil, fmt.Errorf("parse upload: %w", err)
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		return nil, errNoFiles
	}
	if limit := s.cfg.Upload.MaxFiles; limit > 0 && len(headers) > limit {
		return nil, fmt.Errorf("%w: got %d, limit %d", errTooManyInForm, len(headers), limit)
	}

	uploads := make([]upload, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, s.readPart(fh))
	}
	return uploads, nil
}

func (s *Server) readPart(fh *multipart.FileHeader) upload {
	u := upload{Name: fh.Filename, Size: fh.Size}
	maxSize := s.cfg.Upload.MaxFileSize
	if maxSize > 0 && fh.Size > maxSize {
		u.Err = fmt.Errorf("%w: %s is %d bytes, limit %d", errFileTooLarge, fh.Filename, fh.Size, maxSize)
		return u
	}

	f, err := fh.Open()
	if err != nil {
		u.Err = fmt.Errorf("open %s: %w", fh.Filename, err)
		return u
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		u.Err = fmt.Errorf("read %s: %w", fh.Filename, err)
		return u
	}
	u.File = sweep.UploadedFile{Name: fh.Filename, Data: data}
	return u
}

// handleUpload adds every uploaded file to the session. Files that cannot
// be read are kept as error cards; only request-level problems fail the
// request.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(ctx)
	logger := logging.FromContext(ctx)

	uploads, err := s.readUploads(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	defer r.MultipartForm.RemoveAll()

	if err := s.limiter.Acquire(ctx); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	defer s.limiter.Release()

	batch := make([]session.Upload, len(uploads))
	for i, u := range uploads {
		batch[i] = session.Upload{Name: u.Name, Size: u.Size, File: u.File, Err: u.Err}
	}
	// The whole batch is refused when it would overflow the session, so a
	// failed request never leaves some of its files behind.
	views, err := sess.AddAll(batch, func(view session.FileView, took time.Duration) {
		s.observeIngest(view, took)
		if view.Failed() {
			logger.Warn("file failed", "file", view.Name, "code", sweep.MapError(view.Err).Code, "error", view.Err)
		} else {
			logger.Info("file ingested", "file", view.Name, "format", view.Format.String(),
				"rows", view.Inspection.Metrics.Rows, "columns", view.Inspection.Metrics.Columns)
		}
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	if wantsJSON(r) {
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, newFileList(views))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) observeIngest(v session.FileView, took time.Duration) {
	if s.metrics == nil {
		return
	}
	code := ""
	if v.Failed() {
		code = sweep.MapError(v.Err).Code
	}
	s.metrics.ObserveIngest(v.Format.String(), v.Size, took, code)
}
