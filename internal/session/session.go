package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/datasweeper/internal/sweep"
)

var (
	// ErrFileNotFound is returned for a file ID the session does not hold.
	ErrFileNotFound = errors.New("file not found")
	// ErrTooManyFiles is returned when a session is at its file cap.
	ErrTooManyFiles = errors.New("too many files in this session")
	// ErrFileFailed is returned when acting on a file that never ingested.
	ErrFileFailed = errors.New("file failed to load")
)

// FileState is everything a session remembers about one upload.
type FileState struct {
	ID         string
	Name       string
	Size       int64
	Format     sweep.Format
	UploadedAt time.Time

	// Table is nil when Err is set.
	Table     *sweep.Table
	Selection []string
	ShowChart bool
	// Notice is the confirmation left by the last cleaning action.
	Notice string
	Err    error
}

// Session owns the files of one browser session. All methods are safe for
// concurrent use; each call holds the session lock for its duration.
type Session struct {
	ID string

	mu       sync.Mutex
	files    []*FileState
	maxFiles int
	lastSeen time.Time
	now      func() time.Time
}

func newSession(id string, maxFiles int, now func() time.Time) *Session {
	return &Session{
		ID:       id,
		maxFiles: maxFiles,
		lastSeen: now(),
		now:      now,
	}
}

func (s *Session) touch() {
	s.lastSeen = s.now()
}

// LastSeen returns when the session was last used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Len returns the number of files held, including failed ones.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// Add ingests f and appends it to the session. A file that fails to ingest
// is still kept so its error can be shown; the returned view carries the
// error. Only the file cap is reported as an error.
func (s *Session) Add(f sweep.UploadedFile) (FileView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.checkRoom(1); err != nil {
		return FileView{}, err
	}
	return s.add(f), nil
}

// AddFailed records a file that was rejected before ingest, such as one over
// the size limit, so it shows up beside the others with its error.
func (s *Session) AddFailed(name string, size int64, cause error) (FileView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.checkRoom(1); err != nil {
		return FileView{}, err
	}
	return s.addFailed(name, size, cause), nil
}

// Upload is one file of a multi-file upload.
type Upload struct {
	Name string
	Size int64
	File sweep.UploadedFile
	// Err is set when the file was rejected before ingest.
	Err error
}

// AddAll adds every upload in order, or none of them when they would take
// the session past its file cap. observe, if non-nil, is called after each
// file with its view and how long it took.
func (s *Session) AddAll(uploads []Upload, observe func(FileView, time.Duration)) ([]FileView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if err := s.checkRoom(len(uploads)); err != nil {
		return nil, err
	}

	views := make([]FileView, 0, len(uploads))
	for _, u := range uploads {
		start := s.now()
		var v FileView
		if u.Err != nil {
			v = s.addFailed(u.Name, u.Size, u.Err)
		} else {
			v = s.add(u.File)
		}
		if observe != nil {
			observe(v, s.now().Sub(start))
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *Session) checkRoom(n int) error {
	if s.maxFiles > 0 && len(s.files)+n > s.maxFiles {
		return fmt.Errorf("%w (limit %d, holding %d, adding %d)", ErrTooManyFiles, s.maxFiles, len(s.files), n)
	}
	return nil
}

func (s *Session) add(f sweep.UploadedFile) FileView {
	fs := &FileState{
		ID:         uuid.New().String(),
		Name:       f.Name,
		Size:       f.Size(),
		UploadedAt: s.now(),
	}
	t, format, err := sweep.Ingest(f)
	fs.Format = format
	if err != nil {
		fs.Err = err
	} else {
		fs.Table = t
	}

	s.files = append(s.files, fs)
	return fs.view()
}

func (s *Session) addFailed(name string, size int64, cause error) FileView {
	format, _, _ := sweep.FormatFromName(name)
	fs := &FileState{
		ID:         uuid.New().String(),
		Name:       name,
		Size:       size,
		Format:     format,
		UploadedAt: s.now(),
		Err:        cause,
	}
	s.files = append(s.files, fs)
	return fs.view()
}

func (s *Session) find(id string) (*FileState, error) {
	for _, fs := range s.files {
		if fs.ID == id {
			return fs, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
}

func (s *Session) loaded(id string) (*FileState, error) {
	fs, err := s.find(id)
	if err != nil {
		return nil, err
	}
	if fs.Err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileFailed, fs.Err)
	}
	return fs, nil
}

// Apply runs a cleaning action on the file's table in place. The file's
// selection is reconciled afterwards in case it referred to columns that
// are gone.
func (s *Session) Apply(id string, action sweep.Action) (sweep.CleanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	fs, err := s.loaded(id)
	if err != nil {
		return sweep.CleanResult{}, err
	}

	res, err := sweep.Apply(fs.Table, action)
	if err != nil {
		return res, err
	}
	fs.Notice = res.Message()
	fs.Selection = sweep.ReconcileSelection(fs.Table, fs.Selection)
	return res, nil
}

// SetSelection records the columns to keep. Unknown names are rejected and
// leave the previous selection in place.
func (s *Session) SetSelection(id string, columns []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	fs, err := s.loaded(id)
	if err != nil {
		return err
	}
	if _, err := sweep.Select(fs.Table, columns); err != nil {
		return err
	}
	fs.Selection = append([]string(nil), columns...)
	return nil
}

// SetChart toggles the visualization for a file.
func (s *Session) SetChart(id string, show bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	fs, err := s.loaded(id)
	if err != nil {
		return err
	}
	fs.ShowChart = show
	return nil
}

// Export serializes the file's current projection in the target format.
func (s *Session) Export(id string, target sweep.Format) (*sweep.Export, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	fs, err := s.loaded(id)
	if err != nil {
		return nil, err
	}
	projected, err := sweep.Select(fs.Table, fs.Selection)
	if err != nil {
		return nil, err
	}
	return sweep.ExportTable(projected, target, fs.Name)
}

// Remove drops a file from the session.
func (s *Session) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	for i, fs := range s.files {
		if fs.ID == id {
			s.files = append(s.files[:i], s.files[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrFileNotFound, id)
}

// Reset discards every file.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.files = nil
}

// File returns a view of one file.
func (s *Session) File(id string) (FileView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	fs, err := s.find(id)
	if err != nil {
		return FileView{}, err
	}
	return fs.view(), nil
}

// Files returns views of every file in upload order.
func (s *Session) Files() []FileView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	views := make([]FileView, len(s.files))
	for i, fs := range s.files {
		views[i] = fs.view()
	}
	return views
}
