package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/datasweeper/internal/sweep"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingGauge struct {
	mu   sync.Mutex
	last float64
}

func (g *recordingGauge) Set(v float64) {
	g.mu.Lock()
	g.last = v
	g.mu.Unlock()
}

func (g *recordingGauge) Value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

func upload(name, content string) sweep.UploadedFile {
	return sweep.UploadedFile{Name: name, Data: []byte(content)}
}

func TestSessionAddKeepsFailedFiles(t *testing.T) {
	sess := NewStore(Options{}).Create()

	good, err := sess.Add(upload("a.csv", "x,y\n1,2\n"))
	require.NoError(t, err)
	assert.False(t, good.Failed())
	assert.Equal(t, 1, good.Inspection.Metrics.Rows)

	bad, err := sess.Add(upload("notes.txt", "hello"))
	require.NoError(t, err)
	assert.True(t, bad.Failed())
	assert.ErrorIs(t, bad.Err, sweep.ErrUnsupportedFormat)
	assert.Nil(t, bad.Projected)

	files := sess.Files()
	require.Len(t, files, 2)
	assert.Equal(t, "a.csv", files[0].Name)
	assert.Equal(t, "notes.txt", files[1].Name)
	assert.NotEqual(t, files[0].ID, files[1].ID)
}

func TestSessionMaxFiles(t *testing.T) {
	sess := NewStore(Options{MaxFiles: 1}).Create()

	_, err := sess.Add(upload("a.csv", "x\n1\n"))
	require.NoError(t, err)

	_, err = sess.Add(upload("b.csv", "x\n1\n"))
	assert.ErrorIs(t, err, ErrTooManyFiles)
	assert.Equal(t, 1, sess.Len())
}

func TestSessionAddAllIsAllOrNothing(t *testing.T) {
	sess := NewStore(Options{MaxFiles: 2}).Create()

	_, err := sess.Add(upload("a.csv", "x\n1\n"))
	require.NoError(t, err)

	batch := []Upload{
		{Name: "b.csv", File: upload("b.csv", "x\n2\n")},
		{Name: "c.csv", File: upload("c.csv", "x\n3\n")},
	}
	views, err := sess.AddAll(batch, nil)
	assert.ErrorIs(t, err, ErrTooManyFiles)
	assert.Nil(t, views)
	assert.Equal(t, 1, sess.Len(), "no file of a rejected batch is kept")

	var observed []string
	views, err = sess.AddAll(batch[:1], func(v FileView, _ time.Duration) {
		observed = append(observed, v.Name)
	})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, []string{"b.csv"}, observed)
	assert.Equal(t, 2, sess.Len())
}

func TestSessionAddAllKeepsRejectedUploads(t *testing.T) {
	sess := NewStore(Options{}).Create()
	tooBig := errors.New("too big")

	views, err := sess.AddAll([]Upload{
		{Name: "big.csv", Size: 99, Err: tooBig},
		{Name: "ok.csv", File: upload("ok.csv", "x\n1\n")},
	}, nil)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.ErrorIs(t, views[0].Err, tooBig)
	assert.Equal(t, int64(99), views[0].Size)
	assert.False(t, views[1].Failed())
}

func TestSessionCleanSelectExport(t *testing.T) {
	sess := NewStore(Options{}).Create()
	v, err := sess.Add(upload("sales.csv", "a,b,c\n1,2,x\n1,2,x\n3,,y\n"))
	require.NoError(t, err)

	res, err := sess.Apply(v.ID, sweep.ActionRemoveDuplicates)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)

	_, err = sess.Apply(v.ID, sweep.ActionFillMissing)
	require.NoError(t, err)

	require.NoError(t, sess.SetSelection(v.ID, []string{"b", "a"}))
	require.NoError(t, sess.SetChart(v.ID, true))

	got, err := sess.File(v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Missing values have been filled!", got.Notice)
	assert.Equal(t, 2, got.Inspection.Metrics.Rows)
	assert.Equal(t, []string{"a", "b", "c"}, got.Columns)
	assert.Equal(t, []string{"b", "a"}, got.Projected.ColumnNames())
	assert.True(t, got.Selected("a"))
	assert.False(t, got.Selected("c"))
	require.NotNil(t, got.Chart)
	require.NotNil(t, got.Chart.Chart)
	assert.Equal(t, "b", got.Chart.Chart.Series[0].Name)

	exp, err := sess.Export(v.ID, sweep.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "sales.csv", exp.FileName)
	assert.Equal(t, "b,a\n2,1\n2,3\n", string(exp.Data))
}

func TestSessionRejectsUnknownColumns(t *testing.T) {
	sess := NewStore(Options{}).Create()
	v, err := sess.Add(upload("a.csv", "x,y\n1,2\n"))
	require.NoError(t, err)
	require.NoError(t, sess.SetSelection(v.ID, []string{"y"}))

	err = sess.SetSelection(v.ID, []string{"nope"})
	assert.ErrorIs(t, err, sweep.ErrInvalidColumn)

	got, err := sess.File(v.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, got.Selection)
}

func TestSessionAddFailed(t *testing.T) {
	sess := NewStore(Options{MaxFiles: 1}).Create()
	cause := errors.New("file too large")

	v, err := sess.AddFailed("big.xlsx", 1<<30, cause)
	require.NoError(t, err)
	assert.True(t, v.Failed())
	assert.Equal(t, sweep.FormatXLSX, v.Format)
	assert.Equal(t, int64(1<<30), v.Size)

	err = sess.SetChart(v.ID, true)
	assert.ErrorIs(t, err, ErrFileFailed)
	assert.ErrorIs(t, err, cause)

	_, err = sess.AddFailed("more.csv", 1, cause)
	assert.ErrorIs(t, err, ErrTooManyFiles)
}

func TestSessionActionsOnFailedFile(t *testing.T) {
	sess := NewStore(Options{}).Create()
	v, err := sess.Add(upload("a.txt", "x"))
	require.NoError(t, err)

	_, err = sess.Apply(v.ID, sweep.ActionFillMissing)
	assert.ErrorIs(t, err, ErrFileFailed)
	assert.ErrorIs(t, err, sweep.ErrUnsupportedFormat)

	_, err = sess.Export(v.ID, sweep.FormatCSV)
	assert.ErrorIs(t, err, ErrFileFailed)
}

func TestSessionRemoveAndReset(t *testing.T) {
	sess := NewStore(Options{}).Create()
	a, _ := sess.Add(upload("a.csv", "x\n1\n"))
	_, _ = sess.Add(upload("b.csv", "x\n2\n"))

	require.NoError(t, sess.Remove(a.ID))
	assert.ErrorIs(t, sess.Remove(a.ID), ErrFileNotFound)
	_, err := sess.File(a.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.Equal(t, 1, sess.Len())

	sess.Reset()
	assert.Empty(t, sess.Files())
}

func TestSessionsAreIndependent(t *testing.T) {
	store := NewStore(Options{})
	s1 := store.Create()
	s2 := store.Create()

	v, err := s1.Add(upload("a.csv", "x\n1\n1\n"))
	require.NoError(t, err)

	_, err = s2.Apply(v.ID, sweep.ActionRemoveDuplicates)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.Empty(t, s2.Files())
}

func TestSessionConcurrentUse(t *testing.T) {
	sess := NewStore(Options{}).Create()
	v, err := sess.Add(upload("a.csv", "x,y\n1,\n1,\n2,3\n"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = sess.Apply(v.ID, sweep.ActionRemoveDuplicates)
			} else {
				_ = sess.Files()
			}
		}(i)
	}
	wg.Wait()

	got, err := sess.File(v.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Inspection.Metrics.Rows)
}

func TestStoreExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	gauge := &recordingGauge{}
	store := NewStore(Options{IdleTimeout: time.Minute, Now: clock.Now, Active: gauge})

	old := store.Create()
	clock.Advance(45 * time.Second)
	fresh := store.Create()
	assert.Equal(t, 2.0, gauge.Value())

	clock.Advance(30 * time.Second)

	_, err := store.Get(old.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	got, err := store.Get(fresh.ID)
	require.NoError(t, err)
	assert.Same(t, fresh, got)

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1.0, gauge.Value())
}

func TestStoreGetOrCreate(t *testing.T) {
	store := NewStore(Options{})

	s1, created := store.GetOrCreate("")
	assert.True(t, created)

	s2, created := store.GetOrCreate(s1.ID)
	assert.False(t, created)
	assert.Same(t, s1, s2)

	s3, created := store.GetOrCreate("unknown")
	assert.True(t, created)
	assert.NotEqual(t, s1.ID, s3.ID)

	store.Delete(s1.ID)
	_, err := store.Get(s1.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
