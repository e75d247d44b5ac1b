package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/datasweeper/internal/config"
	"github.com/JonMunkholm/datasweeper/internal/metrics"
	"github.com/JonMunkholm/datasweeper/internal/session"
	"github.com/JonMunkholm/datasweeper/internal/web/templates"
)

const salesCSV = "a,b,c\n1,2,x\n1,2,x\n3,,y\n"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Upload: config.UploadConfig{
			MaxFileSize:   1 << 20,
			MaxFiles:      3,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
		},
		Session: config.SessionConfig{
			IdleTimeout: time.Minute,
			MaxFiles:    10,
			CookieName:  "sweeper_session",
		},
		Chart:    config.ChartConfig{MaxBars: 500},
		Security: config.SecurityConfig{EnableCSP: true},
		Metrics:  config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

type testEnv struct {
	t       *testing.T
	handler http.Handler
	metrics *metrics.Metrics
	cookies []*http.Cookie
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testConfig()
	for _, fn := range mutate {
		fn(cfg)
	}
	m := metrics.New()
	store := session.NewStore(session.Options{
		IdleTimeout: cfg.Session.IdleTimeout,
		MaxFiles:    cfg.Session.MaxFiles,
		Active:      m.ActiveSessions,
	})
	limiter := session.NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	srv := NewServer(cfg, store, limiter, m)
	return &testEnv{t: t, handler: srv.Router(), metrics: m}
}

// fork returns a client sharing the server but not the session.
func (e *testEnv) fork() *testEnv {
	return &testEnv{t: e.t, handler: e.handler, metrics: e.metrics}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	e.t.Helper()
	for _, c := range e.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		e.cookies = cookies
	}
	return rec
}

func (e *testEnv) get(target string) *httptest.ResponseRecorder {
	return e.do(httptest.NewRequest(http.MethodGet, target, nil))
}

func (e *testEnv) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

type part struct {
	name    string
	content string
}

func multipartRequest(t *testing.T, target string, files []part, fields url.Values) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		fw, err := mw.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.content))
		require.NoError(t, err)
	}
	for key, values := range fields {
		for _, v := range values {
			require.NoError(t, mw.WriteField(key, v))
		}
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (e *testEnv) upload(files ...part) *httptest.ResponseRecorder {
	return e.do(multipartRequest(e.t, "/upload", files, nil))
}

type apiFile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Format  string `json:"format"`
	Metrics *struct {
		Rows    int `json:"rows"`
		Columns int `json:"columns"`
	} `json:"metrics"`
	Columns   []string `json:"columns"`
	Selection []string `json:"selection"`
	Preview   *struct {
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	} `json:"preview"`
	Notice string         `json:"notice"`
	Error  *ErrorResponse `json:"error"`
}

func (e *testEnv) files() []apiFile {
	e.t.Helper()
	rec := e.get("/api/files")
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Files []apiFile `json:"files"`
	}
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Files
}

// uploadOne uploads content and returns the new file's ID.
func (e *testEnv) uploadOne(name, content string) string {
	e.t.Helper()
	rec := e.upload(part{name, content})
	require.Equal(e.t, http.StatusSeeOther, rec.Code, rec.Body.String())
	files := e.files()
	require.NotEmpty(e.t, files)
	return files[len(files)-1].ID
}

func TestIndexWelcome(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), templates.WelcomeMessage)
	assert.Contains(t, rec.Body.String(), templates.Intro)
	require.Len(t, env.cookies, 1)
	assert.Equal(t, "sweeper_session", env.cookies[0].Name)
	assert.True(t, env.cookies[0].HttpOnly)
}

func TestUploadShowsEachFile(t *testing.T) {
	env := newTestEnv(t)

	rec := env.upload(part{"sales.csv", salesCSV}, part{"notes.txt", "hello"})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	page := env.get("/").Body.String()
	assert.Contains(t, page, "Process sales.csv")
	assert.Contains(t, page, "Data Preview")
	assert.Contains(t, page, "0.02 KB")
	assert.Contains(t, page, "Download sales.csv as CSV")
	assert.Contains(t, page, "Download sales.csv as Excel")
	assert.Contains(t, page, "Error processing notes.txt: Unsupported file type (.txt)")
	assert.Contains(t, page, "FMT001")
	assert.Contains(t, page, "Processed 2 files, 1 could not be read.")

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.FilesIngested.WithLabelValues("csv")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.FileErrors.WithLabelValues("FMT001")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ActiveSessions))
}

func TestUploadAllGood(t *testing.T) {
	env := newTestEnv(t)
	env.uploadOne("sales.csv", salesCSV)

	assert.Contains(t, env.get("/").Body.String(), "All files processed successfully!")
}

func TestUploadRequestErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(multipartRequest(t, "/upload", nil, url.Values{"x": {"1"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "FILE002")

	four := []part{{"a.csv", "x\n1\n"}, {"b.csv", "x\n1\n"}, {"c.csv", "x\n1\n"}, {"d.csv", "x\n1\n"}}
	rec = env.do(multipartRequest(t, "/upload", four, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "FILE003")
}

func TestUploadOversizedFileBecomesErrorCard(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Upload.MaxFileSize = 16 })

	rec := env.upload(part{"small.csv", "x\n1\n"}, part{"big.csv", strings.Repeat("x\n", 64)})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	files := env.files()
	require.Len(t, files, 2)
	assert.Nil(t, files[0].Error)
	require.NotNil(t, files[1].Error)
	assert.Equal(t, "FILE001", files[1].Error.Code)
}

func TestUploadOverSessionCapAddsNothing(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Session.MaxFiles = 2 })
	env.uploadOne("a.csv", "x\n1\n")

	rec := env.upload(part{"b.csv", "x\n2\n"}, part{"c.csv", "x\n3\n"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	files := env.files()
	require.Len(t, files, 1)
	assert.Equal(t, "a.csv", files[0].Name)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.FilesIngested.WithLabelValues("csv")))

	rec = env.upload(part{"b.csv", "x\n2\n"})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Len(t, env.files(), 2)
}

func TestCleanRemovesDuplicates(t *testing.T) {
	env := newTestEnv(t)
	id := env.uploadOne("sales.csv", salesCSV)

	rec := env.postForm("/files/"+id+"/clean", url.Values{"action": {"remove_duplicates"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/#file-"+id, rec.Header().Get("Location"))

	page := env.get("/").Body.String()
	assert.Contains(t, page, "Removed 1 duplicate rows!")

	files := env.files()
	require.NotNil(t, files[0].Metrics)
	assert.Equal(t, 2, files[0].Metrics.Rows)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.CleanActions.WithLabelValues("remove_duplicates")))
}

func TestCleanFillMissingJSON(t *testing.T) {
	env := newTestEnv(t)
	id := env.uploadOne("sales.csv", salesCSV)

	req := httptest.NewRequest(http.MethodPost, "/files/"+id+"/clean", strings.NewReader("action=fill_missing"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var f apiFile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &f))
	assert.Equal(t, "Missing values have been filled!", f.Notice)
	require.NotNil(t, f.Preview)
	assert.Equal(t, []any{3.0, 2.0, "y"}, f.Preview.Rows[2])
}

func TestSelectColumnsAndDownloadCSV(t *testing.T) {
	env := newTestEnv(t)
	id := env.uploadOne("sales.csv", salesCSV)

	rec := env.postForm("/files/"+id+"/columns", url.Values{"columns": {"b", "a"}})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	rec = env.get("/files/" + id + "/download?format=csv")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=sales.csv`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "b,a\n2,1\n2,1\n,3\n", rec.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Exports.WithLabelValues("csv")))
}

func TestDownloadExcel(t *testing.T) {
	env := newTestEnv(t)
	id := env.uploadOne("sales.csv", salesCSV)

	rec := env.get("/files/" + id + "/download?format=xlsx")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=sales.xlsx`, rec.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"a", "b", "c"}, rows[0])
}

func TestChartToggle(t *testing.T) {
	env := newTestEnv(t)
	id := env.uploadOne("sales.csv", salesCSV)

	rec := env.postForm("/files/"+id+"/chart", url.Values{"show": {"true"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	page := env.get("/").Body.String()
	assert.Contains(t, page, "<svg")
	assert.Contains(t, page, "Hide visualization for sales.csv")

	rec = env.get("/api/files/" + id + "/chart")
	require.Equal(t, http.StatusOK, rec.Code)
	var vis struct {
		Chart struct {
			Index  []int `json:"index"`
			Series []struct {
				Name   string     `json:"name"`
				Values []*float64 `json:"values"`
			} `json:"series"`
		} `json:"chart"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vis))
	require.Len(t, vis.Chart.Series, 2)
	assert.Equal(t, "a", vis.Chart.Series[0].Name)
	assert.Nil(t, vis.Chart.Series[1].Values[2])
}

func TestChartNoNumericColumns(t *testing.T) {
	env := newTestEnv(t)
	id := env.uploadOne("names.csv", "name\nann\nbob\n")

	env.postForm("/files/"+id+"/chart", url.Values{"show": {"true"}})

	assert.Contains(t, env.get("/").Body.String(), "No numeric columns available for visualization")
}

func TestFileActionErrors(t *testing.T) {
	env := newTestEnv(t)
	id := env.uploadOne("sales.csv", salesCSV)
	missing := "2f1d7f8e-0d55-4d4e-9d5c-0d0f4e3b1a11"

	tests := []struct {
		name     string
		rec      func() *httptest.ResponseRecorder
		wantCode int
		wantText string
	}{
		{
			name:     "unknown action",
			rec:      func() *httptest.ResponseRecorder { return env.postForm("/files/"+id+"/clean", url.Values{"action": {"explode"}}) },
			wantCode: http.StatusBadRequest,
			wantText: "REQ001",
		},
		{
			name:     "unknown column",
			rec:      func() *httptest.ResponseRecorder { return env.postForm("/files/"+id+"/columns", url.Values{"columns": {"nope"}}) },
			wantCode: http.StatusUnprocessableEntity,
			wantText: "COL001",
		},
		{
			name:     "unknown format",
			rec:      func() *httptest.ResponseRecorder { return env.get("/files/" + id + "/download?format=pdf") },
			wantCode: http.StatusBadRequest,
			wantText: "REQ001",
		},
		{
			name:     "malformed file id",
			rec:      func() *httptest.ResponseRecorder { return env.postForm("/files/zzz/chart", url.Values{"show": {"true"}}) },
			wantCode: http.StatusBadRequest,
			wantText: "REQ001",
		},
		{
			name:     "missing file",
			rec:      func() *httptest.ResponseRecorder { return env.get("/files/" + missing + "/download?format=csv") },
			wantCode: http.StatusNotFound,
			wantText: "SES002",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.rec()
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantText)
		})
	}
}

func TestFailedFileRejectsActions(t *testing.T) {
	env := newTestEnv(t)
	id := env.uploadOne("broken.xlsx", "not a workbook")

	rec := env.get("/files/" + id + "/download?format=csv")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "PARSE001")
}

func TestSessionsAreIsolated(t *testing.T) {
	alice := newTestEnv(t)
	id := alice.uploadOne("sales.csv", salesCSV)

	bob := alice.fork()
	rec := bob.get("/files/" + id + "/download?format=csv")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, bob.files())
}

func TestRemoveAndReset(t *testing.T) {
	env := newTestEnv(t)
	a := env.uploadOne("a.csv", "x\n1\n")
	env.uploadOne("b.csv", "x\n2\n")

	rec := env.postForm("/files/"+a+"/remove", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	files := env.files()
	require.Len(t, files, 1)
	assert.Equal(t, "b.csv", files[0].Name)

	rec = env.postForm("/reset", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, env.files())
}

func TestConvertAPI(t *testing.T) {
	env := newTestEnv(t)
	fields := url.Values{
		"actions":   {"remove_duplicates,fill_missing"},
		"columns":   {"a", "b"},
		"format":    {"xlsx"},
		"visualize": {"true"},
	}
	req := multipartRequest(t, "/api/convert", []part{{"sales.csv", salesCSV}, {"notes.txt", "hi"}}, fields)
	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Results []struct {
			Name    string `json:"name"`
			Metrics *struct {
				Rows int `json:"rows"`
			} `json:"metrics"`
			Cleaning []struct {
				Action  string `json:"action"`
				Message string `json:"message"`
			} `json:"cleaning"`
			Columns []string `json:"columns"`
			Export  *struct {
				FileName string `json:"file_name"`
				MIMEType string `json:"mime_type"`
				Data     []byte `json:"data"`
			} `json:"export"`
			Error *ErrorResponse `json:"error"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)

	ok := resp.Results[0]
	assert.Nil(t, ok.Error)
	require.NotNil(t, ok.Metrics)
	assert.Equal(t, 3, ok.Metrics.Rows)
	require.Len(t, ok.Cleaning, 2)
	assert.Equal(t, "Removed 1 duplicate rows!", ok.Cleaning[0].Message)
	assert.Equal(t, []string{"a", "b"}, ok.Columns)
	require.NotNil(t, ok.Export)
	assert.Equal(t, "sales.xlsx", ok.Export.FileName)

	wb, err := excelize.OpenReader(bytes.NewReader(ok.Export.Data))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("Sheet1")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}, {"3", "2"}}, rows)

	bad := resp.Results[1]
	require.NotNil(t, bad.Error)
	assert.Equal(t, "FMT001", bad.Error.Code)
}

func TestConvertAPIValidation(t *testing.T) {
	env := newTestEnv(t)

	req := multipartRequest(t, "/api/convert", []part{{"sales.csv", salesCSV}}, url.Values{"format": {"pdf"}})
	rec := env.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "REQ001", resp.Code)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2, UploadLimit: 1}
	})

	assert.Equal(t, http.StatusOK, env.get("/").Code)
	assert.Equal(t, http.StatusOK, env.get("/").Code)

	rec := env.get("/")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE001")

	// health checks are not limited
	assert.Equal(t, http.StatusOK, env.get("/healthz").Code)
}

func TestMetricsEndpointAuth(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Metrics.Tokens = []string{"s3cret"} })

	assert.Equal(t, http.StatusUnauthorized, env.get("/metrics").Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusForbidden, env.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := env.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sweeper_active_sessions")
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t)

	rec := env.get("/static/app.css")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".preview")
}
