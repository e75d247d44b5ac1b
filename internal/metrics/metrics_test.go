package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveIngest(t *testing.T) {
	m := New()

	m.ObserveIngest("csv", 2048, 5*time.Millisecond, "")
	m.ObserveIngest("csv", 1024, time.Millisecond, "")
	m.ObserveIngest("", 10, 0, "FMT001")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FilesIngested.WithLabelValues("csv")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FileErrors.WithLabelValues("FMT001")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.IngestDuration))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ActiveSessions.Set(3)
	m.Exports.WithLabelValues("xlsx").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(text, "sweeper_active_sessions 3"), text)
	assert.True(t, strings.Contains(text, `sweeper_exports_total{format="xlsx"} 1`), text)
	assert.True(t, strings.Contains(text, "go_goroutines"), text)
}
