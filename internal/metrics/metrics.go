// Package metrics exposes Prometheus collectors for the sweeper pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sweeper"

// Metrics holds every collector the server updates. Create one with New and
// share it; the zero value is not usable.
type Metrics struct {
	registry *prometheus.Registry

	FilesIngested  *prometheus.CounterVec
	FileErrors     *prometheus.CounterVec
	CleanActions   *prometheus.CounterVec
	Exports        *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
	IngestDuration *prometheus.HistogramVec
	UploadBytes    prometheus.Histogram
}

// New registers the collectors on a fresh registry, along with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		FilesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_ingested_total",
			Help:      "Files successfully parsed, by format.",
		}, []string{"format"}),
		FileErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_errors_total",
			Help:      "File-scoped pipeline failures, by error code.",
		}, []string{"code"}),
		CleanActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleaning_actions_total",
			Help:      "Cleaning actions applied, by action.",
		}, []string{"action"}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Exports produced, by target format.",
		}, []string{"format"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		}),
		IngestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Time spent parsing one uploaded file.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"format"}),
		UploadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_bytes",
			Help:      "Size of uploaded files as received.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.FilesIngested,
		m.FileErrors,
		m.CleanActions,
		m.Exports,
		m.ActiveSessions,
		m.IngestDuration,
		m.UploadBytes,
	)
	return m
}

// Registry returns the registry backing Handler, for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveIngest records one ingest attempt. code is empty on success.
func (m *Metrics) ObserveIngest(format string, size int64, took time.Duration, code string) {
	m.UploadBytes.Observe(float64(size))
	if code != "" {
		m.FileErrors.WithLabelValues(code).Inc()
		return
	}
	m.FilesIngested.WithLabelValues(format).Inc()
	m.IngestDuration.WithLabelValues(format).Observe(took.Seconds())
}
