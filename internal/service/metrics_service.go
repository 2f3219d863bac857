package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/coursetrack-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic,
// import batches and the report cache.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	uploadSize      *prometheus.HistogramVec
	importBatches   *prometheus.CounterVec
	importRows      *prometheus.CounterVec
	importDuration  *prometheus.HistogramVec
	reportLookups   *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	uploadSize := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_upload_size_bytes",
		Help:    "Size of POST request bodies in bytes",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	}, []string{"path"})

	importBatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulk_import_batches_total",
		Help: "Import batches by kind and terminal outcome",
	}, []string{"kind", "outcome"})

	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulk_import_rows_total",
		Help: "Processed import rows by kind and verdict",
	}, []string{"kind", "result"})

	importDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bulk_import_duration_seconds",
		Help:    "Wall time spent processing an import batch",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"kind"})

	reportLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "import_report_lookups_total",
		Help: "Import report cache lookups by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, uploadSize, importBatches, importRows, importDuration, reportLookups, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		uploadSize:      uploadSize,
		importBatches:   importBatches,
		importRows:      importRows,
		importDuration:  importDuration,
		reportLookups:   reportLookups,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveUploadSize records the declared size of a request body.
func (m *MetricsService) ObserveUploadSize(path string, size int64) {
	if m == nil {
		return
	}
	m.uploadSize.WithLabelValues(path).Observe(float64(size))
}

// ObserveImport records the terminal outcome of one batch.
func (m *MetricsService) ObserveImport(result models.ImportResult) {
	if m == nil {
		return
	}
	kind := string(result.Kind)
	outcome := string(result.State)
	if result.FailureType != "" {
		outcome = string(result.FailureType)
	} else if result.DryRun {
		outcome = "dry_run"
	}
	m.importBatches.WithLabelValues(kind, outcome).Inc()

	var valid, invalid int
	for _, o := range result.Outcomes {
		if o.Valid() {
			valid++
		} else {
			invalid++
		}
	}
	m.importRows.WithLabelValues(kind, "valid").Add(float64(valid))
	m.importRows.WithLabelValues(kind, "invalid").Add(float64(invalid))

	if !result.FinishedAt.IsZero() {
		m.importDuration.WithLabelValues(kind).Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())
	}
}

// RecordReportLookup counts report cache hits and misses.
func (m *MetricsService) RecordReportLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.reportLookups.WithLabelValues(result).Inc()
}
