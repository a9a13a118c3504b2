package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation: HTTP request
// metrics plus counters for the sample lifecycle transitions.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	samplesSubmitted prometheus.Counter
	samplesApproved  prometheus.Counter
	samplesRejected  prometheus.Counter
	samplesArchived  prometheus.Counter
	exportsGenerated *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
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

	samplesSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "samples_submitted_total",
		Help: "Total rock samples submitted",
	})
	samplesApproved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "samples_approved_total",
		Help: "Total rock samples approved",
	})
	samplesRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "samples_rejected_total",
		Help: "Total rock samples rejected",
	})
	samplesArchived := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "samples_archived_total",
		Help: "Total rock samples archived",
	})
	exportsGenerated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exports_generated_total",
		Help: "Total export files generated by format",
	}, []string{"format"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal,
		samplesSubmitted, samplesApproved, samplesRejected, samplesArchived,
		exportsGenerated, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		samplesSubmitted: samplesSubmitted,
		samplesApproved:  samplesApproved,
		samplesRejected:  samplesRejected,
		samplesArchived:  samplesArchived,
		exportsGenerated: exportsGenerated,
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

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

func (m *MetricsService) SampleSubmitted() {
	if m != nil {
		m.samplesSubmitted.Inc()
	}
}

func (m *MetricsService) SampleApproved() {
	if m != nil {
		m.samplesApproved.Inc()
	}
}

func (m *MetricsService) SampleRejected() {
	if m != nil {
		m.samplesRejected.Inc()
	}
}

func (m *MetricsService) SampleArchived() {
	if m != nil {
		m.samplesArchived.Inc()
	}
}

// ExportGenerated records one finished export by output format.
func (m *MetricsService) ExportGenerated(format string) {
	if m != nil {
		m.exportsGenerated.WithLabelValues(format).Inc()
	}
}
