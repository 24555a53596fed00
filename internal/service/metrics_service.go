package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// report generation pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	reportsTotal    *prometheus.CounterVec
	renderDuration  prometheus.Observer
	renderInFlight  prometheus.Gauge
	attributeWrites *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
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

	reportsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_generations_total",
		Help: "Report generation attempts by outcome",
	}, []string{"template_code", "outcome"})

	renderDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "report_render_duration_seconds",
		Help:    "Wall time of the HTML to PDF rasterization step",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
	})

	renderInFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "report_renders_in_flight",
		Help: "Renderer pool slots currently held",
	})

	attributeWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attribute_writes_total",
		Help: "Dynamic attribute writes by outcome",
	}, []string{"outcome"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "template_cache_lookups_total",
		Help: "Template cache lookups by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, reportsTotal, renderDuration, renderInFlight, attributeWrites, cacheLookups, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		reportsTotal:    reportsTotal,
		renderDuration:  renderDuration,
		renderInFlight:  renderInFlight,
		attributeWrites: attributeWrites,
		cacheLookups:    cacheLookups,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordReportGeneration counts one generation attempt by outcome.
func (m *MetricsService) RecordReportGeneration(templateCode, outcome string) {
	if m == nil {
		return
	}
	m.reportsTotal.WithLabelValues(templateCode, outcome).Inc()
}

// ObserveRender tracks rasterization wall time.
func (m *MetricsService) ObserveRender(duration time.Duration) {
	if m == nil {
		return
	}
	m.renderDuration.Observe(duration.Seconds())
}

// RenderSlotAcquired increments the in-flight gauge when a pool slot is held.
func (m *MetricsService) RenderSlotAcquired() {
	if m == nil {
		return
	}
	m.renderInFlight.Inc()
}

// RenderSlotReleased decrements the in-flight gauge.
func (m *MetricsService) RenderSlotReleased() {
	if m == nil {
		return
	}
	m.renderInFlight.Dec()
}

// RecordTemplateCacheLookup counts one template cache lookup by result.
func (m *MetricsService) RecordTemplateCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// RecordAttributeWrite counts one attribute write by outcome.
func (m *MetricsService) RecordAttributeWrite(outcome string) {
	if m == nil {
		return
	}
	m.attributeWrites.WithLabelValues(outcome).Inc()
}
