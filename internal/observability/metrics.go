package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for ResumeTruth
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Extraction metrics
	extractionsTotal   *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
	tierOutcomesTotal  *prometheus.CounterVec
	tierDuration       *prometheus.HistogramVec
	pagesOCRedTotal    prometheus.Counter
	resultCharacters   prometheus.Histogram
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resumetruth_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "resumetruth_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 15, 30, 60, 120},
			},
			[]string{"method", "path", "status"},
		),
		httpRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "resumetruth_http_requests_in_flight",
				Help: "Number of HTTP requests currently being served",
			},
		),
		extractionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resumetruth_extractions_total",
				Help: "Total number of document extraction requests",
			},
			[]string{"media_type", "status"},
		),
		extractionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "resumetruth_extraction_duration_seconds",
				Help:    "End-to-end extraction latency in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60, 120},
			},
			[]string{"media_type"},
		),
		tierOutcomesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resumetruth_tier_outcomes_total",
				Help: "Extraction tier attempts by outcome",
			},
			[]string{"tier", "outcome"},
		),
		tierDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "resumetruth_tier_duration_seconds",
				Help:    "Per-tier latency in seconds",
				Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60},
			},
			[]string{"tier"},
		),
		pagesOCRedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "resumetruth_pages_ocred_total",
				Help: "Total number of pages recognized by the local OCR tier",
			},
		),
		resultCharacters: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "resumetruth_result_characters",
				Help:    "Character count of returned extraction results",
				Buckets: prometheus.ExponentialBuckets(100, 4, 8),
			},
		),
	}
}

// ObserveTier records one extraction tier attempt. Implements the pipeline's
// metrics sink.
func (m *Metrics) ObserveTier(tier, outcome string, seconds float64) {
	m.tierOutcomesTotal.WithLabelValues(tier, outcome).Inc()
	m.tierDuration.WithLabelValues(tier).Observe(seconds)
}

// AddPagesOCRed counts pages recognized by the local OCR tier.
func (m *Metrics) AddPagesOCRed(count int) {
	m.pagesOCRedTotal.Add(float64(count))
}

// RecordExtraction records one completed extraction request.
func (m *Metrics) RecordExtraction(mediaType, status string, duration time.Duration, characters int) {
	m.extractionsTotal.WithLabelValues(mediaType, status).Inc()
	m.extractionDuration.WithLabelValues(mediaType).Observe(duration.Seconds())
	if status == "success" {
		m.resultCharacters.Observe(float64(characters))
	}
}

// MetricsMiddleware returns a Fiber middleware that collects HTTP metrics
func (m *Metrics) MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		m.httpRequestsInFlight.Inc()
		defer m.httpRequestsInFlight.Dec()

		path := normalizePath(c.Path())
		method := c.Method()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := statusClass(c.Response().StatusCode())

		m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)

		return err
	}
}

// Handler returns a Fiber handler that exposes Prometheus metrics
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// normalizePath keeps metric label cardinality bounded.
func normalizePath(path string) string {
	if len(path) > 50 {
		return "long_path"
	}
	return path
}

// statusClass returns the HTTP status class (2xx, 3xx, 4xx, 5xx)
func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
