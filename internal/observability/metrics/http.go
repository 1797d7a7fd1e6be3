package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	uploadsTotal       *prometheus.CounterVec
	quotesTotal        *prometheus.CounterVec
	quoteWarningsTotal *prometheus.CounterVec
	quoteUnitPrice     *prometheus.HistogramVec
	exportsTotal       *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pq",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pq",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pq",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pq",
			Subsystem: "parts",
			Name:      "uploads_total",
			Help:      "Total part uploads by outcome.",
		},
		[]string{"service", "status"},
	)
	quotesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pq",
			Subsystem: "quotes",
			Name:      "requests_total",
			Help:      "Total quote requests by outcome.",
		},
		[]string{"service", "status"},
	)
	quoteWarningsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pq",
			Subsystem: "quotes",
			Name:      "warnings_total",
			Help:      "Total audit warnings attached to delivered quotes.",
		},
		[]string{"service", "kind"},
	)
	quoteUnitPrice := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pq",
			Subsystem: "quotes",
			Name:      "unit_price_usd",
			Help:      "Distribution of quoted unit prices.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"service"},
	)
	exportsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pq",
			Subsystem: "quotes",
			Name:      "exports_total",
			Help:      "Total quote workbook exports by outcome.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		uploadsTotal,
		quotesTotal,
		quoteWarningsTotal,
		quoteUnitPrice,
		exportsTotal,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		uploadsTotal:       uploadsTotal,
		quotesTotal:        quotesTotal,
		quoteWarningsTotal: quoteWarningsTotal,
		quoteUnitPrice:     quoteUnitPrice,
		exportsTotal:       exportsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/parts/"):
		return "/v1/parts/{part_id}"
	case strings.HasPrefix(path, "/v1/quotes/") && strings.HasSuffix(path, "/export"):
		return "/v1/quotes/{quote_id}/export"
	case strings.HasPrefix(path, "/v1/quotes/"):
		return "/v1/quotes/{quote_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordPartUpload(service string, err error) {
	m.uploadsTotal.WithLabelValues(service, outcome(err)).Inc()
}

func (m *HTTPServerMetrics) RecordQuote(service string, err error) {
	m.quotesTotal.WithLabelValues(service, outcome(err)).Inc()
}

func (m *HTTPServerMetrics) RecordQuoteWarning(service, kind string) {
	if kind == "" {
		kind = "unknown"
	}
	m.quoteWarningsTotal.WithLabelValues(service, kind).Inc()
}

func (m *HTTPServerMetrics) ObserveQuoteUnitPrice(service string, unitPrice float64) {
	m.quoteUnitPrice.WithLabelValues(service).Observe(unitPrice)
}

func (m *HTTPServerMetrics) RecordQuoteExport(service string, err error) {
	m.exportsTotal.WithLabelValues(service, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
