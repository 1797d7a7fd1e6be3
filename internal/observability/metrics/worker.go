package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fabworks/partquote/internal/core/domain"
)

// WorkerMetrics instruments the analysis worker. It implements
// ports.AnalysisObserver so the analyze use case can report outcomes
// without knowing about Prometheus.
type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	analysisTotal   *prometheus.CounterVec
	fallbackTotal   *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pq",
			Subsystem: "worker",
			Name:      "part_process_total",
			Help:      "Total processed parts by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pq",
			Subsystem: "worker",
			Name:      "part_process_duration_seconds",
			Help:      "Part analysis duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pq",
			Subsystem: "worker",
			Name:      "part_process_in_flight",
			Help:      "Number of in-flight part analyses.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	analysisTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pq",
			Subsystem: "analysis",
			Name:      "results_total",
			Help:      "Total analysis results by method and cache reuse.",
		},
		[]string{"service", "method", "cache"},
	)
	fallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pq",
			Subsystem: "analysis",
			Name:      "fallbacks_total",
			Help:      "Total heuristic fallbacks by reason.",
		},
		[]string{"service", "reason"},
	)

	registry.MustRegister(
		processTotal,
		processDuration,
		processInFlight,
		analysisTotal,
		fallbackTotal,
	)

	return &WorkerMetrics{
		registry:        registry,
		service:         service,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		analysisTotal:   analysisTotal,
		fallbackTotal:   fallbackTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartPart() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishPart(duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(m.service, status).Inc()
	m.processDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveAnalysis(method domain.AnalysisMethod, cacheHit bool) {
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	m.analysisTotal.WithLabelValues(m.service, string(method), cache).Inc()
}

func (m *WorkerMetrics) ObserveFallback(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.fallbackTotal.WithLabelValues(m.service, reason).Inc()
}
