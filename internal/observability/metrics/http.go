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

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

const namespace = "mra"

// HTTPServerMetrics owns the API registry: request metrics plus the
// pipeline observations made while serving them.
type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
	rejectedTotal   *prometheus.CounterVec

	stageDuration  *prometheus.HistogramVec
	stageErrors    *prometheus.CounterVec
	verdictsTotal  *prometheus.CounterVec
	structureTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	rejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rejected_total",
			Help:      "Requests rejected by traffic control, by reason.",
		},
		[]string{"service", "reason"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each analysis pipeline stage.",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"service", "stage"},
	)
	stageErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_errors_total",
			Help:      "Failed analysis pipeline stages.",
		},
		[]string{"service", "stage"},
	)
	verdictsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "verdicts_total",
			Help:      "Risk verdicts by disease and level.",
		},
		[]string{"service", "disease_id", "risk_level"},
	)
	structureTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "structuring_total",
			Help:      "Structured extraction calls by provider and outcome.",
		},
		[]string{"service", "provider", "outcome"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		rejectedTotal,
		stageDuration,
		stageErrors,
		verdictsTotal,
		structureTotal,
	)

	return &HTTPServerMetrics{
		registry:        registry,
		service:         service,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		rejectedTotal:   rejectedTotal,
		stageDuration:   stageDuration,
		stageErrors:     stageErrors,
		verdictsTotal:   verdictsTotal,
		structureTotal:  structureTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *HTTPServerMetrics) Registry() *prometheus.Registry {
	return m.registry
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
	case path == "/v1/analyses/export.xlsx":
		return path
	case strings.HasPrefix(path, "/v1/analyses/"):
		return "/v1/analyses/{analysis_id}"
	case strings.HasPrefix(path, "/v1/predict/"):
		return "/v1/predict/{disease_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordRejected(reason string) {
	m.rejectedTotal.WithLabelValues(m.service, reason).Inc()
}

func (m *HTTPServerMetrics) ObserveStage(stage string, duration time.Duration, err error) {
	m.stageDuration.WithLabelValues(m.service, stage).Observe(duration.Seconds())
	if err != nil {
		m.stageErrors.WithLabelValues(m.service, stage).Inc()
	}
}

func (m *HTTPServerMetrics) ObserveVerdict(diseaseID domain.DiseaseID, level domain.RiskLevel) {
	m.verdictsTotal.WithLabelValues(m.service, diseaseID.String(), string(level)).Inc()
}

func (m *HTTPServerMetrics) ObserveStructuring(provider, outcome string) {
	if provider == "" {
		provider = "unknown"
	}
	m.structureTotal.WithLabelValues(m.service, strings.ToLower(provider), outcome).Inc()
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
