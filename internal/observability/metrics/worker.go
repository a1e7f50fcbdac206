package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	persistTotal    *prometheus.CounterVec
	persistDuration *prometheus.HistogramVec
	persistInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	persistTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "analysis_persist_total",
			Help:      "Total persisted analysis records by status.",
		},
		[]string{"service", "status"},
	)
	persistDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "analysis_persist_duration_seconds",
			Help:      "Analysis record persistence duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	persistInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "analysis_persist_in_flight",
			Help:      "Number of in-flight analysis persistence tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between analysis completion and persistence start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(persistTotal, persistDuration, persistInFlight, queueLag)

	return &WorkerMetrics{
		registry:        registry,
		persistTotal:    persistTotal,
		persistDuration: persistDuration,
		persistInFlight: persistInFlight,
		queueLag:        queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartAnalysis() {
	m.persistInFlight.Inc()
}

func (m *WorkerMetrics) FinishAnalysis(service string, duration time.Duration, err error) {
	m.persistInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.persistTotal.WithLabelValues(service, status).Inc()
	m.persistDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}
