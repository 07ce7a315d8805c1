package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	staleOpenRuns prometheus.Gauge
	sweepTotal    *prometheus.CounterVec
	sweepDuration *prometheus.HistogramVec
	eventsTotal   *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	staleOpenRuns := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dg",
			Subsystem: "worker",
			Name:      "stale_open_runs",
			Help:      "Open runs older than the staleness threshold at last sweep.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	sweepTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dg",
			Subsystem: "worker",
			Name:      "stale_sweep_total",
			Help:      "Total staleness sweeps by status.",
		},
		[]string{"service", "status"},
	)
	sweepDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dg",
			Subsystem: "worker",
			Name:      "stale_sweep_duration_seconds",
			Help:      "Staleness sweep duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dg",
			Subsystem: "worker",
			Name:      "run_events_total",
			Help:      "Total consumed run events by status.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(staleOpenRuns, sweepTotal, sweepDuration, eventsTotal)

	return &WorkerMetrics{
		registry:      registry,
		staleOpenRuns: staleOpenRuns,
		sweepTotal:    sweepTotal,
		sweepDuration: sweepDuration,
		eventsTotal:   eventsTotal,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) RecordSweep(service string, staleCount int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	} else {
		m.staleOpenRuns.Set(float64(staleCount))
	}
	m.sweepTotal.WithLabelValues(service, status).Inc()
	m.sweepDuration.WithLabelValues(service).Observe(duration.Seconds())
}

func (m *WorkerMetrics) RecordRunEvent(service string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.eventsTotal.WithLabelValues(service, status).Inc()
}
