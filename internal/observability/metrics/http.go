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

	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	retrievedChunks *prometheus.HistogramVec
	issuesTotal     *prometheus.CounterVec
	repairsTotal    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dg",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dg",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dg",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dg",
			Subsystem: "audit",
			Name:      "runs_total",
			Help:      "Total closed runs by kind and outcome.",
		},
		[]string{"service", "kind", "outcome"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dg",
			Subsystem: "audit",
			Name:      "run_duration_seconds",
			Help:      "Run duration from open to close in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "kind"},
	)
	retrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dg",
			Subsystem: "retrieval",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per run.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service", "kind"},
	)
	issuesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dg",
			Subsystem: "review",
			Name:      "issues_total",
			Help:      "Total review issues raised by issue kind.",
		},
		[]string{"service", "issue_kind"},
	)
	repairsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dg",
			Subsystem: "draft",
			Name:      "citation_repairs_total",
			Help:      "Total citation repair passes by result.",
		},
		[]string{"service", "result"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		runsTotal,
		runDuration,
		retrievedChunks,
		issuesTotal,
		repairsTotal,
	)

	return &HTTPServerMetrics{
		registry:        registry,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		runsTotal:       runsTotal,
		runDuration:     runDuration,
		retrievedChunks: retrievedChunks,
		issuesTotal:     issuesTotal,
		repairsTotal:    repairsTotal,
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
	case strings.HasPrefix(path, "/v1/runs/") && path != "/v1/runs/export":
		return "/v1/runs/{run_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordRunClosed(service, kind, outcome string, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.runsTotal.WithLabelValues(service, kind, outcome).Inc()
	m.runDuration.WithLabelValues(service, kind).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordRetrievedChunks(service, kind string, count int) {
	m.retrievedChunks.WithLabelValues(service, kind).Observe(float64(count))
}

func (m *HTTPServerMetrics) RecordIssues(service string, byKind map[string]int) {
	for kind, count := range byKind {
		if count <= 0 {
			continue
		}
		m.issuesTotal.WithLabelValues(service, kind).Add(float64(count))
	}
}

func (m *HTTPServerMetrics) RecordCitationRepair(service, result string) {
	if result == "" {
		result = "unknown"
	}
	m.repairsTotal.WithLabelValues(service, result).Inc()
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
