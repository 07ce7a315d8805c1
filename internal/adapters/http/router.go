package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
	"github.com/kirillkom/disclosure-grounding/internal/core/ports"
	"github.com/kirillkom/disclosure-grounding/internal/observability/metrics"
)

// RunLedgerExporter renders a run window as a spreadsheet attachment.
type RunLedgerExporter interface {
	WriteRunLedger(w io.Writer, runs []domain.Run) error
}

type Options struct {
	ServiceName       string
	RateLimitRPS      float64
	RateLimitBurst    int
	MaxInFlight       int
	BackpressureWait  time.Duration
	DefaultExportSpan time.Duration
	HTTPServerMetrics *metrics.HTTPServerMetrics
}

func (o Options) normalize() Options {
	out := o
	if out.ServiceName == "" {
		out.ServiceName = "disclosure-api"
	}
	if out.BackpressureWait <= 0 {
		out.BackpressureWait = 2 * time.Second
	}
	if out.DefaultExportSpan <= 0 {
		out.DefaultExportSpan = 7 * 24 * time.Hour
	}
	return out
}

type Router struct {
	drafter     ports.SectionDrafter
	reviewer    ports.ParagraphReviewer
	benchmarker ports.PeerBenchmarker
	ledger      ports.AuditLedger
	exporter    RunLedgerExporter
	opts        Options
}

func NewRouter(
	drafter ports.SectionDrafter,
	reviewer ports.ParagraphReviewer,
	benchmarker ports.PeerBenchmarker,
	ledger ports.AuditLedger,
	exporter RunLedgerExporter,
	opts Options,
) *Router {
	return &Router{
		drafter:     drafter,
		reviewer:    reviewer,
		benchmarker: benchmarker,
		ledger:      ledger,
		exporter:    exporter,
		opts:        opts.normalize(),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/draft", rt.draftSection)
	mux.HandleFunc("/v1/review", rt.reviewParagraph)
	mux.HandleFunc("/v1/benchmark", rt.benchmarkParagraph)
	mux.HandleFunc("/v1/runs", rt.listRuns)
	mux.HandleFunc("/v1/runs/export", rt.exportRuns)
	mux.HandleFunc("/v1/runs/", rt.getRunByID)
	if rt.opts.HTTPServerMetrics != nil {
		mux.Handle("/metrics", rt.opts.HTTPServerMetrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, rt.opts.BackpressureWait)
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	if rt.opts.HTTPServerMetrics != nil {
		handler = rt.opts.HTTPServerMetrics.Middleware(rt.opts.ServiceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) draftSection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req ports.DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	result, err := rt.drafter.DraftSection(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) reviewParagraph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req ports.ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	result, err := rt.reviewer.ReviewParagraph(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) benchmarkParagraph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req ports.BenchmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	result, err := rt.benchmarker.BenchmarkParagraph(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) getRunByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "run id is required"})
		return
	}

	run, err := rt.ledger.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (rt *Router) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	from, to, err := rt.parseWindow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	runs, err := rt.ledger.ListRuns(r.Context(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (rt *Router) exportRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	from, to, err := rt.parseWindow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	runs, err := rt.ledger.ListRuns(r.Context(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}

	filename := fmt.Sprintf("runs_%s_%s.xlsx", from.Format("20060102"), to.Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := rt.exporter.WriteRunLedger(w, runs); err != nil {
		// Headers may already be out; log-worthy, not recoverable.
		writeError(w, err)
	}
}

func (rt *Router) parseWindow(r *http.Request) (time.Time, time.Time, error) {
	to := time.Now().UTC()
	from := to.Add(-rt.opts.DefaultExportSpan)

	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := parseTimeParam(raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid 'to' parameter: %w", err)
		}
		to = parsed
		from = to.Add(-rt.opts.DefaultExportSpan)
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := parseTimeParam(raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid 'from' parameter: %w", err)
		}
		from = parsed
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("'from' must be before 'to'")
	}
	return from, to, nil
}

func parseTimeParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
