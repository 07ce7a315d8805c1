package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
	"github.com/kirillkom/disclosure-grounding/internal/core/ports"
)

type stubDrafter struct {
	result  *ports.DraftResult
	err     error
	lastReq ports.DraftRequest
}

func (s *stubDrafter) DraftSection(ctx context.Context, req ports.DraftRequest) (*ports.DraftResult, error) {
	s.lastReq = req
	return s.result, s.err
}

type stubReviewer struct {
	result *ports.ReviewResult
	err    error
}

func (s *stubReviewer) ReviewParagraph(ctx context.Context, req ports.ReviewRequest) (*ports.ReviewResult, error) {
	return s.result, s.err
}

type stubBenchmarker struct {
	result *ports.BenchmarkResult
	err    error
}

func (s *stubBenchmarker) BenchmarkParagraph(ctx context.Context, req ports.BenchmarkRequest) (*ports.BenchmarkResult, error) {
	return s.result, s.err
}

type stubLedger struct {
	run      *domain.Run
	runs     []domain.Run
	getErr   error
	listErr  error
	lastFrom time.Time
	lastTo   time.Time
}

func (s *stubLedger) StartRun(ctx context.Context, kind domain.RunKind, inputs map[string]string) (string, error) {
	return "", errors.New("not used")
}

func (s *stubLedger) AppendEvidence(ctx context.Context, runID string, chunkIDs ...string) error {
	return errors.New("not used")
}

func (s *stubLedger) EndRun(ctx context.Context, runID string, outputs map[string]string) error {
	return errors.New("not used")
}

func (s *stubLedger) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	return s.run, s.getErr
}

func (s *stubLedger) ListRuns(ctx context.Context, from, to time.Time) ([]domain.Run, error) {
	s.lastFrom, s.lastTo = from, to
	return s.runs, s.listErr
}

func (s *stubLedger) ListStaleOpenRuns(ctx context.Context, olderThan time.Duration) ([]domain.Run, error) {
	return nil, errors.New("not used")
}

type stubExporter struct {
	written int
}

func (s *stubExporter) WriteRunLedger(w io.Writer, runs []domain.Run) error {
	s.written = len(runs)
	_, err := w.Write([]byte("xlsx-bytes"))
	return err
}

type routerFixture struct {
	drafter     *stubDrafter
	reviewer    *stubReviewer
	benchmarker *stubBenchmarker
	ledger      *stubLedger
	exporter    *stubExporter
	handler     http.Handler
}

func newRouterFixture(opts Options) *routerFixture {
	f := &routerFixture{
		drafter:     &stubDrafter{},
		reviewer:    &stubReviewer{},
		benchmarker: &stubBenchmarker{},
		ledger:      &stubLedger{},
		exporter:    &stubExporter{},
	}
	f.handler = NewRouter(f.drafter, f.reviewer, f.benchmarker, f.ledger, f.exporter, opts).Handler()
	return f
}

func TestHealthz(t *testing.T) {
	f := newRouterFixture(Options{})
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestDraftEndpointReturnsResult(t *testing.T) {
	f := newRouterFixture(Options{})
	f.drafter.result = &ports.DraftResult{
		RunID: "run-1",
		Draft: domain.Draft{DraftID: "draft-1", Paragraphs: []domain.Paragraph{
			{Text: "Revenue grew.", Citations: []string{"c1"}},
		}},
		Coverage: domain.CoverageReport{Covered: true},
	}

	body := `{"tenant_id":"acme","user_id":"analyst-1","filing_version_id":"fv-1","section_key":"mdna"}`
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/draft", strings.NewReader(body)))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if f.drafter.lastReq.FilingVersionID != "fv-1" || f.drafter.lastReq.TenantID != "acme" {
		t.Fatalf("request did not reach the drafter: %+v", f.drafter.lastReq)
	}
	var decoded ports.DraftResult
	if err := json.Unmarshal(res.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if decoded.RunID != "run-1" || !decoded.Coverage.Covered {
		t.Fatalf("unexpected response: %+v", decoded)
	}
}

func TestDraftEndpointRejectsInvalidJSON(t *testing.T) {
	f := newRouterFixture(Options{})
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/draft", strings.NewReader("{broken")))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestDraftEndpointRejectsGet(t *testing.T) {
	f := newRouterFixture(Options{})
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/draft", nil))
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestErrorKindsMapToStatusCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid argument", domain.WrapError(domain.ErrInvalidArgument, "review", errors.New("missing field")), http.StatusBadRequest},
		{"unauthorized", domain.WrapError(domain.ErrUnauthorized, "authorize", errors.New("denied")), http.StatusForbidden},
		{"generation", domain.WrapError(domain.ErrGeneration, "generate", errors.New("model down")), http.StatusBadGateway},
		{"storage", domain.WrapError(domain.ErrStorageUnavailable, "ledger", errors.New("db down")), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newRouterFixture(Options{})
			f.reviewer.err = tc.err

			body := `{"tenant_id":"acme","user_id":"u","filing_version_id":"fv-1","paragraph":"p"}`
			res := httptest.NewRecorder()
			f.handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/review", strings.NewReader(body)))
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
		})
	}
}

func TestGetRunByID(t *testing.T) {
	f := newRouterFixture(Options{})
	f.ledger.run = &domain.Run{RunID: "run-1", Kind: domain.RunDraft, Status: domain.RunClosed}

	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/runs/run-1", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var run domain.Run
	if err := json.Unmarshal(res.Body.Bytes(), &run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if run.RunID != "run-1" {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestGetRunNotFoundIs404(t *testing.T) {
	f := newRouterFixture(Options{})
	f.ledger.getErr = domain.WrapError(domain.ErrRunNotFound, "get run", errors.New("run missing"))

	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/runs/missing", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestListRunsParsesWindow(t *testing.T) {
	f := newRouterFixture(Options{})
	f.ledger.runs = []domain.Run{{RunID: "run-1"}}

	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/runs?from=2026-02-01&to=2026-02-08", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if f.ledger.lastFrom != time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected from: %v", f.ledger.lastFrom)
	}
	if f.ledger.lastTo != time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected to: %v", f.ledger.lastTo)
	}
}

func TestListRunsRejectsInvertedWindow(t *testing.T) {
	f := newRouterFixture(Options{})
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/runs?from=2026-02-08&to=2026-02-01", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestExportRunsStreamsAttachment(t *testing.T) {
	f := newRouterFixture(Options{})
	f.ledger.runs = []domain.Run{{RunID: "run-1"}, {RunID: "run-2"}}

	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/runs/export?from=2026-02-01&to=2026-02-08", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Disposition"); !strings.Contains(got, "runs_20260201_20260208.xlsx") {
		t.Fatalf("unexpected disposition: %q", got)
	}
	if f.exporter.written != 2 {
		t.Fatalf("expected 2 runs exported, got %d", f.exporter.written)
	}
	if res.Body.Len() == 0 {
		t.Fatal("expected attachment bytes")
	}
}

func TestRequestIDHeaderIsEchoed(t *testing.T) {
	f := newRouterFixture(Options{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-123")
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)
	if got := res.Header().Get("X-Request-Id"); got != "req-123" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
}
