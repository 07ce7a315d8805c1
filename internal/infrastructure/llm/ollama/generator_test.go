package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
	"github.com/kirillkom/disclosure-grounding/internal/infrastructure/resilience"
)

func fastExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		BreakerEnabled:      false,
	})
}

func generateServer(t *testing.T, modelOutput string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode generate request: %v", err)
		}
		if req["stream"] != false || req["format"] != "json" {
			t.Errorf("generate request must be non-streaming json: %v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"response": %q}`, modelOutput)
	}))
}

func sampleEvidence() []domain.RetrievedResult {
	return []domain.RetrievedResult{
		{ChunkID: "c1", CompanyID: "co-1", Text: "Revenue grew 12%."},
	}
}

func TestGenerateDraftDecodesValidOutput(t *testing.T) {
	server := generateServer(t, `{"paragraphs":[{"text":"Revenue grew twelve percent.","citations":["c1"]}]}`)
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed"), fastExecutor())
	draft, err := gen.GenerateDraft(context.Background(), "draft_10k_v2", "mdna", sampleEvidence())
	if err != nil {
		t.Fatalf("GenerateDraft() error = %v", err)
	}
	if len(draft.Paragraphs) != 1 {
		t.Fatalf("expected 1 paragraph, got %+v", draft)
	}
	if got := draft.Paragraphs[0].Citations; len(got) != 1 || got[0] != "c1" {
		t.Fatalf("unexpected citations: %v", got)
	}
}

func TestGenerateDraftMissingCitationsIsSchemaViolation(t *testing.T) {
	server := generateServer(t, `{"paragraphs":[{"text":"Revenue grew.","citations":[]}]}`)
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed"), fastExecutor())
	_, err := gen.GenerateDraft(context.Background(), "draft_10k_v2", "mdna", sampleEvidence())
	if !domain.IsKind(err, domain.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestGenerateDraftToleratesProseWrappedJSON(t *testing.T) {
	server := generateServer(t, `Here is the draft: {"paragraphs":[{"text":"Margins held.","citations":["c1"]}]} Done.`)
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed"), fastExecutor())
	draft, err := gen.GenerateDraft(context.Background(), "draft_10k_v2", "mdna", sampleEvidence())
	if err != nil {
		t.Fatalf("GenerateDraft() error = %v", err)
	}
	if draft.Paragraphs[0].Text != "Margins held." {
		t.Fatalf("unexpected draft: %+v", draft)
	}
}

func TestGenerateDraftRetriesTransientServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"response": %q}`, `{"paragraphs":[{"text":"Revenue grew.","citations":["c1"]}]}`)
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed"), fastExecutor())
	if _, err := gen.GenerateDraft(context.Background(), "draft_10k_v2", "mdna", sampleEvidence()); err != nil {
		t.Fatalf("GenerateDraft() after retry error = %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestGenerateDraftExhaustedRetriesIsGenerationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed"), fastExecutor())
	_, err := gen.GenerateDraft(context.Background(), "draft_10k_v2", "mdna", sampleEvidence())
	if !domain.IsKind(err, domain.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}

func TestRepairCitationsDecodesRepairedDraft(t *testing.T) {
	server := generateServer(t, `{"paragraphs":[{"text":"Revenue grew.","citations":["c1"]}]}`)
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed"), fastExecutor())
	broken := domain.Draft{Paragraphs: []domain.Paragraph{{Text: "Revenue grew.", Citations: nil}}}
	report := domain.CoverageReport{Covered: false, UncitedParagraphs: []int{0}}

	repaired, err := gen.RepairCitations(context.Background(), "draft_10k_v2", broken, report, sampleEvidence())
	if err != nil {
		t.Fatalf("RepairCitations() error = %v", err)
	}
	if len(repaired.Paragraphs[0].Citations) != 1 {
		t.Fatalf("expected repaired citations, got %+v", repaired)
	}
}

func TestEmbedQueryReturnsFirstEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	vec, err := embedder.EmbedQuery(context.Background(), "net revenue")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Fatalf("unexpected vector: %v", vec)
	}
}
