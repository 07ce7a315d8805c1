package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
)

func verifyServer(t *testing.T, modelOutput string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"response": %q}`, modelOutput)
	}))
}

func TestVerifyParagraphDecodesIssues(t *testing.T) {
	server := verifyServer(t, `{"issues":[{"kind":"semantic","severity":"high","claim_text":"Revenue grew","explanation":"evidence describes a decline","cited_chunk_ids":["c1","c2"]}]}`)
	defer server.Close()

	v := NewVerifier(New(server.URL, "gen", "embed"), fastExecutor())
	issues, err := v.VerifyParagraph(context.Background(), "verify_v1", "Revenue grew.", sampleEvidence())
	if err != nil {
		t.Fatalf("VerifyParagraph() error = %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %+v", issues)
	}
	issue := issues[0]
	if issue.Kind != domain.IssueSemantic || issue.Severity != domain.SeverityHigh {
		t.Fatalf("unexpected issue: %+v", issue)
	}
	if len(issue.CitedChunkIDs) != 2 {
		t.Fatalf("citations must survive decoding: %+v", issue)
	}
}

func TestVerifyParagraphConsistentParagraphHasNoIssues(t *testing.T) {
	server := verifyServer(t, `{"issues":[]}`)
	defer server.Close()

	v := NewVerifier(New(server.URL, "gen", "embed"), fastExecutor())
	issues, err := v.VerifyParagraph(context.Background(), "verify_v1", "Margins held.", sampleEvidence())
	if err != nil {
		t.Fatalf("VerifyParagraph() error = %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestVerifyParagraphUncitedIssueFailsContract(t *testing.T) {
	server := verifyServer(t, `{"issues":[{"kind":"semantic","severity":"high","claim_text":"Revenue grew","cited_chunk_ids":[]}]}`)
	defer server.Close()

	v := NewVerifier(New(server.URL, "gen", "embed"), fastExecutor())
	_, err := v.VerifyParagraph(context.Background(), "verify_v1", "Revenue grew.", sampleEvidence())
	if !domain.IsKind(err, domain.ErrVerification) {
		t.Fatalf("expected ErrVerification, got %v", err)
	}
}

func TestVerifyParagraphUnknownKindFailsContract(t *testing.T) {
	server := verifyServer(t, `{"issues":[{"kind":"styling","severity":"low","claim_text":"x","cited_chunk_ids":["c1"]}]}`)
	defer server.Close()

	v := NewVerifier(New(server.URL, "gen", "embed"), fastExecutor())
	_, err := v.VerifyParagraph(context.Background(), "verify_v1", "Revenue grew.", sampleEvidence())
	if !domain.IsKind(err, domain.ErrVerification) {
		t.Fatalf("expected ErrVerification, got %v", err)
	}
}

func TestVerifyParagraphServerErrorIsVerificationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	v := NewVerifier(New(server.URL, "gen", "embed"), fastExecutor())
	_, err := v.VerifyParagraph(context.Background(), "verify_v1", "Revenue grew.", sampleEvidence())
	if !domain.IsKind(err, domain.ErrVerification) {
		t.Fatalf("expected ErrVerification, got %v", err)
	}
}
