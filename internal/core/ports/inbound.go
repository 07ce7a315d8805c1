package ports

import (
	"context"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
)

type DraftRequest struct {
	TenantID        string `json:"tenant_id"`
	UserID          string `json:"user_id"`
	FilingVersionID string `json:"filing_version_id"`
	SectionKey      string `json:"section_key"`
	PeerSetID       string `json:"peer_set_id,omitempty"`
}

type DraftResult struct {
	RunID    string                `json:"audit_run_id"`
	Draft    domain.Draft          `json:"draft"`
	Coverage domain.CoverageReport `json:"coverage"`
}

// SectionDrafter is the inbound contract for drafting a disclosure section
// with mandatory citations.
type SectionDrafter interface {
	DraftSection(ctx context.Context, req DraftRequest) (*DraftResult, error)
}

type ReviewRequest struct {
	TenantID        string `json:"tenant_id"`
	UserID          string `json:"user_id"`
	FilingVersionID string `json:"filing_version_id"`
	Paragraph       string `json:"paragraph"`
}

type ReviewResult struct {
	RunID  string         `json:"audit_run_id"`
	Issues []domain.Issue `json:"issues"`
}

// ParagraphReviewer is the inbound contract for checking a paragraph
// against filed sources.
type ParagraphReviewer interface {
	ReviewParagraph(ctx context.Context, req ReviewRequest) (*ReviewResult, error)
}

type BenchmarkRequest struct {
	TenantID   string `json:"tenant_id"`
	UserID     string `json:"user_id"`
	PeerSetID  string `json:"peer_set_id"`
	SectionKey string `json:"section_key,omitempty"`
	Paragraph  string `json:"paragraph"`
}

type BenchmarkResult struct {
	RunID    string               `json:"audit_run_id"`
	Excerpts []domain.PeerExcerpt `json:"results"`
}

// PeerBenchmarker is the inbound contract for benchmarking a paragraph
// against peer-company disclosures.
type PeerBenchmarker interface {
	BenchmarkParagraph(ctx context.Context, req BenchmarkRequest) (*BenchmarkResult, error)
}
