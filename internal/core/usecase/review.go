package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
	"github.com/kirillkom/disclosure-grounding/internal/core/ports"
)

// ReviewWorkflow checks a paragraph against filed sources: deterministic
// number/date/unit verification first, then the semantic verification
// collaborator, all under one audited run.
type ReviewWorkflow struct {
	authz     ports.Authorizer
	ledger    ports.AuditLedger
	retriever *HybridRetriever
	verifier  *DeterministicVerifier
	semantic  ports.SemanticVerifier
	cfg       WorkflowConfig
}

func NewReviewWorkflow(
	authz ports.Authorizer,
	ledger ports.AuditLedger,
	retriever *HybridRetriever,
	verifier *DeterministicVerifier,
	semantic ports.SemanticVerifier,
	cfg WorkflowConfig,
) *ReviewWorkflow {
	return &ReviewWorkflow{
		authz:     authz,
		ledger:    ledger,
		retriever: retriever,
		verifier:  verifier,
		semantic:  semantic,
		cfg:       cfg.normalize(),
	}
}

func (w *ReviewWorkflow) ReviewParagraph(ctx context.Context, req ports.ReviewRequest) (*ports.ReviewResult, error) {
	if req.FilingVersionID == "" || req.Paragraph == "" {
		return nil, domain.WrapError(domain.ErrInvalidArgument, "review", errors.New("filing_version_id and paragraph are required"))
	}
	if err := w.authz.Authorize(ctx, req.UserID, req.TenantID, "REVIEW"); err != nil {
		return nil, fmt.Errorf("authorize review: %w", err)
	}

	runID, err := w.ledger.StartRun(ctx, domain.RunReview, withRequestID(ctx, map[string]string{
		"filing_version_id": req.FilingVersionID,
		"paragraph_hash":    paragraphHash(req.Paragraph),
	}))
	if err != nil {
		return nil, fmt.Errorf("start review run: %w", err)
	}

	result, err := w.run(ctx, runID, req)
	if err != nil {
		if closeErr := closeRunFailed(ctx, w.ledger, runID, err); closeErr != nil {
			return nil, fmt.Errorf("%w; close failed run: %w", err, closeErr)
		}
		return nil, err
	}
	return result, nil
}

func (w *ReviewWorkflow) run(ctx context.Context, runID string, req ports.ReviewRequest) (*ports.ReviewResult, error) {
	evidence, err := w.retriever.Retrieve(ctx, req.Paragraph, domain.RetrievalFilter{
		FilingVersionID: req.FilingVersionID,
	}, w.cfg.ReviewTopK)
	if err != nil {
		return nil, fmt.Errorf("retrieve review evidence: %w", err)
	}
	if err := w.ledger.AppendEvidence(ctx, runID, chunkIDs(evidence)...); err != nil {
		return nil, fmt.Errorf("append review evidence: %w", err)
	}

	deterministic := w.verifier.Verify(req.Paragraph, evidence)

	semantic, err := w.semantic.VerifyParagraph(ctx, w.cfg.VerifyPromptVersion, req.Paragraph, evidence)
	if err != nil {
		return nil, fmt.Errorf("semantic verification: %w", err)
	}

	issues := make([]domain.Issue, 0, len(deterministic)+len(semantic))
	issues = append(issues, deterministic...)
	issues = append(issues, semantic...)

	if err := w.ledger.EndRun(ctx, runID, map[string]string{
		"outcome":     domain.OutcomeCompleted,
		"issue_count": strconv.Itoa(len(issues)),
	}); err != nil {
		return nil, fmt.Errorf("end review run: %w", err)
	}

	return &ports.ReviewResult{RunID: runID, Issues: issues}, nil
}
