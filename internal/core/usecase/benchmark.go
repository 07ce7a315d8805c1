package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
	"github.com/kirillkom/disclosure-grounding/internal/core/ports"
)

// BenchmarkWorkflow retrieves how a configured peer set discloses the
// topic of a paragraph, scoring each excerpt with the confidence blend.
type BenchmarkWorkflow struct {
	authz     ports.Authorizer
	ledger    ports.AuditLedger
	retriever *HybridRetriever
	scorer    *ConfidenceScorer
	cfg       WorkflowConfig
}

func NewBenchmarkWorkflow(
	authz ports.Authorizer,
	ledger ports.AuditLedger,
	retriever *HybridRetriever,
	scorer *ConfidenceScorer,
	cfg WorkflowConfig,
) *BenchmarkWorkflow {
	return &BenchmarkWorkflow{
		authz:     authz,
		ledger:    ledger,
		retriever: retriever,
		scorer:    scorer,
		cfg:       cfg.normalize(),
	}
}

func (w *BenchmarkWorkflow) BenchmarkParagraph(ctx context.Context, req ports.BenchmarkRequest) (*ports.BenchmarkResult, error) {
	if req.PeerSetID == "" || req.Paragraph == "" {
		return nil, domain.WrapError(domain.ErrInvalidArgument, "benchmark", errors.New("peer_set_id and paragraph are required"))
	}
	if err := w.authz.Authorize(ctx, req.UserID, req.TenantID, "BENCHMARK"); err != nil {
		return nil, fmt.Errorf("authorize benchmark: %w", err)
	}

	inputs := map[string]string{
		"peer_set_id":    req.PeerSetID,
		"paragraph_hash": paragraphHash(req.Paragraph),
	}
	if req.SectionKey != "" {
		inputs["section_key"] = req.SectionKey
	}
	runID, err := w.ledger.StartRun(ctx, domain.RunBenchmark, withRequestID(ctx, inputs))
	if err != nil {
		return nil, fmt.Errorf("start benchmark run: %w", err)
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

func (w *BenchmarkWorkflow) run(ctx context.Context, runID string, req ports.BenchmarkRequest) (*ports.BenchmarkResult, error) {
	evidence, err := w.retriever.RetrievePeers(ctx, req.Paragraph, req.PeerSetID, req.SectionKey, w.cfg.BenchmarkTopK)
	if err != nil {
		return nil, fmt.Errorf("retrieve peer evidence: %w", err)
	}
	if err := w.ledger.AppendEvidence(ctx, runID, chunkIDs(evidence)...); err != nil {
		return nil, fmt.Errorf("append benchmark evidence: %w", err)
	}

	excerpts := make([]domain.PeerExcerpt, 0, len(evidence))
	for _, ev := range evidence {
		confidence, err := w.scorer.Score(ev.RetrievalScore, ev.RerankScore, ev.FilingDate)
		if err != nil {
			return nil, fmt.Errorf("score chunk %s: %w", ev.ChunkID, err)
		}
		excerpts = append(excerpts, domain.PeerExcerpt{
			CompanyID:  ev.CompanyID,
			ChunkID:    ev.ChunkID,
			Excerpt:    ev.Text,
			Confidence: confidence,
		})
	}

	if err := w.ledger.EndRun(ctx, runID, map[string]string{
		"outcome":      domain.OutcomeCompleted,
		"result_count": strconv.Itoa(len(excerpts)),
	}); err != nil {
		return nil, fmt.Errorf("end benchmark run: %w", err)
	}

	return &ports.BenchmarkResult{RunID: runID, Excerpts: excerpts}, nil
}
