package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
	"github.com/kirillkom/disclosure-grounding/internal/core/ports"
)

// DraftWorkflow drafts a disclosure section with mandatory citations:
// authorize, open a run, retrieve evidence, generate, enforce citation
// coverage with a single repair pass, persist, close the run.
type DraftWorkflow struct {
	authz     ports.Authorizer
	ledger    ports.AuditLedger
	retriever *HybridRetriever
	generator ports.DraftGenerator
	drafts    ports.DraftStore
	cfg       WorkflowConfig
}

func NewDraftWorkflow(
	authz ports.Authorizer,
	ledger ports.AuditLedger,
	retriever *HybridRetriever,
	generator ports.DraftGenerator,
	drafts ports.DraftStore,
	cfg WorkflowConfig,
) *DraftWorkflow {
	return &DraftWorkflow{
		authz:     authz,
		ledger:    ledger,
		retriever: retriever,
		generator: generator,
		drafts:    drafts,
		cfg:       cfg.normalize(),
	}
}

func (w *DraftWorkflow) DraftSection(ctx context.Context, req ports.DraftRequest) (*ports.DraftResult, error) {
	if req.FilingVersionID == "" || req.SectionKey == "" {
		return nil, domain.WrapError(domain.ErrInvalidArgument, "draft", errors.New("filing_version_id and section_key are required"))
	}
	if err := w.authz.Authorize(ctx, req.UserID, req.TenantID, "DRAFT"); err != nil {
		return nil, fmt.Errorf("authorize draft: %w", err)
	}

	runID, err := w.ledger.StartRun(ctx, domain.RunDraft, withRequestID(ctx, map[string]string{
		"filing_version_id": req.FilingVersionID,
		"section_key":       req.SectionKey,
		"peer_set_id":       req.PeerSetID,
	}))
	if err != nil {
		return nil, fmt.Errorf("start draft run: %w", err)
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

func (w *DraftWorkflow) run(ctx context.Context, runID string, req ports.DraftRequest) (*ports.DraftResult, error) {
	evidence, err := w.retriever.Retrieve(ctx, req.SectionKey, domain.RetrievalFilter{
		FilingVersionID: req.FilingVersionID,
		SectionKey:      req.SectionKey,
		PeerSetID:       req.PeerSetID,
	}, w.cfg.DraftTopK)
	if err != nil {
		return nil, fmt.Errorf("retrieve draft evidence: %w", err)
	}
	evidenceIDs := chunkIDs(evidence)
	if err := w.ledger.AppendEvidence(ctx, runID, evidenceIDs...); err != nil {
		return nil, fmt.Errorf("append draft evidence: %w", err)
	}

	draft, err := w.generate(ctx, req.SectionKey, evidence)
	if err != nil {
		return nil, err
	}

	// Coverage repair is an explicit decision branch on the report, not
	// error control flow: one repair pass, then live with the result or
	// fail hard under strict policy.
	coverage := ValidateCoverage(*draft, evidenceIDs)
	if !coverage.Covered {
		repaired, err := w.generator.RepairCitations(ctx, w.cfg.DraftPromptVersion, *draft, coverage, evidence)
		if err != nil {
			return nil, fmt.Errorf("repair citations: %w", err)
		}
		draft = repaired
		coverage = ValidateCoverage(*draft, evidenceIDs)
	}
	if !coverage.Covered && w.cfg.CoverageStrict {
		return nil, domain.WrapError(domain.ErrSchemaViolation, "draft coverage",
			fmt.Errorf("%d uncited paragraphs, %d fabricated citations after repair",
				len(coverage.UncitedParagraphs), len(coverage.FabricatedCitations)))
	}

	draftID, err := w.drafts.SaveDraft(ctx, *draft, runID)
	if err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	draft.DraftID = draftID

	if err := w.ledger.EndRun(ctx, runID, map[string]string{
		"outcome":    domain.OutcomeCompleted,
		"draft_id":   draftID,
		"paragraphs": strconv.Itoa(len(draft.Paragraphs)),
		"covered":    strconv.FormatBool(coverage.Covered),
	}); err != nil {
		return nil, fmt.Errorf("end draft run: %w", err)
	}

	return &ports.DraftResult{RunID: runID, Draft: *draft, Coverage: coverage}, nil
}

// generate calls the generation collaborator. A schema violation gets
// exactly one regeneration before it surfaces as terminal; transient
// generation failures are already retried with bounded attempts inside
// the collaborator adapter.
func (w *DraftWorkflow) generate(ctx context.Context, sectionKey string, evidence []domain.RetrievedResult) (*domain.Draft, error) {
	draft, err := w.generator.GenerateDraft(ctx, w.cfg.DraftPromptVersion, sectionKey, evidence)
	if err == nil {
		return draft, nil
	}
	if !domain.IsKind(err, domain.ErrSchemaViolation) {
		return nil, fmt.Errorf("generate draft: %w", err)
	}

	draft, retryErr := w.generator.GenerateDraft(ctx, w.cfg.DraftPromptVersion, sectionKey, evidence)
	if retryErr != nil {
		return nil, fmt.Errorf("generate draft after schema violation: %w", retryErr)
	}
	return draft, nil
}
