package ports

import (
	"context"
	"time"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
)

// Embedder builds a query vector for the dense sub-search.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// SearchIndex runs the two sub-searches over the chunk corpus. Both apply
// the filter as a pre-condition, not as a post-filter, so ranks are
// computed over the eligible set only. Indices are read-only here.
type SearchIndex interface {
	Search(ctx context.Context, queryVector []float32, limit int, filter domain.RetrievalFilter) ([]domain.RetrievedResult, error)
	SearchLexical(ctx context.Context, queryText string, limit int, filter domain.RetrievalFilter) ([]domain.RetrievedResult, error)
}

// PeerSetStore resolves a configured peer set to its member company ids.
type PeerSetStore interface {
	ResolvePeerSet(ctx context.Context, peerSetID string) ([]string, error)
}

// AuditLedger owns runs. StartRun deep-copies inputs; AppendEvidence is an
// idempotent set union while the run is OPEN; EndRun performs the single
// OPEN->CLOSED transition with a compare-and-set guard so double closes
// and closes of unknown run ids fail with ErrInvalidState instead of
// racing.
type AuditLedger interface {
	StartRun(ctx context.Context, kind domain.RunKind, inputs map[string]string) (string, error)
	AppendEvidence(ctx context.Context, runID string, chunkIDs ...string) error
	EndRun(ctx context.Context, runID string, outputs map[string]string) error
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	ListRuns(ctx context.Context, from, to time.Time) ([]domain.Run, error)
	ListStaleOpenRuns(ctx context.Context, olderThan time.Duration) ([]domain.Run, error)
}

// DraftGenerator is the external generation collaborator. Implementations
// must validate output against the DraftSchemaRequiresCitations contract
// and return ErrSchemaViolation when it fails; transient transport
// failures surface as ErrGeneration.
type DraftGenerator interface {
	GenerateDraft(ctx context.Context, promptVersion, sectionKey string, evidence []domain.RetrievedResult) (*domain.Draft, error)
	RepairCitations(ctx context.Context, promptVersion string, draft domain.Draft, report domain.CoverageReport, evidence []domain.RetrievedResult) (*domain.Draft, error)
}

// SemanticVerifier is the external verification collaborator returning
// structured issues conforming to ReviewIssuesSchema.
type SemanticVerifier interface {
	VerifyParagraph(ctx context.Context, promptVersion, paragraph string, evidence []domain.RetrievedResult) ([]domain.Issue, error)
}

// DraftStore is the persistence collaborator; a draft is durable once
// SaveDraft returns.
type DraftStore interface {
	SaveDraft(ctx context.Context, draft domain.Draft, runID string) (string, error)
}

// Authorizer is the external authorization collaborator. A denial is a
// fatal precondition failure raised before any retrieval or audit work.
type Authorizer interface {
	Authorize(ctx context.Context, userID, tenantID, action string) error
}

// RunEventPublisher announces closed runs to downstream compliance
// consumers. Publishing is advisory; the ledger row is the record.
type RunEventPublisher interface {
	PublishRunClosed(ctx context.Context, run domain.Run) error
}
