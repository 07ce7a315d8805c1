package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
	"github.com/kirillkom/disclosure-grounding/internal/core/ports"
)

// WorkflowConfig carries the per-operation retrieval depths and prompt
// versions. The defaults are the values the prompts were tuned against.
type WorkflowConfig struct {
	DraftTopK     int
	ReviewTopK    int
	BenchmarkTopK int

	DraftPromptVersion  string
	VerifyPromptVersion string

	// CoverageStrict makes a still-uncovered draft (after the single
	// repair pass) a hard failure instead of a reported warning.
	CoverageStrict bool
}

func (c WorkflowConfig) normalize() WorkflowConfig {
	out := c
	if out.DraftTopK <= 0 {
		out.DraftTopK = 20
	}
	if out.ReviewTopK <= 0 {
		out.ReviewTopK = 25
	}
	if out.BenchmarkTopK <= 0 {
		out.BenchmarkTopK = 10
	}
	if out.DraftPromptVersion == "" {
		out.DraftPromptVersion = "draft_10k_v2"
	}
	if out.VerifyPromptVersion == "" {
		out.VerifyPromptVersion = "verify_v1"
	}
	return out
}

// paragraphHash keeps raw paragraph text out of run inputs; the ledger
// records a stable digest instead.
func paragraphHash(paragraph string) string {
	sum := sha256.Sum256([]byte(paragraph))
	return hex.EncodeToString(sum[:16])
}

// withRequestID records the transport request id, when one is carried on
// the context, so the run can be joined back to its access log line.
func withRequestID(ctx context.Context, inputs map[string]string) map[string]string {
	if requestID := domain.RequestIDFromContext(ctx); requestID != "" {
		inputs["request_id"] = requestID
	}
	return inputs
}

func chunkIDs(results []domain.RetrievedResult) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ChunkID)
	}
	return ids
}

// closeRunFailed records a FAILED outcome on the run. It runs on a
// context detached from cancellation: a timed-out workflow must still
// terminate its audit trail rather than leave the run open forever.
func closeRunFailed(ctx context.Context, ledger ports.AuditLedger, runID string, cause error) error {
	return ledger.EndRun(context.WithoutCancel(ctx), runID, map[string]string{
		"outcome": domain.OutcomeFailed,
		"error":   cause.Error(),
	})
}
