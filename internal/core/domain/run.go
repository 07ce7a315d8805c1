package domain

import (
	"context"
	"time"
)

type RunKind string

const (
	RunDraft     RunKind = "DRAFT"
	RunReview    RunKind = "REVIEW"
	RunBenchmark RunKind = "BENCHMARK"
)

type RunStatus string

const (
	RunOpen   RunStatus = "open"
	RunClosed RunStatus = "closed"
)

// Outcome values recorded under the "outcome" output key when a run closes.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// Run is one audited execution of a drafting, review, or benchmarking
// operation. A run is created OPEN, transitions to CLOSED exactly once, and
// is immutable afterwards. A run that stays OPEN past the staleness
// threshold is a crash indicator, not garbage.
type Run struct {
	RunID       string            `json:"run_id"`
	Kind        RunKind           `json:"kind"`
	Status      RunStatus         `json:"status"`
	StartedAt   time.Time         `json:"started_at"`
	EndedAt     *time.Time        `json:"ended_at,omitempty"`
	Inputs      map[string]string `json:"inputs"`
	EvidenceIDs []string          `json:"evidence_ids"`
	Outputs     map[string]string `json:"outputs,omitempty"`
}

func ValidRunKind(kind RunKind) bool {
	switch kind {
	case RunDraft, RunReview, RunBenchmark:
		return true
	default:
		return false
	}
}

// CopyStringMap deep-copies run inputs/outputs so later caller mutation
// cannot alter the ledger record.
func CopyStringMap(src map[string]string) map[string]string {
	if src == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

type requestIDContextKey struct{}

// ContextWithRequestID carries the caller's request id toward the ledger
// so a run can be traced back to the HTTP request that opened it.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(requestIDContextKey{}).(string)
	return requestID
}
