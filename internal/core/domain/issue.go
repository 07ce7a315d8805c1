package domain

import (
	"errors"
	"fmt"
)

type IssueKind string

const (
	IssueNumeric  IssueKind = "numeric"
	IssueDate     IssueKind = "date"
	IssueUnit     IssueKind = "unit"
	IssueSemantic IssueKind = "semantic"
)

type IssueSeverity string

const (
	SeverityLow    IssueSeverity = "low"
	SeverityMedium IssueSeverity = "medium"
	SeverityHigh   IssueSeverity = "high"
)

// Issue is a discrepancy found during review. Issues are immutable values;
// they are aggregated, never edited after construction.
type Issue struct {
	Kind          IssueKind     `json:"kind"`
	Severity      IssueSeverity `json:"severity"`
	ClaimText     string        `json:"claim_text"`
	CitedChunkIDs []string      `json:"cited_chunk_ids"`
	Explanation   string        `json:"explanation"`
}

// NewIssue validates shape at construction. Semantic issues must cite at
// least one chunk; a raised-but-unverifiable numeric/date/unit issue may
// carry no citations.
func NewIssue(kind IssueKind, severity IssueSeverity, claim, explanation string, citedChunkIDs []string) (Issue, error) {
	switch kind {
	case IssueNumeric, IssueDate, IssueUnit, IssueSemantic:
	default:
		return Issue{}, WrapError(ErrInvalidArgument, "new issue", fmt.Errorf("unknown issue kind %q", kind))
	}
	switch severity {
	case SeverityLow, SeverityMedium, SeverityHigh:
	default:
		return Issue{}, WrapError(ErrInvalidArgument, "new issue", fmt.Errorf("unknown severity %q", severity))
	}
	if kind == IssueSemantic && len(citedChunkIDs) == 0 {
		return Issue{}, WrapError(ErrInvalidArgument, "new issue", errors.New("semantic issue requires cited chunk ids"))
	}

	cited := make([]string, len(citedChunkIDs))
	copy(cited, citedChunkIDs)
	return Issue{
		Kind:          kind,
		Severity:      severity,
		ClaimText:     claim,
		CitedChunkIDs: cited,
		Explanation:   explanation,
	}, nil
}
