package ollama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
	"github.com/kirillkom/disclosure-grounding/internal/infrastructure/resilience"
)

// Verifier is the semantic verification collaborator. It only reports
// contradiction and unsupported-claim issues; numeric, date, and unit
// checks are done deterministically upstream.
type Verifier struct {
	client   *Client
	executor *resilience.Executor
}

func NewVerifier(client *Client, executor *resilience.Executor) *Verifier {
	return &Verifier{client: client, executor: executor}
}

func (v *Verifier) VerifyParagraph(ctx context.Context, promptVersion, paragraph string, evidence []domain.RetrievedResult) ([]domain.Issue, error) {
	var raw string
	err := v.executor.Execute(ctx, "ollama_verify_paragraph", func(ctx context.Context) error {
		var genErr error
		raw, genErr = v.client.generateJSON(ctx, buildVerifyPrompt(promptVersion, paragraph, evidence))
		return genErr
	}, classifyOllamaError)
	if err != nil {
		return nil, domain.WrapError(domain.ErrVerification, "verify paragraph", err)
	}
	return decodeIssues(raw)
}

func decodeIssues(raw string) ([]domain.Issue, error) {
	if _, err := validateAgainst(issuesSchema, raw); err != nil {
		return nil, domain.WrapError(domain.ErrVerification, "issues contract", err)
	}

	var wire struct {
		Issues []struct {
			Kind          string   `json:"kind"`
			Severity      string   `json:"severity"`
			ClaimText     string   `json:"claim_text"`
			Explanation   string   `json:"explanation"`
			CitedChunkIDs []string `json:"cited_chunk_ids"`
		} `json:"issues"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &wire); err != nil {
		return nil, fmt.Errorf("decode issues: %w", err)
	}

	out := make([]domain.Issue, 0, len(wire.Issues))
	for _, w := range wire.Issues {
		issue, err := domain.NewIssue(
			domain.IssueKind(w.Kind),
			domain.IssueSeverity(w.Severity),
			w.ClaimText,
			w.Explanation,
			w.CitedChunkIDs,
		)
		if err != nil {
			return nil, domain.WrapError(domain.ErrVerification, "issues contract", err)
		}
		out = append(out, issue)
	}
	return out, nil
}
