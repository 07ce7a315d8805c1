package ollama

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
	"github.com/kirillkom/disclosure-grounding/internal/infrastructure/resilience"
)

// Generator produces cited drafts. Transport failures are retried by the
// executor and surface as generation errors; output that fails the draft
// schema surfaces as a schema violation so the caller can regenerate.
type Generator struct {
	client   *Client
	executor *resilience.Executor
}

func NewGenerator(client *Client, executor *resilience.Executor) *Generator {
	return &Generator{client: client, executor: executor}
}

func (g *Generator) GenerateDraft(ctx context.Context, promptVersion, sectionKey string, evidence []domain.RetrievedResult) (*domain.Draft, error) {
	raw, err := g.generate(ctx, "ollama_generate_draft", buildDraftPrompt(promptVersion, sectionKey, evidence))
	if err != nil {
		return nil, domain.WrapError(domain.ErrGeneration, "generate draft", err)
	}
	return decodeDraft(raw)
}

func (g *Generator) RepairCitations(ctx context.Context, promptVersion string, draft domain.Draft, report domain.CoverageReport, evidence []domain.RetrievedResult) (*domain.Draft, error) {
	raw, err := g.generate(ctx, "ollama_repair_citations", buildRepairPrompt(promptVersion, draft, report, evidence))
	if err != nil {
		return nil, domain.WrapError(domain.ErrGeneration, "repair citations", err)
	}
	return decodeDraft(raw)
}

func (g *Generator) generate(ctx context.Context, operation, prompt string) (string, error) {
	var raw string
	err := g.executor.Execute(ctx, operation, func(ctx context.Context) error {
		var genErr error
		raw, genErr = g.client.generateJSON(ctx, prompt)
		return genErr
	}, classifyOllamaError)
	return raw, err
}

func decodeDraft(raw string) (*domain.Draft, error) {
	if _, err := validateAgainst(draftSchema, raw); err != nil {
		return nil, domain.WrapError(domain.ErrSchemaViolation, "draft contract", err)
	}

	var wire struct {
		Paragraphs []domain.Paragraph `json:"paragraphs"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &wire); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &domain.Draft{Paragraphs: wire.Paragraphs}, nil
}
