package ollama

import (
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// draftSchema is the structural contract for generated drafts: at least
// one paragraph, and every paragraph with non-empty text and at least one
// citation. A response failing this is a schema violation, not a
// transport error.
var draftSchema = openapi3.NewObjectSchema().
	WithProperty("paragraphs", openapi3.NewArraySchema().
		WithMinItems(1).
		WithItems(openapi3.NewObjectSchema().
			WithProperty("text", openapi3.NewStringSchema().WithMinLength(1)).
			WithProperty("citations", openapi3.NewArraySchema().
				WithMinItems(1).
				WithItems(openapi3.NewStringSchema().WithMinLength(1))).
			WithRequired([]string{"text", "citations"}))).
	WithRequired([]string{"paragraphs"})

// issuesSchema is the structural contract for semantic review output.
var issuesSchema = openapi3.NewObjectSchema().
	WithProperty("issues", openapi3.NewArraySchema().
		WithItems(openapi3.NewObjectSchema().
			WithProperty("kind", openapi3.NewStringSchema().WithEnum("semantic")).
			WithProperty("severity", openapi3.NewStringSchema().WithEnum("low", "medium", "high")).
			WithProperty("claim_text", openapi3.NewStringSchema().WithMinLength(1)).
			WithProperty("explanation", openapi3.NewStringSchema()).
			WithProperty("cited_chunk_ids", openapi3.NewArraySchema().
				WithMinItems(1).
				WithItems(openapi3.NewStringSchema().WithMinLength(1))).
			WithRequired([]string{"kind", "severity", "claim_text", "cited_chunk_ids"}))).
	WithRequired([]string{"issues"})

// validateAgainst checks raw model output against a schema before it is
// decoded into domain types.
func validateAgainst(schema *openapi3.Schema, raw string) (map[string]any, error) {
	var value map[string]any
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &value); err != nil {
		return nil, fmt.Errorf("parse model json: %w", err)
	}
	if err := schema.VisitJSON(value); err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}
	return value, nil
}
