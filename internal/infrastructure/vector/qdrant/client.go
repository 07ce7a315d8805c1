package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/disclosure-grounding/internal/core/domain"
)

// Client is a read-only search client over the chunk collection. The
// ingestion pipeline owns writes; this service only queries. The dense
// and sparse named vectors live on the same points, so both sub-searches
// see the same filtered candidate set.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

const (
	denseVectorName  = "dense"
	sparseVectorName = "lexical"
)

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Search(
	ctx context.Context,
	queryVector []float32,
	limit int,
	filter domain.RetrievalFilter,
) ([]domain.RetrievedResult, error) {
	reqBody := map[string]any{
		"query":        queryVector,
		"using":        denseVectorName,
		"limit":        limit,
		"with_payload": true,
	}
	if clauses := filterClauses(filter); len(clauses) > 0 {
		reqBody["filter"] = map[string]any{"must": clauses}
	}
	return c.query(ctx, reqBody, domain.SourceVector)
}

func (c *Client) SearchLexical(
	ctx context.Context,
	queryText string,
	limit int,
	filter domain.RetrievalFilter,
) ([]domain.RetrievedResult, error) {
	sparse := encodeSparseQuery(queryText)
	if len(sparse.Indices) == 0 {
		return []domain.RetrievedResult{}, nil
	}

	reqBody := map[string]any{
		"query":        sparse,
		"using":        sparseVectorName,
		"limit":        limit,
		"with_payload": true,
	}
	if clauses := filterClauses(filter); len(clauses) > 0 {
		reqBody["filter"] = map[string]any{"must": clauses}
	}
	return c.query(ctx, reqBody, domain.SourceLexical)
}

// filterClauses turns the retrieval filter into must-clauses so the
// constraint is applied before ranking, not after.
func filterClauses(filter domain.RetrievalFilter) []map[string]any {
	clauses := make([]map[string]any, 0, 4)
	if filter.FilingVersionID != "" {
		clauses = append(clauses, matchValue("filing_version_id", filter.FilingVersionID))
	}
	if filter.SectionKey != "" {
		clauses = append(clauses, matchValue("section_key", filter.SectionKey))
	}
	if filter.CompanyID != "" {
		clauses = append(clauses, matchValue("company_id", filter.CompanyID))
	}
	if len(filter.CompanyIDs) > 0 {
		clauses = append(clauses, map[string]any{
			"key": "company_id",
			"match": map[string]any{
				"any": filter.CompanyIDs,
			},
		})
	}
	return clauses
}

func matchValue(key, value string) map[string]any {
	return map[string]any{
		"key": key,
		"match": map[string]any{
			"value": value,
		},
	}
}

func (c *Client) query(ctx context.Context, reqBody map[string]any, source domain.ResultSource) ([]domain.RetrievedResult, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal query body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/query", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "qdrant query", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, domain.WrapError(domain.ErrStorageUnavailable, "qdrant query", fmt.Errorf("status %s", resp.Status))
	}

	var queryResp struct {
		Result struct {
			Points []struct {
				Score   float64        `json:"score"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}

	out := make([]domain.RetrievedResult, 0, len(queryResp.Result.Points))
	for _, p := range queryResp.Result.Points {
		out = append(out, domain.RetrievedResult{
			ChunkID:         getStringPayload(p.Payload, "chunk_id"),
			CompanyID:       getStringPayload(p.Payload, "company_id"),
			FilingVersionID: getStringPayload(p.Payload, "filing_version_id"),
			SectionKey:      getStringPayload(p.Payload, "section_key"),
			Text:            getStringPayload(p.Payload, "text"),
			FilingDate:      parseFilingDate(getStringPayload(p.Payload, "filing_date")),
			RetrievalScore:  p.Score,
			Source:          source,
		})
	}
	return out, nil
}

func parseFilingDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t
	}
	return time.Time{}
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
