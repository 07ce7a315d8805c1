package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/disclosure-grounding/internal/core/ports"
)

// Server exposes the three audited workflows as MCP tools so agent hosts
// can call them over stdio. Every tool result carries the audit run id.
type Server struct {
	drafter     ports.SectionDrafter
	reviewer    ports.ParagraphReviewer
	benchmarker ports.PeerBenchmarker
	mcpServer   *server.MCPServer
}

func NewServer(
	serviceVersion string,
	drafter ports.SectionDrafter,
	reviewer ports.ParagraphReviewer,
	benchmarker ports.PeerBenchmarker,
) *Server {
	s := &Server{
		drafter:     drafter,
		reviewer:    reviewer,
		benchmarker: benchmarker,
		mcpServer: server.NewMCPServer(
			"disclosure-grounding",
			serviceVersion,
			server.WithToolCapabilities(false),
		),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("draft_section",
		mcp.WithDescription("Draft a disclosure section with mandatory citations into filed evidence. Returns the draft, its coverage report, and the audit run id."),
		mcp.WithString("tenant_id", mcp.Required(), mcp.Description("Tenant the request acts on")),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User the request acts for")),
		mcp.WithString("filing_version_id", mcp.Required(), mcp.Description("Filing version to draft against")),
		mcp.WithString("section_key", mcp.Required(), mcp.Description("Section to draft, e.g. item_7_mdna")),
		mcp.WithString("peer_set_id", mcp.Description("Optional peer set to widen evidence retrieval")),
	), s.handleDraftSection)

	s.mcpServer.AddTool(mcp.NewTool("review_paragraph",
		mcp.WithDescription("Check a paragraph against filed sources. Returns numeric, date, unit, and semantic issues with the audit run id."),
		mcp.WithString("tenant_id", mcp.Required(), mcp.Description("Tenant the request acts on")),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User the request acts for")),
		mcp.WithString("filing_version_id", mcp.Required(), mcp.Description("Filing version to verify against")),
		mcp.WithString("paragraph", mcp.Required(), mcp.Description("Paragraph text to verify")),
	), s.handleReviewParagraph)

	s.mcpServer.AddTool(mcp.NewTool("benchmark_paragraph",
		mcp.WithDescription("Retrieve how a configured peer set discloses the topic of a paragraph, with confidence scores and the audit run id."),
		mcp.WithString("tenant_id", mcp.Required(), mcp.Description("Tenant the request acts on")),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User the request acts for")),
		mcp.WithString("peer_set_id", mcp.Required(), mcp.Description("Configured peer set to benchmark against")),
		mcp.WithString("paragraph", mcp.Required(), mcp.Description("Paragraph text to benchmark")),
		mcp.WithString("section_key", mcp.Description("Optional section to scope peer retrieval")),
	), s.handleBenchmarkParagraph)
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleDraftSection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := ports.DraftRequest{
		TenantID:        request.GetString("tenant_id", ""),
		UserID:          request.GetString("user_id", ""),
		FilingVersionID: request.GetString("filing_version_id", ""),
		SectionKey:      request.GetString("section_key", ""),
		PeerSetID:       request.GetString("peer_set_id", ""),
	}

	result, err := s.drafter.DraftSection(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolResultJSON(result)
}

func (s *Server) handleReviewParagraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := ports.ReviewRequest{
		TenantID:        request.GetString("tenant_id", ""),
		UserID:          request.GetString("user_id", ""),
		FilingVersionID: request.GetString("filing_version_id", ""),
		Paragraph:       request.GetString("paragraph", ""),
	}

	result, err := s.reviewer.ReviewParagraph(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolResultJSON(result)
}

func (s *Server) handleBenchmarkParagraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := ports.BenchmarkRequest{
		TenantID:   request.GetString("tenant_id", ""),
		UserID:     request.GetString("user_id", ""),
		PeerSetID:  request.GetString("peer_set_id", ""),
		SectionKey: request.GetString("section_key", ""),
		Paragraph:  request.GetString("paragraph", ""),
	}

	result, err := s.benchmarker.BenchmarkParagraph(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return toolResultJSON(result)
}

func toolResultJSON(payload any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
