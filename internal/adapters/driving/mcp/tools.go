package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// defaultSearchLimit applies when the search tool is called without a limit.
const defaultSearchLimit = 5

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question       string   `json:"question" jsonschema:"the question to answer"`
	DocIDs         []string `json:"doc_ids,omitempty" jsonschema:"document IDs to ground the answer in (default: all documents)"`
	ForceWebSearch bool     `json:"force_web_search,omitempty" jsonschema:"also search the web regardless of the question"`
	ConversationID string   `json:"conversation_id,omitempty" jsonschema:"continue an earlier conversation"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer          string         `json:"answer"`
	ConversationID  string         `json:"conversation_id"`
	ConfidenceScore float64        `json:"confidence_score"`
	Sources         []SourceOutput `json:"sources"`
}

// SearchInput is the input schema for the search_documents tool.
type SearchInput struct {
	Query  string   `json:"query" jsonschema:"the search query"`
	DocIDs []string `json:"doc_ids,omitempty" jsonschema:"restrict the search to these document IDs"`
	Limit  int      `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 5)"`
}

// SearchOutput is the output schema for the search_documents tool.
type SearchOutput struct {
	Results []SourceOutput `json:"results"`
	Count   int            `json:"count"`
}

// SourceOutput represents a single piece of evidence.
type SourceOutput struct {
	Type         string  `json:"type"`
	Label        string  `json:"label"`
	Score        float64 `json:"score"`
	DocumentID   string  `json:"document_id,omitempty"`
	DocumentName string  `json:"document_name,omitempty"`
	URL          string  `json:"url,omitempty"`
	Content      string  `json:"content,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using ingested documents and, when needed, live web results",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Search ingested documents and return the best matching passages",
	}, s.handleSearch)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	resp, err := s.ports.Chat.Ask(ctx, domain.ChatRequest{
		Message:        input.Question,
		ConversationID: input.ConversationID,
		DocumentIDs:    input.DocIDs,
		ForceWebSearch: input.ForceWebSearch,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		Answer:          resp.Answer,
		ConversationID:  resp.ConversationID,
		ConfidenceScore: resp.ConfidenceScore,
		Sources:         toSourceOutputs(resp.Sources),
	}, nil
}

// handleSearch handles the search_documents tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	sources, err := s.ports.Chat.Search(ctx, input.Query, input.DocIDs, limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	results := toSourceOutputs(sources)
	return nil, SearchOutput{Results: results, Count: len(results)}, nil
}

func toSourceOutputs(sources []domain.Source) []SourceOutput {
	out := make([]SourceOutput, len(sources))
	for i, src := range sources {
		out[i] = SourceOutput{
			Type:         string(src.Origin),
			Label:        src.Label,
			Score:        src.Score,
			DocumentID:   src.DocumentID,
			DocumentName: src.DocumentName,
			URL:          src.URL,
			Content:      src.Snippet,
		}
	}
	return out
}
