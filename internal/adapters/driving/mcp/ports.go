package mcp

import (
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Chat answers questions and searches document chunks.
	Chat driving.ChatService

	// Documents lists ingested documents. Optional; without it the
	// document resources are empty.
	Documents driving.DocumentService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}
