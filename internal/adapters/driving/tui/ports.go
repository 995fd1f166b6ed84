// Package tui provides an interactive terminal chat for sercha-rag.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the TUI.
type Ports struct {
	// Chat answers questions.
	Chat driving.ChatService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Chat == nil {
		return ErrMissingChatService
	}
	return nil
}
