package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// ConversationStore holds conversation history. Appends to different
// conversations are independent; concurrent appends to the same
// conversation are not ordered.
type ConversationStore interface {
	// Append adds messages to the end of a conversation, creating it if needed.
	Append(ctx context.Context, id string, msgs ...domain.Message) error

	// Get returns a conversation. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.Conversation, error)

	// List returns summaries of all conversations, most recently updated first.
	List(ctx context.Context) ([]domain.ConversationSummary, error)

	// Delete removes a conversation. Returns domain.ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
}
