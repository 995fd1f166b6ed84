package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// ChatService answers questions grounded in documents and web evidence.
type ChatService interface {
	// Stream validates req synchronously and then answers it in the
	// background. The returned channel yields metadata, sources, tokens and
	// exactly one done or error event, then closes. Cancelling ctx stops
	// the pipeline without a late done event.
	Stream(ctx context.Context, req domain.ChatRequest) (<-chan domain.StreamEvent, error)

	// Ask runs the same pipeline and returns the aggregate answer.
	Ask(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error)

	// Search returns ranked internal evidence without generating an answer.
	Search(ctx context.Context, query string, docIDs []string, limit int) ([]domain.Source, error)
}

// ConversationService exposes stored conversation history.
type ConversationService interface {
	// List returns conversation summaries, most recently updated first.
	List(ctx context.Context) ([]domain.ConversationSummary, error)

	// Get returns a conversation with all of its messages.
	Get(ctx context.Context, id string) (*domain.Conversation, error)

	// Delete removes a conversation.
	Delete(ctx context.Context, id string) error
}
