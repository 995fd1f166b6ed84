package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure ConversationRegistry implements the interface.
var _ driving.ConversationService = (*ConversationRegistry)(nil)

// ConversationRegistry owns conversation history. It is passed explicitly
// to the services that need it; storage is injected.
type ConversationRegistry struct {
	store driven.ConversationStore
}

// NewConversationRegistry creates a registry over a conversation store.
func NewConversationRegistry(store driven.ConversationStore) *ConversationRegistry {
	return &ConversationRegistry{store: store}
}

// Resolve returns id, or a new identifier when id is blank.
func (r *ConversationRegistry) Resolve(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return uuid.NewString()
}

// History returns the messages of a conversation, or nil when it does not
// exist yet. Store failures are logged and treated as empty history.
func (r *ConversationRegistry) History(ctx context.Context, id string) []domain.Message {
	conv, err := r.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Load conversation %s: %v", id, err)
		}
		return nil
	}
	return conv.Messages
}

// Append adds messages to the end of a conversation.
func (r *ConversationRegistry) Append(ctx context.Context, id string, msgs ...domain.Message) error {
	if err := r.store.Append(ctx, id, msgs...); err != nil {
		return fmt.Errorf("append to conversation %s: %w", id, err)
	}
	return nil
}

// List returns conversation summaries, most recently updated first.
func (r *ConversationRegistry) List(ctx context.Context) ([]domain.ConversationSummary, error) {
	return r.store.List(ctx)
}

// Get returns a conversation with all of its messages.
func (r *ConversationRegistry) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	return r.store.Get(ctx, id)
}

// Delete removes a conversation.
func (r *ConversationRegistry) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, id)
}
