package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

// ConversationStore keeps conversations for the lifetime of the process.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*domain.Conversation
}

// NewConversationStore creates a new in-memory conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]*domain.Conversation),
	}
}

// Append adds messages to the end of a conversation, creating it if needed.
func (s *ConversationStore) Append(_ context.Context, id string, msgs ...domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	conv, ok := s.conversations[id]
	if !ok {
		conv = &domain.Conversation{ID: id, CreatedAt: now}
		s.conversations[id] = conv
	}
	conv.Messages = append(conv.Messages, msgs...)
	conv.UpdatedAt = now
	return nil
}

// Get returns a copy of a conversation.
func (s *ConversationStore) Get(_ context.Context, id string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *conv
	out.Messages = make([]domain.Message, len(conv.Messages))
	copy(out.Messages, conv.Messages)
	return &out, nil
}

// List returns summaries, most recently updated first.
func (s *ConversationStore) List(_ context.Context) ([]domain.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ConversationSummary, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, conv.Summary())
	}
	SortSummaries(out)
	return out, nil
}

// Delete removes a conversation.
func (s *ConversationStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.conversations, id)
	return nil
}

// SortSummaries orders summaries by update time, newest first.
func SortSummaries(summaries []domain.ConversationSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].UpdatedAt.Equal(summaries[j].UpdatedAt) {
			return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})
}
