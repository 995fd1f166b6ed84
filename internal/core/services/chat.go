package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// Request bounds.
const (
	maxMessageLength   = 4000
	maxInternalSources = 20
	maxWebSources      = 10
	defaultSearchLimit = 5
	maxSearchLimit     = 50
	eventBuffer        = 16
)

// ChatService answers questions: it validates the request, plans, retrieves
// evidence and streams the answer, then records the exchange.
type ChatService struct {
	docStore      driven.DocumentStore
	planner       *Planner
	retrieval     *RetrievalCoordinator
	streamer      *AnswerStreamer
	conversations *ConversationRegistry
	settings      domain.RetrievalSettings
}

// NewChatService creates a chat service.
func NewChatService(
	docStore driven.DocumentStore,
	planner *Planner,
	retrieval *RetrievalCoordinator,
	streamer *AnswerStreamer,
	conversations *ConversationRegistry,
	settings domain.RetrievalSettings,
) *ChatService {
	if settings.DefaultScope == "" {
		settings.DefaultScope = domain.ScopeAll
	}
	return &ChatService{
		docStore:      docStore,
		planner:       planner,
		retrieval:     retrieval,
		streamer:      streamer,
		conversations: conversations,
		settings:      settings,
	}
}

// Stream validates req and answers it in the background.
func (s *ChatService) Stream(ctx context.Context, req domain.ChatRequest) (<-chan domain.StreamEvent, error) {
	req, err := s.normalise(req)
	if err != nil {
		return nil, err
	}

	scope, err := s.resolveScope(ctx, req.DocumentIDs)
	if err != nil {
		return nil, err
	}

	convID := s.conversations.Resolve(req.ConversationID)
	sink := NewEventSink(ctx, eventBuffer)

	go s.run(ctx, sink, req, convID, scope)

	return sink.Events(), nil
}

// run is the asynchronous part of a request. It owns the sink.
func (s *ChatService) run(
	ctx context.Context, sink *EventSink, req domain.ChatRequest, convID string, scope []string,
) {
	defer sink.Close()

	started := time.Now()
	logger.Section("Chat")
	logger.Debug("Conversation %s, scope %d documents", convID, len(scope))

	if err := sink.Metadata(convID, started); err != nil {
		return
	}

	history := s.conversations.History(ctx, convID)
	plan := s.planner.Plan(ctx, req.Message, history)
	if ctx.Err() != nil {
		return
	}

	evidence := s.retrieval.Retrieve(ctx, domain.RetrievalRequest{
		Scope:          scope,
		Query:          req.Message,
		Plan:           plan,
		ForceWebSearch: req.ForceWebSearch,
		Limits:         domain.Limits{MaxInternal: req.MaxInternalSources, MaxWeb: req.MaxWebSources},
	})
	if ctx.Err() != nil {
		return
	}

	done, err := s.streamer.Stream(ctx, sink, AnswerInput{
		Query:      req.Message,
		History:    history,
		Evidence:   evidence,
		DocsScoped: len(scope) > 0,
		Started:    started,
	})
	if err != nil {
		return
	}

	// The exchange is recorded only after done reached the caller.
	now := time.Now()
	persistCtx := context.WithoutCancel(ctx)
	err = s.conversations.Append(persistCtx, convID,
		domain.Message{Role: domain.RoleUser, Content: req.Message, Timestamp: started},
		domain.Message{
			Role:      domain.RoleAssistant,
			Content:   done.Answer,
			Timestamp: now,
			Sources:   domain.SourcesFrom(evidence.Items),
		},
	)
	if err != nil {
		logger.Error("Record conversation %s: %v", convID, err)
	}
}

// Ask runs the streaming pipeline and returns the aggregate answer.
func (s *ChatService) Ask(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	events, err := s.Stream(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := &domain.ChatResponse{Sources: []domain.Source{}}
	var terminal *domain.StreamEvent
	for e := range events {
		switch e.Type {
		case domain.EventMetadata:
			resp.ConversationID = e.Metadata.ConversationID
		case domain.EventSources:
			resp.Sources = e.Sources.Sources
			resp.InternalCount = e.Sources.InternalCount
			resp.WebCount = e.Sources.WebCount
		case domain.EventDone, domain.EventError:
			ev := e
			terminal = &ev
		}
	}

	if terminal == nil {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStreamClosed, err)
		}
		return nil, domain.ErrStreamClosed
	}
	if terminal.Type == domain.EventError {
		return nil, fmt.Errorf("%w: %s", domain.ErrGenerationFailure, terminal.Error.Error)
	}

	resp.Answer = terminal.Done.Answer
	resp.ConfidenceScore = terminal.Done.ConfidenceScore
	resp.ProcessingTimeMS = terminal.Done.ProcessingTimeMS
	resp.Usage = terminal.Done.Usage
	return resp, nil
}

// Search returns ranked internal evidence for query without generating an
// answer. A nil docIDs uses the default scope.
func (s *ChatService) Search(ctx context.Context, query string, docIDs []string, limit int) ([]domain.Source, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrValidation)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	scope, err := s.resolveScope(ctx, docIDs)
	if err != nil {
		return nil, err
	}

	items, err := s.retrieval.SearchInternal(ctx, query, scope, limit)
	if err != nil {
		return nil, err
	}
	return domain.SourcesFrom(items), nil
}

// normalise applies defaults and rejects malformed requests.
func (s *ChatService) normalise(req domain.ChatRequest) (domain.ChatRequest, error) {
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return req, fmt.Errorf("%w: message is empty", domain.ErrValidation)
	}
	if n := len([]rune(req.Message)); n > maxMessageLength {
		return req, fmt.Errorf("%w: message is %d characters, limit is %d", domain.ErrValidation, n, maxMessageLength)
	}

	if req.MaxInternalSources == 0 {
		req.MaxInternalSources = s.settings.MaxInternal
	}
	if req.MaxWebSources == 0 {
		req.MaxWebSources = s.settings.MaxWeb
	}
	req = req.WithDefaults()

	if req.MaxInternalSources < 0 || req.MaxInternalSources > maxInternalSources {
		return req, fmt.Errorf("%w: max_internal_sources must be between 0 and %d",
			domain.ErrValidation, maxInternalSources)
	}
	if req.MaxWebSources < 0 || req.MaxWebSources > maxWebSources {
		return req, fmt.Errorf("%w: max_web_sources must be between 0 and %d", domain.ErrValidation, maxWebSources)
	}
	return req, nil
}

// resolveScope turns the request's document list into the retrieval scope.
// Nil selects the configured default; an empty list is an explicit opt-out;
// unknown IDs are rejected.
func (s *ChatService) resolveScope(ctx context.Context, docIDs []string) ([]string, error) {
	if docIDs == nil {
		return s.defaultScope(ctx)
	}
	if len(docIDs) == 0 {
		return []string{}, nil
	}
	if s.docStore == nil {
		return nil, fmt.Errorf("%w: document store unavailable", domain.ErrValidation)
	}

	missing, err := s.docStore.MissingDocuments(ctx, docIDs)
	if err != nil {
		return nil, fmt.Errorf("check documents: %w", err)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: unknown documents: %s", domain.ErrValidation, strings.Join(missing, ", "))
	}
	return docIDs, nil
}

func (s *ChatService) defaultScope(ctx context.Context) ([]string, error) {
	if s.settings.DefaultScope == domain.ScopeNone || s.docStore == nil {
		return []string{}, nil
	}
	docs, err := s.docStore.ListDocuments(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		logger.Warn("List documents for default scope: %v", err)
		return []string{}, nil
	}
	scope := make([]string, 0, len(docs))
	for i := range docs {
		if docs[i].Status == domain.StatusCompleted {
			scope = append(scope, docs[i].ID)
		}
	}
	return scope, nil
}
