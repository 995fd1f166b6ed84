package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockConfigStore implements driven.ConfigStore for testing.
type mockConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{values: make(map[string]any)}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	v, _ := m.Get(key)
	s, _ := v.(string)
	return s
}

func (m *mockConfigStore) GetInt(key string) int {
	v, _ := m.Get(key)
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

func (m *mockConfigStore) GetBool(key string) bool {
	v, _ := m.Get(key)
	b, _ := v.(bool)
	return b
}

func (m *mockConfigStore) GetStringSlice(key string) []string {
	v, _ := m.Get(key)
	s, _ := v.([]string)
	return s
}

func (m *mockConfigStore) Set(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Save() error { return nil }
func (m *mockConfigStore) Load() error { return nil }
func (m *mockConfigStore) Path() string {
	return "mock://config.toml"
}

// mockTokenStream implements driven.TokenStream over a fixed list of fragments.
// When failAfter >= 0 it returns err after that many fragments.
type mockTokenStream struct {
	tokens    []string
	failAfter int
	err       error
	pos       int
	closed    bool
	mu        sync.Mutex
}

func (s *mockTokenStream) Recv() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter >= 0 && s.pos == s.failAfter {
		return "", s.err
	}
	if s.pos >= len(s.tokens) {
		return "", io.EOF
	}
	tok := s.tokens[s.pos]
	s.pos++
	return tok, nil
}

func (s *mockTokenStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *mockTokenStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// mockLLMService implements driven.LLMService for testing.
type mockLLMService struct {
	mu         sync.Mutex
	chatReply  string
	chatErr    error
	streamErr  error
	tokens     []string
	failAfter  int
	midErr     error
	block      bool
	chatCalls  int
	lastStream []driven.ChatMessage
	lastOpts   driven.ChatOptions
	streams    []*mockTokenStream
}

func newMockLLM(tokens ...string) *mockLLMService {
	return &mockLLMService{tokens: tokens, failAfter: -1}
}

func (m *mockLLMService) Chat(ctx context.Context, _ []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	m.chatCalls++
	m.lastOpts = opts
	block := m.block
	m.mu.Unlock()
	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if m.chatErr != nil {
		return "", m.chatErr
	}
	return m.chatReply, nil
}

func (m *mockLLMService) ChatStream(
	_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions,
) (driven.TokenStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastOpts = opts
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	m.lastStream = messages
	s := &mockTokenStream{tokens: m.tokens, failAfter: m.failAfter, err: m.midErr}
	m.streams = append(m.streams, s)
	return s, nil
}

func (m *mockLLMService) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chatCalls
}

func (m *mockLLMService) lastMessages() []driven.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastStream
}

func (m *mockLLMService) ModelName() string            { return "mock-llm" }
func (m *mockLLMService) Ping(_ context.Context) error { return nil }
func (m *mockLLMService) Close() error                 { return nil }

// mockWebProvider implements driven.WebEvidenceProvider for testing.
type mockWebProvider struct {
	mu           sync.Mutex
	results      []domain.WebResult
	searchErr    error
	extract      *domain.WebResult
	extractErr   error
	searchCalls  int
	extractCalls int
	lastMax      int
	lastURL      string
}

func (m *mockWebProvider) Search(_ context.Context, _ string, maxResults int) ([]domain.WebResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCalls++
	m.lastMax = maxResults
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if maxResults < len(m.results) {
		return m.results[:maxResults], nil
	}
	return m.results, nil
}

func (m *mockWebProvider) Extract(_ context.Context, url string) (*domain.WebResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extractCalls++
	m.lastURL = url
	if m.extractErr != nil {
		return nil, m.extractErr
	}
	if m.extract != nil {
		return m.extract, nil
	}
	return &domain.WebResult{URL: url, Title: "Extracted", Content: "page body"}, nil
}

func (m *mockWebProvider) counts() (search, extract int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searchCalls, m.extractCalls
}

// mockDecider implements Decider for testing.
type mockDecider struct {
	answer bool
	err    error
	calls  int
}

func (m *mockDecider) Decide(_ context.Context, _ string, _ []domain.Message) (bool, error) {
	m.calls++
	return m.answer, m.err
}

// failingDocStore wraps a DocumentStore and fails lexical queries.
type failingDocStore struct {
	driven.DocumentStore
}

func (f failingDocStore) SearchChunks(context.Context, string, []string, int) ([]domain.ChunkHit, error) {
	return nil, errors.New("index unavailable")
}

func (f failingDocStore) FirstChunks(context.Context, []string, int) ([]domain.ChunkHit, error) {
	return nil, errors.New("index unavailable")
}

// joinTokens concatenates token event contents.
func joinTokens(events []domain.StreamEvent) string {
	var b strings.Builder
	for _, e := range events {
		if e.Type == domain.EventToken {
			b.WriteString(e.Token.Content)
		}
	}
	return b.String()
}

// eventTypes lists the types of a drained event stream.
func eventTypes(events []domain.StreamEvent) []domain.EventType {
	types := make([]domain.EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

// drain reads a stream channel to completion.
func drain(ch <-chan domain.StreamEvent) []domain.StreamEvent {
	var events []domain.StreamEvent
	for e := range ch {
		events = append(events, e)
	}
	return events
}
