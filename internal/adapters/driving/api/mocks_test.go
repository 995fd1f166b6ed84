package api

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

type mockChatService struct {
	mu        sync.Mutex
	lastReq   domain.ChatRequest
	events    []domain.StreamEvent
	streamErr error
	resp      *domain.ChatResponse
	askErr    error
}

func (m *mockChatService) Stream(_ context.Context, req domain.ChatRequest) (<-chan domain.StreamEvent, error) {
	m.mu.Lock()
	m.lastReq = req
	m.mu.Unlock()
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	ch := make(chan domain.StreamEvent, len(m.events))
	for _, ev := range m.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (m *mockChatService) Ask(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	m.mu.Lock()
	m.lastReq = req
	m.mu.Unlock()
	return m.resp, m.askErr
}

func (m *mockChatService) Search(context.Context, string, []string, int) ([]domain.Source, error) {
	return nil, nil
}

type mockConversationService struct {
	convs   map[string]*domain.Conversation
	deleted []string
}

func (m *mockConversationService) List(context.Context) ([]domain.ConversationSummary, error) {
	var out []domain.ConversationSummary
	for _, c := range m.convs {
		out = append(out, c.Summary())
	}
	return out, nil
}

func (m *mockConversationService) Get(_ context.Context, id string) (*domain.Conversation, error) {
	c, ok := m.convs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (m *mockConversationService) Delete(_ context.Context, id string) error {
	if _, ok := m.convs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.convs, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockDocumentService struct {
	mu        sync.Mutex
	docs      map[string]*domain.Document
	uploadErr error
	uploaded  []byte
	urls      []string
	events    chan domain.StatusEvent
	released  bool
}

func newMockDocumentService() *mockDocumentService {
	return &mockDocumentService{docs: make(map[string]*domain.Document)}
}

func (m *mockDocumentService) Upload(_ context.Context, name string, content []byte) (*domain.Document, error) {
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	m.uploaded = content
	doc := &domain.Document{ID: "doc-new", Name: name, Type: domain.DocumentTypeText, Status: domain.StatusPending}
	m.docs[doc.ID] = doc
	return doc, nil
}

func (m *mockDocumentService) AddURL(_ context.Context, rawURL string) (*domain.Document, error) {
	m.urls = append(m.urls, rawURL)
	return &domain.Document{ID: "doc-url", Name: rawURL, Type: domain.DocumentTypeWebPage, Status: domain.StatusPending}, nil
}

func (m *mockDocumentService) List(context.Context) ([]domain.Document, error) {
	var out []domain.Document
	for _, d := range m.docs {
		out = append(out, *d)
	}
	return out, nil
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

func (m *mockDocumentService) Delete(_ context.Context, id string) error {
	if _, ok := m.docs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *mockDocumentService) Stats(context.Context) (*domain.DocumentStats, error) {
	return &domain.DocumentStats{TotalDocuments: len(m.docs)}, nil
}

func (m *mockDocumentService) Subscribe(string) (<-chan domain.StatusEvent, func()) {
	if m.events == nil {
		return nil, nil
	}
	return m.events, func() {
		m.mu.Lock()
		m.released = true
		m.mu.Unlock()
	}
}

func (m *mockDocumentService) Wait() {}

type mockSettingsService struct {
	settings domain.AppSettings
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}
func (m *mockSettingsService) Save(*domain.AppSettings) error                          { return nil }
func (m *mockSettingsService) SetLLMProvider(domain.AIProvider, string, string) error { return nil }
func (m *mockSettingsService) SetWebAPIKey(string) error                               { return nil }
func (m *mockSettingsService) SetValue(string, string) error                           { return nil }
func (m *mockSettingsService) Validate() error                                         { return nil }
func (m *mockSettingsService) GetDefaults() domain.AppSettings                         { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateLLMConfig() error                                { return nil }
