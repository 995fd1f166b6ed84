package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	resp       *domain.ChatResponse
	sources    []domain.Source
	err        error
	lastReq    domain.ChatRequest
	lastQuery  string
	lastDocIDs []string
	lastLimit  int
}

func (m *mockChatService) Stream(context.Context, domain.ChatRequest) (<-chan domain.StreamEvent, error) {
	return nil, m.err
}

func (m *mockChatService) Ask(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	m.lastReq = req
	return m.resp, m.err
}

func (m *mockChatService) Search(_ context.Context, query string, docIDs []string, limit int) ([]domain.Source, error) {
	m.lastQuery = query
	m.lastDocIDs = docIDs
	m.lastLimit = limit
	return m.sources, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	err       error
}

func (m *mockDocumentService) Upload(context.Context, string, []byte) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) AddURL(context.Context, string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) List(context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(context.Context, string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Delete(context.Context, string) error {
	return m.err
}

func (m *mockDocumentService) Stats(context.Context) (*domain.DocumentStats, error) {
	return &domain.DocumentStats{}, m.err
}

func (m *mockDocumentService) Subscribe(string) (<-chan domain.StatusEvent, func()) {
	return nil, nil
}

func (m *mockDocumentService) Wait() {}
