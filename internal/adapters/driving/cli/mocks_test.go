package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

type mockChatService struct {
	mu      sync.Mutex
	lastReq domain.ChatRequest
	events  []domain.StreamEvent
	resp    *domain.ChatResponse
	err     error
	sources []domain.Source
	query   string
	limit   int
	docIDs  []string
}

func (m *mockChatService) Stream(_ context.Context, req domain.ChatRequest) (<-chan domain.StreamEvent, error) {
	m.mu.Lock()
	m.lastReq = req
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
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
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func (m *mockChatService) Search(_ context.Context, query string, docIDs []string, limit int) ([]domain.Source, error) {
	m.query, m.docIDs, m.limit = query, docIDs, limit
	if m.err != nil {
		return nil, m.err
	}
	return m.sources, nil
}

type mockConversationService struct {
	convs map[string]*domain.Conversation
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
	return nil
}

// mockDocumentService completes every upload when Wait is called.
type mockDocumentService struct {
	mu      sync.Mutex
	docs    map[string]*domain.Document
	next    int
	waited  bool
	urls    []string
	failURL bool
}

func newMockDocumentService() *mockDocumentService {
	return &mockDocumentService{docs: make(map[string]*domain.Document)}
}

func (m *mockDocumentService) Upload(_ context.Context, name string, content []byte) (*domain.Document, error) {
	if len(content) == 0 {
		return nil, domain.ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	doc := &domain.Document{
		ID:        fmt.Sprintf("doc-%d", m.next),
		Name:      name,
		Type:      domain.DocumentTypeText,
		Status:    domain.StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.docs[doc.ID] = doc
	return doc, nil
}

func (m *mockDocumentService) AddURL(_ context.Context, rawURL string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = append(m.urls, rawURL)
	doc := &domain.Document{ID: "doc-url", Name: rawURL, Type: domain.DocumentTypeWebPage, Source: rawURL, Status: domain.StatusPending}
	m.docs[doc.ID] = doc
	return doc, nil
}

func (m *mockDocumentService) List(context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Document
	for _, d := range m.docs {
		out = append(out, *d)
	}
	return out, nil
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *mockDocumentService) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *mockDocumentService) Stats(context.Context) (*domain.DocumentStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &domain.DocumentStats{StatusBreakdown: make(map[domain.DocumentStatus]int)}
	for _, d := range m.docs {
		stats.TotalDocuments++
		stats.TotalChunks += d.ChunkCount
		stats.StatusBreakdown[d.Status]++
	}
	return stats, nil
}

func (m *mockDocumentService) Subscribe(string) (<-chan domain.StatusEvent, func()) {
	return nil, func() {}
}

func (m *mockDocumentService) Wait() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waited = true
	for _, d := range m.docs {
		if d.Status != domain.StatusPending {
			continue
		}
		if d.Source != "" && m.failURL {
			d.Status = domain.StatusFailed
			d.Error = "fetch failed"
			continue
		}
		d.Status = domain.StatusCompleted
		d.ChunkCount = 3
	}
}

type mockSettingsService struct {
	settings    domain.AppSettings
	values      map[string]string
	webKey      string
	provider    domain.AIProvider
	model       string
	apiKey      string
	validateErr error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings(), values: make(map[string]string)}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.provider, m.model, m.apiKey = provider, model, apiKey
	return nil
}

func (m *mockSettingsService) SetWebAPIKey(apiKey string) error {
	m.webKey = apiKey
	return nil
}

func (m *mockSettingsService) SetValue(key, value string) error {
	if key == "bogus" {
		return errors.New("unknown setting")
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) Validate() error                 { return m.validateErr }
func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
func (m *mockSettingsService) ValidateLLMConfig() error        { return nil }

type testServices struct {
	chat          *mockChatService
	conversations *mockConversationService
	documents     *mockDocumentService
	settings      *mockSettingsService
}

var mocks testServices

// setupTestServices installs fresh mocks and returns a cleanup func that
// removes them and resets every flag to its default.
func setupTestServices() func() {
	mocks = testServices{
		chat: &mockChatService{
			resp: &domain.ChatResponse{
				Answer:         "Staff get 25 days [1].",
				ConversationID: "conv-1",
				Sources: []domain.Source{
					{Origin: domain.OriginInternal, Label: "policy.md", Score: 0.9, DocumentID: "doc-1"},
				},
			},
			sources: []domain.Source{
				{Origin: domain.OriginInternal, Label: "policy.md", Score: 0.8, DocumentID: "doc-1", Snippet: "25 days"},
			},
		},
		conversations: &mockConversationService{convs: map[string]*domain.Conversation{
			"conv-1": {
				ID: "conv-1",
				Messages: []domain.Message{
					{Role: domain.RoleUser, Content: "How many days?"},
					{Role: domain.RoleAssistant, Content: "25 days."},
				},
			},
		}},
		documents: newMockDocumentService(),
		settings:  newMockSettingsService(),
	}
	SetServices(Services{
		Chat:          mocks.chat,
		Conversations: mocks.conversations,
		Documents:     mocks.documents,
		Settings:      mocks.settings,
	})

	return func() {
		SetServices(Services{})
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
