package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService ingests documents: it records them, extracts and chunks
// their text in the background, and reports status changes.
type DocumentService struct {
	docStore    driven.DocumentStore
	normalisers driven.NormaliserRegistry
	chunker     driven.Chunker
	fetcher     driven.PageFetcher
	notifier    driven.StatusNotifier
	settings    domain.IngestionSettings

	// Background tasks outlive the request that started them.
	baseCtx context.Context
	cancel  context.CancelFunc
	tasks   sync.WaitGroup
	slots   chan struct{}
}

// NewDocumentService creates a document service. The fetcher and notifier
// are attached with SetPageFetcher and SetNotifier; both are optional.
func NewDocumentService(
	docStore driven.DocumentStore,
	normalisers driven.NormaliserRegistry,
	chunker driven.Chunker,
	settings domain.IngestionSettings,
) *DocumentService {
	defaults := domain.DefaultAppSettings().Ingestion
	if settings.MaxDocumentBytes <= 0 {
		settings.MaxDocumentBytes = defaults.MaxDocumentBytes
	}
	if settings.Workers <= 0 {
		settings.Workers = defaults.Workers
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &DocumentService{
		docStore:    docStore,
		normalisers: normalisers,
		chunker:     chunker,
		settings:    settings,
		baseCtx:     ctx,
		cancel:      cancel,
		slots:       make(chan struct{}, settings.Workers),
	}
}

// SetPageFetcher enables AddURL.
func (s *DocumentService) SetPageFetcher(f driven.PageFetcher) {
	s.fetcher = f
}

// SetNotifier sets where status changes are published.
func (s *DocumentService) SetNotifier(n driven.StatusNotifier) {
	s.notifier = n
}

// Upload validates and records a file, then ingests it in the background.
func (s *DocumentService) Upload(ctx context.Context, name string, content []byte) (*domain.Document, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrInvalidInput, name)
	}
	if int64(len(content)) > s.settings.MaxDocumentBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d",
			domain.ErrTooLarge, name, len(content), s.settings.MaxDocumentBytes)
	}

	raw := &domain.RawDocument{Name: name, Content: content}
	if err := s.detectType(raw); err != nil {
		return nil, err
	}

	doc, err := s.record(ctx, name, raw.Type, "")
	if err != nil {
		return nil, err
	}

	logger.Info("Uploaded %s (%s, %d bytes) as %s", name, raw.Type, len(content), doc.ID)
	s.spawn(doc.ID, func(ctx context.Context) (*domain.RawDocument, error) {
		return raw, nil
	})
	return doc, nil
}

// AddURL records a web page and fetches and ingests it in the background.
func (s *DocumentService) AddURL(ctx context.Context, rawURL string) (*domain.Document, error) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an http(s) URL", domain.ErrInvalidInput, rawURL)
	}
	if s.fetcher == nil {
		return nil, fmt.Errorf("%w: web page ingestion is not configured", domain.ErrUnsupportedType)
	}

	doc, err := s.record(ctx, rawURL, domain.DocumentTypeWebPage, rawURL)
	if err != nil {
		return nil, err
	}

	logger.Info("Queued %s as %s", rawURL, doc.ID)
	s.spawn(doc.ID, func(ctx context.Context) (*domain.RawDocument, error) {
		raw, err := s.fetcher.Fetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
		}
		if int64(len(raw.Content)) > s.settings.MaxDocumentBytes {
			return nil, fmt.Errorf("%w: page is %d bytes", domain.ErrTooLarge, len(raw.Content))
		}
		if !raw.Type.IsValid() {
			raw.Type = domain.DocumentTypeWebPage
		}
		return raw, nil
	})
	return doc, nil
}

// List returns all documents.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	return s.docStore.ListDocuments(ctx)
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	return s.docStore.GetDocument(ctx, id)
}

// Delete removes a document and its chunks.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	if err := s.docStore.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	logger.Info("Deleted document %s", id)
	return nil
}

// Stats summarises stored documents.
func (s *DocumentService) Stats(ctx context.Context) (*domain.DocumentStats, error) {
	return s.docStore.Stats(ctx)
}

// Subscribe returns status events for one document, or a nil channel when
// the notifier cannot fan events out.
func (s *DocumentService) Subscribe(documentID string) (<-chan domain.StatusEvent, func()) {
	sub, ok := s.notifier.(driven.StatusSubscriber)
	if !ok {
		return nil, func() {}
	}
	return sub.Subscribe(documentID)
}

// Wait blocks until every background ingestion task has finished.
func (s *DocumentService) Wait() {
	s.tasks.Wait()
}

// Close cancels running ingestion tasks and waits for them to exit.
func (s *DocumentService) Close() {
	s.cancel()
	s.tasks.Wait()
}

// detectType sets raw.Type from the filename, falling back to sniffing
// the content, and checks a normaliser exists for it.
func (s *DocumentService) detectType(raw *domain.RawDocument) error {
	if s.normalisers == nil {
		return fmt.Errorf("%w: no extractors registered", domain.ErrUnsupportedType)
	}

	if t, ok := domain.DocumentTypeFromFilename(raw.Name); ok {
		raw.Type = t
	} else {
		t, mime, err := s.normalisers.Detect(raw.Content)
		if err != nil {
			return fmt.Errorf("%s: %w", raw.Name, err)
		}
		raw.Type = t
		raw.MIMEType = mime
	}

	if _, err := s.normalisers.Get(raw.Type); err != nil {
		return fmt.Errorf("%s: %w", raw.Name, err)
	}
	return nil
}

// record saves a pending document.
func (s *DocumentService) record(
	ctx context.Context, name string, docType domain.DocumentType, source string,
) (*domain.Document, error) {
	now := time.Now()
	doc := &domain.Document{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      docType,
		Source:    source,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	s.notify(domain.StatusEvent{DocumentID: doc.ID, Status: domain.StatusPending, Timestamp: now})
	return doc, nil
}

// spawn runs ingestion for one document on a worker slot.
func (s *DocumentService) spawn(docID string, load func(ctx context.Context) (*domain.RawDocument, error)) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()

		select {
		case s.slots <- struct{}{}:
			defer func() { <-s.slots }()
		case <-s.baseCtx.Done():
			s.fail(docID, s.baseCtx.Err())
			return
		}

		s.ingest(s.baseCtx, docID, load)
	}()
}

// ingest moves a document through processing to completed or failed.
func (s *DocumentService) ingest(
	ctx context.Context, docID string, load func(ctx context.Context) (*domain.RawDocument, error),
) {
	if err := s.docStore.UpdateStatus(ctx, docID, domain.StatusProcessing, ""); err != nil {
		logger.Warn("Document %s: mark processing: %v", docID, err)
		return
	}
	s.notify(domain.StatusEvent{DocumentID: docID, Status: domain.StatusProcessing, Timestamp: time.Now()})

	count, err := s.process(ctx, docID, load)
	if err != nil {
		s.fail(docID, err)
		return
	}

	logger.Info("Document %s: %d chunks stored", docID, count)
	s.notify(domain.StatusEvent{
		DocumentID: docID,
		Status:     domain.StatusCompleted,
		ChunkCount: count,
		Timestamp:  time.Now(),
	})
}

func (s *DocumentService) process(
	ctx context.Context, docID string, load func(ctx context.Context) (*domain.RawDocument, error),
) (int, error) {
	raw, err := load(ctx)
	if err != nil {
		return 0, err
	}

	normaliser, err := s.normalisers.Get(raw.Type)
	if err != nil {
		return 0, err
	}
	result, err := normaliser.Normalise(ctx, raw)
	if err != nil {
		return 0, fmt.Errorf("extract text: %w", err)
	}

	text := CleanText(result.Content)
	if text == "" {
		return 0, fmt.Errorf("%w: no extractable text", domain.ErrInvalidInput)
	}

	chunks := s.chunker.Chunk(docID, text, map[string]any{
		"source":   raw.Name,
		"doc_type": string(raw.Type),
	})
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: document produced no chunks", domain.ErrInvalidInput)
	}
	for i := range chunks {
		if chunks[i].Metadata == nil {
			chunks[i].Metadata = make(map[string]any)
		}
		chunks[i].Metadata["chunk_index"] = i
		chunks[i].Metadata["total_chunks"] = len(chunks)
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.docStore.ReplaceChunks(ctx, docID, chunks); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	return len(chunks), nil
}

// fail records a failed ingestion. A document deleted mid-ingestion is
// left alone.
func (s *DocumentService) fail(docID string, cause error) {
	if errors.Is(cause, domain.ErrNotFound) {
		logger.Debug("Document %s removed during ingestion", docID)
		return
	}
	logger.Warn("Document %s failed: %v", docID, cause)

	ctx := context.WithoutCancel(s.baseCtx)
	if err := s.docStore.UpdateStatus(ctx, docID, domain.StatusFailed, cause.Error()); err != nil {
		logger.Warn("Document %s: mark failed: %v", docID, err)
		return
	}
	s.notify(domain.StatusEvent{
		DocumentID: docID,
		Status:     domain.StatusFailed,
		Error:      cause.Error(),
		Timestamp:  time.Now(),
	})
}

func (s *DocumentService) notify(event domain.StatusEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(context.WithoutCancel(s.baseCtx), event); err != nil {
		logger.Warn("Publish status for %s: %v", event.DocumentID, err)
	}
}

var (
	spaceRun     = regexp.MustCompile(`[ \t\f\v]+`)
	paragraphRun = regexp.MustCompile(`\n{3,}`)
)

// CleanText strips control characters and collapses whitespace runs while
// keeping paragraph breaks.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == unicode.ReplacementChar, unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			return -1
		case unicode.IsSpace(r):
			return ' '
		default:
			return r
		}
	}, text)
	text = spaceRun.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = paragraphRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
