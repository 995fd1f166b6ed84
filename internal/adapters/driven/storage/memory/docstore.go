package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// Lexical search is a case-insensitive substring match over query terms.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
	}
}

// SaveDocument stores or updates a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

// UpdateStatus sets the ingestion status and failure reason.
func (s *DocumentStore) UpdateStatus(
	_ context.Context, id string, status domain.DocumentStatus, reason string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = status
	doc.Error = reason
	doc.UpdatedAt = time.Now()
	s.documents[id] = doc
	return nil
}

// ReplaceChunks swaps the chunks of a document and marks it completed.
func (s *DocumentStore) ReplaceChunks(_ context.Context, documentID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[documentID]
	if !ok {
		return domain.ErrNotFound
	}

	stored := make([]domain.Chunk, len(chunks))
	copy(stored, chunks)
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].Position < stored[j].Position })
	s.chunks[documentID] = stored

	doc.ChunkCount = len(stored)
	doc.Status = domain.StatusCompleted
	doc.Error = ""
	doc.UpdatedAt = time.Now()
	s.documents[documentID] = doc
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListDocuments returns all documents, newest first.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Document, 0, len(s.documents))
	for id := range s.documents {
		result = append(result, s.documents[id])
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// MissingDocuments returns the IDs from ids that do not exist.
func (s *DocumentStore) MissingDocuments(_ context.Context, ids []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var missing []string
	for _, id := range ids {
		if _, ok := s.documents[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// DeleteDocument removes a document and its chunks.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.documents, id)
	delete(s.chunks, id)
	return nil
}

// GetChunks retrieves all chunks for a document in sequence order.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := s.chunks[documentID]
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)
	return out, nil
}

// memoryHit is a candidate match before ranking.
type memoryHit struct {
	hit         domain.ChunkHit
	termsHit    int
	occurrences int
}

// SearchChunks matches the whole query as a phrase or any query term as a
// substring. Phrase matches rank first, then chunks matching more distinct
// terms, then more occurrences, then (document, position).
func (s *DocumentStore) SearchChunks(
	_ context.Context, query string, documentIDs []string, limit int,
) ([]domain.ChunkHit, error) {
	phrase := domain.NormaliseQuery(query)
	terms := domain.QueryTerms(query)
	if phrase == "" || limit <= 0 || len(documentIDs) == 0 {
		return []domain.ChunkHit{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []memoryHit
	for _, docID := range uniqueSorted(documentIDs) {
		doc, ok := s.documents[docID]
		if !ok {
			continue
		}
		for _, chunk := range s.chunks[docID] {
			content := domain.FoldCase(chunk.Content)
			exact := strings.Contains(content, phrase)
			termsHit, occurrences := 0, 0
			for _, term := range terms {
				if n := strings.Count(content, term); n > 0 {
					termsHit++
					occurrences += n
				}
			}
			if !exact && termsHit == 0 {
				continue
			}
			candidates = append(candidates, memoryHit{
				hit:         domain.ChunkHit{Chunk: chunk, DocumentName: doc.Name, Exact: exact},
				termsHit:    termsHit,
				occurrences: occurrences,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.hit.Exact != b.hit.Exact {
			return a.hit.Exact
		}
		if a.termsHit != b.termsHit {
			return a.termsHit > b.termsHit
		}
		return a.occurrences > b.occurrences
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	hits := make([]domain.ChunkHit, len(candidates))
	for i, c := range candidates {
		hits[i] = c.hit
		hits[i].Rank = i
	}
	return hits, nil
}

// FirstChunks returns up to limit chunks ordered by document ID then position.
func (s *DocumentStore) FirstChunks(
	_ context.Context, documentIDs []string, limit int,
) ([]domain.ChunkHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := []domain.ChunkHit{}
	for _, docID := range uniqueSorted(documentIDs) {
		doc, ok := s.documents[docID]
		if !ok {
			continue
		}
		for _, chunk := range s.chunks[docID] {
			if len(hits) >= limit {
				return hits, nil
			}
			hits = append(hits, domain.ChunkHit{Chunk: chunk, DocumentName: doc.Name, Rank: len(hits)})
		}
	}
	return hits, nil
}

// Stats summarises the store contents.
func (s *DocumentStore) Stats(_ context.Context) (*domain.DocumentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &domain.DocumentStats{
		TotalDocuments:  len(s.documents),
		StatusBreakdown: emptyBreakdown(),
	}
	for id := range s.documents {
		stats.StatusBreakdown[s.documents[id].Status]++
	}
	for _, chunks := range s.chunks {
		stats.TotalChunks += len(chunks)
	}
	return stats, nil
}

func emptyBreakdown() map[domain.DocumentStatus]int {
	return map[domain.DocumentStatus]int{
		domain.StatusPending:    0,
		domain.StatusProcessing: 0,
		domain.StatusCompleted:  0,
		domain.StatusFailed:     0,
	}
}

// uniqueSorted returns ids deduplicated in ascending order.
func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
