package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DocumentStore persists documents and their chunks and answers lexical
// queries over chunk content. A document and all of its chunks appear or
// disappear as one unit.
type DocumentStore interface {
	// SaveDocument stores or updates a document record.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// UpdateStatus sets the ingestion status and failure reason.
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, reason string) error

	// ReplaceChunks atomically swaps the chunks of a document, sets its
	// chunk count and marks it completed.
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all documents, newest first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// MissingDocuments returns the IDs from ids that do not exist.
	MissingDocuments(ctx context.Context, ids []string) ([]string, error)

	// DeleteDocument removes a document and all of its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// GetChunks returns the chunks of a document in sequence order.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// SearchChunks runs a lexical query restricted to documentIDs.
	// Exact phrase matches rank first. Hits carry their zero-based rank.
	SearchChunks(ctx context.Context, query string, documentIDs []string, limit int) ([]domain.ChunkHit, error)

	// FirstChunks returns up to limit chunks of documentIDs ordered by
	// document then sequence index.
	FirstChunks(ctx context.Context, documentIDs []string, limit int) ([]domain.ChunkHit, error)

	// Stats summarises the store contents.
	Stats(ctx context.Context) (*domain.DocumentStats, error)
}
