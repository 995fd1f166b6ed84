package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DocumentService manages ingested documents.
type DocumentService interface {
	// Upload records a document and starts background ingestion. It
	// returns as soon as the pending record exists.
	Upload(ctx context.Context, name string, content []byte) (*domain.Document, error)

	// AddURL records a web page and starts background fetch and ingestion.
	AddURL(ctx context.Context, rawURL string) (*domain.Document, error)

	// List returns all documents, newest first.
	List(ctx context.Context) ([]domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// Delete removes a document and all of its chunks.
	Delete(ctx context.Context, id string) error

	// Stats summarises stored documents and chunks.
	Stats(ctx context.Context) (*domain.DocumentStats, error)

	// Subscribe returns status events for one document. The returned
	// cancel func releases the subscription. Returns nil channel when push
	// notifications are not configured.
	Subscribe(documentID string) (<-chan domain.StatusEvent, func())

	// Wait blocks until all background ingestion tasks have finished.
	Wait()
}
