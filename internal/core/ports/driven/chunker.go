package driven

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// Chunker splits extracted document text into chunks.
type Chunker interface {
	// Chunk splits text into chunks owned by documentID, in sequence order.
	Chunk(documentID, text string, metadata map[string]any) []domain.Chunk
}
