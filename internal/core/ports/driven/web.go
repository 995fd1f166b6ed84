package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// WebEvidenceProvider wraps an external web search and page extract API.
// This is an optional service - when nil, web evidence is always empty.
type WebEvidenceProvider interface {
	// Search returns at most maxResults results for query.
	Search(ctx context.Context, query string, maxResults int) ([]domain.WebResult, error)

	// Extract fetches the readable content of a single URL.
	Extract(ctx context.Context, url string) (*domain.WebResult, error)
}

// PageFetcher downloads a web page for ingestion.
type PageFetcher interface {
	// Fetch returns the raw page as a web-page RawDocument.
	Fetch(ctx context.Context, url string) (*domain.RawDocument, error)
}
