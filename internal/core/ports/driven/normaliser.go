package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Normaliser extracts plain text from one or more document formats.
type Normaliser interface {
	// SupportedTypes returns the document types this normaliser handles.
	SupportedTypes() []domain.DocumentType

	// Normalise extracts the readable text of a raw document.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Chunking is handled by the Chunker.
type NormaliseResult struct {
	// Title is the document title when the format carries one.
	Title string

	// Content is the extracted text.
	Content string
}

// NormaliserRegistry selects a normaliser by document type.
type NormaliserRegistry interface {
	// Register adds a normaliser for all of its supported types.
	Register(n Normaliser)

	// Get returns the normaliser for a document type.
	// Returns domain.ErrUnsupportedType if none is registered.
	Get(t domain.DocumentType) (Normaliser, error)

	// Detect sniffs the content of an upload whose name carries no known
	// extension. Returns the document type and the detected MIME type, or
	// domain.ErrUnsupportedType.
	Detect(content []byte) (domain.DocumentType, string, error)
}
