package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// DocumentType identifies the format a document was ingested from.
type DocumentType string

// Supported document types.
const (
	DocumentTypePDF      DocumentType = "pdf"
	DocumentTypeDOCX     DocumentType = "docx"
	DocumentTypeMarkdown DocumentType = "markdown"
	DocumentTypeText     DocumentType = "text"
	DocumentTypeWebPage  DocumentType = "web-page"
)

// IsValid returns true if the document type is recognised.
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypePDF, DocumentTypeDOCX, DocumentTypeMarkdown, DocumentTypeText, DocumentTypeWebPage:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t DocumentType) String() string {
	return string(t)
}

// extensionTypes maps lower-case file extensions to document types.
var extensionTypes = map[string]DocumentType{
	".pdf":      DocumentTypePDF,
	".docx":     DocumentTypeDOCX,
	".md":       DocumentTypeMarkdown,
	".markdown": DocumentTypeMarkdown,
	".txt":      DocumentTypeText,
	".text":     DocumentTypeText,
	".html":     DocumentTypeWebPage,
	".htm":      DocumentTypeWebPage,
}

// DocumentTypeFromFilename guesses the document type from a file extension.
// The second return value is false when the extension is unknown.
func DocumentTypeFromFilename(name string) (DocumentType, bool) {
	t, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]
	return t, ok
}

// DocumentStatus is the ingestion state of a document.
type DocumentStatus string

// Ingestion states. A document moves pending -> processing -> completed | failed.
const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once ingestion has finished, successfully or not.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether the ingestion pipeline may move a document
// from s to next.
func (s DocumentStatus) CanTransition(next DocumentStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusFailed
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// String returns the string representation.
func (s DocumentStatus) String() string {
	return string(s)
}

// Document is an ingested file or web page. Only the ingestion pipeline
// mutates it; the query path treats it as read-only.
type Document struct {
	// ID is the unique identifier for the document.
	ID string `json:"id"`

	// Name is the display name (filename or URL).
	Name string `json:"filename"`

	// Type is the format the document was ingested from.
	Type DocumentType `json:"doc_type"`

	// Source is the original location for URL documents.
	Source string `json:"source,omitempty"`

	// Status is the current ingestion state.
	Status DocumentStatus `json:"status"`

	// ChunkCount is the number of chunks stored for the document.
	ChunkCount int `json:"chunk_count"`

	// Error holds the failure reason when Status is failed.
	Error string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Chunk is an immutable slice of document text. Chunks are created and
// deleted together with their owning document.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string `json:"id"`

	// DocumentID links to the parent Document.
	DocumentID string `json:"document_id"`

	// Position is the sequence index within the document.
	Position int `json:"position"`

	// Content is the text content of this chunk.
	Content string `json:"content"`

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DocumentStats summarises the contents of the chunk store.
type DocumentStats struct {
	TotalDocuments  int                    `json:"total_documents"`
	TotalChunks     int                    `json:"total_chunks"`
	StatusBreakdown map[DocumentStatus]int `json:"status_breakdown"`
}

// StatusEvent reports a document status change to interested observers.
type StatusEvent struct {
	DocumentID string         `json:"document_id"`
	Status     DocumentStatus `json:"status"`
	ChunkCount int            `json:"chunk_count"`
	Error      string         `json:"error,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}
