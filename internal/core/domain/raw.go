package domain

// RawDocument is an upload or fetched page before text extraction.
type RawDocument struct {
	// Name is the filename or URL.
	Name string

	// Type selects the normaliser.
	Type DocumentType

	// MIMEType is the detected content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}

// Size returns the content length in bytes.
func (r *RawDocument) Size() int64 {
	return int64(len(r.Content))
}
