// Package fetch downloads web pages for ingestion.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Fetcher implements the interface.
var _ driven.PageFetcher = (*Fetcher)(nil)

// Default configuration values.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultMaxBytes = 50 << 20
	userAgent       = "sercha-rag/1.0 (+https://github.com/custodia-labs/sercha-rag)"
)

// contentTypes maps response media types to document types.
var contentTypes = map[string]domain.DocumentType{
	"text/html":             domain.DocumentTypeWebPage,
	"application/xhtml+xml": domain.DocumentTypeWebPage,
	"application/pdf":       domain.DocumentTypePDF,
	"text/plain":            domain.DocumentTypeText,
	"text/markdown":         domain.DocumentTypeMarkdown,
	"text/x-markdown":       domain.DocumentTypeMarkdown,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": domain.DocumentTypeDOCX,
}

// Fetcher downloads pages over HTTP.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher creates a fetcher. Zero values select the defaults.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}, maxBytes: maxBytes}
}

// Fetch downloads url and classifies the body by its Content-Type, falling
// back to content sniffing.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*domain.RawDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrTooLarge, url, f.maxBytes)
	}

	docType, mimeType := classify(resp.Header.Get("Content-Type"), body)
	return &domain.RawDocument{
		Name:     url,
		Type:     docType,
		MIMEType: mimeType,
		Content:  body,
	}, nil
}

// classify picks the document type from the declared media type, then from
// the sniffed one. Unknown content is treated as a web page.
func classify(contentType string, body []byte) (domain.DocumentType, string) {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if t, ok := contentTypes[mediaType]; ok {
			return t, mediaType
		}
	}

	detected := mimetype.Detect(body)
	for m := detected; m != nil; m = m.Parent() {
		if t, ok := contentTypes[m.String()]; ok {
			return t, detected.String()
		}
		if t, ok := contentTypes[stripParams(m.String())]; ok {
			return t, detected.String()
		}
	}
	return domain.DocumentTypeWebPage, detected.String()
}

func stripParams(m string) string {
	mediaType, _, err := mime.ParseMediaType(m)
	if err != nil {
		return m
	}
	return mediaType
}
