// Package pdf extracts text from PDF documents page by page.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles PDF documents.
type Normaliser struct{}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedTypes returns the document types this normaliser handles.
func (n *Normaliser) SupportedTypes() []domain.DocumentType {
	return []domain.DocumentType{domain.DocumentTypePDF}
}

// Normalise extracts the text layer of every page. Pages are separated by
// blank lines; pages without text are skipped. Scanned documents without a
// text layer produce empty content.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (result *driven.NormaliseResult, err error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: malformed pdf: %v", domain.ErrInvalidInput, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %w", domain.ErrInvalidInput, err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Debug("Skipping page %d of %s: %v", i, raw.Name, err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}

	return &driven.NormaliseResult{
		Title:   documentTitle(reader, raw.Name),
		Content: strings.Join(pages, "\n\n"),
	}, nil
}

// documentTitle reads /Title from the document info dictionary or falls
// back to the filename.
func documentTitle(reader *pdf.Reader, name string) string {
	if title := strings.TrimSpace(reader.Trailer().Key("Info").Key("Title").Text()); title != "" {
		return title
	}

	filename := filepath.Base(name)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	return strings.ReplaceAll(filename, "-", " ")
}
