// Package plaintext extracts text from plain text uploads, decoding the
// common encodings found in the wild.
package plaintext

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedTypes returns the document types this normaliser handles.
func (n *Normaliser) SupportedTypes() []domain.DocumentType {
	return []domain.DocumentType{domain.DocumentTypeText}
}

// Normalise decodes the content to UTF-8.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content, err := Decode(raw.Content)
	if err != nil {
		return nil, err
	}

	return &driven.NormaliseResult{
		Title:   titleFromName(raw.Name),
		Content: content,
	}, nil
}

var (
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode converts text bytes to a UTF-8 string. A byte order mark selects
// UTF-8 or UTF-16; content that is not valid UTF-8 is read as Latin-1, which
// accepts every byte sequence.
func Decode(content []byte) (string, error) {
	if bytes.HasPrefix(content, bomUTF16LE) || bytes.HasPrefix(content, bomUTF16BE) {
		decoder := unicode.BOMOverride(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder())
		out, _, err := transform.Bytes(decoder, content)
		if err != nil {
			return "", domain.ErrInvalidInput
		}
		return string(out), nil
	}

	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(content) {
		return string(content), nil
	}

	out, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), content)
	if err != nil {
		return "", domain.ErrInvalidInput
	}
	return string(out), nil
}

// titleFromName turns a filename into a readable title.
func titleFromName(name string) string {
	filename := filepath.Base(name)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	return strings.ReplaceAll(filename, "-", " ")
}
