package normalisers

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/docx"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/html"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/markdown"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/pdf"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// mimeTypes maps sniffed MIME types to document types. Lookups walk the
// detected type's parent chain, so text subtypes resolve to text.
var mimeTypes = map[string]domain.DocumentType{
	"application/pdf": domain.DocumentTypePDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": domain.DocumentTypeDOCX,
	"text/html":             domain.DocumentTypeWebPage,
	"application/xhtml+xml": domain.DocumentTypeWebPage,
	"text/markdown":         domain.DocumentTypeMarkdown,
	"text/plain":            domain.DocumentTypeText,
}

// Registry selects a normaliser by document type.
type Registry struct {
	mu          sync.RWMutex
	normalisers map[domain.DocumentType]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{normalisers: make(map[domain.DocumentType]driven.Normaliser)}
}

// NewDefaultRegistry creates a registry with every built-in normaliser.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(pdf.New())
	r.Register(docx.New())
	r.Register(markdown.New())
	r.Register(plaintext.New())
	r.Register(html.New())
	return r
}

// Register adds a normaliser for all of its supported types, replacing any
// earlier registration for the same type.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range n.SupportedTypes() {
		r.normalisers[t] = n
	}
}

// Get returns the normaliser for a document type.
func (r *Registry) Get(t domain.DocumentType) (driven.Normaliser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.normalisers[t]
	if !ok {
		return nil, fmt.Errorf("%w: no normaliser for %q", domain.ErrUnsupportedType, t)
	}
	return n, nil
}

// Detect sniffs the content and maps its MIME type to a document type.
func (r *Registry) Detect(content []byte) (domain.DocumentType, string, error) {
	mtype := mimetype.Detect(content)
	for m := mtype; m != nil; m = m.Parent() {
		if t, ok := mimeTypes[baseType(m.String())]; ok {
			return t, mtype.String(), nil
		}
	}
	return "", mtype.String(), fmt.Errorf("%w: %s", domain.ErrUnsupportedType, mtype.String())
}

// baseType drops MIME parameters such as "; charset=utf-8".
func baseType(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	return strings.TrimSpace(base)
}
