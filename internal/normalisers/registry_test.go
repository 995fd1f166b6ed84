package normalisers

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

type stubNormaliser struct {
	types []domain.DocumentType
}

func (s *stubNormaliser) SupportedTypes() []domain.DocumentType { return s.types }

func (s *stubNormaliser) Normalise(context.Context, *domain.RawDocument) (*driven.NormaliseResult, error) {
	return &driven.NormaliseResult{Content: "stub"}, nil
}

func TestDefaultRegistry_CoversEveryType(t *testing.T) {
	r := NewDefaultRegistry()
	for _, typ := range []domain.DocumentType{
		domain.DocumentTypePDF,
		domain.DocumentTypeDOCX,
		domain.DocumentTypeMarkdown,
		domain.DocumentTypeText,
		domain.DocumentTypeWebPage,
	} {
		n, err := r.Get(typ)
		require.NoError(t, err, typ)
		assert.Contains(t, n.SupportedTypes(), typ)
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	_, err := NewRegistry().Get(domain.DocumentTypePDF)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewDefaultRegistry()
	stub := &stubNormaliser{types: []domain.DocumentType{domain.DocumentTypeText}}
	r.Register(stub)

	n, err := r.Get(domain.DocumentTypeText)
	require.NoError(t, err)
	assert.Same(t, stub, n)
}

func minimalDOCX(t *testing.T) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for _, name := range []string{"[Content_Types].xml", "word/document.xml"} {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(`<?xml version="1.0"?><x/>`))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestRegistry_Detect(t *testing.T) {
	r := NewDefaultRegistry()

	tests := []struct {
		name    string
		content []byte
		want    domain.DocumentType
	}{
		{name: "pdf", content: []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"), want: domain.DocumentTypePDF},
		{name: "html", content: []byte("<!DOCTYPE html><html><body>hi</body></html>"), want: domain.DocumentTypeWebPage},
		{name: "plain text", content: []byte("just some notes\nsecond line\n"), want: domain.DocumentTypeText},
		{name: "docx", content: minimalDOCX(t), want: domain.DocumentTypeDOCX},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, mime, err := r.Detect(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, mime)
		})
	}
}

func TestRegistry_DetectUnsupported(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
	_, mime, err := NewDefaultRegistry().Detect(png)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	assert.Equal(t, "image/png", mime)
}

func TestBaseType(t *testing.T) {
	assert.Equal(t, "text/plain", baseType("text/plain; charset=utf-8"))
	assert.Equal(t, "application/pdf", baseType("application/pdf"))
}
