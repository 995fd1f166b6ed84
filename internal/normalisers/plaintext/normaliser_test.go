package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestNormaliser_SupportedTypes(t *testing.T) {
	assert.Equal(t, []domain.DocumentType{domain.DocumentTypeText}, New().SupportedTypes())
}

func TestNormaliser_Normalise(t *testing.T) {
	raw := &domain.RawDocument{
		Name:    "meeting_notes-2024.txt",
		Type:    domain.DocumentTypeText,
		Content: []byte("Budget approved.\n\nNext review in May."),
	}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "meeting notes 2024", result.Title)
	assert.Equal(t, "Budget approved.\n\nNext review in May.", result.Content)
}

func TestNormaliser_NilInput(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{name: "utf-8", content: []byte("naïve café"), want: "naïve café"},
		{name: "utf-8 with bom", content: append([]byte{0xEF, 0xBB, 0xBF}, "hello"...), want: "hello"},
		{name: "utf-16 little endian", content: []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, want: "hi"},
		{name: "utf-16 big endian", content: []byte{0xFE, 0xFF, 0, 'h', 0, 'i'}, want: "hi"},
		{name: "latin-1 fallback", content: []byte{'c', 'a', 'f', 0xE9}, want: "café"},
		{name: "empty", content: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
