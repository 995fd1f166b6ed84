package pdf

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// buildPDF writes a single-page PDF with correct xref offsets.
func buildPDF(text, title string) []byte {
	stream := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R " +
			"/Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Title (%s) >>", title),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 6 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xref)
	return buf.Bytes()
}

func TestNormaliser_SupportedTypes(t *testing.T) {
	assert.Equal(t, []domain.DocumentType{domain.DocumentTypePDF}, New().SupportedTypes())
}

func TestNormalise_ExtractsText(t *testing.T) {
	raw := &domain.RawDocument{
		Name:    "annual_report.pdf",
		Type:    domain.DocumentTypePDF,
		Content: buildPDF("Revenue grew 12 percent", "Annual Report"),
	}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "Annual Report", result.Title)
	assert.Contains(t, result.Content, "Revenue grew 12 percent")
}

func TestNormalise_TitleFallsBackToFilename(t *testing.T) {
	raw := &domain.RawDocument{Name: "board-minutes_may.pdf", Content: buildPDF("Minutes", "")}

	result, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "board minutes may", result.Title)
}

func TestNormalise_InvalidInput(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New().Normalise(context.Background(), &domain.RawDocument{Name: "x.pdf", Content: []byte("not a pdf")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Normalise(ctx, &domain.RawDocument{Name: "x.pdf", Content: buildPDF("text", "t")})
	assert.ErrorIs(t, err, context.Canceled)
}
