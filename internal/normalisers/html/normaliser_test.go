package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func normalise(t *testing.T, name, page string) (string, string) {
	t.Helper()
	result, err := New().Normalise(context.Background(), &domain.RawDocument{
		Name: name, Type: domain.DocumentTypeWebPage, Content: []byte(page),
	})
	require.NoError(t, err)
	return result.Title, result.Content
}

func TestNormaliser_SupportedTypes(t *testing.T) {
	assert.Equal(t, []domain.DocumentType{domain.DocumentTypeWebPage}, New().SupportedTypes())
}

func TestNormalise_ExtractsContent(t *testing.T) {
	page := `<!DOCTYPE html>
<html>
<head><title>Release &amp; Notes</title><style>body { color: red; }</style></head>
<body>
  <header><a href="/">Home</a></header>
  <nav><ul><li>Menu item</li></ul></nav>
  <main>
    <h1>Version 2.0</h1>
    <p>The <strong>new</strong> release adds <a href="/search">full-text search</a>.</p>
    <ul><li>Faster uploads</li><li>Smaller index</li></ul>
  </main>
  <script>track("pageview")</script>
  <footer>Copyright 2024</footer>
</body>
</html>`

	title, content := normalise(t, "https://example.com/release", page)
	assert.Equal(t, "Release & Notes", title)

	assert.Contains(t, content, "Version 2.0")
	assert.Contains(t, content, "The new release adds full-text search.")
	assert.Contains(t, content, "Faster uploads")
	assert.Contains(t, content, "Smaller index")

	for _, chrome := range []string{"Menu item", "Home", "pageview", "Copyright", "color: red", "href", "**"} {
		assert.NotContains(t, content, chrome)
	}
}

func TestNormalise_TitleFallback(t *testing.T) {
	title, _ := normalise(t, "https://example.com/docs/getting-started.html", "<p>Hi</p>")
	assert.Equal(t, "getting started", title)
}

func TestRemoveChrome_Nested(t *testing.T) {
	page := `<header><nav>links</nav> brand</header><p>body</p><!-- note -->`
	assert.Equal(t, "<p>body</p>", removeChrome(page))
}

func TestUnescape(t *testing.T) {
	assert.Equal(t, "1. first *star* [x]", unescape(`1\. first \*star\* \[x\]`))
}

func TestNormalise_NilInput(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
