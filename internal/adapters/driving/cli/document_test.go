package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestDocumentCmd_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range documentCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"add", "url", "list", "get", "delete", "stats"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestDocumentAdd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.md")
	require.NoError(t, os.WriteFile(a, []byte("alpha"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte("beta"), 0o600))

	out, err := execute(t, "document", "add", a, b)
	require.NoError(t, err)

	assert.True(t, mocks.documents.waited)
	assert.Contains(t, out, "a.txt  completed (3 chunks)")
	assert.Contains(t, out, "b.md  completed (3 chunks)")
	assert.Len(t, mocks.documents.docs, 2)
}

func TestDocumentAdd_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()

		_, err := execute(t, "document", "add", filepath.Join(t.TempDir(), "nope.txt"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read")
	})

	t.Run("rejected upload still reports others", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()

		dir := t.TempDir()
		good := filepath.Join(dir, "good.txt")
		empty := filepath.Join(dir, "empty.txt")
		require.NoError(t, os.WriteFile(good, []byte("ok"), 0o600))
		require.NoError(t, os.WriteFile(empty, nil, 0o600))

		out, err := execute(t, "document", "add", "-p", "1", good, empty)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Contains(t, out, "good.txt  completed")
		assert.True(t, mocks.documents.waited)
	})
}

func TestDocumentURL(t *testing.T) {
	t.Run("completed", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()

		out, err := execute(t, "document", "url", "https://example.com/page")
		require.NoError(t, err)
		assert.Equal(t, []string{"https://example.com/page"}, mocks.documents.urls)
		assert.Contains(t, out, "doc-url  https://example.com/page  completed (3 chunks)")
	})

	t.Run("failed fetch", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		mocks.documents.failURL = true

		out, err := execute(t, "document", "url", "https://example.com/page")
		require.NoError(t, err)
		assert.Contains(t, out, "failed: fetch failed")
	})
}

func TestDocumentList(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()

		out, err := execute(t, "document", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "No documents found.")
	})

	t.Run("with documents", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		mocks.documents.docs["d1"] = &domain.Document{ID: "d1", Name: "policy.pdf", Type: domain.DocumentTypePDF, Status: domain.StatusCompleted, ChunkCount: 7}

		out, err := execute(t, "document", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "policy.pdf")
		assert.Contains(t, out, "Chunks: 7")
		assert.Contains(t, out, "Total: 1 documents")
	})

	t.Run("json", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		mocks.documents.docs["d1"] = &domain.Document{ID: "d1", Name: "policy.pdf", Status: domain.StatusCompleted}

		out, err := execute(t, "document", "list", "--json")
		require.NoError(t, err)
		assert.Contains(t, out, `"filename": "policy.pdf"`)
	})
}

func TestDocumentGet(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.documents.docs["d1"] = &domain.Document{
		ID: "d1", Name: "page", Type: domain.DocumentTypeWebPage, Source: "https://example.com",
		Status: domain.StatusFailed, Error: "timeout",
	}

	out, err := execute(t, "document", "get", "d1")
	require.NoError(t, err)
	assert.Contains(t, out, "Document: d1")
	assert.Contains(t, out, "Source:   https://example.com")
	assert.Contains(t, out, "Error:    timeout")

	_, err = execute(t, "document", "get", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentDelete(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.documents.docs["d1"] = &domain.Document{ID: "d1"}

	out, err := execute(t, "document", "delete", "d1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted document d1")
	assert.Empty(t, mocks.documents.docs)

	_, err = execute(t, "document", "delete", "d1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStats(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.documents.docs["d1"] = &domain.Document{ID: "d1", Status: domain.StatusCompleted, ChunkCount: 4}
	mocks.documents.docs["d2"] = &domain.Document{ID: "d2", Status: domain.StatusFailed}

	out, err := execute(t, "document", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents: 2")
	assert.Contains(t, out, "Chunks:    4")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "failed")
	assert.NotContains(t, out, "pending")
}
