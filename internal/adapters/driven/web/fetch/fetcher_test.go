package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "sercha-rag")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><p>Hello</p></body></html>"))
	})
	mux.HandleFunc("/paper", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4\n"))
	})
	mux.HandleFunc("/notes", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("just some plain words"))
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewFetcher(0, 1024)
	ctx := context.Background()

	t.Run("html", func(t *testing.T) {
		raw, err := f.Fetch(ctx, server.URL+"/page")
		require.NoError(t, err)
		assert.Equal(t, domain.DocumentTypeWebPage, raw.Type)
		assert.Equal(t, "text/html", raw.MIMEType)
		assert.Equal(t, server.URL+"/page", raw.Name)
		assert.Contains(t, string(raw.Content), "Hello")
	})

	t.Run("pdf", func(t *testing.T) {
		raw, err := f.Fetch(ctx, server.URL+"/paper")
		require.NoError(t, err)
		assert.Equal(t, domain.DocumentTypePDF, raw.Type)
	})

	t.Run("sniffed text", func(t *testing.T) {
		raw, err := f.Fetch(ctx, server.URL+"/notes")
		require.NoError(t, err)
		assert.Equal(t, domain.DocumentTypeText, raw.Type)
	})

	t.Run("too large", func(t *testing.T) {
		_, err := f.Fetch(ctx, server.URL+"/big")
		assert.ErrorIs(t, err, domain.ErrTooLarge)
	})

	t.Run("status error", func(t *testing.T) {
		_, err := f.Fetch(ctx, server.URL+"/gone")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})
}
