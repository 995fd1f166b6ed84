package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"valid document URI", "sercha://documents/doc-456", "doc-456"},
		{"invalid prefix", "file://documents/doc-456", ""},
		{"nested path", "sercha://documents/doc-456/chunks", ""},
		{"empty URI", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractDocumentID(tt.uri))
		})
	}
}

func TestServer_handleDocumentsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("without document service", func(t *testing.T) {
		server, err := NewServer(&Ports{Chat: &mockChatService{}})
		require.NoError(t, err)

		result, err := server.handleDocumentsResource(ctx, readRequest("sercha://documents"))

		require.NoError(t, err)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("lists documents", func(t *testing.T) {
		docs := &mockDocumentService{documents: []domain.Document{
			{ID: "doc-1", Name: "handbook.pdf", Type: domain.DocumentTypePDF, Status: domain.StatusCompleted, ChunkCount: 12},
		}}
		server, err := NewServer(&Ports{Chat: &mockChatService{}, Documents: docs})
		require.NoError(t, err)

		result, err := server.handleDocumentsResource(ctx, readRequest("sercha://documents"))
		require.NoError(t, err)

		var infos []docInfo
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &infos))
		require.Len(t, infos, 1)
		assert.Equal(t, "handbook.pdf", infos[0].Name)
		assert.Equal(t, "pdf", infos[0].Type)
		assert.Equal(t, 12, infos[0].ChunkCount)
	})

	t.Run("propagates errors", func(t *testing.T) {
		docs := &mockDocumentService{err: errors.New("db down")}
		server, err := NewServer(&Ports{Chat: &mockChatService{}, Documents: docs})
		require.NoError(t, err)

		_, err = server.handleDocumentsResource(ctx, readRequest("sercha://documents"))
		assert.ErrorContains(t, err, "db down")
	})
}

func TestServer_handleDocumentResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns document", func(t *testing.T) {
		docs := &mockDocumentService{document: &domain.Document{
			ID: "doc-1", Name: "a.md", Type: domain.DocumentTypeMarkdown, Status: domain.StatusFailed, Error: "no text",
		}}
		server, err := NewServer(&Ports{Chat: &mockChatService{}, Documents: docs})
		require.NoError(t, err)

		result, err := server.handleDocumentResource(ctx, readRequest("sercha://documents/doc-1"))
		require.NoError(t, err)

		var info docInfo
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &info))
		assert.Equal(t, "failed", info.Status)
		assert.Equal(t, "no text", info.Error)
	})

	t.Run("not found", func(t *testing.T) {
		docs := &mockDocumentService{err: domain.ErrNotFound}
		server, err := NewServer(&Ports{Chat: &mockChatService{}, Documents: docs})
		require.NoError(t, err)

		_, err = server.handleDocumentResource(ctx, readRequest("sercha://documents/missing"))
		assert.Error(t, err)
	})

	t.Run("invalid URI", func(t *testing.T) {
		server, err := NewServer(&Ports{Chat: &mockChatService{}, Documents: &mockDocumentService{}})
		require.NoError(t, err)

		_, err = server.handleDocumentResource(ctx, readRequest("sercha://other"))
		assert.Error(t, err)
	})

	t.Run("without document service", func(t *testing.T) {
		server, err := NewServer(&Ports{Chat: &mockChatService{}})
		require.NoError(t, err)

		_, err = server.handleDocumentResource(ctx, readRequest("sercha://documents/doc-1"))
		assert.Error(t, err)
	})
}
