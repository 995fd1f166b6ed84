package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCmd_Flags(t *testing.T) {
	require.NotNil(t, serveCmd.Flags().Lookup("addr"))
	require.NotNil(t, serveCmd.Flags().Lookup("watch"))
}

func TestServeCmd_InvalidWatchDir(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "serve", "--addr", "127.0.0.1:0", "--watch", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "root path error")
}

func TestServeCmd_RunsUntilCancelled(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "handbook.md"), []byte("# Handbook"), 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	// Commands keep the context of their first run.
	serveCmd.SetContext(ctx)
	defer serveCmd.SetContext(context.Background())

	_, err := execute(t, "serve", "--addr", "127.0.0.1:0", "--watch", dir)
	require.NoError(t, err)

	docs, err := mocks.documents.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "handbook.md", docs[0].Name)
	assert.True(t, mocks.documents.waited)
}
