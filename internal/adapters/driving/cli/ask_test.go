package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestAskCmd_RequiresQuestion(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ask")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestAskCmd_PrintsAnswer(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "ask", "How", "many", "days?")
	require.NoError(t, err)

	assert.Contains(t, out, "Staff get 25 days [1].")
	assert.Contains(t, out, "[1] policy.md (internal, 0.90)")
	assert.Contains(t, out, "Conversation: conv-1")
	assert.Equal(t, "How many days?", mocks.chat.lastReq.Message)
	assert.Nil(t, mocks.chat.lastReq.DocumentIDs)
}

func TestAskCmd_Flags(t *testing.T) {
	t.Run("document scope", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()

		_, err := execute(t, "ask", "--doc", "a", "--doc", "b", "--web", "-c", "conv-9", "q")
		require.NoError(t, err)

		req := mocks.chat.lastReq
		assert.Equal(t, []string{"a", "b"}, req.DocumentIDs)
		assert.True(t, req.ForceWebSearch)
		assert.Equal(t, "conv-9", req.ConversationID)
	})

	t.Run("no docs", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()

		_, err := execute(t, "ask", "--no-docs", "q")
		require.NoError(t, err)

		require.NotNil(t, mocks.chat.lastReq.DocumentIDs)
		assert.Empty(t, mocks.chat.lastReq.DocumentIDs)
	})

	t.Run("limits", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()

		_, err := execute(t, "ask", "--max-internal", "3", "--max-web", "1", "q")
		require.NoError(t, err)

		assert.Equal(t, 3, mocks.chat.lastReq.MaxInternalSources)
		assert.Equal(t, 1, mocks.chat.lastReq.MaxWebSources)
	})
}

func TestAskCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "ask", "--json", "q")
	require.NoError(t, err)

	assert.Contains(t, out, `"answer": "Staff get 25 days [1]."`)
	assert.Contains(t, out, `"conversation_id": "conv-1"`)
}

func TestAskCmd_Stream(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	mocks.chat.events = []domain.StreamEvent{
		{Type: domain.EventMetadata, Metadata: &domain.MetadataPayload{ConversationID: "conv-2"}},
		{Type: domain.EventSources, Sources: &domain.SourcesPayload{Sources: []domain.Source{
			{Origin: domain.OriginWeb, Label: "Go blog", URL: "https://go.dev/blog", Score: 0.7},
		}, WebCount: 1}},
		{Type: domain.EventToken, Token: &domain.TokenPayload{Content: "Hello "}},
		{Type: domain.EventToken, Token: &domain.TokenPayload{Content: "world"}},
		{Type: domain.EventDone, Done: &domain.DonePayload{Answer: "Hello world", ConversationID: "conv-2"}},
	}

	out, err := execute(t, "ask", "--stream", "q")
	require.NoError(t, err)

	assert.Contains(t, out, "Hello world\n")
	assert.Contains(t, out, "[1] Go blog (web, 0.70)")
	assert.Contains(t, out, "https://go.dev/blog")
	assert.Contains(t, out, "Conversation: conv-2")
}

func TestAskCmd_StreamError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	mocks.chat.events = []domain.StreamEvent{
		{Type: domain.EventToken, Token: &domain.TokenPayload{Content: "partial"}},
		{Type: domain.EventError, Error: &domain.ErrorPayload{Error: "generation failure"}},
	}

	out, err := execute(t, "ask", "--stream", "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation failure")
	assert.Contains(t, out, "partial")
}

func TestAskCmd_ServiceError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	mocks.chat.err = errors.New("LLM service unavailable")

	_, err := execute(t, "ask", "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ask failed")
}
