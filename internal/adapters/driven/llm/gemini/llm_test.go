package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

func TestNewLLMService_RequiresKey(t *testing.T) {
	_, err := NewLLMService(context.Background(), Config{})
	assert.Error(t, err)
}

func TestConvertMessages(t *testing.T) {
	system, history, last, err := convertMessages([]driven.ChatMessage{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "system", Content: "cite sources"},
		{Role: "user", Content: "what is go?"},
	})
	require.NoError(t, err)

	assert.Equal(t, "be brief\n\ncite sources", system)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, roleModel, history[1].Role)
	assert.Equal(t, []genai.Part{genai.Text("hello")}, history[1].Parts)
	assert.Equal(t, []genai.Part{genai.Text("what is go?")}, last)
}

func TestConvertMessages_OnlySystem(t *testing.T) {
	_, _, _, err := convertMessages([]driven.ChatMessage{{Role: "system", Content: "x"}})
	assert.Error(t, err)
}

func TestResponseText(t *testing.T) {
	assert.Empty(t, responseText(nil))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role:  roleModel,
				Parts: []genai.Part{genai.Text("Go "), genai.Blob{MIMEType: "image/png"}, genai.Text("rocks")},
			},
		}},
	}
	assert.Equal(t, "Go rocks", responseText(resp))
}

func TestTokenStream_CloseCancelsOnce(t *testing.T) {
	calls := 0
	stream := &tokenStream{cancel: func() { calls++ }}
	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())
	assert.Equal(t, 1, calls)
}

