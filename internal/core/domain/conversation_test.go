package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversation_Summary(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	last := created.Add(time.Minute)
	conv := &Conversation{
		ID: "conv-1",
		Messages: []Message{
			{Role: RoleUser, Content: "hi", Timestamp: created},
			{Role: RoleAssistant, Content: "hello", Timestamp: last},
		},
		CreatedAt: created,
		UpdatedAt: last,
	}

	s := conv.Summary()

	assert.Equal(t, "conv-1", s.ID)
	assert.Equal(t, 2, s.MessageCount)
	require.NotNil(t, s.LastMessageAt)
	assert.Equal(t, last, *s.LastMessageAt)
}

func TestConversation_SummaryEmpty(t *testing.T) {
	s := (&Conversation{ID: "empty"}).Summary()
	assert.Zero(t, s.MessageCount)
	assert.Nil(t, s.LastMessageAt)
}

func TestLastMessages(t *testing.T) {
	msgs := []Message{{Content: "1"}, {Content: "2"}, {Content: "3"}}

	assert.Len(t, LastMessages(msgs, 5), 3)
	assert.Equal(t, []Message{{Content: "2"}, {Content: "3"}}, LastMessages(msgs, 2))
	assert.Nil(t, LastMessages(msgs, 0))
}

func TestChatRequest_WithDefaults(t *testing.T) {
	req := ChatRequest{Message: "q"}.WithDefaults()
	assert.Equal(t, DefaultMaxInternalSources, req.MaxInternalSources)
	assert.Equal(t, DefaultMaxWebSources, req.MaxWebSources)

	custom := ChatRequest{MaxInternalSources: 2, MaxWebSources: 1}.WithDefaults()
	assert.Equal(t, 2, custom.MaxInternalSources)
	assert.Equal(t, 1, custom.MaxWebSources)
}

func TestEstimateUsage(t *testing.T) {
	u := EstimateUsage(400, 81)
	assert.Equal(t, 100, u.PromptTokens)
	assert.Equal(t, 20, u.CompletionTokens)
	assert.Equal(t, 120, u.TotalTokens)
}

func TestStreamEvent_Payload(t *testing.T) {
	ev := StreamEvent{Type: EventToken, Token: &TokenPayload{Content: "x"}}
	assert.Equal(t, &TokenPayload{Content: "x"}, ev.Payload())
	assert.True(t, EventDone.IsTerminal())
	assert.True(t, EventError.IsTerminal())
	assert.False(t, EventToken.IsTerminal())
}
