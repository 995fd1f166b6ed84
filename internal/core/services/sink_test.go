package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestEventSink_HappyPath(t *testing.T) {
	sink := NewEventSink(context.Background(), 8)

	require.NoError(t, sink.Metadata("c1", time.Now()))
	require.NoError(t, sink.Sources(domain.EvidenceSet{Items: []domain.Evidence{
		domain.InternalEvidence{Chunk: domain.Chunk{ID: "k", DocumentID: "d"}, DocumentName: "d.txt", Relevance: 1},
		domain.WebEvidence{URL: "https://example.com", Relevance: 0.8},
	}}))
	require.NoError(t, sink.Token("a"))
	require.NoError(t, sink.Token("b"))
	require.NoError(t, sink.Done(domain.DonePayload{Answer: "ab"}))
	assert.True(t, sink.Terminated())
	sink.Close()

	got := drain(sink.Events())
	assert.Equal(t, []domain.EventType{
		domain.EventMetadata, domain.EventSources, domain.EventToken, domain.EventToken, domain.EventDone,
	}, eventTypes(got))
	assert.Equal(t, 1, got[1].Sources.InternalCount)
	assert.Equal(t, 1, got[1].Sources.WebCount)
	assert.Equal(t, "c1", got[4].Done.ConversationID)
}

func TestEventSink_RejectsOutOfOrder(t *testing.T) {
	sink := NewEventSink(context.Background(), 8)

	assert.ErrorIs(t, sink.Token("x"), errOutOfOrder)
	assert.ErrorIs(t, sink.Sources(domain.EvidenceSet{}), errOutOfOrder)
	require.NoError(t, sink.Metadata("c1", time.Now()))
	assert.ErrorIs(t, sink.Metadata("c1", time.Now()), errOutOfOrder)
	assert.ErrorIs(t, sink.Done(domain.DonePayload{}), errOutOfOrder)
}

func TestEventSink_SingleTerminal(t *testing.T) {
	sink := NewEventSink(context.Background(), 8)
	require.NoError(t, sink.Metadata("c1", time.Now()))
	require.NoError(t, sink.Sources(domain.EvidenceSet{}))
	require.NoError(t, sink.Done(domain.DonePayload{Answer: "x"}))

	sink.Fail(errors.New("late"))
	assert.ErrorIs(t, sink.Token("y"), errOutOfOrder)
	sink.Close()

	got := drain(sink.Events())
	assert.Equal(t, domain.EventDone, got[len(got)-1].Type)
	assert.Len(t, got, 3)
}

func TestEventSink_FailCarriesConversation(t *testing.T) {
	sink := NewEventSink(context.Background(), 8)
	require.NoError(t, sink.Metadata("c9", time.Now()))
	sink.Fail(errors.New("retrieval exploded"))
	sink.Close()

	got := drain(sink.Events())
	require.Len(t, got, 2)
	assert.Equal(t, domain.EventError, got[1].Type)
	assert.Equal(t, "retrieval exploded", got[1].Error.Error)
	assert.Equal(t, "c9", got[1].Error.ConversationID)
}

func TestEventSink_CancelledConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := NewEventSink(ctx, 0)
	cancel()

	err := sink.Metadata("c1", time.Now())

	assert.ErrorIs(t, err, domain.ErrStreamClosed)
	assert.True(t, sink.Terminated())
	sink.Fail(errors.New("ignored"))
	sink.Close()
	assert.Empty(t, drain(sink.Events()))
}

func TestEventSink_UnbufferedBlocksUntilCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := NewEventSink(ctx, 0)

	errc := make(chan error, 1)
	go func() { errc <- sink.Metadata("c1", time.Now()) }()
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, domain.ErrStreamClosed)
	case <-time.After(time.Second):
		t.Fatal("emit did not observe cancellation")
	}
}
