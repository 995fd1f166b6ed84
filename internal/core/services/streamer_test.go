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

// openSink returns a sink that already sent metadata.
func openSink(t *testing.T) *EventSink {
	t.Helper()
	sink := NewEventSink(context.Background(), 64)
	require.NoError(t, sink.Metadata("conv", time.Now()))
	return sink
}

func internalSet(score float64) domain.EvidenceSet {
	return domain.EvidenceSet{Items: []domain.Evidence{
		domain.InternalEvidence{
			Chunk:        domain.Chunk{ID: "c1", DocumentID: "d1", Content: "Staff get 25 days of leave."},
			DocumentName: "handbook.pdf",
			Relevance:    score,
		},
	}}
}

func TestAnswerStreamer_StreamsTokensThenDone(t *testing.T) {
	llm := newMockLLM("Twenty", "", "-five days")
	streamer := NewAnswerStreamer(llm, time.Second)
	sink := openSink(t)

	done, err := streamer.Stream(context.Background(), sink, AnswerInput{
		Query:    "How much leave?",
		Evidence: internalSet(0.5),
		Started:  time.Now(),
	})
	require.NoError(t, err)
	sink.Close()

	got := drain(sink.Events())
	assert.Equal(t, []domain.EventType{
		domain.EventMetadata, domain.EventSources, domain.EventToken, domain.EventToken, domain.EventDone,
	}, eventTypes(got))
	assert.Equal(t, "Twenty-five days", done.Answer)
	assert.InDelta(t, 0.6, done.ConfidenceScore, 1e-9)
	assert.Equal(t, "conv", done.ConversationID)
	assert.Equal(t, done.Usage.PromptTokens+done.Usage.CompletionTokens, done.Usage.TotalTokens)

	assert.InDelta(t, answerTemperature, llm.lastOpts.Temperature, 1e-9)
	msgs := llm.lastMessages()
	assert.Contains(t, msgs[len(msgs)-1].Content, "handbook.pdf")
	assert.Contains(t, msgs[len(msgs)-1].Content, "How much leave?")
	assert.True(t, llm.streams[0].isClosed())
}

func TestAnswerStreamer_PromptSelection(t *testing.T) {
	tests := []struct {
		name       string
		evidence   domain.EvidenceSet
		docsScoped bool
		want       string
	}{
		{"with evidence", internalSet(0.9), true, "## Documents:"},
		{"scoped without match", domain.EvidenceSet{}, true, "none matched this question"},
		{"general", domain.EvidenceSet{}, false, "general knowledge"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := newMockLLM("ok")
			sink := openSink(t)

			_, err := NewAnswerStreamer(llm, time.Second).Stream(context.Background(), sink, AnswerInput{
				Query: "q", Evidence: tt.evidence, DocsScoped: tt.docsScoped, Started: time.Now(),
			})
			require.NoError(t, err)

			msgs := llm.lastMessages()
			assert.Contains(t, msgs[len(msgs)-1].Content, tt.want)
		})
	}
}

func TestAnswerStreamer_FailureEmitsSingleError(t *testing.T) {
	llm := newMockLLM("a", "b", "c", "d")
	llm.failAfter = 2
	llm.midErr = errors.New("connection reset")
	sink := openSink(t)

	done, err := NewAnswerStreamer(llm, time.Second).Stream(context.Background(), sink, AnswerInput{Query: "q", Started: time.Now()})
	sink.Close()

	assert.Nil(t, done)
	assert.ErrorIs(t, err, domain.ErrGenerationFailure)
	got := drain(sink.Events())
	assert.Equal(t, []domain.EventType{
		domain.EventMetadata, domain.EventSources, domain.EventToken, domain.EventToken, domain.EventError,
	}, eventTypes(got))
	assert.True(t, llm.streams[0].isClosed())
}

func TestAnswerStreamer_NoProvider(t *testing.T) {
	sink := openSink(t)

	_, err := NewAnswerStreamer(nil, 0).Stream(context.Background(), sink, AnswerInput{Query: "q"})
	sink.Close()

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	got := drain(sink.Events())
	assert.Equal(t, domain.EventError, got[len(got)-1].Type)
}

func TestAnswerStreamer_ReadTimeout(t *testing.T) {
	llm := &blockingLLM{}
	sink := openSink(t)

	done, err := NewAnswerStreamer(llm, 20*time.Millisecond).Stream(context.Background(), sink, AnswerInput{Query: "q", Started: time.Now()})
	sink.Close()

	assert.Nil(t, done)
	assert.ErrorIs(t, err, domain.ErrGenerationFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	got := drain(sink.Events())
	assert.Equal(t, []domain.EventType{domain.EventMetadata, domain.EventSources, domain.EventError}, eventTypes(got))
}

func TestNewAnswerStreamer_DefaultReadTimeout(t *testing.T) {
	assert.Equal(t, DefaultReadTimeout, NewAnswerStreamer(nil, 0).readTimeout)
	assert.Equal(t, time.Second, NewAnswerStreamer(nil, time.Second).readTimeout)
}
