package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// errOutOfOrder reports an event emitted in the wrong stream state.
var errOutOfOrder = errors.New("stream event out of order")

// sinkState tracks progress through the answer stream.
type sinkState int

const (
	stateInit sinkState = iota
	stateMetadataSent
	stateSourcesSent
	stateStreaming
	stateClosed
)

func (s sinkState) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateMetadataSent:
		return "metadata_sent"
	case stateSourcesSent:
		return "sources_sent"
	case stateStreaming:
		return "streaming"
	default:
		return "closed"
	}
}

// EventSink delivers stream events to one consumer in protocol order:
// metadata, sources, tokens, then exactly one of done or error. It has a
// single producer. Once ctx is cancelled nothing more is delivered.
type EventSink struct {
	ctx            context.Context
	ch             chan domain.StreamEvent
	state          sinkState
	conversationID string
}

// NewEventSink creates a sink with the given channel buffer.
func NewEventSink(ctx context.Context, buffer int) *EventSink {
	return &EventSink{
		ctx: ctx,
		ch:  make(chan domain.StreamEvent, buffer),
	}
}

// Events returns the consumer side of the sink.
func (s *EventSink) Events() <-chan domain.StreamEvent {
	return s.ch
}

// Metadata emits the conversation identifier.
func (s *EventSink) Metadata(conversationID string, ts time.Time) error {
	if err := s.expect(domain.EventMetadata, stateInit); err != nil {
		return err
	}
	s.conversationID = conversationID
	return s.emit(domain.StreamEvent{
		Type:     domain.EventMetadata,
		Metadata: &domain.MetadataPayload{ConversationID: conversationID, Timestamp: ts},
	}, stateMetadataSent)
}

// Sources emits the final evidence list.
func (s *EventSink) Sources(set domain.EvidenceSet) error {
	if err := s.expect(domain.EventSources, stateMetadataSent); err != nil {
		return err
	}
	sources := domain.SourcesFrom(set.Items)
	return s.emit(domain.StreamEvent{
		Type: domain.EventSources,
		Sources: &domain.SourcesPayload{
			Sources:       sources,
			InternalCount: set.Count(domain.OriginInternal),
			WebCount:      set.Count(domain.OriginWeb),
		},
	}, stateSourcesSent)
}

// Token emits one generated fragment.
func (s *EventSink) Token(content string) error {
	if err := s.expect(domain.EventToken, stateSourcesSent, stateStreaming); err != nil {
		return err
	}
	return s.emit(domain.StreamEvent{
		Type:  domain.EventToken,
		Token: &domain.TokenPayload{Content: content},
	}, stateStreaming)
}

// Done emits the terminal success event.
func (s *EventSink) Done(payload domain.DonePayload) error {
	if err := s.expect(domain.EventDone, stateSourcesSent, stateStreaming); err != nil {
		return err
	}
	payload.ConversationID = s.conversationID
	return s.emit(domain.StreamEvent{Type: domain.EventDone, Done: &payload}, stateClosed)
}

// Fail emits the terminal error event. It is a no-op once the stream has
// ended or the consumer has gone away.
func (s *EventSink) Fail(cause error) {
	if s.state == stateClosed {
		return
	}
	_ = s.emit(domain.StreamEvent{
		Type:  domain.EventError,
		Error: &domain.ErrorPayload{Error: cause.Error(), ConversationID: s.conversationID},
	}, stateClosed)
}

// Terminated reports whether done or error was delivered or the consumer left.
func (s *EventSink) Terminated() bool {
	return s.state == stateClosed
}

// Close ends the stream for the consumer. It must be called exactly once,
// by the producer.
func (s *EventSink) Close() {
	s.state = stateClosed
	close(s.ch)
}

func (s *EventSink) expect(t domain.EventType, allowed ...sinkState) error {
	for _, st := range allowed {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("%w: %s in state %s", errOutOfOrder, t, s.state)
}

// emit delivers an event unless the consumer has cancelled.
func (s *EventSink) emit(e domain.StreamEvent, next sinkState) error {
	if err := s.ctx.Err(); err != nil {
		s.state = stateClosed
		return fmt.Errorf("%w: %w", domain.ErrStreamClosed, err)
	}
	select {
	case s.ch <- e:
		s.state = next
		return nil
	case <-s.ctx.Done():
		s.state = stateClosed
		return fmt.Errorf("%w: %w", domain.ErrStreamClosed, s.ctx.Err())
	}
}
