package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// AnswerInput is everything the streamer needs for one answer.
type AnswerInput struct {
	Query    string
	History  []domain.Message
	Evidence domain.EvidenceSet

	// DocsScoped is true when the request had documents in scope, which
	// selects the "no match" prompt over the general one when evidence is
	// empty.
	DocsScoped bool

	// Started is when the request arrived, for processing time.
	Started time.Time
}

// DefaultReadTimeout bounds the wait for each streamed fragment when no
// read timeout is configured.
const DefaultReadTimeout = 60 * time.Second

// AnswerStreamer turns evidence into a streamed answer.
type AnswerStreamer struct {
	llm         driven.LLMService
	prompts     promptBuilder
	readTimeout time.Duration
}

// NewAnswerStreamer creates an answer streamer. The llm parameter is
// optional; without it every answer fails with a generation error.
// readTimeout bounds each read from the provider stream, so a provider that
// stops producing output fails the answer instead of holding it open.
func NewAnswerStreamer(llm driven.LLMService, readTimeout time.Duration) *AnswerStreamer {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &AnswerStreamer{llm: llm, readTimeout: readTimeout}
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (a *AnswerStreamer) SetPromptStore(store driven.PromptStore) {
	a.prompts.prompts = store
}

// Stream emits sources, every generated fragment as a token, and a done
// event. On failure it emits an error event instead and returns the cause.
// The provider stream is closed on every path.
func (a *AnswerStreamer) Stream(ctx context.Context, sink *EventSink, in AnswerInput) (*domain.DonePayload, error) {
	if err := sink.Sources(in.Evidence); err != nil {
		return nil, err
	}

	done, err := a.generate(ctx, sink, in)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("Answer generation failed: %v", err)
			sink.Fail(err)
		}
		return nil, err
	}
	return done, nil
}

func (a *AnswerStreamer) generate(ctx context.Context, sink *EventSink, in AnswerInput) (*domain.DonePayload, error) {
	if a.llm == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationFailure, domain.ErrLLMUnavailable)
	}

	messages := a.prompts.answerMessages(in.Query, in.History, in.Evidence, in.DocsScoped)
	logger.Debug("Generating answer with %s: %d messages, %d evidence items",
		a.llm.ModelName(), len(messages), len(in.Evidence.Items))

	// Cancelling streamCtx releases adapters blocked in Recv after a read
	// times out.
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := a.llm.ChatStream(streamCtx, messages, driven.ChatOptions{
		MaxTokens:   answerMaxTokens,
		Temperature: answerTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationFailure, err)
	}
	defer stream.Close()

	var answer strings.Builder
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStreamClosed, err)
		}
		fragment, err := a.recv(ctx, stream)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrGenerationFailure, err)
		}
		if fragment == "" {
			continue
		}
		answer.WriteString(fragment)
		if err := sink.Token(fragment); err != nil {
			return nil, err
		}
	}

	text := answer.String()
	done := domain.DonePayload{
		Answer:           text,
		ConfidenceScore:  confidence(in.Evidence.Items),
		ProcessingTimeMS: time.Since(in.Started).Milliseconds(),
		Usage:            domain.EstimateUsage(promptChars(messages), len([]rune(text))),
	}
	if err := sink.Done(done); err != nil {
		return nil, err
	}
	logger.Debug("Answer complete: %d characters in %dms", len(text), done.ProcessingTimeMS)
	return &done, nil
}

type recvResult struct {
	fragment string
	err      error
}

// recv waits for the next fragment for at most the read timeout. On timeout
// or cancellation the pending Recv is abandoned; the caller cancels the
// stream context and closes the stream, which ends it.
func (a *AnswerStreamer) recv(ctx context.Context, stream driven.TokenStream) (string, error) {
	result := make(chan recvResult, 1)
	go func() {
		fragment, err := stream.Recv()
		result <- recvResult{fragment: fragment, err: err}
	}()

	timer := time.NewTimer(a.readTimeout)
	defer timer.Stop()

	select {
	case r := <-result:
		return r.fragment, r.err
	case <-timer.C:
		return "", fmt.Errorf("no output from provider for %s: %w", a.readTimeout, context.DeadlineExceeded)
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", domain.ErrStreamClosed, ctx.Err())
	}
}
