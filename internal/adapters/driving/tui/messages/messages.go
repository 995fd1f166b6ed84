// Package messages defines Bubbletea message types for the chat TUI.
package messages

import (
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// StreamStarted carries the event channel of a newly accepted question.
type StreamStarted struct {
	Events <-chan domain.StreamEvent
}

// StreamEvent is one event read from the answer stream.
type StreamEvent struct {
	Event domain.StreamEvent
}

// StreamClosed is sent when the answer stream channel closes.
type StreamClosed struct{}

// ErrorOccurred is sent when a question is rejected before streaming starts.
type ErrorOccurred struct {
	Err error
}
