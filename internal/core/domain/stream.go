package domain

import "time"

// EventType names a streamed event.
type EventType string

// Stream event types, in the order they may appear.
const (
	EventMetadata EventType = "metadata"
	EventSources  EventType = "sources"
	EventToken    EventType = "token"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// IsTerminal returns true for done and error.
func (t EventType) IsTerminal() bool {
	return t == EventDone || t == EventError
}

// StreamEvent is one unit of the answer stream. Exactly one payload field
// is set, matching Type.
type StreamEvent struct {
	Type     EventType
	Metadata *MetadataPayload
	Sources  *SourcesPayload
	Token    *TokenPayload
	Done     *DonePayload
	Error    *ErrorPayload
}

// Payload returns the payload matching the event type.
func (e StreamEvent) Payload() any {
	switch e.Type {
	case EventMetadata:
		return e.Metadata
	case EventSources:
		return e.Sources
	case EventToken:
		return e.Token
	case EventDone:
		return e.Done
	case EventError:
		return e.Error
	default:
		return nil
	}
}

// MetadataPayload is sent first, before any retrieval work.
type MetadataPayload struct {
	ConversationID string    `json:"conversation_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// SourcesPayload carries the final evidence list.
type SourcesPayload struct {
	Sources       []Source `json:"sources"`
	InternalCount int      `json:"internal_count"`
	WebCount      int      `json:"web_count"`
}

// TokenPayload is one incremental fragment of generated text.
type TokenPayload struct {
	Content string `json:"content"`
}

// DonePayload closes a successful stream.
type DonePayload struct {
	Answer           string  `json:"answer"`
	ConversationID   string  `json:"conversation_id"`
	ConfidenceScore  float64 `json:"confidence_score"`
	ProcessingTimeMS int64   `json:"processing_time_ms"`
	Usage            Usage   `json:"usage"`
}

// ErrorPayload closes a failed stream.
type ErrorPayload struct {
	Error          string `json:"error"`
	ConversationID string `json:"conversation_id"`
}
