package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTooLarge indicates an upload exceeds the configured size limit.
	ErrTooLarge = errors.New("document too large")

	// ErrUnsupportedType indicates a document format with no extractor.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrSearchUnavailable indicates the web evidence provider is not configured.
	ErrSearchUnavailable = errors.New("web search unavailable")

	// ErrStreamClosed indicates the consumer stopped reading a stream.
	ErrStreamClosed = errors.New("stream closed")

	// Pipeline failures.

	// ErrPlannerFailure indicates the classification call failed. It is
	// recovered by the keyword heuristic and never reaches the caller.
	ErrPlannerFailure = errors.New("planner failure")

	// ErrRetrievalFailure indicates an evidence source failed. It degrades
	// that source to empty.
	ErrRetrievalFailure = errors.New("retrieval failure")

	// ErrGenerationFailure indicates the completion provider failed. It
	// terminates the current request with an error event.
	ErrGenerationFailure = errors.New("generation failure")

	// ErrValidation indicates a request was rejected before any work began.
	ErrValidation = errors.New("validation failure")
)

// IsValidation reports whether err is a validation or invalid input error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidInput)
}
