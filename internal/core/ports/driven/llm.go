package driven

import "context"

// LLMService provides language model completions for planning and answering.
// This is an optional service - when nil, the planner falls back to keyword
// matching and answer generation fails with domain.ErrLLMUnavailable.
//
// Implementations may include:
//   - Groq, OpenAI and Ollama (OpenAI-compatible)
//   - Anthropic (Claude)
//   - Google Gemini
type LLMService interface {
	// Chat conducts a multi-turn conversation and returns the full reply.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	// ChatStream starts a streamed reply. The caller must Close the stream.
	ChatStream(ctx context.Context, messages []ChatMessage, opts ChatOptions) (TokenStream, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// TokenStream yields generated text fragments in provider order.
type TokenStream interface {
	// Recv returns the next fragment. It returns io.EOF once the reply is
	// complete. Fragments may be empty.
	Recv() (string, error)

	// Close releases the underlying connection. It is safe to call more
	// than once.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}
