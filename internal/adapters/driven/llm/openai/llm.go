// Package openai provides an LLM service adapter for OpenAI-compatible chat
// completion APIs. Groq, OpenAI and Ollama all speak this protocol and differ
// only in base URL and credentials.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Well-known endpoints.
const (
	GroqBaseURL   = "https://api.groq.com/openai/v1"
	OpenAIBaseURL = "https://api.openai.com/v1"
	OllamaBaseURL = "http://localhost:11434/v1"
)

// Default configuration values.
const (
	DefaultBaseURL    = GroqBaseURL
	DefaultLLMModel   = "llama-3.3-70b-versatile"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the OpenAI-compatible LLM service.
type LLMConfig struct {
	// APIKey is the provider API key. It may be empty only for the
	// default Ollama endpoint.
	APIKey string

	// BaseURL is the API base URL (default: Groq).
	BaseURL string

	// Model is the LLM model to use (default: llama-3.3-70b-versatile).
	Model string

	// Timeout bounds the wait for response headers (default: 120s). The
	// body, and with it a streamed answer, is bounded by the caller's
	// context.
	Timeout time.Duration
}

// LLMService provides chat completions over the OpenAI protocol.
type LLMService struct {
	client *openai.Client
	model  string
}

// NewLLMService creates a new OpenAI-compatible LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIKey == "" {
		if cfg.BaseURL != OllamaBaseURL {
			return nil, errors.New("openai: API key is required")
		}
		cfg.APIKey = "ollama"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL
	config.HTTPClient = newHTTPClient(cfg.Timeout)

	return &LLMService{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}, nil
}

// Chat conducts a multi-turn conversation and returns the full reply.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, s.request(messages, opts))
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// ChatStream starts a streamed chat completion.
func (s *LLMService) ChatStream(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
) (driven.TokenStream, error) {
	stream, err := s.client.CreateChatCompletionStream(ctx, s.request(messages, opts))
	if err != nil {
		return nil, fmt.Errorf("openai: open stream: %w", err)
	}
	return &tokenStream{stream: stream}, nil
}

func (s *LLMService) request(messages []driven.ChatMessage, opts driven.ChatOptions) openai.ChatCompletionRequest {
	apiMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		apiMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	temperature := float32(opts.Temperature)
	return openai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    apiMessages,
		MaxTokens:   opts.MaxTokens,
		Temperature: &temperature,
	}
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by listing models.
// This checks credentials without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}

// tokenStream adapts the SDK stream reader to driven.TokenStream.
type tokenStream struct {
	stream *openai.ChatCompletionStream
	once   sync.Once
}

func (t *tokenStream) Recv() (string, error) {
	resp, err := t.stream.Recv()
	if errors.Is(err, io.EOF) {
		return "", io.EOF
	}
	if err != nil {
		return "", fmt.Errorf("openai: stream: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (t *tokenStream) Close() error {
	t.once.Do(func() {
		t.stream.Close()
	})
	return nil
}

// newHTTPClient bounds time to first byte only; a whole-request timeout
// would cut off long answers that are still streaming.
func newHTTPClient(headerTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: transport}
}
