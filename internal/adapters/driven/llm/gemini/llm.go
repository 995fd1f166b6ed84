// Package gemini provides an LLM service adapter for the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash"

// Gemini names the assistant role "model".
const roleModel = "model"

// Config holds configuration for the Gemini LLM service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the Gemini model to use (default: gemini-1.5-flash).
	Model string
}

// LLMService provides LLM operations using the Gemini API.
type LLMService struct {
	client *genai.Client
	model  string
}

// NewLLMService creates a new Gemini LLM service.
func NewLLMService(ctx context.Context, cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &LLMService{client: client, model: cfg.Model}, nil
}

// Chat conducts a multi-turn conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	session, last, err := s.session(messages, opts)
	if err != nil {
		return "", err
	}

	resp, err := session.SendMessage(ctx, last...)
	if err != nil {
		return "", fmt.Errorf("gemini: send message: %w", err)
	}
	return responseText(resp), nil
}

// ChatStream starts a streamed reply.
func (s *LLMService) ChatStream(
	ctx context.Context,
	messages []driven.ChatMessage,
	opts driven.ChatOptions,
) (driven.TokenStream, error) {
	session, last, err := s.session(messages, opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	return &tokenStream{
		iter:   session.SendMessageStream(ctx, last...),
		cancel: cancel,
	}, nil
}

// session builds a chat session holding every message but the last, which
// is returned as the parts to send.
func (s *LLMService) session(messages []driven.ChatMessage, opts driven.ChatOptions) (*genai.ChatSession, []genai.Part, error) {
	system, history, last, err := convertMessages(messages)
	if err != nil {
		return nil, nil, err
	}

	model := s.client.GenerativeModel(s.model)
	model.SetTemperature(float32(opts.Temperature))
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	if system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}

	session := model.StartChat()
	session.History = history
	return session, last, nil
}

// convertMessages splits chat messages into the system instruction, the
// prior turns, and the final message to send.
func convertMessages(messages []driven.ChatMessage) (string, []*genai.Content, []genai.Part, error) {
	var system []string
	var turns []*genai.Content
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			system = append(system, msg.Content)
		case "assistant":
			turns = append(turns, &genai.Content{Role: roleModel, Parts: []genai.Part{genai.Text(msg.Content)}})
		default:
			turns = append(turns, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Content)}})
		}
	}
	if len(turns) == 0 {
		return "", nil, nil, errors.New("gemini: no message to send")
	}

	last := turns[len(turns)-1]
	return strings.Join(system, "\n\n"), turns[:len(turns)-1], last.Parts, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the key and model by fetching model metadata.
func (s *LLMService) Ping(ctx context.Context) error {
	if _, err := s.client.GenerativeModel(s.model).Info(ctx); err != nil {
		return fmt.Errorf("gemini: ping failed: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *LLMService) Close() error {
	return s.client.Close()
}

// tokenStream adapts the response iterator to driven.TokenStream.
type tokenStream struct {
	iter   *genai.GenerateContentResponseIterator
	cancel context.CancelFunc
	once   sync.Once
}

func (t *tokenStream) Recv() (string, error) {
	resp, err := t.iter.Next()
	if errors.Is(err, iterator.Done) {
		return "", io.EOF
	}
	if err != nil {
		return "", fmt.Errorf("gemini: stream: %w", err)
	}
	return responseText(resp), nil
}

func (t *tokenStream) Close() error {
	t.once.Do(t.cancel)
	return nil
}
