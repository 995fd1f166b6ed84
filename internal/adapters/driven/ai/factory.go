// Package ai provides factory functions for creating completion provider adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	anthropicllm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/gemini"
	openaillm "github.com/custodia-labs/sercha-rag/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns nil without error when no provider is configured.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'sercha-rag settings set llm.api_key <key>' to fix",
			domain.ErrLLMUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close() //nolint:errcheck
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrLLMUnavailable, err)
	}

	return svc, nil
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
// This is intended for the settings command to validate credentials as they are saved.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	svc, err := CreateLLMService(ctx, settings)
	if err != nil {
		return err
	}
	defer svc.Close() //nolint:errcheck

	return svc.Ping(ctx)
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderGroq, domain.AIProviderOpenAI, domain.AIProviderOllama:
		return createOpenAICompatibleLLM(settings)

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		})

	case domain.AIProviderGemini:
		return geminillm.NewLLMService(ctx, geminillm.Config{
			APIKey: settings.APIKey,
			Model:  settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// DefaultBaseURL returns the endpoint an OpenAI-compatible provider uses when
// none is configured.
func DefaultBaseURL(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOpenAI:
		return openaillm.OpenAIBaseURL
	case domain.AIProviderOllama:
		return openaillm.OllamaBaseURL
	default:
		return openaillm.GroqBaseURL
	}
}

// createOpenAICompatibleLLM creates a service for Groq, OpenAI or Ollama.
func createOpenAICompatibleLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	baseURL := settings.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL(settings.Provider)
	}

	apiKey := settings.APIKey
	if apiKey == "" && settings.Provider == domain.AIProviderOllama {
		// Ollama ignores the key but the client always sends one.
		apiKey = "ollama"
	}

	return openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Model:   settings.Model,
		Timeout: settings.Timeout,
	})
}
