package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAIProvider_IsValid(t *testing.T) {
	for _, p := range AllLLMProviders() {
		assert.True(t, p.IsValid(), p)
		assert.NotEqual(t, unknownDescription, p.Description())
	}
	assert.False(t, AIProvider("").IsValid())
	assert.False(t, AIProvider("cohere").IsValid())
	assert.Equal(t, unknownDescription, AIProvider("cohere").Description())
}

func TestAIProvider_IsOpenAICompatible(t *testing.T) {
	assert.True(t, AIProviderGroq.IsOpenAICompatible())
	assert.True(t, AIProviderOllama.IsOpenAICompatible())
	assert.False(t, AIProviderAnthropic.IsOpenAICompatible())
	assert.False(t, AIProviderGemini.IsOpenAICompatible())
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings LLMSettings
		want     bool
	}{
		{"groq with key", LLMSettings{Provider: AIProviderGroq, APIKey: "k"}, true},
		{"groq without key", LLMSettings{Provider: AIProviderGroq}, false},
		{"ollama without key", LLMSettings{Provider: AIProviderOllama}, true},
		{"unknown provider", LLMSettings{Provider: "x", APIKey: "k"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.settings.IsConfigured())
		})
	}
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, 5, s.Retrieval.MaxInternal)
	assert.Equal(t, 3, s.Retrieval.MaxWeb)
	assert.Equal(t, ScopeAll, s.Retrieval.DefaultScope)
	assert.Equal(t, 1000, s.Ingestion.ChunkSize)
	assert.Equal(t, 200, s.Ingestion.ChunkOverlap)
	assert.Equal(t, int64(50<<20), s.Ingestion.MaxDocumentBytes)
	assert.Equal(t, AIProviderGroq, s.LLM.Provider)
	assert.False(t, s.LLM.IsConfigured())
	assert.False(t, s.Web.IsConfigured())
}
