package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies a completion provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderGroq is the Groq cloud API (OpenAI-compatible).
	AIProviderGroq AIProvider = "groq"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderOllama is a local Ollama instance, reached through its
	// OpenAI-compatible endpoint.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is the Google Gemini API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderGroq, AIProviderOpenAI, AIProviderOllama, AIProviderAnthropic, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p != AIProviderOllama
}

// IsOpenAICompatible returns true if the provider speaks the OpenAI chat
// completions protocol.
func (p AIProvider) IsOpenAICompatible() bool {
	return p == AIProviderGroq || p == AIProviderOpenAI || p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderGroq:
		return "Groq (cloud)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// AllLLMProviders returns every supported completion provider.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderGroq,
		AIProviderOpenAI,
		AIProviderOllama,
		AIProviderAnthropic,
		AIProviderGemini,
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderGroq:      "llama-3.3-70b-versatile",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderOllama:    "llama3.2",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderGemini:    "gemini-1.5-flash",
	}
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// APIKey is the provider API key.
	APIKey string

	// Timeout bounds a single provider call.
	Timeout time.Duration

	// ReadTimeout bounds the wait for each fragment of a streamed answer.
	ReadTimeout time.Duration
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// WebSettings holds web evidence provider configuration.
type WebSettings struct {
	// APIKey is the Tavily API key. Web evidence is disabled without it.
	APIKey string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// SearchDepth is "basic" or "advanced".
	SearchDepth string

	// RequestsPerSecond is the sustained request rate.
	RequestsPerSecond float64

	// Timeout bounds a single provider call.
	Timeout time.Duration
}

// IsConfigured returns true if web evidence is available.
func (w WebSettings) IsConfigured() bool {
	return w.APIKey != ""
}

// Scope names for requests that carry no document list.
const (
	ScopeAll  = "all"
	ScopeNone = "none"
)

// RetrievalSettings holds defaults for the query path.
type RetrievalSettings struct {
	MaxInternal int
	MaxWeb      int

	// DefaultScope applies when a request carries no doc_ids: "all"
	// searches every completed document, "none" skips internal retrieval.
	DefaultScope string

	// PlannerTimeout bounds the classification call.
	PlannerTimeout time.Duration

	// RetrievalTimeout bounds each evidence source.
	RetrievalTimeout time.Duration
}

// Chunk splitters.
const (
	// SplitterRecursive breaks on paragraph, line, sentence and word
	// boundaries in that order.
	SplitterRecursive = "recursive"

	// SplitterFixed cuts fixed-size character windows.
	SplitterFixed = "fixed"
)

// IngestionSettings holds chunking and upload limits.
type IngestionSettings struct {
	Splitter         string
	ChunkSize        int
	ChunkOverlap     int
	MaxDocumentBytes int64
	Workers          int
}

// ServerSettings holds HTTP server configuration.
type ServerSettings struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// ConversationSettings selects the conversation store.
type ConversationSettings struct {
	// RedisAddr enables the Redis store when set.
	RedisAddr string

	// TTL expires idle conversations in Redis. Zero keeps them forever.
	TTL time.Duration
}

// NotifySettings configures ingestion status publishing.
type NotifySettings struct {
	KafkaBrokers []string
	KafkaTopic   string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Server        ServerSettings
	LLM           LLMSettings
	Web           WebSettings
	Retrieval     RetrievalSettings
	Ingestion     IngestionSettings
	Conversations ConversationSettings
	Notify        NotifySettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The LLM provider defaults to Groq but stays unconfigured until an API key
// is supplied.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Server: ServerSettings{
			Addr:            ":8000",
			ShutdownTimeout: 30 * time.Second,
		},
		LLM: LLMSettings{
			Provider:    AIProviderGroq,
			Model:       DefaultLLMModels()[AIProviderGroq],
			Timeout:     120 * time.Second,
			ReadTimeout: 60 * time.Second,
		},
		Web: WebSettings{
			SearchDepth:       "advanced",
			RequestsPerSecond: 2,
			Timeout:           15 * time.Second,
		},
		Retrieval: RetrievalSettings{
			MaxInternal:      DefaultMaxInternalSources,
			MaxWeb:           DefaultMaxWebSources,
			DefaultScope:     ScopeAll,
			PlannerTimeout:   10 * time.Second,
			RetrievalTimeout: 15 * time.Second,
		},
		Ingestion: IngestionSettings{
			Splitter:         SplitterRecursive,
			ChunkSize:        1000,
			ChunkOverlap:     200,
			MaxDocumentBytes: 50 << 20,
			Workers:          4,
		},
		Notify: NotifySettings{
			KafkaTopic: "sercha.documents.status",
		},
	}
}
