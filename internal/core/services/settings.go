package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyServerAddr          = "server.addr"
	keyServerShutdown      = "server.shutdown_timeout"
	keyLLMProvider         = "llm.provider"
	keyLLMModel            = "llm.model"
	keyLLMBaseURL          = "llm.base_url"
	keyLLMAPIKey           = "llm.api_key"
	keyLLMTimeout          = "llm.timeout"
	keyLLMReadTimeout      = "llm.read_timeout"
	keyWebAPIKey           = "web.api_key"
	keyWebBaseURL          = "web.base_url"
	keyWebSearchDepth      = "web.search_depth"
	keyWebRPS              = "web.requests_per_second"
	keyWebTimeout          = "web.timeout"
	keyRetrievalMaxInt     = "retrieval.max_internal"
	keyRetrievalMaxWeb     = "retrieval.max_web"
	keyRetrievalScope      = "retrieval.default_scope"
	keyRetrievalPlanner    = "retrieval.planner_timeout"
	keyRetrievalTimeout    = "retrieval.timeout"
	keyIngestSplitter      = "ingestion.splitter"
	keyIngestChunkSize     = "ingestion.chunk_size"
	keyIngestChunkOverlap  = "ingestion.chunk_overlap"
	keyIngestMaxBytes      = "ingestion.max_document_bytes"
	keyIngestWorkers       = "ingestion.workers"
	keyConversationsRedis  = "conversations.redis_addr"
	keyConversationsTTL    = "conversations.ttl"
	keyNotifyKafkaBrokers  = "notify.kafka_brokers"
	keyNotifyKafkaTopic    = "notify.kafka_topic"
	ollamaDefaultBaseURL   = "http://localhost:11434/v1"
	searchDepthBasic       = "basic"
	searchDepthAdvanced    = "advanced"
	settingKindString      = "string"
	settingKindInt         = "int"
	settingKindDuration    = "duration"
	settingKindFloat       = "float"
	settingKindStringSlice = "list"
)

// settingKinds lists every key SetValue accepts and how its value is parsed.
var settingKinds = map[string]string{
	keyServerAddr:         settingKindString,
	keyServerShutdown:     settingKindDuration,
	keyLLMProvider:        settingKindString,
	keyLLMModel:           settingKindString,
	keyLLMBaseURL:         settingKindString,
	keyLLMAPIKey:          settingKindString,
	keyLLMTimeout:         settingKindDuration,
	keyLLMReadTimeout:     settingKindDuration,
	keyWebAPIKey:          settingKindString,
	keyWebBaseURL:         settingKindString,
	keyWebSearchDepth:     settingKindString,
	keyWebRPS:             settingKindFloat,
	keyWebTimeout:         settingKindDuration,
	keyRetrievalMaxInt:    settingKindInt,
	keyRetrievalMaxWeb:    settingKindInt,
	keyRetrievalScope:     settingKindString,
	keyRetrievalPlanner:   settingKindDuration,
	keyRetrievalTimeout:   settingKindDuration,
	keyIngestSplitter:     settingKindString,
	keyIngestChunkSize:    settingKindInt,
	keyIngestChunkOverlap: settingKindInt,
	keyIngestMaxBytes:     settingKindInt,
	keyIngestWorkers:      settingKindInt,
	keyConversationsRedis: settingKindString,
	keyConversationsTTL:   settingKindDuration,
	keyNotifyKafkaBrokers: settingKindStringSlice,
	keyNotifyKafkaTopic:   settingKindString,
}

// ErrUnknownSetting is returned by SetValue for keys it does not manage.
var ErrUnknownSetting = errors.New("unknown setting")

// SettingsService manages application settings stored in the config file.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
// The aiValidator parameter is optional (can be nil).
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings, filling unset keys with defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	provider := s.getProvider(keyLLMProvider, d.LLM.Provider)
	model := s.configStore.GetString(keyLLMModel)
	if model == "" {
		model = domain.DefaultLLMModels()[provider]
	}

	settings := &domain.AppSettings{
		Server: domain.ServerSettings{
			Addr:            s.getString(keyServerAddr, d.Server.Addr),
			ShutdownTimeout: s.getDuration(keyServerShutdown, d.Server.ShutdownTimeout),
		},
		LLM: domain.LLMSettings{
			Provider:    provider,
			Model:       model,
			BaseURL:     s.configStore.GetString(keyLLMBaseURL), // No default - empty is valid for cloud providers
			APIKey:      s.configStore.GetString(keyLLMAPIKey),
			Timeout:     s.getDuration(keyLLMTimeout, d.LLM.Timeout),
			ReadTimeout: s.getDuration(keyLLMReadTimeout, d.LLM.ReadTimeout),
		},
		Web: domain.WebSettings{
			APIKey:            s.configStore.GetString(keyWebAPIKey),
			BaseURL:           s.configStore.GetString(keyWebBaseURL),
			SearchDepth:       s.getString(keyWebSearchDepth, d.Web.SearchDepth),
			RequestsPerSecond: s.getFloat(keyWebRPS, d.Web.RequestsPerSecond),
			Timeout:           s.getDuration(keyWebTimeout, d.Web.Timeout),
		},
		Retrieval: domain.RetrievalSettings{
			MaxInternal:      s.getInt(keyRetrievalMaxInt, d.Retrieval.MaxInternal),
			MaxWeb:           s.getInt(keyRetrievalMaxWeb, d.Retrieval.MaxWeb),
			DefaultScope:     s.getString(keyRetrievalScope, d.Retrieval.DefaultScope),
			PlannerTimeout:   s.getDuration(keyRetrievalPlanner, d.Retrieval.PlannerTimeout),
			RetrievalTimeout: s.getDuration(keyRetrievalTimeout, d.Retrieval.RetrievalTimeout),
		},
		Ingestion: domain.IngestionSettings{
			Splitter:         s.getString(keyIngestSplitter, d.Ingestion.Splitter),
			ChunkSize:        s.getInt(keyIngestChunkSize, d.Ingestion.ChunkSize),
			ChunkOverlap:     s.getInt(keyIngestChunkOverlap, d.Ingestion.ChunkOverlap),
			MaxDocumentBytes: int64(s.getInt(keyIngestMaxBytes, int(d.Ingestion.MaxDocumentBytes))),
			Workers:          s.getInt(keyIngestWorkers, d.Ingestion.Workers),
		},
		Conversations: domain.ConversationSettings{
			RedisAddr: s.configStore.GetString(keyConversationsRedis),
			TTL:       s.getDuration(keyConversationsTTL, d.Conversations.TTL),
		},
		Notify: domain.NotifySettings{
			KafkaBrokers: s.configStore.GetStringSlice(keyNotifyKafkaBrokers),
			KafkaTopic:   s.getString(keyNotifyKafkaTopic, d.Notify.KafkaTopic),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyServerAddr, settings.Server.Addr},
		{keyServerShutdown, settings.Server.ShutdownTimeout.String()},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMTimeout, settings.LLM.Timeout.String()},
		{keyLLMReadTimeout, settings.LLM.ReadTimeout.String()},
		{keyWebBaseURL, settings.Web.BaseURL},
		{keyWebSearchDepth, settings.Web.SearchDepth},
		{keyWebRPS, settings.Web.RequestsPerSecond},
		{keyWebTimeout, settings.Web.Timeout.String()},
		{keyRetrievalMaxInt, settings.Retrieval.MaxInternal},
		{keyRetrievalMaxWeb, settings.Retrieval.MaxWeb},
		{keyRetrievalScope, settings.Retrieval.DefaultScope},
		{keyRetrievalPlanner, settings.Retrieval.PlannerTimeout.String()},
		{keyRetrievalTimeout, settings.Retrieval.RetrievalTimeout.String()},
		{keyIngestSplitter, settings.Ingestion.Splitter},
		{keyIngestChunkSize, settings.Ingestion.ChunkSize},
		{keyIngestChunkOverlap, settings.Ingestion.ChunkOverlap},
		{keyIngestMaxBytes, settings.Ingestion.MaxDocumentBytes},
		{keyIngestWorkers, settings.Ingestion.Workers},
		{keyConversationsRedis, settings.Conversations.RedisAddr},
		{keyConversationsTTL, settings.Conversations.TTL.String()},
		{keyNotifyKafkaBrokers, settings.Notify.KafkaBrokers},
		{keyNotifyKafkaTopic, settings.Notify.KafkaTopic},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// Keys are only written when present so an empty form never wipes them.
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}
	if settings.Web.APIKey != "" {
		if err := s.configStore.Set(keyWebAPIKey, settings.Web.APIKey); err != nil {
			return fmt.Errorf("save web api_key: %w", err)
		}
	}

	return nil
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.LLM.Model = model
	} else {
		settings.LLM.Model = domain.DefaultLLMModels()[provider]
	}

	// Ollama is reached through its local OpenAI-compatible endpoint
	if provider == domain.AIProviderOllama {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = ollamaDefaultBaseURL
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetWebAPIKey configures the web evidence provider key.
func (s *SettingsService) SetWebAPIKey(apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return fmt.Errorf("%w: web api key is empty", domain.ErrInvalidInput)
	}
	if err := s.configStore.Set(keyWebAPIKey, apiKey); err != nil {
		return fmt.Errorf("save web api_key: %w", err)
	}
	return nil
}

// SetValue parses value according to the key's kind and stores it.
func (s *SettingsService) SetValue(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}

	var parsed any
	switch kind {
	case settingKindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, key)
		}
		parsed = n
	case settingKindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("%w: %s must be a positive number", domain.ErrInvalidInput, key)
		}
		parsed = f
	case settingKindDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%w: %s must be a duration: %v", domain.ErrInvalidInput, key, err)
		}
		parsed = value
	case settingKindStringSlice:
		parsed = splitList(value)
	default:
		parsed = value
	}

	switch key {
	case keyLLMProvider:
		if !domain.AIProvider(value).IsValid() {
			return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, value)
		}
	case keyRetrievalScope:
		if value != domain.ScopeAll && value != domain.ScopeNone {
			return fmt.Errorf("%w: default scope must be %q or %q", domain.ErrInvalidInput, domain.ScopeAll, domain.ScopeNone)
		}
	case keyWebSearchDepth:
		if value != searchDepthBasic && value != searchDepthAdvanced {
			return fmt.Errorf("%w: search depth must be %q or %q", domain.ErrInvalidInput, searchDepthBasic, searchDepthAdvanced)
		}
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Validate checks that the current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return ValidateAppSettings(settings)
}

// ValidateAppSettings checks the invariants between settings values.
func ValidateAppSettings(settings *domain.AppSettings) error {
	if !settings.LLM.Provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", settings.LLM.Provider)
	}
	if settings.Ingestion.Splitter != domain.SplitterRecursive && settings.Ingestion.Splitter != domain.SplitterFixed {
		return fmt.Errorf("invalid splitter: %s", settings.Ingestion.Splitter)
	}
	if settings.Ingestion.ChunkSize <= 0 {
		return errors.New("chunk size must be positive")
	}
	if settings.Ingestion.ChunkOverlap < 0 || settings.Ingestion.ChunkOverlap >= settings.Ingestion.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be smaller than chunk size %d",
			settings.Ingestion.ChunkOverlap, settings.Ingestion.ChunkSize)
	}
	if settings.Retrieval.DefaultScope != domain.ScopeAll && settings.Retrieval.DefaultScope != domain.ScopeNone {
		return fmt.Errorf("invalid default scope: %s", settings.Retrieval.DefaultScope)
	}
	if settings.Retrieval.MaxInternal < 0 || settings.Retrieval.MaxWeb < 0 {
		return errors.New("source limits must not be negative")
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	raw, exists := s.configStore.Get(key)
	if !exists {
		return defaultVal
	}
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return defaultVal
	}
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

// splitList splits a comma separated value, dropping blanks.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
