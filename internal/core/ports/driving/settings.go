package driving

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// SettingsService manages persisted application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetLLMProvider configures the LLM provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// SetWebAPIKey configures the web evidence provider key.
	SetWebAPIKey(apiKey string) error

	// SetValue stores a single dotted key after validating it.
	SetValue(key, value string) error

	// Validate checks that the current settings are usable.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
	ValidateLLMConfig() error
}
