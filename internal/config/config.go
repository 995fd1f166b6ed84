// Package config resolves process configuration from the environment.
//
// Values come from, in order of precedence: environment variables (a .env
// file in the working directory is loaded first and never overrides the real
// environment), keys in ~/.sercha-rag/config.toml, and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Environment variable names.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvHome        = "SERCHA_HOME"
	EnvAddr        = "SERCHA_ADDR"
	EnvEphemeral   = "SERCHA_EPHEMERAL"
	EnvLogFormat   = "LOG_FORMAT"
	EnvLLMProvider = "LLM_PROVIDER"
	EnvLLMModel    = "LLM_MODEL"
	EnvLLMBaseURL  = "LLM_BASE_URL"
	EnvLLMAPIKey   = "LLM_API_KEY"
	EnvTavilyKey   = "TAVILY_API_KEY"
	EnvRedisAddr   = "REDIS_ADDR"
	EnvKafka       = "KAFKA_BROKERS"
	EnvKafkaTopic  = "KAFKA_TOPIC"
)

// DefaultDirName is the directory under the user's home holding config,
// prompts and data.
const DefaultDirName = ".sercha-rag"

// providerKeyEnv maps each provider to the variable holding its API key.
var providerKeyEnv = map[domain.AIProvider]string{
	domain.AIProviderGroq:      "GROQ_API_KEY",
	domain.AIProviderOpenAI:    "OPENAI_API_KEY",
	domain.AIProviderAnthropic: "ANTHROPIC_API_KEY",
	domain.AIProviderGemini:    "GEMINI_API_KEY",
}

// Config holds the process-level values that are not user settings.
type Config struct {
	// Home holds config.toml, prompts/ and data/.
	Home string

	// DataDir holds the sqlite database.
	DataDir string

	// Ephemeral keeps documents in memory only.
	Ephemeral bool

	// LogFormat is "text" or "json".
	LogFormat string
}

// Load reads the given .env files (default ".env") into the environment and
// resolves the process configuration. Missing files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	home := os.Getenv(EnvHome)
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		home = filepath.Join(userHome, DefaultDirName)
	}

	ephemeral, err := envBool(EnvEphemeral)
	if err != nil {
		return nil, err
	}

	return &Config{
		Home:      home,
		DataDir:   filepath.Join(home, "data"),
		Ephemeral: ephemeral,
		LogFormat: getEnv(EnvLogFormat, "text"),
	}, nil
}

// ConfigDir is the directory holding config.toml.
func (c *Config) ConfigDir() string {
	return c.Home
}

// PromptDir is the directory holding editable prompt files.
func (c *Config) PromptDir() string {
	return filepath.Join(c.Home, "prompts")
}

// Overlay applies environment overrides to settings read from the config
// file.
func Overlay(s *domain.AppSettings) {
	if v := os.Getenv(EnvAddr); v != "" {
		s.Server.Addr = v
	}

	if v := os.Getenv(EnvLLMProvider); v != "" {
		provider := domain.AIProvider(strings.ToLower(v))
		if provider != s.LLM.Provider && os.Getenv(EnvLLMModel) == "" {
			s.LLM.Model = domain.DefaultLLMModels()[provider]
		}
		s.LLM.Provider = provider
	}
	if v := os.Getenv(EnvLLMModel); v != "" {
		s.LLM.Model = v
	}
	if v := os.Getenv(EnvLLMBaseURL); v != "" {
		s.LLM.BaseURL = v
	}
	if v := os.Getenv(EnvLLMAPIKey); v != "" {
		s.LLM.APIKey = v
	} else if v := os.Getenv(providerKeyEnv[s.LLM.Provider]); v != "" {
		s.LLM.APIKey = v
	}

	if v := os.Getenv(EnvTavilyKey); v != "" {
		s.Web.APIKey = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		s.Conversations.RedisAddr = v
	}
	if v := os.Getenv(EnvKafka); v != "" {
		s.Notify.KafkaBrokers = splitList(v)
	}
	if v := os.Getenv(EnvKafkaTopic); v != "" {
		s.Notify.KafkaTopic = v
	}
}

// APIKeyEnv returns the variable consulted for provider's API key.
func APIKeyEnv(provider domain.AIProvider) string {
	return providerKeyEnv[provider]
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func envBool(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
