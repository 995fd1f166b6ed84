package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-rag/internal/config"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the LLM provider, web search, retrieval limits and
ingestion options.

Environment variables such as LLM_PROVIDER and GROQ_API_KEY override the
stored values at startup.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single setting",
	Long: `Set one setting by its dotted key.

Examples:
  sercha-rag settings set retrieval.max_internal 8
  sercha-rag settings set ingestion.splitter fixed
  sercha-rag settings set web.search_depth basic`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long: `Choose the LLM provider and model used for planning and answering.

Without flags the provider, model and API key are asked for interactively.`,
	RunE:  runSettingsLLM,
}

var settingsWebCmd = &cobra.Command{
	Use:   "web",
	Short: "Configure web search",
	Long:  `Set the Tavily API key used for web evidence.`,
	RunE:  runSettingsWeb,
}

var (
	llmProvider string
	llmModel    string
)

func init() {
	settingsLLMCmd.Flags().StringVar(&llmProvider, "provider", "", "provider to use without prompting (groq, openai, ollama, anthropic, gemini)")
	settingsLLMCmd.Flags().StringVar(&llmModel, "model", "", "model to use without prompting")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsWebCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", displayKey(settings.LLM.APIKey))
	}
	cmd.Printf("  Read timeout: %s\n", settings.LLM.ReadTimeout)
	cmd.Printf("  Status: %s\n", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[Web Search]")
	cmd.Printf("  API Key: %s\n", displayKey(settings.Web.APIKey))
	cmd.Printf("  Depth: %s\n", settings.Web.SearchDepth)
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Web.IsConfigured()))
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Max internal sources: %d\n", settings.Retrieval.MaxInternal)
	cmd.Printf("  Max web sources: %d\n", settings.Retrieval.MaxWeb)
	cmd.Printf("  Default scope: %s\n", settings.Retrieval.DefaultScope)
	cmd.Println()

	cmd.Println("[Ingestion]")
	cmd.Printf("  Splitter: %s\n", settings.Ingestion.Splitter)
	cmd.Printf("  Chunk size: %d\n", settings.Ingestion.ChunkSize)
	cmd.Printf("  Chunk overlap: %d\n", settings.Ingestion.ChunkOverlap)
	cmd.Println()

	cmd.Println("[Conversations]")
	if settings.Conversations.RedisAddr != "" {
		cmd.Printf("  Store: redis (%s)\n", settings.Conversations.RedisAddr)
	} else {
		cmd.Println("  Store: memory")
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'sercha-rag settings llm' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if err := settingsService.SetValue(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}

	cmd.Printf("Set %s\n", args[0])
	return nil
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	provider, err := chooseProvider(cmd, reader)
	if err != nil {
		return err
	}

	model := llmModel
	if model == "" {
		def := domain.DefaultLLMModels()[provider]
		cmd.Printf("Enter model name [%s]: ", def)
		if model = readLine(reader); model == "" {
			model = def
		}
	}

	apiKey, err := promptAPIKey(cmd, reader, provider)
	if err != nil {
		return err
	}

	if err := settingsService.SetLLMProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n\n", provider.Description(), model)
	return nil
}

// chooseProvider returns the --provider flag value or asks for a numbered
// choice, defaulting to the first provider.
func chooseProvider(cmd *cobra.Command, reader *bufio.Reader) (domain.AIProvider, error) {
	if llmProvider != "" {
		p := domain.AIProvider(strings.ToLower(llmProvider))
		if !p.IsValid() {
			return "", fmt.Errorf("unknown provider %q", llmProvider)
		}
		return p, nil
	}

	providers := domain.AllLLMProviders()
	cmd.Println("Select LLM Provider")
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	return providers[parseChoice(readLine(reader), len(providers), 1)-1], nil
}

// promptAPIKey asks for the provider's key. When the provider's environment
// variable is set an empty answer keeps using it.
func promptAPIKey(cmd *cobra.Command, reader *bufio.Reader, provider domain.AIProvider) (string, error) {
	if !provider.RequiresAPIKey() {
		return "", nil
	}

	envName := config.APIKeyEnv(provider)
	envKey := os.Getenv(envName)
	if envKey != "" {
		cmd.Printf("Enter API key [$%s]: ", envName)
	} else {
		cmd.Print("Enter API key: ")
	}
	apiKey := readPassword(cmd.InOrStdin(), reader)
	cmd.Println()

	switch {
	case apiKey != "":
		return apiKey, nil
	case envKey != "":
		return envKey, nil
	}
	return "", errors.New("API key is required for this provider")
}

func runSettingsWeb(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	cmd.Print("Enter Tavily API key: ")
	apiKey := readPassword(cmd.InOrStdin(), reader)
	cmd.Println()
	if apiKey == "" {
		return errors.New("API key is required for web search")
	}

	if err := settingsService.SetWebAPIKey(apiKey); err != nil {
		return fmt.Errorf("failed to configure web search: %w", err)
	}
	cmd.Printf("Web search configured (%s).\n", maskAPIKey(apiKey))
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal and falls back to a
// plain line read from reader otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func displayKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}
