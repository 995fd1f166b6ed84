// Package cli provides the command-line interface for sercha-rag.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

var (
	version = "dev"
	verbose bool

	chatService         driving.ChatService
	conversationService driving.ConversationService
	documentService     driving.DocumentService
	settingsService     driving.SettingsService
)

// Services holds the core services the commands run against.
type Services struct {
	Chat          driving.ChatService
	Conversations driving.ConversationService
	Documents     driving.DocumentService
	Settings      driving.SettingsService
}

var rootCmd = &cobra.Command{
	Use:   "sercha-rag",
	Short: "Ask questions over your documents and the web",
	Long: `sercha-rag ingests PDF, Word, Markdown, text and web pages, then answers
questions with an LLM grounded in the most relevant document passages and,
when needed, live web search results. Every answer cites its sources.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetServices configures the services used by all commands.
func SetServices(s Services) {
	chatService = s.Chat
	conversationService = s.Conversations
	documentService = s.Documents
	settingsService = s.Settings
}

// SetVersion sets the version reported by the version command and the API.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
