package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Opens a full-screen chat. Answers stream in as they are generated and
follow-up questions continue the same conversation.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	app, err := tui.NewApp(&tui.Ports{Chat: chatService})
	if err != nil {
		return err
	}
	return app.WithContext(cmd.Context()).Run()
}
