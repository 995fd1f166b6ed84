package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var conversationCmd = &cobra.Command{
	Use:     "conversation",
	Aliases: []string{"conv"},
	Short:   "Manage conversation history",
}

var conversationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conversations",
	Args:  cobra.NoArgs,
	RunE:  runConversationList,
}

var conversationShowCmd = &cobra.Command{
	Use:   "show [conversation-id]",
	Short: "Print a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationShow,
}

var conversationDeleteCmd = &cobra.Command{
	Use:   "delete [conversation-id]",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runConversationDelete,
}

func init() {
	conversationCmd.AddCommand(conversationListCmd)
	conversationCmd.AddCommand(conversationShowCmd)
	conversationCmd.AddCommand(conversationDeleteCmd)
	rootCmd.AddCommand(conversationCmd)
}

func runConversationList(cmd *cobra.Command, _ []string) error {
	if conversationService == nil {
		return errors.New("conversation service not configured")
	}

	convs, err := conversationService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	if len(convs) == 0 {
		cmd.Println("No conversations found.")
		return nil
	}

	for i := range convs {
		cmd.Printf("  %s  %d messages  updated %s\n",
			convs[i].ID, convs[i].MessageCount, convs[i].UpdatedAt.Format(dateFormat))
	}
	cmd.Printf("\nTotal: %d conversations\n", len(convs))
	return nil
}

func runConversationShow(cmd *cobra.Command, args []string) error {
	if conversationService == nil {
		return errors.New("conversation service not configured")
	}

	conv, err := conversationService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get conversation: %w", err)
	}

	cmd.Printf("Conversation: %s\n\n", conv.ID)
	for _, msg := range conv.Messages {
		cmd.Printf("[%s] %s\n", msg.Role, msg.Timestamp.Format(dateFormat))
		cmd.Println(msg.Content)
		printSources(cmd, msg.Sources)
		cmd.Println()
	}
	return nil
}

func runConversationDelete(cmd *cobra.Command, args []string) error {
	if conversationService == nil {
		return errors.New("conversation service not configured")
	}

	if err := conversationService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	cmd.Printf("Deleted conversation %s\n", args[0])
	return nil
}
