package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	askDocs         []string
	askNoDocs       bool
	askWeb          bool
	askConversation string
	askJSON         bool
	askStream       bool
	askMaxInternal  int
	askMaxWeb       int
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question",
	Long: `Answers a question using the indexed documents and, when the planner
decides it is needed, web search. Answers stream to the terminal as they are
generated and end with the list of cited sources.

Examples:
  sercha-rag ask "What is our leave policy?"
  sercha-rag ask --doc 3f2c... --doc 9a1b... "Summarise these reports"
  sercha-rag ask --no-docs --web "Latest Go release"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringSliceVarP(&askDocs, "doc", "d", nil, "restrict retrieval to these document IDs")
	askCmd.Flags().BoolVar(&askNoDocs, "no-docs", false, "skip document retrieval")
	askCmd.Flags().BoolVarP(&askWeb, "web", "w", false, "always include web search")
	askCmd.Flags().StringVarP(&askConversation, "conversation", "c", "", "continue an existing conversation")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the full response as JSON")
	askCmd.Flags().BoolVar(&askStream, "stream", false, "stream tokens even when stdout is not a terminal")
	askCmd.Flags().IntVar(&askMaxInternal, "max-internal", 0, "maximum document sources (0 = default)")
	askCmd.Flags().IntVar(&askMaxWeb, "max-web", 0, "maximum web sources (0 = default)")
	rootCmd.AddCommand(askCmd)
}

func buildChatRequest(args []string) domain.ChatRequest {
	req := domain.ChatRequest{
		Message:            strings.Join(args, " "),
		ConversationID:     askConversation,
		ForceWebSearch:     askWeb,
		MaxInternalSources: askMaxInternal,
		MaxWebSources:      askMaxWeb,
	}
	switch {
	case askNoDocs:
		req.DocumentIDs = []string{}
	case len(askDocs) > 0:
		req.DocumentIDs = askDocs
	}
	return req
}

func runAsk(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errors.New("chat service not configured")
	}

	req := buildChatRequest(args)

	if !askJSON && (askStream || isTerminal(cmd.OutOrStdout())) {
		return streamAnswer(cmd, req)
	}

	resp, err := chatService.Ask(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(resp.Answer)
	printSources(cmd, resp.Sources)
	cmd.Printf("\nConversation: %s\n", resp.ConversationID)
	return nil
}

func streamAnswer(cmd *cobra.Command, req domain.ChatRequest) error {
	events, err := chatService.Stream(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	var sources []domain.Source
	for ev := range events {
		switch ev.Type {
		case domain.EventSources:
			sources = ev.Sources.Sources
		case domain.EventToken:
			cmd.Print(ev.Token.Content)
		case domain.EventDone:
			cmd.Println()
			printSources(cmd, sources)
			cmd.Printf("\nConversation: %s\n", ev.Done.ConversationID)
		case domain.EventError:
			cmd.Println()
			return fmt.Errorf("ask failed: %s", ev.Error.Error)
		}
	}
	return nil
}

func printSources(cmd *cobra.Command, sources []domain.Source) {
	if len(sources) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i := range sources {
		s := sources[i]
		cmd.Printf("  [%d] %s (%s, %.2f)\n", i+1, s.Label, s.Origin, s.Score)
		if s.URL != "" {
			cmd.Printf("      %s\n", s.URL)
		}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
