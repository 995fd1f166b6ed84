package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

const dateFormat = "2006-01-02 15:04:05"

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage indexed documents",
	Long:  `Add, list, inspect and delete the documents questions are answered from.`,
}

var documentAddCmd = &cobra.Command{
	Use:   "add [file...]",
	Short: "Ingest local files",
	Long: `Reads each file, stores it and waits for chunking to finish.
Supported formats: PDF, DOCX, Markdown, plain text and HTML.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDocumentAdd,
}

var documentURLCmd = &cobra.Command{
	Use:   "url [url]",
	Short: "Ingest a web page",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentURL,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var documentStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document and chunk counts",
	Args:  cobra.NoArgs,
	RunE:  runDocumentStats,
}

var (
	documentJSON     bool
	documentParallel int
)

func init() {
	documentListCmd.Flags().BoolVar(&documentJSON, "json", false, "output as JSON")
	documentAddCmd.Flags().IntVarP(&documentParallel, "parallel", "p", 4, "files read and uploaded concurrently")

	documentCmd.AddCommand(documentAddCmd)
	documentCmd.AddCommand(documentURLCmd)
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentStatsCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentAdd(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx := cmd.Context()
	var (
		mu  sync.Mutex
		ids = make([]string, len(args))
	)

	g, gctx := errgroup.WithContext(ctx)
	if documentParallel > 0 {
		g.SetLimit(documentParallel)
	}
	for i, path := range args {
		g.Go(func() error {
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			doc, err := documentService.Upload(gctx, filepath.Base(path), content)
			if err != nil {
				return fmt.Errorf("failed to upload %s: %w", path, err)
			}
			mu.Lock()
			ids[i] = doc.ID
			mu.Unlock()
			return nil
		})
	}
	uploadErr := g.Wait()

	// Ingestion runs in the background; the process must not exit before it ends.
	documentService.Wait()

	for i, id := range ids {
		if id == "" {
			continue
		}
		doc, err := documentService.Get(ctx, id)
		if err != nil {
			cmd.Printf("  %s: %v\n", args[i], err)
			continue
		}
		printIngested(cmd, doc)
	}

	return uploadErr
}

func runDocumentURL(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx := cmd.Context()
	doc, err := documentService.AddURL(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to add URL: %w", err)
	}

	documentService.Wait()

	if final, err := documentService.Get(ctx, doc.ID); err == nil {
		doc = final
	}
	printIngested(cmd, doc)
	return nil
}

func printIngested(cmd *cobra.Command, doc *domain.Document) {
	if doc.Status == domain.StatusFailed {
		cmd.Printf("  %s  %s  failed: %s\n", doc.ID, doc.Name, doc.Error)
		return
	}
	cmd.Printf("  %s  %s  %s (%d chunks)\n", doc.ID, doc.Name, doc.Status, doc.ChunkCount)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if documentJSON {
		if docs == nil {
			docs = []domain.Document{}
		}
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Name:   %s\n", docs[i].Name)
		cmd.Printf("    Type:   %s\n", docs[i].Type)
		cmd.Printf("    Status: %s\n", docs[i].Status)
		cmd.Printf("    Chunks: %d\n", docs[i].ChunkCount)
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Name:     %s\n", doc.Name)
	cmd.Printf("  Type:     %s\n", doc.Type)
	if doc.Source != "" {
		cmd.Printf("  Source:   %s\n", doc.Source)
	}
	cmd.Printf("  Status:   %s\n", doc.Status)
	if doc.Error != "" {
		cmd.Printf("  Error:    %s\n", doc.Error)
	}
	cmd.Printf("  Chunks:   %d\n", doc.ChunkCount)
	cmd.Printf("  Created:  %s\n", doc.CreatedAt.Format(dateFormat))
	cmd.Printf("  Updated:  %s\n", doc.UpdatedAt.Format(dateFormat))

	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	if err := documentService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Deleted document %s\n", args[0])
	return nil
}

func runDocumentStats(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	stats, err := documentService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	cmd.Printf("Documents: %d\n", stats.TotalDocuments)
	cmd.Printf("Chunks:    %d\n", stats.TotalChunks)
	for _, status := range []domain.DocumentStatus{
		domain.StatusPending, domain.StatusProcessing, domain.StatusCompleted, domain.StatusFailed,
	} {
		if n := stats.StatusBreakdown[status]; n > 0 {
			cmd.Printf("  %-10s %d\n", status, n)
		}
	}
	return nil
}
