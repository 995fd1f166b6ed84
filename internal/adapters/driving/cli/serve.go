package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/api"
	"github.com/custodia-labs/sercha-rag/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

var (
	serveAddr  string
	serveWatch []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the chat and document API. With --watch, every supported file in
the given directories is ingested and kept in sync as files change.

Examples:
  sercha-rag serve
  sercha-rag serve --addr :9000 --watch ./docs`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (default from settings)")
	serveCmd.Flags().StringSliceVarP(&serveWatch, "watch", "w", nil, "directories to ingest and watch")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if chatService == nil || documentService == nil || conversationService == nil {
		return errors.New("services not configured")
	}

	settings := domain.DefaultAppSettings()
	if settingsService != nil {
		s, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		settings = *s
	}

	addr := settings.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	handler := api.NewHandler(chatService, conversationService, documentService, settingsService, api.Config{
		Version:        version,
		MaxUploadBytes: settings.Ingestion.MaxDocumentBytes,
	})
	server := api.NewServer(addr, api.NewRouter(handler), settings.Server.ShutdownTimeout)

	syncers := make([]*filesystem.Syncer, 0, len(serveWatch))
	for _, dir := range serveWatch {
		conn := filesystem.New(dir, settings.Ingestion.MaxDocumentBytes)
		if err := conn.Validate(); err != nil {
			return err
		}
		syncers = append(syncers, filesystem.NewSyncer(documentService, conn,
			filesystem.WithWorkers(settings.Ingestion.Workers)))
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return server.Run(ctx)
	})
	for _, syncer := range syncers {
		g.Go(func() error {
			return syncer.Run(ctx)
		})
	}

	err := g.Wait()
	// Let in-flight ingestion finish before the process exits.
	documentService.Wait()
	logger.Info("Stopped")
	return err
}
