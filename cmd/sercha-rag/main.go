// Command sercha-rag answers questions over ingested documents and the web.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/notify"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/web/fetch"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/web/tavily"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-rag/internal/config"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		return err
	}

	// Settings
	configStore, err := file.NewConfigStore(cfg.ConfigDir())
	if err != nil {
		return fmt.Errorf("config store: %w", err)
	}
	prompts, err := file.NewPromptStore(cfg.PromptDir())
	if err != nil {
		return fmt.Errorf("prompt store: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	config.Overlay(settings)

	// Storage
	var docStore driven.DocumentStore
	if cfg.Ephemeral {
		docStore = memory.NewDocumentStore()
	} else {
		store, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("document store: %w", err)
		}
		defer store.Close() //nolint:errcheck
		docStore = store.DocumentStore()
	}

	var convStore driven.ConversationStore = memory.NewConversationStore()
	if settings.Conversations.RedisAddr != "" {
		rs, err := redis.NewConversationStore(ctx, redis.Options{
			Addr: settings.Conversations.RedisAddr,
			TTL:  settings.Conversations.TTL,
		})
		if err != nil {
			logger.Warn("Using in-memory conversations: %v", err)
		} else {
			defer rs.Close() //nolint:errcheck
			convStore = rs
		}
	}

	// Evidence and generation providers
	llm, err := ai.CreateLLMService(ctx, &settings.LLM)
	if err != nil {
		logger.Warn("LLM unavailable: %v", err)
		llm = nil
	}
	if llm != nil {
		defer llm.Close() //nolint:errcheck
	}

	var web driven.WebEvidenceProvider
	if settings.Web.IsConfigured() {
		client, err := tavily.NewClient(tavily.Config{
			APIKey:            settings.Web.APIKey,
			BaseURL:           settings.Web.BaseURL,
			SearchDepth:       settings.Web.SearchDepth,
			RequestsPerSecond: settings.Web.RequestsPerSecond,
			Timeout:           settings.Web.Timeout,
		})
		if err != nil {
			logger.Warn("Web search unavailable: %v", err)
		} else {
			web = client
		}
	}

	// Status notifications
	var downstream []driven.StatusNotifier
	if len(settings.Notify.KafkaBrokers) > 0 {
		kp, err := notify.NewKafkaPublisher(settings.Notify.KafkaBrokers, settings.Notify.KafkaTopic)
		if err != nil {
			logger.Warn("Kafka notifications disabled: %v", err)
		} else {
			defer kp.Close() //nolint:errcheck
			downstream = append(downstream, kp)
		}
	}
	broker := notify.NewBroker(downstream...)

	// Ingestion
	chunker, err := postprocessors.NewDefaultRegistry().FromSettings(settings.Ingestion)
	if err != nil {
		return fmt.Errorf("chunker: %w", err)
	}
	documentService := services.NewDocumentService(docStore, normalisers.NewDefaultRegistry(), chunker, settings.Ingestion)
	documentService.SetPageFetcher(fetch.NewFetcher(settings.Web.Timeout, settings.Ingestion.MaxDocumentBytes))
	documentService.SetNotifier(broker)
	defer documentService.Close()

	// Query path
	streamer := services.NewAnswerStreamer(llm, settings.LLM.ReadTimeout)
	streamer.SetPromptStore(prompts)
	conversations := services.NewConversationRegistry(convStore)
	chatService := services.NewChatService(
		docStore,
		services.NewDefaultPlanner(llm, settings.Retrieval.PlannerTimeout, prompts),
		services.NewRetrievalCoordinator(docStore, web, settings.Retrieval.RetrievalTimeout),
		streamer,
		conversations,
		settings.Retrieval,
	)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Chat:          chatService,
		Conversations: conversations,
		Documents:     documentService,
		Settings:      settingsService,
	})

	return cli.Execute(ctx)
}
