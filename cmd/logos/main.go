// Command logos is the medical guideline knowledge base CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/logos-health/logos/internal/adapters/driven/ai"
	"github.com/logos-health/logos/internal/adapters/driven/config/file"
	"github.com/logos-health/logos/internal/adapters/driven/metrics/prometheus"
	"github.com/logos-health/logos/internal/adapters/driven/storage/sqlite"
	"github.com/logos-health/logos/internal/adapters/driven/tokens/tiktoken"
	"github.com/logos-health/logos/internal/adapters/driving/cli"
	"github.com/logos-health/logos/internal/confidence"
	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/ports/driven"
	"github.com/logos-health/logos/internal/core/services"
	"github.com/logos-health/logos/internal/logger"
	"github.com/logos-health/logos/internal/normalisers"
	"github.com/logos-health/logos/internal/normalisers/markdown"
	"github.com/logos-health/logos/internal/normalisers/pdf"
	"github.com/logos-health/logos/internal/normalisers/plaintext"
	"github.com/logos-health/logos/internal/postprocessors"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir, err := file.DefaultDir()
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	configStore, err := file.NewConfigStore(dir)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	dataDir := settings.Storage.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(dir, "data")
	}
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer func() { _ = store.Close() }()
	docs := store.DocumentStore()

	validator := confidence.NewValidator(settings.Confidence)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Settings:        settingsService,
		Documents:       services.NewDocumentService(docs),
		Confidence:      validator,
		ConfigValidator: ai.NewConfigValidator(),
		Pipeline: func(ctx context.Context) (*cli.Pipeline, error) {
			return buildPipeline(ctx, settings, dir, docs, validator)
		},
	})

	return cli.Execute(ctx)
}

// buildPipeline connects the AI providers and assembles the services
// that depend on them.
func buildPipeline(
	ctx context.Context,
	settings *domain.AppSettings,
	dir string,
	docs driven.DocumentStore,
	validator *confidence.Validator,
) (*cli.Pipeline, error) {
	providers, err := ai.Init(ctx, settings)
	if err != nil {
		return nil, err
	}

	chunker, err := postprocessors.NewDefaultChunker(settings.RAG)
	if err != nil {
		providers.Close()
		return nil, err
	}
	counter, err := tiktoken.NewCounter(settings.Embedding.Model)
	if err != nil {
		providers.Close()
		return nil, err
	}

	metrics := prometheus.New()

	reasoner := services.NewMedicalReasoner(providers.LLMService, settings.LLM)
	if prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts")); err != nil {
		logger.Warn("using built-in prompts: %v", err)
	} else {
		reasoner.SetPromptStore(prompts)
	}

	augmentation := services.NewAugmentationService(
		reasoner, providers.EmbeddingService, providers.VectorStore, validator, settings.RAG,
		services.WithMetrics(metrics),
	)
	ingestion := services.NewIngestionService(
		docs,
		normalisers.NewRegistry(plaintext.New(), markdown.New(), pdf.New()),
		chunker,
		providers.EmbeddingService,
		providers.VectorStore,
		settings.RAG,
		services.WithTokenCounter(counter),
		services.WithIngestionMetrics(metrics),
	)
	generation := services.NewRagOrchestrator(
		augmentation, reasoner, validator, settings.LLM,
		services.WithOrchestratorMetrics(metrics),
		services.WithRelevanceValidation(settings.RAG.ValidateRelevance),
	)

	return &cli.Pipeline{
		Ingestion:      ingestion,
		Augmentation:   augmentation,
		Generation:     generation,
		Scheduler:      services.NewScheduler(ingestion, domain.DefaultReconcileInterval),
		MetricsHandler: metrics.Handler(),
		Close:          providers.Close,
	}, nil
}
