// Package ai builds the provider adapters the pipeline runs on from
// application settings.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/logos-health/logos/internal/adapters/driven/embedding/cache"
	ollamaembed "github.com/logos-health/logos/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/logos-health/logos/internal/adapters/driven/embedding/openai"
	openaillm "github.com/logos-health/logos/internal/adapters/driven/llm/openai"
	"github.com/logos-health/logos/internal/adapters/driven/ratelimit"
	memoryvec "github.com/logos-health/logos/internal/adapters/driven/vectorstore/memory"
	"github.com/logos-health/logos/internal/adapters/driven/vectorstore/qdrant"
	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the providers built for one process.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	VectorStore      driven.VectorStore
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.VectorStore != nil {
		r.VectorStore.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
}

// Init builds and validates every provider named in settings. The vector
// store collection is created when missing. On error nothing is left open.
func Init(ctx context.Context, settings *domain.AppSettings) (*InitResult, error) {
	result := &InitResult{}

	embedder, err := CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: provider %q is not configured",
			domain.ErrEmbeddingUnavailable, settings.Embedding.Provider)
	}
	result.EmbeddingService = embedder

	llm, err := CreateAndValidateLLMService(&settings.LLM)
	if err != nil {
		result.Close()
		return nil, err
	}
	if llm == nil {
		result.Close()
		return nil, fmt.Errorf("%w: provider %q is not configured",
			domain.ErrLLMUnavailable, settings.LLM.Provider)
	}
	result.LLMService = llm

	store, err := CreateVectorStore(&settings.VectorStore, embedder.Dimensions())
	if err != nil {
		result.Close()
		return nil, err
	}
	result.VectorStore = store

	if err := store.EnsureCollection(ctx); err != nil {
		result.Close()
		return nil, fmt.Errorf("vector store: %w", err)
	}
	return result, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'logos settings set embedding.provider ...' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'logos settings set llm.provider openai' to fix",
			domain.ErrLLMUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrLLMUnavailable, err)
	}

	return svc, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a service and pinging it.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateLLMConfig validates an LLM configuration by creating a service and pinging it.
func ValidateLLMConfig(settings *domain.LLMSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the embedding service named by settings,
// throttled when RequestsPerSecond is set and cached when CacheSize is set.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var svc driven.EmbeddingService
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = createOllamaEmbedding(settings)

	case domain.AIProviderOpenAI:
		openai, err := createOpenAIEmbedding(settings)
		if err != nil {
			return nil, err
		}
		svc = openai

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}

	if settings.RequestsPerSecond > 0 {
		limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerSecond: settings.RequestsPerSecond})
		svc = ratelimit.NewEmbeddingService(svc, limiter)
	}
	if settings.CacheSize > 0 {
		cached, err := cache.New(svc, settings.CacheSize)
		if err != nil {
			svc.Close()
			return nil, err
		}
		svc = cached
	}
	return svc, nil
}

// CreateLLMService creates the LLM service named by settings.
// Only providers that return log-probabilities are accepted.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var svc driven.LLMService
	switch settings.Provider {
	case domain.AIProviderOpenAI:
		openai, err := openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		svc = openai

	case domain.AIProviderOllama:
		return nil, fmt.Errorf("ollama does not return log-probabilities, use openai or an OpenAI-compatible server")

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}

	if settings.RequestsPerSecond > 0 {
		limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerSecond: settings.RequestsPerSecond})
		svc = ratelimit.NewLLMService(svc, limiter)
	}
	return svc, nil
}

// CreateVectorStore creates the vector store named by settings. dimensions
// must match the embedding model.
func CreateVectorStore(settings *domain.VectorStoreSettings, dimensions int) (driven.VectorStore, error) {
	switch settings.Provider {
	case domain.VectorStoreQdrant:
		store, err := qdrant.NewStore(qdrant.Config{
			URL:        settings.URL,
			APIKey:     settings.APIKey,
			Collection: settings.Collection,
			Dimensions: dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrVectorStoreUnavailable, err)
		}
		return store, nil

	case domain.VectorStoreMemory:
		return memoryvec.NewStore(dimensions), nil

	default:
		return nil, fmt.Errorf("unsupported vector store: %s", settings.Provider)
	}
}

// embeddingDimensions prefers the configured size, then the known size of the model.
func embeddingDimensions(settings *domain.EmbeddingSettings) int {
	if settings.Dimensions > 0 {
		return settings.Dimensions
	}
	return domain.EmbeddingDimensions()[settings.Model]
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := embeddingDimensions(settings)
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: embeddingDimensions(settings),
	})
}
