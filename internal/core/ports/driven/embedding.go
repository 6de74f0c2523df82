// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/logos-health/logos/internal/core/domain"
)

// EmbeddingService generates vector embeddings from text.
//
// Note: This is separate from VectorStore which stores and searches vectors.
// EmbeddingService generates vectors; VectorStore stores them.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) (Embedding, error)

	// EmbedMany generates embeddings for multiple texts in one provider call.
	// Results are returned in input order.
	EmbedMany(ctx context.Context, texts []string) ([]Embedding, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	// This must match the vector store collection.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Embedding is a vector and the tokens spent producing it.
// For batched calls the provider's usage is apportioned across inputs.
type Embedding struct {
	Vector []float32
	Usage  domain.TokenUsage
}
