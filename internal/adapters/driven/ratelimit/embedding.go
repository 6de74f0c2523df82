package ratelimit

import (
	"context"

	"github.com/logos-health/logos/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService rate limits requests of an inner EmbeddingService.
// A batch counts as one request.
type EmbeddingService struct {
	driven.EmbeddingService
	limiter *Limiter
}

// NewEmbeddingService wraps inner with limiter.
func NewEmbeddingService(inner driven.EmbeddingService, limiter *Limiter) *EmbeddingService {
	return &EmbeddingService{EmbeddingService: inner, limiter: limiter}
}

// Embed waits for a slot, then delegates.
func (s *EmbeddingService) Embed(ctx context.Context, text string) (driven.Embedding, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return driven.Embedding{}, err
	}
	e, err := s.EmbeddingService.Embed(ctx, text)
	s.limiter.Observe(err)
	return e, err
}

// EmbedMany waits for a slot, then delegates.
func (s *EmbeddingService) EmbedMany(ctx context.Context, texts []string) ([]driven.Embedding, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	e, err := s.EmbeddingService.EmbedMany(ctx, texts)
	s.limiter.Observe(err)
	return e, err
}
