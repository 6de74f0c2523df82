// Package cache memoises embeddings of repeated texts, such as the search
// queries the context extractor emits for similar patients.
package cache

import (
	"context"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/logos-health/logos/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService caches vectors of an inner EmbeddingService by text.
// A cache hit reports zero usage since no tokens were spent.
type EmbeddingService struct {
	driven.EmbeddingService
	cache *lru.Cache[string, []float32]
}

// New wraps inner with an LRU cache of size entries.
func New(inner driven.EmbeddingService, size int) (*EmbeddingService, error) {
	if size <= 0 {
		return nil, fmt.Errorf("embedding cache: size must be greater than zero")
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}
	return &EmbeddingService{EmbeddingService: inner, cache: c}, nil
}

// Embed returns the cached vector or embeds and stores it.
func (s *EmbeddingService) Embed(ctx context.Context, text string) (driven.Embedding, error) {
	if v, ok := s.cache.Get(text); ok {
		return driven.Embedding{Vector: slices.Clone(v)}, nil
	}
	e, err := s.EmbeddingService.Embed(ctx, text)
	if err != nil {
		return driven.Embedding{}, err
	}
	s.cache.Add(text, slices.Clone(e.Vector))
	return e, nil
}

// EmbedMany embeds only the texts not already cached, in one batch.
// Duplicate misses within the batch are sent once.
func (s *EmbeddingService) EmbedMany(ctx context.Context, texts []string) ([]driven.Embedding, error) {
	out := make([]driven.Embedding, len(texts))
	missing := make(map[string][]int)
	var order []string
	for i, t := range texts {
		if v, ok := s.cache.Get(t); ok {
			out[i] = driven.Embedding{Vector: slices.Clone(v)}
			continue
		}
		if _, seen := missing[t]; !seen {
			order = append(order, t)
		}
		missing[t] = append(missing[t], i)
	}
	if len(order) == 0 {
		return out, nil
	}

	embedded, err := s.EmbeddingService.EmbedMany(ctx, order)
	if err != nil {
		return nil, err
	}
	if len(embedded) != len(order) {
		return nil, fmt.Errorf("embedding cache: got %d embeddings for %d inputs", len(embedded), len(order))
	}
	for j, t := range order {
		s.cache.Add(t, slices.Clone(embedded[j].Vector))
		for k, i := range missing[t] {
			out[i] = driven.Embedding{Vector: slices.Clone(embedded[j].Vector)}
			if k == 0 {
				out[i].Usage = embedded[j].Usage
			}
		}
	}
	return out, nil
}

// Len returns the number of cached vectors.
func (s *EmbeddingService) Len() int {
	return s.cache.Len()
}
