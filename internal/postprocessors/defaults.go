package postprocessors

import (
	"fmt"

	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/ports/driven"
	"github.com/logos-health/logos/internal/postprocessors/chunker"
)

// DefaultChunker is the name of the page-aware sentence chunker.
const DefaultChunker = "chunker"

// RegisterDefaults registers all built-in chunkers with the registry.
func RegisterDefaults(r *Registry) {
	r.Register(DefaultChunker, buildChunker)
}

// NewDefaultChunker builds the default chunker from settings.
func NewDefaultChunker(rag domain.RAGSettings) (driven.Chunker, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	return r.Build(DefaultChunker, rag)
}

// buildChunker creates the sentence chunker. Size must be positive;
// overlap and markers fall back to the chunker defaults when unset.
func buildChunker(rag domain.RAGSettings) (driven.Chunker, error) {
	if rag.ChunkSizeWords <= 0 {
		return nil, fmt.Errorf("chunker: chunk size must be positive, got %d", rag.ChunkSizeWords)
	}

	opts := []chunker.Option{chunker.WithChunkSize(rag.ChunkSizeWords)}
	if rag.ChunkOverlapWords >= 0 {
		opts = append(opts, chunker.WithOverlap(rag.ChunkOverlapWords))
	}
	if len(rag.GuidelineMarkers) > 0 {
		opts = append(opts, chunker.WithGuidelineMarkers(rag.GuidelineMarkers...))
	}

	return chunker.New(opts...), nil
}
