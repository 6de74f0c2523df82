package driven

import "github.com/logos-health/logos/internal/core/domain"

// Chunker splits extracted pages into passages.
type Chunker interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Chunk returns page-bound fragments in document order, the derived
	// title and total counts. Returns domain.ErrNoExtractableText when no
	// page has text.
	Chunk(pages []domain.Page) (*domain.ChunkingResult, error)
}
