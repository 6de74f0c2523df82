package driven

import (
	"context"

	"github.com/logos-health/logos/internal/core/domain"
)

// DocumentStore persists documents and chunks.
// Backed by SQLite for metadata storage.
type DocumentStore interface {
	// GetByID retrieves a document by ID. Chunks may be left empty;
	// GetChunks always returns them.
	// Returns domain.ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*domain.Document, error)

	// Save stores or replaces a document and its chunks atomically.
	Save(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error

	// MarkProcessed flags a document whose vectors are all written.
	MarkProcessed(ctx context.Context, id string) error

	// GetChunks retrieves all chunks for a document in insertion order.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// ListAll returns every document, newest first.
	ListAll(ctx context.Context) ([]domain.DocumentSummary, error)

	// ListUnprocessed returns documents whose vectors were never confirmed.
	ListUnprocessed(ctx context.Context) ([]domain.Document, error)
}
