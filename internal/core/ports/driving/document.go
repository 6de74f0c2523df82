package driving

import (
	"context"
	"time"

	"github.com/logos-health/logos/internal/core/domain"
)

// DocumentService browses the ingested knowledge base.
type DocumentService interface {
	// List returns every stored document, newest first.
	List(ctx context.Context) ([]domain.DocumentSummary, error)

	// Get retrieves a document by ID, including its chunks.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// GetContent returns the concatenated content of all chunks.
	GetContent(ctx context.Context, documentID string) (string, error)

	// GetDetails returns metadata for display.
	GetDetails(ctx context.Context, documentID string) (*DocumentDetails, error)
}

// DocumentDetails provides a standardised view of document metadata.
type DocumentDetails struct {
	// ID is the content-derived document identifier.
	ID string

	// Title is the document title.
	Title string

	// Description is the free text supplied at upload.
	Description string

	// FileName is the original upload name.
	FileName string

	// Size is the raw byte size.
	Size int64

	// Pages counts distinct pages that produced chunks.
	Pages int

	// ChunkCount is the number of chunks.
	ChunkCount int

	// TotalWords and TotalTokens summarise the chunk text.
	TotalWords  int
	TotalTokens int

	// Processed is false while vectors are still pending.
	Processed bool

	// UploadedAt is when the document was first stored.
	UploadedAt time.Time
}
