package driving

import (
	"context"

	"github.com/logos-health/logos/internal/core/domain"
)

// IngestionService turns uploads into indexed, searchable chunks.
type IngestionService interface {
	// IngestFile ingests one upload. Parse failures are reported in the
	// result, not as an error.
	IngestFile(ctx context.Context, upload domain.Upload) domain.IngestionResult

	// IngestFiles ingests uploads concurrently; one failure never aborts the batch.
	IngestFiles(ctx context.Context, uploads []domain.Upload) domain.BulkIngestionResult

	// Reconcile finishes documents whose vectors were never confirmed.
	Reconcile(ctx context.Context) (domain.BulkIngestionResult, error)

	// ListDocuments returns stored documents.
	ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error)
}
