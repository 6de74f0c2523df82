package driven

import (
	"context"

	"github.com/logos-health/logos/internal/core/domain"
)

// Normaliser turns raw upload bytes into per-page plain text.
// Each normaliser handles specific MIME types (e.g., PDF, Markdown).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise extracts the pages of a document, numbered from 1.
	// Pages with no text may be omitted.
	Normalise(ctx context.Context, data []byte) ([]domain.Page, error)
}
