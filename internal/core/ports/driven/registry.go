package driven

import (
	"context"

	"github.com/logos-health/logos/internal/core/domain"
)

// NormaliserRegistry selects the appropriate normaliser for an upload.
// It maintains a priority-ordered list of normalisers and dispatches
// based on the detected MIME type.
type NormaliserRegistry interface {
	// Normalise extracts pages using the best matching normaliser.
	// Returns domain.ErrUnsupportedType when nothing handles the content.
	Normalise(ctx context.Context, fileName string, data []byte) ([]domain.Page, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string
}
