package plaintext

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents. Form feeds separate pages,
// as pdftotext and most print-to-text tools emit them.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/plain", "text/csv"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise splits the text into pages on form feeds. Blank pages are
// skipped but still consume a page number.
func (n *Normaliser) Normalise(_ context.Context, data []byte) ([]domain.Page, error) {
	if !utf8.Valid(data) {
		return nil, domain.ErrUnsupportedType
	}
	return SplitPages(string(data)), nil
}

// SplitPages splits text on form feeds into numbered, non-blank pages.
func SplitPages(text string) []domain.Page {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var pages []domain.Page
	for i, p := range strings.Split(text, "\f") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: i + 1, Text: p})
	}
	return pages
}
