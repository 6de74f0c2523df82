package normalisers

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// extensionTypes refines a generic text detection by file extension.
var extensionTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".text":     "text/plain",
}

// Registry dispatches uploads to the highest-priority normaliser for
// their detected MIME type.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates a registry holding the given normalisers.
func NewRegistry(normalisers ...driven.Normaliser) *Registry {
	r := &Registry{}
	for _, n := range normalisers {
		r.Register(n)
	}
	return r
}

// Register adds a normaliser to the registry.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalisers = append(r.normalisers, n)
	sort.SliceStable(r.normalisers, func(i, j int) bool {
		return r.normalisers[i].Priority() > r.normalisers[j].Priority()
	})
}

// SupportedMIMETypes returns all MIME types that can be normalised.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var types []string
	for _, n := range r.normalisers {
		for _, t := range n.SupportedMIMETypes() {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}
	sort.Strings(types)
	return types
}

// Normalise extracts pages using the best matching normaliser.
func (r *Registry) Normalise(ctx context.Context, fileName string, data []byte) ([]domain.Page, error) {
	candidates := DetectMIMETypes(fileName, data)

	n := r.find(candidates)
	if n == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, candidates[0])
	}
	return n.Normalise(ctx, data)
}

func (r *Registry) find(candidates []string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, mt := range candidates {
		for _, n := range r.normalisers {
			for _, t := range n.SupportedMIMETypes() {
				if t == mt {
					return n
				}
			}
		}
	}
	return nil
}

// DetectMIMETypes returns the MIME types data may be read as, most specific
// first. Content sniffing decides binary formats; the file extension only
// refines plain text, so a renamed PDF is still read as a PDF.
func DetectMIMETypes(fileName string, data []byte) []string {
	var types []string
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		types = append(types, baseType(m.String()))
	}

	if detected.Is("text/plain") {
		if ext, ok := extensionTypes[strings.ToLower(filepath.Ext(fileName))]; ok && ext != types[0] {
			types = append([]string{ext}, types...)
		}
	}
	return types
}

// baseType strips parameters such as charset.
func baseType(s string) string {
	if mt, _, err := mime.ParseMediaType(s); err == nil {
		return mt
	}
	return s
}
