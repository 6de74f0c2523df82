package mcp

import (
	"github.com/logos-health/logos/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Augmentation retrieves guideline context.
	Augmentation driving.AugmentationService

	// Generation produces the final analysis. Optional.
	Generation driving.GenerationService

	// Ingestion adds documents. Optional.
	Ingestion driving.IngestionService

	// Confidence scores raw log-probabilities. Optional.
	Confidence driving.ConfidenceValidator

	// Document browses the knowledge base. Optional.
	Document driving.DocumentService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Augmentation == nil {
		return ErrMissingAugmentationService
	}
	return nil
}
