package driving

import (
	"context"

	"github.com/logos-health/logos/internal/core/domain"
)

// AugmentationService turns a request into a ranked context bundle.
//
// Augment and AugmentValidated fail with *domain.NotMedicalError or
// *domain.ConfidenceError when a gate rejects the request.
type AugmentationService interface {
	// RetrieveContext embeds and searches every query. An empty list
	// returns an empty result.
	RetrieveContext(ctx context.Context, queries []string) (*domain.AugmentationResult, error)

	// Augment extracts medical context, gates it and retrieves chunks.
	Augment(ctx context.Context, req *domain.PatientRequest) (*domain.AugmentationResult, error)

	// AugmentValidated is Augment followed by per-document relevance re-validation.
	AugmentValidated(ctx context.Context, req *domain.PatientRequest) (*domain.AugmentationResult, error)

	// AugmentText is Augment over free text instead of a structured record.
	AugmentText(ctx context.Context, text string) (*domain.AugmentationResult, error)
}

// GenerationService produces the end-user analysis.
type GenerationService interface {
	// GenerateResponse augments the request and generates the analysis.
	GenerateResponse(ctx context.Context, req *domain.PatientRequest) (*domain.RagResponse, error)
}

// ConfidenceValidator scores token log-probabilities.
type ConfidenceValidator interface {
	Validate(tokens []domain.LogProbToken, usage domain.TokenUsage) domain.ConfidenceValidationResult
}
