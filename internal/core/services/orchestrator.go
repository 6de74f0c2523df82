package services

import (
	"context"
	"fmt"
	"time"

	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/ports/driven"
	"github.com/logos-health/logos/internal/core/ports/driving"
	"github.com/logos-health/logos/internal/logger"
)

// Ensure RagOrchestrator implements the interface.
var _ driving.GenerationService = (*RagOrchestrator)(nil)

// RagOrchestrator augments a request and generates the final analysis.
type RagOrchestrator struct {
	augmenter driving.AugmentationService
	reasoner  *MedicalReasoner
	validator driving.ConfidenceValidator
	metrics   driven.Metrics

	fast              domain.ModelProfile
	deep              domain.ModelProfile
	validateRelevance bool
}

// OrchestratorOption configures a RagOrchestrator.
type OrchestratorOption func(*RagOrchestrator)

// WithOrchestratorMetrics records generation confidence.
func WithOrchestratorMetrics(m driven.Metrics) OrchestratorOption {
	return func(o *RagOrchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithRelevanceValidation makes GenerateResponse use AugmentValidated.
func WithRelevanceValidation(enabled bool) OrchestratorOption {
	return func(o *RagOrchestrator) {
		o.validateRelevance = enabled
	}
}

// NewRagOrchestrator creates an orchestrator. fast and deep are the
// generation profiles of the two model paths.
func NewRagOrchestrator(
	augmenter driving.AugmentationService,
	reasoner *MedicalReasoner,
	validator driving.ConfidenceValidator,
	llm domain.LLMSettings,
	opts ...OrchestratorOption,
) *RagOrchestrator {
	o := &RagOrchestrator{
		augmenter: augmenter,
		reasoner:  reasoner,
		validator: validator,
		metrics:   driven.NopMetrics{},
		fast:      llm.Fast,
		deep:      llm.Deep,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GenerateResponse runs augmentation, picks the model path from the
// extracted complexity flag and generates the analysis. Generation
// confidence is only validated on the fast path and never fails the call.
func (o *RagOrchestrator) GenerateResponse(ctx context.Context, req *domain.PatientRequest) (*domain.RagResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	var (
		aug *domain.AugmentationResult
		err error
	)
	if o.validateRelevance {
		aug, err = o.augmenter.AugmentValidated(ctx, req)
	} else {
		aug, err = o.augmenter.Augment(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	augDuration := time.Since(start)

	deep := aug.MedicalContext != nil && aug.MedicalContext.RequiresComplexAnalysis
	profile := o.fast
	if deep {
		profile = o.deep
	}

	logger.Section("Generation")
	logger.Info("Generating analysis with %s path (model %q)", pathName(deep), profile.Model)

	genStart := time.Now()
	reading, err := o.reasoner.Analyze(ctx, req, CleanHypothesis(aug.MedicalContext), aug.UniqueChunks(), profile, !deep)
	if err != nil {
		o.metrics.ObserveProviderError("generation")
		return nil, fmt.Errorf("generate response: %w", err)
	}
	genDuration := time.Since(genStart)

	resp := &domain.RagResponse{
		Analysis:      &reading.Analysis,
		Augmentation:  aug,
		DeepReasoning: deep,
		Model:         reading.Model,
		Timings: domain.StageTimings{
			Augmentation: augDuration,
			Generation:   genDuration,
			Total:        time.Since(start),
		},
		Usage: domain.StageUsage{
			Augmentation: aug.TotalUsage(),
			Generation:   reading.Usage,
			Total:        aug.TotalUsage().Add(reading.Usage),
		},
	}

	if !deep {
		conf := o.validator.Validate(reading.LogProbs, reading.Usage)
		o.metrics.ObserveConfidence(StageGeneration, conf.Score, conf.IsValid)
		resp.GenerationConfidence = &conf
		if !conf.IsValid {
			logger.Warn("Generated analysis has low confidence (score %.2f, level %s)", conf.Score, conf.Level)
		}
	}

	logger.Info("Response generated in %s (augmentation %s, generation %s)",
		resp.Timings.Total.Round(time.Millisecond),
		augDuration.Round(time.Millisecond),
		genDuration.Round(time.Millisecond))
	return resp, nil
}

func pathName(deep bool) string {
	if deep {
		return "deep reasoning"
	}
	return "fast"
}
