package mcp

import (
	"context"

	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/ports/driving"
)

// mockAugmentationService is a mock implementation of driving.AugmentationService.
type mockAugmentationService struct {
	result *domain.AugmentationResult
	err    error
	called string
}

func (m *mockAugmentationService) RetrieveContext(_ context.Context, _ []string) (*domain.AugmentationResult, error) {
	m.called = "retrieve"
	return m.result, m.err
}

func (m *mockAugmentationService) Augment(_ context.Context, _ *domain.PatientRequest) (*domain.AugmentationResult, error) {
	m.called = "augment"
	return m.result, m.err
}

func (m *mockAugmentationService) AugmentValidated(_ context.Context, _ *domain.PatientRequest) (*domain.AugmentationResult, error) {
	m.called = "validated"
	return m.result, m.err
}

func (m *mockAugmentationService) AugmentText(_ context.Context, _ string) (*domain.AugmentationResult, error) {
	m.called = "text"
	return m.result, m.err
}

// mockGenerationService is a mock implementation of driving.GenerationService.
type mockGenerationService struct {
	response *domain.RagResponse
	err      error
}

func (m *mockGenerationService) GenerateResponse(_ context.Context, _ *domain.PatientRequest) (*domain.RagResponse, error) {
	return m.response, m.err
}

// mockIngestionService is a mock implementation of driving.IngestionService.
type mockIngestionService struct {
	upload domain.Upload
}

func (m *mockIngestionService) IngestFile(_ context.Context, upload domain.Upload) domain.IngestionResult {
	m.upload = upload
	return domain.IngestionResult{FileName: upload.FileName, DocumentID: "doc-new", Success: true, Chunks: 3}
}

func (m *mockIngestionService) IngestFiles(ctx context.Context, uploads []domain.Upload) domain.BulkIngestionResult {
	var bulk domain.BulkIngestionResult
	for _, u := range uploads {
		bulk.Add(m.IngestFile(ctx, u))
	}
	return bulk
}

func (m *mockIngestionService) Reconcile(_ context.Context) (domain.BulkIngestionResult, error) {
	return domain.BulkIngestionResult{}, nil
}

func (m *mockIngestionService) ListDocuments(_ context.Context) ([]domain.DocumentSummary, error) {
	return nil, nil
}

// mockConfidenceValidator is a mock implementation of driving.ConfidenceValidator.
type mockConfidenceValidator struct {
	tokens []domain.LogProbToken
}

func (m *mockConfidenceValidator) Validate(tokens []domain.LogProbToken, _ domain.TokenUsage) domain.ConfidenceValidationResult {
	m.tokens = tokens
	return domain.ConfidenceValidationResult{
		Score:       0.42,
		Level:       domain.ConfidenceLow,
		Uncertainty: domain.UncertaintyDiffuse,
		WeakTokens:  []domain.LogProbToken{{Token: "maybe", LogProb: -2.3}},
		Penalties:   []string{"high_perplexity"},
	}
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.DocumentSummary
	document  *domain.Document
	content   string
	details   *driving.DocumentDetails
	err       error
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.DocumentSummary, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) GetContent(_ context.Context, _ string) (string, error) {
	return m.content, m.err
}

func (m *mockDocumentService) GetDetails(_ context.Context, _ string) (*driving.DocumentDetails, error) {
	return m.details, m.err
}
