package cli

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/ports/driving"
)

var testTime = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type mockDocumentService struct {
	err error
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.DocumentSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []domain.DocumentSummary{
		{ID: "doc-1", Title: "Hypertension Guideline", FileName: "htn.pdf", Size: 2048, ChunkCount: 12, Processed: true, UploadedAt: testTime},
		{ID: "doc-2", Title: "Diabetes Guideline", FileName: "dm.md", Size: 512, ChunkCount: 3, UploadedAt: testTime},
	}, nil
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Document{
		ID:         id,
		Title:      "Hypertension Guideline",
		FileName:   "htn.pdf",
		UploadedAt: testTime,
		Chunks: []domain.Chunk{
			{ID: "chunk-1", DocumentID: id, PageNumber: 1, Position: 0, Content: "Blood pressure\nabove 140/90", TokenCount: 6},
		},
	}, nil
}

func (m *mockDocumentService) GetContent(_ context.Context, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "Blood pressure above 140/90", nil
}

func (m *mockDocumentService) GetDetails(_ context.Context, id string) (*driving.DocumentDetails, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &driving.DocumentDetails{
		ID: id, Title: "Hypertension Guideline", FileName: "htn.pdf", Size: 2048,
		Pages: 4, ChunkCount: 12, TotalWords: 900, TotalTokens: 1200, Processed: true, UploadedAt: testTime,
	}, nil
}

type mockSettingsService struct {
	settings    domain.AppSettings
	set         map[string]string
	setErr      error
	validateErr error
}

func newMockSettingsService() *mockSettingsService {
	s := domain.DefaultAppSettings()
	s.Embedding.APIKey = "sk-embedding-test-key"
	s.LLM.APIKey = "sk-llm-test-key"
	return &mockSettingsService{settings: s, set: map[string]string{}}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

type mockConfigValidator struct {
	err error
}

func (m *mockConfigValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error { return m.err }
func (m *mockConfigValidator) ValidateLLM(_ *domain.LLMSettings) error             { return m.err }

type mockConfidenceValidator struct {
	tokens []domain.LogProbToken
}

func (m *mockConfidenceValidator) Validate(tokens []domain.LogProbToken, usage domain.TokenUsage) domain.ConfidenceValidationResult {
	m.tokens = tokens
	return domain.ConfidenceValidationResult{
		Score:       0.91,
		IsValid:     true,
		Level:       domain.ConfidenceHigh,
		Uncertainty: domain.UncertaintyNone,
		Metrics:     domain.ConfidenceMetrics{TokenCount: len(tokens), Perplexity: 1.1},
		Usage:       usage,
	}
}

type mockIngestionService struct {
	mu         sync.Mutex
	uploads    []domain.Upload
	reconciled bool
}

func (m *mockIngestionService) uploadsSnapshot() []domain.Upload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Upload(nil), m.uploads...)
}

func (m *mockIngestionService) IngestFile(ctx context.Context, upload domain.Upload) domain.IngestionResult {
	bulk := m.IngestFiles(ctx, []domain.Upload{upload})
	return bulk.Results[0]
}

func (m *mockIngestionService) IngestFiles(_ context.Context, uploads []domain.Upload) domain.BulkIngestionResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	var bulk domain.BulkIngestionResult
	for _, u := range uploads {
		m.uploads = append(m.uploads, u)
		if u.FileName == "broken.pdf" {
			bulk.Add(domain.IngestionResult{FileName: u.FileName, Message: "could not extract text from document"})
			continue
		}
		bulk.Add(domain.IngestionResult{FileName: u.FileName, DocumentID: "doc-" + u.FileName, Success: true, Chunks: 2, Words: 40})
	}
	return bulk
}

func (m *mockIngestionService) Reconcile(_ context.Context) (domain.BulkIngestionResult, error) {
	m.reconciled = true
	var bulk domain.BulkIngestionResult
	bulk.Add(domain.IngestionResult{FileName: "pending.pdf", DocumentID: "doc-p", Success: true, Resumed: true, Chunks: 5})
	return bulk, nil
}

func (m *mockIngestionService) ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error) {
	return (&mockDocumentService{}).List(ctx)
}

func sampleAugmentation() *domain.AugmentationResult {
	return &domain.AugmentationResult{
		MedicalContext: &domain.MedicalContext{IsMedical: true, Reason: "elevated glucose", Queries: []string{"diabetes diagnosis"}},
		ContextConfidence: &domain.ConfidenceValidationResult{
			Score: 0.88, IsValid: true, Level: domain.ConfidenceHigh,
		},
		RetrievalResults: []domain.RetrievalResult{{
			Query: "diabetes diagnosis",
			FoundChunks: []domain.KnowledgeChunk{
				{ChunkID: "chunk-1", DocumentID: "doc-2", DocumentTitle: "Diabetes Guideline", PageNumber: 3, Score: 0.82},
			},
		}},
		GlobalAverageScore: 0.82,
	}
}

type mockAugmentationService struct {
	request *domain.PatientRequest
	text    string
	queries []string
	err     error
}

func (m *mockAugmentationService) RetrieveContext(_ context.Context, queries []string) (*domain.AugmentationResult, error) {
	m.queries = queries
	if m.err != nil {
		return nil, m.err
	}
	return sampleAugmentation(), nil
}

func (m *mockAugmentationService) Augment(_ context.Context, req *domain.PatientRequest) (*domain.AugmentationResult, error) {
	m.request = req
	if m.err != nil {
		return nil, m.err
	}
	return sampleAugmentation(), nil
}

func (m *mockAugmentationService) AugmentValidated(ctx context.Context, req *domain.PatientRequest) (*domain.AugmentationResult, error) {
	result, err := m.Augment(ctx, req)
	if err != nil {
		return nil, err
	}
	result.RetrievalResults[0].RelevanceEvaluations = []domain.RelevanceEvaluation{
		{DocumentID: "doc-2", RelevanceLevel: "High", Score: 0.9},
	}
	return result, nil
}

func (m *mockAugmentationService) AugmentText(_ context.Context, text string) (*domain.AugmentationResult, error) {
	m.text = text
	if m.err != nil {
		return nil, m.err
	}
	return sampleAugmentation(), nil
}

type mockGenerationService struct {
	request *domain.PatientRequest
	err     error
}

func (m *mockGenerationService) GenerateResponse(_ context.Context, req *domain.PatientRequest) (*domain.RagResponse, error) {
	m.request = req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.RagResponse{
		Analysis: &domain.MedicalAnalysis{
			Summary:         domain.AnalysisSummary{Status: "Attention", ShortConclusion: "Possible type 2 diabetes"},
			FormattedReport: "## Report\nFasting glucose is elevated.",
		},
		Augmentation: sampleAugmentation(),
		GenerationConfidence: &domain.ConfidenceValidationResult{
			Score: 0.74, IsValid: true, Level: domain.ConfidenceMedium, Penalties: []string{"focal_uncertainty"},
		},
		Model: "gpt-4o-mini",
	}, nil
}

type mockScheduler struct{}

func (m *mockScheduler) Start(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
func (m *mockScheduler) Stop() error                   { return nil }
func (m *mockScheduler) Tasks() []domain.ScheduledTask { return nil }

type testServices struct {
	settings     *mockSettingsService
	documents    *mockDocumentService
	confidence   *mockConfidenceValidator
	validator    *mockConfigValidator
	ingestion    *mockIngestionService
	augmentation *mockAugmentationService
	generation   *mockGenerationService
}

// setupTestServices installs mocks for every port and returns them with
// a cleanup that restores the previous globals.
func setupTestServices() (*testServices, func()) {
	oldSettings, oldDocs, oldConf, oldValidator, oldLoader :=
		settingsService, documentService, confidenceValidator, configValidator, pipelineLoader

	ts := &testServices{
		settings:     newMockSettingsService(),
		documents:    &mockDocumentService{},
		confidence:   &mockConfidenceValidator{},
		validator:    &mockConfigValidator{},
		ingestion:    &mockIngestionService{},
		augmentation: &mockAugmentationService{},
		generation:   &mockGenerationService{},
	}
	SetServices(Services{
		Settings:        ts.settings,
		Documents:       ts.documents,
		Confidence:      ts.confidence,
		ConfigValidator: ts.validator,
		Pipeline: func(_ context.Context) (*Pipeline, error) {
			return &Pipeline{
				Ingestion:    ts.ingestion,
				Augmentation: ts.augmentation,
				Generation:   ts.generation,
				Scheduler:    &mockScheduler{},
			}, nil
		},
	})

	return ts, func() {
		SetServices(Services{
			Settings:        oldSettings,
			Documents:       oldDocs,
			Confidence:      oldConf,
			ConfigValidator: oldValidator,
			Pipeline:        oldLoader,
		})
	}
}

// failingPipeline makes every pipeline command fail to start.
func failingPipeline() func() {
	old := pipelineLoader
	pipelineLoader = func(_ context.Context) (*Pipeline, error) {
		return nil, errors.New("embedding service unavailable: provider \"openai\" is not configured")
	}
	resetPipeline()
	return func() {
		pipelineLoader = old
		resetPipeline()
	}
}
