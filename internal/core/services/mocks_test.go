package services

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/ports/driven"
)

// --- Mock implementations ---

// replyFunc answers one structured completion.
type replyFunc func(req driven.CompletionRequest) (string, error)

// reply answers with v encoded as JSON.
func reply(v any) replyFunc {
	return func(driven.CompletionRequest) (string, error) {
		data, err := json.Marshal(v)
		return string(data), err
	}
}

// fail answers with err.
func fail(err error) replyFunc {
	return func(driven.CompletionRequest) (string, error) {
		return "", err
	}
}

// mockLLM implements driven.LLMService, answering by response schema name.
type mockLLM struct {
	mu       sync.Mutex
	replies  map[string]replyFunc
	logProbs map[string]float64
	noProbs  bool
	calls    []driven.CompletionRequest
}

func newMockLLM() *mockLLM {
	return &mockLLM{
		replies:  make(map[string]replyFunc),
		logProbs: make(map[string]float64),
	}
}

func (m *mockLLM) on(schema string, fn replyFunc) *mockLLM {
	m.replies[schema] = fn
	return m
}

func (m *mockLLM) Complete(_ context.Context, req driven.CompletionRequest) (*driven.Completion, error) {
	name := ""
	if req.Options.ResponseSchema != nil {
		name = req.Options.ResponseSchema.Name
	}

	m.mu.Lock()
	m.calls = append(m.calls, req)
	fn, ok := m.replies[name]
	lp, custom := m.logProbs[name]
	m.mu.Unlock()

	if !ok {
		return nil, errors.New("no reply for " + name)
	}
	content, err := fn(req)
	if err != nil {
		return nil, err
	}

	if !custom {
		lp = -0.01
	}
	var tokens []domain.LogProbToken
	if req.Options.LogProbs && !m.noProbs {
		tokens = make([]domain.LogProbToken, 40)
		for i := range tokens {
			tokens[i] = domain.LogProbToken{Token: "w" + strconv.Itoa(i), LogProb: lp}
		}
	}

	model := req.Options.Model
	if model == "" {
		model = "mock-model"
	}
	return &driven.Completion{
		Content:  content,
		Model:    model,
		Usage:    domain.TokenUsage{InputTokens: 10, TotalTokens: 15},
		LogProbs: tokens,
	}, nil
}

func (m *mockLLM) callsFor(schema string) []driven.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []driven.CompletionRequest
	for _, c := range m.calls {
		if c.Options.ResponseSchema != nil && c.Options.ResponseSchema.Name == schema {
			out = append(out, c)
		}
	}
	return out
}

func (m *mockLLM) ModelName() string            { return "mock-model" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// mockEmbedder implements driven.EmbeddingService. Each text embeds to a
// one-dimensional vector looked up in keys, so the vector store mock can
// route searches per query.
type mockEmbedder struct {
	mu        sync.Mutex
	keys      map[string]float32
	failTexts map[string]bool
	batchErr  error
	embedded  int
	batches   int
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{keys: make(map[string]float32), failTexts: make(map[string]bool)}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (driven.Embedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTexts[text] {
		return driven.Embedding{}, errors.New("embedding failed")
	}
	m.embedded++
	return driven.Embedding{
		Vector: []float32{m.keys[text]},
		Usage:  domain.TokenUsage{InputTokens: 2, TotalTokens: 2},
	}, nil
}

func (m *mockEmbedder) EmbedMany(ctx context.Context, texts []string) ([]driven.Embedding, error) {
	m.mu.Lock()
	m.batches++
	batchErr := m.batchErr
	m.mu.Unlock()
	if batchErr != nil {
		return nil, batchErr
	}
	out := make([]driven.Embedding, len(texts))
	for i, t := range texts {
		e, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return 1 }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockVectorStore implements driven.VectorStore. Searches are answered
// from hits keyed by the first vector component.
type mockVectorStore struct {
	mu         sync.Mutex
	hits       map[float32][]driven.VectorHit
	searchErrs map[float32]error
	upsertErr  error
	upserted   []driven.VectorRecord
	upserts    int
	ensured    int
}

func newMockVectorStore() *mockVectorStore {
	return &mockVectorStore{
		hits:       make(map[float32][]driven.VectorHit),
		searchErrs: make(map[float32]error),
	}
}

func (m *mockVectorStore) EnsureCollection(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensured++
	return nil
}

func (m *mockVectorStore) Upsert(_ context.Context, records []driven.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts++
	m.upserted = append(m.upserted, records...)
	return nil
}

func (m *mockVectorStore) Search(_ context.Context, query []float32, topK int, _ float64) ([]driven.VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := query[0]
	if err := m.searchErrs[key]; err != nil {
		return nil, err
	}
	hits := m.hits[key]
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *mockVectorStore) Close() error { return nil }

func (m *mockVectorStore) upsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

// mockNormalisers implements driven.NormaliserRegistry. Pages are split
// on form feeds; data starting with "%CORRUPT" fails to parse.
type mockNormalisers struct{}

func (mockNormalisers) Normalise(_ context.Context, _ string, data []byte) ([]domain.Page, error) {
	text := string(data)
	if strings.HasPrefix(text, "%CORRUPT") {
		return nil, errors.New("malformed xref table")
	}
	var pages []domain.Page
	for i, p := range strings.Split(text, "\f") {
		pages = append(pages, domain.Page{Number: i + 1, Text: p})
	}
	return pages, nil
}

func (mockNormalisers) Register(driven.Normaliser) {}

func (mockNormalisers) SupportedMIMETypes() []string { return []string{"text/plain"} }

// recordingMetrics implements driven.Metrics and keeps what it saw.
type recordingMetrics struct {
	mu          sync.Mutex
	confidence  map[string]int
	ingestions  map[string]int
	retrievals  int
	providerErr map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		confidence:  make(map[string]int),
		ingestions:  make(map[string]int),
		providerErr: make(map[string]int),
	}
}

func (m *recordingMetrics) ObserveConfidence(stage string, _ float64, _ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confidence[stage]++
}

func (m *recordingMetrics) ObserveIngestion(outcome string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingestions[outcome]++
}

func (m *recordingMetrics) ObserveRetrieval(time.Duration, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retrievals++
}

func (m *recordingMetrics) ObserveProviderError(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providerErr[op]++
}

// mockPromptStore implements driven.PromptStore.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// --- Fixtures ---

func testLLMSettings() domain.LLMSettings {
	return domain.LLMSettings{
		Provider:  domain.AIProviderOpenAI,
		Model:     "mock-model",
		Context:   domain.ModelProfile{Model: "context-model", MaxTokens: 512, TopLogProbs: 5},
		Relevance: domain.ModelProfile{Model: "relevance-model", MaxTokens: 512, TopLogProbs: 5},
		Fast:      domain.ModelProfile{Model: "fast-model", MaxTokens: 2048, TopLogProbs: 5},
		Deep:      domain.ModelProfile{Model: "deep-model", MaxTokens: 8192},
	}
}

func testRAGSettings() domain.RAGSettings {
	return domain.RAGSettings{
		ChunkSizeWords:     300,
		ChunkOverlapWords:  50,
		MinScore:           0.5,
		TopK:               5,
		MaxConcurrency:     3,
		EmbeddingBatchSize: 2,
	}
}

func medicalContext(queries ...string) domain.MedicalContext {
	return domain.MedicalContext{
		IsMedical: true,
		Reason:    "Possible stage 1 hypertension",
		Queries:   queries,
	}
}

func hit(id, docID string, page int, score float64) driven.VectorHit {
	return driven.VectorHit{
		ID:    id,
		Score: score,
		Payload: driven.ChunkPayload{
			DocumentID:    docID,
			DocumentTitle: "Guideline " + docID,
			FileName:      docID + ".pdf",
			PageNumber:    page,
			Text:          "text of " + id,
		},
	}
}

func patientRequest() *domain.PatientRequest {
	return &domain.PatientRequest{
		SessionID: "s-1",
		Patient:   domain.Patient{Gender: "female", Age: 54},
		Analyses: []domain.Analysis{{
			Name: "Blood pressure",
			Indicators: []domain.Indicator{
				{Name: "Systolic", Value: "148", Unit: "mmHg", ReferenceRange: "<120"},
			},
		}},
	}
}
