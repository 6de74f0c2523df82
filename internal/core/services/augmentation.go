package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/ports/driven"
	"github.com/logos-health/logos/internal/core/ports/driving"
	"github.com/logos-health/logos/internal/logger"
)

// Ensure AugmentationService implements the interface.
var _ driving.AugmentationService = (*AugmentationService)(nil)

// Confidence stages reported in errors and metrics.
const (
	StageMedicalContext = "medical_context"
	StageRelevance      = "relevance"
	StageGeneration     = "generation"
)

// minRelevanceScore is the evaluator score below which a document is rejected.
const minRelevanceScore = 0.5

// uncheckedScore is recorded when the evaluator call fails.
const uncheckedScore = 0.5

// AugmentationService extracts medical context, retrieves guideline chunks
// and optionally re-validates them per document.
type AugmentationService struct {
	reasoner  *MedicalReasoner
	embedder  driven.EmbeddingService
	vectors   driven.VectorStore
	validator driving.ConfidenceValidator
	metrics   driven.Metrics

	topK           int
	minScore       float64
	maxConcurrency int
}

// AugmentationOption configures an AugmentationService.
type AugmentationOption func(*AugmentationService)

// WithMetrics records retrieval and confidence metrics.
func WithMetrics(m driven.Metrics) AugmentationOption {
	return func(s *AugmentationService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewAugmentationService creates an augmentation service.
func NewAugmentationService(
	reasoner *MedicalReasoner,
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	validator driving.ConfidenceValidator,
	rag domain.RAGSettings,
	opts ...AugmentationOption,
) *AugmentationService {
	s := &AugmentationService{
		reasoner:       reasoner,
		embedder:       embedder,
		vectors:        vectors,
		validator:      validator,
		metrics:        driven.NopMetrics{},
		topK:           rag.TopK,
		minScore:       rag.MinScore,
		maxConcurrency: rag.MaxConcurrency,
	}
	if s.topK <= 0 {
		s.topK = 5
	}
	if s.maxConcurrency <= 0 {
		s.maxConcurrency = 5
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Augment extracts medical context from the request, gates it and retrieves chunks.
func (s *AugmentationService) Augment(ctx context.Context, req *domain.PatientRequest) (*domain.AugmentationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.augment(ctx, req)
}

// AugmentText is Augment over free text. Text that decodes as a valid JSON
// request is treated as a structured request.
func (s *AugmentationService) AugmentText(ctx context.Context, text string) (*domain.AugmentationResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrInvalidInput
	}

	var req domain.PatientRequest
	if err := json.Unmarshal([]byte(text), &req); err == nil && req.Validate() == nil {
		logger.Debug("Free text decoded as a structured request")
		return s.augment(ctx, &req)
	}
	return s.augment(ctx, map[string]string{"text": text})
}

// augment runs context extraction, the two gates and retrieval.
func (s *AugmentationService) augment(ctx context.Context, payload any) (*domain.AugmentationResult, error) {
	if s.reasoner == nil {
		return nil, domain.ErrLLMUnavailable
	}
	start := time.Now()
	logger.Section("Augmentation")

	reading, err := s.reasoner.ExtractContext(ctx, payload)
	if err != nil {
		s.metrics.ObserveProviderError("medical_context")
		return nil, err
	}
	mc := reading.Context

	if !mc.IsMedical {
		logger.Warn("Request identified as non-medical: %s", mc.Reason)
		return nil, &domain.NotMedicalError{Context: &mc, RawOutput: reading.Raw}
	}
	logger.Info("Medical context extracted with %d queries", len(mc.Queries))

	conf := s.validator.Validate(reading.LogProbs, reading.Usage)
	s.metrics.ObserveConfidence(StageMedicalContext, conf.Score, conf.IsValid)
	if !conf.IsValid {
		logger.Warn("Context confidence too low (score %.2f, level %s)", conf.Score, conf.Level)
		return nil, &domain.ConfidenceError{Stage: StageMedicalContext, Result: conf}
	}
	logger.Debug("Context confidence %.2f (%s)", conf.Score, conf.Level)

	retrieved, err := s.RetrieveContext(ctx, mc.Queries)
	if err != nil {
		return nil, err
	}

	retrieved.MedicalContext = &mc
	retrieved.ContextConfidence = &conf
	retrieved.ContextUsage = reading.Usage
	retrieved.Duration = time.Since(start)

	logger.Info("Augmentation finished in %s: %d queries, %d unique chunks",
		retrieved.Duration.Round(time.Millisecond), len(retrieved.RetrievalResults), len(retrieved.UniqueChunks()))
	return retrieved, nil
}

// RetrieveContext embeds and searches every query. Queries whose search
// fails are omitted; an empty list yields an empty result.
func (s *AugmentationService) RetrieveContext(ctx context.Context, queries []string) (*domain.AugmentationResult, error) {
	start := time.Now()
	queries = cleanQueries(queries)
	result := &domain.AugmentationResult{RetrievalResults: []domain.RetrievalResult{}}
	if len(queries) == 0 {
		return result, nil
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.vectors == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}

	logger.Debug("Embedding %d queries", len(queries))
	embeddings, batchErr := s.embedder.EmbedMany(ctx, queries)
	if batchErr != nil || len(embeddings) != len(queries) {
		logger.Warn("Batch embedding failed, embedding queries one by one: %v", batchErr)
		embeddings = nil
	}

	var (
		mu      sync.Mutex
		results []domain.RetrievalResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)

	for i, query := range queries {
		var precomputed *driven.Embedding
		if embeddings != nil {
			precomputed = &embeddings[i]
		}
		g.Go(func() error {
			rr, err := s.searchQuery(gctx, query, precomputed)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn("Retrieval for %q failed: %v", query, err)
				s.metrics.ObserveProviderError("retrieval")
				return nil
			}
			mu.Lock()
			results = append(results, *rr)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sortResults(results)
	for _, r := range results {
		result.EmbeddingUsage = result.EmbeddingUsage.Add(r.EmbeddingUsage)
	}
	if results != nil {
		result.RetrievalResults = results
	}
	result.GlobalAverageScore = domain.AverageScore(result.UniqueChunks())
	result.Duration = time.Since(start)

	logger.Info("Retrieved %d chunks for %d/%d queries", result.TotalChunksFound(), len(results), len(queries))
	return result, nil
}

// searchQuery embeds one query when no vector was precomputed and searches it.
func (s *AugmentationService) searchQuery(ctx context.Context, query string, emb *driven.Embedding) (*domain.RetrievalResult, error) {
	start := time.Now()
	if emb == nil {
		e, err := s.embedder.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		emb = &e
	}

	hits, err := s.vectors.Search(ctx, emb.Vector, s.topK, s.minScore)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	chunks := make([]domain.KnowledgeChunk, 0, len(hits))
	for _, h := range hits {
		chunks = append(chunks, domain.KnowledgeChunk{
			ChunkID:             h.ID,
			DocumentID:          h.Payload.DocumentID,
			DocumentTitle:       h.Payload.DocumentTitle,
			DocumentDescription: h.Payload.DocumentDescription,
			FileName:            h.Payload.FileName,
			PageNumber:          h.Payload.PageNumber,
			Content:             h.Payload.Text,
			Score:               h.Score,
		})
	}
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Score > chunks[j].Score })

	d := time.Since(start)
	s.metrics.ObserveRetrieval(d, len(chunks))
	logger.Debug("Query %q: %d chunks in %s", query, len(chunks), d.Round(time.Millisecond))

	return &domain.RetrievalResult{
		Query:          query,
		EmbeddingUsage: emb.Usage,
		FoundChunks:    chunks,
		Duration:       d,
	}, nil
}

// AugmentValidated runs Augment and then asks the evaluator, per query and
// per document, which chunks really answer the query.
func (s *AugmentationService) AugmentValidated(ctx context.Context, req *domain.PatientRequest) (*domain.AugmentationResult, error) {
	raw, err := s.Augment(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.validateRelevance(ctx, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// validateRelevance filters result's chunks in place.
func (s *AugmentationService) validateRelevance(ctx context.Context, result *domain.AugmentationResult) error {
	start := time.Now()
	logger.Section("Relevance Validation")

	validated := make([]domain.RetrievalResult, len(result.RetrievalResults))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)

	for i, rr := range result.RetrievalResults {
		g.Go(func() error {
			validated[i] = s.validateQuery(gctx, rr)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	result.RetrievalResults = validated
	result.RelevanceUsage = domain.TokenUsage{}
	for _, rr := range validated {
		for _, ev := range rr.RelevanceEvaluations {
			result.RelevanceUsage = result.RelevanceUsage.Add(ev.Usage)
		}
	}
	result.ValidationDuration = time.Since(start)
	result.Duration += result.ValidationDuration
	result.GlobalAverageScore = domain.AverageScore(result.UniqueChunks())

	logger.Info("Relevance validation finished in %s: %d chunks kept",
		result.ValidationDuration.Round(time.Millisecond), result.TotalChunksFound())
	return nil
}

// validateQuery evaluates every document group of one query in order.
func (s *AugmentationService) validateQuery(ctx context.Context, rr domain.RetrievalResult) domain.RetrievalResult {
	if len(rr.FoundChunks) == 0 {
		return rr
	}

	kept := []domain.KnowledgeChunk{}
	var evaluations []domain.RelevanceEvaluation
	for _, group := range groupByDocument(rr.FoundChunks) {
		if ctx.Err() != nil {
			break
		}
		chunks, ev := s.evaluateGroup(ctx, rr.Query, group)
		kept = append(kept, chunks...)
		evaluations = append(evaluations, ev)
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })
	rr.FoundChunks = kept
	rr.RelevanceEvaluations = evaluations
	return rr
}

// evaluateGroup returns the chunks of one document group that survive evaluation.
func (s *AugmentationService) evaluateGroup(ctx context.Context, query string, group []domain.KnowledgeChunk) ([]domain.KnowledgeChunk, domain.RelevanceEvaluation) {
	docID := group[0].DocumentID

	reading, err := s.reasoner.EvaluateRelevance(ctx, query, group)
	if err != nil {
		logger.Warn("Relevance check for document %s failed, keeping its chunks: %v", docID, err)
		s.metrics.ObserveProviderError("relevance")
		ids := make([]string, len(group))
		for i, c := range group {
			ids[i] = c.ChunkID
		}
		return group, domain.RelevanceEvaluation{
			DocumentID:       docID,
			RelevanceLevel:   domain.RelevanceUnchecked,
			Score:            uncheckedScore,
			RelevantChunkIDs: ids,
			Reasoning:        fmt.Sprintf("relevance check failed: %v", err),
		}
	}

	v := reading.Verdict
	conf := s.validator.Validate(reading.LogProbs, reading.Usage)
	s.metrics.ObserveConfidence(StageRelevance, conf.Score, conf.IsValid)

	ev := domain.RelevanceEvaluation{
		DocumentID:       docID,
		RelevanceLevel:   v.RelevanceLevel,
		Score:            v.Score,
		RelevantChunkIDs: v.RelevantChunkIDs,
		Reasoning:        strings.TrimSpace(conf.Summary() + " " + v.Reasoning),
		Confidence:       conf,
		Usage:            reading.Usage,
	}

	switch {
	case !conf.IsValid:
		logger.Warn("Relevance verdict for document %s not trusted (score %.2f), rejecting", docID, conf.Score)
		return nil, ev
	case v.Score < minRelevanceScore:
		logger.Debug("Document %s rejected for %q with score %.2f", docID, query, v.Score)
		return nil, ev
	}

	wanted := make(map[string]bool, len(v.RelevantChunkIDs))
	for _, id := range v.RelevantChunkIDs {
		wanted[id] = true
	}
	var kept []domain.KnowledgeChunk
	for _, c := range group {
		if wanted[c.ChunkID] {
			kept = append(kept, c)
		}
	}
	logger.Debug("Kept %d/%d chunks of document %s for %q", len(kept), len(group), docID, query)
	return kept, ev
}

// groupByDocument groups chunks by document id in first-seen order.
func groupByDocument(chunks []domain.KnowledgeChunk) [][]domain.KnowledgeChunk {
	index := make(map[string]int)
	var groups [][]domain.KnowledgeChunk
	for _, c := range chunks {
		i, ok := index[c.DocumentID]
		if !ok {
			i = len(groups)
			index[c.DocumentID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], c)
	}
	return groups
}

// cleanQueries trims queries and drops blanks and duplicates.
func cleanQueries(queries []string) []string {
	seen := make(map[string]bool, len(queries))
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		out = append(out, q)
	}
	return out
}

// sortResults orders results by best chunk score, then by query.
func sortResults(results []domain.RetrievalResult) {
	best := func(r domain.RetrievalResult) float64 {
		if len(r.FoundChunks) == 0 {
			return 0
		}
		return r.FoundChunks[0].Score
	}
	sort.SliceStable(results, func(i, j int) bool {
		bi, bj := best(results[i]), best(results[j])
		if bi != bj {
			return bi > bj
		}
		return results[i].Query < results[j].Query
	})
}
