package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/ports/driven"
	"github.com/logos-health/logos/internal/core/ports/driving"
	"github.com/logos-health/logos/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// Ingestion outcomes reported to metrics.
const (
	OutcomeIndexed = "indexed"
	OutcomeExists  = "exists"
	OutcomeResumed = "resumed"
	OutcomeFailed  = "failed"
)

// IngestionService parses uploads, chunks them, embeds the chunks and
// indexes them in the vector store.
//
// Document metadata is saved unprocessed before any vector is written and
// marked processed after the upsert succeeds. A crash in between leaves an
// unprocessed document that the next IngestFile of the same bytes, or
// Reconcile, finishes.
type IngestionService struct {
	docs        driven.DocumentStore
	normalisers driven.NormaliserRegistry
	chunker     driven.Chunker
	embedder    driven.EmbeddingService
	vectors     driven.VectorStore
	tokens      driven.TokenCounter
	metrics     driven.Metrics

	batchSize      int
	maxConcurrency int
	now            func() time.Time

	// inflight collapses concurrent ingestions of the same bytes.
	inflight singleflight.Group
}

// IngestionOption configures an IngestionService.
type IngestionOption func(*IngestionService)

// WithTokenCounter sets the counter used for chunk token counts.
func WithTokenCounter(tc driven.TokenCounter) IngestionOption {
	return func(s *IngestionService) {
		s.tokens = tc
	}
}

// WithIngestionMetrics records ingestion outcomes.
func WithIngestionMetrics(m driven.Metrics) IngestionOption {
	return func(s *IngestionService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClock overrides the clock used for upload and index timestamps.
func WithClock(now func() time.Time) IngestionOption {
	return func(s *IngestionService) {
		s.now = now
	}
}

// NewIngestionService creates an ingestion service.
func NewIngestionService(
	docs driven.DocumentStore,
	normalisers driven.NormaliserRegistry,
	chunk driven.Chunker,
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	rag domain.RAGSettings,
	opts ...IngestionOption,
) *IngestionService {
	s := &IngestionService{
		docs:           docs,
		normalisers:    normalisers,
		chunker:        chunk,
		embedder:       embedder,
		vectors:        vectors,
		metrics:        driven.NopMetrics{},
		batchSize:      rag.EmbeddingBatchSize,
		maxConcurrency: rag.MaxConcurrency,
		now:            time.Now,
	}
	if s.batchSize <= 0 {
		s.batchSize = 64
	}
	if s.maxConcurrency <= 0 {
		s.maxConcurrency = 5
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestFile ingests one upload. Every failure is reported in the result.
// Concurrent calls with identical bytes run once; the others report the
// document as already existing.
func (s *IngestionService) IngestFile(ctx context.Context, upload domain.Upload) domain.IngestionResult {
	start := time.Now()
	result := s.ingestOnce(ctx, upload)
	result.FileName = upload.FileName
	result.Duration = time.Since(start)

	outcome := OutcomeIndexed
	switch {
	case !result.Success:
		outcome = OutcomeFailed
		logger.Warn("Ingestion of %s failed: %s", upload.FileName, result.Message)
	case result.AlreadyExists:
		outcome = OutcomeExists
	case result.Resumed:
		outcome = OutcomeResumed
	}
	s.metrics.ObserveIngestion(outcome, result.Chunks)
	return result
}

func (s *IngestionService) ingestOnce(ctx context.Context, upload domain.Upload) domain.IngestionResult {
	if len(upload.Data) == 0 {
		return s.ingest(ctx, upload)
	}

	id := DocumentID(upload.Data)
	owner := false
	v, _, _ := s.inflight.Do(id, func() (any, error) {
		owner = true
		return s.ingest(ctx, upload), nil
	})
	result := v.(domain.IngestionResult)
	if owner || !result.Success {
		return result
	}
	logger.Info("Document %s is being ingested concurrently as %s", upload.FileName, id)
	return alreadyExists(id)
}

func alreadyExists(id string) domain.IngestionResult {
	return domain.IngestionResult{
		DocumentID:    id,
		Success:       true,
		AlreadyExists: true,
		Message:       "document already exists",
	}
}

func (s *IngestionService) ingest(ctx context.Context, upload domain.Upload) domain.IngestionResult {
	logger.Section("Ingest " + upload.FileName)

	if len(upload.Data) == 0 {
		return failed(fmt.Errorf("%s is empty: %w", upload.FileName, domain.ErrInvalidInput))
	}
	if s.docs == nil {
		return failed(errors.New("document store not configured"))
	}

	id := DocumentID(upload.Data)
	existing, err := s.docs.GetByID(ctx, id)
	switch {
	case err == nil && existing.Processed:
		logger.Info("Document %s already indexed as %s", upload.FileName, id)
		return alreadyExists(id)
	case err == nil:
		logger.Info("Resuming unfinished document %s", id)
		return s.resume(ctx, existing)
	case !errors.Is(err, domain.ErrNotFound):
		return failed(fmt.Errorf("look up document: %w", err))
	}

	pages, err := s.normalisers.Normalise(ctx, upload.FileName, upload.Data)
	if err != nil {
		return failed(&domain.ParseError{FileName: upload.FileName, Err: err})
	}

	chunked, err := s.chunker.Chunk(pages)
	if err != nil {
		return failed(&domain.ParseError{FileName: upload.FileName, Err: err})
	}
	logger.Debug("Chunked %s into %d fragments", upload.FileName, len(chunked.Fragments))

	doc := &domain.Document{
		ID:              id,
		Title:           documentTitle(upload, chunked.Title),
		Description:     strings.TrimSpace(upload.Description),
		FileName:        upload.FileName,
		Size:            int64(len(upload.Data)),
		TotalCharacters: chunked.TotalCharacters,
		TotalWords:      chunked.TotalWords,
		UploadedAt:      s.now().UTC(),
	}
	chunks := make([]domain.Chunk, len(chunked.Fragments))
	for i, f := range chunked.Fragments {
		chunks[i] = domain.Chunk{
			ID:         ChunkID(id, i),
			DocumentID: id,
			PageNumber: f.PageNumber,
			Position:   i,
			Content:    f.Content,
			TokenCount: s.countTokens(f.Content),
		}
	}

	if err := s.docs.Save(ctx, doc, chunks); err != nil {
		return failed(fmt.Errorf("save document: %w", err))
	}

	usage, err := s.index(ctx, doc, chunks)
	if err != nil {
		r := failed(err)
		r.DocumentID = id
		r.Usage = usage
		return r
	}

	return domain.IngestionResult{
		DocumentID: id,
		Success:    true,
		Chunks:     len(chunks),
		Words:      doc.TotalWords,
		Characters: doc.TotalCharacters,
		Usage:      usage,
		Message:    fmt.Sprintf("indexed %d chunks", len(chunks)),
	}
}

// resume indexes the stored chunks of an unprocessed document.
func (s *IngestionService) resume(ctx context.Context, doc *domain.Document) domain.IngestionResult {
	chunks, err := s.docs.GetChunks(ctx, doc.ID)
	if err != nil {
		r := failed(fmt.Errorf("load chunks: %w", err))
		r.DocumentID = doc.ID
		return r
	}

	usage, err := s.index(ctx, doc, chunks)
	if err != nil {
		r := failed(err)
		r.DocumentID = doc.ID
		r.Usage = usage
		return r
	}

	return domain.IngestionResult{
		DocumentID: doc.ID,
		Success:    true,
		Resumed:    true,
		Chunks:     len(chunks),
		Words:      doc.TotalWords,
		Characters: doc.TotalCharacters,
		Usage:      usage,
		Message:    fmt.Sprintf("resumed and indexed %d chunks", len(chunks)),
	}
}

// index embeds chunks in batches, upserts them and marks the document processed.
func (s *IngestionService) index(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) (domain.TokenUsage, error) {
	var usage domain.TokenUsage
	if s.embedder == nil {
		return usage, domain.ErrEmbeddingUnavailable
	}
	if s.vectors == nil {
		return usage, domain.ErrVectorStoreUnavailable
	}
	if len(chunks) == 0 {
		return usage, fmt.Errorf("document %s: %w", doc.ID, domain.ErrNoExtractableText)
	}

	indexedAt := s.now().UTC()
	records := make([]driven.VectorRecord, 0, len(chunks))

	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		texts := make([]string, end-start)
		for i, c := range chunks[start:end] {
			texts[i] = c.Content
		}

		embeddings, err := s.embedder.EmbedMany(ctx, texts)
		if err != nil {
			s.metrics.ObserveProviderError("embedding")
			return usage, fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
		}
		if len(embeddings) != len(texts) {
			return usage, fmt.Errorf("embed chunks %d-%d: got %d vectors for %d texts", start, end, len(embeddings), len(texts))
		}

		for i, e := range embeddings {
			c := chunks[start+i]
			usage = usage.Add(e.Usage)
			records = append(records, driven.VectorRecord{
				ID:     c.ID,
				Vector: e.Vector,
				Payload: driven.ChunkPayload{
					DocumentID:          doc.ID,
					DocumentTitle:       doc.Title,
					DocumentDescription: doc.Description,
					FileName:            doc.FileName,
					PageNumber:          c.PageNumber,
					Text:                c.Content,
					IndexedAt:           indexedAt,
				},
			})
		}
		logger.Debug("Embedded chunks %d-%d of %s", start, end, doc.ID)
	}

	if err := s.vectors.EnsureCollection(ctx); err != nil {
		s.metrics.ObserveProviderError("vector_store")
		return usage, fmt.Errorf("ensure collection: %w", err)
	}
	if err := s.vectors.Upsert(ctx, records); err != nil {
		s.metrics.ObserveProviderError("vector_store")
		return usage, fmt.Errorf("upsert vectors: %w", err)
	}
	if err := s.docs.MarkProcessed(ctx, doc.ID); err != nil {
		return usage, fmt.Errorf("mark processed: %w", err)
	}

	logger.Info("Indexed %d chunks of %s (%d tokens)", len(records), doc.FileName, usage.TotalTokens)
	return usage, nil
}

// IngestFiles ingests uploads with bounded concurrency. Results keep the
// input order and one failing upload never aborts the others.
func (s *IngestionService) IngestFiles(ctx context.Context, uploads []domain.Upload) domain.BulkIngestionResult {
	start := time.Now()
	results := make([]domain.IngestionResult, len(uploads))

	var g errgroup.Group
	g.SetLimit(s.maxConcurrency)
	for i, upload := range uploads {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					results[i] = failed(fmt.Errorf("panic: %v", r))
					results[i].FileName = upload.FileName
				}
			}()
			if ctx.Err() != nil {
				results[i] = failed(ctx.Err())
				results[i].FileName = upload.FileName
				return nil
			}
			results[i] = s.IngestFile(ctx, upload)
			return nil
		})
	}
	_ = g.Wait()

	var bulk domain.BulkIngestionResult
	for _, r := range results {
		bulk.Add(r)
	}
	bulk.Duration = time.Since(start)

	logger.Info("Bulk ingestion: %d succeeded, %d failed, %d already present in %s",
		bulk.SuccessCount, bulk.FailCount, bulk.AlreadyExistsCount, bulk.Duration.Round(time.Millisecond))
	return bulk
}

// Reconcile finishes every document whose vectors were never confirmed.
func (s *IngestionService) Reconcile(ctx context.Context) (domain.BulkIngestionResult, error) {
	start := time.Now()
	var bulk domain.BulkIngestionResult
	if s.docs == nil {
		return bulk, errors.New("document store not configured")
	}

	pending, err := s.docs.ListUnprocessed(ctx)
	if err != nil {
		return bulk, fmt.Errorf("list unprocessed documents: %w", err)
	}
	logger.Section("Reconcile")
	logger.Info("%d unprocessed documents", len(pending))

	for i := range pending {
		if err := ctx.Err(); err != nil {
			return bulk, err
		}
		docStart := time.Now()
		r := s.resume(ctx, &pending[i])
		r.FileName = pending[i].FileName
		r.Duration = time.Since(docStart)
		outcome := OutcomeResumed
		if !r.Success {
			outcome = OutcomeFailed
			logger.Warn("Reconcile of %s failed: %s", pending[i].ID, r.Message)
		}
		s.metrics.ObserveIngestion(outcome, r.Chunks)
		bulk.Add(r)
	}
	bulk.Duration = time.Since(start)
	return bulk, nil
}

// ListDocuments returns stored documents.
func (s *IngestionService) ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error) {
	if s.docs == nil {
		return nil, errors.New("document store not configured")
	}
	return s.docs.ListAll(ctx)
}

func (s *IngestionService) countTokens(text string) int {
	if s.tokens != nil {
		return s.tokens.Count(text)
	}
	return len(strings.Fields(text))
}

// documentTitle picks the supplied title, then the extracted one, then the file name.
func documentTitle(upload domain.Upload, extracted string) string {
	if t := strings.TrimSpace(upload.Title); t != "" {
		return t
	}
	if t := strings.TrimSpace(extracted); t != "" {
		return t
	}
	base := filepath.Base(upload.FileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func failed(err error) domain.IngestionResult {
	return domain.IngestionResult{Success: false, Message: err.Error()}
}
