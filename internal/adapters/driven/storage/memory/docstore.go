package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// Returned values are copies; callers cannot mutate stored state.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
	}
}

// Save stores a document and replaces its chunks. A processed document
// stays processed.
func (s *DocumentStore) Save(_ context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *doc
	stored.Chunks = nil
	if existing, ok := s.documents[doc.ID]; ok && existing.Processed {
		stored.Processed = true
	}
	s.documents[doc.ID] = stored
	s.chunks[doc.ID] = slices.Clone(chunks)
	return nil
}

// GetByID retrieves a document with its chunks.
func (s *DocumentStore) GetByID(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc.Chunks = slices.Clone(s.chunks[id])
	return &doc, nil
}

// MarkProcessed flags a document as fully indexed.
func (s *DocumentStore) MarkProcessed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Processed = true
	s.documents[id] = doc
	return nil
}

// GetChunks retrieves the chunks of a document in insertion order.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.documents[documentID]; !ok {
		return nil, domain.ErrNotFound
	}
	return slices.Clone(s.chunks[documentID]), nil
}

// ListAll returns summaries of every document, newest first.
func (s *DocumentStore) ListAll(_ context.Context) ([]domain.DocumentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.DocumentSummary, 0, len(s.documents))
	for id, doc := range s.documents {
		out = append(out, domain.DocumentSummary{
			ID:         id,
			Title:      doc.Title,
			FileName:   doc.FileName,
			Size:       doc.Size,
			ChunkCount: len(s.chunks[id]),
			Processed:  doc.Processed,
			UploadedAt: doc.UploadedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListUnprocessed returns documents whose vectors were never confirmed.
func (s *DocumentStore) ListUnprocessed(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Document
	for _, doc := range s.documents {
		if !doc.Processed {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
