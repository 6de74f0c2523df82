package services

import (
	"context"
	"sort"
	"strings"

	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/ports/driven"
	"github.com/logos-health/logos/internal/core/ports/driving"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService reads stored documents.
type DocumentService struct {
	docStore driven.DocumentStore
}

// NewDocumentService creates a new document service.
func NewDocumentService(docStore driven.DocumentStore) *DocumentService {
	return &DocumentService{docStore: docStore}
}

// List returns every stored document.
func (s *DocumentService) List(ctx context.Context) ([]domain.DocumentSummary, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotFound
	}
	return s.docStore.ListAll(ctx)
}

// Get retrieves a document by ID with its chunks.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotFound
	}
	doc, err := s.docStore.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Chunks == nil {
		chunks, err := s.docStore.GetChunks(ctx, documentID)
		if err != nil {
			return nil, err
		}
		doc.Chunks = chunks
	}
	return doc, nil
}

// GetContent returns the concatenated content of all chunks.
func (s *DocumentService) GetContent(ctx context.Context, documentID string) (string, error) {
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return "", err
	}

	chunks := doc.Chunks
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Position < chunks[j].Position
	})

	var builder strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(chunk.Content)
	}
	return builder.String(), nil
}

// GetDetails returns metadata for display.
func (s *DocumentService) GetDetails(ctx context.Context, documentID string) (*driving.DocumentDetails, error) {
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	pages := make(map[int]struct{})
	tokens := 0
	for _, c := range doc.Chunks {
		pages[c.PageNumber] = struct{}{}
		tokens += c.TokenCount
	}

	return &driving.DocumentDetails{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		FileName:    doc.FileName,
		Size:        doc.Size,
		Pages:       len(pages),
		ChunkCount:  len(doc.Chunks),
		TotalWords:  doc.TotalWords,
		TotalTokens: tokens,
		Processed:   doc.Processed,
		UploadedAt:  doc.UploadedAt,
	}, nil
}
