package driven

import (
	"context"
	"time"
)

// VectorStore stores chunk vectors with their payloads and answers
// similarity queries. Implementations include a Qdrant REST client and an
// in-process store.
type VectorStore interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context) error

	// Upsert writes or replaces points by ID.
	Upsert(ctx context.Context, records []VectorRecord) error

	// Search returns at most topK hits scoring at least minScore, best first.
	Search(ctx context.Context, query []float32, topK int, minScore float64) ([]VectorHit, error)

	// Close releases resources.
	Close() error
}

// VectorRecord is one point to upsert.
type VectorRecord struct {
	ID      string
	Vector  []float32
	Payload ChunkPayload
}

// ChunkPayload is stored alongside each vector.
type ChunkPayload struct {
	DocumentID          string    `json:"document_id"`
	DocumentTitle       string    `json:"document_title"`
	DocumentDescription string    `json:"document_description,omitempty"`
	FileName            string    `json:"file_name"`
	PageNumber          int       `json:"page_number"`
	Text                string    `json:"text"`
	IndexedAt           time.Time `json:"indexed_at"`
}

// VectorHit is one similarity search result.
type VectorHit struct {
	// ID is the point identifier (the chunk ID).
	ID string

	// Score is the cosine similarity (0-1).
	Score float64

	Payload ChunkPayload
}
