// Package memory provides an in-process vector store. Points are lost
// when the process exits.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/logos-health/logos/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store keeps points in a map and searches them by brute-force cosine
// similarity.
type Store struct {
	mu         sync.RWMutex
	dimensions int
	points     map[string]driven.VectorRecord
}

// NewStore creates an empty store. A zero dimensions accepts any size
// fixed by the first upsert.
func NewStore(dimensions int) *Store {
	return &Store{dimensions: dimensions, points: make(map[string]driven.VectorRecord)}
}

// EnsureCollection is a no-op.
func (s *Store) EnsureCollection(_ context.Context) error {
	return nil
}

// Upsert stores copies of the records, replacing existing IDs.
func (s *Store) Upsert(_ context.Context, records []driven.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if s.dimensions == 0 {
			s.dimensions = len(r.Vector)
		}
		if len(r.Vector) != s.dimensions {
			return fmt.Errorf("memory: point %s has %d dimensions, want %d", r.ID, len(r.Vector), s.dimensions)
		}
	}
	for _, r := range records {
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		r.Vector = vec
		s.points[r.ID] = r
	}
	return nil
}

// Search scores every point against query.
func (s *Store) Search(ctx context.Context, query []float32, topK int, minScore float64) ([]driven.VectorHit, error) {
	if topK <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dimensions != 0 && len(query) != s.dimensions {
		return nil, fmt.Errorf("memory: query has %d dimensions, want %d", len(query), s.dimensions)
	}

	hits := make([]driven.VectorHit, 0, topK)
	for id, p := range s.points {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		score := cosine(query, p.Vector)
		if score < minScore {
			continue
		}
		hits = append(hits, driven.VectorHit{ID: id, Score: score, Payload: p.Payload})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Len returns the number of stored points.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
