// Package qdrant provides a vector store adapter over the Qdrant REST API.
package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultURL        = "http://localhost:6333"
	DefaultCollection = "logos_knowledge_base"
	DefaultTimeout    = 30 * time.Second
)

// Config holds configuration for the Qdrant store.
type Config struct {
	// URL is the Qdrant REST endpoint (default: http://localhost:6333).
	URL string

	// APIKey is sent as the api-key header when set.
	APIKey string

	// Collection is the collection name (default: logos_knowledge_base).
	Collection string

	// Dimensions is the vector size used when creating the collection.
	Dimensions int

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration

	// RetryCount is how many times failed requests are retried.
	RetryCount int
}

// Store is a driven.VectorStore backed by Qdrant.
type Store struct {
	client     *resty.Client
	collection string
	dimensions int
}

type apiError struct {
	Status struct {
		Error string `json:"error"`
	} `json:"status"`
}

type point struct {
	ID      string              `json:"id"`
	Vector  []float32           `json:"vector"`
	Payload driven.ChunkPayload `json:"payload"`
}

type searchRequest struct {
	Vector         []float32 `json:"vector"`
	Limit          int       `json:"limit"`
	WithPayload    bool      `json:"with_payload"`
	ScoreThreshold float64   `json:"score_threshold,omitempty"`
}

type searchResponse struct {
	Result []struct {
		ID      any                 `json:"id"`
		Score   float64             `json:"score"`
		Payload driven.ChunkPayload `json:"payload"`
	} `json:"result"`
}

// NewStore creates a Qdrant store. It does not contact the server.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("qdrant: dimensions must be positive")
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryCondition)
	if cfg.APIKey != "" {
		client.SetHeader("api-key", cfg.APIKey)
	}

	return &Store{client: client, collection: cfg.Collection, dimensions: cfg.Dimensions}, nil
}

// retryCondition retries transport failures and transient server errors.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests
}

// EnsureCollection creates the collection with cosine distance unless it
// already exists.
func (s *Store) EnsureCollection(ctx context.Context) error {
	resp, err := s.client.R().SetContext(ctx).Get("/collections/" + s.collection)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorStoreUnavailable, err)
	}
	if resp.StatusCode() == http.StatusOK {
		return nil
	}
	if resp.StatusCode() != http.StatusNotFound {
		return s.statusError("get collection", resp)
	}

	body := map[string]any{
		"vectors": map[string]any{"size": s.dimensions, "distance": "Cosine"},
	}
	resp, err = s.client.R().SetContext(ctx).SetBody(body).Put("/collections/" + s.collection)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorStoreUnavailable, err)
	}
	// Another writer may have created it in between.
	if resp.StatusCode() == http.StatusConflict {
		return nil
	}
	if resp.IsError() {
		return s.statusError("create collection", resp)
	}
	return nil
}

// Upsert writes points and waits until they are searchable.
func (s *Store) Upsert(ctx context.Context, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]point, len(records))
	for i, r := range records {
		if len(r.Vector) != s.dimensions {
			return fmt.Errorf("qdrant: point %s has %d dimensions, collection expects %d", r.ID, len(r.Vector), s.dimensions)
		}
		points[i] = point{ID: r.ID, Vector: r.Vector, Payload: r.Payload}
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("wait", "true").
		SetBody(map[string]any{"points": points}).
		Put("/collections/" + s.collection + "/points")
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrVectorStoreUnavailable, err)
	}
	if resp.IsError() {
		return s.statusError("upsert", resp)
	}
	return nil
}

// Search returns the nearest points scoring at least minScore.
func (s *Store) Search(ctx context.Context, query []float32, topK int, minScore float64) ([]driven.VectorHit, error) {
	if topK <= 0 {
		return nil, nil
	}
	var out searchResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(searchRequest{Vector: query, Limit: topK, WithPayload: true, ScoreThreshold: minScore}).
		SetResult(&out).
		Post("/collections/" + s.collection + "/points/search")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrVectorStoreUnavailable, err)
	}
	if resp.IsError() {
		return nil, s.statusError("search", resp)
	}

	hits := make([]driven.VectorHit, 0, len(out.Result))
	for _, r := range out.Result {
		// Older servers ignore score_threshold.
		if r.Score < minScore {
			continue
		}
		hits = append(hits, driven.VectorHit{ID: fmt.Sprint(r.ID), Score: r.Score, Payload: r.Payload})
	}
	return hits, nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

func (s *Store) statusError(op string, resp *resty.Response) error {
	msg := http.StatusText(resp.StatusCode())
	var apiErr apiError
	if err := json.Unmarshal(resp.Body(), &apiErr); err == nil && apiErr.Status.Error != "" {
		msg = apiErr.Status.Error
	}
	err := fmt.Errorf("qdrant: %s %s (%d): %s", op, s.collection, resp.StatusCode(), msg)
	if resp.StatusCode() >= 500 {
		return errors.Join(domain.ErrVectorStoreUnavailable, err)
	}
	return err
}
