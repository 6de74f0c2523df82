package ratelimit

import (
	"context"

	"github.com/logos-health/logos/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// LLMService rate limits completions of an inner LLMService.
type LLMService struct {
	driven.LLMService
	limiter *Limiter
}

// NewLLMService wraps inner with limiter.
func NewLLMService(inner driven.LLMService, limiter *Limiter) *LLMService {
	return &LLMService{LLMService: inner, limiter: limiter}
}

// Complete waits for a slot, then delegates.
func (s *LLMService) Complete(ctx context.Context, req driven.CompletionRequest) (*driven.Completion, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	c, err := s.LLMService.Complete(ctx, req)
	s.limiter.Observe(err)
	return c, err
}
