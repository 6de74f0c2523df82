package driven

import (
	"context"

	"github.com/logos-health/logos/internal/core/domain"
)

// LLMService provides chat completions with per-token log-probabilities.
//
// Implementations may include:
//   - OpenAI (GPT-4o, GPT-4.1)
//   - Any OpenAI-compatible server exposing logprobs
type LLMService interface {
	// Complete runs one system+user exchange.
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)

	// ModelName returns the default model.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompletionRequest is a single structured generation call.
type CompletionRequest struct {
	SystemPrompt string

	// UserPayload is sent verbatim as the user message, usually JSON.
	UserPayload string

	Options CompletionOptions
}

// CompletionOptions configures generation behaviour.
type CompletionOptions struct {
	// Model overrides the service default when set.
	Model string

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// TopP is nucleus sampling mass.
	TopP float64

	// LogProbs requests per-token log-probabilities.
	LogProbs bool

	// TopLogProbs requests alternatives per position when LogProbs is set.
	TopLogProbs int

	// ResponseSchema constrains the output to JSON of this schema.
	ResponseSchema *ResponseSchema
}

// ResponseSchema names a JSON schema for structured output.
type ResponseSchema struct {
	Name   string
	Schema []byte
}

// Completion is the provider's answer.
type Completion struct {
	Content  string
	Model    string
	Usage    domain.TokenUsage
	LogProbs []domain.LogProbToken
}
