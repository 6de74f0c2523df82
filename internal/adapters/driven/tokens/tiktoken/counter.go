// Package tiktoken counts tokens with OpenAI's BPE encodings.
package tiktoken

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/logos-health/logos/internal/core/ports/driven"
)

// Ensure Counter implements the interface.
var _ driven.TokenCounter = (*Counter)(nil)

// DefaultEncoding is used when a model has no known encoding.
const DefaultEncoding = "cl100k_base"

// Counter implements driven.TokenCounter with tiktoken-go.
// Encoding is safe for concurrent use.
type Counter struct {
	encoding string
	tke      *tiktoken.Tiktoken
}

// NewCounter creates a counter for a model or encoding name.
// Unknown names fall back to DefaultEncoding.
func NewCounter(modelOrEncoding string) (*Counter, error) {
	if modelOrEncoding == "" {
		modelOrEncoding = DefaultEncoding
	}

	if tke, err := tiktoken.GetEncoding(modelOrEncoding); err == nil {
		return &Counter{encoding: modelOrEncoding, tke: tke}, nil
	}
	if tke, err := tiktoken.EncodingForModel(modelOrEncoding); err == nil {
		return &Counter{encoding: encodingForModel(modelOrEncoding), tke: tke}, nil
	}

	tke, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return nil, fmt.Errorf("tiktoken: load %s: %w", DefaultEncoding, err)
	}
	return &Counter{encoding: DefaultEncoding, tke: tke}, nil
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.tke.Encode(text, nil, nil))
}

// Encoding returns the name of the encoding in use.
func (c *Counter) Encoding() string {
	return c.encoding
}

// encodingForModel names the encoding tiktoken picks for a model.
func encodingForModel(model string) string {
	if strings.HasPrefix(model, "gpt-4o") || strings.HasPrefix(model, "o1") ||
		strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "gpt-4.1") {
		return "o200k_base"
	}
	return DefaultEncoding
}
