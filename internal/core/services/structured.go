package services

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/ports/driven"
	"github.com/logos-health/logos/internal/logger"
)

// structuredResult is a decoded structured completion.
type structuredResult[T any] struct {
	Value    T
	Raw      string
	Model    string
	Usage    domain.TokenUsage
	LogProbs []domain.LogProbToken
}

var schemaCache sync.Map // reflect.Type -> *driven.ResponseSchema

// responseSchema reflects the JSON schema of T once and caches it.
func responseSchema[T any]() (*driven.ResponseSchema, error) {
	var zero T
	typ := reflect.TypeOf(zero)
	if cached, ok := schemaCache.Load(typ); ok {
		return cached.(*driven.ResponseSchema), nil
	}

	reflector := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}
	schema := reflector.Reflect(zero)
	schema.Version = ""
	requireAll(schema)
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal %s schema: %w", typ.Name(), err)
	}

	rs := &driven.ResponseSchema{Name: schemaName(typ), Schema: data}
	schemaCache.Store(typ, rs)
	return rs, nil
}

// requireAll lists every property as required, recursively. Strict
// structured output rejects schemas with optional properties, and
// invopop/jsonschema leaves omitempty fields out of required.
func requireAll(s *jsonschema.Schema) {
	if s == nil {
		return
	}
	if s.Properties != nil {
		listed := make(map[string]bool, len(s.Required))
		for _, name := range s.Required {
			listed[name] = true
		}
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			if !listed[pair.Key] {
				s.Required = append(s.Required, pair.Key)
			}
			requireAll(pair.Value)
		}
	}
	requireAll(s.Items)
	for _, sub := range s.AnyOf {
		requireAll(sub)
	}
	for _, sub := range s.OneOf {
		requireAll(sub)
	}
}

// schemaName converts a Go type name to snake_case.
func schemaName(typ reflect.Type) string {
	var b strings.Builder
	for i, r := range typ.Name() {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// completeStructured runs one completion constrained to T's schema and
// decodes the answer. Payload is sent as JSON unless it is already a string.
func completeStructured[T any](
	ctx context.Context,
	llm driven.LLMService,
	systemPrompt string,
	payload any,
	profile domain.ModelProfile,
	withLogProbs bool,
) (*structuredResult[T], error) {
	user, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}

	schema, err := responseSchema[T]()
	if err != nil {
		return nil, err
	}

	opts := driven.CompletionOptions{
		Model:          profile.Model,
		MaxTokens:      profile.MaxTokens,
		Temperature:    profile.Temperature,
		TopP:           profile.TopP,
		LogProbs:       withLogProbs,
		ResponseSchema: schema,
	}
	if withLogProbs {
		opts.TopLogProbs = profile.TopLogProbs
	}

	logger.Debug("LLM call %s (model %q, %d payload bytes)", schema.Name, profile.Model, len(user))
	completion, err := llm.Complete(ctx, driven.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPayload:  user,
		Options:      opts,
	})
	if err != nil {
		return nil, fmt.Errorf("%s completion: %w", schema.Name, err)
	}

	var value T
	if err := json.Unmarshal([]byte(stripCodeFence(completion.Content)), &value); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", schema.Name, err)
	}

	return &structuredResult[T]{
		Value:    value,
		Raw:      completion.Content,
		Model:    completion.Model,
		Usage:    completion.Usage,
		LogProbs: completion.LogProbs,
	}, nil
}

func encodePayload(payload any) (string, error) {
	if s, ok := payload.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
