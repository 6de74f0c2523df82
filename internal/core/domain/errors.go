package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an upload whose content type cannot be read.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrNoExtractableText indicates a document yielded no readable pages.
	ErrNoExtractableText = errors.New("could not extract text from document")

	// ErrNotMedical indicates the context extractor judged the request non-medical.
	ErrNotMedical = errors.New("content is not medical")

	// ErrLowConfidence indicates a model answer failed confidence validation.
	ErrLowConfidence = errors.New("confidence validation failed")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store is not configured.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrRateLimited indicates a provider rejected a request with HTTP 429.
	ErrRateLimited = errors.New("rate limited by provider")
)

// NotMedicalError is returned when the context extractor rejects a request.
// It carries the extractor output so callers can show why.
type NotMedicalError struct {
	Context   *MedicalContext
	RawOutput string
}

func (e *NotMedicalError) Error() string {
	if e.Context != nil && e.Context.Reason != "" {
		return fmt.Sprintf("%s: %s", ErrNotMedical, e.Context.Reason)
	}
	return ErrNotMedical.Error()
}

// Is reports whether target is ErrNotMedical.
func (e *NotMedicalError) Is(target error) bool {
	return target == ErrNotMedical
}

// ConfidenceError is returned when a gating confidence check fails.
type ConfidenceError struct {
	// Stage names the model call that was validated (e.g. "medical_context").
	Stage  string
	Result ConfidenceValidationResult
}

func (e *ConfidenceError) Error() string {
	return fmt.Sprintf("%s at %s: score %.3f, level %s",
		ErrLowConfidence, e.Stage, e.Result.Score, e.Result.Level)
}

// Is reports whether target is ErrLowConfidence.
func (e *ConfidenceError) Is(target error) bool {
	return target == ErrLowConfidence
}

// ParseError reports a document that could not be turned into pages.
type ParseError struct {
	FileName string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.FileName, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
