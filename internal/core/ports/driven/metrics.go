package driven

import "time"

// Metrics records pipeline observations. The zero-cost NopMetrics is used
// when no recorder is configured.
type Metrics interface {
	// ObserveConfidence records a confidence verdict for a stage
	// (medical_context, relevance, generation).
	ObserveConfidence(stage string, score float64, valid bool)

	// ObserveIngestion records one ingestion outcome
	// (success, already_exists, failed).
	ObserveIngestion(outcome string, chunks int)

	// ObserveRetrieval records one query's embed+search latency.
	ObserveRetrieval(d time.Duration, hits int)

	// ObserveProviderError counts absorbed provider failures by operation.
	ObserveProviderError(operation string)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) ObserveConfidence(string, float64, bool) {}
func (NopMetrics) ObserveIngestion(string, int) {}
func (NopMetrics) ObserveRetrieval(time.Duration, int) {}
func (NopMetrics) ObserveProviderError(string) {}
