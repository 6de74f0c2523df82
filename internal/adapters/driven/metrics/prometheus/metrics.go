// Package prometheus records pipeline metrics in a Prometheus registry.
package prometheus

import (
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/logos-health/logos/internal/core/ports/driven"
)

// Ensure Metrics implements the interface.
var _ driven.Metrics = (*Metrics)(nil)

const namespace = "logos"

// Metrics implements driven.Metrics on a private registry.
type Metrics struct {
	registry       *prom.Registry
	confidence     *prom.HistogramVec
	verdicts       *prom.CounterVec
	ingestions     *prom.CounterVec
	ingestedChunks prom.Counter
	retrievalTime  prom.Histogram
	retrievalHits  prom.Histogram
	providerErrors *prom.CounterVec
}

// New creates the collectors and registers them with a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prom.NewRegistry(),
		confidence: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "confidence_score",
			Help:      "Combined confidence score of model answers by stage.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1},
		}, []string{"stage"}),
		verdicts: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "confidence_verdicts_total",
			Help:      "Confidence validations by stage and outcome.",
		}, []string{"stage", "valid"}),
		ingestions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "ingestions_total",
			Help:      "Document ingestions by outcome.",
		}, []string{"outcome"}),
		ingestedChunks: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_chunks_total",
			Help:      "Chunks indexed into the vector store.",
		}),
		retrievalTime: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_duration_seconds",
			Help:      "Embed and search latency per query.",
			Buckets:   prom.DefBuckets,
		}),
		retrievalHits: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_hits",
			Help:      "Chunks found per query.",
			Buckets:   prom.LinearBuckets(0, 2, 11),
		}),
		providerErrors: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider failures absorbed by the pipeline, by operation.",
		}, []string{"operation"}),
	}
	m.registry.MustRegister(
		m.confidence, m.verdicts, m.ingestions, m.ingestedChunks,
		m.retrievalTime, m.retrievalHits, m.providerErrors,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveConfidence records a confidence verdict.
func (m *Metrics) ObserveConfidence(stage string, score float64, valid bool) {
	m.confidence.WithLabelValues(stage).Observe(score)
	m.verdicts.WithLabelValues(stage, strconv.FormatBool(valid)).Inc()
}

// ObserveIngestion records one ingestion outcome.
func (m *Metrics) ObserveIngestion(outcome string, chunks int) {
	m.ingestions.WithLabelValues(outcome).Inc()
	if chunks > 0 {
		m.ingestedChunks.Add(float64(chunks))
	}
}

// ObserveRetrieval records one query's latency and hit count.
func (m *Metrics) ObserveRetrieval(d time.Duration, hits int) {
	m.retrievalTime.Observe(d.Seconds())
	m.retrievalHits.Observe(float64(hits))
}

// ObserveProviderError counts an absorbed provider failure.
func (m *Metrics) ObserveProviderError(operation string) {
	m.providerErrors.WithLabelValues(operation).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prom.Registry {
	return m.registry
}
