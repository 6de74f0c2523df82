// Package confidence turns per-token log-probabilities of a generation
// call into a calibrated trust verdict.
//
// The score is exp(mean log-prob) raised to the dampened length factor,
// times every triggered risk penalty, clamped to [0,1]. Raising to the
// length factor multiplies the mean log-prob, so long outputs are not
// driven toward zero by length alone.
package confidence

import (
	"math"

	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/ports/driving"
)

// Ensure Validator implements the interface.
var _ driving.ConfidenceValidator = (*Validator)(nil)

// Thresholds are the tunable constants of validation.
type Thresholds = domain.ConfidenceThresholds

// DefaultThresholds returns the calibrated defaults.
func DefaultThresholds() Thresholds {
	return domain.DefaultConfidenceThresholds()
}

// Risk penalty multipliers.
const (
	perplexityPenalty = 0.6
	entropyPenalty    = 0.75
	weakTokenPenalty  = 0.8
	diffusePenalty    = 0.5
)

// Penalty names reported in results.
const (
	PenaltyPerplexity = "high_perplexity"
	PenaltyEntropy    = "high_entropy"
	PenaltyWeakTokens = "weak_tokens"
	PenaltyDiffuse    = "diffuse_uncertainty"
	PenaltyNoTokens   = "no_logprobs"
)

// Validator scores token log-probabilities. It holds no state besides its
// thresholds and is safe for concurrent use.
type Validator struct {
	th Thresholds
}

// NewValidator creates a validator. A zero Thresholds value means defaults.
func NewValidator(th Thresholds) *Validator {
	if th == (Thresholds{}) {
		th = DefaultThresholds()
	}
	return &Validator{th: th}
}

// Thresholds returns the thresholds in use.
func (v *Validator) Thresholds() Thresholds {
	return v.th
}

// Validate never fails: empty input, or input that is only noise, yields a
// zero score that is invalid and Uncertain.
func (v *Validator) Validate(tokens []domain.LogProbToken, usage domain.TokenUsage) domain.ConfidenceValidationResult {
	filtered := FilterNoise(tokens)
	if len(filtered) == 0 {
		return domain.ConfidenceValidationResult{
			Score:       0,
			IsValid:     false,
			Level:       domain.ConfidenceUncertain,
			Uncertainty: domain.UncertaintyDiffuse,
			Penalties:   []string{PenaltyNoTokens},
			Usage:       usage,
		}
	}

	m := ComputeMetrics(filtered, v.th)
	uncertainty := ClassifyUncertainty(m, v.th)
	multiplier, penalties := v.penalties(m, uncertainty)

	meanLogProb := math.Log(m.TokenConfidence)
	score := math.Exp(meanLogProb*m.LengthFactor) * multiplier
	score = math.Max(0, math.Min(1, score))

	return domain.ConfidenceValidationResult{
		Score:       score,
		IsValid:     score >= v.th.ValidityScore && PerplexityLevel(m.Perplexity) > domain.ConfidenceUncertain,
		Level:       Level(score, m, v.th),
		Metrics:     m,
		Uncertainty: uncertainty,
		WeakTokens:  WeakTokens(filtered, v.th),
		Penalties:   penalties,
		Usage:       usage,
	}
}

// penalties returns the product of triggered risk penalties and their names.
func (v *Validator) penalties(m domain.ConfidenceMetrics, u domain.UncertaintyKind) (float64, []string) {
	multiplier := 1.0
	var names []string

	if m.Perplexity > v.th.HighPerplexity {
		multiplier *= perplexityPenalty
		names = append(names, PenaltyPerplexity)
	}
	if m.Entropy > v.th.HighEntropy {
		multiplier *= entropyPenalty
		names = append(names, PenaltyEntropy)
	}
	if m.WeakTokenCount > v.th.MaxWeakTokens || m.LongestWeakRun >= v.th.WeakRunLength {
		multiplier *= weakTokenPenalty
		names = append(names, PenaltyWeakTokens)
	}
	if u == domain.UncertaintyDiffuse {
		multiplier *= diffusePenalty
		names = append(names, PenaltyDiffuse)
	}
	return multiplier, names
}
