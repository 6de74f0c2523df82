package confidence

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logos-health/logos/internal/core/domain"
)

func tokens(n int, logProb float64) []domain.LogProbToken {
	out := make([]domain.LogProbToken, n)
	for i := range out {
		out[i] = domain.LogProbToken{Token: "tok" + strconv.Itoa(i), LogProb: logProb}
	}
	return out
}

func TestValidate_UniformHighConfidence(t *testing.T) {
	v := NewValidator(Thresholds{})

	result := v.Validate(tokens(50, -0.01), domain.TokenUsage{InputTokens: 10, TotalTokens: 60})

	assert.Greater(t, result.Score, 0.9)
	assert.Contains(t, []domain.ConfidenceLevel{domain.ConfidenceHigh, domain.ConfidenceCertain}, result.Level)
	assert.Equal(t, domain.UncertaintyNone, result.Uncertainty)
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Penalties)
	assert.Empty(t, result.WeakTokens)
	assert.Equal(t, 60, result.Usage.TotalTokens)
	assert.Equal(t, 50, result.Metrics.TokenCount)
}

func TestValidate_SingleWeakTokenIsFocal(t *testing.T) {
	v := NewValidator(Thresholds{})
	baseline := v.Validate(tokens(50, -0.01), domain.TokenUsage{})

	input := tokens(49, -0.01)
	input = append(input, domain.LogProbToken{Token: "Ferrum", LogProb: -4.0})
	result := v.Validate(input, domain.TokenUsage{})

	assert.Equal(t, domain.UncertaintyFocal, result.Uncertainty)
	assert.Less(t, result.Score, baseline.Score-0.03)
	assert.GreaterOrEqual(t, result.Level, domain.ConfidenceMedium)
	// The very unlikely token keeps the verdict below Certain.
	assert.Equal(t, domain.ConfidenceHigh, result.Level)
	require.Len(t, result.WeakTokens, 1)
	assert.Equal(t, "Ferrum", result.WeakTokens[0].Token)
	assert.Equal(t, "Ferrum", result.Metrics.WeakestToken.Token)
}

func TestValidate_SpreadWeakTokensAreDiffuse(t *testing.T) {
	v := NewValidator(Thresholds{})

	input := append(tokens(30, -2.0), tokens(20, -0.01)...)
	result := v.Validate(input, domain.TokenUsage{})

	assert.Equal(t, domain.UncertaintyDiffuse, result.Uncertainty)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Penalties, PenaltyDiffuse)
	assert.Contains(t, result.Penalties, PenaltyWeakTokens)
	assert.Len(t, result.WeakTokens, maxReportedWeakTokens)
}

func TestValidate_EmptyInput(t *testing.T) {
	v := NewValidator(Thresholds{})

	for name, input := range map[string][]domain.LogProbToken{
		"nil":        nil,
		"only noise": {{Token: ",", LogProb: -0.1}, {Token: " ", LogProb: -3}, {Token: "\"}", LogProb: -0.2}},
	} {
		t.Run(name, func(t *testing.T) {
			result := v.Validate(input, domain.TokenUsage{TotalTokens: 3})

			assert.Zero(t, result.Score)
			assert.False(t, result.IsValid)
			assert.Equal(t, domain.ConfidenceUncertain, result.Level)
			assert.Equal(t, []string{PenaltyNoTokens}, result.Penalties)
			assert.Equal(t, 3, result.Usage.TotalTokens)
		})
	}
}

func TestValidate_NoiseDoesNotCountAsWeak(t *testing.T) {
	v := NewValidator(Thresholds{})

	input := tokens(20, -0.01)
	input = append(input, domain.LogProbToken{Token: "\",", LogProb: -6})
	result := v.Validate(input, domain.TokenUsage{})

	assert.Equal(t, domain.UncertaintyNone, result.Uncertainty)
	assert.Equal(t, 20, result.Metrics.TokenCount)
}

func TestValidate_HighPerplexityPenalty(t *testing.T) {
	v := NewValidator(Thresholds{})

	result := v.Validate(tokens(10, -2.0), domain.TokenUsage{})

	assert.InDelta(t, math.Exp(2), result.Metrics.Perplexity, 1e-9)
	assert.Contains(t, result.Penalties, PenaltyPerplexity)
	assert.False(t, result.IsValid)
	assert.LessOrEqual(t, result.Level, domain.ConfidenceLow)
}

func TestValidate_WorstPerplexityBandIsInvalid(t *testing.T) {
	th := DefaultThresholds()
	th.ValidityScore = 0
	v := NewValidator(th)

	result := v.Validate(tokens(5, -3.0), domain.TokenUsage{})

	assert.Greater(t, result.Metrics.Perplexity, 15.0)
	assert.False(t, result.IsValid)
}

func TestValidate_CriticalPerplexityVetoesHighScore(t *testing.T) {
	th := DefaultThresholds()
	th.CriticalPerplexity = 1.005
	v := NewValidator(th)

	result := v.Validate(tokens(50, -0.01), domain.TokenUsage{})

	assert.Greater(t, result.Score, 0.9)
	assert.Equal(t, domain.ConfidenceLow, result.Level)
}

func TestValidate_WeakRunPenalty(t *testing.T) {
	v := NewValidator(Thresholds{})

	input := append(tokens(45, -0.01), tokens(5, -1.5)...)
	result := v.Validate(input, domain.TokenUsage{})

	assert.Equal(t, 5, result.Metrics.LongestWeakRun)
	assert.Contains(t, result.Penalties, PenaltyWeakTokens)
}

func TestNewValidator_ZeroThresholdsUseDefaults(t *testing.T) {
	assert.Equal(t, DefaultThresholds(), NewValidator(Thresholds{}).Thresholds())

	custom := DefaultThresholds()
	custom.WeakTokenProbability = 0.6
	assert.Equal(t, 0.6, NewValidator(custom).Thresholds().WeakTokenProbability)
}

func TestLengthNormalization(t *testing.T) {
	assert.InDelta(t, 1.0, LengthNormalization(1, 0.65), 1e-12)
	assert.Greater(t, LengthNormalization(100, 0.65), LengthNormalization(10, 0.65))
}

func TestEntropyProxyIsBounded(t *testing.T) {
	for _, lp := range []float64{-0.01, -0.5, -1, -2, -5, -10} {
		m := ComputeMetrics(tokens(3, lp), DefaultThresholds())
		assert.LessOrEqual(t, m.Entropy, 1/math.E+1e-12)
	}
}

func TestLevelBands(t *testing.T) {
	assert.Equal(t, domain.ConfidenceCertain, ScoreLevel(0.85))
	assert.Equal(t, domain.ConfidenceHigh, ScoreLevel(0.65))
	assert.Equal(t, domain.ConfidenceMedium, ScoreLevel(0.5))
	assert.Equal(t, domain.ConfidenceLow, ScoreLevel(0.3))
	assert.Equal(t, domain.ConfidenceUncertain, ScoreLevel(0.29))

	assert.Equal(t, domain.ConfidenceCertain, PerplexityLevel(1.2))
	assert.Equal(t, domain.ConfidenceUncertain, PerplexityLevel(15))
	assert.Equal(t, domain.ConfidenceHigh, EntropyLevel(0.3))
}
