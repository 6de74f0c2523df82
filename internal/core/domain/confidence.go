package domain

import "math"

// ConfidenceLevel orders trust verdicts from Uncertain to Certain.
type ConfidenceLevel int

// Confidence levels, lowest first.
const (
	ConfidenceUncertain ConfidenceLevel = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
	ConfidenceCertain
)

// String returns the level name.
func (l ConfidenceLevel) String() string {
	switch l {
	case ConfidenceCertain:
		return "Certain"
	case ConfidenceHigh:
		return "High"
	case ConfidenceMedium:
		return "Medium"
	case ConfidenceLow:
		return "Low"
	default:
		return "Uncertain"
	}
}

// MarshalText encodes the level by name.
func (l ConfidenceLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UncertaintyKind classifies how weak tokens are spread over an output.
type UncertaintyKind string

// Uncertainty kinds.
const (
	// UncertaintyNone means no token fell below the weak threshold.
	UncertaintyNone UncertaintyKind = "None"

	// UncertaintyFocal means a few isolated weak tokens in otherwise solid output.
	UncertaintyFocal UncertaintyKind = "Focal"

	// UncertaintyDiffuse means weakness is spread across the output.
	UncertaintyDiffuse UncertaintyKind = "Diffuse"
)

// LogProbToken is one generated token and its natural-log probability.
type LogProbToken struct {
	Token   string  `json:"token"`
	LogProb float64 `json:"logprob"`
}

// Probability returns exp(LogProb).
func (t LogProbToken) Probability() float64 {
	return math.Exp(t.LogProb)
}

// ConfidenceMetrics are the raw statistics behind a verdict.
type ConfidenceMetrics struct {
	// TokenConfidence is exp(mean log-prob).
	TokenConfidence float64 `json:"token_confidence"`

	// Perplexity is exp(-mean log-prob).
	Perplexity float64 `json:"perplexity"`

	// Entropy is the mean of -p*ln(p) over chosen tokens. It is a
	// self-information proxy, not the entropy of the full distribution,
	// and is bounded above by 1/e.
	Entropy float64 `json:"entropy"`

	// LengthNormalization is (5+n)^alpha / 6^alpha.
	LengthNormalization float64 `json:"length_normalization"`

	// LengthFactor is the dampened multiplier derived from LengthNormalization.
	LengthFactor float64 `json:"length_factor"`

	// WeakestToken has the lowest log-prob after noise filtering.
	WeakestToken LogProbToken `json:"weakest_token"`

	// TokenCount is the number of tokens left after noise filtering.
	TokenCount int `json:"token_count"`

	// WeakTokenCount counts tokens below the weak threshold.
	WeakTokenCount int `json:"weak_token_count"`

	// LongestWeakRun is the longest run of consecutive weak tokens.
	LongestWeakRun int `json:"longest_weak_run"`
}

// ConfidenceValidationResult is the verdict over one generation call.
type ConfidenceValidationResult struct {
	Score       float64           `json:"score"`
	IsValid     bool              `json:"is_valid"`
	Level       ConfidenceLevel   `json:"level"`
	Metrics     ConfidenceMetrics `json:"metrics"`
	Uncertainty UncertaintyKind   `json:"uncertainty"`

	// WeakTokens lists the weakest tokens, lowest log-prob first.
	WeakTokens []LogProbToken `json:"weak_tokens,omitempty"`

	// Penalties names each risk penalty applied to the score.
	Penalties []string `json:"penalties,omitempty"`

	Usage TokenUsage `json:"usage"`
}

// Summary renders the verdict for annotations such as "[Confidence: High]".
func (r ConfidenceValidationResult) Summary() string {
	return "[Confidence: " + r.Level.String() + "]"
}
