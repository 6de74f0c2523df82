package confidence

import "github.com/logos-health/logos/internal/core/domain"

// Score bands of the categorical level.
const (
	certainScore = 0.85
	highScore    = 0.65
	mediumScore  = 0.5
	lowScore     = 0.3
)

// A Certain verdict also needs these statistics.
const (
	certainMaxPerplexity = 2.0
	certainMaxEntropy    = 0.4
	certainMinTokenProb  = 0.2
)

// ScoreLevel maps a score to its band.
func ScoreLevel(score float64) domain.ConfidenceLevel {
	switch {
	case score >= certainScore:
		return domain.ConfidenceCertain
	case score >= highScore:
		return domain.ConfidenceHigh
	case score >= mediumScore:
		return domain.ConfidenceMedium
	case score >= lowScore:
		return domain.ConfidenceLow
	default:
		return domain.ConfidenceUncertain
	}
}

// PerplexityLevel rates perplexity on its own scale.
func PerplexityLevel(perplexity float64) domain.ConfidenceLevel {
	switch {
	case perplexity < 1.5:
		return domain.ConfidenceCertain
	case perplexity < 3:
		return domain.ConfidenceHigh
	case perplexity < 6:
		return domain.ConfidenceMedium
	case perplexity < 15:
		return domain.ConfidenceLow
	default:
		return domain.ConfidenceUncertain
	}
}

// EntropyLevel rates the entropy proxy on its own scale. The proxy never
// exceeds 1/e, so only the top two bands are reachable with it.
func EntropyLevel(entropy float64) domain.ConfidenceLevel {
	switch {
	case entropy < 0.2:
		return domain.ConfidenceCertain
	case entropy < 0.6:
		return domain.ConfidenceHigh
	case entropy < 1.2:
		return domain.ConfidenceMedium
	case entropy < 2.0:
		return domain.ConfidenceLow
	default:
		return domain.ConfidenceUncertain
	}
}

// Level maps a score to a level, then applies the vetoes: critical
// perplexity or entropy caps the level at Low, and Certain additionally
// requires low perplexity, low entropy and no very unlikely token.
func Level(score float64, m domain.ConfidenceMetrics, th Thresholds) domain.ConfidenceLevel {
	level := ScoreLevel(score)

	if m.Perplexity > th.CriticalPerplexity || m.Entropy > th.CriticalEntropy {
		return min(level, domain.ConfidenceLow)
	}

	if level == domain.ConfidenceCertain &&
		(m.Perplexity > certainMaxPerplexity ||
			m.Entropy > certainMaxEntropy ||
			m.WeakestToken.Probability() < certainMinTokenProb) {
		return domain.ConfidenceHigh
	}
	return level
}
