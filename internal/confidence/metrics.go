package confidence

import (
	"math"
	"sort"
	"unicode"

	"github.com/logos-health/logos/internal/core/domain"
)

// maxReportedWeakTokens bounds the weak tokens listed in a result.
const maxReportedWeakTokens = 5

// FilterNoise drops tokens made only of punctuation, whitespace or symbols.
func FilterNoise(tokens []domain.LogProbToken) []domain.LogProbToken {
	kept := make([]domain.LogProbToken, 0, len(tokens))
	for _, t := range tokens {
		if hasSignal(t.Token) {
			kept = append(kept, t)
		}
	}
	return kept
}

func hasSignal(token string) bool {
	for _, r := range token {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// ComputeMetrics derives the raw statistics of a non-empty token sequence.
func ComputeMetrics(tokens []domain.LogProbToken, th Thresholds) domain.ConfidenceMetrics {
	n := len(tokens)
	m := domain.ConfidenceMetrics{TokenCount: n}
	if n == 0 {
		return m
	}

	var sumLogProb, sumEntropy float64
	run := 0
	m.WeakestToken = tokens[0]
	for _, t := range tokens {
		sumLogProb += t.LogProb
		p := t.Probability()
		// -p*ln(p) of the chosen token only; the full distribution is not available.
		sumEntropy += -p * t.LogProb

		if t.LogProb < m.WeakestToken.LogProb {
			m.WeakestToken = t
		}

		if p < th.WeakTokenProbability {
			m.WeakTokenCount++
			run++
			if run > m.LongestWeakRun {
				m.LongestWeakRun = run
			}
		} else {
			run = 0
		}
	}

	mean := sumLogProb / float64(n)
	m.TokenConfidence = math.Exp(mean)
	m.Perplexity = math.Exp(-mean)
	m.Entropy = sumEntropy / float64(n)
	m.LengthNormalization = LengthNormalization(n, th.LengthAlpha)
	m.LengthFactor = math.Exp(-th.LengthDamping * math.Log(m.LengthNormalization))
	return m
}

// LengthNormalization is the Wu et al. length penalty (5+n)^alpha / 6^alpha.
func LengthNormalization(n int, alpha float64) float64 {
	return math.Pow(5+float64(n), alpha) / math.Pow(6, alpha)
}

// WeakTokens returns up to five tokens below the weak threshold,
// lowest log-prob first.
func WeakTokens(tokens []domain.LogProbToken, th Thresholds) []domain.LogProbToken {
	var weak []domain.LogProbToken
	for _, t := range tokens {
		if t.Probability() < th.WeakTokenProbability {
			weak = append(weak, t)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool {
		return weak[i].LogProb < weak[j].LogProb
	})
	if len(weak) > maxReportedWeakTokens {
		weak = weak[:maxReportedWeakTokens]
	}
	return weak
}

// ClassifyUncertainty labels how weak tokens are spread over the output.
func ClassifyUncertainty(m domain.ConfidenceMetrics, th Thresholds) domain.UncertaintyKind {
	if m.WeakTokenCount == 0 {
		return domain.UncertaintyNone
	}
	fraction := float64(m.WeakTokenCount) / float64(m.TokenCount)
	if m.WeakTokenCount <= th.FocalMaxWeakTokens && fraction < th.FocalMaxWeakFraction {
		return domain.UncertaintyFocal
	}
	return domain.UncertaintyDiffuse
}
