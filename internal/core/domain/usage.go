package domain

// TokenUsage counts provider tokens for one or more calls.
type TokenUsage struct {
	InputTokens int `json:"input_tokens"`
	TotalTokens int `json:"total_tokens"`
}

// Add returns the sum of two usages.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens: u.InputTokens + other.InputTokens,
		TotalTokens: u.TotalTokens + other.TotalTokens,
	}
}

// OutputTokens returns the tokens generated by the provider.
func (u TokenUsage) OutputTokens() int {
	return u.TotalTokens - u.InputTokens
}
