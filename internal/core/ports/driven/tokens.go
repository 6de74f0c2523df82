package driven

// TokenCounter estimates model tokens for a text.
type TokenCounter interface {
	Count(text string) int
}
