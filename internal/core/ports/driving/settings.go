package driving

import "github.com/logos-health/logos/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Set stores one setting by dotted key (e.g. "rag.top_k").
	Set(key, value string) error

	// Validate checks that the configured providers can be constructed.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
