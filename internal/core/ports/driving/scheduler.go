package driving

import (
	"context"

	"github.com/logos-health/logos/internal/core/domain"
)

// Scheduler runs background tasks such as reconciling interrupted ingestions.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error

	// Tasks returns a snapshot of the scheduled tasks.
	Tasks() []domain.ScheduledTask
}
