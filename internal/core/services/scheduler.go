package services

import (
	"context"
	"sync"
	"time"

	"github.com/logos-health/logos/internal/core/domain"
	"github.com/logos-health/logos/internal/core/ports/driving"
	"github.com/logos-health/logos/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler periodically reconciles documents whose ingestion was
// interrupted. It is a pure core service with no external control API.
type Scheduler struct {
	ingestion driving.IngestionService
	now       func() time.Time

	mu      sync.Mutex
	task    domain.ScheduledTask
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler that runs Reconcile every interval.
// A non-positive interval uses domain.DefaultReconcileInterval.
func NewScheduler(ingestion driving.IngestionService, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = domain.DefaultReconcileInterval
	}
	return &Scheduler{
		ingestion: ingestion,
		now:       time.Now,
		task: domain.ScheduledTask{
			ID:       domain.TaskIDReconcile,
			Name:     "Reconcile unprocessed documents",
			Interval: interval,
		},
	}
}

// Start runs the task immediately and then on every interval. This
// method blocks until Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	s.runTask(ctx)

	ticker := time.NewTicker(s.task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			s.runTask(ctx)
		}
	}
}

// Stop gracefully shuts down the scheduler, waiting for a running task.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Tasks returns a snapshot of the scheduled tasks.
func (s *Scheduler) Tasks() []domain.ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return []domain.ScheduledTask{s.task}
}

// runTask executes one reconciliation and records its outcome.
func (s *Scheduler) runTask(ctx context.Context) {
	result := domain.TaskResult{
		TaskID:    s.task.ID,
		StartedAt: s.now(),
	}

	bulk, err := s.ingestion.Reconcile(ctx)
	result.EndedAt = s.now()
	result.ItemsProcessed = len(bulk.Results)
	if err != nil {
		result.Error = err.Error()
		logger.Warn("scheduler: %s failed: %v", s.task.ID, err)
	} else {
		result.Success = true
		if len(bulk.Results) > 0 {
			logger.Info("scheduler: reconciled %d documents (%d failed)", len(bulk.Results), bulk.FailCount)
		}
	}

	s.mu.Lock()
	s.task.Apply(result)
	s.mu.Unlock()
}
