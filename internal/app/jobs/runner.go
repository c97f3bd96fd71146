package jobs

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tariffops/tariffsync/internal/observability"
)

// Job is a single schedulable unit of work.
type Job interface {
	Run(ctx context.Context) error
}

// Runner executes a named job while guaranteeing that overlapping trigger
// firings never run the job concurrently. The lock is scoped to the Runner
// instance, so independent pipelines do not interfere with each other.
type Runner struct {
	name string
	job  Job
	mu   sync.Mutex
}

func NewRunner(name string, job Job) *Runner {
	return &Runner{name: name, job: job}
}

// Run executes the job unless a previous execution is still in flight, in
// which case the firing is skipped and logged.
func (r *Runner) Run(ctx context.Context) error {
	if !r.mu.TryLock() {
		observability.Log().Info("job already running, skipping trigger",
			observability.F("job", r.name))
		return nil
	}
	defer r.mu.Unlock()

	runID := uuid.NewString()
	observability.Log().Debug("job started",
		observability.F("job", r.name),
		observability.F("run_id", runID))

	if err := r.job.Run(ctx); err != nil {
		observability.Log().Error("job failed",
			observability.F("job", r.name),
			observability.F("run_id", runID),
			observability.F("error", err.Error()))
		return err
	}

	observability.Log().Debug("job finished",
		observability.F("job", r.name),
		observability.F("run_id", runID))
	return nil
}
