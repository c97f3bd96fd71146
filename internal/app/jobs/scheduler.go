package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tariffops/tariffsync/internal/config"
	"github.com/tariffops/tariffsync/internal/observability"
)

// Scheduler wires the fetch and publish runners to their cron triggers.
// Schedules are read once at construction and evaluated in UTC.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers both jobs against their configured expressions.
// Each trigger firing runs in its own goroutine under the supplied context.
func NewScheduler(ctx context.Context, cfg config.ScheduleConfig, fetch, publish *Runner) (*Scheduler, error) {
	c := cron.New(cron.WithLocation(time.UTC))

	if _, err := c.AddFunc(cfg.FetchCron, func() { runTrigger(ctx, fetch) }); err != nil {
		return nil, err
	}
	if _, err := c.AddFunc(cfg.PublishCron, func() { runTrigger(ctx, publish) }); err != nil {
		return nil, err
	}

	return &Scheduler{cron: c}, nil
}

func runTrigger(ctx context.Context, runner *Runner) {
	if ctx.Err() != nil {
		return
	}
	_ = runner.Run(ctx)
}

// Start begins firing triggers.
func (s *Scheduler) Start() {
	s.cron.Start()
	observability.Log().Info("scheduler started",
		observability.F("entries", len(s.cron.Entries())))
}

// Stop halts new firings and waits for in-flight jobs to finish or the
// context to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
