// Package jobs holds the scheduled units of work of the tariff pipeline.
package jobs

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/tariffops/tariffsync/errs"
	"github.com/tariffops/tariffsync/internal/domain/tariff"
	"github.com/tariffops/tariffsync/internal/observability"
)

const (
	fetchAttempts   = 3
	fetchRetryDelay = 5 * time.Second
)

// TariffFetcher retrieves the provider snapshot for a calendar date.
type TariffFetcher interface {
	FetchTariffs(ctx context.Context, date time.Time) ([]tariff.Record, error)
}

// TariffWriter persists a fetched snapshot.
type TariffWriter interface {
	BatchUpsert(ctx context.Context, records []tariff.Record) error
}

// FetchJob pulls today's tariffs from the provider and upserts them.
type FetchJob struct {
	fetcher TariffFetcher
	writer  TariffWriter
	clock   func() time.Time
	sleep   func(context.Context, time.Duration) error
}

func NewFetchJob(fetcher TariffFetcher, writer TariffWriter) *FetchJob {
	return &FetchJob{
		fetcher: fetcher,
		writer:  writer,
		clock:   time.Now,
		sleep:   sleepContext,
	}
}

// Run fetches the snapshot for the current day with bounded retry and writes
// it to the store. Provider failures are retried up to fetchAttempts times
// with a fixed delay; persistence and schema failures are terminal
// immediately. An empty snapshot is a successful run with nothing to write.
func (j *FetchJob) Run(ctx context.Context) error {
	day := tariff.Day(j.clock())
	records, err := j.fetchWithRetry(ctx, day)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		observability.Log().Info("provider returned no tariffs",
			observability.F("date", day.Format("2006-01-02")))
		return nil
	}

	if err := j.writer.BatchUpsert(ctx, records); err != nil {
		observability.Log().Error("tariff persistence failed",
			observability.F("date", day.Format("2006-01-02")),
			observability.F("error", err.Error()))
		return err
	}

	observability.Log().Info("tariff fetch completed",
		observability.F("date", day.Format("2006-01-02")),
		observability.F("records", len(records)))
	return nil
}

func (j *FetchJob) fetchWithRetry(ctx context.Context, day time.Time) ([]tariff.Record, error) {
	policy := backoff.NewConstantBackOff(fetchRetryDelay)

	var lastErr error
	for attempt := 1; attempt <= fetchAttempts; attempt++ {
		records, err := j.fetcher.FetchTariffs(ctx, day)
		if err == nil {
			observability.RecordFetchAttempt(ctx, "success")
			return records, nil
		}
		lastErr = err
		observability.RecordFetchAttempt(ctx, "failure")
		observability.Log().Error("tariff fetch attempt failed",
			observability.F("attempt", attempt),
			observability.F("error", err.Error()))

		if !errs.IsRetryable(err) {
			return nil, err
		}
		if attempt == fetchAttempts {
			break
		}
		if err := j.sleep(ctx, policy.NextBackOff()); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
