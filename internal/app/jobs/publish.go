package jobs

import (
	"context"

	"github.com/tariffops/tariffsync/internal/domain/tariff"
	"github.com/tariffops/tariffsync/internal/infra/sheets"
	"github.com/tariffops/tariffsync/internal/observability"
)

// SnapshotReader provides the latest tariff snapshot.
type SnapshotReader interface {
	LatestTariffs(ctx context.Context) ([]tariff.Record, error)
}

// SinkRegistry lists the registered spreadsheet destinations.
type SinkRegistry interface {
	ListSpreadsheets(ctx context.Context) ([]string, error)
}

// SinkPublisher fans a snapshot out to the given sinks.
type SinkPublisher interface {
	Publish(ctx context.Context, sinkIDs []string, records []tariff.Record) []sheets.PublishResult
}

// PublishJob pushes the latest snapshot to every registered spreadsheet.
// Spreadsheet sync is optional: a missing publisher, an empty sink registry
// or an empty snapshot all end the run quietly. A partial sink failure is
// logged per sink but does not fail the job.
type PublishJob struct {
	reader    SnapshotReader
	registry  SinkRegistry
	publisher SinkPublisher
}

func NewPublishJob(reader SnapshotReader, registry SinkRegistry, publisher SinkPublisher) *PublishJob {
	return &PublishJob{reader: reader, registry: registry, publisher: publisher}
}

func (j *PublishJob) Run(ctx context.Context) error {
	if j.publisher == nil {
		observability.Log().Info("sheet publishing disabled, skipping")
		return nil
	}

	sinkIDs, err := j.registry.ListSpreadsheets(ctx)
	if err != nil {
		observability.Log().Error("list spreadsheets failed",
			observability.F("error", err.Error()))
		return err
	}
	if len(sinkIDs) == 0 {
		observability.Log().Info("no spreadsheets registered, skipping publish")
		return nil
	}

	records, err := j.reader.LatestTariffs(ctx)
	if err != nil {
		observability.Log().Error("load latest tariffs failed",
			observability.F("error", err.Error()))
		return err
	}
	if len(records) == 0 {
		observability.Log().Info("no tariffs to publish yet, skipping")
		return nil
	}

	results := j.publisher.Publish(ctx, sinkIDs, records)

	failed := 0
	for _, result := range results {
		if !result.Success {
			failed++
		}
	}
	if failed > 0 {
		observability.Log().Error("publish completed with sink failures",
			observability.F("sinks", len(results)),
			observability.F("failed", failed))
		return nil
	}

	observability.Log().Info("publish completed",
		observability.F("sinks", len(results)),
		observability.F("records", len(records)))
	return nil
}
