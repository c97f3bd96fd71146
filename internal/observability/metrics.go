package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/tariffops/tariffsync/internal/infra/telemetry"
)

const meterName = "tariffsync.pipeline"

var (
	metricsOnce sync.Once

	fetchAttempts  metric.Int64Counter
	rowsUpserted   metric.Int64Counter
	publishResults metric.Int64Counter
)

func initMetrics() {
	metricsOnce.Do(func() {
		meter := otel.Meter(meterName)
		if counter, err := meter.Int64Counter("tariffsync_fetch_attempts_total",
			metric.WithDescription("Provider fetch attempts by outcome"),
			metric.WithUnit("{attempt}")); err == nil {
			fetchAttempts = counter
		}
		if counter, err := meter.Int64Counter("tariffsync_rows_upserted_total",
			metric.WithDescription("Tariff rows written through batch upsert"),
			metric.WithUnit("{row}")); err == nil {
			rowsUpserted = counter
		}
		if counter, err := meter.Int64Counter("tariffsync_publish_results_total",
			metric.WithDescription("Per-sink publish outcomes"),
			metric.WithUnit("{sink}")); err == nil {
			publishResults = counter
		}
	})
}

// RecordFetchAttempt counts one provider fetch attempt with its outcome label.
func RecordFetchAttempt(ctx context.Context, outcome string) {
	initMetrics()
	if fetchAttempts == nil {
		return
	}
	fetchAttempts.Add(ctx, 1, metric.WithAttributes(telemetry.OutcomeAttributes(outcome)...))
}

// RecordRowsUpserted counts tariff rows committed by the store.
func RecordRowsUpserted(ctx context.Context, n int) {
	initMetrics()
	if rowsUpserted == nil || n <= 0 {
		return
	}
	rowsUpserted.Add(ctx, int64(n))
}

// RecordPublishResult counts one sink publish outcome.
func RecordPublishResult(ctx context.Context, success bool) {
	initMetrics()
	if publishResults == nil {
		return
	}
	outcome := telemetry.OutcomeSuccess
	if !success {
		outcome = telemetry.OutcomeFailure
	}
	publishResults.Add(ctx, 1, metric.WithAttributes(telemetry.OutcomeAttributes(outcome)...))
}
