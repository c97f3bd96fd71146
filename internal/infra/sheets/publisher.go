package sheets

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/tariffops/tariffsync/internal/domain/tariff"
	"github.com/tariffops/tariffsync/internal/observability"
)

const (
	clearRange  = "A1:Z1000"
	updateRange = "A1"

	// notAvailable marks absent values for human readers of the sheet.
	notAvailable = "N/A"
)

// headerRow is the fixed first row of every published sheet. Column order is
// an external contract and must not change.
var headerRow = []any{
	"Склад",
	"Доставка (выр)",
	"Доставка (база)",
	"Доставка (литр)",
	"Хранение (база)",
	"Хранение (литр)",
	"Действует до",
}

// PublishResult reports the outcome for a single sink.
type PublishResult struct {
	SpreadsheetID string
	Success       bool
	Err           error
}

// Publisher fans a tariff snapshot out to registered spreadsheet sinks.
// Sinks are processed sequentially so one sink's failure cannot disturb the
// others and write traffic stays within the Sheets per-minute quota.
type Publisher struct {
	api     API
	limiter *rate.Limiter
}

// NewPublisher wraps the given API. The limiter paces write calls at one per
// second, under the default Sheets user quota.
func NewPublisher(api API) *Publisher {
	return &Publisher{
		api:     api,
		limiter: rate.NewLimiter(rate.Every(rateInterval), 1),
	}
}

// Publish writes the records to every sink and returns one result per sink,
// in the order the sinks were supplied. Records are written in their supplied
// order; callers sort before calling if presentation order matters.
func (p *Publisher) Publish(ctx context.Context, sinkIDs []string, records []tariff.Record) []PublishResult {
	values := buildValues(records)
	results := make([]PublishResult, 0, len(sinkIDs))
	for _, id := range sinkIDs {
		result := PublishResult{SpreadsheetID: id}
		if err := p.publishOne(ctx, id, values); err != nil {
			result.Err = err
			observability.Log().Error("sheet publish failed",
				observability.F("spreadsheet_id", id),
				observability.F("error", err.Error()))
		} else {
			result.Success = true
			observability.Log().Info("sheet published",
				observability.F("spreadsheet_id", id),
				observability.F("rows", len(values)))
		}
		observability.RecordPublishResult(ctx, result.Success)
		results = append(results, result)
	}
	return results
}

func (p *Publisher) publishOne(ctx context.Context, spreadsheetID string, values [][]any) error {
	if err := p.wait(ctx); err != nil {
		return err
	}
	if err := p.api.VerifyAccess(ctx, spreadsheetID); err != nil {
		return classifyAccessError(spreadsheetID, err)
	}
	if err := p.wait(ctx); err != nil {
		return err
	}
	if err := p.api.Clear(ctx, spreadsheetID, clearRange); err != nil {
		return classifyAccessError(spreadsheetID, err)
	}
	if err := p.wait(ctx); err != nil {
		return err
	}
	if err := p.api.Update(ctx, spreadsheetID, updateRange, values); err != nil {
		return classifyAccessError(spreadsheetID, err)
	}
	return nil
}

func (p *Publisher) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

// buildValues projects records into the 7-column sheet layout: header row
// first, then one row per record in input order.
func buildValues(records []tariff.Record) [][]any {
	values := make([][]any, 0, len(records)+1)
	values = append(values, headerRow)
	for _, record := range records {
		values = append(values, []any{
			textOrMarker(record.WarehouseName),
			decimalOrMarker(record.DeliveryAndStorageExpr),
			decimalOrMarker(record.DeliveryBase),
			decimalOrMarker(record.DeliveryLiter),
			decimalOrMarker(record.StorageBase),
			decimalOrMarker(record.StorageLiter),
			dateOrMarker(record.ValidUntil),
		})
	}
	return values
}
