package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tariffops/tariffsync/errs"
	"github.com/tariffops/tariffsync/internal/domain/tariff"
)

type scriptedFetcher struct {
	responses []fetchResponse
	calls     int
	dates     []time.Time
}

type fetchResponse struct {
	records []tariff.Record
	err     error
}

func (f *scriptedFetcher) FetchTariffs(_ context.Context, date time.Time) ([]tariff.Record, error) {
	f.dates = append(f.dates, date)
	if f.calls >= len(f.responses) {
		return nil, errors.New("unexpected extra call")
	}
	resp := f.responses[f.calls]
	f.calls++
	return resp.records, resp.err
}

type recordingWriter struct {
	batches [][]tariff.Record
	err     error
}

func (w *recordingWriter) BatchUpsert(_ context.Context, records []tariff.Record) error {
	w.batches = append(w.batches, records)
	return w.err
}

func newTestFetchJob(fetcher TariffFetcher, writer TariffWriter, delays *[]time.Duration) *FetchJob {
	job := NewFetchJob(fetcher, writer)
	job.clock = func() time.Time {
		return time.Date(2026, time.January, 15, 9, 30, 0, 0, time.UTC)
	}
	job.sleep = func(_ context.Context, d time.Duration) error {
		if delays != nil {
			*delays = append(*delays, d)
		}
		return nil
	}
	return job
}

func providerErr() error {
	return errs.New("wbapi", errs.CodeProvider, errs.WithMessage("HTTP 500"))
}

func TestFetchJobSucceedsFirstAttempt(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []fetchResponse{
		{records: []tariff.Record{{WarehouseName: "Коледино"}}},
	}}
	writer := &recordingWriter{}
	job := newTestFetchJob(fetcher, writer, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected 1 fetch call, got %d", fetcher.calls)
	}
	if len(writer.batches) != 1 || len(writer.batches[0]) != 1 {
		t.Fatalf("expected one batch with one record, got %+v", writer.batches)
	}
	wantDay := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
	if !fetcher.dates[0].Equal(wantDay) {
		t.Fatalf("expected fetch for %v, got %v", wantDay, fetcher.dates[0])
	}
}

func TestFetchJobRetriesProviderFailures(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []fetchResponse{
		{err: providerErr()},
		{err: providerErr()},
		{records: []tariff.Record{{WarehouseName: "Тула"}}},
	}}
	writer := &recordingWriter{}
	var delays []time.Duration
	job := newTestFetchJob(fetcher, writer, &delays)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if fetcher.calls != 3 {
		t.Fatalf("expected 3 fetch calls, got %d", fetcher.calls)
	}
	if len(delays) != 2 {
		t.Fatalf("expected 2 retry delays, got %d", len(delays))
	}
	for _, d := range delays {
		if d != fetchRetryDelay {
			t.Fatalf("expected fixed %v delay, got %v", fetchRetryDelay, d)
		}
	}
}

func TestFetchJobGivesUpAfterAllAttempts(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []fetchResponse{
		{err: providerErr()},
		{err: providerErr()},
		{err: providerErr()},
	}}
	writer := &recordingWriter{}
	job := newTestFetchJob(fetcher, writer, nil)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if fetcher.calls != fetchAttempts {
		t.Fatalf("expected %d fetch calls, got %d", fetchAttempts, fetcher.calls)
	}
	if len(writer.batches) != 0 {
		t.Fatal("must not write after a failed fetch")
	}
}

func TestFetchJobDoesNotRetryPersistenceFailures(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []fetchResponse{
		{records: []tariff.Record{{WarehouseName: "Казань"}}},
	}}
	writer := &recordingWriter{err: errs.New("store", errs.CodePersistence, errs.WithMessage("query timeout"))}
	job := newTestFetchJob(fetcher, writer, nil)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected persistence error")
	}
	if fetcher.calls != 1 {
		t.Fatalf("persistence failure must not trigger refetch, got %d calls", fetcher.calls)
	}
}

func TestFetchJobDoesNotRetryTerminalFetchErrors(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []fetchResponse{
		{err: errs.New("store", errs.CodeSchema, errs.WithMessage("table missing"))},
	}}
	job := newTestFetchJob(fetcher, &recordingWriter{}, nil)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if fetcher.calls != 1 {
		t.Fatalf("non-provider errors are terminal, got %d calls", fetcher.calls)
	}
}

func TestFetchJobEmptySnapshotIsSuccess(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []fetchResponse{{records: nil}}}
	writer := &recordingWriter{}
	job := newTestFetchJob(fetcher, writer, nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(writer.batches) != 0 {
		t.Fatal("empty snapshot must not reach the writer")
	}
}

func TestFetchJobStopsWhenContextCancelledDuringBackoff(t *testing.T) {
	fetcher := &scriptedFetcher{responses: []fetchResponse{
		{err: providerErr()},
		{err: providerErr()},
	}}
	job := NewFetchJob(fetcher, &recordingWriter{})
	job.sleep = func(ctx context.Context, _ time.Duration) error {
		return context.Canceled
	}

	err := job.Run(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected no further attempts after cancellation, got %d", fetcher.calls)
	}
}
