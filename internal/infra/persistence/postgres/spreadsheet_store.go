package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tariffops/tariffsync/errs"
)

// SpreadsheetStore manages registered sink spreadsheet identifiers. The
// pipeline reads registrations; registration itself happens out of band
// (seed scripts, operators).
type SpreadsheetStore struct {
	pool *pgxpool.Pool
}

// NewSpreadsheetStore constructs a SpreadsheetStore backed by the provided pool.
func NewSpreadsheetStore(pool *pgxpool.Pool) *SpreadsheetStore {
	return &SpreadsheetStore{pool: pool}
}

func (s *SpreadsheetStore) ensurePool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, errs.New(component, errs.CodeInvalid, errs.WithMessage("spreadsheet store: nil pool"))
	}
	return s.pool, nil
}

// ListSpreadsheets returns registered spreadsheet IDs in registration order.
func (s *SpreadsheetStore) ListSpreadsheets(ctx context.Context) ([]string, error) {
	pool, err := s.ensurePool()
	if err != nil {
		return nil, err
	}
	if err := ensureTable(ctx, pool, "spreadsheets"); err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := pool.Query(queryCtx, "SELECT spreadsheet_id FROM spreadsheets ORDER BY id ASC")
	if err != nil {
		return nil, persistenceError("list spreadsheets", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, persistenceError("scan spreadsheet id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("iterate spreadsheets", err)
	}
	return ids, nil
}

// RegisterSpreadsheet records a sink identifier; registering an existing ID
// is a no-op.
func (s *SpreadsheetStore) RegisterSpreadsheet(ctx context.Context, spreadsheetID string) error {
	pool, err := s.ensurePool()
	if err != nil {
		return err
	}
	trimmed := strings.TrimSpace(spreadsheetID)
	if trimmed == "" {
		return errs.New(component, errs.CodeInvalid, errs.WithMessage("spreadsheet id required"))
	}
	if err := ensureTable(ctx, pool, "spreadsheets"); err != nil {
		return err
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const query = `
INSERT INTO spreadsheets (spreadsheet_id, created_at, updated_at)
VALUES ($1, NOW(), NOW())
ON CONFLICT (spreadsheet_id) DO NOTHING;`
	if _, err := pool.Exec(queryCtx, query, trimmed); err != nil {
		return persistenceError("register spreadsheet", err)
	}
	return nil
}
