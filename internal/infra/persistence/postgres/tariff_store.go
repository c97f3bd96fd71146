// Package postgres implements PostgreSQL-backed persistence for the tariff pipeline.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tariffops/tariffsync/errs"
	"github.com/tariffops/tariffsync/internal/domain/tariff"
	"github.com/tariffops/tariffsync/internal/observability"
)

const (
	component = "store"

	// chunkSize bounds statement size only; chunk boundaries carry no
	// transactional meaning.
	chunkSize    = 100
	queryTimeout = 10 * time.Second

	tariffColumnsPerRow = 9

	tariffInsertPrefix = `
INSERT INTO tariffs (
    date,
    warehouse_name,
    box_delivery_and_storage_expr,
    box_delivery_base,
    box_delivery_liter,
    box_storage_base,
    box_storage_liter,
    dt_till_max,
    dt_next_box,
    created_at,
    updated_at
)
VALUES `

	tariffConflictSuffix = `
ON CONFLICT (date, warehouse_name) DO UPDATE SET
    box_delivery_and_storage_expr = EXCLUDED.box_delivery_and_storage_expr,
    box_delivery_base = EXCLUDED.box_delivery_base,
    box_delivery_liter = EXCLUDED.box_delivery_liter,
    box_storage_base = EXCLUDED.box_storage_base,
    box_storage_liter = EXCLUDED.box_storage_liter,
    dt_till_max = EXCLUDED.dt_till_max,
    dt_next_box = EXCLUDED.dt_next_box,
    updated_at = NOW();`

	tariffSelectBase = `
SELECT
    t.date,
    t.warehouse_name,
    t.box_delivery_and_storage_expr::text,
    t.box_delivery_base::text,
    t.box_delivery_liter::text,
    t.box_storage_base::text,
    t.box_storage_liter::text,
    t.dt_till_max,
    t.dt_next_box,
    t.created_at,
    t.updated_at
FROM tariffs t
`
)

// TariffStore persists warehouse tariff snapshots.
type TariffStore struct {
	pool  *pgxpool.Pool
	clock func() time.Time
}

// NewTariffStore constructs a TariffStore backed by the provided pool.
func NewTariffStore(pool *pgxpool.Pool) *TariffStore {
	return &TariffStore{pool: pool, clock: time.Now}
}

// PeriodQuery filters TariffsByPeriod results.
type PeriodQuery struct {
	From   time.Time
	To     *time.Time
	Limit  int
	Offset int
}

func (s *TariffStore) ensurePool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, errs.New(component, errs.CodeInvalid, errs.WithMessage("tariff store: nil pool"))
	}
	return s.pool, nil
}

// ensureTable verifies the expected table exists before each operation.
// Absence indicates a deployment problem (migrations not applied), surfaced
// distinctly from transient data failures.
func ensureTable(ctx context.Context, pool *pgxpool.Pool, table string) error {
	checkCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var regclass sql.NullString
	if err := pool.QueryRow(checkCtx, "SELECT to_regclass($1)", "public."+table).Scan(&regclass); err != nil {
		return persistenceError(fmt.Sprintf("check table %s", table), err)
	}
	if !regclass.Valid {
		return errs.New(component, errs.CodeSchema,
			errs.WithMessage(fmt.Sprintf("table %s does not exist; run migrations", table)))
	}
	return nil
}

func persistenceError(op string, err error) error {
	message := op
	if errors.Is(err, context.DeadlineExceeded) {
		message = op + ": query timeout"
	}
	return errs.New(component, errs.CodePersistence, errs.WithMessage(message), errs.WithCause(err))
}

// BatchUpsert writes records in chunks inside one transaction: all chunks
// commit or all roll back. Conflicts on (date, warehouse_name) overwrite the
// tariff fields and updated_at while created_at keeps its original value.
// Timestamps are assigned by the database, never by the caller.
func (s *TariffStore) BatchUpsert(ctx context.Context, records []tariff.Record) error {
	if len(records) == 0 {
		observability.Log().Info("batch upsert skipped: no records")
		return nil
	}
	pool, err := s.ensurePool()
	if err != nil {
		return err
	}
	if err := ensureTable(ctx, pool, "tariffs"); err != nil {
		return err
	}

	var txOptions pgx.TxOptions
	txOptions.IsoLevel = pgx.ReadCommitted
	txOptions.AccessMode = pgx.ReadWrite

	tx, err := pool.BeginTx(ctx, txOptions)
	if err != nil {
		return persistenceError("begin tx", err)
	}

	for offset := 0; offset < len(records); offset += chunkSize {
		end := offset + chunkSize
		if end > len(records) {
			end = len(records)
		}
		if err := upsertChunk(ctx, tx, records[offset:end]); err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				observability.Log().Error("rollback failed", observability.F("error", rbErr))
			}
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return persistenceError("commit tx", err)
	}

	observability.RecordRowsUpserted(ctx, len(records))
	observability.Log().Info("tariffs upserted",
		observability.F("rows", len(records)),
		observability.F("chunks", (len(records)+chunkSize-1)/chunkSize))
	return nil
}

func upsertChunk(ctx context.Context, tx pgx.Tx, chunk []tariff.Record) error {
	builder := strings.Builder{}
	builder.WriteString(tariffInsertPrefix)
	args := make([]any, 0, len(chunk)*tariffColumnsPerRow)

	for i, record := range chunk {
		if i > 0 {
			builder.WriteString(",\n")
		}
		base := i * tariffColumnsPerRow
		fmt.Fprintf(&builder, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, NOW(), NOW())",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9)

		args = append(args, record.Date, record.WarehouseName)
		for _, value := range []*decimal.Decimal{
			record.DeliveryAndStorageExpr,
			record.DeliveryBase,
			record.DeliveryLiter,
			record.StorageBase,
			record.StorageLiter,
		} {
			encoded, err := numericFromOptional(value)
			if err != nil {
				return errs.New(component, errs.CodeInvalid, errs.WithMessage("encode tariff row"), errs.WithCause(err))
			}
			args = append(args, encoded)
		}
		args = append(args, nullableText(record.ValidUntil), nullableText(record.NextBoxDate))
	}
	builder.WriteString(tariffConflictSuffix)

	chunkCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if _, err := tx.Exec(chunkCtx, builder.String(), args...); err != nil {
		return persistenceError("upsert chunk", err)
	}
	return nil
}

// LatestTariffs returns all records dated today or later (local midnight
// boundary), cheapest warehouses first.
func (s *TariffStore) LatestTariffs(ctx context.Context) ([]tariff.Record, error) {
	pool, err := s.ensurePool()
	if err != nil {
		return nil, err
	}
	if err := ensureTable(ctx, pool, "tariffs"); err != nil {
		return nil, err
	}

	query := tariffSelectBase + ` WHERE t.date >= $1
ORDER BY t.box_delivery_and_storage_expr ASC, t.warehouse_name ASC`

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := pool.Query(queryCtx, query, tariff.Day(s.clock()))
	if err != nil {
		return nil, persistenceError("latest tariffs", err)
	}
	defer rows.Close()

	return scanTariffRows(rows)
}

// TariffsByPeriod returns records within [From, To] ordered by date then
// warehouse name, with optional limit/offset pagination.
func (s *TariffStore) TariffsByPeriod(ctx context.Context, query PeriodQuery) ([]tariff.Record, error) {
	if query.From.IsZero() {
		return nil, errs.New(component, errs.CodeInvalid, errs.WithMessage("period query: from date required"))
	}
	pool, err := s.ensurePool()
	if err != nil {
		return nil, err
	}
	if err := ensureTable(ctx, pool, "tariffs"); err != nil {
		return nil, err
	}

	builder := strings.Builder{}
	builder.WriteString(tariffSelectBase)
	builder.WriteString(" WHERE t.date >= $1")

	args := []any{tariff.Day(query.From)}
	argPos := 2

	if query.To != nil {
		fmt.Fprintf(&builder, " AND t.date <= $%d", argPos)
		args = append(args, tariff.Day(*query.To))
		argPos++
	}
	builder.WriteString(" ORDER BY t.date ASC, t.warehouse_name ASC")
	if query.Limit > 0 {
		fmt.Fprintf(&builder, " LIMIT $%d", argPos)
		args = append(args, query.Limit)
		argPos++
	}
	if query.Offset > 0 {
		fmt.Fprintf(&builder, " OFFSET $%d", argPos)
		args = append(args, query.Offset)
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := pool.Query(queryCtx, builder.String(), args...)
	if err != nil {
		return nil, persistenceError("tariffs by period", err)
	}
	defer rows.Close()

	return scanTariffRows(rows)
}

// HasAnyTariffs reports whether at least one tariff row exists.
func (s *TariffStore) HasAnyTariffs(ctx context.Context) (bool, error) {
	pool, err := s.ensurePool()
	if err != nil {
		return false, err
	}
	if err := ensureTable(ctx, pool, "tariffs"); err != nil {
		return false, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	if err := pool.QueryRow(queryCtx, "SELECT EXISTS (SELECT 1 FROM tariffs)").Scan(&exists); err != nil {
		return false, persistenceError("has any tariffs", err)
	}
	return exists, nil
}

// AvailableDates returns the distinct dates covered by stored tariffs,
// newest first.
func (s *TariffStore) AvailableDates(ctx context.Context) ([]time.Time, error) {
	pool, err := s.ensurePool()
	if err != nil {
		return nil, err
	}
	if err := ensureTable(ctx, pool, "tariffs"); err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := pool.Query(queryCtx, "SELECT DISTINCT date FROM tariffs ORDER BY date DESC")
	if err != nil {
		return nil, persistenceError("available dates", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var date time.Time
		if err := rows.Scan(&date); err != nil {
			return nil, persistenceError("scan date", err)
		}
		dates = append(dates, date)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("iterate dates", err)
	}
	return dates, nil
}

// WarehouseNames returns the distinct warehouse names seen so far.
func (s *TariffStore) WarehouseNames(ctx context.Context) ([]string, error) {
	pool, err := s.ensurePool()
	if err != nil {
		return nil, err
	}
	if err := ensureTable(ctx, pool, "tariffs"); err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := pool.Query(queryCtx, "SELECT DISTINCT warehouse_name FROM tariffs ORDER BY warehouse_name ASC")
	if err != nil {
		return nil, persistenceError("warehouse names", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, persistenceError("scan warehouse name", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("iterate warehouse names", err)
	}
	return names, nil
}

func scanTariffRows(rows pgx.Rows) ([]tariff.Record, error) {
	var records []tariff.Record
	for rows.Next() {
		var (
			date          time.Time
			warehouseName string
			expr          sql.NullString
			deliveryBase  sql.NullString
			deliveryLiter sql.NullString
			storageBase   sql.NullString
			storageLiter  sql.NullString
			tillMax       sql.NullString
			nextBox       sql.NullString
			createdAt     time.Time
			updatedAt     time.Time
		)
		if err := rows.Scan(
			&date,
			&warehouseName,
			&expr,
			&deliveryBase,
			&deliveryLiter,
			&storageBase,
			&storageLiter,
			&tillMax,
			&nextBox,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, persistenceError("scan tariff", err)
		}

		record := tariff.Record{
			Date:          date,
			WarehouseName: warehouseName,
			ValidUntil:    optionalFromNull(tillMax),
			NextBoxDate:   optionalFromNull(nextBox),
			CreatedAt:     createdAt,
			UpdatedAt:     updatedAt,
		}
		var err error
		if record.DeliveryAndStorageExpr, err = decimalFromText(expr); err != nil {
			return nil, persistenceError("decode tariff", err)
		}
		if record.DeliveryBase, err = decimalFromText(deliveryBase); err != nil {
			return nil, persistenceError("decode tariff", err)
		}
		if record.DeliveryLiter, err = decimalFromText(deliveryLiter); err != nil {
			return nil, persistenceError("decode tariff", err)
		}
		if record.StorageBase, err = decimalFromText(storageBase); err != nil {
			return nil, persistenceError("decode tariff", err)
		}
		if record.StorageLiter, err = decimalFromText(storageLiter); err != nil {
			return nil, persistenceError("decode tariff", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("iterate tariffs", err)
	}
	return records, nil
}
