package postgres

import (
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// numericFromOptional converts an optional decimal into a pgtype.Numeric.
// A nil input encodes as SQL NULL.
func numericFromOptional(value *decimal.Decimal) (pgtype.Numeric, error) {
	var out pgtype.Numeric
	if value == nil {
		return out, nil
	}
	if err := out.Scan(value.String()); err != nil {
		return out, fmt.Errorf("parse numeric %q: %w", value.String(), err)
	}
	return out, nil
}

// decimalFromText converts a numeric column selected as text back into an
// optional decimal.
func decimalFromText(value sql.NullString) (*decimal.Decimal, error) {
	if !value.Valid {
		return nil, nil
	}
	parsed, err := decimal.NewFromString(value.String)
	if err != nil {
		return nil, fmt.Errorf("parse numeric column %q: %w", value.String, err)
	}
	return &parsed, nil
}

func nullableText(ptr *string) any {
	if ptr == nil {
		return nil
	}
	return *ptr
}

func optionalFromNull(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	text := value.String
	return &text
}
