// Package tariff defines the warehouse tariff domain model and provider value normalization.
package tariff

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is one warehouse's box tariff for one calendar date.
// (Date, WarehouseName) is the identity key; re-ingesting the same pair
// overwrites the numeric fields and bumps UpdatedAt while CreatedAt survives.
type Record struct {
	Date          time.Time
	WarehouseName string

	DeliveryAndStorageExpr *decimal.Decimal
	DeliveryBase           *decimal.Decimal
	DeliveryLiter          *decimal.Decimal
	StorageBase            *decimal.Decimal
	StorageLiter           *decimal.Decimal

	// ValidUntil and NextBoxDate are opaque date-like strings shared across
	// one provider response; nil when the provider omitted them.
	ValidUntil  *string
	NextBoxDate *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Day truncates t to its calendar date, dropping the time component.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
