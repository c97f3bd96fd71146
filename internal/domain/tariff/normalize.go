package tariff

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseNumber converts a provider-encoded decimal string into a decimal value.
// The provider uses "," as the fractional separator and "-" as an explicit
// "no value" sentinel. "-", empty strings, and unparseable input all yield
// nil; ParseNumber never fails.
func ParseNumber(value string) *decimal.Decimal {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || trimmed == "-" {
		return nil
	}
	parsed, err := decimal.NewFromString(strings.ReplaceAll(trimmed, ",", "."))
	if err != nil {
		return nil
	}
	return &parsed
}

// OptionalString returns nil for blank input, otherwise a pointer to the
// trimmed value.
func OptionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
