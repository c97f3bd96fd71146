package sheets

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const rateInterval = time.Second

// validUntilLayouts covers the timestamp shapes the provider has been seen
// returning in dtTillMax.
var validUntilLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func textOrMarker(value string) string {
	if strings.TrimSpace(value) == "" {
		return notAvailable
	}
	return value
}

func decimalOrMarker(value *decimal.Decimal) string {
	if value == nil {
		return notAvailable
	}
	return value.String()
}

func dateOrMarker(value *string) string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return notAvailable
	}
	raw := strings.TrimSpace(*value)
	for _, layout := range validUntilLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.Format("2006-01-02")
		}
	}
	return raw
}
