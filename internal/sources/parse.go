package sources

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"02.01.2006",
}

// parseDate accepts the date formats seen across the sources. Dates without
// a zone are read as UTC.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// cleanNumber strips thousands separators, currency signs and spaces
func cleanNumber(value string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ',', ' ', '\u00a0', '₪':
			return -1
		}
		return r
	}, strings.TrimSpace(value))
}

// parseAmount reads a monetary string such as "1,850,000"
func parseAmount(value string) (decimal.Decimal, error) {
	cleaned := cleanNumber(value)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return amount, nil
}

// optionalFloat returns 0 for empty or unparsable input
func optionalFloat(value string) float64 {
	f, err := strconv.ParseFloat(cleanNumber(value), 64)
	if err != nil {
		return 0
	}
	return f
}

// optionalInt returns 0 for empty or unparsable input
func optionalInt(value string) int {
	return int(optionalFloat(value))
}

// splitGush splits a "block-parcel-subparcel" cadastral reference
func splitGush(gush string) (block, parcel string) {
	parts := strings.Split(strings.TrimSpace(gush), "-")
	if len(parts) > 0 {
		block = strings.TrimSpace(parts[0])
	}
	if len(parts) > 1 {
		parcel = strings.TrimSpace(parts[1])
	}
	return block, parcel
}
