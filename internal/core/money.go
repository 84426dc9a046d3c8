// Package core holds the ledger domain: entries, the category taxonomy,
// money handling and the summaries derived from a set of entries.
//
// Amounts are kept as integer cents so sums stay exact; they are shown as
// whole currency units.
package core

import (
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// ParseDecimalToCents converts a user-typed amount to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding past the second decimal place. A separator followed by
// exactly three digits reads the same as a grouped integer ("1.500" as shown
// by FormatCurrency) and is refused rather than guessed. Zero is a valid
// amount; negative values and malformed input return ErrInvalidAmount.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.3450") -> 1235, nil
//	ParseDecimalToCents("1.500") -> 0, ErrInvalidAmount
//	ParseDecimalToCents("0") -> 0, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if i := strings.LastIndexByte(s, '.'); i >= 0 && len(s)-i-1 == 3 {
		return 0, ErrInvalidAmount
	}
	return DecimalToCents(s)
}

// DecimalToCents converts a plain dot-decimal string, such as a JSON number,
// to cents with half-up rounding. Negative and malformed values return
// ErrInvalidAmount.
func DecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	if strings.ContainsAny(s, "eE") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2)
	if !cents.IsInteger() || cents.GreaterThan(decimal.NewFromInt(1<<53)) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// Units returns the amount rounded to whole currency units (half away from zero).
func (m Money) Units() int64 {
	return roundCents(m.Cents)
}

// Decimal returns the exact amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// MoneyFromUnits builds an amount from whole currency units.
func MoneyFromUnits(units int64) Money {
	return Money{Cents: units * 100}
}

// FormatCurrency renders cents as a grouped integer peso amount ("$ 1.500").
// Zero is always rendered as the literal "$ 0".
func FormatCurrency(cents int64) string {
	if cents == 0 {
		return "$ 0"
	}
	units := roundCents(cents)
	if units < 0 {
		return "-$ " + humanize.FormatInteger("#.###,", int(-units))
	}
	return "$ " + humanize.FormatInteger("#.###,", int(units))
}

func roundCents(cents int64) int64 {
	if cents < 0 {
		return -((-cents + 50) / 100)
	}
	return (cents + 50) / 100
}
