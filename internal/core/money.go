// Package core defines the domain model of the multi-fund ledger: money in
// integer minor units, month keys, reference entities, the fund event/line
// model and the budget/distribution types.
//
// All monetary amounts are int64 minor units (cents). Floating point is only
// used for percent fractions; percent-of-amount arithmetic goes through
// shopspring/decimal so rounding is deterministic.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Money is a non-negative amount in minor units.
type Money struct {
	Minor int64
}

func (m Money) Validate() error {
	if m.Minor <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Units returns the major-unit value as a float64 for display purposes.
// Use minor units for calculations to avoid floating-point drift.
func (m Money) Units() float64 {
	return float64(m.Minor) / 100.0
}

// ParseDecimalToMinor converts a decimal string to minor units. A third
// decimal digit above 5 rounds the cent up; 5 and below round down.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. The result
// is always positive minor units; signs, invalid formats and zero amounts are
// rejected.
//
// Examples:
//
//	ParseDecimalToMinor("12.34") -> 1234, nil
//	ParseDecimalToMinor("12,34") -> 1234, nil
//	ParseDecimalToMinor("12.345") -> 1234, nil (rounds down)
//	ParseDecimalToMinor("12.346") -> 1235, nil (rounds up)
func ParseDecimalToMinor(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	var fracMinor int64
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracMinor = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracMinor += d2
			if len(fracPart) > 2 {
				if fracPart[2] > '5' {
					fracMinor++
				}
			}
		}
	}
	minor := iv*100 + fracMinor
	if minor <= 0 {
		return 0, ErrInvalidAmount
	}
	return minor, nil
}

// PercentOf returns fraction * baseMinor truncated toward zero,
// independently per call. Truncation keeps a set of fractions summing to at
// most 1 from ever allocating more than the base; the cut-off remainders are
// not redistributed, so a fully allocated plan can still leave a few minor
// units unassigned.
func PercentOf(fraction float64, baseMinor int64) int64 {
	return decimal.NewFromFloat(fraction).
		Mul(decimal.NewFromInt(baseMinor)).
		IntPart()
}

// FormatMinor renders minor units as a decimal string ("-12.34").
func FormatMinor(minor int64) string {
	neg := minor < 0
	if neg {
		minor = -minor
	}
	s := fmt.Sprintf("%d.%02d", minor/100, minor%100)
	if neg {
		return "-" + s
	}
	return s
}
