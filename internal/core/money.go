// Package core provides money parsing and handling utilities.
//
// Amounts are decimal.Decimal values; they are never converted to float for
// arithmetic.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-supplied decimal string to a non-negative amount.
//
// Only plain digits with an optional dot decimal separator are accepted.
// Commas are rejected rather than guessed at: "1,200" is neither 1.2 nor 1200.
// Signs and exponents are rejected too.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("1,200") -> 0, ErrInvalidAmount
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if s == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Truncate drops the fractional part of d, rounding toward zero.
func Truncate(d decimal.Decimal) int64 {
	return d.IntPart()
}
