// Package core provides amount parsing for ledger records.
//
// Amounts are signed and kept as decimals so that sums over the ledger are
// exact. Anything that is not a finite number is a malformed record.
package core

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to an amount.
//
// It accepts an optional sign, a dot or comma decimal separator and an
// exponent. Empty input, NaN and infinities are rejected with ErrMalformedRecord.
// A lone comma followed by exactly three digits reads as either a decimal or a
// thousands separator, so it is rejected too.
//
// Examples:
//
//	ParseAmount("1250.50") -> 1250.5, nil
//	ParseAmount("-75")     -> -75, nil
//	ParseAmount("12,5")    -> 12.5, nil
//	ParseAmount("1,250")   -> 0, ErrMalformedRecord
//	ParseAmount("abc")     -> 0, ErrMalformedRecord
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: amount is empty", ErrMalformedRecord)
	}
	if i := strings.IndexByte(s, ','); i >= 0 && strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		if frac := s[i+1:]; len(frac) == 3 && allDigits(frac) {
			return decimal.Zero, fmt.Errorf("%w: amount %q is ambiguous, use a dot for decimals", ErrMalformedRecord, s)
		}
		s = s[:i] + "." + s[i+1:]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q is not numeric", ErrMalformedRecord, s)
	}
	return d, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// AmountFromFloat converts a float, rejecting NaN and infinities.
func AmountFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("%w: amount %v is not finite", ErrMalformedRecord, f)
	}
	return decimal.NewFromFloat(f), nil
}
