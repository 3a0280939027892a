package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Price and Volume are fixed-point decimals. decimal.Decimal stores an
// arbitrary-precision big.Int coefficient plus an int32 exponent, so both
// types carry far more than the 18 fractional digits the domain requires.
// Floating point must never reach a comparison or arithmetic step that
// decides a trade; float64 is only acceptable at wire-format boundaries
// (JSON parse/format) and inside the ln/exp bridge in the solver package.
type Price = decimal.Decimal

// Volume is kept as a distinct alias name for readability at call sites
// even though its representation is identical to Price.
type Volume = decimal.Decimal

// DefaultPayout is the per-market payout used when config supplies none.
var DefaultPayout = decimal.NewFromFloat(1.0)

// ParsePrice parses a decimal string as exchanges send it (e.g. "0.4032").
// Returns an error rather than silently truncating precision.
func ParsePrice(s string) (Price, error) {
	p, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", s, err)
	}
	return p, nil
}

// ParseVolume parses a decimal string size field.
func ParseVolume(s string) (Volume, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse volume %q: %w", s, err)
	}
	return v, nil
}

// MinVolume returns the smaller of two volumes.
func MinVolume(a, b Volume) Volume {
	if a.LessThan(b) {
		return a
	}
	return b
}

func decimalZero() decimal.Decimal { return decimal.Zero }

func decimalTenThousand() decimal.Decimal { return decimal.NewFromInt(10000) }

