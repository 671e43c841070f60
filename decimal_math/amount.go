package decimal_math

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const MaxBasisPoints = 10_000

var (
	ErrNotExact    = errors.New("value is not exact at the requested precision")
	ErrOutOfRange  = errors.New("value out of range")
	bpsPerFraction = decimal.NewFromInt(MaxBasisPoints)
	bpsPerPercent  = decimal.NewFromInt(100)
)

// ToUIAmount converts raw token units to a decimal amount.
func ToUIAmount(amount uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromUint64(amount).Shift(-int32(decimals))
}

// FromUIAmount converts a decimal amount to raw token units. Amounts with
// more precision than the mint allows are rejected rather than rounded.
func FromUIAmount(amount decimal.Decimal, decimals uint8) (uint64, error) {
	raw := amount.Shift(int32(decimals))
	if !raw.Equal(raw.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s with %d decimals", ErrNotExact, amount, decimals)
	}
	if raw.IsNegative() || !raw.BigInt().IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, amount)
	}
	return raw.BigInt().Uint64(), nil
}

// BpsToFraction returns bps / 10000.
func BpsToFraction(bps uint16) decimal.Decimal {
	return decimal.NewFromInt(int64(bps)).Div(bpsPerFraction)
}

// ParseBps reads a share given as whole basis points ("5000"), a fraction
// ("0.5") or a percentage ("50%"). The result must be a whole number of
// basis points no larger than 10000.
func ParseBps(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	var (
		bps decimal.Decimal
		err error
	)
	switch {
	case strings.HasSuffix(s, "%"):
		bps, err = decimal.NewFromString(strings.TrimSpace(strings.TrimSuffix(s, "%")))
		bps = bps.Mul(bpsPerPercent)
	case strings.Contains(s, "."):
		bps, err = decimal.NewFromString(s)
		bps = bps.Mul(bpsPerFraction)
	default:
		bps, err = decimal.NewFromString(s)
	}
	if err != nil {
		return 0, fmt.Errorf("parse share %q: %w", s, err)
	}
	if !bps.Equal(bps.Truncate(0)) {
		return 0, fmt.Errorf("%w: %q is not a whole number of basis points", ErrNotExact, s)
	}
	if bps.IsNegative() || bps.GreaterThan(bpsPerFraction) {
		return 0, fmt.Errorf("%w: %q", ErrOutOfRange, s)
	}
	return uint16(bps.IntPart()), nil
}
