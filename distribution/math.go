package distribution

import (
	"fmt"
	"math"
	"math/big"
)

func checkedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, fmt.Errorf("%w: %d + %d", ErrArithmeticOverflow, a, b)
	}
	return sum, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, fmt.Errorf("%w: %d - %d", ErrArithmeticOverflow, a, b)
	}
	return a - b, nil
}

// MulDivFloor returns floor(a * b / denominator) with a 128-bit intermediate.
// A zero denominator or a quotient that does not fit in 64 bits is an overflow.
func MulDivFloor(a, b, denominator uint64) (uint64, error) {
	if denominator == 0 {
		return 0, fmt.Errorf("%w: division by zero", ErrArithmeticOverflow)
	}
	product := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	quotient := product.Quo(product, new(big.Int).SetUint64(denominator))
	return toU64(quotient)
}

func toU64(v *big.Int) (uint64, error) {
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s does not fit in u64", ErrArithmeticOverflow, v)
	}
	return v.Uint64(), nil
}

func incrementCursor(c uint32) (uint32, error) {
	if c == math.MaxUint32 {
		return 0, fmt.Errorf("%w: page cursor", ErrArithmeticOverflow)
	}
	return c + 1, nil
}

// LockedAmount is deposited - min(deposited, withdrawn + claimable).
func LockedAmount(deposited, withdrawn, claimable uint64) (uint64, error) {
	released, err := checkedAdd(withdrawn, claimable)
	if err != nil {
		return 0, err
	}
	if released >= deposited {
		return 0, nil
	}
	return deposited - released, nil
}
