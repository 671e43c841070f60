package distribution

// EligibleShareBps returns min(maxShareBps, floor(lockedTotal*10000/y0)).
// It is zero when nothing is locked and never decreases as lockedTotal grows.
func EligibleShareBps(lockedTotal, y0 uint64, maxShareBps uint16) (uint16, error) {
	if y0 == 0 {
		return 0, ErrInvalidBaseline
	}
	if lockedTotal == 0 {
		return 0, nil
	}
	locked, err := MulDivFloor(lockedTotal, MaxBasisPoints, y0)
	if err != nil {
		// lockedTotal*10000/y0 only overflows far above 100%.
		return maxShareBps, nil
	}
	if locked >= uint64(maxShareBps) {
		return maxShareBps, nil
	}
	return uint16(locked), nil
}

// InvestorPool returns floor(base*bps/10000) clamped to dailyCap. A zero cap
// means unlimited.
func InvestorPool(base uint64, bps uint16, dailyCap uint64) (uint64, error) {
	pool, err := MulDivFloor(base, uint64(bps), MaxBasisPoints)
	if err != nil {
		return 0, err
	}
	if dailyCap > 0 && pool > dailyCap {
		pool = dailyCap
	}
	return pool, nil
}
