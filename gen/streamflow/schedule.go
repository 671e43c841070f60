package streamflow

import (
	"errors"
	"math/big"
)

var ErrOverflow = errors.New("streamflow: arithmetic overflow")

// Unlocked returns the total amount released by the schedule at now,
// including anything already withdrawn. It never exceeds the deposit.
func (obj *Contract) Unlocked(now uint64) uint64 {
	deposited := obj.Ix.NetAmountDeposited
	if deposited == 0 || now < obj.Ix.StartTime {
		return 0
	}
	if obj.EndTime > 0 && now >= obj.EndTime {
		return deposited
	}

	cliff := obj.Ix.Cliff
	if cliff == 0 {
		cliff = obj.Ix.StartTime
	}
	if now < cliff {
		return 0
	}

	unlocked := new(big.Int).SetUint64(obj.Ix.CliffAmount)
	if obj.Ix.Period > 0 {
		periods := (now - cliff) / obj.Ix.Period
		streamed := new(big.Int).Mul(new(big.Int).SetUint64(periods), new(big.Int).SetUint64(obj.Ix.AmountPerPeriod))
		unlocked.Add(unlocked, streamed)
	}
	if !unlocked.IsUint64() || unlocked.Uint64() > deposited {
		return deposited
	}
	return unlocked.Uint64()
}

// AvailableToClaim is what the recipient could withdraw at now.
func (obj *Contract) AvailableToClaim(now uint64) uint64 {
	unlocked := obj.Unlocked(now)
	if unlocked <= obj.AmountWithdrawn {
		return 0
	}
	return unlocked - obj.AmountWithdrawn
}

// LockedAmount is deposited - min(deposited, withdrawn + claimable).
func (obj *Contract) LockedAmount(now uint64) (uint64, error) {
	released := obj.AmountWithdrawn + obj.AvailableToClaim(now)
	if released < obj.AmountWithdrawn {
		return 0, ErrOverflow
	}
	if released >= obj.Ix.NetAmountDeposited {
		return 0, nil
	}
	return obj.Ix.NetAmountDeposited - released, nil
}
