package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/honorary-quote-fee/distribution"
)

// Vesting is a simplified vesting contract. Claimable may be set directly or
// derived from Schedule.
type Vesting struct {
	Mint            solana.PublicKey
	Recipient       solana.PublicKey
	RecipientTokens solana.PublicKey
	Deposited       uint64
	Withdrawn       uint64
	Claimable       uint64
	// Schedule, when set, returns the total unlocked amount at a time.
	Schedule func(now int64) uint64
}

type Oracle struct {
	mu       sync.Mutex
	vestings map[solana.PublicKey]Vesting
	reads    int
}

var _ distribution.LockedAmountOracle = (*Oracle)(nil)

func NewOracle() *Oracle {
	return &Oracle{vestings: make(map[solana.PublicKey]Vesting)}
}

func (o *Oracle) Put(contract solana.PublicKey, v Vesting) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.vestings[contract] = v
}

// Reads counts contracts read so far.
func (o *Oracle) Reads() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reads
}

func (o *Oracle) ReadLocked(_ context.Context, contracts []solana.PublicKey, now int64) ([]distribution.VestingReading, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]distribution.VestingReading, len(contracts))
	for i, c := range contracts {
		v, ok := o.vestings[c]
		if !ok {
			return nil, fmt.Errorf("%w: unknown vesting contract %s", distribution.ErrAccountMismatch, c)
		}
		claimable := v.Claimable
		if v.Schedule != nil {
			if unlocked := v.Schedule(now); unlocked > v.Withdrawn {
				claimable = unlocked - v.Withdrawn
			} else {
				claimable = 0
			}
		}
		locked, err := distribution.LockedAmount(v.Deposited, v.Withdrawn, claimable)
		if err != nil {
			return nil, err
		}
		out[i] = distribution.VestingReading{
			Contract:        c,
			Mint:            v.Mint,
			Recipient:       v.Recipient,
			RecipientTokens: v.RecipientTokens,
			Locked:          locked,
		}
		o.reads++
	}
	return out, nil
}
