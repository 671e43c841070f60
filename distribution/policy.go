package distribution

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

const (
	// MaxBasisPoints is 100% expressed in basis points.
	MaxBasisPoints = 10_000

	DefaultDayPeriod = 24 * time.Hour
)

// Policy holds the per-pool distribution parameters. It is written once by
// InitializePolicy and never changes afterwards.
type Policy struct {
	Authority               solana.PublicKey
	Pool                    solana.PublicKey
	QuoteMint               solana.PublicKey
	BaseMint                solana.PublicKey
	CreatorQuoteDestination solana.PublicKey

	InvestorFeeShareBps uint16
	Y0                  uint64
	DailyCapQuote       uint64 // 0 means unlimited
	MinPayout           uint64
}

func (p Policy) Validate() error {
	if p.InvestorFeeShareBps > MaxBasisPoints {
		return fmt.Errorf("%w: got %d", ErrInvalidFeeShare, p.InvestorFeeShareBps)
	}
	if p.Y0 == 0 {
		return ErrInvalidBaseline
	}
	return nil
}

// HonoraryPosition binds the fee-accruing position that the distribution owns.
// The zero value means the position has not been configured yet.
type HonoraryPosition struct {
	Owner              solana.PublicKey
	Position           solana.PublicKey
	PositionNftMint    solana.PublicKey
	PositionNftAccount solana.PublicKey
	QuoteTreasury      solana.PublicKey
	BaseFeeCheck       solana.PublicKey
}

func (h HonoraryPosition) Configured() bool {
	return !h.Position.IsZero()
}
