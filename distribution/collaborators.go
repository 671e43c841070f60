package distribution

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
)

// InvestorRef is one page entry: the investor's vesting contract and the
// token account that receives the payout.
type InvestorRef struct {
	VestingContract solana.PublicKey
	Destination     solana.PublicKey
}

// VestingReading is the oracle's view of one vesting contract at a point in time.
type VestingReading struct {
	Contract        solana.PublicKey
	Mint            solana.PublicKey
	Recipient       solana.PublicKey
	RecipientTokens solana.PublicKey
	Locked          uint64
}

// LockedAmountOracle reads still-locked amounts. Readings are returned in the
// order of contracts.
type LockedAmountOracle interface {
	ReadLocked(ctx context.Context, contracts []solana.PublicKey, now int64) ([]VestingReading, error)
}

// FeeClaimGateway claims the honorary position's accrued fees into the
// quote treasury. A live gateway reports what the claim would move; the
// claim itself lands with the Ledger commit.
type FeeClaimGateway interface {
	Claim(ctx context.Context, rec Record) (FeeClaim, error)
}

type PoolSnapshot struct {
	Address        solana.PublicKey
	BaseMint       solana.PublicKey
	QuoteMint      solana.PublicKey
	Partner        solana.PublicKey
	CollectFeeMode uint8
	// QuoteTransferFeeBps is the quote mint's Token-2022 transfer fee, if any.
	QuoteTransferFeeBps uint16
}

type TokenAccountSnapshot struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
	Owner   solana.PublicKey
	Amount  uint64
}

type PositionSnapshot struct {
	Pool           solana.PublicKey
	NftMint        solana.PublicKey
	NftDecimals    uint8
	NftAccount     TokenAccountSnapshot
	PendingBase    uint64
	PendingQuote   uint64
	TotalLiquidity uint64
	QuoteTreasury  TokenAccountSnapshot
	BaseFeeCheck   TokenAccountSnapshot
}

// PoolInspector reads the external accounts that setup validates.
type PoolInspector interface {
	InspectPool(ctx context.Context, pool solana.PublicKey) (PoolSnapshot, error)
	InspectPosition(ctx context.Context, h HonoraryPosition) (PositionSnapshot, error)
	InspectTokenAccount(ctx context.Context, account solana.PublicKey) (TokenAccountSnapshot, error)
}

// Ledger persists records and carries out commits atomically.
type Ledger interface {
	Load(ctx context.Context, pool solana.PublicKey) (Record, error)
	Create(ctx context.Context, rec Record) error
	Apply(ctx context.Context, c Commit) error
}

// RecordStore persists records with optimistic concurrency. CompareAndSwap
// fails with ErrVersionConflict when the stored version is not
// c.ExpectedVersion.
type RecordStore interface {
	Get(ctx context.Context, pool solana.PublicKey) (Record, error)
	Create(ctx context.Context, rec Record) error
	CompareAndSwap(ctx context.Context, c Commit) error
}

// Locker serialises cranks per pool across processes.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

type EventSink interface {
	Emit(ctx context.Context, ev Event)
}
