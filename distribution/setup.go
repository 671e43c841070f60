package distribution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
)

// CollectFeeModeOnlyB is the DAMM v2 mode where fees accrue in token B,
// the quote token, only.
const CollectFeeModeOnlyB uint8 = 2

type InitializePolicyParams struct {
	Authority               solana.PublicKey
	Pool                    solana.PublicKey
	QuoteMint               solana.PublicKey
	BaseMint                solana.PublicKey
	CreatorQuoteDestination solana.PublicKey
	InvestorFeeShareBps     uint16
	Y0                      uint64
	DailyCapQuote           uint64
	MinPayout               uint64
}

func (p InitializePolicyParams) policy() Policy {
	return Policy{
		Authority:               p.Authority,
		Pool:                    p.Pool,
		QuoteMint:               p.QuoteMint,
		BaseMint:                p.BaseMint,
		CreatorQuoteDestination: p.CreatorQuoteDestination,
		InvestorFeeShareBps:     p.InvestorFeeShareBps,
		Y0:                      p.Y0,
		DailyCapQuote:           p.DailyCapQuote,
		MinPayout:               p.MinPayout,
	}
}

// InitializePolicy creates the pool's record with a zero Progress.
func (e *Engine) InitializePolicy(ctx context.Context, params InitializePolicyParams) (Record, error) {
	policy := params.policy()
	if err := policy.Validate(); err != nil {
		return Record{}, err
	}

	pool, err := e.inspector.InspectPool(ctx, policy.Pool)
	if err != nil {
		return Record{}, fmt.Errorf("inspect pool %s: %w", policy.Pool, err)
	}
	switch {
	case pool.CollectFeeMode != CollectFeeModeOnlyB:
		return Record{}, fmt.Errorf("%w: collect fee mode %d", ErrInvalidPool, pool.CollectFeeMode)
	case !pool.Partner.IsZero():
		return Record{}, fmt.Errorf("%w: pool has partner %s", ErrInvalidPool, pool.Partner)
	case pool.QuoteTransferFeeBps != 0:
		return Record{}, fmt.Errorf("%w: quote mint charges %d bps on transfer", ErrInvalidPool, pool.QuoteTransferFeeBps)
	case !pool.QuoteMint.Equals(policy.QuoteMint):
		return Record{}, fmt.Errorf("%w: pool quote mint %s", ErrAccountMismatch, pool.QuoteMint)
	case !pool.BaseMint.Equals(policy.BaseMint):
		return Record{}, fmt.Errorf("%w: pool base mint %s", ErrAccountMismatch, pool.BaseMint)
	}

	creator, err := e.inspector.InspectTokenAccount(ctx, policy.CreatorQuoteDestination)
	if err != nil {
		return Record{}, fmt.Errorf("inspect creator destination %s: %w", policy.CreatorQuoteDestination, err)
	}
	if !creator.Mint.Equals(policy.QuoteMint) {
		return Record{}, fmt.Errorf("%w: creator destination mint %s", ErrAccountMismatch, creator.Mint)
	}

	unlock, err := e.lock(ctx, policy.Pool)
	if err != nil {
		return Record{}, err
	}
	defer unlock()

	if _, err := e.ledger.Load(ctx, policy.Pool); err == nil {
		return Record{}, ErrPolicyExists
	} else if !errors.Is(err, ErrPolicyNotFound) {
		return Record{}, err
	}

	rec := Record{Policy: policy, Version: 1}
	if err := e.ledger.Create(ctx, rec); err != nil {
		return Record{}, err
	}

	e.logger.Info("policy initialized",
		slog.String("pool", policy.Pool.String()),
		slog.Uint64("investor_fee_share_bps", uint64(policy.InvestorFeeShareBps)),
		slog.Uint64("y0", policy.Y0),
		slog.Uint64("daily_cap_quote", policy.DailyCapQuote),
		slog.Uint64("min_payout", policy.MinPayout))
	e.emit(ctx, PolicyInitialized{
		Pool:                policy.Pool,
		Authority:           policy.Authority,
		InvestorFeeShareBps: policy.InvestorFeeShareBps,
		Y0:                  policy.Y0,
		DailyCapQuote:       policy.DailyCapQuote,
		MinPayout:           policy.MinPayout,
	})
	return rec, nil
}

// ConfigureHonoraryPosition binds the fee position to the pool's policy. It
// succeeds once per pool.
func (e *Engine) ConfigureHonoraryPosition(ctx context.Context, pool, authority solana.PublicKey, h HonoraryPosition) (Record, error) {
	unlock, err := e.lock(ctx, pool)
	if err != nil {
		return Record{}, err
	}
	defer unlock()

	rec, err := e.ledger.Load(ctx, pool)
	if err != nil {
		return Record{}, err
	}
	if !rec.Policy.Authority.Equals(authority) {
		return Record{}, ErrUnauthorized
	}
	if rec.Honorary.Configured() {
		return Record{}, ErrAlreadyConfigured
	}
	if h.Position.IsZero() || h.Owner.IsZero() {
		return Record{}, fmt.Errorf("%w: position and owner are required", ErrAccountMismatch)
	}

	snap, err := e.inspector.InspectPosition(ctx, h)
	if err != nil {
		return Record{}, fmt.Errorf("inspect position %s: %w", h.Position, err)
	}
	if err := checkHonorary(rec.Policy, h, snap); err != nil {
		return Record{}, err
	}

	next := rec
	next.Honorary = h
	next.Version = rec.Version + 1
	if err := e.ledger.Apply(ctx, Commit{ExpectedVersion: rec.Version, Next: next}); err != nil {
		return Record{}, err
	}

	e.logger.Info("honorary position configured",
		slog.String("pool", pool.String()),
		slog.String("position", h.Position.String()),
		slog.String("quote_treasury", h.QuoteTreasury.String()))
	e.emit(ctx, HonoraryPositionConfigured{
		Pool:          pool,
		Position:      h.Position,
		QuoteTreasury: h.QuoteTreasury,
		BaseFeeCheck:  h.BaseFeeCheck,
	})
	return next, nil
}

func checkHonorary(policy Policy, h HonoraryPosition, snap PositionSnapshot) error {
	switch {
	case !snap.Pool.Equals(policy.Pool):
		return fmt.Errorf("%w: position belongs to pool %s", ErrAccountMismatch, snap.Pool)
	case !snap.NftMint.Equals(h.PositionNftMint):
		return fmt.Errorf("%w: position nft mint %s", ErrAccountMismatch, snap.NftMint)
	case snap.PendingBase != 0 || snap.PendingQuote != 0:
		return fmt.Errorf("%w: position has pending fees", ErrAccountMismatch)
	case snap.TotalLiquidity != 0:
		return fmt.Errorf("%w: position must start with zero liquidity", ErrAccountMismatch)
	case snap.NftDecimals != 0:
		return fmt.Errorf("%w: position nft mint has %d decimals", ErrAccountMismatch, snap.NftDecimals)
	}
	if err := checkTokenAccount("position nft account", h.PositionNftAccount, snap.NftAccount, h.PositionNftMint, h.Owner); err != nil {
		return err
	}
	if snap.NftAccount.Amount != 1 {
		return fmt.Errorf("%w: position nft account holds %d", ErrAccountMismatch, snap.NftAccount.Amount)
	}
	if err := checkTokenAccount("quote treasury", h.QuoteTreasury, snap.QuoteTreasury, policy.QuoteMint, h.Owner); err != nil {
		return err
	}
	return checkTokenAccount("base fee check", h.BaseFeeCheck, snap.BaseFeeCheck, policy.BaseMint, h.Owner)
}

func checkTokenAccount(name string, want solana.PublicKey, got TokenAccountSnapshot, mint, owner solana.PublicKey) error {
	switch {
	case !got.Address.Equals(want):
		return fmt.Errorf("%w: %s is %s, want %s", ErrAccountMismatch, name, got.Address, want)
	case !got.Mint.Equals(mint):
		return fmt.Errorf("%w: %s mint %s, want %s", ErrAccountMismatch, name, got.Mint, mint)
	case !got.Owner.Equals(owner):
		return fmt.Errorf("%w: %s owner %s, want %s", ErrAccountMismatch, name, got.Owner, owner)
	}
	return nil
}
