package memory

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/honorary-quote-fee/distribution"
)

type Inspector struct {
	bank *Bank
}

var _ distribution.PoolInspector = (*Inspector)(nil)

func NewInspector(bank *Bank) *Inspector {
	return &Inspector{bank: bank}
}

func (i *Inspector) InspectPool(_ context.Context, pool solana.PublicKey) (distribution.PoolSnapshot, error) {
	i.bank.mu.Lock()
	defer i.bank.mu.Unlock()
	p, ok := i.bank.pools[pool]
	if !ok {
		return distribution.PoolSnapshot{}, fmt.Errorf("memory: unknown pool %s", pool)
	}
	return distribution.PoolSnapshot{
		Address:        pool,
		BaseMint:       p.BaseMint,
		QuoteMint:      p.QuoteMint,
		Partner:        p.Partner,
		CollectFeeMode: p.CollectFeeMode,

		QuoteTransferFeeBps: p.QuoteTransferFeeBps,
	}, nil
}

func (i *Inspector) InspectPosition(_ context.Context, h distribution.HonoraryPosition) (distribution.PositionSnapshot, error) {
	i.bank.mu.Lock()
	defer i.bank.mu.Unlock()
	p, ok := i.bank.positions[h.Position]
	if !ok {
		return distribution.PositionSnapshot{}, fmt.Errorf("memory: unknown position %s", h.Position)
	}
	decimals, ok := i.bank.decimals[p.NftMint]
	if !ok {
		return distribution.PositionSnapshot{}, fmt.Errorf("memory: unknown mint %s", p.NftMint)
	}
	return distribution.PositionSnapshot{
		Pool:           p.Pool,
		NftMint:        p.NftMint,
		NftDecimals:    decimals,
		NftAccount:     i.snapshot(h.PositionNftAccount),
		PendingBase:    p.PendingBase,
		PendingQuote:   p.PendingQuote,
		TotalLiquidity: p.Liquidity,
		QuoteTreasury:  i.snapshot(h.QuoteTreasury),
		BaseFeeCheck:   i.snapshot(h.BaseFeeCheck),
	}, nil
}

func (i *Inspector) InspectTokenAccount(_ context.Context, account solana.PublicKey) (distribution.TokenAccountSnapshot, error) {
	i.bank.mu.Lock()
	defer i.bank.mu.Unlock()
	if _, ok := i.bank.accounts[account]; !ok {
		return distribution.TokenAccountSnapshot{}, fmt.Errorf("memory: unknown token account %s", account)
	}
	return i.snapshot(account), nil
}

// snapshot returns the zero snapshot for unknown accounts; the address check
// in the caller then fails.
func (i *Inspector) snapshot(addr solana.PublicKey) distribution.TokenAccountSnapshot {
	a, ok := i.bank.accounts[addr]
	if !ok {
		return distribution.TokenAccountSnapshot{}
	}
	return distribution.TokenAccountSnapshot{Address: addr, Mint: a.Mint, Owner: a.Owner, Amount: a.Amount}
}
