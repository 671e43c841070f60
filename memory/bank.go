// Package memory holds in-process implementations of every distribution
// collaborator. They share one Bank so tests can watch tokens move.
package memory

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/honorary-quote-fee/distribution"
)

type TokenAccount struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
}

type Pool struct {
	BaseMint       solana.PublicKey
	QuoteMint      solana.PublicKey
	Partner        solana.PublicKey
	CollectFeeMode uint8
	// QuoteTransferFeeBps models a Token-2022 transfer fee on the quote mint.
	QuoteTransferFeeBps uint16
}

type Position struct {
	Pool         solana.PublicKey
	NftMint      solana.PublicKey
	PendingBase  uint64
	PendingQuote uint64
	Liquidity    uint64
}

// Bank is a toy token program: token accounts, mints, pools and fee
// positions guarded by one mutex.
type Bank struct {
	mu        sync.Mutex
	accounts  map[solana.PublicKey]TokenAccount
	decimals  map[solana.PublicKey]uint8
	pools     map[solana.PublicKey]Pool
	positions map[solana.PublicKey]Position
}

func NewBank() *Bank {
	return &Bank{
		accounts:  make(map[solana.PublicKey]TokenAccount),
		decimals:  make(map[solana.PublicKey]uint8),
		pools:     make(map[solana.PublicKey]Pool),
		positions: make(map[solana.PublicKey]Position),
	}
}

func (b *Bank) AddMint(mint solana.PublicKey, decimals uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.decimals[mint] = decimals
}

func (b *Bank) AddAccount(addr solana.PublicKey, acct TokenAccount) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[addr] = acct
}

func (b *Bank) AddPool(addr solana.PublicKey, p Pool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pools[addr] = p
}

func (b *Bank) AddPosition(addr solana.PublicKey, p Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positions[addr] = p
}

// Accrue adds trading fees to a position.
func (b *Bank) Accrue(position solana.PublicKey, base, quote uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.positions[position]
	if !ok {
		return fmt.Errorf("memory: unknown position %s", position)
	}
	p.PendingBase += base
	p.PendingQuote += quote
	b.positions[position] = p
	return nil
}

func (b *Bank) Balance(addr solana.PublicKey) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accounts[addr].Amount
}

func (b *Bank) Account(addr solana.PublicKey) (TokenAccount, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[addr]
	return a, ok
}

func (b *Bank) Position(addr solana.PublicKey) (Position, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.positions[addr]
	return p, ok
}

// Supply is the amount of mint held in token accounts plus pending position
// fees for that mint.
func (b *Bank) Supply(mint solana.PublicKey) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var total uint64
	for _, a := range b.accounts {
		if a.Mint.Equals(mint) {
			total += a.Amount
		}
	}
	for _, p := range b.positions {
		pool := b.pools[p.Pool]
		switch {
		case pool.QuoteMint.Equals(mint):
			total += p.PendingQuote
		case pool.BaseMint.Equals(mint):
			total += p.PendingBase
		}
	}
	return total
}

// settle applies a commit's token effects. It works on copies and writes
// nothing back unless every step succeeds. Callers hold b.mu.
func (b *Bank) settle(rec distribution.Record, c distribution.Commit) (func(), error) {
	accounts := make(map[solana.PublicKey]TokenAccount)
	get := func(addr solana.PublicKey) (TokenAccount, bool) {
		if a, ok := accounts[addr]; ok {
			return a, true
		}
		a, ok := b.accounts[addr]
		return a, ok
	}

	var position Position
	positionKey := rec.Honorary.Position
	if c.Claim != nil {
		var ok bool
		if position, ok = b.positions[positionKey]; !ok {
			return nil, fmt.Errorf("memory: unknown position %s", positionKey)
		}
		if position.PendingQuote < c.Claim.QuoteClaimed || position.PendingBase < c.Claim.BaseClaimed {
			return nil, fmt.Errorf("memory: position %s pending fees below claim", positionKey)
		}
		position.PendingQuote -= c.Claim.QuoteClaimed
		position.PendingBase -= c.Claim.BaseClaimed

		treasury, ok := get(rec.Honorary.QuoteTreasury)
		if !ok {
			return nil, fmt.Errorf("memory: unknown treasury %s", rec.Honorary.QuoteTreasury)
		}
		treasury.Amount += c.Claim.QuoteClaimed
		accounts[rec.Honorary.QuoteTreasury] = treasury

		if c.Claim.BaseClaimed > 0 {
			check, ok := get(rec.Honorary.BaseFeeCheck)
			if !ok {
				return nil, fmt.Errorf("memory: unknown base fee account %s", rec.Honorary.BaseFeeCheck)
			}
			check.Amount += c.Claim.BaseClaimed
			accounts[rec.Honorary.BaseFeeCheck] = check
		}
	}

	for _, t := range c.Transfers {
		src, ok := get(t.Source)
		if !ok {
			return nil, fmt.Errorf("memory: unknown source %s", t.Source)
		}
		if src.Amount < t.Amount {
			return nil, fmt.Errorf("%w: %s holds %d, need %d", distribution.ErrInsufficientFunds, t.Source, src.Amount, t.Amount)
		}
		src.Amount -= t.Amount
		accounts[t.Source] = src

		dst, ok := get(t.Destination)
		if !ok {
			dst = TokenAccount{Mint: src.Mint}
		}
		if !dst.Mint.Equals(src.Mint) {
			return nil, fmt.Errorf("%w: destination %s mint %s", distribution.ErrAccountMismatch, t.Destination, dst.Mint)
		}
		dst.Amount += t.Amount
		accounts[t.Destination] = dst
	}

	return func() {
		for k, a := range accounts {
			b.accounts[k] = a
		}
		if c.Claim != nil {
			b.positions[positionKey] = position
		}
	}, nil
}
