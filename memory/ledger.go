package memory

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/honorary-quote-fee/distribution"
)

// Ledger applies commits to a Bank and a Store under one lock, so a commit
// either moves every token and bumps the record version or does nothing.
type Ledger struct {
	bank  *Bank
	store *Store
}

var _ distribution.Ledger = (*Ledger)(nil)

func NewLedger(bank *Bank, store *Store) *Ledger {
	return &Ledger{bank: bank, store: store}
}

func (l *Ledger) Load(ctx context.Context, pool solana.PublicKey) (distribution.Record, error) {
	return l.store.Get(ctx, pool)
}

func (l *Ledger) Create(ctx context.Context, rec distribution.Record) error {
	return l.store.Create(ctx, rec)
}

func (l *Ledger) Apply(_ context.Context, c distribution.Commit) error {
	l.bank.mu.Lock()
	defer l.bank.mu.Unlock()
	l.store.mu.Lock()
	defer l.store.mu.Unlock()

	cur, err := l.store.get(c.Pool())
	if err != nil {
		return err
	}
	if cur.Version != c.ExpectedVersion {
		return fmt.Errorf("%w: stored %d, expected %d", distribution.ErrVersionConflict, cur.Version, c.ExpectedVersion)
	}
	commitBank, err := l.bank.settle(c.Next, c)
	if err != nil {
		return err
	}
	if err := l.store.swap(c); err != nil {
		return err
	}
	commitBank()
	return nil
}
