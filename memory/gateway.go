package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/krazyTry/honorary-quote-fee/distribution"
)

// Gateway reports the honorary position's pending fees in the Bank. The
// Ledger moves them when the commit lands.
type Gateway struct {
	bank *Bank

	mu     sync.Mutex
	err    error
	claims int
}

var _ distribution.FeeClaimGateway = (*Gateway)(nil)

func NewGateway(bank *Bank) *Gateway {
	return &Gateway{bank: bank}
}

// FailWith makes every following Claim return err until cleared with nil.
func (g *Gateway) FailWith(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

func (g *Gateway) Claims() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.claims
}

func (g *Gateway) Claim(_ context.Context, rec distribution.Record) (distribution.FeeClaim, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return distribution.FeeClaim{}, g.err
	}
	p, ok := g.bank.Position(rec.Honorary.Position)
	if !ok {
		return distribution.FeeClaim{}, fmt.Errorf("memory: unknown position %s", rec.Honorary.Position)
	}
	g.claims++
	return distribution.FeeClaim{QuoteClaimed: p.PendingQuote, BaseClaimed: p.PendingBase}, nil
}
