// Package streamflow reads investor vesting streams from the Streamflow
// program and reports how much of each is still locked.
package streamflow

import (
	"context"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/sync/errgroup"

	"github.com/krazyTry/honorary-quote-fee/distribution"
	streamflowgen "github.com/krazyTry/honorary-quote-fee/gen/streamflow"
	hqfsolana "github.com/krazyTry/honorary-quote-fee/solana"
)

// MaxAccountsPerRequest is the getMultipleAccounts limit.
const MaxAccountsPerRequest = 100

// Oracle implements distribution.LockedAmountOracle over RPC.
type Oracle struct {
	client      *rpc.Client
	commitment  rpc.CommitmentType
	concurrency int
}

var _ distribution.LockedAmountOracle = (*Oracle)(nil)

func NewOracle(client *rpc.Client, commitment rpc.CommitmentType, concurrency int) *Oracle {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Oracle{client: client, commitment: commitment, concurrency: concurrency}
}

// ReadLocked loads every stream together with its recipient token account.
// Streams are fetched in batches; half of each batch is token accounts.
func (o *Oracle) ReadLocked(ctx context.Context, contracts []solanago.PublicKey, now int64) ([]distribution.VestingReading, error) {
	if now < 0 {
		return nil, distribution.ErrInvalidTimestamp
	}
	out := make([]distribution.VestingReading, len(contracts))
	per := MaxAccountsPerRequest / 2

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for start := 0; start < len(contracts); start += per {
		end := min(start+per, len(contracts))
		g.Go(func() error {
			return o.readBatch(ctx, contracts[start:end], uint64(now), out[start:end])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *Oracle) readBatch(ctx context.Context, contracts []solanago.PublicKey, now uint64, out []distribution.VestingReading) error {
	streams, err := hqfsolana.GetMultipleAccountInfo(ctx, o.client, contracts, o.commitment)
	if err != nil {
		return err
	}
	if len(streams.Value) != len(contracts) {
		return fmt.Errorf("got %d stream accounts for %d contracts", len(streams.Value), len(contracts))
	}

	parsed := make([]*streamflowgen.Contract, len(contracts))
	recipients := make([]solanago.PublicKey, len(contracts))
	for i, info := range streams.Value {
		c, err := decodeStream(contracts[i], info)
		if err != nil {
			return err
		}
		parsed[i] = c
		recipients[i] = c.RecipientTokens
	}

	tokens, err := hqfsolana.GetTokenAccounts(ctx, o.client, o.commitment, recipients...)
	if err != nil {
		return fmt.Errorf("%w: %v", distribution.ErrAccountMismatch, err)
	}
	for i, c := range parsed {
		reading, err := Reading(contracts[i], c, tokens[i], now)
		if err != nil {
			return err
		}
		out[i] = reading
	}
	return nil
}

func decodeStream(addr solanago.PublicKey, info *rpc.Account) (*streamflowgen.Contract, error) {
	if info == nil {
		return nil, fmt.Errorf("%w: stream %s not found", distribution.ErrAccountMismatch, addr)
	}
	if !info.Owner.Equals(streamflowgen.ProgramID) {
		return nil, fmt.Errorf("%w: stream %s is owned by %s", distribution.ErrAccountMismatch, addr, info.Owner)
	}
	c, err := streamflowgen.ParseContract(info.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("%w: stream %s: %v", distribution.ErrAccountMismatch, addr, err)
	}
	return c, nil
}

// Reading checks a stream against its recipient token account and computes
// the locked amount at now.
func Reading(addr solanago.PublicKey, c *streamflowgen.Contract, recipientTokens *hqfsolana.Account, now uint64) (distribution.VestingReading, error) {
	switch {
	case !recipientTokens.Address.Equals(c.RecipientTokens):
		return distribution.VestingReading{}, fmt.Errorf("%w: stream %s pays %s, not %s", distribution.ErrAccountMismatch, addr, c.RecipientTokens, recipientTokens.Address)
	case !recipientTokens.Mint.Equals(c.Mint):
		return distribution.VestingReading{}, fmt.Errorf("%w: stream %s recipient account holds %s", distribution.ErrAccountMismatch, addr, recipientTokens.Mint)
	case !recipientTokens.Owner.Equals(c.Recipient):
		return distribution.VestingReading{}, fmt.Errorf("%w: stream %s recipient account is owned by %s", distribution.ErrAccountMismatch, addr, recipientTokens.Owner)
	}
	locked, err := c.LockedAmount(now)
	if err != nil {
		return distribution.VestingReading{}, fmt.Errorf("%w: stream %s", distribution.ErrArithmeticOverflow, addr)
	}
	return distribution.VestingReading{
		Contract:        addr,
		Mint:            c.Mint,
		Recipient:       c.Recipient,
		RecipientTokens: c.RecipientTokens,
		Locked:          locked,
	}, nil
}
