package distribution_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/honorary-quote-fee/distribution"
	"github.com/krazyTry/honorary-quote-fee/memory"
)

type fixture struct {
	bank      *memory.Bank
	store     *memory.Store
	oracle    *memory.Oracle
	gateway   *memory.Gateway
	engine    *distribution.Engine
	sink      *recordingSink
	now       time.Time
	authority solana.PublicKey
	pool      solana.PublicKey
	quoteMint solana.PublicKey
	baseMint  solana.PublicKey
	creator   solana.PublicKey
	honorary  distribution.HonoraryPosition
}

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

// newFixture builds a pool with a configured honorary position. edit may
// adjust the policy parameters before initialisation.
func newFixture(t *testing.T, edit func(*distribution.InitializePolicyParams), opts ...distribution.Option) *fixture {
	t.Helper()
	f := newBareFixture(opts...)
	params := f.policyParams()
	if edit != nil {
		edit(&params)
	}
	ctx := context.Background()
	if _, err := f.engine.InitializePolicy(ctx, params); err != nil {
		t.Fatal("InitializePolicy() fail", err)
	}
	if _, err := f.engine.ConfigureHonoraryPosition(ctx, f.pool, f.authority, f.honorary); err != nil {
		t.Fatal("ConfigureHonoraryPosition() fail", err)
	}
	return f
}

func newBareFixture(opts ...distribution.Option) *fixture {
	f := &fixture{
		bank:      memory.NewBank(),
		store:     memory.NewStore(),
		oracle:    memory.NewOracle(),
		sink:      &recordingSink{},
		now:       time.Unix(1_700_000_000, 0),
		authority: newKey(),
		pool:      newKey(),
		quoteMint: newKey(),
		baseMint:  newKey(),
		creator:   newKey(),
	}
	f.gateway = memory.NewGateway(f.bank)

	owner := newKey()
	f.honorary = distribution.HonoraryPosition{
		Owner:              owner,
		Position:           newKey(),
		PositionNftMint:    newKey(),
		PositionNftAccount: newKey(),
		QuoteTreasury:      newKey(),
		BaseFeeCheck:       newKey(),
	}

	f.bank.AddMint(f.quoteMint, 6)
	f.bank.AddMint(f.baseMint, 9)
	f.bank.AddMint(f.honorary.PositionNftMint, 0)
	f.bank.AddPool(f.pool, memory.Pool{
		BaseMint:       f.baseMint,
		QuoteMint:      f.quoteMint,
		CollectFeeMode: distribution.CollectFeeModeOnlyB,
	})
	f.bank.AddPosition(f.honorary.Position, memory.Position{Pool: f.pool, NftMint: f.honorary.PositionNftMint})
	f.bank.AddAccount(f.honorary.PositionNftAccount, memory.TokenAccount{Mint: f.honorary.PositionNftMint, Owner: owner, Amount: 1})
	f.bank.AddAccount(f.honorary.QuoteTreasury, memory.TokenAccount{Mint: f.quoteMint, Owner: owner})
	f.bank.AddAccount(f.honorary.BaseFeeCheck, memory.TokenAccount{Mint: f.baseMint, Owner: owner})
	f.bank.AddAccount(f.creator, memory.TokenAccount{Mint: f.quoteMint, Owner: newKey()})

	opts = append([]distribution.Option{
		distribution.WithClock(func() time.Time { return f.now }),
		distribution.WithEventSink(f.sink),
	}, opts...)
	f.engine = distribution.NewEngine(
		memory.NewLedger(f.bank, f.store),
		f.oracle,
		f.gateway,
		memory.NewInspector(f.bank),
		opts...,
	)
	return f
}

func (f *fixture) policyParams() distribution.InitializePolicyParams {
	return distribution.InitializePolicyParams{
		Authority:               f.authority,
		Pool:                    f.pool,
		QuoteMint:               f.quoteMint,
		BaseMint:                f.baseMint,
		CreatorQuoteDestination: f.creator,
		InvestorFeeShareBps:     5000,
		Y0:                      1_000_000,
	}
}

func (f *fixture) addInvestor(locked uint64) distribution.InvestorRef {
	ref := distribution.InvestorRef{VestingContract: newKey(), Destination: newKey()}
	recipient := newKey()
	f.bank.AddAccount(ref.Destination, memory.TokenAccount{Mint: f.quoteMint, Owner: recipient})
	f.oracle.Put(ref.VestingContract, memory.Vesting{
		Mint:            f.quoteMint,
		Recipient:       recipient,
		RecipientTokens: ref.Destination,
		Deposited:       locked,
	})
	return ref
}

func (f *fixture) accrue(t *testing.T, base, quote uint64) {
	t.Helper()
	if err := f.bank.Accrue(f.honorary.Position, base, quote); err != nil {
		t.Fatal("Accrue() fail", err)
	}
}

func (f *fixture) record(t *testing.T) distribution.Record {
	t.Helper()
	rec, err := f.engine.Record(context.Background(), f.pool)
	if err != nil {
		t.Fatal("Record() fail", err)
	}
	return rec
}

// runDay cranks pages in order, the last one flagged as last.
func (f *fixture) runDay(t *testing.T, pages ...[]distribution.InvestorRef) []*distribution.CrankResult {
	t.Helper()
	var out []*distribution.CrankResult
	for i, page := range pages {
		res, err := f.engine.Crank(context.Background(), f.pool, distribution.CrankParams{
			ExpectedPageCursor: uint32(i),
			IsLastPage:         i == len(pages)-1,
			Page:               page,
		})
		if err != nil {
			t.Fatalf("Crank() page %d fail: %v", i, err)
		}
		out = append(out, res)
	}
	return out
}

type recordingSink struct {
	mu     sync.Mutex
	events []distribution.Event
}

func (s *recordingSink) Emit(_ context.Context, ev distribution.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.EventName()
	}
	return out
}
