package cranker_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/honorary-quote-fee/cranker"
	"github.com/krazyTry/honorary-quote-fee/distribution"
	"github.com/krazyTry/honorary-quote-fee/memory"
)

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

type env struct {
	bank   *memory.Bank
	oracle *memory.Oracle
	ledger *inflightLedger
	engine *distribution.Engine
	now    time.Time
}

// inflightLedger reports a commit in flight for every pool while set.
type inflightLedger struct {
	*memory.Ledger
	inflight bool
}

func (l *inflightLedger) Load(ctx context.Context, pool solana.PublicKey) (distribution.Record, error) {
	if l.inflight {
		return distribution.Record{}, fmt.Errorf("%w: %s", distribution.ErrCommitPending, pool)
	}
	return l.Ledger.Load(ctx, pool)
}

type poolEnv struct {
	pool      cranker.Pool
	quoteMint solana.PublicKey
	creator   solana.PublicKey
	honorary  distribution.HonoraryPosition
}

func newEnv() *env {
	e := &env{
		bank:   memory.NewBank(),
		oracle: memory.NewOracle(),
		now:    time.Unix(1_700_000_000, 0),
	}
	e.ledger = &inflightLedger{Ledger: memory.NewLedger(e.bank, memory.NewStore())}
	e.engine = distribution.NewEngine(
		e.ledger,
		e.oracle,
		memory.NewGateway(e.bank),
		memory.NewInspector(e.bank),
		distribution.WithClock(func() time.Time { return e.now }),
	)
	return e
}

// addPool sets up a pool with a configured honorary position and investors
// each holding locked tokens.
func (e *env) addPool(t *testing.T, investors int, locked uint64) *poolEnv {
	t.Helper()
	p := &poolEnv{quoteMint: newKey(), creator: newKey()}
	p.pool.Address = newKey()
	baseMint := newKey()
	authority := newKey()
	owner := newKey()
	p.honorary = distribution.HonoraryPosition{
		Owner:              owner,
		Position:           newKey(),
		PositionNftMint:    newKey(),
		PositionNftAccount: newKey(),
		QuoteTreasury:      newKey(),
		BaseFeeCheck:       newKey(),
	}

	e.bank.AddMint(p.quoteMint, 6)
	e.bank.AddMint(baseMint, 9)
	e.bank.AddMint(p.honorary.PositionNftMint, 0)
	e.bank.AddPool(p.pool.Address, memory.Pool{
		BaseMint:       baseMint,
		QuoteMint:      p.quoteMint,
		CollectFeeMode: distribution.CollectFeeModeOnlyB,
	})
	e.bank.AddPosition(p.honorary.Position, memory.Position{Pool: p.pool.Address, NftMint: p.honorary.PositionNftMint})
	e.bank.AddAccount(p.honorary.PositionNftAccount, memory.TokenAccount{Mint: p.honorary.PositionNftMint, Owner: owner, Amount: 1})
	e.bank.AddAccount(p.honorary.QuoteTreasury, memory.TokenAccount{Mint: p.quoteMint, Owner: owner})
	e.bank.AddAccount(p.honorary.BaseFeeCheck, memory.TokenAccount{Mint: baseMint, Owner: owner})
	e.bank.AddAccount(p.creator, memory.TokenAccount{Mint: p.quoteMint, Owner: newKey()})

	ctx := context.Background()
	if _, err := e.engine.InitializePolicy(ctx, distribution.InitializePolicyParams{
		Authority:               authority,
		Pool:                    p.pool.Address,
		QuoteMint:               p.quoteMint,
		BaseMint:                baseMint,
		CreatorQuoteDestination: p.creator,
		InvestorFeeShareBps:     5000,
		Y0:                      1_000_000,
	}); err != nil {
		t.Fatal("InitializePolicy() fail", err)
	}
	if _, err := e.engine.ConfigureHonoraryPosition(ctx, p.pool.Address, authority, p.honorary); err != nil {
		t.Fatal("ConfigureHonoraryPosition() fail", err)
	}

	for range investors {
		ref := distribution.InvestorRef{VestingContract: newKey(), Destination: newKey()}
		recipient := newKey()
		e.bank.AddAccount(ref.Destination, memory.TokenAccount{Mint: p.quoteMint, Owner: recipient})
		e.oracle.Put(ref.VestingContract, memory.Vesting{
			Mint:            p.quoteMint,
			Recipient:       recipient,
			RecipientTokens: ref.Destination,
			Deposited:       locked,
		})
		p.pool.Investors = append(p.pool.Investors, ref)
	}
	return p
}

func (e *env) accrue(t *testing.T, p *poolEnv, quote uint64) {
	t.Helper()
	if err := e.bank.Accrue(p.honorary.Position, 0, quote); err != nil {
		t.Fatal("Accrue() fail", err)
	}
}

func (e *env) paidToInvestors(p *poolEnv) uint64 {
	var total uint64
	for _, ref := range p.pool.Investors {
		total += e.bank.Balance(ref.Destination)
	}
	return total
}

func TestPlannerPages(t *testing.T) {
	refs := make([]distribution.InvestorRef, 17)
	for i := range refs {
		refs[i] = distribution.InvestorRef{VestingContract: newKey(), Destination: newKey()}
	}

	pages := cranker.Planner{PageSize: 8}.Pages(refs)
	if len(pages) != 3 || len(pages[0]) != 8 || len(pages[1]) != 8 || len(pages[2]) != 1 {
		t.Fatalf("unexpected page sizes %d", len(pages))
	}
	if pages[2][0] != refs[16] {
		t.Fatal("last page out of order")
	}

	empty := cranker.Planner{PageSize: 8}.Pages(nil)
	if len(empty) != 1 || len(empty[0]) != 0 {
		t.Fatalf("empty list gave %d pages", len(empty))
	}

	def := cranker.Planner{}.Pages(refs)
	if len(def) != 3 {
		t.Fatalf("default page size gave %d pages", len(def))
	}
}

func TestRunDayConservesClaimedFees(t *testing.T) {
	e := newEnv()
	p := e.addPool(t, 10, 100_000)
	e.accrue(t, p, 100_000)

	runner := cranker.NewRunner(e.engine, cranker.Planner{PageSize: 4})
	res, err := runner.RunDay(context.Background(), p.pool)
	if err != nil {
		t.Fatal("RunDay() fail", err)
	}
	if res.Skipped || res.Resumed || res.Pages != 3 || res.Day != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	rec, err := e.engine.Record(context.Background(), p.pool.Address)
	if err != nil {
		t.Fatal("Record() fail", err)
	}
	if got := res.Paid + res.Creator + rec.Progress.DustCarry; got != 100_000 {
		t.Fatalf("paid %d + creator %d + dust %d != claimed", res.Paid, res.Creator, rec.Progress.DustCarry)
	}
	if got := e.paidToInvestors(p); got != res.Paid {
		t.Fatalf("investors received %d, result says %d", got, res.Paid)
	}
	if got := e.bank.Balance(p.creator); got != res.Creator {
		t.Fatalf("creator received %d, result says %d", got, res.Creator)
	}
	if res.Paid > 50_000 {
		t.Fatalf("investors paid %d above the 50%% share", res.Paid)
	}
	if rec.Progress.DayOpen {
		t.Fatal("day left open")
	}
}

func TestRunDaySkipsUntilNextDay(t *testing.T) {
	e := newEnv()
	p := e.addPool(t, 2, 100_000)
	e.accrue(t, p, 1_000)
	runner := cranker.NewRunner(e.engine, cranker.Planner{PageSize: 4})
	ctx := context.Background()

	if _, err := runner.RunDay(ctx, p.pool); err != nil {
		t.Fatal("RunDay() fail", err)
	}

	e.now = e.now.Add(time.Hour)
	res, err := runner.RunDay(ctx, p.pool)
	if err != nil {
		t.Fatal("RunDay() early fail", err)
	}
	if !res.Skipped || res.Pages != 0 {
		t.Fatalf("expected skip, got %+v", res)
	}

	e.now = e.now.Add(24 * time.Hour)
	e.accrue(t, p, 1_000)
	res, err = runner.RunDay(ctx, p.pool)
	if err != nil {
		t.Fatal("RunDay() next day fail", err)
	}
	if res.Skipped || res.Day != 2 {
		t.Fatalf("expected day 2, got %+v", res)
	}
}

func TestRunDayResumesOpenDay(t *testing.T) {
	e := newEnv()
	p := e.addPool(t, 6, 100_000)
	e.accrue(t, p, 60_000)
	planner := cranker.Planner{PageSize: 2}
	ctx := context.Background()

	// A previous run stopped after the first page.
	pages := planner.Pages(p.pool.Investors)
	if _, err := e.engine.Crank(ctx, p.pool.Address, distribution.CrankParams{
		ExpectedPageCursor: 0,
		Page:               pages[0],
	}); err != nil {
		t.Fatal("Crank() fail", err)
	}

	res, err := cranker.NewRunner(e.engine, planner).RunDay(ctx, p.pool)
	if err != nil {
		t.Fatal("RunDay() fail", err)
	}
	if !res.Resumed || res.Pages != 2 || res.Day != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	for _, ref := range p.pool.Investors {
		if e.bank.Balance(ref.Destination) == 0 {
			t.Fatalf("investor %s not paid", ref.Destination)
		}
	}
	rec, err := e.engine.Record(ctx, p.pool.Address)
	if err != nil {
		t.Fatal("Record() fail", err)
	}
	if rec.Progress.DayOpen || rec.Progress.PageCursor != 0 {
		t.Fatalf("day not closed: %+v", rec.Progress)
	}
}

func TestRunDayClosesWhenInvestorListShrank(t *testing.T) {
	e := newEnv()
	p := e.addPool(t, 4, 100_000)
	e.accrue(t, p, 10_000)
	ctx := context.Background()

	pages := cranker.Planner{PageSize: 2}.Pages(p.pool.Investors)
	if _, err := e.engine.Crank(ctx, p.pool.Address, distribution.CrankParams{Page: pages[0]}); err != nil {
		t.Fatal("Crank() fail", err)
	}
	if _, err := e.engine.Crank(ctx, p.pool.Address, distribution.CrankParams{ExpectedPageCursor: 1, Page: pages[1]}); err != nil {
		t.Fatal("Crank() fail", err)
	}

	// Cursor 2 is past the last page of the new list; the runner closes
	// the day with an empty page.
	p.pool.Investors = p.pool.Investors[:2]
	res, err := cranker.NewRunner(e.engine, cranker.Planner{PageSize: 2}).RunDay(ctx, p.pool)
	if err != nil {
		t.Fatal("RunDay() fail", err)
	}
	if res.Pages != 1 || res.Creator == 0 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRunDayHonoursLock(t *testing.T) {
	e := newEnv()
	p := e.addPool(t, 1, 100_000)
	locker := memory.NewLocker()
	unlock, err := locker.Acquire(context.Background(), cranker.RunLockKey(p.pool.Address), time.Minute)
	if err != nil {
		t.Fatal("Acquire() fail", err)
	}

	runner := cranker.NewRunner(e.engine, cranker.Planner{}, cranker.WithRunLocker(locker, time.Minute))
	if _, err := runner.RunDay(context.Background(), p.pool); !errors.Is(err, distribution.ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}

	unlock()
	if _, err := runner.RunDay(context.Background(), p.pool); err != nil {
		t.Fatal("RunDay() after unlock fail", err)
	}
}

func TestRunDayWaitsForCommitInFlight(t *testing.T) {
	e := newEnv()
	p := e.addPool(t, 2, 100_000)
	e.accrue(t, p, 10_000)
	runner := cranker.NewRunner(e.engine, cranker.Planner{PageSize: 1})

	e.ledger.inflight = true
	res, err := runner.RunDay(context.Background(), p.pool)
	if err != nil {
		t.Fatal("RunDay() fail", err)
	}
	if !res.Skipped || res.Pages != 0 {
		t.Fatalf("expected skipped run, got %+v", res)
	}
	if e.paidToInvestors(p) != 0 {
		t.Fatal("paid while a commit was in flight")
	}

	e.ledger.inflight = false
	if res, err = runner.RunDay(context.Background(), p.pool); err != nil {
		t.Fatal("RunDay() fail", err)
	}
	if res.Skipped || res.Pages != 2 {
		t.Fatalf("expected a full day, got %+v", res)
	}
}

func TestServiceRunAllIsolatesPools(t *testing.T) {
	e := newEnv()
	good := e.addPool(t, 3, 100_000)
	e.accrue(t, good, 9_000)
	missing := cranker.Pool{Address: newKey()}

	runner := cranker.NewRunner(e.engine, cranker.Planner{PageSize: 2})
	svc := cranker.NewService(runner, []cranker.Pool{missing, good.pool}, 2, nil)
	results, err := svc.RunAll(context.Background())
	if !errors.Is(err, distribution.ErrPolicyNotFound) {
		t.Fatalf("expected ErrPolicyNotFound, got %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	if results[1].Pool != good.pool.Address || results[1].Pages != 2 {
		t.Fatalf("good pool result %+v", results[1])
	}
	if e.paidToInvestors(good)+e.bank.Balance(good.creator) == 0 {
		t.Fatal("good pool paid nothing")
	}
}

func TestSchedulerRegister(t *testing.T) {
	svc := cranker.NewService(cranker.NewRunner(newEnv().engine, cranker.Planner{}), nil, 1, nil)
	s := cranker.NewScheduler(context.Background(), svc, nil)
	if err := s.Register("0 0 * * *"); err != nil {
		t.Fatal("Register() fail", err)
	}
	if err := s.Register("not a schedule"); err == nil {
		t.Fatal("Register() accepted a bad schedule")
	}
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatal("Stop() fail", err)
	}
}
