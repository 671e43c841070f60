package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/krazyTry/honorary-quote-fee/distribution"
)

// newStore connects to HQF_TEST_POSTGRES_DSN; the tests skip without it.
func newStore(t *testing.T) *RecordStore {
	dsn := os.Getenv("HQF_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("HQF_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	client, err := New(ctx, ClientConfig{DSN: dsn, MaxConns: 2})
	if err != nil {
		t.Fatal("New() fail", err)
	}
	t.Cleanup(client.Close)
	if err := client.RunMigrations(ctx); err != nil {
		t.Fatal("RunMigrations() fail", err)
	}
	if err := client.RunMigrations(ctx); err != nil {
		t.Fatal("second RunMigrations() fail", err)
	}
	return NewRecordStore(client.Pool())
}

func testRecord() distribution.Record {
	return distribution.Record{
		Policy: distribution.Policy{
			Pool:                solanago.NewWallet().PublicKey(),
			QuoteMint:           solanago.NewWallet().PublicKey(),
			InvestorFeeShareBps: 5000,
			Y0:                  1_000_000,
		},
		Version: 1,
	}
}

func TestRecordStore(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	rec := testRecord()

	if _, err := s.Get(ctx, rec.Pool()); !errors.Is(err, distribution.ErrPolicyNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.Create(ctx, rec); err != nil {
		t.Fatal("Create() fail", err)
	}
	if err := s.Create(ctx, rec); !errors.Is(err, distribution.ErrPolicyExists) {
		t.Fatalf("expected policy exists, got %v", err)
	}

	next := rec
	next.Version = 2
	next.Progress.Day = 1
	commit := distribution.Commit{
		ExpectedVersion: 1,
		Next:            next,
		Transfers: []distribution.Transfer{{
			Kind:            distribution.TransferInvestor,
			Destination:     solanago.NewWallet().PublicKey(),
			VestingContract: solanago.NewWallet().PublicKey(),
			Amount:          ^uint64(0),
		}},
	}
	if err := s.CompareAndSwap(ctx, commit); err != nil {
		t.Fatal("CompareAndSwap() fail", err)
	}
	if err := s.CompareAndSwap(ctx, commit); !errors.Is(err, distribution.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	got, err := s.Get(ctx, rec.Pool())
	if err != nil {
		t.Fatal("Get() fail", err)
	}
	if got != next {
		t.Fatalf("got %+v, want %+v", got, next)
	}

	payouts, err := s.Payouts(ctx, rec.Pool(), 1)
	if err != nil {
		t.Fatal("Payouts() fail", err)
	}
	if len(payouts) != 1 || payouts[0].Amount != ^uint64(0) || payouts[0].Kind != "investor" {
		t.Fatalf("unexpected payouts %+v", payouts)
	}
}

func TestPendingCommits(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	rec := testRecord()
	if err := s.Create(ctx, rec); err != nil {
		t.Fatal("Create() fail", err)
	}

	if _, ok, err := s.Pending(ctx, rec.Pool()); err != nil || ok {
		t.Fatalf("unexpected pending commit: ok=%v err=%v", ok, err)
	}
	next := rec
	next.Version = 2
	p := distribution.PendingCommit{
		Commit:               distribution.Commit{ExpectedVersion: 1, Next: next, Claim: &distribution.FeeClaim{QuoteClaimed: 10}},
		Signature:            solanago.Signature{7},
		LastValidBlockHeight: 1_000,
	}
	if err := s.PutPending(ctx, p); err != nil {
		t.Fatal("PutPending() fail", err)
	}
	if err := s.PutPending(ctx, p); !errors.Is(err, distribution.ErrCommitPending) {
		t.Fatalf("expected ErrCommitPending, got %v", err)
	}
	got, ok, err := s.Pending(ctx, rec.Pool())
	if err != nil || !ok {
		t.Fatalf("Pending() fail: ok=%v err=%v", ok, err)
	}
	if got.Signature != p.Signature || got.Commit.Next != next || *got.Commit.Claim != *p.Commit.Claim {
		t.Fatalf("got %+v, want %+v", got, p)
	}
	if err := s.DeletePending(ctx, rec.Pool()); err != nil {
		t.Fatal("DeletePending() fail", err)
	}
	if _, ok, _ := s.Pending(ctx, rec.Pool()); ok {
		t.Fatal("pending commit survived delete")
	}
}
