package distribution

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func pageOf(quote solana.PublicKey, locked ...uint64) ([]InvestorRef, []VestingReading) {
	page := make([]InvestorRef, len(locked))
	readings := make([]VestingReading, len(locked))
	for i, l := range locked {
		page[i] = InvestorRef{VestingContract: solana.NewWallet().PublicKey(), Destination: solana.NewWallet().PublicKey()}
		readings[i] = VestingReading{
			Contract:        page[i].VestingContract,
			Mint:            quote,
			RecipientTokens: page[i].Destination,
			Locked:          l,
		}
	}
	return page, readings
}

func TestPlanPageAcrossPages(t *testing.T) {
	quote := solana.NewWallet().PublicKey()
	policy := Policy{QuoteMint: quote, InvestorFeeShareBps: 10_000, Y0: 1_000_000}
	prog := Progress{DayOpen: true, ClaimedQuoteToday: 100_000}

	page, readings := pageOf(quote, 300_000, 200_000)
	first, err := PlanPage(PageInput{Policy: policy, Progress: prog, Page: page, Readings: readings})
	if err != nil {
		t.Fatal("PlanPage() fail", err)
	}
	if first.LockedTotal != 500_000 || first.EligibleShareBps != 5_000 || first.InvestorPool != 50_000 {
		t.Fatalf("unexpected first plan %+v", first)
	}
	if first.Payouts[0].Amount != 30_000 || first.Payouts[1].Amount != 20_000 {
		t.Fatalf("unexpected payouts %+v", first.Payouts)
	}

	prog.LockedTotalToday = first.LockedTotal
	prog.DistributedToInvestorsToday = first.Paid
	page, readings = pageOf(quote, 500_000)
	second, err := PlanPage(PageInput{Policy: policy, Progress: prog, Page: page, Readings: readings})
	if err != nil {
		t.Fatal("PlanPage() fail", err)
	}
	if second.InvestorPool != 100_000 {
		t.Fatalf("pool %d, want 100000", second.InvestorPool)
	}
	if second.Payouts[0].Amount != 50_000 {
		t.Fatalf("payout %d, want 50000", second.Payouts[0].Amount)
	}
	if total := first.Paid + second.Paid; total > second.InvestorPool {
		t.Fatalf("paid %d exceeds pool %d", total, second.InvestorPool)
	}
}

func TestPlanPageClampsToRemainingPool(t *testing.T) {
	quote := solana.NewWallet().PublicKey()
	policy := Policy{QuoteMint: quote, InvestorFeeShareBps: 10_000, Y0: 100}
	prog := Progress{DayOpen: true, ClaimedQuoteToday: 1_000, LockedTotalToday: 100, DistributedToInvestorsToday: 1_000}

	page, readings := pageOf(quote, 100)
	plan, err := PlanPage(PageInput{Policy: policy, Progress: prog, Page: page, Readings: readings})
	if err != nil {
		t.Fatal("PlanPage() fail", err)
	}
	if plan.Paid != 0 || plan.Payouts[0].Raw != 0 {
		t.Fatalf("paid beyond pool: %+v", plan)
	}
}

func TestPlanPageDust(t *testing.T) {
	quote := solana.NewWallet().PublicKey()
	policy := Policy{QuoteMint: quote, InvestorFeeShareBps: 10_000, Y0: 1_000, MinPayout: 1_000}
	prog := Progress{DayOpen: true, ClaimedQuoteToday: 1_500}

	page, readings := pageOf(quote, 1_000, 2_000)
	plan, err := PlanPage(PageInput{Policy: policy, Progress: prog, Page: page, Readings: readings})
	if err != nil {
		t.Fatal("PlanPage() fail", err)
	}
	if plan.Payouts[0].Raw != 500 || plan.Payouts[0].Amount != 0 {
		t.Fatalf("unexpected first payout %+v", plan.Payouts[0])
	}
	if plan.Payouts[1].Amount != 1_000 || plan.Dust != 500 || plan.Paid != 1_000 {
		t.Fatalf("unexpected plan %+v", plan)
	}
}

func TestPlanPageReadingMismatch(t *testing.T) {
	quote := solana.NewWallet().PublicKey()
	policy := Policy{QuoteMint: quote, InvestorFeeShareBps: 10_000, Y0: 1_000}
	prog := Progress{DayOpen: true, ClaimedQuoteToday: 1_500}

	page, readings := pageOf(quote, 1, 2)
	readings[0], readings[1] = readings[1], readings[0]
	if _, err := PlanPage(PageInput{Policy: policy, Progress: prog, Page: page, Readings: readings}); !errors.Is(err, ErrAccountMismatch) {
		t.Fatal("expected ErrAccountMismatch, got", err)
	}
	if _, err := PlanPage(PageInput{Policy: policy, Progress: prog, Page: page, Readings: readings[:1]}); !errors.Is(err, ErrAccountMismatch) {
		t.Fatal("expected ErrAccountMismatch, got", err)
	}
}

func TestParseDustRouting(t *testing.T) {
	for _, r := range []DustRouting{DustIntoClaimed, DustAfterCap} {
		got, err := ParseDustRouting(r.String())
		if err != nil || got != r {
			t.Fatalf("ParseDustRouting(%q) = %v, %v", r.String(), got, err)
		}
	}
	if _, err := ParseDustRouting("creator"); err == nil {
		t.Fatal("expected error for unknown routing")
	}
}
