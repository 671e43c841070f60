package distribution

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// DustRouting decides where dust carried from the previous day goes.
type DustRouting uint8

const (
	// DustIntoClaimed adds carried dust to the day's claimed amount before
	// eligibility and the daily cap are applied.
	DustIntoClaimed DustRouting = iota
	// DustAfterCap sizes the investor pool from fresh fees only and then
	// adds carried dust on top of it, outside the cap.
	DustAfterCap
)

func (r DustRouting) String() string {
	switch r {
	case DustIntoClaimed:
		return "into_claimed"
	case DustAfterCap:
		return "after_cap"
	default:
		return fmt.Sprintf("DustRouting(%d)", uint8(r))
	}
}

// ParseDustRouting accepts the String forms.
func ParseDustRouting(s string) (DustRouting, error) {
	switch s {
	case "", "into_claimed":
		return DustIntoClaimed, nil
	case "after_cap":
		return DustAfterCap, nil
	default:
		return 0, fmt.Errorf("unknown dust routing %q", s)
	}
}

type Payout struct {
	InvestorRef
	Locked uint64
	// Raw is the pro-rata share before the minimum payout is applied.
	Raw uint64
	// Amount is Raw, or 0 when Raw is below the minimum payout.
	Amount uint64
}

// PagePlan is the outcome of pricing one page against the day's state.
type PagePlan struct {
	Payouts          []Payout
	PageLocked       uint64
	LockedTotal      uint64
	EligibleShareBps uint16
	InvestorPool     uint64
	Paid             uint64
	Dust             uint64
}

type PageInput struct {
	Policy   Policy
	Progress Progress
	Routing  DustRouting
	Page     []InvestorRef
	Readings []VestingReading
}

// PlanPage computes payouts for one page. Progress must describe an open day.
// Eligibility uses the locked total accumulated over all pages so far, so the
// pool can only grow as pages arrive and the sum of payouts never exceeds it.
func PlanPage(in PageInput) (PagePlan, error) {
	if err := validateReadings(in.Policy, in.Page, in.Readings); err != nil {
		return PagePlan{}, err
	}

	var plan PagePlan
	for _, r := range in.Readings {
		var err error
		if plan.PageLocked, err = checkedAdd(plan.PageLocked, r.Locked); err != nil {
			return PagePlan{}, err
		}
	}
	var err error
	if plan.LockedTotal, err = checkedAdd(in.Progress.LockedTotalToday, plan.PageLocked); err != nil {
		return PagePlan{}, err
	}
	if plan.EligibleShareBps, plan.InvestorPool, err = sizeInvestorPool(in.Policy, in.Progress, plan.LockedTotal, in.Routing); err != nil {
		return PagePlan{}, err
	}

	spent, err := checkedAdd(in.Progress.DistributedToInvestorsToday, in.Progress.DustCarry)
	if err != nil {
		return PagePlan{}, err
	}
	room, err := checkedSub(plan.InvestorPool, spent)
	if err != nil {
		return PagePlan{}, err
	}

	plan.Payouts = make([]Payout, len(in.Page))
	for i, ref := range in.Page {
		p := Payout{InvestorRef: ref, Locked: in.Readings[i].Locked}
		if plan.LockedTotal > 0 {
			if p.Raw, err = MulDivFloor(plan.InvestorPool, p.Locked, plan.LockedTotal); err != nil {
				return PagePlan{}, err
			}
		}
		if p.Raw > room {
			p.Raw = room
		}
		room -= p.Raw
		if p.Raw < in.Policy.MinPayout {
			if plan.Dust, err = checkedAdd(plan.Dust, p.Raw); err != nil {
				return PagePlan{}, err
			}
		} else {
			p.Amount = p.Raw
			if plan.Paid, err = checkedAdd(plan.Paid, p.Amount); err != nil {
				return PagePlan{}, err
			}
		}
		plan.Payouts[i] = p
	}
	return plan, nil
}

func sizeInvestorPool(policy Policy, prog Progress, lockedTotal uint64, routing DustRouting) (uint16, uint64, error) {
	bps, err := EligibleShareBps(lockedTotal, policy.Y0, policy.InvestorFeeShareBps)
	if err != nil {
		return 0, 0, err
	}
	switch routing {
	case DustAfterCap:
		fresh, err := checkedSub(prog.ClaimedQuoteToday, prog.DustRolledToday)
		if err != nil {
			return 0, 0, err
		}
		pool, err := InvestorPool(fresh, bps, policy.DailyCapQuote)
		if err != nil {
			return 0, 0, err
		}
		if pool, err = checkedAdd(pool, prog.DustRolledToday); err != nil {
			return 0, 0, err
		}
		return bps, pool, nil
	default:
		pool, err := InvestorPool(prog.ClaimedQuoteToday, bps, policy.DailyCapQuote)
		return bps, pool, err
	}
}

func validateReadings(policy Policy, page []InvestorRef, readings []VestingReading) error {
	if len(readings) != len(page) {
		return fmt.Errorf("%w: %d readings for %d investors", ErrAccountMismatch, len(readings), len(page))
	}
	seen := make(map[solana.PublicKey]struct{}, len(page))
	for i, ref := range page {
		r := readings[i]
		if _, dup := seen[ref.VestingContract]; dup {
			return fmt.Errorf("%w: vesting contract %s repeated in page", ErrAccountMismatch, ref.VestingContract)
		}
		seen[ref.VestingContract] = struct{}{}
		switch {
		case !r.Contract.Equals(ref.VestingContract):
			return fmt.Errorf("%w: reading %d is for %s, want %s", ErrAccountMismatch, i, r.Contract, ref.VestingContract)
		case !r.Mint.Equals(policy.QuoteMint):
			return fmt.Errorf("%w: vesting %s mint %s is not the quote mint", ErrAccountMismatch, ref.VestingContract, r.Mint)
		case !r.RecipientTokens.Equals(ref.Destination):
			return fmt.Errorf("%w: destination %s is not the recipient token account of %s", ErrAccountMismatch, ref.Destination, ref.VestingContract)
		}
	}
	return nil
}
