package distribution

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
)

type CrankParams struct {
	ExpectedPageCursor uint32
	// MaxPageCursor bounds ExpectedPageCursor when non-zero.
	MaxPageCursor uint32
	IsLastPage    bool
	Page          []InvestorRef
}

type CrankResult struct {
	Record Record
	Claim  *FeeClaim
	Plan   PagePlan
	// CreatorAmount is set on the last page of a day.
	CreatorAmount uint64
	Transfers     []Transfer
	DayClosed     bool
}

// Crank processes one page of the day's distribution. The first page of a
// day claims the honorary position's fees. Every failure leaves the stored
// record and all balances untouched.
func (e *Engine) Crank(ctx context.Context, pool solana.PublicKey, params CrankParams) (*CrankResult, error) {
	unlock, err := e.lock(ctx, pool)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rec, err := e.ledger.Load(ctx, pool)
	if err != nil {
		return nil, err
	}
	if !rec.Honorary.Configured() {
		return nil, ErrPositionNotReady
	}

	prog := rec.Progress
	if params.ExpectedPageCursor != prog.PageCursor {
		return nil, fmt.Errorf("%w: expected %d, stored %d", ErrCursorMismatch, params.ExpectedPageCursor, prog.PageCursor)
	}
	if params.MaxPageCursor != 0 && params.ExpectedPageCursor > params.MaxPageCursor {
		return nil, fmt.Errorf("%w: %d > %d", ErrPageOverflow, params.ExpectedPageCursor, params.MaxPageCursor)
	}
	if len(params.Page) == 0 && !params.IsLastPage {
		return nil, ErrEmptyPage
	}

	now := e.clock().Unix()
	if now < 0 {
		return nil, ErrInvalidTimestamp
	}

	var claim *FeeClaim
	if !prog.DayOpen {
		if !prog.DayElapsed(now, int64(e.dayPeriod.Seconds())) {
			return nil, fmt.Errorf("%w: next day opens at %d", ErrTooEarly, prog.DayAnchorTime+int64(e.dayPeriod.Seconds()))
		}
		c, err := e.gateway.Claim(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("claim fees: %w", err)
		}
		if c.BaseFeePresent() {
			return nil, fmt.Errorf("%w: %d base units", ErrBaseFeeDetected, c.BaseClaimed)
		}
		if err := prog.openDay(now, c.QuoteClaimed); err != nil {
			return nil, err
		}
		claim = &c
	}

	readings, err := e.readPage(ctx, params.Page, now)
	if err != nil {
		return nil, err
	}
	plan, err := PlanPage(PageInput{
		Policy:   rec.Policy,
		Progress: prog,
		Routing:  e.routing,
		Page:     params.Page,
		Readings: readings,
	})
	if err != nil {
		return nil, err
	}

	prog.LockedTotalToday = plan.LockedTotal
	prog.EligibleShareBps = plan.EligibleShareBps
	prog.InvestorPoolToday = plan.InvestorPool
	if prog.DistributedToInvestorsToday, err = checkedAdd(prog.DistributedToInvestorsToday, plan.Paid); err != nil {
		return nil, err
	}
	if prog.DustCarry, err = checkedAdd(prog.DustCarry, plan.Dust); err != nil {
		return nil, err
	}
	if prog.PageCursor, err = incrementCursor(prog.PageCursor); err != nil {
		return nil, err
	}
	// Snapshot of the closing day for events, taken before closeDay resets it.
	day := prog

	transfers := make([]Transfer, 0, len(plan.Payouts)+1)
	for _, p := range plan.Payouts {
		if p.Amount == 0 {
			continue
		}
		transfers = append(transfers, Transfer{
			Kind:            TransferInvestor,
			Source:          rec.Honorary.QuoteTreasury,
			Destination:     p.Destination,
			Amount:          p.Amount,
			VestingContract: p.VestingContract,
		})
	}

	var creator uint64
	if params.IsLastPage {
		if creator, err = prog.closeDay(); err != nil {
			return nil, err
		}
		if creator > 0 {
			transfers = append(transfers, Transfer{
				Kind:        TransferCreator,
				Source:      rec.Honorary.QuoteTreasury,
				Destination: rec.Policy.CreatorQuoteDestination,
				Amount:      creator,
			})
		}
	}
	if err := prog.Validate(); err != nil {
		return nil, err
	}

	next := rec
	next.Progress = prog
	next.Version = rec.Version + 1
	commit := Commit{
		ExpectedVersion: rec.Version,
		Next:            next,
		Claim:           claim,
		Transfers:       transfers,
	}
	if err := e.ledger.Apply(ctx, commit); err != nil {
		return nil, fmt.Errorf("apply page %d: %w", params.ExpectedPageCursor, err)
	}

	e.report(ctx, pool, now, claim, day, plan, params, creator)
	return &CrankResult{
		Record:        next,
		Claim:         claim,
		Plan:          plan,
		CreatorAmount: creator,
		Transfers:     transfers,
		DayClosed:     params.IsLastPage,
	}, nil
}

func (e *Engine) readPage(ctx context.Context, page []InvestorRef, now int64) ([]VestingReading, error) {
	if len(page) == 0 {
		return nil, nil
	}
	contracts := make([]solana.PublicKey, len(page))
	for i, ref := range page {
		contracts[i] = ref.VestingContract
	}
	readings, err := e.oracle.ReadLocked(ctx, contracts, now)
	if err != nil {
		return nil, fmt.Errorf("read locked amounts: %w", err)
	}
	return readings, nil
}

func (e *Engine) report(ctx context.Context, pool solana.PublicKey, now int64, claim *FeeClaim, day Progress, plan PagePlan, params CrankParams, creator uint64) {
	log := e.logger.With(slog.String("pool", pool.String()), slog.Uint64("day", day.Day))
	if claim != nil {
		log.Info("day opened",
			slog.Uint64("claimed", claim.QuoteClaimed),
			slog.Uint64("dust_rolled", day.DustRolledToday),
			slog.Uint64("claimed_today", day.ClaimedQuoteToday))
		e.emit(ctx, QuoteFeesClaimed{
			Pool:         pool,
			Day:          day.Day,
			Claimed:      claim.QuoteClaimed,
			DustRolled:   day.DustRolledToday,
			ClaimedToday: day.ClaimedQuoteToday,
			Timestamp:    now,
		})
	}

	log.Info("page distributed",
		slog.Uint64("page", uint64(params.ExpectedPageCursor)),
		slog.Int("investors", len(params.Page)),
		slog.Uint64("locked_total", plan.LockedTotal),
		slog.Uint64("eligible_share_bps", uint64(plan.EligibleShareBps)),
		slog.Uint64("investor_pool", plan.InvestorPool),
		slog.Uint64("paid", plan.Paid),
		slog.Uint64("dust", plan.Dust))
	e.emit(ctx, InvestorPayoutPage{
		Pool:             pool,
		Day:              day.Day,
		PageCursor:       params.ExpectedPageCursor,
		Investors:        len(params.Page),
		PageLocked:       plan.PageLocked,
		LockedTotal:      plan.LockedTotal,
		EligibleShareBps: plan.EligibleShareBps,
		InvestorPool:     plan.InvestorPool,
		Paid:             plan.Paid,
		Dust:             plan.Dust,
		Timestamp:        now,
	})

	if params.IsLastPage {
		log.Info("day closed",
			slog.Uint64("creator", creator),
			slog.Uint64("distributed", day.DistributedToInvestorsToday),
			slog.Uint64("dust_carry", day.DustCarry))
		e.emit(ctx, CreatorPayoutDayClosed{
			Pool:                   pool,
			Day:                    day.Day,
			ClaimedToday:           day.ClaimedQuoteToday,
			DistributedToInvestors: day.DistributedToInvestorsToday,
			CreatorAmount:          creator,
			DustCarry:              day.DustCarry,
			Timestamp:              now,
		})
	}
}
