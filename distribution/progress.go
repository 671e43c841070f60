package distribution

import "fmt"

// Progress is the per-pool distribution state for the current day.
type Progress struct {
	DayAnchorTime               int64
	DayOpen                     bool
	PageCursor                  uint32
	ClaimedQuoteToday           uint64
	DistributedToInvestorsToday uint64
	DustCarry                   uint64

	// Day counts opened days; zero means no day has been opened yet.
	Day uint64
	// DustRolledToday is the part of ClaimedQuoteToday carried over from the
	// previous day's dust.
	DustRolledToday   uint64
	LockedTotalToday  uint64
	InvestorPoolToday uint64
	EligibleShareBps  uint16
}

func (p Progress) Validate() error {
	if p.DistributedToInvestorsToday > p.ClaimedQuoteToday {
		return fmt.Errorf("%w: distributed %d exceeds claimed %d",
			ErrArithmeticOverflow, p.DistributedToInvestorsToday, p.ClaimedQuoteToday)
	}
	if p.DayOpen {
		spent, err := checkedAdd(p.DistributedToInvestorsToday, p.DustCarry)
		if err != nil {
			return err
		}
		if spent > p.ClaimedQuoteToday {
			return fmt.Errorf("%w: distributed plus dust %d exceeds claimed %d",
				ErrArithmeticOverflow, spent, p.ClaimedQuoteToday)
		}
	}
	if !p.DayOpen && p.PageCursor != 0 {
		return fmt.Errorf("%w: closed day with cursor %d", ErrCursorMismatch, p.PageCursor)
	}
	return nil
}

// DayElapsed reports whether a new day may be opened at now.
func (p Progress) DayElapsed(now int64, periodSeconds int64) bool {
	if p.Day == 0 {
		return true
	}
	return now-p.DayAnchorTime >= periodSeconds
}

func (p *Progress) openDay(now int64, claimed uint64) error {
	total, err := checkedAdd(claimed, p.DustCarry)
	if err != nil {
		return err
	}
	day, err := checkedAdd(p.Day, 1)
	if err != nil {
		return err
	}
	p.DustRolledToday = p.DustCarry
	p.DustCarry = 0
	p.ClaimedQuoteToday = total
	p.DistributedToInvestorsToday = 0
	p.LockedTotalToday = 0
	p.InvestorPoolToday = 0
	p.EligibleShareBps = 0
	p.PageCursor = 0
	p.DayAnchorTime = now
	p.DayOpen = true
	p.Day = day
	return nil
}

// closeDay returns the creator remainder and resets the day-scoped fields.
// The creator receives claimed - distributed - dust carry; the carried dust
// stays in the treasury and seeds the next day.
func (p *Progress) closeDay() (uint64, error) {
	remainder, err := checkedSub(p.ClaimedQuoteToday, p.DistributedToInvestorsToday)
	if err != nil {
		return 0, err
	}
	creator, err := checkedSub(remainder, p.DustCarry)
	if err != nil {
		return 0, err
	}
	p.DayOpen = false
	p.PageCursor = 0
	p.ClaimedQuoteToday = 0
	p.DistributedToInvestorsToday = 0
	p.DustRolledToday = 0
	p.LockedTotalToday = 0
	p.InvestorPoolToday = 0
	p.EligibleShareBps = 0
	return creator, nil
}
