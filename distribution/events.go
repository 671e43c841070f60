package distribution

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

type Event interface {
	EventName() string
}

type PolicyInitialized struct {
	Pool                solana.PublicKey `json:"pool"`
	Authority           solana.PublicKey `json:"authority"`
	InvestorFeeShareBps uint16           `json:"investor_fee_share_bps"`
	Y0                  uint64           `json:"y0"`
	DailyCapQuote       uint64           `json:"daily_cap_quote"`
	MinPayout           uint64           `json:"min_payout"`
}

func (PolicyInitialized) EventName() string { return "policy_initialized" }

type HonoraryPositionConfigured struct {
	Pool          solana.PublicKey `json:"pool"`
	Position      solana.PublicKey `json:"position"`
	QuoteTreasury solana.PublicKey `json:"quote_treasury"`
	BaseFeeCheck  solana.PublicKey `json:"base_fee_check"`
}

func (HonoraryPositionConfigured) EventName() string { return "honorary_position_configured" }

type QuoteFeesClaimed struct {
	Pool         solana.PublicKey `json:"pool"`
	Day          uint64           `json:"day"`
	Claimed      uint64           `json:"claimed"`
	DustRolled   uint64           `json:"dust_rolled"`
	ClaimedToday uint64           `json:"claimed_today"`
	Timestamp    int64            `json:"timestamp"`
}

func (QuoteFeesClaimed) EventName() string { return "quote_fees_claimed" }

type InvestorPayoutPage struct {
	Pool             solana.PublicKey `json:"pool"`
	Day              uint64           `json:"day"`
	PageCursor       uint32           `json:"page_cursor"`
	Investors        int              `json:"investors"`
	PageLocked       uint64           `json:"page_locked"`
	LockedTotal      uint64           `json:"locked_total"`
	EligibleShareBps uint16           `json:"eligible_share_bps"`
	InvestorPool     uint64           `json:"investor_pool"`
	Paid             uint64           `json:"paid"`
	Dust             uint64           `json:"dust"`
	Timestamp        int64            `json:"timestamp"`
}

func (InvestorPayoutPage) EventName() string { return "investor_payout_page" }

type CreatorPayoutDayClosed struct {
	Pool                   solana.PublicKey `json:"pool"`
	Day                    uint64           `json:"day"`
	ClaimedToday           uint64           `json:"claimed_today"`
	DistributedToInvestors uint64           `json:"distributed_to_investors"`
	CreatorAmount          uint64           `json:"creator_amount"`
	DustCarry              uint64           `json:"dust_carry"`
	Timestamp              int64            `json:"timestamp"`
}

func (CreatorPayoutDayClosed) EventName() string { return "creator_payout_day_closed" }

type discardSink struct{}

func (discardSink) Emit(context.Context, Event) {}
