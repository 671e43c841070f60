package distribution

import "github.com/gagliardetto/solana-go"

// Record is the persisted unit for one pool. Every successful operation
// stores Version+1 and must be written with compare-and-swap on Version.
type Record struct {
	Policy   Policy
	Honorary HonoraryPosition
	Progress Progress
	Version  uint64
}

func (r Record) Pool() solana.PublicKey {
	return r.Policy.Pool
}

// TransferKind tells investor payouts apart from the creator remainder.
type TransferKind uint8

const (
	TransferInvestor TransferKind = iota
	TransferCreator
)

func (k TransferKind) String() string {
	switch k {
	case TransferInvestor:
		return "investor"
	case TransferCreator:
		return "creator"
	default:
		return "unknown"
	}
}

// Transfer moves quote tokens out of the honorary treasury.
type Transfer struct {
	Kind            TransferKind
	Source          solana.PublicKey
	Destination     solana.PublicKey
	Amount          uint64
	VestingContract solana.PublicKey // zero for the creator transfer
}

// FeeClaim is the result of claiming the honorary position's fees.
type FeeClaim struct {
	QuoteClaimed uint64
	BaseClaimed  uint64
}

func (c FeeClaim) BaseFeePresent() bool {
	return c.BaseClaimed > 0
}

// Commit is everything one successful call changes. A Ledger applies it
// entirely or not at all.
type Commit struct {
	ExpectedVersion uint64
	Next            Record
	// Claim is non-nil only on the call that opens a day.
	Claim     *FeeClaim
	Transfers []Transfer
}

func (c Commit) Pool() solana.PublicKey {
	return c.Next.Policy.Pool
}

// TotalTransferred sums all transfer amounts with overflow checking.
func (c Commit) TotalTransferred() (uint64, error) {
	var total uint64
	for _, t := range c.Transfers {
		var err error
		if total, err = checkedAdd(total, t.Amount); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// PendingCommit is a commit whose transaction was signed and may have been
// submitted but whose record swap has not been confirmed yet. It is stored
// before the transaction leaves the process.
type PendingCommit struct {
	Commit               Commit
	Signature            solana.Signature
	LastValidBlockHeight uint64
}
