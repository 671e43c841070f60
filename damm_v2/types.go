package dammv2

import (
	"errors"

	solanago "github.com/gagliardetto/solana-go"

	dammv2gen "github.com/krazyTry/honorary-quote-fee/gen/damm_v2"
)

var ErrAccountNotFound = errors.New("account not found")

type PoolState = dammv2gen.Pool

type PositionState = dammv2gen.Position

// ClaimPositionFeeInstructionParams names the accounts of one
// claim_position_fee call. Token A is the pool's base side and token B its
// quote side.
type ClaimPositionFeeInstructionParams struct {
	Owner              solanago.PublicKey
	Pool               solanago.PublicKey
	Position           solanago.PublicKey
	PositionNftAccount solanago.PublicKey
	TokenAAccount      solanago.PublicKey
	TokenBAccount      solanago.PublicKey
	PoolState          *PoolState
}
