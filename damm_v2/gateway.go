package dammv2

import (
	"context"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/krazyTry/honorary-quote-fee/distribution"
	hqfsolana "github.com/krazyTry/honorary-quote-fee/solana"
)

// ClaimGateway claims an honorary position's fees. Claim only simulates the
// instruction; the real claim is sent with the crank's transfers by the
// onchain ledger through ClaimInstruction. The quote side is sized from the
// treasury balance rather than the simulated delta, so fees accruing between
// the simulation and the real claim are picked up by the next day.
type ClaimGateway struct {
	amm    *CpAmm
	sender *hqfsolana.Sender
	payer  solanago.PrivateKey
	owner  solanago.PrivateKey
}

var _ distribution.FeeClaimGateway = (*ClaimGateway)(nil)

// NewClaimGateway returns a gateway signing as owner, the holder of the
// position NFT, with fees paid by payer.
func NewClaimGateway(amm *CpAmm, sender *hqfsolana.Sender, payer, owner solanago.PrivateKey) *ClaimGateway {
	return &ClaimGateway{amm: amm, sender: sender, payer: payer, owner: owner}
}

// ClaimInstruction builds claim_position_fee for the record's honorary
// position. Base fees go to the base fee check account and quote fees to
// the quote treasury.
func (g *ClaimGateway) ClaimInstruction(ctx context.Context, rec distribution.Record) (solanago.Instruction, error) {
	h := rec.Honorary
	if !h.Configured() {
		return nil, distribution.ErrPositionNotReady
	}
	if !h.Owner.Equals(g.owner.PublicKey()) {
		return nil, fmt.Errorf("%w: position owner %s is not the signer %s", distribution.ErrAccountMismatch, h.Owner, g.owner.PublicKey())
	}
	pool, err := g.amm.FetchPoolState(ctx, rec.Pool())
	if err != nil {
		return nil, err
	}
	if err := checkPoolState(rec, pool); err != nil {
		return nil, err
	}
	return g.amm.BuildClaimPositionFeeInstruction(ClaimPositionFeeInstructionParams{
		Owner:              h.Owner,
		Pool:               rec.Pool(),
		Position:           h.Position,
		PositionNftAccount: h.PositionNftAccount,
		TokenAAccount:      h.BaseFeeCheck,
		TokenBAccount:      h.QuoteTreasury,
		PoolState:          pool,
	})
}

// checkPoolState rejects a pool whose mints differ from the policy or whose
// vaults are not the program's vault PDAs for those mints.
func checkPoolState(rec distribution.Record, pool *PoolState) error {
	if !pool.TokenAMint.Equals(rec.Policy.BaseMint) || !pool.TokenBMint.Equals(rec.Policy.QuoteMint) {
		return fmt.Errorf("%w: pool mints changed", distribution.ErrAccountMismatch)
	}
	if !pool.TokenAVault.Equals(DeriveTokenVaultAddress(pool.TokenAMint, rec.Pool())) {
		return fmt.Errorf("%w: base vault %s", distribution.ErrAccountMismatch, pool.TokenAVault)
	}
	if !pool.TokenBVault.Equals(DeriveTokenVaultAddress(pool.TokenBMint, rec.Pool())) {
		return fmt.Errorf("%w: quote vault %s", distribution.ErrAccountMismatch, pool.TokenBVault)
	}
	return nil
}

// Signers returns the keys ClaimInstruction needs besides the fee payer.
func (g *ClaimGateway) Signers() []solanago.PrivateKey {
	return []solanago.PrivateKey{g.owner}
}

func (g *ClaimGateway) Claim(ctx context.Context, rec distribution.Record) (distribution.FeeClaim, error) {
	ix, err := g.ClaimInstruction(ctx, rec)
	if err != nil {
		return distribution.FeeClaim{}, err
	}
	watch := []solanago.PublicKey{rec.Honorary.QuoteTreasury, rec.Honorary.BaseFeeCheck}

	before, err := hqfsolana.GetTokenAccounts(ctx, g.amm.Client, g.amm.Commitment, watch...)
	if err != nil {
		return distribution.FeeClaim{}, err
	}
	tx, err := g.sender.BuildTransaction(ctx, []solanago.Instruction{ix}, g.payer, g.Signers()...)
	if err != nil {
		return distribution.FeeClaim{}, err
	}
	sim, err := g.sender.SimulateWithAccounts(ctx, tx, watch...)
	if err != nil {
		return distribution.FeeClaim{}, fmt.Errorf("simulate claim: %w", err)
	}
	return claimDelta(watch, before, sim.Accounts, rec.Progress.DustCarry)
}

// claimDelta compares the watched accounts before and after a simulated
// claim. watch holds the quote treasury then the base fee check account.
// The quote claim is everything in the treasury after the claim except the
// carried dust, which the day opening adds back on its own.
func claimDelta(watch []solanago.PublicKey, before []*hqfsolana.Account, after []*rpc.Account, dustCarry uint64) (distribution.FeeClaim, error) {
	post, err := hqfsolana.DecodeTokenAccounts(watch, after)
	if err != nil {
		return distribution.FeeClaim{}, fmt.Errorf("decode simulated accounts: %w", err)
	}
	if len(before) != len(watch) {
		return distribution.FeeClaim{}, fmt.Errorf("got %d balances for %d accounts", len(before), len(watch))
	}
	var moved [2]uint64
	for i := range watch {
		if post[i].Amount < before[i].Amount {
			return distribution.FeeClaim{}, fmt.Errorf("%s balance fell from %d to %d during claim", watch[i], before[i].Amount, post[i].Amount)
		}
		moved[i] = post[i].Amount - before[i].Amount
	}
	if post[0].Amount < dustCarry {
		return distribution.FeeClaim{}, fmt.Errorf("%w: treasury holds %d, carried dust is %d", distribution.ErrInsufficientFunds, post[0].Amount, dustCarry)
	}
	return distribution.FeeClaim{QuoteClaimed: post[0].Amount - dustCarry, BaseClaimed: moved[1]}, nil
}
