package dammv2

import (
	"context"
	"errors"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	dammv2gen "github.com/krazyTry/honorary-quote-fee/gen/damm_v2"
	hqfsolana "github.com/krazyTry/honorary-quote-fee/solana"
)

// CpAmm reads DAMM v2 pool and position accounts and builds the fee claim
// for an honorary position.
type CpAmm struct {
	Client         *rpc.Client
	Commitment     rpc.CommitmentType
	PoolAuthority  solanago.PublicKey
	EventAuthority solanago.PublicKey
}

func NewCpAmm(client *rpc.Client, commitment rpc.CommitmentType) *CpAmm {
	return &CpAmm{
		Client:         client,
		Commitment:     commitment,
		PoolAuthority:  DerivePoolAuthority(),
		EventAuthority: DeriveEventAuthority(),
	}
}

func (c *CpAmm) FetchPoolState(ctx context.Context, pool solanago.PublicKey) (*PoolState, error) {
	data, err := c.fetchProgramAccount(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("pool account %s: %w", pool, err)
	}
	parsed, err := dammv2gen.ParseAnyAccount(data)
	if err != nil {
		return nil, err
	}
	pl, ok := parsed.(*dammv2gen.Pool)
	if !ok {
		return nil, errors.New("invalid pool account")
	}
	return pl, nil
}

func (c *CpAmm) FetchPositionState(ctx context.Context, position solanago.PublicKey) (*PositionState, error) {
	data, err := c.fetchProgramAccount(ctx, position)
	if err != nil {
		return nil, fmt.Errorf("position account %s: %w", position, err)
	}
	parsed, err := dammv2gen.ParseAnyAccount(data)
	if err != nil {
		return nil, err
	}
	pos, ok := parsed.(*dammv2gen.Position)
	if !ok {
		return nil, errors.New("invalid position account")
	}
	return pos, nil
}

// fetchProgramAccount returns the data of an account owned by the cp-amm
// program.
func (c *CpAmm) fetchProgramAccount(ctx context.Context, addr solanago.PublicKey) ([]byte, error) {
	acc, err := c.Client.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{Commitment: c.Commitment})
	if err != nil {
		return nil, err
	}
	if acc == nil || acc.Value == nil {
		return nil, ErrAccountNotFound
	}
	if !acc.Value.Owner.Equals(dammv2gen.ProgramID) {
		return nil, fmt.Errorf("owned by %s, not cp-amm", acc.Value.Owner)
	}
	return acc.Value.Data.GetBinary(), nil
}

// BuildClaimPositionFeeInstruction builds claim position fee instruction.
func (c *CpAmm) BuildClaimPositionFeeInstruction(params ClaimPositionFeeInstructionParams) (solanago.Instruction, error) {
	if params.PoolState == nil {
		return nil, errors.New("pool state is required")
	}
	tokenAProgram := hqfsolana.GetTokenProgram(params.PoolState.TokenAFlag)
	tokenBProgram := hqfsolana.GetTokenProgram(params.PoolState.TokenBFlag)
	return dammv2gen.NewClaimPositionFeeInstruction(
		c.PoolAuthority,
		params.Pool,
		params.Position,
		params.TokenAAccount,
		params.TokenBAccount,
		params.PoolState.TokenAVault,
		params.PoolState.TokenBVault,
		params.PoolState.TokenAMint,
		params.PoolState.TokenBMint,
		params.PositionNftAccount,
		params.Owner,
		tokenAProgram,
		tokenBProgram,
		c.EventAuthority,
		dammv2gen.ProgramID,
	)
}
