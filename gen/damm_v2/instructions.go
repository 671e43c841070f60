package dammv2

import (
	"bytes"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
)

// ClaimPositionFee account positions in the instruction account list.
const (
	ClaimPositionFeeAccountPoolAuthority = iota
	ClaimPositionFeeAccountPool
	ClaimPositionFeeAccountPosition
	ClaimPositionFeeAccountTokenAAccount
	ClaimPositionFeeAccountTokenBAccount
	ClaimPositionFeeAccountTokenAVault
	ClaimPositionFeeAccountTokenBVault
	ClaimPositionFeeAccountTokenAMint
	ClaimPositionFeeAccountTokenBMint
	ClaimPositionFeeAccountPositionNftAccount
	ClaimPositionFeeAccountOwner
	ClaimPositionFeeAccountTokenAProgram
	ClaimPositionFeeAccountTokenBProgram
	ClaimPositionFeeAccountEventAuthority
	ClaimPositionFeeAccountProgram

	claimPositionFeeAccountCount
)

// NewClaimPositionFeeInstruction builds claim_position_fee. The instruction
// carries no arguments beyond its discriminator.
func NewClaimPositionFeeInstruction(
	poolAuthority solanago.PublicKey,
	pool solanago.PublicKey,
	position solanago.PublicKey,
	tokenAAccount solanago.PublicKey,
	tokenBAccount solanago.PublicKey,
	tokenAVault solanago.PublicKey,
	tokenBVault solanago.PublicKey,
	tokenAMint solanago.PublicKey,
	tokenBMint solanago.PublicKey,
	positionNftAccount solanago.PublicKey,
	owner solanago.PublicKey,
	tokenAProgram solanago.PublicKey,
	tokenBProgram solanago.PublicKey,
	eventAuthority solanago.PublicKey,
	program solanago.PublicKey,
) (solanago.Instruction, error) {
	for i, k := range []solanago.PublicKey{pool, position, tokenAAccount, tokenBAccount, positionNftAccount, owner} {
		if k.IsZero() {
			return nil, fmt.Errorf("claim_position_fee: required account %d is zero", i)
		}
	}
	accounts := solanago.AccountMetaSlice{
		solanago.NewAccountMeta(poolAuthority, false, false),
		solanago.NewAccountMeta(pool, false, false),
		solanago.NewAccountMeta(position, true, false),
		solanago.NewAccountMeta(tokenAAccount, true, false),
		solanago.NewAccountMeta(tokenBAccount, true, false),
		solanago.NewAccountMeta(tokenAVault, true, false),
		solanago.NewAccountMeta(tokenBVault, true, false),
		solanago.NewAccountMeta(tokenAMint, false, false),
		solanago.NewAccountMeta(tokenBMint, false, false),
		solanago.NewAccountMeta(positionNftAccount, false, false),
		solanago.NewAccountMeta(owner, false, true),
		solanago.NewAccountMeta(tokenAProgram, false, false),
		solanago.NewAccountMeta(tokenBProgram, false, false),
		solanago.NewAccountMeta(eventAuthority, false, false),
		solanago.NewAccountMeta(program, false, false),
	}
	data := make([]byte, 8)
	copy(data, Instruction_ClaimPositionFee[:])
	return solanago.NewInstruction(ProgramID, accounts, data), nil
}

// ClaimPositionFeeAccounts is the decoded account list of a
// claim_position_fee instruction.
type ClaimPositionFeeAccounts [claimPositionFeeAccountCount]solanago.PublicKey

// ParseClaimPositionFeeInstruction checks that ix targets claim_position_fee
// and returns its accounts.
func ParseClaimPositionFeeInstruction(ix solanago.Instruction) (ClaimPositionFeeAccounts, error) {
	var out ClaimPositionFeeAccounts
	if !ix.ProgramID().Equals(ProgramID) {
		return out, fmt.Errorf("instruction targets %s, not cp-amm", ix.ProgramID())
	}
	data, err := ix.Data()
	if err != nil {
		return out, err
	}
	if len(data) != 8 || !bytes.Equal(data, Instruction_ClaimPositionFee[:]) {
		return out, fmt.Errorf("not a claim_position_fee instruction: %x", data)
	}
	metas := ix.Accounts()
	if len(metas) != claimPositionFeeAccountCount {
		return out, fmt.Errorf("claim_position_fee expects %d accounts, got %d", claimPositionFeeAccountCount, len(metas))
	}
	for i, m := range metas {
		out[i] = m.PublicKey
	}
	return out, nil
}
