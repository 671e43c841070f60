package dammv2

import (
	"crypto/sha256"

	solanago "github.com/gagliardetto/solana-go"
)

// ProgramID is the CP AMM (DAMM v2) program. Only its Pool and Position
// accounts and the claim_position_fee instruction are bound here.
var ProgramID = solanago.MustPublicKeyFromBase58("cpamdpZCGKUy5JxQXB4dcpGPiikHawvSWAd6mEn1sGG")

var (
	Account_Pool     = accountDiscriminator("Pool")
	Account_Position = accountDiscriminator("Position")

	Instruction_ClaimPositionFee = instructionDiscriminator("claim_position_fee")
)

func accountDiscriminator(name string) [8]byte {
	return sighash("account:" + name)
}

func instructionDiscriminator(name string) [8]byte {
	return sighash("global:" + name)
}

// sighash is the Anchor discriminator: the first 8 bytes of sha256(preimage).
func sighash(preimage string) [8]byte {
	sum := sha256.Sum256([]byte(preimage))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}
