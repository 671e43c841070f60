package dammv2

import (
	solanago "github.com/gagliardetto/solana-go"

	dammv2gen "github.com/krazyTry/honorary-quote-fee/gen/damm_v2"
)

func DerivePoolAuthority() solanago.PublicKey {
	pub, _, _ := solanago.FindProgramAddress([][]byte{[]byte("pool_authority")}, dammv2gen.ProgramID)
	return pub
}

func DeriveEventAuthority() solanago.PublicKey {
	pub, _, _ := solanago.FindProgramAddress([][]byte{[]byte("__event_authority")}, dammv2gen.ProgramID)
	return pub
}

func DerivePositionAddress(positionNft solanago.PublicKey) solanago.PublicKey {
	pub, _, _ := solanago.FindProgramAddress([][]byte{[]byte("position"), positionNft.Bytes()}, dammv2gen.ProgramID)
	return pub
}

func DerivePositionNftAccount(positionNftMint solanago.PublicKey) solanago.PublicKey {
	pub, _, _ := solanago.FindProgramAddress([][]byte{[]byte("position_nft_account"), positionNftMint.Bytes()}, dammv2gen.ProgramID)
	return pub
}

func DeriveTokenVaultAddress(tokenMint, pool solanago.PublicKey) solanago.PublicKey {
	pub, _, _ := solanago.FindProgramAddress([][]byte{[]byte("token_vault"), tokenMint.Bytes(), pool.Bytes()}, dammv2gen.ProgramID)
	return pub
}
