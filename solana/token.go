package solana

import (
	"fmt"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// Token represents a Solana token with mint information and owner
type Token struct {
	token.Mint
	// Owner is the token program that owns the mint.
	Owner solana.PublicKey
}

func DecodeMint(program solana.PublicKey, data []byte) (*Token, error) {
	mint := token.Mint{}
	if err := mint.UnmarshalWithDecoder(binary.NewBinDecoder(data)); err != nil {
		return nil, fmt.Errorf("decode mint: %w", err)
	}
	return &Token{Mint: mint, Owner: program}, nil
}

// GetTokenProgram maps a cp-amm token flag to its program.
func GetTokenProgram(flag uint8) solana.PublicKey {
	if flag == 0 {
		return token.ProgramID
	}
	return solana.Token2022ProgramID
}

func IsTokenProgram(program solana.PublicKey) bool {
	return program.Equals(token.ProgramID) || program.Equals(solana.Token2022ProgramID)
}
