package solana

import (
	bin "encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// transferCheckedTag is the SPL token TransferChecked instruction index,
// shared by Token and Token-2022.
const transferCheckedTag = 12

// TransferCheckedInstruction moves amount of mint from source to
// destination. program selects SPL Token or Token-2022.
func TransferCheckedInstruction(
	program solana.PublicKey,
	source solana.PublicKey,
	mint solana.PublicKey,
	destination solana.PublicKey,
	owner solana.PublicKey,
	amount uint64,
	decimals uint8,
) solana.Instruction {
	data := make([]byte, 10)
	data[0] = transferCheckedTag
	bin.LittleEndian.PutUint64(data[1:9], amount)
	data[9] = decimals

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(source, true, false),
		solana.NewAccountMeta(mint, false, false),
		solana.NewAccountMeta(destination, true, false),
		solana.NewAccountMeta(owner, false, true),
	}
	return solana.NewInstruction(program, accounts, data)
}
