package solana

import (
	bin "encoding/binary"
	"fmt"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

type AccountState uint8

const (
	AccountStateUninitialized AccountState = 0
	AccountStateInitialized   AccountState = 1
	AccountStateFrozen        AccountState = 2
)

// TokenAccountLen is the size of an SPL token account without extensions.
const TokenAccountLen = 165

// Account is a decoded SPL token account.
type Account struct {
	Address solana.PublicKey
	// Program that owns the account, SPL Token or Token-2022.
	Program solana.PublicKey

	Mint            solana.PublicKey
	Owner           solana.PublicKey
	Amount          uint64
	Delegate        *solana.PublicKey
	State           AccountState
	IsNative        *uint64
	DelegatedAmount uint64
	CloseAuthority  *solana.PublicKey
}

func (a *Account) IsInitialized() bool {
	return a.State != AccountStateUninitialized
}

func (a *Account) IsFrozen() bool {
	return a.State == AccountStateFrozen
}

// DecodeTokenAccount decodes the base token account layout
// https://github.com/solana-labs/solana-program-library/blob/d72289c79a04411c69a8bf1054f7156b6196f9b3/token/js/src/state/account.ts#L69
// Token-2022 extensions after the base layout are ignored.
func DecodeTokenAccount(address solana.PublicKey, data []byte) (*Account, error) {
	if len(data) < TokenAccountLen {
		return nil, fmt.Errorf("token account %s: %d bytes, want at least %d", address, len(data), TokenAccountLen)
	}
	dec := binary.NewBinDecoder(data)
	out := &Account{Address: address}

	var err error
	if out.Mint, err = readKey(dec); err != nil {
		return nil, err
	}
	if out.Owner, err = readKey(dec); err != nil {
		return nil, err
	}
	if out.Amount, err = dec.ReadUint64(bin.LittleEndian); err != nil {
		return nil, err
	}
	if out.Delegate, err = readOptionalKey(dec); err != nil {
		return nil, err
	}
	state, err := dec.ReadUint8()
	if err != nil {
		return nil, err
	}
	out.State = AccountState(state)

	nativeTag, err := dec.ReadUint32(bin.LittleEndian)
	if err != nil {
		return nil, err
	}
	reserve, err := dec.ReadUint64(bin.LittleEndian)
	if err != nil {
		return nil, err
	}
	if nativeTag > 0 {
		out.IsNative = &reserve
	}
	if out.DelegatedAmount, err = dec.ReadUint64(bin.LittleEndian); err != nil {
		return nil, err
	}
	if out.CloseAuthority, err = readOptionalKey(dec); err != nil {
		return nil, err
	}
	return out, nil
}

func readKey(dec *binary.Decoder) (solana.PublicKey, error) {
	b, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}

// readOptionalKey reads a COption<Pubkey>: a u32 tag followed by 32 bytes
// that are present either way.
func readOptionalKey(dec *binary.Decoder) (*solana.PublicKey, error) {
	tag, err := dec.ReadUint32(bin.LittleEndian)
	if err != nil {
		return nil, err
	}
	key, err := readKey(dec)
	if err != nil {
		return nil, err
	}
	if tag == 0 {
		return nil, nil
	}
	return &key, nil
}
