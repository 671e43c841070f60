package dammv2

import (
	"bytes"
	bin "encoding/binary"
	"fmt"

	binary "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"

	"github.com/krazyTry/honorary-quote-fee/u128"
)

// PoolFeesLen is the size of the pool fee configuration that precedes the
// mints in a Pool account.
const PoolFeesLen = 160

// Pool is the leading part of the cp-amm Pool account, up to and including
// the per-liquidity fee accumulators. Later fields are not decoded.
type Pool struct {
	PoolFees         [PoolFeesLen]byte
	TokenAMint       solanago.PublicKey
	TokenBMint       solanago.PublicKey
	TokenAVault      solanago.PublicKey
	TokenBVault      solanago.PublicKey
	WhitelistedVault solanago.PublicKey
	Partner          solanago.PublicKey
	Liquidity        binary.Uint128
	Padding          binary.Uint128
	ProtocolAFee     uint64
	ProtocolBFee     uint64
	PartnerAFee      uint64
	PartnerBFee      uint64
	SqrtMinPrice     binary.Uint128
	SqrtMaxPrice     binary.Uint128
	SqrtPrice        binary.Uint128
	ActivationPoint  uint64
	ActivationType   uint8
	PoolStatus       uint8
	TokenAFlag       uint8
	TokenBFlag       uint8
	CollectFeeMode   uint8
	PoolType         uint8
	Version          uint8
	Padding0         uint8
	FeeAPerLiquidity [32]byte
	FeeBPerLiquidity [32]byte
}

func (obj Pool) MarshalWithEncoder(encoder *binary.Encoder) error {
	if err := encoder.WriteBytes(Account_Pool[:], false); err != nil {
		return err
	}
	if err := encoder.WriteBytes(obj.PoolFees[:], false); err != nil {
		return err
	}
	for _, k := range []solanago.PublicKey{obj.TokenAMint, obj.TokenBMint, obj.TokenAVault, obj.TokenBVault, obj.WhitelistedVault, obj.Partner} {
		if err := encoder.WriteBytes(k[:], false); err != nil {
			return err
		}
	}
	for _, v := range []binary.Uint128{obj.Liquidity, obj.Padding} {
		if err := u128.Write(encoder, v); err != nil {
			return err
		}
	}
	for _, v := range []uint64{obj.ProtocolAFee, obj.ProtocolBFee, obj.PartnerAFee, obj.PartnerBFee} {
		if err := encoder.WriteUint64(v, bin.LittleEndian); err != nil {
			return err
		}
	}
	for _, v := range []binary.Uint128{obj.SqrtMinPrice, obj.SqrtMaxPrice, obj.SqrtPrice} {
		if err := u128.Write(encoder, v); err != nil {
			return err
		}
	}
	if err := encoder.WriteUint64(obj.ActivationPoint, bin.LittleEndian); err != nil {
		return err
	}
	for _, v := range []uint8{obj.ActivationType, obj.PoolStatus, obj.TokenAFlag, obj.TokenBFlag, obj.CollectFeeMode, obj.PoolType, obj.Version, obj.Padding0} {
		if err := encoder.WriteUint8(v); err != nil {
			return err
		}
	}
	if err := encoder.WriteBytes(obj.FeeAPerLiquidity[:], false); err != nil {
		return err
	}
	return encoder.WriteBytes(obj.FeeBPerLiquidity[:], false)
}

func (obj *Pool) UnmarshalWithDecoder(decoder *binary.Decoder) error {
	if err := expectDiscriminator(decoder, Account_Pool); err != nil {
		return err
	}
	if err := readFixed(decoder, obj.PoolFees[:]); err != nil {
		return err
	}
	for _, k := range []*solanago.PublicKey{&obj.TokenAMint, &obj.TokenBMint, &obj.TokenAVault, &obj.TokenBVault, &obj.WhitelistedVault, &obj.Partner} {
		if err := readFixed(decoder, k[:]); err != nil {
			return err
		}
	}
	var err error
	for _, v := range []*binary.Uint128{&obj.Liquidity, &obj.Padding} {
		if *v, err = u128.Read(decoder); err != nil {
			return err
		}
	}
	for _, v := range []*uint64{&obj.ProtocolAFee, &obj.ProtocolBFee, &obj.PartnerAFee, &obj.PartnerBFee} {
		if *v, err = decoder.ReadUint64(bin.LittleEndian); err != nil {
			return err
		}
	}
	for _, v := range []*binary.Uint128{&obj.SqrtMinPrice, &obj.SqrtMaxPrice, &obj.SqrtPrice} {
		if *v, err = u128.Read(decoder); err != nil {
			return err
		}
	}
	if obj.ActivationPoint, err = decoder.ReadUint64(bin.LittleEndian); err != nil {
		return err
	}
	for _, v := range []*uint8{&obj.ActivationType, &obj.PoolStatus, &obj.TokenAFlag, &obj.TokenBFlag, &obj.CollectFeeMode, &obj.PoolType, &obj.Version, &obj.Padding0} {
		if *v, err = decoder.ReadUint8(); err != nil {
			return err
		}
	}
	if err := readFixed(decoder, obj.FeeAPerLiquidity[:]); err != nil {
		return err
	}
	return readFixed(decoder, obj.FeeBPerLiquidity[:])
}

// Position is the leading part of the cp-amm Position account, up to and
// including the three liquidity buckets.
type Position struct {
	Pool                     solanago.PublicKey
	NftMint                  solanago.PublicKey
	FeeAPerTokenCheckpoint   [32]byte
	FeeBPerTokenCheckpoint   [32]byte
	FeeAPending              uint64
	FeeBPending              uint64
	UnlockedLiquidity        binary.Uint128
	VestedLiquidity          binary.Uint128
	PermanentLockedLiquidity binary.Uint128
}

func (obj Position) MarshalWithEncoder(encoder *binary.Encoder) error {
	if err := encoder.WriteBytes(Account_Position[:], false); err != nil {
		return err
	}
	for _, b := range [][]byte{obj.Pool[:], obj.NftMint[:], obj.FeeAPerTokenCheckpoint[:], obj.FeeBPerTokenCheckpoint[:]} {
		if err := encoder.WriteBytes(b, false); err != nil {
			return err
		}
	}
	if err := encoder.WriteUint64(obj.FeeAPending, bin.LittleEndian); err != nil {
		return err
	}
	if err := encoder.WriteUint64(obj.FeeBPending, bin.LittleEndian); err != nil {
		return err
	}
	for _, v := range []binary.Uint128{obj.UnlockedLiquidity, obj.VestedLiquidity, obj.PermanentLockedLiquidity} {
		if err := u128.Write(encoder, v); err != nil {
			return err
		}
	}
	return nil
}

func (obj *Position) UnmarshalWithDecoder(decoder *binary.Decoder) error {
	if err := expectDiscriminator(decoder, Account_Position); err != nil {
		return err
	}
	for _, b := range [][]byte{obj.Pool[:], obj.NftMint[:], obj.FeeAPerTokenCheckpoint[:], obj.FeeBPerTokenCheckpoint[:]} {
		if err := readFixed(decoder, b); err != nil {
			return err
		}
	}
	var err error
	if obj.FeeAPending, err = decoder.ReadUint64(bin.LittleEndian); err != nil {
		return err
	}
	if obj.FeeBPending, err = decoder.ReadUint64(bin.LittleEndian); err != nil {
		return err
	}
	for _, v := range []*binary.Uint128{&obj.UnlockedLiquidity, &obj.VestedLiquidity, &obj.PermanentLockedLiquidity} {
		if *v, err = u128.Read(decoder); err != nil {
			return err
		}
	}
	return nil
}

// TotalLiquidity sums the three liquidity buckets, saturating at u64.
func (obj *Position) TotalLiquidity() uint64 {
	return u128.SaturatingSum(obj.UnlockedLiquidity, obj.VestedLiquidity, obj.PermanentLockedLiquidity)
}

// ParseAnyAccount decodes a Pool or Position by its discriminator.
func ParseAnyAccount(accountData []byte) (any, error) {
	if len(accountData) < 8 {
		return nil, fmt.Errorf("account data too short: %d bytes", len(accountData))
	}
	decoder := binary.NewBorshDecoder(accountData)
	switch {
	case bytes.Equal(accountData[:8], Account_Pool[:]):
		value := new(Pool)
		if err := value.UnmarshalWithDecoder(decoder); err != nil {
			return nil, fmt.Errorf("failed to unmarshal account as Pool: %w", err)
		}
		return value, nil
	case bytes.Equal(accountData[:8], Account_Position[:]):
		value := new(Position)
		if err := value.UnmarshalWithDecoder(decoder); err != nil {
			return nil, fmt.Errorf("failed to unmarshal account as Position: %w", err)
		}
		return value, nil
	default:
		return nil, fmt.Errorf("unknown discriminator: %x", accountData[:8])
	}
}

func ParseAccount_Pool(accountData []byte) (*Pool, error) {
	obj := new(Pool)
	if err := obj.UnmarshalWithDecoder(binary.NewBorshDecoder(accountData)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account as Pool: %w", err)
	}
	return obj, nil
}

func ParseAccount_Position(accountData []byte) (*Position, error) {
	obj := new(Position)
	if err := obj.UnmarshalWithDecoder(binary.NewBorshDecoder(accountData)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account as Position: %w", err)
	}
	return obj, nil
}

func expectDiscriminator(decoder *binary.Decoder, want [8]byte) error {
	got, err := decoder.ReadNBytes(8)
	if err != nil {
		return fmt.Errorf("failed to read discriminator: %w", err)
	}
	if !bytes.Equal(got, want[:]) {
		return fmt.Errorf("wrong discriminator: wanted %x, got %x", want[:], got)
	}
	return nil
}

func readFixed(decoder *binary.Decoder, out []byte) error {
	b, err := decoder.ReadNBytes(len(out))
	if err != nil {
		return err
	}
	copy(out, b)
	return nil
}
