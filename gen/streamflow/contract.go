package streamflow

import (
	bin "encoding/binary"
	"fmt"
	"math"

	binary "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
)

const StreamNameLen = 64

// CreateParams are the parameters a stream was created with.
type CreateParams struct {
	StartTime               uint64
	NetAmountDeposited      uint64
	Period                  uint64
	AmountPerPeriod         uint64
	Cliff                   uint64
	CliffAmount             uint64
	CancelableBySender      bool
	CancelableByRecipient   bool
	AutomaticWithdrawal     bool
	TransferableBySender    bool
	TransferableByRecipient bool
	CanTopup                bool
	StreamName              [StreamNameLen]byte
	WithdrawFrequency       uint64
	Ghost                   uint32
	Pausable                bool
	CanUpdateRate           bool
}

// Contract is the leading part of a Streamflow stream account. Fields after
// the create parameters are not decoded.
type Contract struct {
	Magic                    uint64
	Version                  uint8
	CreatedAt                uint64
	AmountWithdrawn          uint64
	CanceledAt               uint64
	EndTime                  uint64
	LastWithdrawnAt          uint64
	Sender                   solanago.PublicKey
	SenderTokens             solanago.PublicKey
	Recipient                solanago.PublicKey
	RecipientTokens          solanago.PublicKey
	Mint                     solanago.PublicKey
	EscrowTokens             solanago.PublicKey
	StreamflowTreasury       solanago.PublicKey
	StreamflowTreasuryTokens solanago.PublicKey
	StreamflowFeeTotal       uint64
	StreamflowFeeWithdrawn   uint64
	StreamflowFeePercent     float32
	Partner                  solanago.PublicKey
	PartnerTokens            solanago.PublicKey
	PartnerFeeTotal          uint64
	PartnerFeeWithdrawn      uint64
	PartnerFeePercent        float32
	Ix                       CreateParams
}

func (obj Contract) MarshalWithEncoder(encoder *binary.Encoder) error {
	if err := encoder.WriteUint64(obj.Magic, bin.LittleEndian); err != nil {
		return err
	}
	if err := encoder.WriteUint8(obj.Version); err != nil {
		return err
	}
	for _, v := range []uint64{obj.CreatedAt, obj.AmountWithdrawn, obj.CanceledAt, obj.EndTime, obj.LastWithdrawnAt} {
		if err := encoder.WriteUint64(v, bin.LittleEndian); err != nil {
			return err
		}
	}
	if err := writeKeys(encoder, obj.Sender, obj.SenderTokens, obj.Recipient, obj.RecipientTokens,
		obj.Mint, obj.EscrowTokens, obj.StreamflowTreasury, obj.StreamflowTreasuryTokens); err != nil {
		return err
	}
	for _, v := range []uint64{obj.StreamflowFeeTotal, obj.StreamflowFeeWithdrawn} {
		if err := encoder.WriteUint64(v, bin.LittleEndian); err != nil {
			return err
		}
	}
	if err := encoder.WriteUint32(math.Float32bits(obj.StreamflowFeePercent), bin.LittleEndian); err != nil {
		return err
	}
	if err := writeKeys(encoder, obj.Partner, obj.PartnerTokens); err != nil {
		return err
	}
	for _, v := range []uint64{obj.PartnerFeeTotal, obj.PartnerFeeWithdrawn} {
		if err := encoder.WriteUint64(v, bin.LittleEndian); err != nil {
			return err
		}
	}
	if err := encoder.WriteUint32(math.Float32bits(obj.PartnerFeePercent), bin.LittleEndian); err != nil {
		return err
	}
	return obj.Ix.MarshalWithEncoder(encoder)
}

func (obj *Contract) UnmarshalWithDecoder(decoder *binary.Decoder) error {
	var err error
	if obj.Magic, err = decoder.ReadUint64(bin.LittleEndian); err != nil {
		return err
	}
	if obj.Version, err = decoder.ReadUint8(); err != nil {
		return err
	}
	for _, v := range []*uint64{&obj.CreatedAt, &obj.AmountWithdrawn, &obj.CanceledAt, &obj.EndTime, &obj.LastWithdrawnAt} {
		if *v, err = decoder.ReadUint64(bin.LittleEndian); err != nil {
			return err
		}
	}
	if err := readKeys(decoder, &obj.Sender, &obj.SenderTokens, &obj.Recipient, &obj.RecipientTokens,
		&obj.Mint, &obj.EscrowTokens, &obj.StreamflowTreasury, &obj.StreamflowTreasuryTokens); err != nil {
		return err
	}
	for _, v := range []*uint64{&obj.StreamflowFeeTotal, &obj.StreamflowFeeWithdrawn} {
		if *v, err = decoder.ReadUint64(bin.LittleEndian); err != nil {
			return err
		}
	}
	bits, err := decoder.ReadUint32(bin.LittleEndian)
	if err != nil {
		return err
	}
	obj.StreamflowFeePercent = math.Float32frombits(bits)
	if err := readKeys(decoder, &obj.Partner, &obj.PartnerTokens); err != nil {
		return err
	}
	for _, v := range []*uint64{&obj.PartnerFeeTotal, &obj.PartnerFeeWithdrawn} {
		if *v, err = decoder.ReadUint64(bin.LittleEndian); err != nil {
			return err
		}
	}
	if bits, err = decoder.ReadUint32(bin.LittleEndian); err != nil {
		return err
	}
	obj.PartnerFeePercent = math.Float32frombits(bits)
	return obj.Ix.UnmarshalWithDecoder(decoder)
}

func (obj CreateParams) MarshalWithEncoder(encoder *binary.Encoder) error {
	for _, v := range []uint64{obj.StartTime, obj.NetAmountDeposited, obj.Period, obj.AmountPerPeriod, obj.Cliff, obj.CliffAmount} {
		if err := encoder.WriteUint64(v, bin.LittleEndian); err != nil {
			return err
		}
	}
	for _, v := range []bool{obj.CancelableBySender, obj.CancelableByRecipient, obj.AutomaticWithdrawal,
		obj.TransferableBySender, obj.TransferableByRecipient, obj.CanTopup} {
		if err := encoder.WriteBool(v); err != nil {
			return err
		}
	}
	if err := encoder.WriteBytes(obj.StreamName[:], false); err != nil {
		return err
	}
	if err := encoder.WriteUint64(obj.WithdrawFrequency, bin.LittleEndian); err != nil {
		return err
	}
	if err := encoder.WriteUint32(obj.Ghost, bin.LittleEndian); err != nil {
		return err
	}
	if err := encoder.WriteBool(obj.Pausable); err != nil {
		return err
	}
	return encoder.WriteBool(obj.CanUpdateRate)
}

func (obj *CreateParams) UnmarshalWithDecoder(decoder *binary.Decoder) error {
	var err error
	for _, v := range []*uint64{&obj.StartTime, &obj.NetAmountDeposited, &obj.Period, &obj.AmountPerPeriod, &obj.Cliff, &obj.CliffAmount} {
		if *v, err = decoder.ReadUint64(bin.LittleEndian); err != nil {
			return err
		}
	}
	for _, v := range []*bool{&obj.CancelableBySender, &obj.CancelableByRecipient, &obj.AutomaticWithdrawal,
		&obj.TransferableBySender, &obj.TransferableByRecipient, &obj.CanTopup} {
		if *v, err = decoder.ReadBool(); err != nil {
			return err
		}
	}
	name, err := decoder.ReadNBytes(StreamNameLen)
	if err != nil {
		return err
	}
	copy(obj.StreamName[:], name)
	if obj.WithdrawFrequency, err = decoder.ReadUint64(bin.LittleEndian); err != nil {
		return err
	}
	if obj.Ghost, err = decoder.ReadUint32(bin.LittleEndian); err != nil {
		return err
	}
	if obj.Pausable, err = decoder.ReadBool(); err != nil {
		return err
	}
	obj.CanUpdateRate, err = decoder.ReadBool()
	return err
}

func ParseContract(accountData []byte) (*Contract, error) {
	obj := new(Contract)
	if err := obj.UnmarshalWithDecoder(binary.NewBorshDecoder(accountData)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account as Contract: %w", err)
	}
	return obj, nil
}

func writeKeys(encoder *binary.Encoder, keys ...solanago.PublicKey) error {
	for _, k := range keys {
		if err := encoder.WriteBytes(k[:], false); err != nil {
			return err
		}
	}
	return nil
}

func readKeys(decoder *binary.Decoder, keys ...*solanago.PublicKey) error {
	for _, k := range keys {
		b, err := decoder.ReadNBytes(solanago.PublicKeyLength)
		if err != nil {
			return err
		}
		*k = solanago.PublicKeyFromBytes(b)
	}
	return nil
}
