package distribution

import (
	"bytes"
	"crypto/sha256"
	bin "encoding/binary"
	"fmt"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const RecordSchemaVersion uint8 = 1

var RecordDiscriminator = accountDiscriminator("DistributionRecord")

func accountDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// EncodeRecord serialises rec as discriminator, schema version, then the
// borsh-encoded fields.
func EncodeRecord(rec Record) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := rec.MarshalWithEncoder(binary.NewBorshEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := rec.UnmarshalWithDecoder(binary.NewBorshDecoder(data)); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r Record) MarshalWithEncoder(encoder *binary.Encoder) error {
	if err := encoder.WriteBytes(RecordDiscriminator[:], false); err != nil {
		return err
	}
	if err := encoder.WriteUint8(RecordSchemaVersion); err != nil {
		return err
	}
	if err := encoder.WriteUint64(r.Version, bin.LittleEndian); err != nil {
		return err
	}

	p := r.Policy
	for _, k := range []solana.PublicKey{p.Authority, p.Pool, p.QuoteMint, p.BaseMint, p.CreatorQuoteDestination} {
		if err := encoder.WriteBytes(k[:], false); err != nil {
			return err
		}
	}
	if err := encoder.WriteUint16(p.InvestorFeeShareBps, bin.LittleEndian); err != nil {
		return err
	}
	for _, v := range []uint64{p.Y0, p.DailyCapQuote, p.MinPayout} {
		if err := encoder.WriteUint64(v, bin.LittleEndian); err != nil {
			return err
		}
	}

	h := r.Honorary
	for _, k := range []solana.PublicKey{h.Owner, h.Position, h.PositionNftMint, h.PositionNftAccount, h.QuoteTreasury, h.BaseFeeCheck} {
		if err := encoder.WriteBytes(k[:], false); err != nil {
			return err
		}
	}

	g := r.Progress
	if err := encoder.WriteInt64(g.DayAnchorTime, bin.LittleEndian); err != nil {
		return err
	}
	if err := encoder.WriteBool(g.DayOpen); err != nil {
		return err
	}
	if err := encoder.WriteUint32(g.PageCursor, bin.LittleEndian); err != nil {
		return err
	}
	for _, v := range []uint64{
		g.ClaimedQuoteToday,
		g.DistributedToInvestorsToday,
		g.DustCarry,
		g.Day,
		g.DustRolledToday,
		g.LockedTotalToday,
		g.InvestorPoolToday,
	} {
		if err := encoder.WriteUint64(v, bin.LittleEndian); err != nil {
			return err
		}
	}
	return encoder.WriteUint16(g.EligibleShareBps, bin.LittleEndian)
}

func (r *Record) UnmarshalWithDecoder(decoder *binary.Decoder) error {
	disc, err := decoder.ReadNBytes(8)
	if err != nil {
		return err
	}
	if !bytes.Equal(disc, RecordDiscriminator[:]) {
		return fmt.Errorf("wrong discriminator: wanted %x, got %x", RecordDiscriminator[:], disc)
	}
	version, err := decoder.ReadUint8()
	if err != nil {
		return err
	}
	if version != RecordSchemaVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	if r.Version, err = decoder.ReadUint64(bin.LittleEndian); err != nil {
		return err
	}

	p := &r.Policy
	for _, k := range []*solana.PublicKey{&p.Authority, &p.Pool, &p.QuoteMint, &p.BaseMint, &p.CreatorQuoteDestination} {
		if err := readPublicKey(decoder, k); err != nil {
			return err
		}
	}
	if p.InvestorFeeShareBps, err = decoder.ReadUint16(bin.LittleEndian); err != nil {
		return err
	}
	for _, v := range []*uint64{&p.Y0, &p.DailyCapQuote, &p.MinPayout} {
		if *v, err = decoder.ReadUint64(bin.LittleEndian); err != nil {
			return err
		}
	}

	h := &r.Honorary
	for _, k := range []*solana.PublicKey{&h.Owner, &h.Position, &h.PositionNftMint, &h.PositionNftAccount, &h.QuoteTreasury, &h.BaseFeeCheck} {
		if err := readPublicKey(decoder, k); err != nil {
			return err
		}
	}

	g := &r.Progress
	if g.DayAnchorTime, err = decoder.ReadInt64(bin.LittleEndian); err != nil {
		return err
	}
	if g.DayOpen, err = decoder.ReadBool(); err != nil {
		return err
	}
	if g.PageCursor, err = decoder.ReadUint32(bin.LittleEndian); err != nil {
		return err
	}
	for _, v := range []*uint64{
		&g.ClaimedQuoteToday,
		&g.DistributedToInvestorsToday,
		&g.DustCarry,
		&g.Day,
		&g.DustRolledToday,
		&g.LockedTotalToday,
		&g.InvestorPoolToday,
	} {
		if *v, err = decoder.ReadUint64(bin.LittleEndian); err != nil {
			return err
		}
	}
	if g.EligibleShareBps, err = decoder.ReadUint16(bin.LittleEndian); err != nil {
		return err
	}
	if decoder.Remaining() != 0 {
		return fmt.Errorf("%d trailing bytes after record", decoder.Remaining())
	}
	return nil
}

func readPublicKey(decoder *binary.Decoder, out *solana.PublicKey) error {
	b, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	*out = solana.PublicKeyFromBytes(b)
	return nil
}

var PendingCommitDiscriminator = accountDiscriminator("PendingCommit")

// kind, three keys and the amount.
const transferEncodedLen = 1 + 3*solana.PublicKeyLength + 8

// EncodePendingCommit serialises p as discriminator, schema version,
// signature and expiry height, then the commit with its next record nested
// as a length-prefixed EncodeRecord blob.
func EncodePendingCommit(p PendingCommit) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := p.MarshalWithEncoder(binary.NewBorshEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodePendingCommit(data []byte) (PendingCommit, error) {
	var p PendingCommit
	if err := p.UnmarshalWithDecoder(binary.NewBorshDecoder(data)); err != nil {
		return PendingCommit{}, err
	}
	return p, nil
}

func (p PendingCommit) MarshalWithEncoder(encoder *binary.Encoder) error {
	if err := encoder.WriteBytes(PendingCommitDiscriminator[:], false); err != nil {
		return err
	}
	if err := encoder.WriteUint8(RecordSchemaVersion); err != nil {
		return err
	}
	if err := encoder.WriteBytes(p.Signature[:], false); err != nil {
		return err
	}
	if err := encoder.WriteUint64(p.LastValidBlockHeight, bin.LittleEndian); err != nil {
		return err
	}

	c := p.Commit
	if err := encoder.WriteUint64(c.ExpectedVersion, bin.LittleEndian); err != nil {
		return err
	}
	next, err := EncodeRecord(c.Next)
	if err != nil {
		return err
	}
	if err := encoder.WriteBytes(next, true); err != nil {
		return err
	}
	if err := encoder.WriteOption(c.Claim != nil); err != nil {
		return err
	}
	if c.Claim != nil {
		if err := encoder.WriteUint64(c.Claim.QuoteClaimed, bin.LittleEndian); err != nil {
			return err
		}
		if err := encoder.WriteUint64(c.Claim.BaseClaimed, bin.LittleEndian); err != nil {
			return err
		}
	}
	if err := encoder.WriteLength(len(c.Transfers)); err != nil {
		return err
	}
	for _, t := range c.Transfers {
		if err := encoder.WriteUint8(uint8(t.Kind)); err != nil {
			return err
		}
		for _, k := range []solana.PublicKey{t.Source, t.Destination, t.VestingContract} {
			if err := encoder.WriteBytes(k[:], false); err != nil {
				return err
			}
		}
		if err := encoder.WriteUint64(t.Amount, bin.LittleEndian); err != nil {
			return err
		}
	}
	return nil
}

func (p *PendingCommit) UnmarshalWithDecoder(decoder *binary.Decoder) error {
	disc, err := decoder.ReadNBytes(8)
	if err != nil {
		return err
	}
	if !bytes.Equal(disc, PendingCommitDiscriminator[:]) {
		return fmt.Errorf("wrong discriminator: wanted %x, got %x", PendingCommitDiscriminator[:], disc)
	}
	version, err := decoder.ReadUint8()
	if err != nil {
		return err
	}
	if version != RecordSchemaVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	sig, err := decoder.ReadNBytes(solana.SignatureLength)
	if err != nil {
		return err
	}
	copy(p.Signature[:], sig)
	if p.LastValidBlockHeight, err = decoder.ReadUint64(bin.LittleEndian); err != nil {
		return err
	}

	c := &p.Commit
	if c.ExpectedVersion, err = decoder.ReadUint64(bin.LittleEndian); err != nil {
		return err
	}
	next, err := decoder.ReadByteSlice()
	if err != nil {
		return err
	}
	if c.Next, err = DecodeRecord(next); err != nil {
		return fmt.Errorf("next record: %w", err)
	}
	hasClaim, err := decoder.ReadOption()
	if err != nil {
		return err
	}
	if hasClaim {
		c.Claim = new(FeeClaim)
		if c.Claim.QuoteClaimed, err = decoder.ReadUint64(bin.LittleEndian); err != nil {
			return err
		}
		if c.Claim.BaseClaimed, err = decoder.ReadUint64(bin.LittleEndian); err != nil {
			return err
		}
	}
	n, err := decoder.ReadLength()
	if err != nil {
		return err
	}
	if n*transferEncodedLen > decoder.Remaining() {
		return fmt.Errorf("%d transfers do not fit in %d bytes", n, decoder.Remaining())
	}
	if n > 0 {
		c.Transfers = make([]Transfer, n)
	}
	for i := range c.Transfers {
		t := &c.Transfers[i]
		kind, err := decoder.ReadUint8()
		if err != nil {
			return err
		}
		t.Kind = TransferKind(kind)
		for _, k := range []*solana.PublicKey{&t.Source, &t.Destination, &t.VestingContract} {
			if err := readPublicKey(decoder, k); err != nil {
				return err
			}
		}
		if t.Amount, err = decoder.ReadUint64(bin.LittleEndian); err != nil {
			return err
		}
	}
	if decoder.Remaining() != 0 {
		return fmt.Errorf("%d trailing bytes after pending commit", decoder.Remaining())
	}
	return nil
}
