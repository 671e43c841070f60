package distribution

import (
	"bytes"
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func randomRecord(rng *rand.Rand) Record {
	key := func() solana.PublicKey {
		var k solana.PublicKey
		rng.Read(k[:])
		return k
	}
	return Record{
		Policy: Policy{
			Authority:               key(),
			Pool:                    key(),
			QuoteMint:               key(),
			BaseMint:                key(),
			CreatorQuoteDestination: key(),
			InvestorFeeShareBps:     uint16(rng.Intn(MaxBasisPoints + 1)),
			Y0:                      rng.Uint64(),
			DailyCapQuote:           rng.Uint64(),
			MinPayout:               rng.Uint64(),
		},
		Honorary: HonoraryPosition{
			Owner:              key(),
			Position:           key(),
			PositionNftMint:    key(),
			PositionNftAccount: key(),
			QuoteTreasury:      key(),
			BaseFeeCheck:       key(),
		},
		Progress: Progress{
			DayAnchorTime:               rng.Int63(),
			DayOpen:                     rng.Intn(2) == 1,
			PageCursor:                  rng.Uint32(),
			ClaimedQuoteToday:           rng.Uint64(),
			DistributedToInvestorsToday: rng.Uint64(),
			DustCarry:                   rng.Uint64(),
			Day:                         rng.Uint64(),
			DustRolledToday:             rng.Uint64(),
			LockedTotalToday:            rng.Uint64(),
			InvestorPoolToday:           rng.Uint64(),
			EligibleShareBps:            uint16(rng.Intn(MaxBasisPoints + 1)),
		},
		Version: rng.Uint64(),
	}
}

func TestRecordRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		want := randomRecord(rng)
		data, err := EncodeRecord(want)
		if err != nil {
			t.Fatal("EncodeRecord() fail", err)
		}
		if !bytes.Equal(data[:8], RecordDiscriminator[:]) || data[8] != RecordSchemaVersion {
			t.Fatalf("bad header %x", data[:9])
		}
		got, err := DecodeRecord(data)
		if err != nil {
			t.Fatal("DecodeRecord() fail", err)
		}
		if got != want {
			t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
		}
	}
}

func TestDecodeRecordRejects(t *testing.T) {
	data, err := EncodeRecord(randomRecord(rand.New(rand.NewSource(5))))
	if err != nil {
		t.Fatal("EncodeRecord() fail", err)
	}

	future := bytes.Clone(data)
	future[8] = RecordSchemaVersion + 1
	if _, err := DecodeRecord(future); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatal("expected ErrUnsupportedVersion, got", err)
	}

	foreign := bytes.Clone(data)
	foreign[0] ^= 0xff
	if _, err := DecodeRecord(foreign); err == nil {
		t.Fatal("expected discriminator error")
	}

	if _, err := DecodeRecord(data[:len(data)-1]); err == nil {
		t.Fatal("expected error for truncated record")
	}
	if _, err := DecodeRecord(append(bytes.Clone(data), 0)); err == nil {
		t.Fatal("expected error for trailing bytes")
	}
}

func TestPendingCommitEncoding(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	key := func() solana.PublicKey {
		var k solana.PublicKey
		rng.Read(k[:])
		return k
	}
	var sig solana.Signature
	rng.Read(sig[:])

	next := randomRecord(rng)
	full := PendingCommit{
		Commit: Commit{
			ExpectedVersion: next.Version - 1,
			Next:            next,
			Claim:           &FeeClaim{QuoteClaimed: 4_200, BaseClaimed: 0},
			Transfers: []Transfer{
				{Kind: TransferInvestor, Source: key(), Destination: key(), Amount: 1_000, VestingContract: key()},
				{Kind: TransferCreator, Source: key(), Destination: key(), Amount: 3_200},
			},
		},
		Signature:            sig,
		LastValidBlockHeight: 250_000_150,
	}
	bare := PendingCommit{Commit: Commit{ExpectedVersion: 9, Next: randomRecord(rng)}, Signature: sig}

	for _, want := range []PendingCommit{full, bare} {
		data, err := EncodePendingCommit(want)
		if err != nil {
			t.Fatal("EncodePendingCommit() fail", err)
		}
		got, err := DecodePendingCommit(data)
		if err != nil {
			t.Fatal("DecodePendingCommit() fail", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("decoded %+v, want %+v", got, want)
		}
		if _, err := DecodePendingCommit(data[:len(data)-1]); err == nil {
			t.Fatal("expected error for truncated pending commit")
		}
	}

	rec, err := EncodeRecord(next)
	if err != nil {
		t.Fatal("EncodeRecord() fail", err)
	}
	if _, err := DecodePendingCommit(rec); err == nil {
		t.Fatal("record decoded as a pending commit")
	}

	data, err := EncodePendingCommit(bare)
	if err != nil {
		t.Fatal("EncodePendingCommit() fail", err)
	}
	// Claim option byte is zero; rewrite the transfer count that follows it.
	huge := bytes.Clone(data)
	copy(huge[len(huge)-4:], []byte{0xff, 0xff, 0xff, 0x7f})
	if _, err := DecodePendingCommit(huge); err == nil {
		t.Fatal("oversized transfer count accepted")
	}
}
