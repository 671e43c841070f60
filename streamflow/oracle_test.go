package streamflow

import (
	"bytes"
	"errors"
	"testing"

	binary "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/krazyTry/honorary-quote-fee/distribution"
	streamflowgen "github.com/krazyTry/honorary-quote-fee/gen/streamflow"
	hqfsolana "github.com/krazyTry/honorary-quote-fee/solana"
)

func newKey() solanago.PublicKey {
	return solanago.NewWallet().PublicKey()
}

func stream() *streamflowgen.Contract {
	return &streamflowgen.Contract{
		Recipient:       newKey(),
		RecipientTokens: newKey(),
		Mint:            newKey(),
		EndTime:         2_000,
		Ix: streamflowgen.CreateParams{
			StartTime:          1_000,
			NetAmountDeposited: 1_000_000,
			Period:             10,
			AmountPerPeriod:    9_000,
			Cliff:              1_000,
			CliffAmount:        100_000,
		},
	}
}

func recipientAccount(c *streamflowgen.Contract) *hqfsolana.Account {
	return &hqfsolana.Account{Address: c.RecipientTokens, Mint: c.Mint, Owner: c.Recipient}
}

func TestReading(t *testing.T) {
	addr := newKey()
	c := stream()
	got, err := Reading(addr, c, recipientAccount(c), 1_500)
	if err != nil {
		t.Fatal("Reading() fail", err)
	}
	want := distribution.VestingReading{
		Contract:        addr,
		Mint:            c.Mint,
		Recipient:       c.Recipient,
		RecipientTokens: c.RecipientTokens,
		Locked:          450_000,
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	got, err = Reading(addr, c, recipientAccount(c), 5_000)
	if err != nil {
		t.Fatal("Reading() fail", err)
	}
	if got.Locked != 0 {
		t.Fatalf("fully vested stream reports %d locked", got.Locked)
	}
}

func TestReadingMismatch(t *testing.T) {
	tests := []struct {
		name string
		edit func(a *hqfsolana.Account)
	}{
		{"other account", func(a *hqfsolana.Account) { a.Address = newKey() }},
		{"other mint", func(a *hqfsolana.Account) { a.Mint = newKey() }},
		{"other owner", func(a *hqfsolana.Account) { a.Owner = newKey() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := stream()
			acct := recipientAccount(c)
			tt.edit(acct)
			if _, err := Reading(newKey(), c, acct, 1_500); !errors.Is(err, distribution.ErrAccountMismatch) {
				t.Fatalf("expected account mismatch, got %v", err)
			}
		})
	}
}

func TestDecodeStream(t *testing.T) {
	c := stream()
	buf := new(bytes.Buffer)
	if err := c.MarshalWithEncoder(binary.NewBorshEncoder(buf)); err != nil {
		t.Fatal("MarshalWithEncoder() fail", err)
	}
	data := append(buf.Bytes(), make([]byte, 256)...)
	addr := newKey()

	got, err := decodeStream(addr, &rpc.Account{Owner: streamflowgen.ProgramID, Data: rpc.DataBytesOrJSONFromBytes(data)})
	if err != nil {
		t.Fatal("decodeStream() fail", err)
	}
	if got.RecipientTokens != c.RecipientTokens || got.Ix.NetAmountDeposited != c.Ix.NetAmountDeposited {
		t.Fatalf("unexpected contract %+v", got)
	}

	if _, err := decodeStream(addr, nil); !errors.Is(err, distribution.ErrAccountMismatch) {
		t.Fatalf("missing stream: %v", err)
	}
	if _, err := decodeStream(addr, &rpc.Account{Owner: newKey(), Data: rpc.DataBytesOrJSONFromBytes(data)}); !errors.Is(err, distribution.ErrAccountMismatch) {
		t.Fatalf("foreign owner: %v", err)
	}
	if _, err := decodeStream(addr, &rpc.Account{Owner: streamflowgen.ProgramID, Data: rpc.DataBytesOrJSONFromBytes(data[:40])}); !errors.Is(err, distribution.ErrAccountMismatch) {
		t.Fatalf("truncated stream: %v", err)
	}
}

func TestReadLockedRejectsNegativeTime(t *testing.T) {
	o := NewOracle(nil, rpc.CommitmentConfirmed, 0)
	if _, err := o.ReadLocked(t.Context(), []solanago.PublicKey{newKey()}, -1); !errors.Is(err, distribution.ErrInvalidTimestamp) {
		t.Fatalf("expected invalid timestamp, got %v", err)
	}
}
