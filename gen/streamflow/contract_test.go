package streamflow

import (
	"bytes"
	"testing"

	binary "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
)

func linearContract() *Contract {
	c := &Contract{
		Magic:             0x1b,
		Version:           2,
		Recipient:         solanago.NewWallet().PublicKey(),
		RecipientTokens:   solanago.NewWallet().PublicKey(),
		Mint:              solanago.NewWallet().PublicKey(),
		EndTime:           2_000,
		PartnerFeePercent: 0.25,
		Ix: CreateParams{
			StartTime:          1_000,
			NetAmountDeposited: 1_000_000,
			Period:             10,
			AmountPerPeriod:    9_000,
			Cliff:              1_000,
			CliffAmount:        100_000,
			CancelableBySender: true,
			Pausable:           true,
		},
	}
	copy(c.Ix.StreamName[:], "seed round")
	return c
}

func TestContractRoundTrip(t *testing.T) {
	want := linearContract()
	buf := new(bytes.Buffer)
	if err := want.MarshalWithEncoder(binary.NewBorshEncoder(buf)); err != nil {
		t.Fatal("MarshalWithEncoder() fail", err)
	}
	data := append(buf.Bytes(), make([]byte, 256)...)
	got, err := ParseContract(data)
	if err != nil {
		t.Fatal("ParseContract() fail", err)
	}
	if *got != *want {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
	if _, err := ParseContract(buf.Bytes()[:100]); err == nil {
		t.Fatal("truncated contract parsed")
	}
}

func TestLockedAmount(t *testing.T) {
	tests := []struct {
		name      string
		now       uint64
		withdrawn uint64
		want      uint64
	}{
		{"before start", 500, 0, 1_000_000},
		{"at cliff", 1_000, 0, 900_000},
		{"mid stream", 1_500, 0, 450_000},
		{"mid stream after withdrawal", 1_500, 200_000, 450_000},
		{"withdrawn beyond unlocked", 1_000, 300_000, 700_000},
		{"after end", 2_000, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := linearContract()
			c.AmountWithdrawn = tt.withdrawn
			got, err := c.LockedAmount(tt.now)
			if err != nil {
				t.Fatal("LockedAmount() fail", err)
			}
			if got != tt.want {
				t.Fatalf("locked %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUnlockedCapsAtDeposit(t *testing.T) {
	c := linearContract()
	c.EndTime = 0
	c.Ix.AmountPerPeriod = 1 << 62
	if got := c.Unlocked(1_000_000); got != c.Ix.NetAmountDeposited {
		t.Fatalf("unlocked %d, want deposit", got)
	}
}
