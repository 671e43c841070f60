// Package token2022 reads the Token-2022 transfer fee extension of a mint.
package token2022

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	// mintBaseLen is padded to the token account size before the account
	// type byte and the TLV extensions begin.
	mintBaseLen        = 165
	accountTypeMint    = 1
	extTransferFeeConf = 1
	transferFeeConfLen = 108
)

// TransferFee represents the transfer fee configuration for a specific epoch
type TransferFee struct {
	Epoch       uint64 // Epoch when this fee configuration is active
	MaximumFee  uint64 // Maximum fee amount in token units
	BasisPoints uint16 // Fee rate in basis points (1/10000)
}

// TransferFeeConfig represents the complete transfer fee configuration for a token
type TransferFeeConfig struct {
	TransferFeeConfigAuthority *solana.PublicKey
	WithdrawWithheldAuthority  *solana.PublicKey
	WithheldAmount             uint64
	OlderTransferFee           TransferFee
	NewerTransferFee           TransferFee
}

// GetTransferFeeConfig returns nil when the mint has no transfer fee.
func GetTransferFeeConfig(ctx context.Context, rpcClient *rpc.Client, mint solana.PublicKey) (*TransferFeeConfig, error) {
	out, err := rpcClient.GetAccountInfoWithOpts(ctx, mint, &rpc.GetAccountInfoOpts{Commitment: rpc.CommitmentFinalized})
	if err != nil {
		return nil, err
	}
	if out == nil || out.Value == nil {
		return nil, fmt.Errorf("mint %s not found", mint)
	}
	if !out.Value.Owner.Equals(solana.Token2022ProgramID) {
		return nil, nil
	}
	return ParseTransferFeeConfig(out.Value.Data.GetBinary())
}

// ParseTransferFeeConfig walks the mint's TLV extensions.
func ParseTransferFeeConfig(data []byte) (*TransferFeeConfig, error) {
	if len(data) <= mintBaseLen {
		return nil, nil
	}
	if data[mintBaseLen] != accountTypeMint {
		return nil, fmt.Errorf("account type %d is not a mint", data[mintBaseLen])
	}
	buf := data[mintBaseLen+1:]
	for len(buf) >= 4 {
		extType := binary.LittleEndian.Uint16(buf[:2])
		extLen := int(binary.LittleEndian.Uint16(buf[2:4]))
		buf = buf[4:]
		if extLen > len(buf) {
			return nil, errors.New("extension length exceeds account data")
		}
		if extType == extTransferFeeConf {
			return parseTransferFeeConfig(buf[:extLen])
		}
		buf = buf[extLen:]
	}
	return nil, nil
}

func parseTransferFeeConfig(buf []byte) (*TransferFeeConfig, error) {
	if len(buf) < transferFeeConfLen {
		return nil, fmt.Errorf("transfer fee config: %d bytes, want %d", len(buf), transferFeeConfLen)
	}
	cfg := &TransferFeeConfig{
		TransferFeeConfigAuthority: optionalKey(buf[0:32]),
		WithdrawWithheldAuthority:  optionalKey(buf[32:64]),
		WithheldAmount:             binary.LittleEndian.Uint64(buf[64:72]),
		OlderTransferFee:           parseTransferFee(buf[72:90]),
		NewerTransferFee:           parseTransferFee(buf[90:108]),
	}
	return cfg, nil
}

func parseTransferFee(b []byte) TransferFee {
	return TransferFee{
		Epoch:       binary.LittleEndian.Uint64(b[:8]),
		MaximumFee:  binary.LittleEndian.Uint64(b[8:16]),
		BasisPoints: binary.LittleEndian.Uint16(b[16:18]),
	}
}

// optionalKey decodes an OptionalNonZeroPubkey; all zeroes means none.
func optionalKey(b []byte) *solana.PublicKey {
	key := solana.PublicKeyFromBytes(b)
	if key.IsZero() {
		return nil
	}
	return &key
}

// MaxBasisPoints is the larger of the two configured rates. A non-zero
// result means some transfer of this mint may be charged.
func MaxBasisPoints(cfg *TransferFeeConfig) uint16 {
	if cfg == nil {
		return 0
	}
	return max(cfg.OlderTransferFee.BasisPoints, cfg.NewerTransferFee.BasisPoints)
}
