package u128

import (
	bin "encoding/binary"
	"math"

	binary "github.com/gagliardetto/binary"
)

// Read decodes a little-endian u128 as laid out by borsh.
func Read(decoder *binary.Decoder) (binary.Uint128, error) {
	out := *binary.NewUint128LittleEndian()
	var err error
	if out.Lo, err = decoder.ReadUint64(bin.LittleEndian); err != nil {
		return out, err
	}
	if out.Hi, err = decoder.ReadUint64(bin.LittleEndian); err != nil {
		return out, err
	}
	return out, nil
}

func Write(encoder *binary.Encoder, v binary.Uint128) error {
	if err := encoder.WriteUint64(v.Lo, bin.LittleEndian); err != nil {
		return err
	}
	return encoder.WriteUint64(v.Hi, bin.LittleEndian)
}

func IsZero(v binary.Uint128) bool {
	return v.Lo == 0 && v.Hi == 0
}

// SaturatingSum adds values and clamps the result to math.MaxUint64.
func SaturatingSum(values ...binary.Uint128) uint64 {
	var total uint64
	for _, v := range values {
		if v.Hi != 0 {
			return math.MaxUint64
		}
		next := total + v.Lo
		if next < total {
			return math.MaxUint64
		}
		total = next
	}
	return total
}
