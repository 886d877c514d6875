package accuracy

import (
	"math"
	"math/bits"
)

// IEEE-754 field widths.
const (
	Mantissa32 = 23
	Exponent32 = 8
	Mantissa64 = 52
	Exponent64 = 11
)

// Components holds the fields of an IEEE-754 value.
type Components struct {
	Sign     uint8
	Exponent uint16
	Mantissa uint64
}

// Decompose64 splits v into its sign, biased exponent and stored mantissa.
func Decompose64(v float64) Components {
	u := math.Float64bits(v)

	return Components{
		Sign:     uint8(u >> 63),
		Exponent: uint16(u>>Mantissa64) & (1<<Exponent64 - 1),
		Mantissa: u & (1<<Mantissa64 - 1),
	}
}

// Decompose32 splits v into its sign, biased exponent and stored mantissa.
func Decompose32(v float32) Components {
	u := math.Float32bits(v)

	return Components{
		Sign:     uint8(u >> 31),
		Exponent: uint16(u>>Mantissa32) & (1<<Exponent32 - 1),
		Mantissa: uint64(u & (1<<Mantissa32 - 1)),
	}
}

// Compose64 is the inverse of Decompose64.
func Compose64(c Components) float64 {
	u := uint64(c.Sign&1)<<63 | uint64(c.Exponent&(1<<Exponent64-1))<<Mantissa64 | c.Mantissa&(1<<Mantissa64-1)
	return math.Float64frombits(u)
}

// Compose32 is the inverse of Decompose32.
func Compose32(c Components) float32 {
	u := uint32(c.Sign&1)<<31 | uint32(c.Exponent&(1<<Exponent32-1))<<Mantissa32 | uint32(c.Mantissa)&(1<<Mantissa32-1)
	return math.Float32frombits(u)
}

// SignificantBits64 returns the number of leading stored mantissa bits a and b share.
// It is 0 when sign or exponent differ and Mantissa64 when the values are identical.
func SignificantBits64(a, b float64) int {
	return significantBits(Decompose64(a), Decompose64(b), Mantissa64)
}

// SignificantBits32 is SignificantBits64 for float32 values.
func SignificantBits32(a, b float32) int {
	return significantBits(Decompose32(a), Decompose32(b), Mantissa32)
}

func significantBits(a, b Components, width int) int {
	if a.Sign != b.Sign || a.Exponent != b.Exponent {
		return 0
	}

	diff := a.Mantissa ^ b.Mantissa
	if diff == 0 {
		return width
	}

	return width - bits.Len64(diff)
}
