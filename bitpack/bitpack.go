// Package bitpack packs fixed-width integer codes into a dense byte stream.
//
// Swage writes N codes of B bits each into exactly ceil(N*B/8) bytes. There is no
// alignment between consecutive codes: a code may straddle byte boundaries. Bits are
// filled least-significant first, so code i occupies stream bits [i*B, (i+1)*B).
//
// Unswage reverses Swage. The packer knows nothing about tolerances or datatypes;
// it is a pure bit-stream codec shared by the quantizing stages.
package bitpack

import (
	"fmt"

	"github.com/arloliu/scil/errs"
)

// MaxBits is the widest code the packer accepts.
const MaxBits = 63

// PackedSize returns the number of bytes Swage produces for n codes of bits width.
func PackedSize(n int, bits uint8) int {
	return (n*int(bits) + 7) / 8
}

func checkBits(bits uint8) error {
	if bits == 0 || bits > MaxBits {
		return fmt.Errorf("%w: bits per value %d not in [1,%d]", errs.ErrInvalidParameter, bits, MaxBits)
	}

	return nil
}

// Swage appends codes packed at bits per value to dst and returns the extended slice.
//
// Parameters:
//   - dst: destination, may be nil
//   - codes: values to pack, each must fit in bits
//   - bits: code width, 1..63
//
// Returns:
//   - []byte: dst extended by PackedSize(len(codes), bits) bytes
//   - error: ErrInvalidParameter for an invalid width or a code that does not fit
func Swage(dst []byte, codes []uint64, bits uint8) ([]byte, error) {
	if err := checkBits(bits); err != nil {
		return dst, err
	}

	limit := uint64(1) << bits
	if cap(dst)-len(dst) < PackedSize(len(codes), bits) {
		grown := make([]byte, len(dst), len(dst)+PackedSize(len(codes), bits))
		copy(grown, dst)
		dst = grown
	}

	var acc uint64
	n := uint(0) // valid bits in acc, always < 8 between codes
	w := uint(bits)
	for i, c := range codes {
		if c >= limit {
			return dst, fmt.Errorf("%w: code %d at index %d exceeds %d bits", errs.ErrInvalidParameter, c, i, bits)
		}

		acc |= c << n
		if n+w > 64 {
			// acc is full; the high bits of c did not fit
			dst = appendUint64(dst, acc)
			acc = c >> (64 - n)
			n = n + w - 64
		} else {
			n += w
		}

		for n >= 8 {
			dst = append(dst, byte(acc))
			acc >>= 8
			n -= 8
		}
	}

	if n > 0 {
		dst = append(dst, byte(acc))
	}

	return dst, nil
}

func appendUint64(dst []byte, v uint64) []byte {
	return append(dst,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}

// Unswage unpacks n codes of bits width from src.
//
// dst is reused when it has capacity for n codes.
//
// Returns:
//   - []uint64: the n decoded codes
//   - error: ErrInvalidParameter for an invalid width or when src is shorter than
//     PackedSize(n, bits)
func Unswage(dst []uint64, src []byte, n int, bits uint8) ([]uint64, error) {
	if err := checkBits(bits); err != nil {
		return dst, err
	}
	if n < 0 {
		return dst, fmt.Errorf("%w: negative code count %d", errs.ErrInvalidParameter, n)
	}
	if need := PackedSize(n, bits); len(src) < need {
		return dst, fmt.Errorf("%w: packed stream holds %d bytes, need %d", errs.ErrInvalidParameter, len(src), need)
	}

	if cap(dst) < n {
		dst = make([]uint64, n)
	} else {
		dst = dst[:n]
	}

	w := uint(bits)
	pos := uint(0)
	for i := range dst {
		var v uint64
		got := uint(0)
		for got < w {
			off := pos & 7
			take := min(8-off, w-got)
			chunk := (uint64(src[pos>>3]) >> off) & (uint64(1)<<take - 1)
			v |= chunk << got
			got += take
			pos += take
		}
		dst[i] = v
	}

	return dst, nil
}

// BitsFor returns the number of bits needed to represent every value in [0, maxCode].
// It returns 0 for maxCode == 0.
func BitsFor(maxCode uint64) uint8 {
	bits := uint8(0)
	for maxCode > 0 {
		bits++
		maxCode >>= 1
	}

	return bits
}
