package encoding

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/scil/errs"
)

// AppendZigZagDelta appends values as zigzag-encoded first differences in uvarint
// format.
//
// The first value is stored as a zigzag varint of itself, every following value as
// the zigzag varint of its difference to the predecessor. Differences wrap around in
// two's complement, so any int64 sequence round-trips exactly.
//
// Encoding size:
//   - Differences in [-64, 63]: 1 byte
//   - Differences in [-8192, 8191]: 2 bytes
//   - Worst case: 10 bytes
func AppendZigZagDelta(dst []byte, values []int64) []byte {
	var prev int64
	for _, v := range values {
		dst = binary.AppendUvarint(dst, encodeZigZag64(v-prev))
		prev = v
	}

	return dst
}

// DecodeZigZagDelta decodes count values written by AppendZigZagDelta into dst, which
// is reused when large enough.
//
// Returns the values and the number of bytes consumed, or errs.ErrStageFailure when
// data is truncated or holds a malformed varint.
func DecodeZigZagDelta(dst []int64, data []byte, count int) ([]int64, int, error) {
	dst = dst[:0]

	var prev int64
	offset := 0
	for range count {
		u, next, ok := decodeVarint64(data, offset)
		if !ok {
			return dst, offset, fmt.Errorf("%w: malformed varint at byte %d", errs.ErrStageFailure, offset)
		}
		offset = next

		prev += decodeZigZag64(u)
		dst = append(dst, prev)
	}

	return dst, offset, nil
}

// decodeVarint64 decodes a uvarint starting at offset.
//
// The one- and two-byte forms are decoded inline since small differences dominate
// smooth integer series.
func decodeVarint64(data []byte, offset int) (uint64, int, bool) {
	if offset >= len(data) {
		return 0, offset, false
	}

	cur := offset
	b0 := data[cur]
	cur++
	if b0 < 0x80 {
		return uint64(b0), cur, true
	}

	if cur >= len(data) {
		return 0, offset, false
	}

	b1 := data[cur]
	cur++
	value := uint64(b0&0x7f) | uint64(b1&0x7f)<<7
	if b1 < 0x80 {
		return value, cur, true
	}

	shift := uint(14)
	for i := 2; i < binary.MaxVarintLen64; i++ {
		if cur >= len(data) {
			return 0, offset, false
		}

		b := data[cur]
		cur++
		if i == binary.MaxVarintLen64-1 && b > 1 {
			// overflows 64 bits
			return 0, offset, false
		}
		value |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return value, cur, true
		}
		shift += 7
	}

	return 0, offset, false
}

func encodeZigZag64(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63)) //nolint:gosec
}

// decodeZigZag64 reverses zigzag encoding using branchless bit operations.
func decodeZigZag64(value uint64) int64 {
	return int64((value >> 1) ^ -(value & 1)) //nolint:gosec
}
