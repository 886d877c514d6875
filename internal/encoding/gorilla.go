package encoding

import (
	"fmt"
	"math/bits"

	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/internal/pool"
)

// GorillaEncoder implements Facebook's Gorilla XOR compression for IEEE-754 bit patterns.
//
// The algorithm uses XOR-based compression with leading/trailing zero optimization:
//  1. Store the first value uncompressed (width bits)
//  2. For subsequent values:
//     - XOR with previous value
//     - If XOR is 0 (value unchanged): store 1 bit (0)
//     - If XOR is non-zero:
//     a. Store control bit (1)
//     b. Calculate leading/trailing zeros
//     c. If same as previous block: store 1 bit (0) + meaningful bits
//     d. If different block: store 1 bit (1) + 5 bits (leading) + 6 bits (length) + meaningful bits
//
// Values narrower than 64 bits (float32 patterns) are aligned to the top of the
// 64-bit word before XORing, so the same block encoding serves both widths.
//
// See https://www.vldb.org/pvldb/vol8/p1816-teller.pdf for algorithm details.
type GorillaEncoder struct {
	// Hot path fields (frequently accessed, keep together for cache locality)
	bitBuf        uint64 // Bit buffer for accumulating bits before writing to byte buffer
	prevValue     uint64 // Previous value, top-aligned
	bitCount      int    // Number of valid bits in bitBuf
	count         int    // Number of values encoded
	prevLeading   int    // Leading zeros in previous XOR
	prevTrailing  int    // Trailing zeros in previous XOR
	prevBlockSize int    // Cached block size: 64 - prevLeading - prevTrailing
	shift         int    // 64 - width

	buf *pool.ByteBuffer
}

// NewGorillaEncoder creates an encoder for bit patterns of the given width, which
// must be 32 or 64.
func NewGorillaEncoder(width int) *GorillaEncoder {
	if width != 32 && width != 64 {
		panic(fmt.Sprintf("gorilla: unsupported value width %d", width))
	}

	return &GorillaEncoder{
		buf:   pool.GetStreamBuffer(),
		shift: 64 - width,
	}
}

// Write encodes one bit pattern. Only the low width bits of v are used.
func (e *GorillaEncoder) Write(v uint64) {
	if e.buf == nil {
		panic("encoder already finished - cannot write values after Finish()")
	}

	v <<= e.shift
	e.count++

	if e.count == 1 {
		e.prevValue = v
		e.writeBits(v>>e.shift, 64-e.shift)

		return
	}

	e.writeValue(v)
}

// WriteSlice encodes a slice of bit patterns.
func (e *GorillaEncoder) WriteSlice(values []uint64) {
	for i := 0; i < len(values); {
		// runs of a repeated value after the first write are one zero bit each
		v := values[i] << e.shift
		if e.count > 0 && v == e.prevValue {
			j := i + 1
			for j < len(values) && values[j]<<e.shift == v {
				j++
			}
			e.writeZeroBits(j - i)
			e.count += j - i
			i = j

			continue
		}

		e.Write(values[i])
		i++
	}
}

func (e *GorillaEncoder) writeZeroBits(count int) {
	for count > 0 {
		n := min(count, 64)
		e.writeBits(0, n)
		count -= n
	}
}

// Bytes flushes pending bits and returns the encoded stream.
//
// The returned slice is valid until Finish. Call Bytes once, after the last Write.
func (e *GorillaEncoder) Bytes() []byte {
	if e.buf == nil {
		panic("encoder already finished - cannot access bytes after Finish()")
	}

	if e.bitCount > 0 {
		e.flushBits()
	}

	return e.buf.Bytes()
}

// Len returns the number of encoded values.
func (e *GorillaEncoder) Len() int {
	return e.count
}

// Finish returns the internal buffer to the pool. The encoder is unusable afterwards.
func (e *GorillaEncoder) Finish() {
	if e.buf == nil {
		return
	}

	pool.PutStreamBuffer(e.buf)
	e.buf = nil
}

func (e *GorillaEncoder) writeValue(v uint64) {
	xor := v ^ e.prevValue
	e.prevValue = v

	if xor == 0 {
		e.writeBits(0, 1)
		return
	}

	e.writeBits(1, 1)

	leading := bits.LeadingZeros64(xor)
	trailing := bits.TrailingZeros64(xor)

	// leading zeros are stored in 5 bits
	if leading > 31 {
		leading = 31
	}

	if e.count > 2 && e.prevBlockSize > 0 && leading >= e.prevLeading && trailing >= e.prevTrailing {
		e.writeBits(0, 1)
		e.writeBits(xor>>e.prevTrailing, e.prevBlockSize)

		return
	}

	blockSize := 64 - leading - trailing
	e.writeBits(1, 1)
	e.writeBits(uint64(leading), 5)     //nolint:gosec // G115: leading is always 0-31
	e.writeBits(uint64(blockSize-1), 6) //nolint:gosec // G115: blockSize-1 is always 0-63
	e.writeBits(xor>>trailing, blockSize)

	e.prevLeading = leading
	e.prevTrailing = trailing
	e.prevBlockSize = blockSize
}

// writeBits writes the low numBits bits of value, most significant first.
func (e *GorillaEncoder) writeBits(value uint64, numBits int) {
	if numBits == 0 {
		return
	}

	if numBits < 64 {
		value &= (1 << numBits) - 1
	}

	available := 64 - e.bitCount
	if numBits <= available {
		e.bitBuf = (e.bitBuf << numBits) | value
		e.bitCount += numBits
		if e.bitCount == 64 {
			e.flushBits()
		}

		return
	}

	// split across the buffer boundary
	highBits := numBits - available
	e.bitBuf = (e.bitBuf << available) | (value >> highBits)
	e.bitCount = 64
	e.flushBits()

	e.bitBuf = value & ((1 << highBits) - 1)
	e.bitCount = highBits
}

// flushBits appends the bit buffer to the byte buffer, most significant byte first.
func (e *GorillaEncoder) flushBits() {
	if e.bitCount == 0 {
		return
	}

	numBytes := (e.bitCount + 7) / 8
	aligned := e.bitBuf << (64 - e.bitCount)

	e.buf.Grow(numBytes)
	for i := range numBytes {
		e.buf.B = append(e.buf.B, byte(aligned>>(56-8*i)))
	}

	e.bitBuf = 0
	e.bitCount = 0
}

// AppendGorilla encodes values of the given width (32 or 64) and appends the stream
// to dst.
func AppendGorilla(dst []byte, values []uint64, width int) []byte {
	enc := NewGorillaEncoder(width)
	defer enc.Finish()

	enc.WriteSlice(values)

	return append(dst, enc.Bytes()...)
}

// DecodeGorilla decodes count bit patterns of the given width from data into dst,
// which is reused when large enough.
//
// Returns errs.ErrStageFailure when the stream is truncated or malformed.
func DecodeGorilla(dst []uint64, data []byte, count, width int) ([]uint64, error) {
	dst = dst[:0]
	if count == 0 {
		return dst, nil
	}
	if width != 32 && width != 64 {
		return dst, fmt.Errorf("%w: gorilla value width %d", errs.ErrInvalidParameter, width)
	}

	shift := 64 - width
	br := newBitReader(data)

	first, ok := br.readBits(width)
	if !ok {
		return dst, errTruncatedGorilla
	}
	prev := first << shift
	dst = append(dst, first)

	trailing, blockSize := 0, 0
	blockValid := false

	for len(dst) < count {
		control, ok := br.readBit()
		if !ok {
			return dst, errTruncatedGorilla
		}

		if control == 0 {
			dst = append(dst, prev>>shift)
			continue
		}

		reuse, ok := br.readBit()
		if !ok {
			return dst, errTruncatedGorilla
		}

		if reuse == 0 {
			if !blockValid {
				return dst, fmt.Errorf("%w: gorilla block reused before definition", errs.ErrStageFailure)
			}
		} else {
			leading, ok1 := br.readBits(5)
			size, ok2 := br.readBits(6)
			if !ok1 || !ok2 {
				return dst, errTruncatedGorilla
			}

			blockSize = int(size) + 1                 //nolint:gosec // G115: 6-bit value
			trailing = 64 - int(leading) - blockSize //nolint:gosec // G115: 5-bit value
			if trailing < 0 {
				return dst, fmt.Errorf("%w: gorilla block overflows 64 bits", errs.ErrStageFailure)
			}
			blockValid = true
		}

		meaningful, ok := br.readBits(blockSize)
		if !ok {
			return dst, errTruncatedGorilla
		}

		prev ^= meaningful << trailing
		dst = append(dst, prev>>shift)
	}

	return dst, nil
}

var errTruncatedGorilla = fmt.Errorf("%w: truncated gorilla stream", errs.ErrStageFailure)
