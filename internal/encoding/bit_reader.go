package encoding

import "encoding/binary"

// bitReader reads a most-significant-bit-first stream from a byte slice.
//
// It keeps up to 64 bits left-aligned in bitBuf and refills eight bytes at a time.
type bitReader struct {
	data     []byte // Source data
	bytePos  int    // Current byte position
	bitBuf   uint64 // Buffer holding current bits
	bitCount int    // Number of valid bits in buffer
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

// readBit reads a single bit. ok is false at the end of the data.
func (br *bitReader) readBit() (uint64, bool) {
	if br.bitCount == 0 && !br.fillBuffer() {
		return 0, false
	}

	bit := br.bitBuf >> 63
	br.bitBuf <<= 1
	br.bitCount--

	return bit, true
}

// readBits reads numBits (0-64) bits, right-aligned in the result.
func (br *bitReader) readBits(numBits int) (uint64, bool) {
	if numBits == 0 {
		return 0, true
	}

	if numBits <= br.bitCount {
		result := br.bitBuf >> (64 - numBits)
		br.bitBuf <<= numBits
		br.bitCount -= numBits

		return result, true
	}

	var result uint64
	for numBits > 0 {
		if br.bitCount == 0 && !br.fillBuffer() {
			return 0, false
		}

		n := min(numBits, br.bitCount)
		result = (result << n) | (br.bitBuf >> (64 - n))
		br.bitBuf <<= n
		br.bitCount -= n
		numBits -= n
	}

	return result, true
}

// fillBuffer refills the bit buffer with up to 8 bytes. It returns false when the
// data is exhausted.
func (br *bitReader) fillBuffer() bool {
	available := len(br.data) - br.bytePos
	if available <= 0 {
		return false
	}

	if available >= 8 {
		br.bitBuf = binary.BigEndian.Uint64(br.data[br.bytePos:])
		br.bytePos += 8
		br.bitCount = 64

		return true
	}

	br.bitBuf = 0
	for range available {
		br.bitBuf = (br.bitBuf << 8) | uint64(br.data[br.bytePos])
		br.bytePos++
	}
	br.bitBuf <<= (8 - available) * 8
	br.bitCount = available * 8

	return true
}
