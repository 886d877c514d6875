package compress

import (
	"fmt"

	"github.com/klauspost/compress/s2"
)

// S2Compressor provides S2 compression, a faster extension of Snappy.
//
// Chain bodies reaching the s2 stage are usually bit-packed already, so the codec
// uses the "better" encoder level: the extra match search costs little on such short
// inputs and finds the repeats that remain.
type S2Compressor struct{}

var (
	_ Codec             = (*S2Compressor)(nil)
	_ SizedDecompressor = (*S2Compressor)(nil)
)

// NewS2Compressor creates a new S2 compressor.
func NewS2Compressor() S2Compressor {
	return S2Compressor{}
}

// Compress compresses the input data using S2 compression.
func (c S2Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.EncodeBetter(nil, data), nil
}

// Decompress decompresses the input data using S2 decompression.
func (c S2Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Decode(nil, data)
}

// DecompressSized decompresses data whose decoded length must be size bytes.
//
// The length recorded in the S2 block is checked before any output is allocated.
func (c S2Compressor) DecompressSized(data []byte, size int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	n, err := s2.DecodedLen(data)
	if err != nil {
		return nil, fmt.Errorf("s2 decompression failed: %w", err)
	}
	if n != size {
		return nil, fmt.Errorf("s2 block decodes to %d bytes, expected %d", n, size)
	}

	return s2.Decode(make([]byte, size), data)
}
