package compress

import (
	"fmt"

	"github.com/klauspost/compress/snappy"
)

// SnappyCompressor provides Snappy block compression.
type SnappyCompressor struct{}

var _ Codec = (*SnappyCompressor)(nil)

// NewSnappyCompressor creates a new Snappy compressor.
func NewSnappyCompressor() SnappyCompressor {
	return SnappyCompressor{}
}

// Compress compresses the input data using Snappy.
func (c SnappyCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return snappy.Encode(nil, data), nil
}

// Decompress decompresses Snappy-compressed data.
func (c SnappyCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decompression failed: %w", err)
	}

	return out, nil
}
