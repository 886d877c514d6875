package compress

import (
	"fmt"

	"github.com/arloliu/scil/format"
)

// Compressor compresses an opaque byte stream.
//
// In scil the input is the serialized body of a compression chain: stage headers
// followed by the data block, which is usually already bit-packed or shuffled.
//
// Memory management:
//   - Returned slice is owned by the caller
//   - Input slice is not modified
//   - Internal buffers may be reused for efficiency
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor reverses a Compressor.
//
// The decompressor validates the data format and returns an error if the data is
// corrupted or was produced by a different algorithm.
//
// Example:
//
//	decompressor := NewZstdCompressor()
//	body, err := decompressor.Decompress(payload)
//	if err != nil {
//	    return fmt.Errorf("decompression failed: %w", err)
//	}
//
// Thread Safety: Decompressor implementations must be safe for concurrent use.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

// SizedDecompressor is implemented by codecs that can decompress directly into a
// buffer of the known decompressed size.
//
// Byte compressor stages record the uncompressed length in their header and use this
// interface when the codec offers it.
type SizedDecompressor interface {
	DecompressSized(data []byte, size int) ([]byte, error)
}

// CreateCodec is a factory function that creates a Codec based on the specified compression type.
//
// Parameters:
//   - compressionType: Type of compression (Zstd, S2, LZ4, Gzip or Snappy)
//   - target: Description of target usage (for error messages)
//
// Returns:
//   - Codec: Compressor instance for the specified type
//   - error: Invalid compression type error
func CreateCodec(compressionType format.CompressionType, target string) (Codec, error) {
	switch compressionType {
	case format.CompressionZstd:
		return NewZstdCompressor(), nil
	case format.CompressionS2:
		return NewS2Compressor(), nil
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	case format.CompressionGzip:
		return NewGzipCompressor(), nil
	case format.CompressionSnappy:
		return NewSnappyCompressor(), nil
	default:
		return nil, fmt.Errorf("invalid %s compression: %s", target, compressionType)
	}
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionZstd:   NewZstdCompressor(),
	format.CompressionS2:     NewS2Compressor(),
	format.CompressionLZ4:    NewLZ4Compressor(),
	format.CompressionGzip:   NewGzipCompressor(),
	format.CompressionSnappy: NewSnappyCompressor(),
}

// GetCodec retrieves a built-in Codec for the specified compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
}
