// Package compress provides the general-purpose byte codecs behind scil's
// byte-compressor stages.
//
// # Overview
//
// A scil chain ends with an optional byte compressor that squeezes the serialized
// chain body (stage headers plus the data block). By the time the body reaches this
// package the numeric structure has already been exploited by the preconditioners and
// the data compressor; the codecs here only remove the remaining byte-level
// redundancy.
//
// Supported algorithms:
//   - Zstd: Best ratio, moderate speed (format.CompressionZstd)
//   - S2: Balanced speed and ratio (format.CompressionS2)
//   - LZ4: Fastest decompression (format.CompressionLZ4)
//   - Gzip: Deflate, widely readable (format.CompressionGzip)
//   - Snappy: Fast, modest ratio (format.CompressionSnappy)
//
// # Architecture
//
//	type Compressor interface {
//	    Compress(data []byte) ([]byte, error)
//	}
//
//	type Decompressor interface {
//	    Decompress(data []byte) ([]byte, error)
//	}
//
//	type Codec interface {
//	    Compressor
//	    Decompressor
//	}
//
// Codecs that benefit from knowing the decompressed size also implement
// SizedDecompressor.
//
// # Zstd Variants
//
// The default Zstd codec is the pure Go klauspost/compress implementation. Building
// with the gozstd tag (and cgo enabled) switches to the cgo binding of the reference
// library:
//
//	go build -tags gozstd ./...
//
// Both produce standard zstd frames and decode each other's output.
//
// # Memory Management
//
// Zstd encoders and decoders, gzip writers and readers, and LZ4 compressors are kept
// in sync.Pool instances; warmed-up state is reused across calls.
//
// # Thread Safety
//
// All codec implementations are safe for concurrent use.
package compress
