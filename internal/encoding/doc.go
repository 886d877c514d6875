// Package encoding provides the bit- and byte-level value codecs used by scil's
// lossless data-compressor stages.
//
// # Implementation Overview
//
// Floating-point codecs:
//   - GorillaEncoder / DecodeGorilla - Facebook's Gorilla XOR compression over IEEE-754
//     bit patterns of width 32 or 64
//
// Integer codecs:
//   - AppendZigZagDelta / DecodeZigZagDelta - zigzag-encoded first differences stored
//     as uvarints
//
// Both codecs work on raw integer representations; the typed conversions live in the
// stage implementations of package algo.
//
// Decoders never panic on malformed input. Truncated or corrupt streams are reported
// as errs.ErrStageFailure.
//
// This package is internal and not part of the public API.
package encoding
