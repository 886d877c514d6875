// Package scil compresses numeric arrays within a caller-specified error budget.
//
// The caller states how much error is acceptable (an absolute tolerance, a relative
// tolerance in percent, or a number of significant bits or digits) and scil picks
// a chain of compression stages that honors it while producing the smallest
// output. A chain can also be named explicitly with an override string.
//
// # Core Features
//
//   - Accuracy-aware chain search with sample-based validation
//   - Quantizing (abstol, allquant, quantize) and truncating (sigbits) stages
//   - Lossless stages: Gorilla XOR, zigzag varint, byte shuffle, delta
//   - General purpose byte compressors (zstd, s2, lz4, gzip, snappy)
//   - Self-describing streams: decompression needs no context
//   - Optional xxHash64 body checksum
//
// # Basic Usage
//
// One-shot compression of a slice:
//
//	h, _ := hints.New(hints.WithAbsoluteTolerance(0.001))
//	data, err := scil.Compress(values, h)
//	...
//	restored, err := scil.Decompress[float64](data, len(values))
//
// Reusing a context, which caches the chain it searched for:
//
//	ctx, _ := scil.NewToleranceContext(format.TypeFloat64, 0.001)
//	defer ctx.Close()
//	for _, frame := range frames {
//	    data, err := pipeline.Compress(ctx, frame, dims.Must(len(frame)))
//	    ...
//	}
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the pipeline package.
// For multi-dimensional arrays, explicit destination buffers, or accuracy
// validation, use the pipeline package directly.
package scil

import (
	"github.com/arloliu/scil/array"
	"github.com/arloliu/scil/dims"
	"github.com/arloliu/scil/format"
	"github.com/arloliu/scil/hints"
	"github.com/arloliu/scil/pipeline"
)

// NewContext creates a compression context for datatype dt under error budget h.
//
// Available options:
//   - pipeline.WithRegistry(reg)
//   - pipeline.WithLogger(logger)
//   - pipeline.WithSampleSize(n)
//   - pipeline.WithFullValidation(true|false)
//   - pipeline.WithChecksum(true|false)
func NewContext(dt format.Datatype, h hints.Hints, opts ...pipeline.ContextOption) (*pipeline.Context, error) {
	return pipeline.NewContext(dt, h, opts...)
}

// NewLosslessContext creates a context that only accepts bit-exact round trips.
func NewLosslessContext(dt format.Datatype, opts ...pipeline.ContextOption) (*pipeline.Context, error) {
	return pipeline.NewContext(dt, hints.Lossless(), opts...)
}

// NewToleranceContext creates a context that bounds the absolute error of every
// value by tol.
//
// Example:
//
//	ctx, err := scil.NewToleranceContext(format.TypeFloat32, 0.5)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctx.Close()
func NewToleranceContext(dt format.Datatype, tol float64, opts ...pipeline.ContextOption) (*pipeline.Context, error) {
	h, err := hints.New(hints.WithAbsoluteTolerance(tol))
	if err != nil {
		return nil, err
	}

	return pipeline.NewContext(dt, h, opts...)
}

// Compress compresses a one-dimensional slice under error budget h.
//
// Each call searches for a chain unless h names an override. Use a Context to
// compress many arrays with the same chain.
func Compress[T array.Number](values []T, h hints.Hints, opts ...pipeline.ContextOption) ([]byte, error) {
	d, err := dims.New(len(values))
	if err != nil {
		return nil, err
	}

	ctx, err := pipeline.NewContext(array.DatatypeOf[T](), h, opts...)
	if err != nil {
		return nil, err
	}
	defer ctx.Close()

	return pipeline.Compress(ctx, values, d)
}

// Decompress restores count values from a stream produced by Compress.
func Decompress[T array.Number](data []byte, count int) ([]T, error) {
	d, err := dims.New(count)
	if err != nil {
		return nil, err
	}

	return pipeline.Decompress[T](nil, data, d)
}

// ParseHints reads an error budget from a YAML or JSON document.
//
// Example document:
//
//	absolute_tolerance: 0.01
//	significant_digits: 4
//	special_values: [-9999]
func ParseHints(doc []byte) (hints.Hints, error) {
	return hints.Parse(doc)
}
