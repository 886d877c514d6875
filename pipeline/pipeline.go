// Package pipeline compresses numeric arrays through a chain of stages chosen to
// honor an error budget.
//
// A Context holds the datatype, the hints and the resolved chain. Compress runs the
// chain in order and produces a self-describing stream; Decompress reads the chain
// back from the stream preamble and undoes every stage in reverse order, so it needs
// no context at all.
//
// # Basic Usage
//
//	h, _ := hints.New(hints.WithAbsoluteTolerance(0.01))
//	ctx, _ := pipeline.NewContext(format.TypeFloat64, h)
//	defer ctx.Close()
//
//	d := dims.Must(len(values))
//	stream, err := pipeline.Compress(ctx, values, d)
//	...
//	restored, err := pipeline.Decompress[float64](nil, stream, d)
//
// # Chain Resolution
//
// When the hints name an override ("abstol", "shuffle,zstd", "d8") the chain is
// built from it when the context is created. Otherwise the first Compress searches
// every legal chain with at most one stage per slot, round-trips a sample of the
// array through each, and keeps the smallest one whose observed accuracy satisfies
// the hints. Sampling is an approximation: a chain accepted on the sample may exceed
// the budget elsewhere in the array. WithFullValidation confirms the winner on the
// whole array.
//
// # Errors
//
// Every failure is reported as an error wrapping one of the errs sentinels; a failed
// call never returns partial output.
package pipeline

import (
	"fmt"

	"github.com/arloliu/scil/accuracy"
	"github.com/arloliu/scil/algo"
	"github.com/arloliu/scil/array"
	"github.com/arloliu/scil/dims"
	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
	"github.com/arloliu/scil/hints"
)

// HeaderSlack is the room CompressedSizeLimit reserves for the preamble and the
// stage headers.
const HeaderSlack = 4096

// CompressedSizeLimit returns a destination size large enough for any chain to
// compress an array of shape d and datatype dt into.
func CompressedSizeLimit(d dims.Dims, dt format.Datatype) int {
	// converter codes are int64, whatever the source width
	width := max(dt.Width(), format.TypeInt64.Width())

	return 2*d.Count()*width + HeaderSlack
}

// Compress compresses data, shaped by d, with the chain of ctx.
//
// A search-mode context resolves and caches its chain on the first call.
//
// Returns:
//   - []byte: the compressed stream
//   - error: ErrInvalidParameter when T or len(data) do not match ctx and d,
//     ErrAccuracyUnachievable when no chain meets the hints, or the error of the
//     failing stage
func Compress[T array.Number](ctx *Context, data []T, d dims.Dims) ([]byte, error) {
	return compressTo(ctx, nil, array.Slice[T](data), d)
}

// CompressTo compresses data into dst and returns the number of bytes written.
//
// dst must be large enough for the whole stream; CompressedSizeLimit gives a size
// that always is. Returns ErrBufferTooSmall otherwise, leaving the contents of dst
// unspecified.
func CompressTo[T array.Number](ctx *Context, dst []byte, data []T, d dims.Dims) (int, error) {
	out, err := compressTo(ctx, dst[:0:len(dst)], array.Slice[T](data), d)
	if err != nil {
		return 0, err
	}
	if len(out) > len(dst) {
		return 0, fmt.Errorf("%w: stream needs %d bytes, destination holds %d", errs.ErrBufferTooSmall, len(out), len(dst))
	}

	return len(out), nil
}

// CompressArray is Compress for an array of any datatype.
func CompressArray(ctx *Context, in array.Array, d dims.Dims) ([]byte, error) {
	return compressTo(ctx, nil, in, d)
}

func compressTo(ctx *Context, dst []byte, in array.Array, d dims.Dims) ([]byte, error) {
	if err := ctx.check(); err != nil {
		return nil, err
	}
	if err := ctx.checkInput(in, d); err != nil {
		return nil, err
	}

	c, err := ctx.resolve(in, d)
	if err != nil {
		return nil, err
	}

	return encode(dst, c, ctx.env(d), in, ctx.cfg.checksum)
}

// Decompress restores the array of shape d from compressed.
//
// ctx may be nil: the stream names its own chain. A non-nil ctx supplies the
// registry and must have datatype T.
//
// Returns:
//   - []T: the restored values
//   - error: ErrInvalidParameter when T does not match the stream or ctx,
//     ErrChecksumMismatch when the body hash differs, ErrStageFailure for a corrupt
//     stream
func Decompress[T array.Number](ctx *Context, compressed []byte, d dims.Dims) ([]T, error) {
	out, err := DecompressArray(ctx, array.DatatypeOf[T](), compressed, d)
	if err != nil {
		return nil, err
	}

	values, ok := array.As[T](out)
	if !ok {
		return nil, fmt.Errorf("%w: restored %s values", errs.ErrStageFailure, out.Datatype())
	}

	return values, nil
}

// DecompressInto restores the array of shape d into dst, which must hold exactly
// d.Count() values. dst is not modified on failure.
func DecompressInto[T array.Number](ctx *Context, dst []T, compressed []byte, d dims.Dims) error {
	if len(dst) != d.Count() {
		return fmt.Errorf("%w: destination holds %d values, dims %s need %d", errs.ErrInvalidParameter, len(dst), d, d.Count())
	}

	values, err := Decompress[T](ctx, compressed, d)
	if err != nil {
		return err
	}
	copy(dst, values)

	return nil
}

// DecompressArray is Decompress for an array of datatype dt.
func DecompressArray(ctx *Context, dt format.Datatype, compressed []byte, d dims.Dims) (array.Array, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: invalid dims", errs.ErrInvalidParameter)
	}

	reg := algo.Default()
	env := &algo.Env{Dims: d}
	if ctx != nil {
		if err := ctx.check(); err != nil {
			return nil, err
		}
		if dt != ctx.datatype {
			return nil, fmt.Errorf("%w: %s values requested from a %s context", errs.ErrInvalidParameter, dt, ctx.datatype)
		}
		reg = ctx.cfg.registry
		env = ctx.env(d)
	}

	return decode(reg, env, compressed, dt, d.Count())
}

// Validate decompresses compressed and reports the accuracy it achieved relative to
// original. Compare the result with ctx.Hints() using hints.Hints.Satisfies.
func Validate[T array.Number](ctx *Context, original []T, d dims.Dims, compressed []byte) (hints.Hints, error) {
	if len(original) != d.Count() {
		return hints.Hints{}, fmt.Errorf("%w: %d values do not match dims %s", errs.ErrInvalidParameter, len(original), d)
	}

	restored, err := Decompress[T](ctx, compressed, d)
	if err != nil {
		return hints.Hints{}, err
	}

	floor := 0.0
	if ctx != nil {
		floor = ctx.hints.RelativeErrFinestAbsTolerance
	}

	return accuracy.Analyze(original, restored, floor)
}
