// Package accuracy measures the error a lossy round trip introduced.
//
// Analyze compares an original array with its reconstruction and reports the observed
// accuracy in the same shape as the requested error budget (hints.Hints), so the two
// can be compared directly with hints.Hints.Satisfies:
//
//   - AbsoluteTolerance is the largest absolute error.
//   - RelativeTolerancePercent is the largest relative error, in percent, over the
//     elements whose absolute error reaches the floor. An original zero that was not
//     reconstructed as zero has an infinite relative error.
//   - RelativeErrFinestAbsTolerance is the largest absolute error below the floor.
//   - SignificantBits is the smallest number of leading stored mantissa bits that
//     agree, 0 when sign or exponent differ.
//
// Integer arrays are analysed through their float64 widening.
package accuracy

import (
	"fmt"
	"math"

	"github.com/arloliu/scil/array"
	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
	"github.com/arloliu/scil/hints"
)

// MantissaBits returns the mantissa width Analyze reports for an identical array of
// datatype dt.
func MantissaBits(dt format.Datatype) int {
	if dt == format.TypeFloat32 {
		return Mantissa32
	}

	return Mantissa64
}

// Exact returns the summary of an error-free round trip for datatype dt.
func Exact(dt format.Datatype) hints.Hints {
	bits := MantissaBits(dt)

	return hints.Hints{
		SignificantBits:   bits,
		SignificantDigits: hints.BitsToDigits(bits),
	}
}

// Analyze reports the accuracy of reconstructed relative to original.
//
// Parameters:
//   - original: the source values
//   - reconstructed: the values after the round trip
//   - floor: absolute error below which relative error is not evaluated
//
// Returns:
//   - hints.Hints: the observed accuracy
//   - error: ErrInvalidParameter when the lengths differ or floor is negative or NaN
func Analyze[T array.Number](original, reconstructed []T, floor float64) (hints.Hints, error) {
	if len(original) != len(reconstructed) {
		return hints.Hints{}, fmt.Errorf("%w: comparing %d values with %d values",
			errs.ErrInvalidParameter, len(original), len(reconstructed))
	}
	if math.IsNaN(floor) || floor < 0 {
		return hints.Hints{}, fmt.Errorf("%w: relative error floor %v", errs.ErrInvalidParameter, floor)
	}

	dt := array.DatatypeOf[T]()
	width := MantissaBits(dt)
	out := Exact(dt)

	for i := range original {
		o, r := float64(original[i]), float64(reconstructed[i])

		var sig int
		if dt == format.TypeFloat32 {
			sig = SignificantBits32(float32(original[i]), float32(reconstructed[i]))
		} else {
			sig = SignificantBits64(o, r)
		}
		if sig < width {
			out.SignificantBits = min(out.SignificantBits, sig)
		}

		if o == r || (o != o && r != r) {
			continue
		}

		err := math.Abs(o - r)
		if math.IsNaN(err) {
			// exactly one side is NaN, or both are infinities of opposite sign
			err = math.Inf(1)
		}
		out.AbsoluteTolerance = max(out.AbsoluteTolerance, err)

		if err < floor {
			out.RelativeErrFinestAbsTolerance = max(out.RelativeErrFinestAbsTolerance, err)
			continue
		}

		rel := math.Inf(1)
		if o != 0 {
			rel = 100 * math.Abs(1-r/o)
			if math.IsNaN(rel) {
				rel = math.Inf(1)
			}
		}
		out.RelativeTolerancePercent = max(out.RelativeTolerancePercent, rel)
	}

	out.SignificantDigits = hints.BitsToDigits(out.SignificantBits)

	return out, nil
}

// Compare is Analyze for arrays of any datatype. Both arrays must share a datatype.
func Compare(original, reconstructed array.Array, floor float64) (hints.Hints, error) {
	if original.Datatype() != reconstructed.Datatype() {
		return hints.Hints{}, fmt.Errorf("%w: comparing %s values with %s values",
			errs.ErrInvalidParameter, original.Datatype(), reconstructed.Datatype())
	}

	switch o := original.(type) {
	case array.Slice[float32]:
		return Analyze(o, reconstructed.(array.Slice[float32]), floor)
	case array.Slice[float64]:
		return Analyze(o, reconstructed.(array.Slice[float64]), floor)
	case array.Slice[int8]:
		return Analyze(o, reconstructed.(array.Slice[int8]), floor)
	case array.Slice[int16]:
		return Analyze(o, reconstructed.(array.Slice[int16]), floor)
	case array.Slice[int32]:
		return Analyze(o, reconstructed.(array.Slice[int32]), floor)
	case array.Slice[int64]:
		return Analyze(o, reconstructed.(array.Slice[int64]), floor)
	default:
		return hints.Hints{}, fmt.Errorf("%w: unsupported datatype %s", errs.ErrInvalidParameter, original.Datatype())
	}
}
