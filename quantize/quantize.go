// Package quantize maps numeric arrays to fixed-width integer codes under an absolute
// error bound, and back.
//
// For floating-point data with tolerance t the quantizer rounds every value to the
// nearest multiple of 2t above the array minimum:
//
//	code = round((x - min) / 2t)
//	x'   = min + code*2t
//	bits = ceil(log2((max-min)/2t + 1))
//
// so |x - x'| <= t. Because x' is finally rounded to the source datatype, every code is
// checked against t in that datatype and nudged by one step when rounding would break
// the bound.
//
// Integer data is quantized with the integer step 2*floor(t)+1, which makes any
// tolerance below 1 lossless. Reconstructed integers are clamped to the range of the
// datatype.
//
// Quantization only pays off when the codes are narrower than the source values;
// a plan that needs at least as many bits as the datatype fails with
// errs.ErrPrecisionUnachievable. A constant array needs zero bits and is carried by
// the header alone.
//
// Special values (for example a fill value such as -9999) are excluded from the value
// range and take the topmost codes, so they survive the round trip verbatim.
package quantize

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/arloliu/scil/array"
	"github.com/arloliu/scil/bitpack"
	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
	"github.com/arloliu/scil/hints"
	"github.com/arloliu/scil/internal/pool"
)

// maxHalfStep caps the integer half step so the step 2*h+1 fits in uint64.
const maxHalfStep = uint64(1) << 62

// spanSlack is the relative distance below which range/2t counts as a whole number
// of steps, absorbing the rounding of the division.
const spanSlack = 0x1p-40

// Params describes one quantization of one array.
type Params struct {
	Datatype format.Datatype
	// Bits is the width of every code. 0 means every regular value equals the minimum.
	Bits uint8
	// Min is the smallest regular value of a floating-point array.
	Min float64
	// MinInt is the smallest regular value of an integer array.
	MinInt int64
	// Tolerance is the tolerance the codes were computed with. The step between codes
	// is 2*Tolerance for floating-point data.
	Tolerance float64
	// HalfStep is floor(Tolerance) for integer data; the step is 2*HalfStep+1.
	HalfStep uint64
	// Special lists the special values present in the array, in code order from the
	// top code down.
	Special []float64

	bound float64 // requested tolerance, checked by Encode
}

// Plan computes the quantization parameters for values under tolerance tol.
//
// Parameters:
//   - values: the array to quantize
//   - tol: absolute error bound, >= 0; +Inf accepts any error
//   - special: values to preserve verbatim; only those present in values are kept
//
// Returns:
//   - Params: the plan, to be passed to Encode and written with AppendHeader
//   - error: ErrInvalidParameter for a bad tolerance or too many special values,
//     ErrPrecisionUnachievable when the codes would not be narrower than the datatype,
//     the value range overflows, or a non-finite value is not special
func Plan[T array.Number](values []T, tol float64, special []float64) (Params, error) {
	if math.IsNaN(tol) || tol < 0 {
		return Params{}, fmt.Errorf("%w: tolerance %v", errs.ErrInvalidParameter, tol)
	}

	p := Params{Datatype: array.DatatypeOf[T](), Tolerance: tol, bound: tol}
	p.Special = presentSpecials(values, special)
	if len(p.Special) > MaxSpecialValues {
		return Params{}, fmt.Errorf("%w: %d special values present, at most %d supported",
			errs.ErrInvalidParameter, len(p.Special), MaxSpecialValues)
	}

	var maxCode uint64
	var err error
	if p.Datatype.IsFloat() {
		maxCode, err = planFloat(&p, values)
	} else {
		maxCode = planInt(&p, values)
	}
	if err != nil {
		return Params{}, err
	}

	total := maxCode + uint64(len(p.Special))
	width := bitpack.BitsFor(total)
	if width > bitpack.MaxBits || int(width) >= p.Datatype.Bits() {
		return Params{}, fmt.Errorf("%w: quantizing %s with tolerance %v needs %d bits per value",
			errs.ErrPrecisionUnachievable, p.Datatype, tol, width)
	}
	p.Bits = width

	return p, nil
}

func planFloat[T array.Number](p *Params, values []T) (uint64, error) {
	for i, v := range values {
		x := float64(v)
		if (math.IsNaN(x) || math.IsInf(x, 0)) && !hints.IsSpecial(p.Special, x) {
			return 0, fmt.Errorf("%w: non-finite value %v at index %d", errs.ErrPrecisionUnachievable, x, i)
		}
	}

	lo, hi, ok := array.MinMax(regularValues(values, p.Special))
	if !ok {
		return 0, nil
	}
	p.Min = float64(lo)

	if hi == lo {
		return 0, nil
	}

	rng := float64(hi) - float64(lo)
	if math.IsInf(rng, 0) {
		return 0, fmt.Errorf("%w: value range [%v, %v] overflows", errs.ErrPrecisionUnachievable, lo, hi)
	}
	if p.Tolerance == 0 {
		return 0, fmt.Errorf("%w: zero tolerance on a non-constant array", errs.ErrPrecisionUnachievable)
	}

	q := stepSpan(rng / (2 * p.Tolerance))
	if q >= math.Ldexp(1, 63) {
		return 0, fmt.Errorf("%w: range %v is too wide for tolerance %v", errs.ErrPrecisionUnachievable, rng, p.Tolerance)
	}

	return uint64(q), nil
}

// stepSpan returns the largest code needed to cover s steps, ceil(s), treating s
// within spanSlack of a whole number as exact.
func stepSpan(s float64) float64 {
	if r := math.Round(s); math.Abs(s-r) <= s*spanSlack {
		return r
	}

	return math.Ceil(s)
}

func planInt[T array.Number](p *Params, values []T) uint64 {
	lo, hi, _ := array.MinMax(regularValues(values, p.Special))

	p.MinInt = int64(lo)
	if math.IsInf(p.Tolerance, 1) || p.Tolerance >= float64(maxHalfStep) {
		p.HalfStep = maxHalfStep
	} else {
		p.HalfStep = uint64(math.Floor(p.Tolerance))
	}
	p.Tolerance = float64(p.HalfStep)

	return intCode(uint64(int64(hi))-uint64(int64(lo)), p.HalfStep)
}

// regularValues returns values without the special ones. values itself is returned
// when there is nothing to drop.
func regularValues[T array.Number](values []T, special []float64) []T {
	if len(special) == 0 {
		return values
	}

	out := make([]T, 0, len(values))
	for _, v := range values {
		if !hints.IsSpecial(special, float64(v)) {
			out = append(out, v)
		}
	}

	return out
}

// intCode rounds the offset d to the nearest multiple of the step 2*half+1.
func intCode(d, half uint64) uint64 {
	step := 2*half + 1
	c := d / step
	if d%step > half {
		c++
	}

	return c
}

func presentSpecials[T array.Number](values []T, special []float64) []float64 {
	if len(special) == 0 {
		return nil
	}

	var present []float64
	for _, s := range special {
		if hints.IsSpecial(present, s) {
			continue
		}
		for _, v := range values {
			x := float64(v)
			if x == s || (x != x && s != s) {
				present = append(present, s)
				break
			}
		}
	}

	return present
}

func (p *Params) regularMax() uint64 {
	if p.Bits == 0 {
		return 0
	}

	return uint64(1)<<p.Bits - 1 - uint64(len(p.Special))
}

func (p *Params) specialCode(j int) uint64 {
	return uint64(1)<<p.Bits - 1 - uint64(j)
}

func (p *Params) specialIndex(x float64) int {
	for j, s := range p.Special {
		if s == x || (s != s && x != x) {
			return j
		}
	}

	return -1
}

func (p *Params) limit() float64 {
	if p.bound > 0 {
		return p.bound
	}

	return p.Tolerance
}

func (p *Params) floatValue(c uint64) float64 {
	if c == 0 {
		return p.Min
	}

	return p.Min + float64(c)*(2*p.Tolerance)
}

// Encode maps values to codes according to p. dst is reused when it is large enough.
//
// Returns ErrPrecisionUnachievable when a value cannot be reconstructed within the
// tolerance, and ErrInvalidParameter when T does not match p.Datatype.
func Encode[T array.Number](values []T, p Params, dst []uint64) ([]uint64, error) {
	if dt := array.DatatypeOf[T](); dt != p.Datatype {
		return dst, fmt.Errorf("%w: encoding %s values with a %s plan", errs.ErrInvalidParameter, dt, p.Datatype)
	}

	if cap(dst) < len(values) {
		dst = make([]uint64, len(values))
	} else {
		dst = dst[:len(values)]
	}

	if p.Datatype.IsFloat() {
		return dst, encodeFloat(values, &p, dst)
	}

	return dst, encodeInt(values, &p, dst)
}

func encodeFloat[T array.Number](values []T, p *Params, dst []uint64) error {
	top := p.regularMax()
	step := 2 * p.Tolerance

	for i, v := range values {
		x := float64(v)
		if j := p.specialIndex(x); j >= 0 {
			dst[i] = p.specialCode(j)
			continue
		}

		var c uint64
		if top > 0 && step > 0 {
			if q := math.Round((x - p.Min) / step); q > 0 {
				c = min(uint64(q), top)
			}
		}

		code, ok := fitFloat[T](p, x, c, top)
		if !ok {
			return fmt.Errorf("%w: value %v at index %d cannot be kept within %v",
				errs.ErrPrecisionUnachievable, x, i, p.limit())
		}
		dst[i] = code
	}

	return nil
}

// fitFloat returns c, or a neighbour of c, whose reconstruction in T stays within the
// tolerance of x.
func fitFloat[T array.Number](p *Params, x float64, c, top uint64) (uint64, bool) {
	limit := p.limit()
	within := func(code uint64) bool {
		r := float64(T(p.floatValue(code)))
		return math.Abs(r-x) <= limit
	}

	switch {
	case within(c):
		return c, true
	case c > 0 && within(c-1):
		return c - 1, true
	case c < top && within(c+1):
		return c + 1, true
	default:
		return 0, false
	}
}

func encodeInt[T array.Number](values []T, p *Params, dst []uint64) error {
	top := p.regularMax()

	for i, v := range values {
		if j := p.specialIndex(float64(v)); j >= 0 {
			dst[i] = p.specialCode(j)
			continue
		}

		x := int64(v)
		if x < p.MinInt {
			return fmt.Errorf("%w: value %d at index %d is below the planned minimum %d",
				errs.ErrPrecisionUnachievable, x, i, p.MinInt)
		}
		c := intCode(uint64(x)-uint64(p.MinInt), p.HalfStep)
		if c > top {
			return fmt.Errorf("%w: value %d at index %d is outside the planned range",
				errs.ErrPrecisionUnachievable, x, i)
		}
		dst[i] = c
	}

	return nil
}

// Decode reconstructs values from codes according to p. dst is reused when it is
// large enough.
//
// Returns ErrStageFailure when a code lies outside the range p allows.
func Decode[T array.Number](codes []uint64, p Params, dst []T) ([]T, error) {
	if dt := array.DatatypeOf[T](); dt != p.Datatype {
		return dst, fmt.Errorf("%w: decoding %s values with a %s plan", errs.ErrInvalidParameter, dt, p.Datatype)
	}

	if cap(dst) < len(codes) {
		dst = make([]T, len(codes))
	} else {
		dst = dst[:len(codes)]
	}

	top := p.regularMax()
	upper := uint64(1)<<p.Bits - 1
	if p.Bits == 0 {
		upper = 0
	}
	float := p.Datatype.IsFloat()
	step := 2*p.HalfStep + 1
	dist := uint64(maxOf(p.Datatype)) - uint64(p.MinInt)

	for i, c := range codes {
		switch {
		case c > upper:
			return dst, fmt.Errorf("%w: code %d at index %d exceeds %d bits", errs.ErrStageFailure, c, i, p.Bits)
		case c > top:
			dst[i] = T(p.Special[upper-c])
		case float:
			dst[i] = T(p.floatValue(c))
		default:
			hi, off := bits.Mul64(c, step)
			if hi != 0 || off > dist {
				off = dist
			}
			dst[i] = T(int64(uint64(p.MinInt) + off))
		}
	}

	return dst, nil
}

func maxOf(dt format.Datatype) int64 {
	switch dt {
	case format.TypeInt8:
		return math.MaxInt8
	case format.TypeInt16:
		return math.MaxInt16
	case format.TypeInt32:
		return math.MaxInt32
	default:
		return math.MaxInt64
	}
}

// Compress quantizes values with tolerance tol and appends the header followed by the
// bit-packed codes to dst.
func Compress[T array.Number](dst []byte, values []T, tol float64, special []float64) ([]byte, error) {
	p, err := Plan(values, tol, special)
	if err != nil {
		return dst, err
	}

	codes, cleanup := pool.GetUint64Slice(len(values))
	defer cleanup()

	codes, err = Encode(values, p, codes)
	if err != nil {
		return dst, err
	}

	dst = p.AppendHeader(dst)
	if p.Bits == 0 {
		return dst, nil
	}

	return bitpack.Swage(dst, codes, p.Bits)
}

// Decompress reads a header and count packed codes from src and reconstructs the
// values into dst, which is reused when large enough.
func Decompress[T array.Number](src []byte, count int, dst []T) ([]T, error) {
	p, n, err := ReadHeader(array.DatatypeOf[T](), src)
	if err != nil {
		return dst, err
	}

	codes, cleanup := pool.GetUint64Slice(count)
	defer cleanup()

	if p.Bits == 0 {
		clear(codes)
	} else {
		codes, err = bitpack.Unswage(codes, src[n:], count, p.Bits)
		if err != nil {
			return dst, fmt.Errorf("%w: %v", errs.ErrStageFailure, err)
		}
	}

	return Decode(codes, p, dst)
}

// PayloadLen returns the number of bytes Compress writes after the header for count
// values of p.
func (p *Params) PayloadLen(count int) int {
	if p.Bits == 0 {
		return 0
	}

	return bitpack.PackedSize(count, p.Bits)
}
