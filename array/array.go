// Package array defines the typed numeric arrays that flow between pipeline stages.
//
// A stage never sees an untyped byte slice for array data. It receives an Array,
// whose dynamic type is one of Slice[float32], Slice[float64], Slice[int8],
// Slice[int16], Slice[int32] or Slice[int64], and dispatches with a type switch:
//
//	switch v := in.(type) {
//	case array.Slice[float64]:
//	    return encodeFloat(v)
//	case array.Slice[int32]:
//	    return encodeInt(v)
//	}
//
// Raw serialization always uses the wire byte order (little-endian).
package array

import (
	"fmt"
	"math"
	"unsafe"

	"golang.org/x/exp/constraints"

	"github.com/arloliu/scil/endian"
	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
)

// Number is the set of element types scil compresses.
type Number interface {
	float32 | float64 | int8 | int16 | int32 | int64
}

// Float is the subset of Number with IEEE-754 representation.
type Float interface {
	float32 | float64
}

// Integer is the subset of Number holding signed integers.
type Integer interface {
	int8 | int16 | int32 | int64
}

// Array is a typed numeric array. The only implementations are the Slice types.
type Array interface {
	// Datatype returns the element datatype.
	Datatype() format.Datatype
	// Len returns the number of elements.
	Len() int
	// AppendBytes appends the raw little-endian representation to dst.
	AppendBytes(dst []byte) []byte

	sealed()
}

// Slice is a typed array of T.
type Slice[T Number] []T

var (
	_ Array = Slice[float32](nil)
	_ Array = Slice[float64](nil)
	_ Array = Slice[int8](nil)
	_ Array = Slice[int16](nil)
	_ Array = Slice[int32](nil)
	_ Array = Slice[int64](nil)
)

func (s Slice[T]) Datatype() format.Datatype { return DatatypeOf[T]() }

func (s Slice[T]) Len() int { return len(s) }

func (Slice[T]) sealed() {}

// AppendBytes appends the little-endian representation of s to dst.
func (s Slice[T]) AppendBytes(dst []byte) []byte {
	if len(s) == 0 {
		return dst
	}

	width := int(unsafe.Sizeof(s[0]))
	if endian.IsNativeWireOrder() {
		raw := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*width)
		return append(dst, raw...)
	}

	engine := endian.WireEngine()
	for _, v := range s {
		u := Bits(v)
		switch width {
		case 1:
			dst = append(dst, byte(u))
		case 2:
			dst = engine.AppendUint16(dst, uint16(u))
		case 4:
			dst = engine.AppendUint32(dst, uint32(u))
		default:
			dst = engine.AppendUint64(dst, u)
		}
	}

	return dst
}

// DatatypeOf returns the Datatype corresponding to T.
func DatatypeOf[T Number]() format.Datatype {
	var zero T
	switch any(zero).(type) {
	case float32:
		return format.TypeFloat32
	case float64:
		return format.TypeFloat64
	case int8:
		return format.TypeInt8
	case int16:
		return format.TypeInt16
	case int32:
		return format.TypeInt32
	case int64:
		return format.TypeInt64
	default:
		return format.TypeUnknown
	}
}

// Bits returns the raw bit pattern of v, zero-extended to 64 bits.
func Bits[T Number](v T) uint64 {
	switch x := any(v).(type) {
	case float32:
		return uint64(math.Float32bits(x))
	case float64:
		return math.Float64bits(x)
	case int8:
		return uint64(uint8(x))
	case int16:
		return uint64(uint16(x))
	case int32:
		return uint64(uint32(x))
	case int64:
		return uint64(x)
	default:
		return 0
	}
}

// FromBits is the inverse of Bits. Bits above the width of T are ignored.
func FromBits[T Number](u uint64) T {
	var zero T
	switch any(zero).(type) {
	case float32:
		return any(math.Float32frombits(uint32(u))).(T)
	case float64:
		return any(math.Float64frombits(u)).(T)
	case int8:
		return any(int8(uint8(u))).(T)
	case int16:
		return any(int16(uint16(u))).(T)
	case int32:
		return any(int32(uint32(u))).(T)
	case int64:
		return any(int64(u)).(T)
	default:
		return zero
	}
}

// Make allocates a zeroed array of n elements of datatype dt.
func Make(dt format.Datatype, n int) (Array, error) {
	switch dt {
	case format.TypeFloat32:
		return make(Slice[float32], n), nil
	case format.TypeFloat64:
		return make(Slice[float64], n), nil
	case format.TypeInt8:
		return make(Slice[int8], n), nil
	case format.TypeInt16:
		return make(Slice[int16], n), nil
	case format.TypeInt32:
		return make(Slice[int32], n), nil
	case format.TypeInt64:
		return make(Slice[int64], n), nil
	default:
		return nil, fmt.Errorf("%w: unsupported datatype %s", errs.ErrInvalidParameter, dt)
	}
}

// FromBytes decodes count little-endian elements of datatype dt from b.
//
// Returns ErrInvalidParameter if b holds fewer than count elements or dt is unknown.
func FromBytes(dt format.Datatype, b []byte, count int) (Array, error) {
	if count < 0 || len(b) < count*dt.Width() {
		return nil, fmt.Errorf("%w: need %d bytes for %d %s values, have %d",
			errs.ErrInvalidParameter, count*dt.Width(), count, dt, len(b))
	}

	switch dt {
	case format.TypeFloat32:
		return decode[float32](b, count), nil
	case format.TypeFloat64:
		return decode[float64](b, count), nil
	case format.TypeInt8:
		return decode[int8](b, count), nil
	case format.TypeInt16:
		return decode[int16](b, count), nil
	case format.TypeInt32:
		return decode[int32](b, count), nil
	case format.TypeInt64:
		return decode[int64](b, count), nil
	default:
		return nil, fmt.Errorf("%w: unsupported datatype %s", errs.ErrInvalidParameter, dt)
	}
}

func decode[T Number](b []byte, count int) Slice[T] {
	out := make(Slice[T], count)
	if count == 0 {
		return out
	}

	width := int(unsafe.Sizeof(out[0]))
	if endian.IsNativeWireOrder() {
		raw := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(out))), count*width)
		copy(raw, b[:count*width])

		return out
	}

	engine := endian.WireEngine()
	for i := range out {
		off := i * width
		switch width {
		case 1:
			out[i] = FromBits[T](uint64(b[off]))
		case 2:
			out[i] = FromBits[T](uint64(engine.Uint16(b[off:])))
		case 4:
			out[i] = FromBits[T](uint64(engine.Uint32(b[off:])))
		default:
			out[i] = FromBits[T](engine.Uint64(b[off:]))
		}
	}

	return out
}

// As returns a as a Slice[T] when its element type is T.
func As[T Number](a Array) (Slice[T], bool) {
	s, ok := a.(Slice[T])
	return s, ok
}

// Float64s returns the elements of a widened to float64.
func Float64s(a Array) []float64 {
	switch v := a.(type) {
	case Slice[float32]:
		return widen(v)
	case Slice[float64]:
		out := make([]float64, len(v))
		copy(out, v)

		return out
	case Slice[int8]:
		return widen(v)
	case Slice[int16]:
		return widen(v)
	case Slice[int32]:
		return widen(v)
	case Slice[int64]:
		return widen(v)
	default:
		return nil
	}
}

func widen[T Number](v []T) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}

	return out
}

// MinMax returns the smallest and largest element of values, ignoring NaNs.
// ok is false when values holds no comparable element.
func MinMax[T constraints.Ordered](values []T) (lo, hi T, ok bool) {
	for _, v := range values {
		if v != v { // NaN
			continue
		}
		if !ok {
			lo, hi, ok = v, v, true
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	return lo, hi, ok
}
