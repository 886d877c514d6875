package algo

import (
	"fmt"

	"github.com/arloliu/scil/array"
	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
	"github.com/arloliu/scil/internal/encoding"
	"github.com/arloliu/scil/internal/pool"
)

// Gorilla compresses floating-point arrays losslessly with Gorilla XOR encoding.
// Smooth series, where neighbours share sign, exponent and leading mantissa bits,
// shrink the most.
type Gorilla struct{}

// Varint stores integer arrays as zigzag-encoded first differences in uvarint form.
type Varint struct{}

var (
	_ DataCompressor = Gorilla{}
	_ DataCompressor = Varint{}
)

func (Gorilla) Info() Info {
	return Info{
		Name:      "gorilla",
		ID:        IDGorilla,
		Role:      format.RoleDataCompressor,
		Datatypes: floatTypes,
	}
}

func (s Gorilla) Compress(_ *Env, in array.Array) ([]byte, error) {
	switch v := in.(type) {
	case array.Slice[float32]:
		return gorillaEncode(v), nil
	case array.Slice[float64]:
		return gorillaEncode(v), nil
	default:
		return nil, unsupported(s.Info().Name, in.Datatype())
	}
}

func gorillaEncode[T array.Float](values []T) []byte {
	bits, cleanup := pool.GetUint64Slice(len(values))
	defer cleanup()

	for i, v := range values {
		bits[i] = array.Bits(v)
	}

	return encoding.AppendGorilla(nil, bits, array.DatatypeOf[T]().Bits())
}

func (s Gorilla) Decompress(_ *Env, data []byte, dt format.Datatype, count int) (array.Array, error) {
	switch dt {
	case format.TypeFloat32:
		return gorillaDecode[float32](data, count)
	case format.TypeFloat64:
		return gorillaDecode[float64](data, count)
	default:
		return nil, fmt.Errorf("%w: %s cannot decode %s values", errs.ErrStageFailure, s.Info().Name, dt)
	}
}

func gorillaDecode[T array.Float](data []byte, count int) (array.Array, error) {
	bits, cleanup := pool.GetUint64Slice(count)
	defer cleanup()

	bits, err := encoding.DecodeGorilla(bits, data, count, array.DatatypeOf[T]().Bits())
	if err != nil {
		return nil, err
	}

	out := make(array.Slice[T], count)
	for i, b := range bits {
		out[i] = array.FromBits[T](b)
	}

	return out, nil
}

func (Varint) Info() Info {
	return Info{
		Name:      "varint",
		ID:        IDVarint,
		Role:      format.RoleDataCompressor,
		Datatypes: intTypes,
	}
}

func (s Varint) Compress(_ *Env, in array.Array) ([]byte, error) {
	switch v := in.(type) {
	case array.Slice[int8]:
		return varintEncode(v), nil
	case array.Slice[int16]:
		return varintEncode(v), nil
	case array.Slice[int32]:
		return varintEncode(v), nil
	case array.Slice[int64]:
		return encoding.AppendZigZagDelta(nil, v), nil
	default:
		return nil, unsupported(s.Info().Name, in.Datatype())
	}
}

func varintEncode[T array.Integer](values []T) []byte {
	wide, cleanup := pool.GetInt64Slice(len(values))
	defer cleanup()

	for i, v := range values {
		wide[i] = int64(v)
	}

	return encoding.AppendZigZagDelta(nil, wide)
}

func (s Varint) Decompress(_ *Env, data []byte, dt format.Datatype, count int) (array.Array, error) {
	switch dt {
	case format.TypeInt8:
		return varintDecode[int8](data, count)
	case format.TypeInt16:
		return varintDecode[int16](data, count)
	case format.TypeInt32:
		return varintDecode[int32](data, count)
	case format.TypeInt64:
		return varintDecode[int64](data, count)
	default:
		return nil, fmt.Errorf("%w: %s cannot decode %s values", errs.ErrStageFailure, s.Info().Name, dt)
	}
}

func varintDecode[T array.Integer](data []byte, count int) (array.Array, error) {
	wide, cleanup := pool.GetInt64Slice(count)
	defer cleanup()

	wide, n, err := encoding.DecodeZigZagDelta(wide, data, count)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes after varint block", errs.ErrStageFailure, len(data)-n)
	}

	out := make(array.Slice[T], count)
	for i, w := range wide {
		v := T(w)
		if int64(v) != w {
			return nil, fmt.Errorf("%w: value %d at index %d overflows %s",
				errs.ErrStageFailure, w, i, array.DatatypeOf[T]())
		}
		out[i] = v
	}

	return out, nil
}
