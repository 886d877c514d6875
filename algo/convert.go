package algo

import (
	"fmt"

	"github.com/arloliu/scil/array"
	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
	"github.com/arloliu/scil/internal/pool"
	"github.com/arloliu/scil/quantize"
)

// Quantize converts an array of any datatype into quantizer codes. The header is the
// quantize header; the codes continue down the chain as int64 values.
type Quantize struct{}

// Bitcast reinterprets IEEE-754 values as their bit patterns and widens integers to
// int64. It is lossless and has no header.
type Bitcast struct{}

var (
	_ Converter = Quantize{}
	_ Converter = Bitcast{}
)

func (Quantize) Info() Info {
	return Info{
		Name:      "quantize",
		ID:        IDQuantize,
		Role:      format.RoleConverter,
		Lossy:     true,
		Datatypes: format.Datatypes,
	}
}

func (s Quantize) Convert(env *Env, in array.Array) ([]byte, array.Slice[int64], error) {
	tol, err := quantTolerance(env)
	if err != nil {
		return nil, nil, err
	}

	special := env.special()
	switch v := in.(type) {
	case array.Slice[float32]:
		return quantizeCodes(env, v, tol, special)
	case array.Slice[float64]:
		return quantizeCodes(env, v, tol, special)
	case array.Slice[int8]:
		return quantizeCodes(env, v, tol, special)
	case array.Slice[int16]:
		return quantizeCodes(env, v, tol, special)
	case array.Slice[int32]:
		return quantizeCodes(env, v, tol, special)
	case array.Slice[int64]:
		return quantizeCodes(env, v, tol, special)
	default:
		return nil, nil, unsupported(s.Info().Name, in.Datatype())
	}
}

func quantizeCodes[T array.Number](env *Env, values []T, tol float64, special []float64) ([]byte, array.Slice[int64], error) {
	p, err := quantize.Plan(values, tol, special)
	if err != nil {
		return nil, nil, err
	}

	codes, cleanup := pool.GetUint64Slice(len(values))
	defer cleanup()

	codes, err = quantize.Encode(values, p, codes)
	if err != nil {
		return nil, nil, err
	}

	out := make(array.Slice[int64], len(codes))
	for i, c := range codes {
		out[i] = int64(c) //nolint:gosec // codes are at most 63 bits wide
	}
	env.set("quantize.bits", int(p.Bits))

	return p.AppendHeader(nil), out, nil
}

func (Quantize) HeaderSize(buf []byte) (int, error) {
	return quantize.HeaderLen(buf)
}

func (Quantize) Revert(_ *Env, header []byte, in array.Slice[int64], dt format.Datatype) (array.Array, error) {
	p, n, err := quantize.ReadHeader(dt, header)
	if err != nil {
		return nil, err
	}
	if n != len(header) {
		return nil, fmt.Errorf("%w: quantize header of %d bytes, want %d", errs.ErrStageFailure, len(header), n)
	}

	codes, cleanup := pool.GetUint64Slice(len(in))
	defer cleanup()
	for i, c := range in {
		codes[i] = uint64(c) //nolint:gosec // negative codes fail the width check in Decode
	}

	switch dt {
	case format.TypeFloat32:
		return decodeCodes[float32](codes, p)
	case format.TypeFloat64:
		return decodeCodes[float64](codes, p)
	case format.TypeInt8:
		return decodeCodes[int8](codes, p)
	case format.TypeInt16:
		return decodeCodes[int16](codes, p)
	case format.TypeInt32:
		return decodeCodes[int32](codes, p)
	case format.TypeInt64:
		return decodeCodes[int64](codes, p)
	default:
		return nil, fmt.Errorf("%w: unsupported datatype %s", errs.ErrStageFailure, dt)
	}
}

func decodeCodes[T array.Number](codes []uint64, p quantize.Params) (array.Array, error) {
	out, err := quantize.Decode[T](codes, p, nil)
	if err != nil {
		return nil, err
	}

	return array.Slice[T](out), nil
}

func (Bitcast) Info() Info {
	return Info{
		Name:      "bitcast",
		ID:        IDBitcast,
		Role:      format.RoleConverter,
		Datatypes: format.Datatypes,
	}
}

func (s Bitcast) Convert(_ *Env, in array.Array) ([]byte, array.Slice[int64], error) {
	switch v := in.(type) {
	case array.Slice[float32]:
		return nil, patterns(v), nil
	case array.Slice[float64]:
		return nil, patterns(v), nil
	case array.Slice[int8]:
		return nil, widenInts(v), nil
	case array.Slice[int16]:
		return nil, widenInts(v), nil
	case array.Slice[int32]:
		return nil, widenInts(v), nil
	case array.Slice[int64]:
		return nil, widenInts(v), nil
	default:
		return nil, nil, unsupported(s.Info().Name, in.Datatype())
	}
}

func (Bitcast) HeaderSize([]byte) (int, error) {
	return 0, nil
}

func (Bitcast) Revert(_ *Env, _ []byte, in array.Slice[int64], dt format.Datatype) (array.Array, error) {
	switch dt {
	case format.TypeFloat32:
		return narrow[float32](in), nil
	case format.TypeFloat64:
		return narrow[float64](in), nil
	case format.TypeInt8:
		return narrow[int8](in), nil
	case format.TypeInt16:
		return narrow[int16](in), nil
	case format.TypeInt32:
		return narrow[int32](in), nil
	case format.TypeInt64:
		return narrow[int64](in), nil
	default:
		return nil, fmt.Errorf("%w: unsupported datatype %s", errs.ErrStageFailure, dt)
	}
}

// patterns returns the zero-extended IEEE-754 bit patterns of values.
func patterns[T array.Float](values []T) array.Slice[int64] {
	out := make(array.Slice[int64], len(values))
	for i, v := range values {
		out[i] = int64(array.Bits(v)) //nolint:gosec // bit reinterpretation
	}

	return out
}

func widenInts[T array.Integer](values []T) array.Slice[int64] {
	out := make(array.Slice[int64], len(values))
	for i, v := range values {
		out[i] = int64(v)
	}

	return out
}

// narrow keeps the low bits of every code, the inverse of patterns and widenInts.
func narrow[T array.Number](codes []int64) array.Slice[T] {
	out := make(array.Slice[T], len(codes))
	for i, c := range codes {
		out[i] = array.FromBits[T](uint64(c)) //nolint:gosec // bit reinterpretation
	}

	return out
}
