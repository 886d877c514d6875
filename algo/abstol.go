package algo

import (
	"fmt"
	"math"

	"github.com/arloliu/scil/array"
	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
	"github.com/arloliu/scil/quantize"
)

// Abstol quantizes floating-point arrays to the absolute tolerance and bit-packs the
// codes. The data block is a quantize header followed by the packed codes.
type Abstol struct{}

// Allquant is Abstol for every datatype. Integer arrays use the integer step
// 2*floor(t)+1.
type Allquant struct{}

var (
	_ DataCompressor = Abstol{}
	_ DataCompressor = Allquant{}
)

func (Abstol) Info() Info {
	return Info{
		Name:      "abstol",
		ID:        IDAbstol,
		Role:      format.RoleDataCompressor,
		Lossy:     true,
		Datatypes: floatTypes,
	}
}

func (s Abstol) Compress(env *Env, in array.Array) ([]byte, error) {
	return quantizeBlock(env, s.Info().Name, in)
}

func (Abstol) Decompress(_ *Env, data []byte, dt format.Datatype, count int) (array.Array, error) {
	return dequantizeBlock(data, dt, count)
}

func (Allquant) Info() Info {
	return Info{
		Name:      "allquant",
		ID:        IDAllquant,
		Role:      format.RoleDataCompressor,
		Lossy:     true,
		Datatypes: format.Datatypes,
	}
}

func (s Allquant) Compress(env *Env, in array.Array) ([]byte, error) {
	return quantizeBlock(env, s.Info().Name, in)
}

func (Allquant) Decompress(_ *Env, data []byte, dt format.Datatype, count int) (array.Array, error) {
	return dequantizeBlock(data, dt, count)
}

// quantTolerance returns the absolute tolerance a quantizing stage works with.
//
// An unconstrained absolute tolerance gives the quantizer nothing to aim at; it would
// collapse every value onto the minimum.
func quantTolerance(env *Env) (float64, error) {
	tol := env.tolerance()
	if math.IsInf(tol, 1) {
		return 0, fmt.Errorf("%w: no absolute tolerance given", errs.ErrPrecisionUnachievable)
	}

	return tol, nil
}

func quantizeBlock(env *Env, name string, in array.Array) ([]byte, error) {
	tol, err := quantTolerance(env)
	if err != nil {
		return nil, err
	}

	var out []byte
	special := env.special()
	switch v := in.(type) {
	case array.Slice[float32]:
		out, err = quantize.Compress(nil, v, tol, special)
	case array.Slice[float64]:
		out, err = quantize.Compress(nil, v, tol, special)
	case array.Slice[int8]:
		out, err = quantize.Compress(nil, v, tol, special)
	case array.Slice[int16]:
		out, err = quantize.Compress(nil, v, tol, special)
	case array.Slice[int32]:
		out, err = quantize.Compress(nil, v, tol, special)
	case array.Slice[int64]:
		out, err = quantize.Compress(nil, v, tol, special)
	default:
		return nil, unsupported(name, in.Datatype())
	}
	if err != nil {
		return nil, err
	}

	if p, _, err := quantize.ReadHeader(in.Datatype(), out); err == nil {
		env.set(name+".bits", int(p.Bits))
	}

	return out, nil
}

func dequantizeBlock(data []byte, dt format.Datatype, count int) (array.Array, error) {
	p, n, err := quantize.ReadHeader(dt, data)
	if err != nil {
		return nil, err
	}
	if want := n + p.PayloadLen(count); len(data) != want {
		return nil, fmt.Errorf("%w: quantized block of %d bytes, want %d", errs.ErrStageFailure, len(data), want)
	}

	switch dt {
	case format.TypeFloat32:
		return decompressAs[float32](data, count)
	case format.TypeFloat64:
		return decompressAs[float64](data, count)
	case format.TypeInt8:
		return decompressAs[int8](data, count)
	case format.TypeInt16:
		return decompressAs[int16](data, count)
	case format.TypeInt32:
		return decompressAs[int32](data, count)
	case format.TypeInt64:
		return decompressAs[int64](data, count)
	default:
		return nil, fmt.Errorf("%w: unsupported datatype %s", errs.ErrStageFailure, dt)
	}
}

func decompressAs[T array.Number](data []byte, count int) (array.Array, error) {
	out, err := quantize.Decompress[T](data, count, nil)
	if err != nil {
		return nil, err
	}

	return array.Slice[T](out), nil
}

func unsupported(name string, dt format.Datatype) error {
	return fmt.Errorf("%w: %s does not support %s", errs.ErrInvalidParameter, name, dt)
}
