package algo

import (
	"fmt"

	"github.com/arloliu/scil/array"
	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
)

// Shuffle transposes the bytes of the array so that byte i of every element is stored
// together. Exponent and high-order bytes of smooth data then form long runs that a
// byte compressor packs well.
//
// The output array has the source datatype and length; only its raw bytes are
// rearranged. Shuffle has no header.
type Shuffle struct{}

// Delta replaces every integer element with its wrapping difference to its
// predecessor. The first element is kept. Delta has no header.
type Delta struct{}

// IntDelta is Delta for the int64 codes produced by a converter.
type IntDelta struct{}

var (
	_ PrecondFirst  = Shuffle{}
	_ PrecondFirst  = Delta{}
	_ PrecondSecond = IntDelta{}
)

func (Shuffle) Info() Info {
	return Info{
		Name:         "shuffle",
		ID:           IDShuffle,
		Role:         format.RolePrecondFirst,
		SpreadsError: true,
		Datatypes:    format.Datatypes,
	}
}

func (Shuffle) Precondition(_ *Env, in array.Array) ([]byte, array.Array, error) {
	width := in.Datatype().Width()
	raw := in.AppendBytes(make([]byte, 0, in.Len()*width))

	out, err := array.FromBytes(in.Datatype(), shuffleBytes(raw, width), in.Len())
	if err != nil {
		return nil, nil, err
	}

	return nil, out, nil
}

func (Shuffle) HeaderSize([]byte) (int, error) {
	return 0, nil
}

func (Shuffle) Restore(_ *Env, _ []byte, in array.Array) (array.Array, error) {
	width := in.Datatype().Width()
	raw := in.AppendBytes(make([]byte, 0, in.Len()*width))

	return array.FromBytes(in.Datatype(), unshuffleBytes(raw, width), in.Len())
}

// shuffleBytes groups byte i of every width-byte element together.
func shuffleBytes(raw []byte, width int) []byte {
	if width <= 1 {
		return raw
	}

	n := len(raw) / width
	out := make([]byte, len(raw))
	for i := range n {
		for b := range width {
			out[b*n+i] = raw[i*width+b]
		}
	}

	return out
}

func unshuffleBytes(raw []byte, width int) []byte {
	if width <= 1 {
		return raw
	}

	n := len(raw) / width
	out := make([]byte, len(raw))
	for i := range n {
		for b := range width {
			out[i*width+b] = raw[b*n+i]
		}
	}

	return out
}

func (Delta) Info() Info {
	return Info{
		Name:         "delta",
		ID:           IDDelta,
		Role:         format.RolePrecondFirst,
		SpreadsError: true,
		Datatypes:    intTypes,
	}
}

func (s Delta) Precondition(_ *Env, in array.Array) ([]byte, array.Array, error) {
	switch v := in.(type) {
	case array.Slice[int8]:
		return nil, diff(v), nil
	case array.Slice[int16]:
		return nil, diff(v), nil
	case array.Slice[int32]:
		return nil, diff(v), nil
	case array.Slice[int64]:
		return nil, diff(v), nil
	default:
		return nil, nil, unsupported(s.Info().Name, in.Datatype())
	}
}

func (Delta) HeaderSize([]byte) (int, error) {
	return 0, nil
}

func (s Delta) Restore(_ *Env, _ []byte, in array.Array) (array.Array, error) {
	switch v := in.(type) {
	case array.Slice[int8]:
		return prefixSum(v), nil
	case array.Slice[int16]:
		return prefixSum(v), nil
	case array.Slice[int32]:
		return prefixSum(v), nil
	case array.Slice[int64]:
		return prefixSum(v), nil
	default:
		return nil, fmt.Errorf("%w: %s cannot restore %s values", errs.ErrStageFailure, s.Info().Name, in.Datatype())
	}
}

func (IntDelta) Info() Info {
	return Info{
		Name:      "intdelta",
		ID:        IDIntDelta,
		Role:      format.RolePrecondSecond,
		Datatypes: int64Only,
	}
}

func (IntDelta) Precondition(_ *Env, in array.Slice[int64]) ([]byte, array.Slice[int64], error) {
	return nil, diff(in), nil
}

func (IntDelta) HeaderSize([]byte) (int, error) {
	return 0, nil
}

func (IntDelta) Restore(_ *Env, _ []byte, in array.Slice[int64]) (array.Slice[int64], error) {
	return prefixSum(in), nil
}

// diff returns the wrapping first difference of values.
func diff[T array.Integer](values []T) array.Slice[T] {
	out := make(array.Slice[T], len(values))
	var prev T
	for i, v := range values {
		out[i] = v - prev
		prev = v
	}

	return out
}

// prefixSum is the inverse of diff.
func prefixSum[T array.Integer](values []T) array.Slice[T] {
	out := make(array.Slice[T], len(values))
	var acc T
	for i, v := range values {
		acc += v
		out[i] = acc
	}

	return out
}
