// Package algo defines the compression stages a chain is built from, and the registry
// that names them.
//
// Every stage plays exactly one role and implements the matching interface:
//
//	PrecondFirst    typed array   -> typed array   (before conversion)
//	Converter       typed array   -> int64 codes
//	PrecondSecond   int64 codes   -> int64 codes   (after conversion)
//	DataCompressor  typed array   -> bytes
//	ByteCompressor  bytes         -> bytes
//
// Stages that need side information to undo their transform return it as a header.
// The pipeline stores headers in chain order and hands each one back, sized by the
// stage's HeaderSize, when decompressing.
//
// Stages are stateless values. Per-call state lives in Env.
package algo

import (
	"slices"

	"github.com/arloliu/scil/array"
	"github.com/arloliu/scil/dims"
	"github.com/arloliu/scil/format"
	"github.com/arloliu/scil/hints"
)

// Info describes a registered stage.
type Info struct {
	// Name is the override-string name, e.g. "abstol".
	Name string
	// ID is the stable wire identifier.
	ID format.AlgorithmID
	// Role is the chain slot the stage occupies.
	Role format.Role
	// Lossy reports whether the stage may alter values.
	Lossy bool
	// SpreadsError reports whether undoing the stage moves or accumulates an error
	// introduced after it, so a pointwise bound no longer holds. Only lossless stages
	// may follow such a preconditioner.
	SpreadsError bool
	// Datatypes lists the datatypes the stage accepts. Byte compressors leave it nil.
	Datatypes []format.Datatype
}

// Supports reports whether the stage accepts arrays of datatype dt. Byte compressors
// accept any input.
func (i Info) Supports(dt format.Datatype) bool {
	if i.Role == format.RoleByteCompressor {
		return true
	}

	return slices.Contains(i.Datatypes, dt)
}

// Stage is implemented by every registered stage.
type Stage interface {
	Info() Info
}

// Env carries the per-call inputs of a stage.
type Env struct {
	// Hints is the error budget the stage must honor. Stages after a converter see
	// lossless hints.
	Hints *hints.Hints
	// SpecialValues are preserved verbatim by quantizing stages.
	SpecialValues []float64
	// Params is the key/value store of the owning context.
	Params *Params
	// Dims is the shape of the array being compressed.
	Dims dims.Dims
}

// PrecondFirst transforms the source array before conversion.
type PrecondFirst interface {
	Stage
	Precondition(env *Env, in array.Array) (header []byte, out array.Array, err error)
	// HeaderSize returns the length of the header at the start of buf.
	HeaderSize(buf []byte) (int, error)
	Restore(env *Env, header []byte, in array.Array) (array.Array, error)
}

// Converter maps the source array to int64 codes.
type Converter interface {
	Stage
	Convert(env *Env, in array.Array) (header []byte, out array.Slice[int64], err error)
	HeaderSize(buf []byte) (int, error)
	// Revert rebuilds an array of datatype dt from codes.
	Revert(env *Env, header []byte, in array.Slice[int64], dt format.Datatype) (array.Array, error)
}

// PrecondSecond transforms int64 codes after conversion.
type PrecondSecond interface {
	Stage
	Precondition(env *Env, in array.Slice[int64]) (header []byte, out array.Slice[int64], err error)
	HeaderSize(buf []byte) (int, error)
	Restore(env *Env, header []byte, in array.Slice[int64]) (array.Slice[int64], error)
}

// DataCompressor turns a typed array into the data block.
type DataCompressor interface {
	Stage
	Compress(env *Env, in array.Array) ([]byte, error)
	// Decompress decodes count values of datatype dt from data, which holds the whole
	// data block.
	Decompress(env *Env, data []byte, dt format.Datatype, count int) (array.Array, error)
}

// ByteCompressor compresses the serialized chain body. Its output carries its own
// header.
type ByteCompressor interface {
	Stage
	Compress(env *Env, data []byte) ([]byte, error)
	Decompress(env *Env, data []byte) ([]byte, error)
}

var (
	floatTypes = []format.Datatype{format.TypeFloat32, format.TypeFloat64}
	intTypes   = []format.Datatype{format.TypeInt8, format.TypeInt16, format.TypeInt32, format.TypeInt64}
	int64Only  = []format.Datatype{format.TypeInt64}
)

// tolerance returns the absolute tolerance of env, or 0 when env has no hints.
func (e *Env) tolerance() float64 {
	if e == nil || e.Hints == nil {
		return hints.Finest
	}

	return e.Hints.AbsoluteTolerance
}

func (e *Env) special() []float64 {
	if e == nil {
		return nil
	}

	return e.SpecialValues
}

func (e *Env) set(key string, value any) {
	if e == nil || e.Params == nil {
		return
	}

	e.Params.Set(key, value)
}
