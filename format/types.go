package format

import (
	"fmt"
	"strings"
)

type (
	Datatype        uint8
	Role            uint8
	AlgorithmID     uint8
	CompressionType uint8
)

const (
	TypeFloat32 Datatype = 0x0 // TypeFloat32 represents IEEE-754 single precision values.
	TypeFloat64 Datatype = 0x1 // TypeFloat64 represents IEEE-754 double precision values.
	TypeInt8    Datatype = 0x2 // TypeInt8 represents signed 8-bit integers.
	TypeInt16   Datatype = 0x3 // TypeInt16 represents signed 16-bit integers.
	TypeInt32   Datatype = 0x4 // TypeInt32 represents signed 32-bit integers.
	TypeInt64   Datatype = 0x5 // TypeInt64 represents signed 64-bit integers.
	TypeUnknown Datatype = 0xFF

	RolePrecondFirst   Role = 0x0 // RolePrecondFirst transforms the source array before conversion.
	RoleConverter      Role = 0x1 // RoleConverter maps the source array to int64 codes.
	RolePrecondSecond  Role = 0x2 // RolePrecondSecond transforms int64 codes after conversion.
	RoleDataCompressor Role = 0x3 // RoleDataCompressor turns a typed array into bytes.
	RoleByteCompressor Role = 0x4 // RoleByteCompressor compresses an opaque byte stream.

	CompressionZstd   CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2     CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4    CompressionType = 0x4 // CompressionLZ4 represents LZ4 block compression.
	CompressionGzip   CompressionType = 0x5 // CompressionGzip represents gzip (deflate) compression.
	CompressionSnappy CompressionType = 0x6 // CompressionSnappy represents Snappy compression.
)

// Datatypes lists every numeric datatype the pipeline understands.
var Datatypes = []Datatype{TypeFloat32, TypeFloat64, TypeInt8, TypeInt16, TypeInt32, TypeInt64}

func (d Datatype) String() string {
	switch d {
	case TypeFloat32:
		return "float"
	case TypeFloat64:
		return "double"
	case TypeInt8:
		return "int8"
	case TypeInt16:
		return "int16"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	default:
		return "Unknown"
	}
}

// Valid reports whether d names a supported numeric datatype.
func (d Datatype) Valid() bool {
	return d <= TypeInt64
}

// Width returns the size of one element in bytes, or 0 for an unknown datatype.
func (d Datatype) Width() int {
	switch d {
	case TypeInt8:
		return 1
	case TypeInt16:
		return 2
	case TypeFloat32, TypeInt32:
		return 4
	case TypeFloat64, TypeInt64:
		return 8
	default:
		return 0
	}
}

// Bits returns the size of one element in bits.
func (d Datatype) Bits() int {
	return d.Width() * 8
}

// IsFloat reports whether d is an IEEE-754 floating-point type.
func (d Datatype) IsFloat() bool {
	return d == TypeFloat32 || d == TypeFloat64
}

// MantissaBits returns the number of explicitly stored mantissa bits (23 or 52),
// or 0 for integer datatypes.
func (d Datatype) MantissaBits() int {
	switch d {
	case TypeFloat32:
		return 23
	case TypeFloat64:
		return 52
	default:
		return 0
	}
}

// ParseDatatype converts a datatype name into a Datatype.
//
// Both the C-style names ("float", "double") and the Go names ("float32", "float64")
// are accepted.
func ParseDatatype(s string) (Datatype, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "float", "float32":
		return TypeFloat32, nil
	case "double", "float64":
		return TypeFloat64, nil
	case "int8":
		return TypeInt8, nil
	case "int16":
		return TypeInt16, nil
	case "int32":
		return TypeInt32, nil
	case "int64":
		return TypeInt64, nil
	default:
		return TypeUnknown, fmt.Errorf("unknown datatype %q", s)
	}
}

func (r Role) String() string {
	switch r {
	case RolePrecondFirst:
		return "precond-first"
	case RoleConverter:
		return "converter"
	case RolePrecondSecond:
		return "precond-second"
	case RoleDataCompressor:
		return "data-compressor"
	case RoleByteCompressor:
		return "byte-compressor"
	default:
		return "Unknown"
	}
}

// MaxAlgorithmID is the largest id expressible as a single override character.
const MaxAlgorithmID AlgorithmID = 35

const idDigits = "0123456789abcdefghijklmnopqrstuvwxyz"

// Char returns the single character used for the id in override strings.
// Ids above MaxAlgorithmID have no character form and return 0.
func (id AlgorithmID) Char() byte {
	if id > MaxAlgorithmID {
		return 0
	}

	return idDigits[id]
}

// ParseAlgorithmChar converts an override character back into an AlgorithmID.
func ParseAlgorithmChar(c byte) (AlgorithmID, bool) {
	if c >= 'A' && c <= 'Z' {
		c += 'a' - 'A'
	}

	idx := strings.IndexByte(idDigits, c)
	if idx < 0 {
		return 0, false
	}

	return AlgorithmID(idx), true
}

func (c CompressionType) String() string {
	switch c {
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	case CompressionGzip:
		return "Gzip"
	case CompressionSnappy:
		return "Snappy"
	default:
		return "Unknown"
	}
}
