package quantize

import (
	"fmt"
	"math"

	"github.com/arloliu/scil/bitpack"
	"github.com/arloliu/scil/endian"
	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
)

const (
	// HeaderSize is the size of the fixed quantizer header: min (8), tolerance (8)
	// and bits per value (1).
	HeaderSize = 17
	// MaxSpecialValues is the largest number of distinct special values one header
	// can carry.
	MaxSpecialValues = 255

	specialFlag = 0x80
	bitsMask    = 0x7F
)

// Header layout (little-endian):
//
//	0   min        float64 bits (floats) or int64 two's complement (integers)
//	8   tolerance  float64 bits (floats) or uint64 half step (integers)
//	16  bits       bits per value; 0x80 set when special values follow
//	17  count      number of special values        (only with 0x80)
//	18  specials   count float64 values, 8 bytes each (only with 0x80)

// HeaderLen returns the encoded size of p's header.
func (p *Params) HeaderLen() int {
	if len(p.Special) == 0 {
		return HeaderSize
	}

	return HeaderSize + 1 + 8*len(p.Special)
}

// AppendHeader appends the encoded header of p to dst.
func (p *Params) AppendHeader(dst []byte) []byte {
	engine := endian.WireEngine()
	if p.Datatype.IsFloat() {
		dst = engine.AppendUint64(dst, math.Float64bits(p.Min))
		dst = engine.AppendUint64(dst, math.Float64bits(p.Tolerance))
	} else {
		dst = engine.AppendUint64(dst, uint64(p.MinInt))
		dst = engine.AppendUint64(dst, p.HalfStep)
	}

	if len(p.Special) == 0 {
		return append(dst, p.Bits)
	}

	dst = append(dst, p.Bits|specialFlag, byte(len(p.Special)))
	for _, s := range p.Special {
		dst = engine.AppendUint64(dst, math.Float64bits(s))
	}

	return dst
}

// HeaderLen returns the size of the header at the start of buf without decoding it.
func HeaderLen(buf []byte) (int, error) {
	if len(buf) < HeaderSize {
		return 0, fmt.Errorf("%w: quantizer header needs %d bytes, have %d", errs.ErrStageFailure, HeaderSize, len(buf))
	}
	if buf[16]&specialFlag == 0 {
		return HeaderSize, nil
	}
	if len(buf) < HeaderSize+1 {
		return 0, fmt.Errorf("%w: quantizer header truncated before special value count", errs.ErrStageFailure)
	}

	n := HeaderSize + 1 + 8*int(buf[HeaderSize])
	if len(buf) < n {
		return 0, fmt.Errorf("%w: quantizer header needs %d bytes, have %d", errs.ErrStageFailure, n, len(buf))
	}

	return n, nil
}

// ReadHeader decodes the header at the start of buf for datatype dt.
//
// Returns:
//   - Params: the decoded parameters
//   - int: the number of header bytes consumed
//   - error: ErrStageFailure when the header is truncated or malformed
func ReadHeader(dt format.Datatype, buf []byte) (Params, int, error) {
	n, err := HeaderLen(buf)
	if err != nil {
		return Params{}, 0, err
	}

	engine := endian.WireEngine()
	p := Params{Datatype: dt, Bits: buf[16] & bitsMask}
	if p.Bits > bitpack.MaxBits || (p.Bits > 0 && int(p.Bits) >= dt.Bits()) {
		return Params{}, 0, fmt.Errorf("%w: %d bits per value is invalid for %s", errs.ErrStageFailure, p.Bits, dt)
	}

	switch {
	case dt.IsFloat():
		p.Min = math.Float64frombits(engine.Uint64(buf[0:]))
		p.Tolerance = math.Float64frombits(engine.Uint64(buf[8:]))
		if math.IsNaN(p.Tolerance) || p.Tolerance < 0 {
			return Params{}, 0, fmt.Errorf("%w: invalid tolerance %v in quantizer header", errs.ErrStageFailure, p.Tolerance)
		}
	case dt.Valid():
		p.MinInt = int64(engine.Uint64(buf[0:]))
		p.HalfStep = engine.Uint64(buf[8:])
		if p.HalfStep > maxHalfStep {
			return Params{}, 0, fmt.Errorf("%w: invalid half step %d in quantizer header", errs.ErrStageFailure, p.HalfStep)
		}
		p.Tolerance = float64(p.HalfStep)
	default:
		return Params{}, 0, fmt.Errorf("%w: unsupported datatype %s", errs.ErrInvalidParameter, dt)
	}

	if n > HeaderSize {
		count := int(buf[HeaderSize])
		if count == 0 || uint64(count) > uint64(1)<<p.Bits-1 {
			return Params{}, 0, fmt.Errorf("%w: %d special values do not fit %d bit codes", errs.ErrStageFailure, count, p.Bits)
		}
		p.Special = make([]float64, count)
		for i := range p.Special {
			p.Special[i] = math.Float64frombits(engine.Uint64(buf[HeaderSize+1+8*i:]))
		}
	}

	return p, n, nil
}
