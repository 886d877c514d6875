package algo

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/arloliu/scil/accuracy"
	"github.com/arloliu/scil/array"
	"github.com/arloliu/scil/bitpack"
	"github.com/arloliu/scil/endian"
	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
	"github.com/arloliu/scil/hints"
	"github.com/arloliu/scil/internal/pool"
)

// Sigbits keeps the leading mantissa bits of every floating-point value and drops the
// rest by truncation.
//
// The number of kept stored mantissa bits is
//
//	k = max(SignificantBits-1, ceil(log2(100/RelativeTolerancePercent)))
//
// Each value is packed as its sign (only when signs are mixed), its exponent relative
// to the smallest exponent, and its k leading mantissa bits.
//
// Header layout (little-endian, 5 bytes):
//
//	0  sign mode      0 all positive, 1 all negative, 2 mixed
//	1  min exponent   int16, biased
//	3  exponent bits  width of the relative exponent
//	4  mantissa bits  k
type Sigbits struct{}

var _ DataCompressor = Sigbits{}

const (
	sigbitsHeaderSize = 5

	signPositive = 0
	signNegative = 1
	signMixed    = 2
)

func (Sigbits) Info() Info {
	return Info{
		Name:      "sigbits",
		ID:        IDSigbits,
		Role:      format.RoleDataCompressor,
		Lossy:     true,
		Datatypes: floatTypes,
	}
}

// ieeeLayout describes the field widths of one floating-point datatype.
type ieeeLayout struct {
	mantissa int
	exponent int
}

func layoutOf(dt format.Datatype) ieeeLayout {
	if dt == format.TypeFloat32 {
		return ieeeLayout{mantissa: accuracy.Mantissa32, exponent: accuracy.Exponent32}
	}

	return ieeeLayout{mantissa: accuracy.Mantissa64, exponent: accuracy.Exponent64}
}

// keptMantissaBits returns k for hints h and a mantissa of width bits.
func keptMantissaBits(h *hints.Hints, width int) (int, error) {
	if h == nil {
		return 0, fmt.Errorf("%w: sigbits needs significant bits or a relative tolerance", errs.ErrPrecisionUnachievable)
	}

	rel := h.RelativeTolerancePercent
	if h.SignificantBits == 0 && math.IsInf(rel, 1) {
		return 0, fmt.Errorf("%w: sigbits needs significant bits or a relative tolerance", errs.ErrPrecisionUnachievable)
	}

	k := 0
	if h.SignificantBits > 0 {
		k = h.SignificantBits - 1
	}
	if !math.IsInf(rel, 1) {
		if rel <= 0 {
			k = width
		} else if r := int(math.Ceil(math.Log2(100 / rel))); r > k {
			k = r
		}
	}

	if k >= width {
		return 0, fmt.Errorf("%w: keeping %d of %d mantissa bits is not a reduction",
			errs.ErrPrecisionUnachievable, k, width)
	}

	return k, nil
}

func (s Sigbits) Compress(env *Env, in array.Array) ([]byte, error) {
	dt := in.Datatype()
	if !dt.IsFloat() {
		return nil, unsupported(s.Info().Name, dt)
	}

	layout := layoutOf(dt)
	var h *hints.Hints
	if env != nil {
		h = env.Hints
	}
	k, err := keptMantissaBits(h, layout.mantissa)
	if err != nil {
		return nil, err
	}

	comps := decompose(in)
	if err := checkTruncation(comps, in, layout, k, env.special()); err != nil {
		return nil, err
	}

	mode, minExp, expBits := sigbitsPlan(comps)
	total := signWidth(mode) + int(expBits) + k

	out := make([]byte, 0, sigbitsHeaderSize+bitpack.PackedSize(len(comps), uint8(total))) //nolint:gosec // total <= 63
	out = append(out, mode)
	out = endian.WireEngine().AppendUint16(out, uint16(minExp))
	out = append(out, expBits, byte(k))
	env.set("sigbits.mantissa", k)

	if total == 0 {
		return out, nil
	}

	codes, cleanup := pool.GetUint64Slice(len(comps))
	defer cleanup()

	drop := layout.mantissa - k
	for i, c := range comps {
		code := uint64(c.Exponent-minExp)<<k | c.Mantissa>>drop
		if mode == signMixed {
			code |= uint64(c.Sign) << (int(expBits) + k)
		}
		codes[i] = code
	}

	return bitpack.Swage(out, codes, uint8(total)) //nolint:gosec // total <= 63
}

func decompose(in array.Array) []accuracy.Components {
	switch v := in.(type) {
	case array.Slice[float32]:
		out := make([]accuracy.Components, len(v))
		for i, x := range v {
			out[i] = accuracy.Decompose32(x)
		}

		return out
	case array.Slice[float64]:
		out := make([]accuracy.Components, len(v))
		for i, x := range v {
			out[i] = accuracy.Decompose64(x)
		}

		return out
	default:
		return nil
	}
}

// checkTruncation rejects arrays whose NaNs or special values would not survive
// keeping k mantissa bits, and subnormals that would keep fewer significant bits than
// a normal value does.
func checkTruncation(comps []accuracy.Components, in array.Array, layout ieeeLayout, k int, special []float64) error {
	maxExp := uint16(1)<<layout.exponent - 1
	drop := layout.mantissa - k
	lowMask := uint64(1)<<drop - 1

	var values []float64
	if len(special) > 0 {
		values = array.Float64s(in)
	}

	for i, c := range comps {
		if c.Exponent == maxExp && c.Mantissa != 0 && c.Mantissa>>drop == 0 {
			return fmt.Errorf("%w: NaN at index %d needs more than %d mantissa bits",
				errs.ErrPrecisionUnachievable, i, k)
		}
		// A subnormal has no implicit leading one; its significant bits start at the
		// highest set mantissa bit.
		if c.Exponent == 0 && c.Mantissa&lowMask != 0 && bits.Len64(c.Mantissa)-drop < k+1 {
			return fmt.Errorf("%w: subnormal at index %d keeps fewer than %d significant bits",
				errs.ErrPrecisionUnachievable, i, k+1)
		}
		if values != nil && c.Mantissa&lowMask != 0 && hints.IsSpecial(special, values[i]) {
			return fmt.Errorf("%w: special value %v at index %d does not survive %d mantissa bits",
				errs.ErrPrecisionUnachievable, values[i], i, k)
		}
	}

	return nil
}

func sigbitsPlan(comps []accuracy.Components) (mode byte, minExp uint16, expBits uint8) {
	if len(comps) == 0 {
		return signPositive, 0, 0
	}

	mode = comps[0].Sign
	minExp, maxExp := comps[0].Exponent, comps[0].Exponent
	for _, c := range comps[1:] {
		if c.Sign != mode {
			mode = signMixed
		}
		minExp = min(minExp, c.Exponent)
		maxExp = max(maxExp, c.Exponent)
	}

	if maxExp > minExp {
		expBits = bitpack.BitsFor(uint64(maxExp - minExp))
	}

	return mode, minExp, expBits
}

func signWidth(mode byte) int {
	if mode == signMixed {
		return 1
	}

	return 0
}

func (s Sigbits) Decompress(_ *Env, data []byte, dt format.Datatype, count int) (array.Array, error) {
	if !dt.IsFloat() {
		return nil, fmt.Errorf("%w: %s cannot decode %s values", errs.ErrStageFailure, s.Info().Name, dt)
	}
	if len(data) < sigbitsHeaderSize {
		return nil, fmt.Errorf("%w: sigbits header needs %d bytes, have %d", errs.ErrStageFailure, sigbitsHeaderSize, len(data))
	}

	layout := layoutOf(dt)
	mode := data[0]
	minExp := endian.WireEngine().Uint16(data[1:])
	expBits, k := int(data[3]), int(data[4])
	maxExp := uint16(1)<<layout.exponent - 1

	if mode > signMixed || k >= layout.mantissa || expBits > layout.exponent || minExp > maxExp {
		return nil, fmt.Errorf("%w: malformed sigbits header", errs.ErrStageFailure)
	}

	total := signWidth(mode) + expBits + k
	if want := sigbitsHeaderSize + bitpack.PackedSize(count, uint8(total)); len(data) != want { //nolint:gosec // total <= 63
		return nil, fmt.Errorf("%w: sigbits block of %d bytes, want %d", errs.ErrStageFailure, len(data), want)
	}

	codes, cleanup := pool.GetUint64Slice(count)
	defer cleanup()

	if total == 0 {
		clear(codes)
	} else {
		var err error
		codes, err = bitpack.Unswage(codes, data[sigbitsHeaderSize:], count, uint8(total)) //nolint:gosec // total <= 63
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrStageFailure, err)
		}
	}

	drop := layout.mantissa - k
	expMask := uint64(1)<<expBits - 1
	mantMask := uint64(1)<<k - 1

	comps := make([]accuracy.Components, count)
	for i, code := range codes {
		exp := uint64(minExp) + (code>>k)&expMask
		if exp > uint64(maxExp) {
			return nil, fmt.Errorf("%w: exponent %d at index %d is out of range", errs.ErrStageFailure, exp, i)
		}

		c := accuracy.Components{
			Exponent: uint16(exp),
			Mantissa: (code & mantMask) << drop,
			Sign:     mode,
		}
		if mode == signMixed {
			c.Sign = uint8(code >> (expBits + k) & 1)
		}
		comps[i] = c
	}

	if dt == format.TypeFloat32 {
		out := make(array.Slice[float32], count)
		for i, c := range comps {
			out[i] = accuracy.Compose32(c)
		}

		return out, nil
	}

	out := make(array.Slice[float64], count)
	for i, c := range comps {
		out[i] = accuracy.Compose64(c)
	}

	return out, nil
}
