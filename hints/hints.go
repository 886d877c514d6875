// Package hints describes the error budget a compression chain must honor.
//
// A Hints value states how much error the caller accepts, as an absolute tolerance,
// a relative tolerance in percent, or a number of significant bits or digits. Every
// bound defaults to "no constraint". The same type is used to report the accuracy a
// finished compression actually achieved (see package accuracy), which lets the
// chain search compare requested and observed accuracy with Satisfies.
package hints

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/arloliu/scil/errs"
)

// Finest is the absolute tolerance that requests the finest representable accuracy,
// i.e. a lossless round trip.
const Finest = 0.0

// MaxSignificantBits bounds SignificantBits. Wider requests can never be met by any
// supported datatype.
const MaxSignificantBits = 64

// Hints is an error budget, or an observed accuracy summary.
//
// Use Default or New to obtain a value; the zero value requests lossless compression
// because its tolerances are zero.
type Hints struct {
	// AbsoluteTolerance bounds |original - reconstructed|. +Inf leaves it unconstrained.
	AbsoluteTolerance float64
	// RelativeTolerancePercent bounds 100*|1 - reconstructed/original|. +Inf leaves it
	// unconstrained.
	RelativeTolerancePercent float64
	// RelativeErrFinestAbsTolerance is the absolute error below which relative error
	// is not evaluated.
	RelativeErrFinestAbsTolerance float64
	// SignificantDigits is the number of decimal digits that must survive. 0 leaves
	// it unconstrained.
	SignificantDigits int
	// SignificantBits is the number of leading significand bits, counting the
	// implicit leading one, that must survive. 0 leaves it unconstrained.
	SignificantBits int
	// ForceCompressionMethods selects an explicit chain and disables the search.
	ForceCompressionMethods string
	// SpecialValues are preserved verbatim by the quantizing stages.
	SpecialValues []float64
}

// Default returns hints with every bound unconstrained.
func Default() Hints {
	return Hints{
		AbsoluteTolerance:        math.Inf(1),
		RelativeTolerancePercent: math.Inf(1),
	}
}

// Lossless returns hints that only accept an exact round trip.
func Lossless() Hints {
	return Hints{}
}

// New returns the default hints with opts applied and normalized.
func New(opts ...Option) (Hints, error) {
	h := Default()
	if err := applyOptions(&h, opts...); err != nil {
		return Hints{}, err
	}

	return h.Normalize()
}

// DigitsToBits converts a number of significant decimal digits to significant bits.
func DigitsToBits(digits int) int {
	if digits <= 0 {
		return 0
	}

	return int(math.Ceil(float64(digits) * math.Log2(10)))
}

// BitsToDigits converts a number of significant bits to the decimal digits they
// guarantee.
func BitsToDigits(bits int) int {
	if bits <= 0 {
		return 0
	}

	return int(math.Floor(float64(bits) * math.Log10(2)))
}

// Validate checks that every field holds a legal value.
func (h *Hints) Validate() error {
	if err := checkTolerance("absolute tolerance", h.AbsoluteTolerance); err != nil {
		return err
	}
	if err := checkTolerance("relative tolerance", h.RelativeTolerancePercent); err != nil {
		return err
	}
	if err := checkTolerance("relative error floor", h.RelativeErrFinestAbsTolerance); err != nil {
		return err
	}
	if h.SignificantDigits < 0 {
		return fmt.Errorf("%w: significant digits %d is negative", errs.ErrInvalidParameter, h.SignificantDigits)
	}
	if h.SignificantBits < 0 || h.SignificantBits > MaxSignificantBits {
		return fmt.Errorf("%w: significant bits %d not in [0,%d]", errs.ErrInvalidParameter, h.SignificantBits, MaxSignificantBits)
	}

	return nil
}

func checkTolerance(name string, v float64) error {
	if math.IsNaN(v) || v < 0 {
		return fmt.Errorf("%w: %s %v must be a non-negative number", errs.ErrInvalidParameter, name, v)
	}

	return nil
}

// Normalize validates h and returns a copy in canonical form.
//
// Significant digits and significant bits describe the same constraint; the stricter
// one wins and both fields are rewritten to agree. SpecialValues is copied so the
// result shares no memory with h.
func (h Hints) Normalize() (Hints, error) {
	if err := h.Validate(); err != nil {
		return Hints{}, err
	}

	out := h
	out.ForceCompressionMethods = strings.TrimSpace(h.ForceCompressionMethods)
	out.SpecialValues = slices.Clone(h.SpecialValues)

	if bits := DigitsToBits(h.SignificantDigits); bits > out.SignificantBits {
		out.SignificantBits = min(bits, MaxSignificantBits)
	}
	if out.SignificantBits > 0 {
		out.SignificantDigits = max(out.SignificantDigits, BitsToDigits(out.SignificantBits))
	}

	return out, nil
}

// Clone returns a deep copy of h.
func (h Hints) Clone() Hints {
	h.SpecialValues = slices.Clone(h.SpecialValues)
	return h
}

// IsLossless reports whether h only accepts an exact round trip.
func (h Hints) IsLossless() bool {
	return h.AbsoluteTolerance == Finest || h.RelativeTolerancePercent == 0
}

// HasOverride reports whether h names an explicit chain.
func (h Hints) HasOverride() bool {
	return h.ForceCompressionMethods != ""
}

// IsSpecial reports whether v is one of the special values. NaN matches a NaN entry.
func (h Hints) IsSpecial(v float64) bool {
	return IsSpecial(h.SpecialValues, v)
}

// IsSpecial reports whether v is in special. NaN matches a NaN entry.
func IsSpecial(special []float64, v float64) bool {
	for _, s := range special {
		if s == v || (s != s && v != v) {
			return true
		}
	}

	return false
}

// Satisfies reports whether the observed accuracy meets every bound h constrains.
//
// mantissaBits is the number of stored mantissa bits of the datatype the observation
// was made on (52 for float64, 23 for float32). A significant-bits request wider than
// the datatype can hold is met only by a bit-exact mantissa.
func (h Hints) Satisfies(observed Hints, mantissaBits int) bool {
	if !math.IsInf(h.AbsoluteTolerance, 1) && !(observed.AbsoluteTolerance <= h.AbsoluteTolerance) {
		return false
	}
	if !math.IsInf(h.RelativeTolerancePercent, 1) && !(observed.RelativeTolerancePercent <= h.RelativeTolerancePercent) {
		return false
	}
	if h.SignificantBits > 0 {
		// observed bits count stored mantissa bits only
		need := min(h.SignificantBits-1, mantissaBits)
		if observed.SignificantBits < need {
			return false
		}
	}

	return true
}

// String renders h for log messages.
func (h Hints) String() string {
	var sb strings.Builder
	sb.WriteString("abs=")
	sb.WriteString(formatFloat(h.AbsoluteTolerance))
	sb.WriteString(" rel%=")
	sb.WriteString(formatFloat(h.RelativeTolerancePercent))
	sb.WriteString(" floor=")
	sb.WriteString(formatFloat(h.RelativeErrFinestAbsTolerance))
	sb.WriteString(" bits=")
	sb.WriteString(strconv.Itoa(h.SignificantBits))
	sb.WriteString(" digits=")
	sb.WriteString(strconv.Itoa(h.SignificantDigits))
	if h.ForceCompressionMethods != "" {
		sb.WriteString(" force=")
		sb.WriteString(strconv.Quote(h.ForceCompressionMethods))
	}
	if len(h.SpecialValues) > 0 {
		sb.WriteString(" special=")
		sb.WriteString(strconv.Itoa(len(h.SpecialValues)))
	}

	return sb.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
