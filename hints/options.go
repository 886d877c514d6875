package hints

import (
	"fmt"
	"slices"

	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/internal/options"
)

// Option configures Hints in New.
type Option = options.Option[*Hints]

func applyOptions(h *Hints, opts ...Option) error {
	return options.Apply(h, opts...)
}

// WithAbsoluteTolerance bounds the absolute error. Use Finest for a lossless round trip.
func WithAbsoluteTolerance(tol float64) Option {
	return options.New(func(h *Hints) error {
		if err := checkTolerance("absolute tolerance", tol); err != nil {
			return err
		}
		h.AbsoluteTolerance = tol

		return nil
	})
}

// WithRelativeTolerancePercent bounds the relative error, in percent.
func WithRelativeTolerancePercent(pct float64) Option {
	return options.New(func(h *Hints) error {
		if err := checkTolerance("relative tolerance", pct); err != nil {
			return err
		}
		h.RelativeTolerancePercent = pct

		return nil
	})
}

// WithRelativeErrFinestAbsTolerance sets the absolute error below which relative error
// is not evaluated.
func WithRelativeErrFinestAbsTolerance(floor float64) Option {
	return options.New(func(h *Hints) error {
		if err := checkTolerance("relative error floor", floor); err != nil {
			return err
		}
		h.RelativeErrFinestAbsTolerance = floor

		return nil
	})
}

// WithSignificantDigits requires digits significant decimal digits.
func WithSignificantDigits(digits int) Option {
	return options.New(func(h *Hints) error {
		if digits < 0 {
			return fmt.Errorf("%w: significant digits %d is negative", errs.ErrInvalidParameter, digits)
		}
		h.SignificantDigits = digits

		return nil
	})
}

// WithSignificantBits requires bits significant bits.
func WithSignificantBits(bits int) Option {
	return options.New(func(h *Hints) error {
		if bits < 0 || bits > MaxSignificantBits {
			return fmt.Errorf("%w: significant bits %d not in [0,%d]", errs.ErrInvalidParameter, bits, MaxSignificantBits)
		}
		h.SignificantBits = bits

		return nil
	})
}

// WithForceCompressionMethods selects an explicit chain, e.g. "abstol" or "shuffle,zstd".
func WithForceCompressionMethods(spec string) Option {
	return options.NoError(func(h *Hints) {
		h.ForceCompressionMethods = spec
	})
}

// WithSpecialValues sets the values the quantizing stages must preserve verbatim.
func WithSpecialValues(values ...float64) Option {
	return options.NoError(func(h *Hints) {
		h.SpecialValues = slices.Clone(values)
	})
}
