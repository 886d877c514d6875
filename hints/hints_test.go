package hints

import (
	"math"
	"testing"

	"github.com/arloliu/scil/errs"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsUnconstrained(t *testing.T) {
	require := require.New(t)

	h := Default()
	require.True(math.IsInf(h.AbsoluteTolerance, 1))
	require.True(math.IsInf(h.RelativeTolerancePercent, 1))
	require.Zero(h.SignificantBits)
	require.False(h.IsLossless())
	require.False(h.HasOverride())

	// anything satisfies unconstrained hints
	require.True(h.Satisfies(Hints{AbsoluteTolerance: 1e300, RelativeTolerancePercent: math.Inf(1)}, 52))
}

func TestNewWithOptions(t *testing.T) {
	require := require.New(t)

	h, err := New(
		WithAbsoluteTolerance(0.5),
		WithRelativeTolerancePercent(1),
		WithRelativeErrFinestAbsTolerance(1e-6),
		WithForceCompressionMethods("  abstol "),
		WithSpecialValues(-9999, math.NaN()),
	)
	require.NoError(err)
	require.Equal(0.5, h.AbsoluteTolerance)
	require.Equal(1.0, h.RelativeTolerancePercent)
	require.Equal(1e-6, h.RelativeErrFinestAbsTolerance)
	require.Equal("abstol", h.ForceCompressionMethods)
	require.True(h.HasOverride())
	require.True(h.IsSpecial(-9999))
	require.True(h.IsSpecial(math.NaN()))
	require.False(h.IsSpecial(0))
}

func TestOptionValidation(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"negative abs", WithAbsoluteTolerance(-1)},
		{"nan abs", WithAbsoluteTolerance(math.NaN())},
		{"negative rel", WithRelativeTolerancePercent(-0.1)},
		{"negative floor", WithRelativeErrFinestAbsTolerance(-1)},
		{"negative digits", WithSignificantDigits(-2)},
		{"negative bits", WithSignificantBits(-1)},
		{"too many bits", WithSignificantBits(65)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opt)
			require.ErrorIs(t, err, errs.ErrInvalidParameter)
		})
	}
}

func TestDigitsBitsConversion(t *testing.T) {
	require := require.New(t)

	require.Equal(0, DigitsToBits(0))
	require.Equal(4, DigitsToBits(1))
	require.Equal(10, DigitsToBits(3))
	require.Equal(50, DigitsToBits(15))

	require.Equal(0, BitsToDigits(0))
	require.Equal(0, BitsToDigits(3))
	require.Equal(3, BitsToDigits(10))
	require.Equal(15, BitsToDigits(52))
}

func TestNormalize(t *testing.T) {
	t.Run("digits stricter than bits", func(t *testing.T) {
		h := Default()
		h.SignificantDigits = 3
		h.SignificantBits = 5

		n, err := h.Normalize()
		require.NoError(t, err)
		require.Equal(t, 10, n.SignificantBits)
		require.Equal(t, 3, n.SignificantDigits)
	})

	t.Run("bits stricter than digits", func(t *testing.T) {
		h := Default()
		h.SignificantBits = 20

		n, err := h.Normalize()
		require.NoError(t, err)
		require.Equal(t, 20, n.SignificantBits)
		require.Equal(t, 6, n.SignificantDigits)
	})

	t.Run("special values are copied", func(t *testing.T) {
		h := Default()
		h.SpecialValues = []float64{1, 2}

		n, err := h.Normalize()
		require.NoError(t, err)
		h.SpecialValues[0] = 42
		require.Equal(t, []float64{1, 2}, n.SpecialValues)
	})

	t.Run("invalid", func(t *testing.T) {
		h := Default()
		h.AbsoluteTolerance = -3

		_, err := h.Normalize()
		require.ErrorIs(t, err, errs.ErrInvalidParameter)
	})
}

func TestSatisfies(t *testing.T) {
	req := Default()
	req.AbsoluteTolerance = 1
	req.RelativeTolerancePercent = 5
	req.SignificantBits = 10

	tests := []struct {
		name     string
		observed Hints
		want     bool
	}{
		{"all met", Hints{AbsoluteTolerance: 1, RelativeTolerancePercent: 5, SignificantBits: 9}, true},
		{"abs exceeded", Hints{AbsoluteTolerance: 1.01, RelativeTolerancePercent: 0, SignificantBits: 52}, false},
		{"rel exceeded", Hints{AbsoluteTolerance: 0, RelativeTolerancePercent: 6, SignificantBits: 52}, false},
		{"rel infinite", Hints{AbsoluteTolerance: 0, RelativeTolerancePercent: math.Inf(1), SignificantBits: 52}, false},
		{"bits short", Hints{AbsoluteTolerance: 0, RelativeTolerancePercent: 0, SignificantBits: 8}, false},
		{"nan abs", Hints{AbsoluteTolerance: math.NaN(), SignificantBits: 52}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, req.Satisfies(tt.observed, 52))
		})
	}

	t.Run("bits wider than the datatype need an exact mantissa", func(t *testing.T) {
		wide := Default()
		wide.SignificantBits = 64
		require.True(t, wide.Satisfies(Hints{SignificantBits: 23}, 23))
		require.False(t, wide.Satisfies(Hints{SignificantBits: 22}, 23))
	})
}

func TestLossless(t *testing.T) {
	h := Lossless()
	require.True(t, h.IsLossless())
	require.True(t, h.Satisfies(Hints{SignificantBits: 52}, 52))
	require.False(t, h.Satisfies(Hints{AbsoluteTolerance: 1e-300, SignificantBits: 52}, 52))
}

func TestString(t *testing.T) {
	h := Default()
	h.AbsoluteTolerance = 0.25
	h.ForceCompressionMethods = "1"

	require.Equal(t, `abs=0.25 rel%=+Inf floor=0 bits=0 digits=0 force="1"`, h.String())
}

func TestClone(t *testing.T) {
	h := Default()
	h.SpecialValues = []float64{7}

	c := h.Clone()
	c.SpecialValues[0] = 8
	require.Equal(t, 7.0, h.SpecialValues[0])
}
