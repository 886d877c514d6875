package scil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
	"github.com/arloliu/scil/hints"
	"github.com/arloliu/scil/pipeline"
)

func TestCompressDecompress(t *testing.T) {
	require := require.New(t)

	values := make([]float32, 512)
	for i := range values {
		values[i] = float32(math.Sin(float64(i) / 20))
	}

	h, err := hints.New(hints.WithAbsoluteTolerance(1e-3))
	require.NoError(err)

	data, err := Compress(values, h)
	require.NoError(err)
	require.Less(len(data), len(values)*4)

	restored, err := Decompress[float32](data, len(values))
	require.NoError(err)
	for i := range values {
		require.InDelta(values[i], restored[i], 1e-3)
	}
}

func TestCompressEmpty(t *testing.T) {
	_, err := Compress([]float64{}, hints.Default())
	require.ErrorIs(t, err, errs.ErrInvalidParameter)

	_, err = Decompress[float64]([]byte{0x5C}, 0)
	require.ErrorIs(t, err, errs.ErrInvalidParameter)
}

func TestContexts(t *testing.T) {
	require := require.New(t)

	lossless, err := NewLosslessContext(format.TypeInt64, pipeline.WithChecksum(true))
	require.NoError(err)
	defer lossless.Close()
	require.True(lossless.Hints().IsLossless())

	tolerant, err := NewToleranceContext(format.TypeFloat64, 0.25)
	require.NoError(err)
	defer tolerant.Close()
	require.Equal(0.25, tolerant.Hints().AbsoluteTolerance)

	_, err = NewToleranceContext(format.TypeFloat64, -1)
	require.ErrorIs(err, errs.ErrInvalidParameter)

	h, err := ParseHints([]byte("significant_digits: 3\nforce_compression_methods: sigbits,zstd\n"))
	require.NoError(err)
	ctx, err := NewContext(format.TypeFloat64, h)
	require.NoError(err)
	defer ctx.Close()
	require.Equal("sigbits,zstd", ctx.Chain().String())
}
