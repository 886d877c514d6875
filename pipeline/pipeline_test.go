package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/scil/algo"
	"github.com/arloliu/scil/array"
	"github.com/arloliu/scil/dims"
	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
	"github.com/arloliu/scil/hints"
	"github.com/arloliu/scil/quantize"
	"github.com/arloliu/scil/section"
)

func newContext(t *testing.T, dt format.Datatype, opts []hints.Option, ctxOpts ...ContextOption) *Context {
	t.Helper()

	h, err := hints.New(opts...)
	require.NoError(t, err)

	ctx, err := NewContext(dt, h, ctxOpts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctx.Close() })

	return ctx
}

func randomWalk(n int, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	out := make([]float64, n)
	v := 100.0
	for i := range out {
		v += rng.NormFloat64()
		out[i] = v
	}

	return out
}

func TestQuantizedRamp(t *testing.T) {
	require := require.New(t)

	ctx := newContext(t, format.TypeFloat64, []hints.Option{
		hints.WithAbsoluteTolerance(1),
		hints.WithForceCompressionMethods("abstol"),
	})

	values := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	d := dims.Must(len(values))

	stream, err := Compress(ctx, values, d)
	require.NoError(err)
	// preamble, quantizer header, 10 codes of 3 bits
	require.Len(stream, section.FixedSize+1+quantize.HeaderSize+4)

	bits, ok := ctx.Params().Int("abstol.bits")
	require.True(ok)
	require.Equal(3, bits)

	restored, err := Decompress[float64](ctx, stream, d)
	require.NoError(err)
	require.Len(restored, len(values))
	for i := range values {
		require.LessOrEqual(math.Abs(values[i]-restored[i]), 1.0, "index %d", i)
	}

	observed, err := Validate(ctx, values, d, stream)
	require.NoError(err)
	require.LessOrEqual(observed.AbsoluteTolerance, 1.0)
	require.True(ctx.Hints().Satisfies(observed, 52))
}

func TestConstantArray(t *testing.T) {
	for _, tol := range []float64{0, 0.5, 10} {
		ctx := newContext(t, format.TypeFloat64, []hints.Option{
			hints.WithAbsoluteTolerance(tol),
			hints.WithForceCompressionMethods("abstol"),
		})

		values := make([]float64, 100)
		for i := range values {
			values[i] = 7.25
		}
		d := dims.Must(10, 10)

		stream, err := Compress(ctx, values, d)
		require.NoError(t, err)
		require.Len(t, stream, section.FixedSize+1+quantize.HeaderSize, "header only")

		restored, err := Decompress[float64](nil, stream, d)
		require.NoError(t, err)
		require.Equal(t, values, restored)
	}
}

func TestPrecisionUnachievable(t *testing.T) {
	values := randomWalk(256, 1)
	d := dims.Must(len(values))

	for _, override := range []string{"3", "sigbits", "abstol"} {
		t.Run(override, func(t *testing.T) {
			ctx := newContext(t, format.TypeFloat64, []hints.Option{
				hints.WithSignificantBits(64),
				hints.WithForceCompressionMethods(override),
			})

			_, err := Compress(ctx, values, d)
			require.ErrorIs(t, err, errs.ErrPrecisionUnachievable)
			require.Equal(t, errs.KindPrecisionUnachievable, errs.KindOf(err))
		})
	}
}

func TestStageErrorNamesStage(t *testing.T) {
	ctx := newContext(t, format.TypeFloat64, []hints.Option{
		hints.WithSignificantBits(64),
		hints.WithForceCompressionMethods("sigbits,gzip"),
	})

	_, err := Compress(ctx, randomWalk(16, 2), dims.Must(16))
	require.ErrorIs(t, err, errs.ErrPrecisionUnachievable)
	require.ErrorContains(t, err, "sigbits")
}

func TestSigbitsRejectsSubnormals(t *testing.T) {
	ctx := newContext(t, format.TypeFloat64, []hints.Option{
		hints.WithRelativeTolerancePercent(1),
		hints.WithForceCompressionMethods("sigbits"),
	})

	values := []float64{1.234567e-310, 3.3e-312, 1, 2.5}
	_, err := Compress(ctx, values, dims.Must(len(values)))
	require.ErrorIs(t, err, errs.ErrPrecisionUnachievable)
	require.ErrorContains(t, err, "sigbits")
}

func TestOverrideDeterminism(t *testing.T) {
	overrides := []string{
		"abstol",
		"shuffle,zstd",
		"quantize,intdelta,varint,zstd",
		"d4a",
		"gorilla,lz4fast",
		"bitcast,intdelta,varint,s2",
		"sigbits,gzip",
	}
	values := randomWalk(2000, 3)
	d := dims.Must(len(values))

	for _, override := range overrides {
		t.Run(override, func(t *testing.T) {
			ctx := newContext(t, format.TypeFloat64, []hints.Option{
				hints.WithAbsoluteTolerance(0.05),
				hints.WithSignificantBits(12),
				hints.WithForceCompressionMethods(override),
			})

			first, err := Compress(ctx, values, d)
			require.NoError(t, err)
			second, err := Compress(ctx, values, d)
			require.NoError(t, err)
			require.Equal(t, first, second)

			restored, err := Decompress[float64](nil, first, d)
			require.NoError(t, err)

			if !ctx.Chain().IsLossy() {
				require.Equal(t, values, restored)
				return
			}

			observed, err := Validate(ctx, values, d, first)
			require.NoError(t, err)
			if override == "sigbits,gzip" {
				require.GreaterOrEqual(t, observed.SignificantBits, 11)
			} else {
				require.LessOrEqual(t, observed.AbsoluteTolerance, 0.05)
			}
		})
	}
}

func randomInts(dt format.Datatype, n int, seed uint64) array.Array {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	wide := make([]int64, n)
	for i := range wide {
		wide[i] = rng.Int64N(201) - 100
	}

	switch dt {
	case format.TypeInt8:
		return narrowTo[int8](wide)
	case format.TypeInt16:
		return narrowTo[int16](wide)
	case format.TypeInt32:
		return narrowTo[int32](wide)
	default:
		return array.Slice[int64](wide)
	}
}

func narrowTo[T array.Integer](wide []int64) array.Slice[T] {
	out := make(array.Slice[T], len(wide))
	for i, v := range wide {
		out[i] = T(v)
	}

	return out
}

func TestEveryCandidateHonoursTolerance(t *testing.T) {
	const tol = 2.5

	for _, dt := range []format.Datatype{format.TypeInt8, format.TypeInt16, format.TypeInt32, format.TypeInt64} {
		in := randomInts(dt, 777, uint64(dt))
		d := dims.Must(in.Len())
		want := array.Float64s(in)

		for _, c := range Candidates(algo.Default(), dt) {
			t.Run(dt.String()+"/"+c.String(), func(t *testing.T) {
				ctx := newContext(t, dt, []hints.Option{
					hints.WithAbsoluteTolerance(tol),
					hints.WithForceCompressionMethods(c.String()),
				})

				stream, err := CompressArray(ctx, in, d)
				if errors.Is(err, errs.ErrPrecisionUnachievable) {
					return
				}
				require.NoError(t, err)

				out, err := DecompressArray(nil, dt, stream, d)
				require.NoError(t, err)

				got := array.Float64s(out)
				for i := range want {
					require.LessOrEqual(t, math.Abs(got[i]-want[i]), tol, "index %d", i)
				}
			})
		}
	}
}

func TestLossyOverrideAfterDeltaRejected(t *testing.T) {
	for _, override := range []string{"delta,allquant", "shuffle,allquant,zstd", "delta,quantize,intdelta,varint"} {
		t.Run(override, func(t *testing.T) {
			h, err := hints.New(
				hints.WithAbsoluteTolerance(2.5),
				hints.WithForceCompressionMethods(override),
			)
			require.NoError(t, err)

			_, err = NewContext(format.TypeInt16, h)
			require.ErrorIs(t, err, errs.ErrInvalidChainSpec)
		})
	}
}

func TestIntegerDatatypes(t *testing.T) {
	require := require.New(t)

	t.Run("int16 delta varint gzip", func(t *testing.T) {
		ctx := newContext(t, format.TypeInt16, []hints.Option{
			hints.WithForceCompressionMethods("delta,varint,gzip"),
		})

		values := make([]int16, 1000)
		for i := range values {
			values[i] = int16(i%300 - 150)
		}
		d := dims.Must(len(values))

		stream, err := Compress(ctx, values, d)
		require.NoError(err)
		require.Less(len(stream), len(values)*2)

		restored, err := Decompress[int16](nil, stream, d)
		require.NoError(err)
		require.Equal(values, restored)
	})

	t.Run("int32 allquant", func(t *testing.T) {
		ctx := newContext(t, format.TypeInt32, []hints.Option{
			hints.WithAbsoluteTolerance(2),
			hints.WithForceCompressionMethods("allquant"),
		})

		values := []int32{-1000, -10, 0, 7, 900, 1000, math.MaxInt16}
		d := dims.Must(len(values))

		stream, err := Compress(ctx, values, d)
		require.NoError(err)

		restored, err := Decompress[int32](ctx, stream, d)
		require.NoError(err)
		for i := range values {
			require.LessOrEqual(math.Abs(float64(values[i]-restored[i])), 2.0)
		}
	})

	t.Run("int64 memcpy", func(t *testing.T) {
		ctx := newContext(t, format.TypeInt64, []hints.Option{
			hints.WithForceCompressionMethods("0"),
		})

		values := []int64{math.MinInt64, -1, 0, 1, math.MaxInt64}
		d := dims.Must(len(values))

		stream, err := Compress(ctx, values, d)
		require.NoError(err)
		require.Len(stream, section.FixedSize+1+len(values)*8)

		restored, err := Decompress[int64](nil, stream, d)
		require.NoError(err)
		require.Equal(values, restored)
	})
}

func TestSpecialValues(t *testing.T) {
	require := require.New(t)

	ctx := newContext(t, format.TypeFloat64, []hints.Option{
		hints.WithAbsoluteTolerance(0.5),
		hints.WithSpecialValues(-9999),
		hints.WithForceCompressionMethods("quantize,varint"),
	})

	values := []float64{1.1, 2.2, -9999, 3.3, -9999, 4.4}
	d := dims.Must(len(values))

	stream, err := Compress(ctx, values, d)
	require.NoError(err)

	restored, err := Decompress[float64](nil, stream, d)
	require.NoError(err)
	for i, v := range values {
		if v == -9999 {
			require.Equal(v, restored[i])
			continue
		}
		require.LessOrEqual(math.Abs(v-restored[i]), 0.5)
	}
	require.Equal([]float64{-9999}, ctx.SpecialValues())
}

// failingStage is a data compressor whose codec always breaks.
type failingStage struct{}

func (failingStage) Info() algo.Info {
	return algo.Info{
		Name:      "failing",
		ID:        30,
		Role:      format.RoleDataCompressor,
		Datatypes: []format.Datatype{format.TypeFloat64},
	}
}

func (failingStage) Compress(*algo.Env, array.Array) ([]byte, error) {
	return nil, fmt.Errorf("%w: codec state corrupted", errs.ErrStageFailure)
}

func (failingStage) Decompress(*algo.Env, []byte, format.Datatype, int) (array.Array, error) {
	return nil, fmt.Errorf("%w: codec state corrupted", errs.ErrStageFailure)
}

func TestSearch(t *testing.T) {
	t.Run("lossless", func(t *testing.T) {
		require := require.New(t)

		h := hints.Lossless()
		ctx, err := NewContext(format.TypeFloat64, h)
		require.NoError(err)
		defer ctx.Close()
		require.Nil(ctx.Chain())

		values := randomWalk(1000, 4)
		d := dims.Must(len(values))

		stream, err := Compress(ctx, values, d)
		require.NoError(err)
		require.NotNil(ctx.Chain())
		require.False(ctx.Chain().IsLossy())
		require.Less(len(stream), len(values)*8)

		restored, err := Decompress[float64](ctx, stream, d)
		require.NoError(err)
		require.Equal(values, restored)
	})

	t.Run("absolute tolerance with full validation", func(t *testing.T) {
		require := require.New(t)

		var logbuf bytes.Buffer
		ctx := newContext(t, format.TypeFloat64,
			[]hints.Option{hints.WithAbsoluteTolerance(0.01)},
			WithSampleSize(512),
			WithFullValidation(true),
			WithLogger(log.New(&logbuf, "", 0)),
		)

		values := randomWalk(5000, 5)
		d := dims.Must(len(values))

		stream, err := Compress(ctx, values, d)
		require.NoError(err)
		require.Less(len(stream), len(values)*8/2)
		require.Contains(logbuf.String(), "searching")

		observed, err := Validate(ctx, values, d, stream)
		require.NoError(err)
		require.LessOrEqual(observed.AbsoluteTolerance, 0.01)
	})

	t.Run("chain is cached", func(t *testing.T) {
		require := require.New(t)

		ctx := newContext(t, format.TypeInt32, []hints.Option{hints.WithAbsoluteTolerance(0)})

		values := make([]int32, 300)
		for i := range values {
			values[i] = int32(i * 3)
		}
		d := dims.Must(len(values))

		_, err := Compress(ctx, values, d)
		require.NoError(err)
		resolved := ctx.Chain()
		require.NotNil(resolved)

		_, err = Compress(ctx, values[:100], dims.Must(100))
		require.NoError(err)
		require.Same(resolved, ctx.Chain())
	})

	t.Run("resolve without compressing", func(t *testing.T) {
		ctx := newContext(t, format.TypeFloat32, nil)

		values := []float32{1, 2, 3, 4}
		c, err := ctx.Resolve(array.Slice[float32](values), dims.Must(4))
		require.NoError(t, err)
		require.Same(t, c, ctx.Chain())
	})

	t.Run("accuracy unachievable", func(t *testing.T) {
		reg, err := algo.NewRegistry(algo.Sigbits{})
		require.NoError(t, err)

		ctx := newContext(t, format.TypeFloat64, nil, WithRegistry(reg))

		_, err = Compress(ctx, randomWalk(64, 6), dims.Must(64))
		require.ErrorIs(t, err, errs.ErrAccuracyUnachievable)
		require.Nil(t, ctx.Chain())
	})

	t.Run("stage failure ends the search", func(t *testing.T) {
		reg, err := algo.NewRegistry(algo.Memcpy{}, failingStage{})
		require.NoError(t, err)

		ctx := newContext(t, format.TypeFloat64, nil, WithRegistry(reg))

		_, err = Compress(ctx, randomWalk(64, 7), dims.Must(64))
		require.ErrorIs(t, err, errs.ErrStageFailure)
		require.NotErrorIs(t, err, errs.ErrAccuracyUnachievable)
		require.ErrorContains(t, err, "failing")
		require.Nil(t, ctx.Chain())
	})

	t.Run("too many special values ends the search", func(t *testing.T) {
		special := make([]float64, quantize.MaxSpecialValues+1)
		values := make([]float64, len(special)+10)
		for i := range special {
			special[i] = float64(-1000 - i)
			values[i] = special[i]
		}
		for i := len(special); i < len(values); i++ {
			values[i] = float64(i)
		}

		reg, err := algo.NewRegistry(algo.Abstol{})
		require.NoError(t, err)

		ctx := newContext(t, format.TypeFloat64,
			[]hints.Option{hints.WithAbsoluteTolerance(0.5), hints.WithSpecialValues(special...)},
			WithRegistry(reg),
		)

		_, err = Compress(ctx, values, dims.Must(len(values)))
		require.ErrorIs(t, err, errs.ErrInvalidParameter)
	})
}

func TestCompressTo(t *testing.T) {
	require := require.New(t)

	ctx := newContext(t, format.TypeFloat32, []hints.Option{
		hints.WithForceCompressionMethods("shuffle,zstd"),
	})

	values := make([]float32, 256)
	for i := range values {
		values[i] = float32(i) / 8
	}
	d := dims.Must(len(values))

	dst := make([]byte, CompressedSizeLimit(d, format.TypeFloat32))
	n, err := CompressTo(ctx, dst, values, d)
	require.NoError(err)
	require.Positive(n)

	stream, err := Compress(ctx, values, d)
	require.NoError(err)
	require.Equal(stream, dst[:n])

	_, err = CompressTo(ctx, make([]byte, n-1), values, d)
	require.ErrorIs(err, errs.ErrBufferTooSmall)
	require.Equal(errs.KindBufferTooSmall, errs.KindOf(err))

	_, err = CompressTo(ctx, nil, values, d)
	require.ErrorIs(err, errs.ErrBufferTooSmall)

	out := make([]float32, len(values))
	require.NoError(DecompressInto(ctx, out, dst[:n], d))
	require.Equal(values, out)

	require.ErrorIs(DecompressInto(ctx, out[:10], dst[:n], d), errs.ErrInvalidParameter)
}

func TestChecksum(t *testing.T) {
	require := require.New(t)

	ctx := newContext(t, format.TypeFloat64, []hints.Option{
		hints.WithForceCompressionMethods("gorilla"),
	}, WithChecksum(true))

	values := randomWalk(100, 7)
	d := dims.Must(len(values))

	stream, err := Compress(ctx, values, d)
	require.NoError(err)

	restored, err := Decompress[float64](nil, stream, d)
	require.NoError(err)
	require.Equal(values, restored)

	corrupt := bytes.Clone(stream)
	corrupt[len(corrupt)-1] ^= 0x01
	_, err = Decompress[float64](nil, corrupt, d)
	require.ErrorIs(err, errs.ErrChecksumMismatch)
	require.Equal(errs.KindStageFailure, errs.KindOf(err))
}

func TestCorruptStreams(t *testing.T) {
	ctx := newContext(t, format.TypeFloat64, []hints.Option{
		hints.WithAbsoluteTolerance(0.1),
		hints.WithForceCompressionMethods("abstol,zstd"),
	})

	values := randomWalk(500, 8)
	d := dims.Must(len(values))

	stream, err := Compress(ctx, values, d)
	require.NoError(t, err)

	badMagic := bytes.Clone(stream)
	badMagic[0] = 0x00

	unknownStage := bytes.Clone(stream)
	unknownStage[section.FixedSize] = 6

	illegalChain := bytes.Clone(stream)
	illegalChain[section.FixedSize], illegalChain[section.FixedSize+1] = illegalChain[section.FixedSize+1], illegalChain[section.FixedSize]

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", badMagic},
		{"unknown stage", unknownStage},
		{"illegal chain", illegalChain},
		{"truncated", stream[:len(stream)-3]},
		{"preamble only", stream[:section.FixedSize+2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decompress[float64](nil, tt.data, d)
			require.ErrorIs(t, err, errs.ErrStageFailure)
		})
	}
}

func TestInvalidParameters(t *testing.T) {
	ctx := newContext(t, format.TypeFloat64, []hints.Option{
		hints.WithForceCompressionMethods("gorilla"),
	})

	values := []float64{1, 2, 3, 4}
	d := dims.Must(4)

	stream, err := Compress(ctx, values, d)
	require.NoError(t, err)

	t.Run("length mismatch", func(t *testing.T) {
		_, err := Compress(ctx, values[:3], d)
		require.ErrorIs(t, err, errs.ErrInvalidParameter)
	})

	t.Run("datatype mismatch", func(t *testing.T) {
		_, err := Compress(ctx, []float32{1, 2, 3, 4}, d)
		require.ErrorIs(t, err, errs.ErrInvalidParameter)

		_, err = Decompress[float32](nil, stream, d)
		require.ErrorIs(t, err, errs.ErrInvalidParameter)

		_, err = Decompress[float32](ctx, stream, d)
		require.ErrorIs(t, err, errs.ErrInvalidParameter)
	})

	t.Run("wrong dims on decompress", func(t *testing.T) {
		raw := newContext(t, format.TypeFloat64, []hints.Option{hints.WithForceCompressionMethods("memcpy")})
		rawStream, err := Compress(raw, values, d)
		require.NoError(t, err)

		_, err = Decompress[float64](nil, rawStream, dims.Must(5))
		require.ErrorIs(t, err, errs.ErrStageFailure)

		_, err = Decompress[float64](nil, stream, dims.Dims{})
		require.ErrorIs(t, err, errs.ErrInvalidParameter)
	})

	t.Run("invalid context", func(t *testing.T) {
		_, err := NewContext(format.TypeUnknown, hints.Default())
		require.ErrorIs(t, err, errs.ErrInvalidParameter)

		_, err = NewContext(format.TypeFloat64, hints.Hints{AbsoluteTolerance: -1})
		require.ErrorIs(t, err, errs.ErrInvalidParameter)

		_, err = NewContext(format.TypeFloat64, hints.Default(), WithSampleSize(0))
		require.ErrorIs(t, err, errs.ErrInvalidParameter)

		_, err = NewContext(format.TypeFloat64, hints.Default(), WithRegistry(nil))
		require.ErrorIs(t, err, errs.ErrInvalidParameter)
	})

	t.Run("invalid override", func(t *testing.T) {
		for _, override := range []string{"zstd,gorilla", "varint", "q", "shuffle,,zstd"} {
			h, err := hints.New(hints.WithForceCompressionMethods(override))
			require.NoError(t, err)

			_, err = NewContext(format.TypeFloat64, h)
			require.ErrorIs(t, err, errs.ErrInvalidChainSpec, override)
		}
	})
}

func TestContextClose(t *testing.T) {
	require := require.New(t)

	h, err := hints.New(hints.WithForceCompressionMethods("gorilla"), hints.WithSpecialValues(1))
	require.NoError(err)
	ctx, err := NewContext(format.TypeFloat64, h)
	require.NoError(err)

	values := []float64{1, 2}
	d := dims.Must(2)
	stream, err := Compress(ctx, values, d)
	require.NoError(err)

	require.NoError(ctx.Close())
	require.NoError(ctx.Close())
	require.Nil(ctx.Params())
	require.Empty(ctx.SpecialValues())

	_, err = Compress(ctx, values, d)
	require.ErrorIs(err, errs.ErrContextClosed)
	require.Equal(errs.KindInvalidParameter, errs.KindOf(err))

	_, err = Decompress[float64](ctx, stream, d)
	require.ErrorIs(err, errs.ErrContextClosed)

	// the stream does not need the context
	restored, err := Decompress[float64](nil, stream, d)
	require.NoError(err)
	require.Equal(values, restored)
}

func TestContextCopiesHints(t *testing.T) {
	require := require.New(t)

	h, err := hints.New(hints.WithSignificantDigits(3), hints.WithSpecialValues(-1))
	require.NoError(err)

	ctx, err := NewContext(format.TypeFloat32, h)
	require.NoError(err)
	defer ctx.Close()

	h.SpecialValues[0] = 42
	require.Equal([]float64{-1}, ctx.SpecialValues())
	require.Equal(hints.DigitsToBits(3), ctx.Hints().SignificantBits)
	require.Equal(format.TypeFloat32, ctx.Datatype())
	require.Same(algo.Default(), ctx.Registry())
}

func TestCompressedSizeLimit(t *testing.T) {
	d := dims.Must(3, 4)
	require.Equal(t, 2*12*8+HeaderSlack, CompressedSizeLimit(d, format.TypeFloat64))
	require.Equal(t, 2*12*8+HeaderSlack, CompressedSizeLimit(d, format.TypeInt8))
}
