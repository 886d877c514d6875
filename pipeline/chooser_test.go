package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/scil/algo"
	"github.com/arloliu/scil/array"
	"github.com/arloliu/scil/chain"
	"github.com/arloliu/scil/dims"
	"github.com/arloliu/scil/format"
)

func TestCandidates(t *testing.T) {
	tests := []struct {
		dt       format.Datatype
		contains []string
		excludes []string
	}{
		{
			dt:       format.TypeFloat64,
			contains: []string{"memcpy", "gorilla,zstd", "shuffle,zstd", "quantize,intdelta,varint,zstd", "bitcast,varint"},
			excludes: []string{"varint", "delta,varint", "shuffle,abstol", "shuffle,quantize,varint", "shuffle,sigbits"},
		},
		{
			dt:       format.TypeInt16,
			contains: []string{"varint", "delta,varint,gzip", "allquant,s2", "quantize,intdelta,varint"},
			excludes: []string{"gorilla", "abstol", "sigbits", "delta,allquant", "shuffle,allquant", "delta,quantize,varint"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.dt.String(), func(t *testing.T) {
			chains := Candidates(algo.Default(), tt.dt)
			require.NotEmpty(t, chains)

			seen := make(map[string]bool, len(chains))
			for _, c := range chains {
				name := c.String()
				require.NotEmpty(t, name)
				require.False(t, seen[name], "duplicate candidate %s", name)
				seen[name] = true
				require.Equal(t, tt.dt, c.Datatype())
			}

			for _, name := range tt.contains {
				require.True(t, seen[name], "missing candidate %s", name)
			}
			for _, name := range tt.excludes {
				require.False(t, seen[name], "unexpected candidate %s", name)
			}
		})
	}
}

func TestTakeSample(t *testing.T) {
	require := require.New(t)

	values := make(array.Slice[int32], 10000)
	for i := range values {
		values[i] = int32(i)
	}
	d := dims.Must(100, 100)

	sample, sd, err := takeSample(values, d, 1600)
	require.NoError(err)
	require.Equal(1600, sample.Len())
	require.Equal(1600, sd.Count())

	got, ok := array.As[int32](sample)
	require.True(ok)
	require.Equal(values[:100], got[:100])
	require.Equal(values[9900:], got[1500:])

	// blocks are contiguous and in order
	for b := range sampleBlocks {
		block := got[b*100 : (b+1)*100]
		for i := 1; i < len(block); i++ {
			require.Equal(block[i-1]+1, block[i])
		}
		if b > 0 {
			require.Greater(block[0], got[b*100-1])
		}
	}

	whole, wd, err := takeSample(values, d, 10000)
	require.NoError(err)
	require.Equal(values, whole)
	require.Equal(d, wd)
}

func TestCompareCandidates(t *testing.T) {
	build := func(spec string) candidate {
		c, err := chain.Parse(algo.Default(), format.TypeFloat64, spec)
		require.NoError(t, err)

		return candidate{chain: c}
	}

	small, large := build("gorilla"), build("gorilla,zstd")
	small.size, large.size = 100, 90
	require.Positive(t, compareCandidates(small, large), "smaller stream wins")

	large.size = 100
	require.Negative(t, compareCandidates(small, large), "fewer stages win a tie")

	a, b := build("gorilla,s2"), build("gorilla,zstd")
	a.size, b.size = 100, 100
	require.Negative(t, compareCandidates(a, b), "canonical string breaks the last tie")
}
