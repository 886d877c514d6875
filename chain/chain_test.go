package chain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/scil/algo"
	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
)

func stage(t *testing.T, name string) algo.Stage {
	t.Helper()

	s, ok := algo.Default().ByName(name)
	require.True(t, ok, "stage %q", name)

	return s
}

func TestBuilder(t *testing.T) {
	require := require.New(t)

	c, err := NewBuilder(format.TypeFloat64).
		Add(stage(t, "shuffle")).
		Add(stage(t, "bitcast")).
		Add(stage(t, "intdelta")).
		Add(stage(t, "varint")).
		Add(stage(t, "zstd")).
		Build()
	require.NoError(err)

	require.Equal(format.TypeFloat64, c.Datatype())
	require.Equal(format.TypeInt64, c.DataDatatype())
	require.Equal(5, c.Size())
	require.Len(c.PrecondFirst(), 1)
	require.NotNil(c.Converter())
	require.Len(c.PrecondSecond(), 1)
	require.NotNil(c.DataCompressor())
	require.NotNil(c.ByteCompressor())
	require.False(c.IsLossy())
	require.Equal("shuffle,bitcast,intdelta,varint,zstd", c.String())
	require.Equal([]format.AlgorithmID{algo.IDShuffle, algo.IDBitcast, algo.IDIntDelta, algo.IDVarint, algo.IDZstd}, c.IDs())

	c, err = NewBuilder(format.TypeFloat32).
		Add(stage(t, "quantize")).
		Add(stage(t, "intdelta")).
		Add(stage(t, "allquant")).
		Build()
	require.NoError(err)
	require.True(c.IsLossy())
}

func TestBuilderLossyAfterSpreadingPrecond(t *testing.T) {
	tests := []struct {
		name   string
		dt     format.Datatype
		stages []string
		ok     bool
	}{
		{"delta then allquant", format.TypeInt8, []string{"delta", "allquant"}, false},
		{"shuffle then allquant", format.TypeInt16, []string{"shuffle", "allquant"}, false},
		{"delta then quantize", format.TypeInt64, []string{"delta", "quantize", "intdelta", "varint"}, false},
		{"shuffle then abstol", format.TypeFloat64, []string{"shuffle", "abstol"}, false},
		{"shuffle then sigbits", format.TypeFloat32, []string{"shuffle", "sigbits", "zstd"}, false},
		{"shuffle then gorilla", format.TypeFloat64, []string{"shuffle", "gorilla"}, true},
		{"delta then varint", format.TypeInt32, []string{"delta", "varint"}, true},
		{"delta then bitcast then allquant", format.TypeInt32, []string{"delta", "bitcast", "allquant"}, true},
		{"allquant alone", format.TypeInt16, []string{"allquant"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(tt.dt)
			for _, name := range tt.stages {
				b.Add(stage(t, name))
			}

			_, err := b.Build()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, errs.ErrInvalidChainSpec)
		})
	}
}

func TestBuilderOptionalSlots(t *testing.T) {
	require := require.New(t)

	c, err := NewBuilder(format.TypeInt32).Add(stage(t, "delta")).Add(stage(t, "gzip")).Build()
	require.NoError(err)
	require.Nil(c.Converter())
	require.Nil(c.DataCompressor())
	require.Equal(format.TypeInt32, c.DataDatatype())
	require.False(c.IsLossy())

	c, err = NewBuilder(format.TypeFloat32).Add(stage(t, "lz4fast")).Build()
	require.NoError(err)
	require.Equal(1, c.Size())
}

func TestBuilderErrors(t *testing.T) {
	tests := []struct {
		name   string
		dt     format.Datatype
		stages []string
	}{
		{"empty", format.TypeFloat64, nil},
		{"wrong order", format.TypeFloat64, []string{"zstd", "abstol"}},
		{"precond after converter", format.TypeFloat64, []string{"bitcast", "shuffle"}},
		{"precond-second without converter", format.TypeInt64, []string{"intdelta", "varint"}},
		{"two data compressors", format.TypeFloat64, []string{"abstol", "gorilla"}},
		{"two converters", format.TypeFloat64, []string{"quantize", "bitcast"}},
		{"two byte compressors", format.TypeFloat64, []string{"zstd", "s2"}},
		{"unsupported datatype", format.TypeInt16, []string{"abstol"}},
		{"float stage after converter", format.TypeFloat64, []string{"bitcast", "gorilla"}},
		{"integer precond on floats", format.TypeFloat32, []string{"delta"}},
		{"unknown datatype", format.TypeUnknown, []string{"memcpy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(tt.dt)
			for _, name := range tt.stages {
				b.Add(stage(t, name))
			}

			_, err := b.Build()
			require.ErrorIs(t, err, errs.ErrInvalidChainSpec)
		})
	}

	_, err := NewBuilder(format.TypeFloat64).Add(nil).Build()
	require.ErrorIs(t, err, errs.ErrInvalidChainSpec)
}

func TestBuilderPreconditionerLimit(t *testing.T) {
	b := NewBuilder(format.TypeInt32)
	for range PreconditionerLimit {
		b.Add(stage(t, "delta"))
	}
	c, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, PreconditionerLimit, c.Size())

	b = NewBuilder(format.TypeInt32)
	for range PreconditionerLimit + 1 {
		b.Add(stage(t, "delta"))
	}
	_, err = b.Build()
	require.ErrorIs(t, err, errs.ErrInvalidChainSpec)
}

func TestParseAliases(t *testing.T) {
	reg := algo.Default()

	a, err := Parse(reg, format.TypeFloat64, "shuffle,zstd")
	require.NoError(t, err)
	b, err := Parse(reg, format.TypeFloat64, "d8")
	require.NoError(t, err)
	c, err := Parse(reg, format.TypeFloat32, "d8")
	require.NoError(t, err)

	require.Equal(t, a.IDs(), b.IDs())
	require.Equal(t, a.String(), b.String())
	require.Equal(t, a.IDs(), c.IDs())
	require.NotEqual(t, a.Datatype(), c.Datatype())
}
