package algo

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
)

func stageIDs(stages []Stage) []format.AlgorithmID {
	ids := make([]format.AlgorithmID, len(stages))
	for i, s := range stages {
		ids[i] = s.Info().ID
	}

	return ids
}

func TestDefaultRegistry(t *testing.T) {
	require := require.New(t)

	reg := Default()
	require.Same(reg, Default())
	require.Equal(16, reg.Len())

	s, ok := reg.ByID(IDAbstol)
	require.True(ok)
	require.Equal("abstol", s.Info().Name)
	require.True(s.Info().Lossy)

	s, ok = reg.ByName(" ZSTD ")
	require.True(ok)
	require.Equal(IDZstd, s.Info().ID)

	_, ok = reg.ByID(5)
	require.False(ok, "id 5 is reserved")
	_, ok = reg.ByName("zfp")
	require.False(ok)

	all := reg.All()
	require.Len(all, 16)
	for i := 1; i < len(all); i++ {
		require.Less(all[i-1].Info().ID, all[i].Info().ID)
	}
}

func TestRegistryByRole(t *testing.T) {
	reg := Default()

	tests := []struct {
		name string
		role format.Role
		dt   format.Datatype
		want []format.AlgorithmID
	}{
		{"float data compressors", format.RoleDataCompressor, format.TypeFloat64,
			[]format.AlgorithmID{IDMemcpy, IDAbstol, IDSigbits, IDGorilla, IDAllquant}},
		{"integer data compressors", format.RoleDataCompressor, format.TypeInt32,
			[]format.AlgorithmID{IDMemcpy, IDVarint, IDAllquant}},
		{"byte compressors", format.RoleByteCompressor, format.TypeInt8,
			[]format.AlgorithmID{IDGzip, IDLZ4Fast, IDZstd, IDS2, IDSnappy}},
		{"float preconditioners", format.RolePrecondFirst, format.TypeFloat32,
			[]format.AlgorithmID{IDShuffle}},
		{"integer preconditioners", format.RolePrecondFirst, format.TypeInt16,
			[]format.AlgorithmID{IDShuffle, IDDelta}},
		{"converters", format.RoleConverter, format.TypeFloat32,
			[]format.AlgorithmID{IDQuantize, IDBitcast}},
		{"code preconditioners", format.RolePrecondSecond, format.TypeInt64,
			[]format.AlgorithmID{IDIntDelta}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, stageIDs(reg.ByRole(tt.role, tt.dt)))
		})
	}
}

func TestRegistryRoleInterfaces(t *testing.T) {
	for _, s := range Default().All() {
		info := s.Info()
		t.Run(info.Name, func(t *testing.T) {
			var ok bool
			switch info.Role {
			case format.RolePrecondFirst:
				_, ok = s.(PrecondFirst)
			case format.RoleConverter:
				_, ok = s.(Converter)
			case format.RolePrecondSecond:
				_, ok = s.(PrecondSecond)
			case format.RoleDataCompressor:
				_, ok = s.(DataCompressor)
			case format.RoleByteCompressor:
				_, ok = s.(ByteCompressor)
			}
			require.True(t, ok, "%s does not implement its %s interface", info.Name, info.Role)
		})
	}
}

func TestNewRegistryErrors(t *testing.T) {
	tests := []struct {
		name   string
		stages []Stage
	}{
		{"duplicate id", []Stage{Memcpy{}, Memcpy{}}},
		{"duplicate name", []Stage{Memcpy{}, newByteStage("MEMCPY", 30, format.CompressionZstd)}},
		{"empty name", []Stage{newByteStage("", 30, format.CompressionZstd)}},
		{"comma in name", []Stage{newByteStage("a,b", 30, format.CompressionZstd)}},
		{"id without character", []Stage{newByteStage("wide", 40, format.CompressionZstd)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.stages...)
			require.ErrorIs(t, err, errs.ErrInvalidParameter)
		})
	}
}

func TestCustomRegistry(t *testing.T) {
	require := require.New(t)

	extra, err := NewByteStage("zstd2", 30, format.CompressionZstd)
	require.NoError(err)

	reg, err := NewRegistry(append(Builtins(), extra)...)
	require.NoError(err)
	require.Equal(17, reg.Len())

	s, ok := reg.ByID(30)
	require.True(ok)
	require.Equal("zstd2", s.Info().Name)

	_, err = NewByteStage("bogus", 31, format.CompressionType(0x7F))
	require.ErrorIs(err, errs.ErrInvalidParameter)
}
