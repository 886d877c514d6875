package algo

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
)

func byteStages() []ByteStage {
	var out []ByteStage
	for _, s := range Default().ByRole(format.RoleByteCompressor, format.TypeFloat64) {
		out = append(out, s.(ByteStage))
	}

	return out
}

func TestByteStagesRoundTrip(t *testing.T) {
	bodies := map[string][]byte{
		"empty":    {},
		"tiny":     {0x42},
		"repeated": bytes.Repeat([]byte{1, 2, 3, 4}, 4096),
		"ramp":     ramp(2048).AppendBytes(nil),
		"zeros":    make([]byte, 1<<20),
	}

	for _, s := range byteStages() {
		t.Run(s.Info().Name, func(t *testing.T) {
			for name, body := range bodies {
				t.Run(name, func(t *testing.T) {
					require := require.New(t)

					data, err := s.Compress(nil, body)
					require.NoError(err)

					size, n := binary.Uvarint(data)
					require.Positive(n)
					require.Equal(uint64(len(body)), size)

					got, err := s.Decompress(nil, data)
					require.NoError(err)
					require.Equal(body, got)
				})
			}
		})
	}
}

func TestByteStagesCompress(t *testing.T) {
	body := bytes.Repeat([]byte("scil"), 10000)

	for _, s := range byteStages() {
		data, err := s.Compress(nil, body)
		require.NoError(t, err)
		require.Less(t, len(data), len(body)/4, s.Info().Name)
	}
}

func TestByteStagesCorrupt(t *testing.T) {
	body := bytes.Repeat([]byte{9, 8, 7}, 1000)

	for _, s := range byteStages() {
		t.Run(s.Info().Name, func(t *testing.T) {
			require := require.New(t)

			data, err := s.Compress(nil, body)
			require.NoError(err)

			_, err = s.Decompress(nil, nil)
			require.ErrorIs(err, errs.ErrStageFailure)

			// length header disagrees with the payload
			wrong := binary.AppendUvarint(nil, uint64(len(body)+1))
			_, n := binary.Uvarint(data)
			wrong = append(wrong, data[n:]...)
			_, err = s.Decompress(nil, wrong)
			require.ErrorIs(err, errs.ErrStageFailure)

			_, err = s.Decompress(nil, append(binary.AppendUvarint(nil, 100), 0xde, 0xad, 0xbe, 0xef))
			require.ErrorIs(err, errs.ErrStageFailure)

			_, err = s.Decompress(nil, []byte{0, 1})
			require.ErrorIs(err, errs.ErrStageFailure)
		})
	}
}

func TestByteStageCompressionType(t *testing.T) {
	want := map[string]format.CompressionType{
		"gzip":    format.CompressionGzip,
		"lz4fast": format.CompressionLZ4,
		"zstd":    format.CompressionZstd,
		"s2":      format.CompressionS2,
		"snappy":  format.CompressionSnappy,
	}

	stages := byteStages()
	require.Len(t, stages, len(want))
	for _, s := range stages {
		require.Equal(t, want[s.Info().Name], s.CompressionType())
	}
}
