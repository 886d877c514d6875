package algo

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/scil/compress"
	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
)

// maxSizedExpansion bounds the decompressed/compressed ratio for which a byte stage
// trusts its length header enough to preallocate the output.
const maxSizedExpansion = 1 << 12

// ByteStage adapts a general-purpose codec from package compress to the
// byte-compressor role.
//
// The output is uvarint(len(body)) followed by the codec output. The length lets the
// decompressor size its buffer up front and verify the result.
type ByteStage struct {
	name  string
	id    format.AlgorithmID
	codec format.CompressionType
}

var _ ByteCompressor = ByteStage{}

// NewByteStage creates a byte-compressor stage named name with wire id id, backed by
// the built-in codec ct.
func NewByteStage(name string, id format.AlgorithmID, ct format.CompressionType) (ByteStage, error) {
	if _, err := compress.GetCodec(ct); err != nil {
		return ByteStage{}, fmt.Errorf("%w: %v", errs.ErrInvalidParameter, err)
	}

	return newByteStage(name, id, ct), nil
}

func newByteStage(name string, id format.AlgorithmID, ct format.CompressionType) ByteStage {
	return ByteStage{name: name, id: id, codec: ct}
}

func (s ByteStage) Info() Info {
	return Info{Name: s.name, ID: s.id, Role: format.RoleByteCompressor}
}

// CompressionType returns the codec behind the stage.
func (s ByteStage) CompressionType() format.CompressionType {
	return s.codec
}

func (s ByteStage) Compress(_ *Env, data []byte) ([]byte, error) {
	codec, err := compress.GetCodec(s.codec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStageFailure, err)
	}

	out := binary.AppendUvarint(make([]byte, 0, binary.MaxVarintLen64+len(data)/2), uint64(len(data)))
	if len(data) == 0 {
		return out, nil
	}

	packed, err := codec.Compress(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrStageFailure, s.codec, err)
	}

	return append(out, packed...), nil
}

func (s ByteStage) Decompress(_ *Env, data []byte) ([]byte, error) {
	size, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, fmt.Errorf("%w: %s: malformed length header", errs.ErrStageFailure, s.codec)
	}
	payload := data[n:]

	if size == 0 {
		if len(payload) != 0 {
			return nil, fmt.Errorf("%w: %s: payload after empty body", errs.ErrStageFailure, s.codec)
		}

		return []byte{}, nil
	}

	codec, err := compress.GetCodec(s.codec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStageFailure, err)
	}

	var body []byte
	if sized, ok := codec.(compress.SizedDecompressor); ok && size <= uint64(len(payload))*maxSizedExpansion {
		body, err = sized.DecompressSized(payload, int(size)) //nolint:gosec // bounded by the payload size
	} else {
		body, err = codec.Decompress(payload)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrStageFailure, s.codec, err)
	}
	if uint64(len(body)) != size {
		return nil, fmt.Errorf("%w: %s: decompressed %d bytes, header says %d",
			errs.ErrStageFailure, s.codec, len(body), size)
	}

	return body, nil
}
