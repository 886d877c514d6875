package algo

import (
	"fmt"

	"github.com/arloliu/scil/array"
	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
)

// Memcpy stores the array as raw little-endian values.
type Memcpy struct{}

var _ DataCompressor = Memcpy{}

func (Memcpy) Info() Info {
	return Info{
		Name:      "memcpy",
		ID:        IDMemcpy,
		Role:      format.RoleDataCompressor,
		Datatypes: format.Datatypes,
	}
}

func (Memcpy) Compress(_ *Env, in array.Array) ([]byte, error) {
	return in.AppendBytes(make([]byte, 0, in.Len()*in.Datatype().Width())), nil
}

func (Memcpy) Decompress(_ *Env, data []byte, dt format.Datatype, count int) (array.Array, error) {
	return decodeRaw(data, dt, count)
}

// decodeRaw decodes a data block holding exactly count raw values.
func decodeRaw(data []byte, dt format.Datatype, count int) (array.Array, error) {
	if len(data) != count*dt.Width() {
		return nil, fmt.Errorf("%w: raw block of %d bytes for %d %s values",
			errs.ErrStageFailure, len(data), count, dt)
	}

	return array.FromBytes(dt, data, count)
}
