package section

import (
	"fmt"

	"github.com/arloliu/scil/endian"
	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
)

// Preamble is the self-describing prefix of a compressed stream.
//
// It names the source datatype and the stage ids of the chain in chain order, so a
// stream can be decompressed without the context that produced it.
type Preamble struct {
	// Flag holds the preamble options.
	Flag Flag
	// Datatype is the datatype of the source array.
	Datatype format.Datatype
	// IDs are the stage ids in chain order.
	IDs []format.AlgorithmID
	// Checksum is the xxHash64 of the body. Only meaningful when Flag.HasChecksum().
	Checksum uint64
}

// Size returns the encoded size of p in bytes.
func (p *Preamble) Size() int {
	n := FixedSize + len(p.IDs)
	if p.Flag.HasChecksum() {
		n += ChecksumSize
	}

	return n
}

// AppendTo appends the encoded preamble to dst.
//
// Returns:
//   - []byte: dst with the preamble appended
//   - error: ErrInvalidParameter when the datatype is invalid or the stage count is not in [1,255]
func (p *Preamble) AppendTo(dst []byte) ([]byte, error) {
	if !p.Datatype.Valid() {
		return dst, fmt.Errorf("%w: preamble datatype %s", errs.ErrInvalidParameter, p.Datatype)
	}
	if len(p.IDs) == 0 || len(p.IDs) > MaxStageCount {
		return dst, fmt.Errorf("%w: preamble stage count %d not in [1,%d]", errs.ErrInvalidParameter, len(p.IDs), MaxStageCount)
	}

	dst = append(dst, Magic, byte(p.Flag), byte(p.Datatype), byte(len(p.IDs)))
	for _, id := range p.IDs {
		dst = append(dst, byte(id))
	}
	if p.Flag.HasChecksum() {
		dst = endian.WireEngine().AppendUint64(dst, p.Checksum)
	}

	return dst, nil
}

// Parse decodes the preamble at the start of data.
//
// Parameters:
//   - data: the compressed stream
//
// Returns:
//   - int: the number of preamble bytes consumed
//   - error: ErrStageFailure when the preamble is truncated or malformed
func (p *Preamble) Parse(data []byte) (int, error) {
	if len(data) < FixedSize {
		return 0, fmt.Errorf("%w: stream of %d bytes is shorter than the preamble", errs.ErrStageFailure, len(data))
	}
	if data[0] != Magic {
		return 0, fmt.Errorf("%w: bad magic 0x%02x", errs.ErrStageFailure, data[0])
	}

	flag := Flag(data[1])
	if err := flag.Validate(); err != nil {
		return 0, err
	}

	dt := format.Datatype(data[2])
	if !dt.Valid() {
		return 0, fmt.Errorf("%w: unknown datatype 0x%02x in preamble", errs.ErrStageFailure, data[2])
	}

	count := int(data[3])
	if count == 0 {
		return 0, fmt.Errorf("%w: preamble names no stages", errs.ErrStageFailure)
	}

	size := FixedSize + count
	if flag.HasChecksum() {
		size += ChecksumSize
	}
	if len(data) < size {
		return 0, fmt.Errorf("%w: preamble needs %d bytes, have %d", errs.ErrStageFailure, size, len(data))
	}

	ids := make([]format.AlgorithmID, count)
	for i := range ids {
		ids[i] = format.AlgorithmID(data[FixedSize+i])
	}

	p.Flag = flag
	p.Datatype = dt
	p.IDs = ids
	p.Checksum = 0
	if flag.HasChecksum() {
		p.Checksum = endian.WireEngine().Uint64(data[FixedSize+count:])
	}

	return size, nil
}

// ParsePreamble decodes the preamble at the start of data.
//
// Returns the preamble and the offset of the body.
func ParsePreamble(data []byte) (Preamble, int, error) {
	var p Preamble
	n, err := p.Parse(data)
	if err != nil {
		return Preamble{}, 0, err
	}

	return p, n, nil
}
