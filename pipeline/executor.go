package pipeline

import (
	"fmt"
	"slices"

	"github.com/arloliu/scil/algo"
	"github.com/arloliu/scil/array"
	"github.com/arloliu/scil/chain"
	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
	"github.com/arloliu/scil/hints"
	"github.com/arloliu/scil/internal/hash"
	"github.com/arloliu/scil/internal/pool"
	"github.com/arloliu/scil/section"
)

// lossless is the error budget of every stage after the converter, which has
// already spent the caller's budget.
var lossless = hints.Lossless()

// codeEnv derives the environment of the stages that work on converter codes.
func codeEnv(env *algo.Env) *algo.Env {
	out := *env
	out.Hints = &lossless
	out.SpecialValues = nil

	return &out
}

func stageError(s algo.Stage, err error) error {
	return fmt.Errorf("%s: %w", s.Info().Name, err)
}

// encode runs c over in and appends the complete stream, preamble first, to dst.
func encode(dst []byte, c *chain.Chain, env *algo.Env, in array.Array, checksum bool) ([]byte, error) {
	bb := pool.GetStreamBuffer()
	defer pool.PutStreamBuffer(bb)

	if err := encodeBody(bb, c, env, in); err != nil {
		return dst, err
	}

	body := bb.Bytes()
	if bc := c.ByteCompressor(); bc != nil {
		out, err := bc.Compress(env, body)
		if err != nil {
			return dst, stageError(bc, err)
		}
		body = out
	}

	p := section.Preamble{Datatype: c.Datatype(), IDs: c.IDs()}
	if checksum {
		p.Flag.WithChecksum()
		p.Checksum = hash.Checksum(body)
	}

	dst = slices.Grow(dst, p.Size()+len(body))
	dst, err := p.AppendTo(dst)
	if err != nil {
		return dst, err
	}

	return append(dst, body...), nil
}

// encodeBody writes the stage headers in chain order followed by the data block.
func encodeBody(bb *pool.ByteBuffer, c *chain.Chain, env *algo.Env, in array.Array) error {
	cur := in
	for _, s := range c.PrecondFirst() {
		hdr, out, err := s.Precondition(env, cur)
		if err != nil {
			return stageError(s, err)
		}
		bb.MustWrite(hdr)
		cur = out
	}

	if conv := c.Converter(); conv != nil {
		hdr, codes, err := conv.Convert(env, cur)
		if err != nil {
			return stageError(conv, err)
		}
		bb.MustWrite(hdr)

		env = codeEnv(env)
		for _, s := range c.PrecondSecond() {
			hdr, out, err := s.Precondition(env, codes)
			if err != nil {
				return stageError(s, err)
			}
			bb.MustWrite(hdr)
			codes = out
		}
		cur = codes
	}

	dc := c.DataCompressor()
	if dc == nil {
		bb.B = cur.AppendBytes(bb.B)
		return nil
	}

	block, err := dc.Compress(env, cur)
	if err != nil {
		return stageError(dc, err)
	}
	bb.MustWrite(block)

	return nil
}

// decode parses the stream in data and restores count values of datatype dt.
func decode(reg *algo.Registry, env *algo.Env, data []byte, dt format.Datatype, count int) (array.Array, error) {
	p, n, err := section.ParsePreamble(data)
	if err != nil {
		return nil, err
	}
	if p.Datatype != dt {
		return nil, fmt.Errorf("%w: stream holds %s values, %s requested", errs.ErrInvalidParameter, p.Datatype, dt)
	}

	body := data[n:]
	if p.Flag.HasChecksum() {
		if sum := hash.Checksum(body); sum != p.Checksum {
			return nil, fmt.Errorf("%w: body hash %016x, preamble records %016x", errs.ErrChecksumMismatch, sum, p.Checksum)
		}
	}

	c, err := chain.FromIDs(reg, dt, p.IDs)
	if err != nil {
		// a stream naming an unknown or illegal chain is corrupt
		return nil, fmt.Errorf("%w: stream chain: %v", errs.ErrStageFailure, err)
	}

	if bc := c.ByteCompressor(); bc != nil {
		body, err = bc.Decompress(env, body)
		if err != nil {
			return nil, stageError(bc, err)
		}
	}

	return decodeBody(c, env, body, count)
}

// headerReader hands out the stage headers at the front of a body.
type headerReader struct {
	body []byte
	off  int
}

func (r *headerReader) next(s algo.Stage, size func([]byte) (int, error)) ([]byte, error) {
	rest := r.body[r.off:]
	n, err := size(rest)
	if err != nil {
		return nil, stageError(s, err)
	}
	if n < 0 || n > len(rest) {
		return nil, stageError(s, fmt.Errorf("%w: header of %d bytes exceeds the %d bytes left", errs.ErrStageFailure, n, len(rest)))
	}
	r.off += n

	return rest[:n:n], nil
}

func decodeBody(c *chain.Chain, env *algo.Env, body []byte, count int) (array.Array, error) {
	r := headerReader{body: body}

	first := c.PrecondFirst()
	firstHdrs := make([][]byte, len(first))
	for i, s := range first {
		hdr, err := r.next(s, s.HeaderSize)
		if err != nil {
			return nil, err
		}
		firstHdrs[i] = hdr
	}

	conv := c.Converter()
	second := c.PrecondSecond()
	var convHdr []byte
	secondHdrs := make([][]byte, len(second))
	if conv != nil {
		hdr, err := r.next(conv, conv.HeaderSize)
		if err != nil {
			return nil, err
		}
		convHdr = hdr

		for i, s := range second {
			hdr, err := r.next(s, s.HeaderSize)
			if err != nil {
				return nil, err
			}
			secondHdrs[i] = hdr
		}
	}

	dataEnv := env
	if conv != nil {
		dataEnv = codeEnv(env)
	}

	cur, err := decodeData(c, dataEnv, body[r.off:], count)
	if err != nil {
		return nil, err
	}

	if conv != nil {
		codes, ok := array.As[int64](cur)
		if !ok {
			return nil, fmt.Errorf("%w: data block decoded to %s, want int64 codes", errs.ErrStageFailure, cur.Datatype())
		}
		for i := len(second) - 1; i >= 0; i-- {
			codes, err = second[i].Restore(dataEnv, secondHdrs[i], codes)
			if err != nil {
				return nil, stageError(second[i], err)
			}
		}

		cur, err = conv.Revert(env, convHdr, codes, c.Datatype())
		if err != nil {
			return nil, stageError(conv, err)
		}
	}

	for i := len(first) - 1; i >= 0; i-- {
		cur, err = first[i].Restore(env, firstHdrs[i], cur)
		if err != nil {
			return nil, stageError(first[i], err)
		}
	}

	if cur.Datatype() != c.Datatype() || cur.Len() != count {
		return nil, fmt.Errorf("%w: restored %d %s values, want %d %s",
			errs.ErrStageFailure, cur.Len(), cur.Datatype(), count, c.Datatype())
	}

	return cur, nil
}

func decodeData(c *chain.Chain, env *algo.Env, block []byte, count int) (array.Array, error) {
	dt := c.DataDatatype()

	dc := c.DataCompressor()
	if dc == nil {
		if want := count * dt.Width(); len(block) != want {
			return nil, fmt.Errorf("%w: raw data block of %d bytes, want %d", errs.ErrStageFailure, len(block), want)
		}

		return array.FromBytes(dt, block, count)
	}

	out, err := dc.Decompress(env, block, dt, count)
	if err != nil {
		return nil, stageError(dc, err)
	}
	if out.Datatype() != dt || out.Len() != count {
		return nil, stageError(dc, fmt.Errorf("%w: decoded %d %s values, want %d %s",
			errs.ErrStageFailure, out.Len(), out.Datatype(), count, dt))
	}

	return out, nil
}
