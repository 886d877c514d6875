package pipeline

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/arloliu/scil/accuracy"
	"github.com/arloliu/scil/algo"
	"github.com/arloliu/scil/array"
	"github.com/arloliu/scil/chain"
	"github.com/arloliu/scil/dims"
	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
)

// candidate is a chain that round-tripped the sample within the hints.
type candidate struct {
	chain *chain.Chain
	size  int
}

func compareCandidates(a, b candidate) int {
	return cmp.Or(
		cmp.Compare(a.size, b.size),
		cmp.Compare(a.chain.Size(), b.chain.Size()),
		strings.Compare(a.chain.String(), b.chain.String()),
	)
}

// search picks the smallest chain whose round trip of a sample of in satisfies the
// context hints.
func (c *Context) search(in array.Array, d dims.Dims) (*chain.Chain, error) {
	sample, sd, err := takeSample(in, d, c.cfg.sampleSize)
	if err != nil {
		return nil, err
	}

	chains := Candidates(c.cfg.registry, c.datatype)
	c.logf("scil: searching %d chains for %s %s on %d of %d values (%s)",
		len(chains), c.datatype, d, sample.Len(), in.Len(), c.hints)

	accepted := make([]candidate, 0, len(chains))
	for _, ch := range chains {
		size, err := c.trial(ch, sample, sd)
		if err != nil {
			if rejected(err) {
				continue
			}

			return nil, fmt.Errorf("chain %s: %w", ch, err)
		}
		accepted = append(accepted, candidate{chain: ch, size: size})
	}

	if len(accepted) == 0 {
		return nil, fmt.Errorf("%w: none of %d chains meets %s", errs.ErrAccuracyUnachievable, len(chains), c.hints)
	}

	slices.SortFunc(accepted, compareCandidates)
	c.logf("scil: %d of %d chains accepted, best %s at %d bytes", len(accepted), len(chains), accepted[0].chain, accepted[0].size)

	if !c.cfg.fullValidation || sample.Len() == in.Len() {
		return accepted[0].chain, nil
	}

	for _, cand := range accepted {
		size, err := c.trial(cand.chain, in, d)
		if err != nil {
			if !rejected(err) {
				return nil, fmt.Errorf("chain %s: %w", cand.chain, err)
			}
			c.logf("scil: chain %s rejected on the full array: %v", cand.chain, err)
			continue
		}
		c.logf("scil: chain %s validated on the full array at %d bytes", cand.chain, size)

		return cand.chain, nil
	}

	return nil, fmt.Errorf("%w: no sampled chain meets %s on the full array", errs.ErrAccuracyUnachievable, c.hints)
}

// rejected reports whether a trial error only rules the chain out. Any other error is
// a real failure and ends the search.
func rejected(err error) bool {
	return errors.Is(err, errs.ErrPrecisionUnachievable) || errors.Is(err, errs.ErrAccuracyUnachievable)
}

// trial round-trips in through ch and returns the stream size, or the reason ch
// was rejected.
func (c *Context) trial(ch *chain.Chain, in array.Array, d dims.Dims) (int, error) {
	env := &algo.Env{
		Hints:         &c.hints,
		SpecialValues: c.special,
		Params:        algo.NewParams(),
		Dims:          d,
	}

	stream, err := encode(nil, ch, env, in, false)
	if err != nil {
		return 0, err
	}

	out, err := decode(c.cfg.registry, env, stream, c.datatype, in.Len())
	if err != nil {
		return 0, err
	}

	observed, err := accuracy.Compare(in, out, c.hints.RelativeErrFinestAbsTolerance)
	if err != nil {
		return 0, err
	}
	if !c.hints.Satisfies(observed, accuracy.MantissaBits(c.datatype)) {
		return 0, fmt.Errorf("%w: observed %s", errs.ErrAccuracyUnachievable, observed)
	}

	return len(stream), nil
}

// Candidates returns every legal chain for datatype dt that uses at most one stage
// per slot of the registry, in enumeration order.
func Candidates(reg *algo.Registry, dt format.Datatype) []*chain.Chain {
	firsts := withNone(reg.ByRole(format.RolePrecondFirst, dt))
	converters := withNone(reg.ByRole(format.RoleConverter, dt))
	seconds := withNone(reg.ByRole(format.RolePrecondSecond, format.TypeInt64))
	byteStages := withNone(reg.ByRole(format.RoleByteCompressor, dt))

	var out []*chain.Chain
	for _, pf := range firsts {
		for _, conv := range converters {
			dataDT, ps := dt, []algo.Stage{nil}
			if conv != nil {
				dataDT, ps = format.TypeInt64, seconds
			}
			datas := withNone(reg.ByRole(format.RoleDataCompressor, dataDT))

			for _, second := range ps {
				for _, dc := range datas {
					for _, bc := range byteStages {
						b := chain.NewBuilder(dt)
						for _, s := range []algo.Stage{pf, conv, second, dc, bc} {
							if s != nil {
								b.Add(s)
							}
						}
						if ch, err := b.Build(); err == nil {
							out = append(out, ch)
						}
					}
				}
			}
		}
	}

	return out
}

func withNone(stages []algo.Stage) []algo.Stage {
	return append([]algo.Stage{nil}, stages...)
}

// takeSample returns in when it holds at most size values, otherwise sampleBlocks
// evenly spaced contiguous blocks of in.
func takeSample(in array.Array, d dims.Dims, size int) (array.Array, dims.Dims, error) {
	n := in.Len()
	if n <= size {
		return in, d, nil
	}

	blockLen := size / sampleBlocks
	starts := make([]int, sampleBlocks)
	for i := range starts {
		starts[i] = i * (n - blockLen) / (sampleBlocks - 1)
	}

	var sample array.Array
	switch v := in.(type) {
	case array.Slice[float32]:
		sample = gather(v, starts, blockLen)
	case array.Slice[float64]:
		sample = gather(v, starts, blockLen)
	case array.Slice[int8]:
		sample = gather(v, starts, blockLen)
	case array.Slice[int16]:
		sample = gather(v, starts, blockLen)
	case array.Slice[int32]:
		sample = gather(v, starts, blockLen)
	case array.Slice[int64]:
		sample = gather(v, starts, blockLen)
	default:
		return nil, dims.Dims{}, fmt.Errorf("%w: unsupported datatype %s", errs.ErrInvalidParameter, in.Datatype())
	}

	sd, err := dims.New(sample.Len())
	if err != nil {
		return nil, dims.Dims{}, err
	}

	return sample, sd, nil
}

func gather[T array.Number](values array.Slice[T], starts []int, blockLen int) array.Slice[T] {
	out := make(array.Slice[T], 0, len(starts)*blockLen)
	for _, s := range starts {
		out = append(out, values[s:s+blockLen]...)
	}

	return out
}
