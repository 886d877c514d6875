package chain

import (
	"fmt"

	"github.com/arloliu/scil/algo"
	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
)

// Builder assembles a Chain one stage at a time.
//
// The first invalid Add is remembered and reported by Build; later calls are
// ignored. A Builder must not be reused after Build.
//
// Example:
//
//	c, err := chain.NewBuilder(format.TypeFloat64).
//	    Add(algo.Shuffle{}).
//	    Add(zstd).
//	    Build()
type Builder struct {
	c      Chain
	last   format.Role
	n      int
	spread string // first precond-first stage that spreads error, if any
	err    error
}

// NewBuilder starts an empty chain for source datatype dt.
func NewBuilder(dt format.Datatype) *Builder {
	b := &Builder{c: Chain{datatype: dt}}
	if !dt.Valid() {
		b.err = fmt.Errorf("%w: unsupported datatype %s", errs.ErrInvalidChainSpec, dt)
	}

	return b
}

// Add appends s to the chain.
func (b *Builder) Add(s algo.Stage) *Builder {
	if b.err != nil {
		return b
	}
	if s == nil {
		b.err = fmt.Errorf("%w: nil stage", errs.ErrInvalidChainSpec)
		return b
	}

	b.err = b.add(s)

	return b
}

func (b *Builder) add(s algo.Stage) error {
	info := s.Info()

	if b.n > 0 && info.Role < b.last {
		return fmt.Errorf("%w: %s %q cannot follow a %s", errs.ErrInvalidChainSpec, info.Role, info.Name, b.last)
	}

	dt := b.c.DataDatatype()
	if !info.Supports(dt) {
		return fmt.Errorf("%w: %s %q does not support %s", errs.ErrInvalidChainSpec, info.Role, info.Name, dt)
	}

	// Stages after a converter work on codes under lossless hints, so only the
	// lossy converter or a lossy data compressor without one can be hurt.
	if info.Lossy && b.spread != "" && b.c.converter == nil {
		return fmt.Errorf("%w: lossy %q cannot follow %q, which would spread its error",
			errs.ErrInvalidChainSpec, info.Name, b.spread)
	}

	switch info.Role {
	case format.RolePrecondFirst:
		st, ok := s.(algo.PrecondFirst)
		if !ok {
			return roleMismatch(info)
		}
		if b.c.nFirst == PreconditionerLimit {
			return fmt.Errorf("%w: more than %d precond-first stages", errs.ErrInvalidChainSpec, PreconditionerLimit)
		}
		b.c.first[b.c.nFirst] = st
		b.c.nFirst++
		if info.SpreadsError && b.spread == "" {
			b.spread = info.Name
		}

	case format.RoleConverter:
		st, ok := s.(algo.Converter)
		if !ok {
			return roleMismatch(info)
		}
		if b.c.converter != nil {
			return fmt.Errorf("%w: second converter %q", errs.ErrInvalidChainSpec, info.Name)
		}
		b.c.converter = st

	case format.RolePrecondSecond:
		st, ok := s.(algo.PrecondSecond)
		if !ok {
			return roleMismatch(info)
		}
		if b.c.converter == nil {
			return fmt.Errorf("%w: precond-second %q without a converter", errs.ErrInvalidChainSpec, info.Name)
		}
		if b.c.nSecond == PreconditionerLimit {
			return fmt.Errorf("%w: more than %d precond-second stages", errs.ErrInvalidChainSpec, PreconditionerLimit)
		}
		b.c.second[b.c.nSecond] = st
		b.c.nSecond++

	case format.RoleDataCompressor:
		st, ok := s.(algo.DataCompressor)
		if !ok {
			return roleMismatch(info)
		}
		if b.c.data != nil {
			return fmt.Errorf("%w: second data compressor %q", errs.ErrInvalidChainSpec, info.Name)
		}
		b.c.data = st

	case format.RoleByteCompressor:
		st, ok := s.(algo.ByteCompressor)
		if !ok {
			return roleMismatch(info)
		}
		if b.c.bytes != nil {
			return fmt.Errorf("%w: second byte compressor %q", errs.ErrInvalidChainSpec, info.Name)
		}
		b.c.bytes = st

	default:
		return fmt.Errorf("%w: stage %q has unknown role %d", errs.ErrInvalidChainSpec, info.Name, info.Role)
	}

	b.last = info.Role
	b.n++

	return nil
}

func roleMismatch(info algo.Info) error {
	return fmt.Errorf("%w: stage %q does not implement the %s interface", errs.ErrInvalidChainSpec, info.Name, info.Role)
}

// Build returns the chain, or the first error recorded by Add.
//
// Returns errs.ErrInvalidChainSpec for an empty chain.
func (b *Builder) Build() (*Chain, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.n == 0 {
		return nil, fmt.Errorf("%w: empty chain", errs.ErrInvalidChainSpec)
	}

	c := b.c

	return &c, nil
}
