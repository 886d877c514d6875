package pipeline

import (
	"fmt"
	"slices"

	"github.com/arloliu/scil/algo"
	"github.com/arloliu/scil/array"
	"github.com/arloliu/scil/chain"
	"github.com/arloliu/scil/dims"
	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
	"github.com/arloliu/scil/hints"
	"github.com/arloliu/scil/internal/options"
)

// Context binds a datatype and an error budget to the chain that compresses it.
//
// With an override in the hints the chain is resolved when the context is created.
// Otherwise it is searched for on the first compression and cached, so later calls
// reuse it.
//
// A Context is owned by one goroutine at a time. Distinct contexts may be used
// concurrently.
type Context struct {
	datatype format.Datatype
	hints    hints.Hints
	special  []float64
	params   *algo.Params
	chain    *chain.Chain
	cfg      *contextConfig
	closed   bool
}

// NewContext creates a context for arrays of datatype dt under error budget h.
//
// The hints are copied and normalized; the caller may reuse h afterwards.
//
// Returns:
//   - *Context: the new context
//   - error: ErrInvalidParameter for an invalid datatype, hints or option,
//     ErrInvalidChainSpec when the override names an illegal chain
func NewContext(dt format.Datatype, h hints.Hints, opts ...ContextOption) (*Context, error) {
	if !dt.Valid() {
		return nil, fmt.Errorf("%w: unsupported datatype %s", errs.ErrInvalidParameter, dt)
	}

	norm, err := h.Normalize()
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	ctx := &Context{
		datatype: dt,
		hints:    norm,
		special:  slices.Clone(norm.SpecialValues),
		params:   algo.NewParams(),
		cfg:      cfg,
	}

	if norm.HasOverride() {
		c, err := chain.Parse(cfg.registry, dt, norm.ForceCompressionMethods)
		if err != nil {
			return nil, err
		}
		ctx.chain = c
		ctx.logf("scil: %s context uses override chain %s", dt, c)
	}

	return ctx, nil
}

// Datatype returns the datatype the context compresses.
func (c *Context) Datatype() format.Datatype {
	return c.datatype
}

// Hints returns a copy of the normalized error budget.
func (c *Context) Hints() hints.Hints {
	return c.hints.Clone()
}

// SpecialValues returns a copy of the values quantizing stages preserve verbatim.
func (c *Context) SpecialValues() []float64 {
	return slices.Clone(c.special)
}

// Params returns the key/value store the stages record their last plan in.
// It is nil after Close.
func (c *Context) Params() *algo.Params {
	return c.params
}

// Chain returns the resolved chain, or nil while a search-mode context has not
// compressed anything yet.
func (c *Context) Chain() *chain.Chain {
	return c.chain
}

// Registry returns the registry chains are resolved against.
func (c *Context) Registry() *algo.Registry {
	return c.cfg.registry
}

// Resolve returns the chain for in, searching for one when none is cached yet.
//
// Returns ErrContextClosed after Close, ErrInvalidParameter when in does not match
// the context datatype or d, ErrAccuracyUnachievable when no chain meets the hints.
func (c *Context) Resolve(in array.Array, d dims.Dims) (*chain.Chain, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if err := c.checkInput(in, d); err != nil {
		return nil, err
	}

	return c.resolve(in, d)
}

func (c *Context) resolve(in array.Array, d dims.Dims) (*chain.Chain, error) {
	if c.chain != nil {
		return c.chain, nil
	}

	ch, err := c.search(in, d)
	if err != nil {
		return nil, err
	}
	c.chain = ch

	return ch, nil
}

// Close releases the special values and params. Any later use of the context fails
// with ErrContextClosed. Close is idempotent.
func (c *Context) Close() error {
	c.closed = true
	c.special = nil
	c.params = nil
	c.chain = nil

	return nil
}

func (c *Context) checkInput(in array.Array, d dims.Dims) error {
	if !d.Valid() {
		return fmt.Errorf("%w: invalid dims", errs.ErrInvalidParameter)
	}
	if in == nil {
		return fmt.Errorf("%w: nil array", errs.ErrInvalidParameter)
	}
	if in.Datatype() != c.datatype {
		return fmt.Errorf("%w: %s values passed to a %s context", errs.ErrInvalidParameter, in.Datatype(), c.datatype)
	}
	if in.Len() != d.Count() {
		return fmt.Errorf("%w: %d values do not match dims %s", errs.ErrInvalidParameter, in.Len(), d)
	}

	return nil
}

func (c *Context) check() error {
	if c == nil {
		return fmt.Errorf("%w: nil context", errs.ErrInvalidParameter)
	}
	if c.closed {
		return errs.ErrContextClosed
	}

	return nil
}

// env returns the stage environment for the stages before the converter.
func (c *Context) env(d dims.Dims) *algo.Env {
	return &algo.Env{
		Hints:         &c.hints,
		SpecialValues: c.special,
		Params:        c.params,
		Dims:          d,
	}
}

func (c *Context) logf(msg string, args ...any) {
	if c.cfg.logger != nil {
		c.cfg.logger.Printf(msg, args...)
	}
}
