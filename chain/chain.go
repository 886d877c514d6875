// Package chain composes registered stages into an ordered compression chain.
//
// A chain holds, in order:
//
//	precond-first*  converter?  precond-second*  data-compressor?  byte-compressor?
//
// with at most PreconditionerLimit stages in each preconditioner slot and
// precond-second stages only after a converter. Stages after the converter work on
// int64 codes and must support TypeInt64. A lossy converter or data compressor may
// not follow a preconditioner whose inverse would spread its error, such as delta.
//
// Chains are immutable once built. Use Builder to assemble one stage by stage, Parse
// to read an override string, or FromIDs to rebuild the chain named by a wire
// preamble.
package chain

import (
	"strings"

	"github.com/arloliu/scil/algo"
	"github.com/arloliu/scil/format"
)

const (
	// PreconditionerLimit bounds each of the two preconditioner slots.
	PreconditionerLimit = 10
	// MaxStages is the largest number of stages a chain can hold.
	MaxStages = 2*PreconditionerLimit + 3
)

// Chain is an immutable, validated sequence of stages for one source datatype.
type Chain struct {
	datatype format.Datatype

	first  [PreconditionerLimit]algo.PrecondFirst
	nFirst int

	converter algo.Converter

	second  [PreconditionerLimit]algo.PrecondSecond
	nSecond int

	data  algo.DataCompressor
	bytes algo.ByteCompressor
}

// Datatype returns the source datatype the chain was built for.
func (c *Chain) Datatype() format.Datatype {
	return c.datatype
}

// DataDatatype returns the datatype reaching the data compressor: TypeInt64 after a
// converter, the source datatype otherwise.
func (c *Chain) DataDatatype() format.Datatype {
	if c.converter != nil {
		return format.TypeInt64
	}

	return c.datatype
}

// PrecondFirst returns the precond-first stages in chain order.
func (c *Chain) PrecondFirst() []algo.PrecondFirst {
	return append([]algo.PrecondFirst(nil), c.first[:c.nFirst]...)
}

// Converter returns the converter, or nil.
func (c *Chain) Converter() algo.Converter {
	return c.converter
}

// PrecondSecond returns the precond-second stages in chain order.
func (c *Chain) PrecondSecond() []algo.PrecondSecond {
	return append([]algo.PrecondSecond(nil), c.second[:c.nSecond]...)
}

// DataCompressor returns the data compressor, or nil.
func (c *Chain) DataCompressor() algo.DataCompressor {
	return c.data
}

// ByteCompressor returns the byte compressor, or nil.
func (c *Chain) ByteCompressor() algo.ByteCompressor {
	return c.bytes
}

// Stages returns every stage in chain order.
func (c *Chain) Stages() []algo.Stage {
	out := make([]algo.Stage, 0, c.Size())
	for _, s := range c.first[:c.nFirst] {
		out = append(out, s)
	}
	if c.converter != nil {
		out = append(out, c.converter)
	}
	for _, s := range c.second[:c.nSecond] {
		out = append(out, s)
	}
	if c.data != nil {
		out = append(out, c.data)
	}
	if c.bytes != nil {
		out = append(out, c.bytes)
	}

	return out
}

// Size returns the number of stages.
func (c *Chain) Size() int {
	n := c.nFirst + c.nSecond
	if c.converter != nil {
		n++
	}
	if c.data != nil {
		n++
	}
	if c.bytes != nil {
		n++
	}

	return n
}

// IDs returns the stage ids in chain order, as written to the wire preamble.
func (c *Chain) IDs() []format.AlgorithmID {
	stages := c.Stages()
	ids := make([]format.AlgorithmID, len(stages))
	for i, s := range stages {
		ids[i] = s.Info().ID
	}

	return ids
}

// IsLossy reports whether any stage may alter values.
func (c *Chain) IsLossy() bool {
	for _, s := range c.Stages() {
		if s.Info().Lossy {
			return true
		}
	}

	return false
}

// String renders the chain as a comma-separated list of stage names, a form Parse
// accepts.
func (c *Chain) String() string {
	stages := c.Stages()
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Info().Name
	}

	return strings.Join(names, ",")
}
