package algo

import (
	"maps"
	"slices"
)

// Params is a small key/value store owned by a pipeline context.
//
// Stages record the parameters of their last plan here (for example the code width
// chosen by a quantizer) so callers can inspect them after a compression. Nothing
// needed for decompression is kept in Params; the wire headers are self-contained.
//
// Params is not safe for concurrent use, matching the context that owns it.
type Params struct {
	values map[string]any
}

// NewParams returns an empty store.
func NewParams() *Params {
	return &Params{values: make(map[string]any)}
}

// Set stores value under key.
func (p *Params) Set(key string, value any) {
	if p.values == nil {
		p.values = make(map[string]any)
	}
	p.values[key] = value
}

// Get returns the value stored under key.
func (p *Params) Get(key string) (any, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Int returns the value stored under key if it is an int.
func (p *Params) Int(key string) (int, bool) {
	v, ok := p.values[key].(int)
	return v, ok
}

// Float returns the value stored under key if it is a float64.
func (p *Params) Float(key string) (float64, bool) {
	v, ok := p.values[key].(float64)
	return v, ok
}

// Keys returns the stored keys in sorted order.
func (p *Params) Keys() []string {
	return slices.Sorted(maps.Keys(p.values))
}

// Len returns the number of stored keys.
func (p *Params) Len() int {
	return len(p.values)
}

// Reset removes every key.
func (p *Params) Reset() {
	clear(p.values)
}
