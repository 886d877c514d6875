package algo

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
)

// Built-in stage identifiers. Ids 5 and 6 are reserved.
const (
	IDMemcpy   format.AlgorithmID = 0
	IDAbstol   format.AlgorithmID = 1
	IDGzip     format.AlgorithmID = 2
	IDSigbits  format.AlgorithmID = 3
	IDGorilla  format.AlgorithmID = 4
	IDLZ4Fast  format.AlgorithmID = 7
	IDZstd     format.AlgorithmID = 8
	IDS2       format.AlgorithmID = 9
	IDSnappy   format.AlgorithmID = 10
	IDVarint   format.AlgorithmID = 11
	IDAllquant format.AlgorithmID = 12
	IDShuffle  format.AlgorithmID = 13
	IDDelta    format.AlgorithmID = 14
	IDQuantize format.AlgorithmID = 15
	IDBitcast  format.AlgorithmID = 16
	IDIntDelta format.AlgorithmID = 17
)

// Registry is an immutable table of stages indexed by id and name.
//
// A Registry is safe for concurrent use.
type Registry struct {
	byID   map[format.AlgorithmID]Stage
	byName map[string]Stage
	all    []Stage
}

// NewRegistry builds a registry from stages.
//
// Returns errs.ErrInvalidParameter when two stages share an id or a name, a name is
// empty or contains a comma, or an id has no override character.
func NewRegistry(stages ...Stage) (*Registry, error) {
	r := &Registry{
		byID:   make(map[format.AlgorithmID]Stage, len(stages)),
		byName: make(map[string]Stage, len(stages)),
		all:    make([]Stage, 0, len(stages)),
	}

	for _, s := range stages {
		info := s.Info()
		name := strings.ToLower(info.Name)

		if name == "" || strings.ContainsAny(name, ", ") {
			return nil, fmt.Errorf("%w: invalid stage name %q", errs.ErrInvalidParameter, info.Name)
		}
		if info.ID.Char() == 0 {
			return nil, fmt.Errorf("%w: stage %q has id %d without an override character",
				errs.ErrInvalidParameter, info.Name, info.ID)
		}
		if prev, ok := r.byID[info.ID]; ok {
			return nil, fmt.Errorf("%w: stages %q and %q share id %d",
				errs.ErrInvalidParameter, prev.Info().Name, info.Name, info.ID)
		}
		if _, ok := r.byName[name]; ok {
			return nil, fmt.Errorf("%w: duplicate stage name %q", errs.ErrInvalidParameter, info.Name)
		}

		r.byID[info.ID] = s
		r.byName[name] = s
		r.all = append(r.all, s)
	}

	slices.SortFunc(r.all, func(a, b Stage) int {
		return cmp.Compare(a.Info().ID, b.Info().ID)
	})

	return r, nil
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r, err := NewRegistry(Builtins()...)
	if err != nil {
		panic(fmt.Sprintf("algo: built-in registry: %v", err))
	}

	return r
})

// Default returns the process-wide registry of built-in stages.
func Default() *Registry {
	return defaultRegistry()
}

// Builtins returns a fresh list of the built-in stages, for building custom
// registries that extend the default one.
func Builtins() []Stage {
	return []Stage{
		Memcpy{},
		Abstol{},
		newByteStage("gzip", IDGzip, format.CompressionGzip),
		Sigbits{},
		Gorilla{},
		newByteStage("lz4fast", IDLZ4Fast, format.CompressionLZ4),
		newByteStage("zstd", IDZstd, format.CompressionZstd),
		newByteStage("s2", IDS2, format.CompressionS2),
		newByteStage("snappy", IDSnappy, format.CompressionSnappy),
		Varint{},
		Allquant{},
		Shuffle{},
		Delta{},
		Quantize{},
		Bitcast{},
		IntDelta{},
	}
}

// ByID returns the stage registered under id.
func (r *Registry) ByID(id format.AlgorithmID) (Stage, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// ByName returns the stage registered under name. Names are case-insensitive.
func (r *Registry) ByName(name string) (Stage, bool) {
	s, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// ByRole returns the stages of role that accept datatype dt, in id order.
func (r *Registry) ByRole(role format.Role, dt format.Datatype) []Stage {
	var out []Stage
	for _, s := range r.all {
		info := s.Info()
		if info.Role == role && info.Supports(dt) {
			out = append(out, s)
		}
	}

	return out
}

// All returns every registered stage in id order.
func (r *Registry) All() []Stage {
	return slices.Clone(r.all)
}

// Len returns the number of registered stages.
func (r *Registry) Len() int {
	return len(r.all)
}
