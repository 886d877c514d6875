package chain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/scil/algo"
	"github.com/arloliu/scil/errs"
	"github.com/arloliu/scil/format"
)

// Parse builds the chain named by an override string.
//
// Accepted forms:
//   - a registered stage name: "abstol"
//   - a comma-separated list of stage names or decimal ids: "shuffle,zstd", "13,8"
//   - a bare string of single-character ids (0-9, a-z): "1", "d8"
//
// Stages must appear in chain order. Returns errs.ErrInvalidChainSpec when the string
// is empty, names an unknown stage, or describes an illegal chain.
func Parse(reg *algo.Registry, dt format.Datatype, spec string) (*Chain, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("%w: empty override", errs.ErrInvalidChainSpec)
	}

	stages, err := resolve(reg, spec)
	if err != nil {
		return nil, err
	}

	b := NewBuilder(dt)
	for _, s := range stages {
		b.Add(s)
	}

	c, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("override %q: %w", spec, err)
	}

	return c, nil
}

func resolve(reg *algo.Registry, spec string) ([]algo.Stage, error) {
	if strings.Contains(spec, ",") {
		tokens := strings.Split(spec, ",")
		stages := make([]algo.Stage, 0, len(tokens))
		for _, tok := range tokens {
			s, err := lookupToken(reg, strings.TrimSpace(tok))
			if err != nil {
				return nil, err
			}
			stages = append(stages, s)
		}

		return stages, nil
	}

	if s, ok := reg.ByName(spec); ok {
		return []algo.Stage{s}, nil
	}

	if len(spec) > MaxStages {
		return nil, fmt.Errorf("%w: override %q names more than %d stages", errs.ErrInvalidChainSpec, spec, MaxStages)
	}

	stages := make([]algo.Stage, 0, len(spec))
	for i := range len(spec) {
		id, ok := format.ParseAlgorithmChar(spec[i])
		if !ok {
			return nil, fmt.Errorf("%w: unknown stage %q", errs.ErrInvalidChainSpec, spec)
		}
		s, ok := reg.ByID(id)
		if !ok {
			return nil, fmt.Errorf("%w: no stage with id %q in override %q", errs.ErrInvalidChainSpec, spec[i], spec)
		}
		stages = append(stages, s)
	}

	return stages, nil
}

func lookupToken(reg *algo.Registry, tok string) (algo.Stage, error) {
	if tok == "" {
		return nil, fmt.Errorf("%w: empty stage name", errs.ErrInvalidChainSpec)
	}
	if s, ok := reg.ByName(tok); ok {
		return s, nil
	}

	id, err := strconv.ParseUint(tok, 10, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown stage %q", errs.ErrInvalidChainSpec, tok)
	}
	s, ok := reg.ByID(format.AlgorithmID(id))
	if !ok {
		return nil, fmt.Errorf("%w: no stage with id %d", errs.ErrInvalidChainSpec, id)
	}

	return s, nil
}

// FromIDs rebuilds a chain from the stage ids of a wire preamble.
func FromIDs(reg *algo.Registry, dt format.Datatype, ids []format.AlgorithmID) (*Chain, error) {
	if len(ids) > MaxStages {
		return nil, fmt.Errorf("%w: %d stages exceed the limit of %d", errs.ErrInvalidChainSpec, len(ids), MaxStages)
	}

	b := NewBuilder(dt)
	for _, id := range ids {
		s, ok := reg.ByID(id)
		if !ok {
			return nil, fmt.Errorf("%w: no stage with id %d", errs.ErrInvalidChainSpec, id)
		}
		b.Add(s)
	}

	return b.Build()
}
