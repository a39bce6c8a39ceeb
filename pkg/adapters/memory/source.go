package memory

import (
	"fmt"
	"sort"

	"github.com/colloquyhq/colloquy/pkg/domain"
)

// Source implements ports.FlowSource over an in-memory map of compiled
// flows. Definitions are treated as immutable once registered.
type Source struct {
	flows map[string]*domain.Flow
}

// NewSource creates a Source from compiled flow definitions.
func NewSource(flows ...*domain.Flow) (*Source, error) {
	byName := make(map[string]*domain.Flow, len(flows))
	for _, f := range flows {
		if f.Name == "" {
			return nil, fmt.Errorf("flow missing name")
		}
		if _, exists := byName[f.Name]; exists {
			return nil, fmt.Errorf("duplicate flow %q", f.Name)
		}
		byName[f.Name] = f
	}
	return &Source{flows: byName}, nil
}

// Flow returns the definition for a flow name.
func (s *Source) Flow(name string) (*domain.Flow, error) {
	f, ok := s.flows[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, domain.ErrFlowNotFound)
	}
	return f, nil
}

// Flows lists every definition in deterministic name order.
func (s *Source) Flows() ([]*domain.Flow, error) {
	names := make([]string, 0, len(s.flows))
	for name := range s.flows {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*domain.Flow, 0, len(names))
	for _, name := range names {
		out = append(out, s.flows[name])
	}
	return out, nil
}
