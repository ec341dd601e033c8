package agents

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Registry holds the validated community roster for an experiment.
// The roster is fixed at construction; rounds never add or remove families.
type Registry struct {
	families []*Agent
	byID     map[AgentID]*Agent
}

// NewRegistry validates and indexes a set of families. Families are kept in
// ascending ID order so every round iterates deterministically.
func NewRegistry(families []*Agent) (*Registry, error) {
	if len(families) == 0 {
		return nil, fmt.Errorf("registry: no families")
	}

	byID := make(map[AgentID]*Agent, len(families))
	ordered := make([]*Agent, len(families))
	copy(ordered, families)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	for _, f := range ordered {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("registry: %w", err)
		}
		if _, dup := byID[f.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate agent id %d", f.ID)
		}
		byID[f.ID] = f
	}

	return &Registry{families: ordered, byID: byID}, nil
}

// LoadFile reads a JSON array of families from disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agents file: %w", err)
	}
	var families []*Agent
	if err := json.Unmarshal(data, &families); err != nil {
		return nil, fmt.Errorf("parse agents file %s: %w", path, err)
	}
	return NewRegistry(families)
}

// All returns the roster in ID order. Callers must not mutate it.
func (r *Registry) All() []*Agent {
	return r.families
}

// Get looks up a family by ID.
func (r *Registry) Get(id AgentID) (*Agent, bool) {
	f, ok := r.byID[id]
	return f, ok
}

// Len returns the number of families.
func (r *Registry) Len() int {
	return len(r.families)
}

// TotalMembers is the community population.
func (r *Registry) TotalMembers() int {
	total := 0
	for _, f := range r.families {
		total += f.Members
	}
	return total
}

// TotalLabor is the community labor force.
func (r *Registry) TotalLabor() int {
	total := 0
	for _, f := range r.families {
		total += f.LaborForce
	}
	return total
}

// ByValueType returns families holding the given orientation, in ID order.
func (r *Registry) ByValueType(v ValueType) []*Agent {
	var out []*Agent
	for _, f := range r.families {
		if f.ValueType == v {
			out = append(out, f)
		}
	}
	return out
}
