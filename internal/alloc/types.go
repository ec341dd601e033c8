// Package alloc provides the allocation strategy library and the
// largest-remainder integerization that turns fractional shares into whole
// units. Strategies are pure: no randomness, no I/O, deterministic for a
// given input.
package alloc

import (
	"sort"

	"github.com/talgya/farmshare/internal/agents"
)

// Pool is the community resource pool for one round, keyed by resource name.
type Pool map[string]float64

// Total sums every resource in the pool.
func (p Pool) Total() float64 {
	var total float64
	for _, amount := range p {
		total += amount
	}
	return total
}

// Resources returns the resource names in sorted order so multi-resource
// iteration is deterministic.
func (p Pool) Resources() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone copies the pool.
func (p Pool) Clone() Pool {
	out := make(Pool, len(p))
	for name, amount := range p {
		out[name] = amount
	}
	return out
}

// Needs holds per-family survival needs keyed by resource.
type Needs map[agents.AgentID]map[string]float64

// Amount returns one family's need for one resource, zero if absent.
func (n Needs) Amount(id agents.AgentID, resource string) float64 {
	return n[id][resource]
}

// Allocation maps each family to its share of every resource.
type Allocation map[agents.AgentID]map[string]float64

// NewAllocation creates a zeroed allocation with an entry per family.
func NewAllocation(families []*agents.Agent) Allocation {
	al := make(Allocation, len(families))
	for _, f := range families {
		al[f.ID] = map[string]float64{}
	}
	return al
}

// Amount returns a family's share of one resource, zero if absent.
func (al Allocation) Amount(id agents.AgentID, resource string) float64 {
	return al[id][resource]
}

// Set assigns a family's share of one resource.
func (al Allocation) Set(id agents.AgentID, resource string, amount float64) {
	shares, ok := al[id]
	if !ok {
		shares = map[string]float64{}
		al[id] = shares
	}
	shares[resource] = amount
}

// Add adjusts a family's share of one resource by delta.
func (al Allocation) Add(id agents.AgentID, resource string, delta float64) {
	al.Set(id, resource, al.Amount(id, resource)+delta)
}

// TotalFor sums one family's shares across all resources.
func (al Allocation) TotalFor(id agents.AgentID) float64 {
	var total float64
	for _, amount := range al[id] {
		total += amount
	}
	return total
}

// TotalOf sums one resource across all families.
func (al Allocation) TotalOf(resource string) float64 {
	var total float64
	for _, shares := range al {
		total += shares[resource]
	}
	return total
}

// Total sums everything.
func (al Allocation) Total() float64 {
	var total float64
	for _, shares := range al {
		for _, amount := range shares {
			total += amount
		}
	}
	return total
}

// Clone deep-copies the allocation.
func (al Allocation) Clone() Allocation {
	out := make(Allocation, len(al))
	for id, shares := range al {
		copied := make(map[string]float64, len(shares))
		for resource, amount := range shares {
			copied[resource] = amount
		}
		out[id] = copied
	}
	return out
}

// ScaleResource multiplies every family's share of one resource by factor.
func (al Allocation) ScaleResource(resource string, factor float64) {
	for id, shares := range al {
		if _, ok := shares[resource]; ok {
			al.Set(id, resource, shares[resource]*factor)
		}
	}
}
