package alloc

import (
	"math"
	"sort"

	"github.com/talgya/farmshare/internal/agents"
)

// Altruistic serves the most dependency-burdened families first: survival
// needs are filled in descending dependency order from whatever remains of
// the pool, and the leftover is split in proportion to dependency weight.
func Altruistic(pool Pool, families []*agents.Agent, needs Needs) Allocation {
	al := NewAllocation(families)
	if len(families) == 0 {
		return al
	}

	ordered := make([]*agents.Agent, len(families))
	copy(ordered, families)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].DependencyRatio() > ordered[j].DependencyRatio()
	})

	var weightSum float64
	for _, f := range families {
		weightSum += dependencyWeight(f)
	}

	for _, resource := range pool.Resources() {
		remaining := pool[resource]

		for _, f := range ordered {
			grant := math.Min(needs.Amount(f.ID, resource), remaining)
			if grant < 0 {
				grant = 0
			}
			al.Set(f.ID, resource, grant)
			remaining -= grant
		}

		if remaining <= 0 {
			continue
		}
		if weightSum > 0 {
			for _, f := range ordered {
				al.Add(f.ID, resource, remaining*dependencyWeight(f)/weightSum)
			}
		} else {
			per := remaining / float64(len(families))
			for _, f := range ordered {
				al.Add(f.ID, resource, per)
			}
		}
	}
	return al
}

// dependencyWeight is the finite weight used for the proportional leftover
// split. A family with no labor force sorts first (infinite ratio) but
// weighs as if it had a single laborer, keeping the arithmetic finite.
func dependencyWeight(f *agents.Agent) float64 {
	if f.LaborForce == 0 {
		return float64(f.Members)
	}
	return float64(f.Members) / float64(f.LaborForce)
}
