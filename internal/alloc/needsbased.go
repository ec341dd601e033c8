package alloc

import (
	"math"

	"github.com/talgya/farmshare/internal/agents"
)

const (
	basicPoolShare    = 0.70
	flexiblePoolShare = 0.30

	popWeight     = 0.50
	laborWeight   = 0.30
	specialWeight = 0.20

	minPerCapita      = 3.5
	donorSurplusShare = 0.30
)

// NeedsBased guarantees a population-proportional base share from 70% of the
// pool, splits the remaining 30% by a blend of population, labor, and
// dependency-burden weights, then lifts any family below the per-capita
// floor using surplus from families above the community average.
func NeedsBased(pool Pool, families []*agents.Agent) Allocation {
	if len(families) == 0 {
		return Allocation{}
	}

	totalMembers, totalLabor := 0, 0
	for _, f := range families {
		totalMembers += f.Members
		totalLabor += f.LaborForce
	}
	if totalMembers == 0 {
		return Equal(pool, families)
	}

	var totalSpecial float64
	for _, f := range families {
		totalSpecial += specialNeedWeight(f)
	}

	al := NewAllocation(families)
	for _, resource := range pool.Resources() {
		total := pool[resource]
		basic := total * basicPoolShare
		flexible := total * flexiblePoolShare

		// Base share strictly by population.
		for _, f := range families {
			al.Set(f.ID, resource, basic*float64(f.Members)/float64(totalMembers))
		}

		// Flexible share by blended weight. The weights are normalized so
		// the flexible pool is fully allocated even when a component (labor,
		// dependency burden) is absent from the community.
		weights := make(map[agents.AgentID]float64, len(families))
		var weightSum float64
		for _, f := range families {
			w := popWeight * float64(f.Members) / float64(totalMembers)
			if totalLabor > 0 {
				w += laborWeight * float64(f.LaborForce) / float64(totalLabor)
			}
			if totalSpecial > 0 {
				w += specialWeight * specialNeedWeight(f) / totalSpecial
			}
			weights[f.ID] = w
			weightSum += w
		}
		if weightSum > 0 {
			for _, f := range families {
				al.Add(f.ID, resource, flexible*weights[f.ID]/weightSum)
			}
		}

		ensurePerCapitaFloor(al, resource, total, families)
	}
	return al
}

// specialNeedWeight gives dependency-heavy families (labor density below
// one half) an extra claim on the flexible pool.
func specialNeedWeight(f *agents.Agent) float64 {
	density := f.LaborDensity()
	if density < 0.5 {
		return (0.5 - density) * 2
	}
	return 0
}

// ensurePerCapitaFloor raises families below the minimum per-capita line by
// moving 30% of the above-average surplus from better-off families,
// proportional to each shortfall, capped by what donors can spare.
func ensurePerCapitaFloor(al Allocation, resource string, total float64, families []*agents.Agent) {
	totalMembers := 0
	for _, f := range families {
		totalMembers += f.Members
	}
	if totalMembers == 0 {
		return
	}
	avgPerCapita := total / float64(totalMembers)

	shortfalls := make(map[agents.AgentID]float64)
	var totalShort float64
	for _, f := range families {
		perCapita := al.Amount(f.ID, resource) / float64(f.Members)
		if perCapita < minPerCapita {
			s := (minPerCapita - perCapita) * float64(f.Members)
			shortfalls[f.ID] = s
			totalShort += s
		}
	}
	if totalShort == 0 {
		return
	}

	surpluses := make(map[agents.AgentID]float64)
	var totalSurplus float64
	for _, f := range families {
		perCapita := al.Amount(f.ID, resource) / float64(f.Members)
		if perCapita > avgPerCapita {
			s := (perCapita - avgPerCapita) * float64(f.Members) * donorSurplusShare
			surpluses[f.ID] = s
			totalSurplus += s
		}
	}
	if totalSurplus <= 0 {
		return
	}

	moved := math.Min(totalSurplus, totalShort)
	for id, s := range shortfalls {
		al.Add(id, resource, moved*s/totalShort)
	}
	for id, s := range surpluses {
		al.Add(id, resource, -moved*s/totalSurplus)
	}
}
