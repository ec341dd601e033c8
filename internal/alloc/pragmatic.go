package alloc

import "github.com/talgya/farmshare/internal/agents"

const (
	pragmaticNeedsWeight = 0.4
	pragmaticEqualWeight = 0.3
	pragmaticMeritWeight = 0.3
)

// Pragmatic blends the needs-based, equal, and contribution allocations
// 0.4 / 0.3 / 0.3 per family and resource.
func Pragmatic(pool Pool, families []*agents.Agent, needs Needs) Allocation {
	if len(families) == 0 {
		return Allocation{}
	}

	byNeed := NeedsBased(pool, families)
	byEqual := Equal(pool, families)
	byMerit := ContributionBased(pool, families, needs)

	al := NewAllocation(families)
	for _, f := range families {
		for _, resource := range pool.Resources() {
			blended := pragmaticNeedsWeight*byNeed.Amount(f.ID, resource) +
				pragmaticEqualWeight*byEqual.Amount(f.ID, resource) +
				pragmaticMeritWeight*byMerit.Amount(f.ID, resource)
			al.Set(f.ID, resource, blended)
		}
	}
	return al
}
