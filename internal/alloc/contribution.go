package alloc

import "github.com/talgya/farmshare/internal/agents"

// ContributionBased covers each family's survival need first, then splits
// the remainder of the pool strictly by labor-force share. A community with
// no labor at all degrades to Equal.
func ContributionBased(pool Pool, families []*agents.Agent, needs Needs) Allocation {
	if len(families) == 0 {
		return Allocation{}
	}

	totalLabor := 0
	for _, f := range families {
		totalLabor += f.LaborForce
	}
	if totalLabor == 0 {
		return Equal(pool, families)
	}

	al := NewAllocation(families)
	for _, resource := range pool.Resources() {
		total := pool[resource]

		var needTotal float64
		for _, f := range families {
			needTotal += needs.Amount(f.ID, resource)
		}

		if needTotal > total && needTotal > 0 {
			// The pool cannot cover survival; scale the guarantees down
			// proportionally so the result still conserves the pool.
			for _, f := range families {
				al.Set(f.ID, resource, needs.Amount(f.ID, resource)*total/needTotal)
			}
			continue
		}

		distributable := total - needTotal
		for _, f := range families {
			share := needs.Amount(f.ID, resource) +
				distributable*float64(f.LaborForce)/float64(totalLabor)
			al.Set(f.ID, resource, share)
		}
	}
	return al
}
