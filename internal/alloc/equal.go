package alloc

import "github.com/talgya/farmshare/internal/agents"

// Equal splits every resource evenly across families. It is both a strategy
// in its own right and the degenerate-input and negotiation-fallback policy.
func Equal(pool Pool, families []*agents.Agent) Allocation {
	al := Allocation{}
	n := len(families)
	if n == 0 {
		return al
	}
	for _, f := range families {
		shares := make(map[string]float64, len(pool))
		for resource, amount := range pool {
			shares[resource] = amount / float64(n)
		}
		al[f.ID] = shares
	}
	return al
}
