package engine

import (
	"github.com/talgya/farmshare/internal/agents"
	"github.com/talgya/farmshare/internal/alloc"
)

// sustainabilityWarnBelow flags a shrinking pool.
const sustainabilityWarnBelow = 0.9

// Generator tracks the community pool across rounds. Next round's pool is
// exactly the sum of this round's family outputs; nothing else carries over.
type Generator struct {
	Current             alloc.Pool
	SustainabilityIndex float64
	OveruseWarning      bool

	previousTotal float64
}

// NewGenerator seeds the pool with the initial grain stock.
func NewGenerator(initialGrain float64) *Generator {
	return &Generator{
		Current:             alloc.Pool{agents.Grain: initialGrain},
		SustainabilityIndex: 1.0,
		previousTotal:       initialGrain,
	}
}

// NextRound replaces the pool with the summed productions and updates the
// sustainability index (new total over previous total).
func (g *Generator) NextRound(productions map[agents.AgentID]float64) alloc.Pool {
	var total float64
	for _, out := range productions {
		total += out
	}

	g.Current = alloc.Pool{agents.Grain: total}

	if g.previousTotal > 0 {
		g.SustainabilityIndex = total / g.previousTotal
	} else {
		g.SustainabilityIndex = 1.0
	}
	g.previousTotal = total
	g.OveruseWarning = g.SustainabilityIndex < sustainabilityWarnBelow

	return g.Current.Clone()
}
