package alloc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/farmshare/internal/agents"
)

func TestIntegerizeLargestRemainder(t *testing.T) {
	values := map[agents.AgentID]float64{1: 10.6, 2: 10.3, 3: 9.1}
	out := Integerize(values, nil, false)

	assert.Equal(t, map[agents.AgentID]int{1: 11, 2: 10, 3: 9}, out)
}

func TestIntegerizeConservesRoundedTotal(t *testing.T) {
	cases := []map[agents.AgentID]float64{
		{1: 33.333, 2: 33.333, 3: 33.334},
		{1: 0.5, 2: 0.5, 3: 0.5, 4: 0.5},
		{1: 17.5, 2: 32.5},
		{1: 61.5, 2: 38.5},
	}
	for _, values := range cases {
		var sum float64
		for _, v := range values {
			sum += v
		}
		out := Integerize(values, nil, false)

		total := 0
		for _, v := range out {
			total += v
		}
		assert.Equal(t, int(math.Round(sum)), total, "values %v", values)
	}
}

func TestIntegerizeFloorHoldsSurvivalNeed(t *testing.T) {
	values := map[agents.AgentID]float64{1: 3.2, 2: 3.2, 3: 3.6}
	floors := map[agents.AgentID]float64{1: 4, 2: 0, 3: 0}
	out := Integerize(values, floors, true)

	// Family 1 is lifted to its floor of 4 and leaves the remainder
	// competition; the total still matches round(10).
	assert.Equal(t, map[agents.AgentID]int{1: 4, 2: 3, 3: 3}, out)
}

func TestIntegerizeFloorLiftSpreadsDecrements(t *testing.T) {
	values := map[agents.AgentID]float64{1: 0, 2: 10}
	floors := map[agents.AgentID]float64{1: 5}
	out := Integerize(values, floors, true)

	// Lifting family 1 to its floor of 5 creates a 5-unit excess that a
	// single decrement per family cannot absorb; the sweep repeats until
	// the total is back at round(10).
	assert.Equal(t, map[agents.AgentID]int{1: 5, 2: 5}, out)
}

func TestIntegerizeFloorsCanExceedTarget(t *testing.T) {
	values := map[agents.AgentID]float64{1: 1, 2: 1}
	floors := map[agents.AgentID]float64{1: 3, 2: 3}
	out := Integerize(values, floors, true)

	// Nobody can be pushed below their floor, so the total stays above
	// round(2). That is the documented floor-versus-conservation tradeoff.
	assert.Equal(t, map[agents.AgentID]int{1: 3, 2: 3}, out)
}

func TestIntegerizeFloorMonotonicity(t *testing.T) {
	values := map[agents.AgentID]float64{1: 6.4, 2: 8.7, 3: 11.2, 4: 3.7}
	floors := map[agents.AgentID]float64{1: 7, 2: 8, 3: 9, 4: 5}
	out := Integerize(values, floors, true)

	for id, units := range out {
		assert.GreaterOrEqual(t, units, int(math.Ceil(floors[id])), "agent %d", id)
	}
}

func TestIntegerizeResourceInPlace(t *testing.T) {
	families := testCommunity()[:3]
	al := Allocation{
		1: {agents.Grain: 10.6},
		2: {agents.Grain: 10.3},
		3: {agents.Grain: 9.1},
	}
	needs := Needs(agents.SurvivalNeedsByAgent(families))
	IntegerizeResource(al, agents.Grain, needs, false)

	assert.Equal(t, 11.0, al.Amount(1, agents.Grain))
	assert.Equal(t, 10.0, al.Amount(2, agents.Grain))
	assert.Equal(t, 9.0, al.Amount(3, agents.Grain))
}

func TestIntegerizeEmpty(t *testing.T) {
	assert.Empty(t, Integerize(nil, nil, true))
	IntegerizeResource(Allocation{}, agents.Grain, Needs{}, true)
}
