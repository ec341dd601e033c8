package alloc

import (
	"math"
	"sort"

	"github.com/talgya/farmshare/internal/agents"
)

// Integerize rounds fractional shares of one resource to whole units using
// largest-remainder apportionment. The integer total matches round(sum of
// inputs). With enforceFloor set, no family drops below the ceiling of its
// survival need; a family lifted to its floor leaves the remainder
// competition. If the floors alone exceed the target, the total legitimately
// stays above it.
func Integerize(values map[agents.AgentID]float64, floors map[agents.AgentID]float64, enforceFloor bool) map[agents.AgentID]int {
	ids := make([]agents.AgentID, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	base := make(map[agents.AgentID]int, len(ids))
	frac := make(map[agents.AgentID]float64, len(ids))
	floor := make(map[agents.AgentID]int, len(ids))

	var sum float64
	for _, id := range ids {
		v := values[id]
		sum += v
		b := int(math.Floor(v))
		base[id] = b
		frac[id] = v - float64(b)
		if enforceFloor {
			if need := floors[id]; need > 0 {
				floor[id] = int(math.Ceil(need))
			}
		}
		if base[id] < floor[id] {
			base[id] = floor[id]
			frac[id] = 0
		}
	}

	target := int(math.Round(sum))
	total := 0
	for _, id := range ids {
		total += base[id]
	}

	switch {
	case total < target:
		order := append([]agents.AgentID(nil), ids...)
		sort.SliceStable(order, func(i, j int) bool { return frac[order[i]] > frac[order[j]] })
		for _, id := range order {
			if total == target {
				break
			}
			base[id]++
			total++
		}
	case total > target:
		// A floor lift can leave an excess larger than one unit per family,
		// so sweep repeatedly until the target is met or every family sits
		// on its floor.
		order := append([]agents.AgentID(nil), ids...)
		sort.SliceStable(order, func(i, j int) bool { return frac[order[i]] < frac[order[j]] })
		for total > target {
			trimmed := false
			for _, id := range order {
				if total == target {
					break
				}
				if base[id] > floor[id] {
					base[id]--
					total--
					trimmed = true
				}
			}
			if !trimmed {
				break
			}
		}
	}

	return base
}

// IntegerizeResource rounds one resource of an allocation in place.
func IntegerizeResource(al Allocation, resource string, needs Needs, enforceFloor bool) {
	if len(al) == 0 {
		return
	}
	values := make(map[agents.AgentID]float64, len(al))
	floors := make(map[agents.AgentID]float64, len(al))
	for id := range al {
		values[id] = al.Amount(id, resource)
		floors[id] = needs.Amount(id, resource)
	}
	rounded := Integerize(values, floors, enforceFloor)
	for id, units := range rounded {
		al.Set(id, resource, float64(units))
	}
}
