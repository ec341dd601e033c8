// Package stats provides the fairness statistics layer: Gini coefficient,
// moments, and the three-layer per-round fairness report.
package stats

import (
	"math"
	"sort"

	"github.com/talgya/farmshare/internal/agents"
	"github.com/talgya/farmshare/internal/alloc"
)

// Gini computes the Gini coefficient of a value set. Empty or zero-sum
// inputs score 0.
func Gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum, weighted float64
	for i, v := range sorted {
		sum += v
		weighted += float64(i+1) * v
	}
	if sum == 0 {
		return 0
	}
	return 2*weighted/(float64(n)*sum) - float64(n+1)/float64(n)
}

// Summary is the statistical readout of one value set. Variance is
// population variance.
type Summary struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"std_dev"`
	Gini     float64 `json:"gini"`
}

// Describe computes mean, population variance, standard deviation, and Gini
// for a value set.
func Describe(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{}
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(n)

	return Summary{
		Mean:     mean,
		Variance: variance,
		StdDev:   math.Sqrt(variance),
		Gini:     Gini(values),
	}
}

// Report carries the three fairness layers for one round: the raw
// allocation, the effective input left after survival needs, and the
// realized production outcome.
type Report struct {
	Allocation     Summary `json:"allocation"`
	EffectiveInput Summary `json:"effective_input"`
	Outcome        Summary `json:"outcome"`
}

// Totals flattens per-family allocation totals in roster order.
func Totals(families []*agents.Agent, al alloc.Allocation) []float64 {
	out := make([]float64, len(families))
	for i, f := range families {
		out[i] = al.TotalFor(f.ID)
	}
	return out
}

// EffectiveInputs is the per-family portion usable for production:
// max(0, allocation - survival need), summed across resources.
func EffectiveInputs(families []*agents.Agent, al alloc.Allocation, needs alloc.Needs) []float64 {
	out := make([]float64, len(families))
	for i, f := range families {
		var total float64
		for resource, amount := range al[f.ID] {
			total += math.Max(0, amount-needs.Amount(f.ID, resource))
		}
		out[i] = total
	}
	return out
}

// BuildReport assembles the three-layer fairness report for one round.
// Outputs may be nil when production has not run yet.
func BuildReport(families []*agents.Agent, al alloc.Allocation, needs alloc.Needs, outputs map[agents.AgentID]float64) Report {
	outcome := make([]float64, len(families))
	for i, f := range families {
		outcome[i] = outputs[f.ID]
	}
	return Report{
		Allocation:     Describe(Totals(families, al)),
		EffectiveInput: Describe(EffectiveInputs(families, al, needs)),
		Outcome:        Describe(outcome),
	}
}
