// Package engine drives the round loop: allocation, integerization,
// evaluation, production, and pool regeneration.
package engine

import (
	"log/slog"
	"math"
)

const (
	baseOutput          = 5.0 // natural growth even with no hands in the field
	maxResourcePerLabor = 5.0 // grain one laborer can work in a round
	laborEfficiencyGain = 1.0
)

// SatisfactionEfficiency maps a 1-5 satisfaction score onto a production
// efficiency factor in [0.8, 1.2]. A neutral 2.5 is the 1.0 baseline;
// contentment adds up to 40%, resentment costs up to 30%, both clamped.
func SatisfactionEfficiency(score float64) float64 {
	normalized := (score - 2.5) / 2.5
	efficiency := 1.0
	if normalized >= 0 {
		efficiency += normalized * 0.4
	} else {
		efficiency -= math.Abs(normalized) * 0.3
	}
	return math.Max(0.8, math.Min(efficiency, 1.2))
}

// Production computes one family's grain output. Input beyond survival need
// is worked by the labor force up to its processing cap; labor density and
// the satisfaction factor scale the conversion; yieldFactor is the seasonal
// modifier applied to the whole harvest.
func Production(allocated, need float64, laborForce int, satisfactionEff, yieldFactor float64, log *slog.Logger) float64 {
	available := math.Max(0, allocated-need)
	maxProcessable := float64(laborForce) * maxResourcePerLabor
	processed := math.Min(available, maxProcessable)

	if processed == 0 || laborForce == 0 {
		return baseOutput * yieldFactor
	}

	// Cap labor density at 1 so tiny inputs do not mint outsized efficiency.
	laborDensity := math.Min(float64(laborForce)/processed, 1.0)
	efficiency := (1.0 + laborDensity*laborEfficiencyGain) * satisfactionEff

	if wasted := available - maxProcessable; wasted > 0 && log != nil {
		log.Warn("grain left unworked, labor force too small", "wasted", wasted)
	}

	return (baseOutput + processed*efficiency) * yieldFactor
}
