// Package negotiation implements the four-stage consensus pipeline that lets
// families jointly construct a distribution plan: Principles, Framework,
// Details, Finalization. Any stage failure collapses the whole session to an
// equal-split fallback.
package negotiation

import (
	"fmt"

	"github.com/talgya/farmshare/internal/agents"
	"github.com/talgya/farmshare/internal/oracle"
)

// Base method names a framework can settle on.
const (
	MethodNeedsFirst        = "needs_first"
	MethodContributionBased = "contribution_based"
	MethodEqualityBased     = "equality_based"
	MethodBalancedHybrid    = "balanced_hybrid"
)

// Ratio keys used by the base ratio sets.
const (
	RatioSurvivalGuarantee  = "survival_guarantee"
	RatioAdditionalSupport  = "additional_support"
	RatioContributionReward = "contribution_reward"
	RatioEqualDistribution  = "equal_distribution"
	RatioMeritPortion       = "merit_portion"
	RatioEqualPortion       = "equal_portion"
	RatioCommunityReserve   = "community_reserve"
)

// Config carries the tunable tables of the pipeline. The alignment table and
// ratio sets are heuristics, so they live in configuration rather than code;
// DefaultConfig is the baseline and YAML may override it.
type Config struct {
	// MaxPrinciples caps how many ranked principles one family may submit.
	MaxPrinciples int `yaml:"max_principles"`

	// Alignment maps a principle to the value types it wins over during a
	// persuasion round.
	Alignment map[string][]string `yaml:"alignment"`

	// BaseRatios holds the starting ratio set per base method. Each set
	// sums to 1.
	BaseRatios map[string]map[string]float64 `yaml:"base_ratios"`
}

// DefaultConfig returns the baseline tables.
func DefaultConfig() Config {
	return Config{
		MaxPrinciples: 3,
		Alignment: map[string][]string{
			oracle.PrincipleNeedsFirst:        {"needs_based", "altruistic"},
			oracle.PrincipleMeritBased:        {"merit_based", "pragmatic"},
			oracle.PrincipleEqual:             {"egalitarian", "altruistic"},
			oracle.PrincipleProtectVulnerable: {"altruistic", "needs_based"},
			oracle.PrincipleEfficiency:        {"merit_based", "pragmatic"},
			oracle.PrincipleSustainability:    {"pragmatic"},
		},
		BaseRatios: map[string]map[string]float64{
			MethodNeedsFirst: {
				RatioSurvivalGuarantee: 0.60,
				RatioAdditionalSupport: 0.25,
				RatioCommunityReserve:  0.15,
			},
			MethodContributionBased: {
				RatioSurvivalGuarantee:  0.40,
				RatioContributionReward: 0.50,
				RatioCommunityReserve:   0.10,
			},
			MethodEqualityBased: {
				RatioSurvivalGuarantee: 0.50,
				RatioEqualDistribution: 0.40,
				RatioCommunityReserve:  0.10,
			},
			MethodBalancedHybrid: {
				RatioSurvivalGuarantee: 0.45,
				RatioMeritPortion:      0.25,
				RatioEqualPortion:      0.20,
				RatioCommunityReserve:  0.10,
			},
		},
	}
}

// Validate checks the config is complete enough to run a session.
func (c Config) Validate() error {
	if c.MaxPrinciples < 1 {
		return fmt.Errorf("negotiation config: max_principles must be at least 1")
	}
	for _, method := range []string{MethodNeedsFirst, MethodContributionBased, MethodEqualityBased, MethodBalancedHybrid} {
		ratios, ok := c.BaseRatios[method]
		if !ok || len(ratios) == 0 {
			return fmt.Errorf("negotiation config: no base ratios for method %q", method)
		}
		var sum float64
		for key, r := range ratios {
			if r < 0 {
				return fmt.Errorf("negotiation config: negative ratio %s=%f for %q", key, r, method)
			}
			sum += r
		}
		if sum <= 0 {
			return fmt.Errorf("negotiation config: ratios for %q sum to zero", method)
		}
	}
	return nil
}

// Convinces reports whether a persuasion round for the principle wins over a
// family of the given orientation.
func (c Config) Convinces(principle string, v agents.ValueType) bool {
	for _, name := range c.Alignment[principle] {
		if name == v.String() {
			return true
		}
	}
	return false
}
