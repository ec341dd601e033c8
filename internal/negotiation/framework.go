package negotiation

import (
	"fmt"
	"log/slog"

	"github.com/talgya/farmshare/internal/agents"
	"github.com/talgya/farmshare/internal/oracle"
)

// frameworkOutcome is the second stage's output: the chosen base method and
// its (possibly bumped) ratio set.
type frameworkOutcome struct {
	method string
	ratios map[string]float64
}

// runFramework maps the adopted principles to a base method, then lets
// families request ratio bumps by value-type rule; a bump applies only with
// majority backing, after which the ratios renormalize to sum to 1.
func (s *Session) runFramework(log *slog.Logger, principles *principlesOutcome) (*frameworkOutcome, error) {
	method := chooseMethod(principles.adopted)

	base, ok := s.Config.BaseRatios[method]
	if !ok || len(base) == 0 {
		return nil, fmt.Errorf("no base ratios configured for method %q", method)
	}
	ratios := make(map[string]float64, len(base))
	for key, r := range base {
		ratios[key] = r
	}

	counts := map[ratioBump]int{}
	for _, f := range s.Families {
		if b, wants := ratioBumpFor(f.ValueType, ratios); wants {
			counts[b]++
		}
	}

	threshold := majority(len(s.Families))
	for b, n := range counts {
		if n >= threshold && ratios[b.key] < b.min {
			log.Info("ratio bump adopted", "ratio", b.key, "min", b.min, "requested_by", n)
			ratios[b.key] = b.min
		}
	}

	var sum float64
	for _, r := range ratios {
		sum += r
	}
	if sum <= 0 {
		return nil, fmt.Errorf("ratio set for %q sums to zero", method)
	}
	for key := range ratios {
		ratios[key] /= sum
	}

	log.Info("framework stage complete", "method", method, "ratios", ratios)
	return &frameworkOutcome{method: method, ratios: ratios}, nil
}

// chooseMethod is the fixed decision table from adopted principles to base
// method.
func chooseMethod(adopted []string) string {
	has := map[string]bool{}
	for _, p := range adopted {
		has[p] = true
	}
	switch {
	case has[oracle.PrincipleNeedsFirst] && has[oracle.PrincipleProtectVulnerable]:
		return MethodNeedsFirst
	case has[oracle.PrincipleMeritBased] && has[oracle.PrincipleEfficiency]:
		return MethodContributionBased
	case has[oracle.PrincipleEqual]:
		return MethodEqualityBased
	default:
		return MethodBalancedHybrid
	}
}

// ratioBump is a request to raise one ratio to a minimum value.
type ratioBump struct {
	key string
	min float64
}

// ratioBumpFor returns the one ratio bump a family of the given orientation
// asks for, if the current ratio set leaves room for it.
func ratioBumpFor(v agents.ValueType, ratios map[string]float64) (ratioBump, bool) {
	switch v {
	case agents.ValueAltruistic:
		if r, ok := ratios[RatioSurvivalGuarantee]; ok && r < 0.5 {
			return ratioBump{RatioSurvivalGuarantee, 0.5}, true
		}
	case agents.ValueMeritBased:
		if r, ok := ratios[RatioContributionReward]; ok && r < 0.4 {
			return ratioBump{RatioContributionReward, 0.4}, true
		}
	case agents.ValueEgalitarian:
		if r, ok := ratios[RatioEqualDistribution]; ok && r < 0.3 {
			return ratioBump{RatioEqualDistribution, 0.3}, true
		}
	}
	return ratioBump{}, false
}
