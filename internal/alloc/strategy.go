package alloc

import (
	"fmt"

	"github.com/talgya/farmshare/internal/agents"
)

// Strategy identifies one of the allocation policies in the library.
type Strategy uint8

const (
	StrategyEqual Strategy = iota
	StrategyNeedsBased
	StrategyContribution
	StrategyAltruistic
	StrategyPragmatic
)

var strategyNames = [...]string{
	StrategyEqual:        "equal",
	StrategyNeedsBased:   "needs_based",
	StrategyContribution: "contribution",
	StrategyAltruistic:   "altruistic",
	StrategyPragmatic:    "pragmatic",
}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("strategy(%d)", uint8(s))
}

// ParseStrategy resolves a strategy by name.
func ParseStrategy(name string) (Strategy, error) {
	for i, n := range strategyNames {
		if n == name {
			return Strategy(i), nil
		}
	}
	return 0, fmt.Errorf("unknown strategy %q", name)
}

// EnforcesFloor reports whether integerization should hold each family at
// its survival floor after this strategy runs.
func (s Strategy) EnforcesFloor() bool {
	return s == StrategyNeedsBased
}

// Distribute runs the named strategy. Outputs are fractional; the caller
// integerizes separately.
func Distribute(s Strategy, pool Pool, families []*agents.Agent, needs Needs) Allocation {
	switch s {
	case StrategyEqual:
		return Equal(pool, families)
	case StrategyNeedsBased:
		return NeedsBased(pool, families)
	case StrategyContribution:
		return ContributionBased(pool, families, needs)
	case StrategyAltruistic:
		return Altruistic(pool, families, needs)
	case StrategyPragmatic:
		return Pragmatic(pool, families, needs)
	default:
		return Equal(pool, families)
	}
}
