// Package agents provides the family agent data model, survival needs, and registry.
package agents

import (
	"fmt"
	"math"
)

// AgentID is a unique identifier for a family agent.
type AgentID int

// ValueType is the moral orientation that drives a family's judgments
// during allocation and negotiation.
type ValueType uint8

const (
	ValueEgalitarian ValueType = iota
	ValueNeedsBased
	ValueMeritBased
	ValueAltruistic
	ValuePragmatic
)

var valueTypeNames = [...]string{
	ValueEgalitarian: "egalitarian",
	ValueNeedsBased:  "needs_based",
	ValueMeritBased:  "merit_based",
	ValueAltruistic:  "altruistic",
	ValuePragmatic:   "pragmatic",
}

func (v ValueType) String() string {
	if int(v) < len(valueTypeNames) {
		return valueTypeNames[v]
	}
	return fmt.Sprintf("value_type(%d)", uint8(v))
}

// ParseValueType converts a value type name back into its enum.
func ParseValueType(name string) (ValueType, error) {
	for i, n := range valueTypeNames {
		if n == name {
			return ValueType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown value type %q", name)
}

// MarshalText encodes the value type as its name, so agent JSON files stay
// human-editable.
func (v ValueType) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *ValueType) UnmarshalText(b []byte) error {
	parsed, err := ParseValueType(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Agent is a family participating in community resource allocation.
// Immutable within a round.
type Agent struct {
	ID         AgentID   `json:"id"`
	FamilyName string    `json:"family_name"`
	ValueType  ValueType `json:"value_type"`
	Members    int       `json:"members"`
	LaborForce int       `json:"labor_force"`
}

// Validate checks the structural invariants of a family record.
func (a *Agent) Validate() error {
	if a.FamilyName == "" {
		return fmt.Errorf("agent %d: empty family name", a.ID)
	}
	if a.Members < 1 {
		return fmt.Errorf("agent %d (%s): members must be at least 1, got %d", a.ID, a.FamilyName, a.Members)
	}
	if a.LaborForce < 0 || a.LaborForce > a.Members {
		return fmt.Errorf("agent %d (%s): labor force %d outside [0, %d]", a.ID, a.FamilyName, a.LaborForce, a.Members)
	}
	return nil
}

// DependencyRatio is members per laborer. Families with no labor force are
// infinitely burdened.
func (a *Agent) DependencyRatio() float64 {
	if a.LaborForce == 0 {
		return math.Inf(1)
	}
	return float64(a.Members) / float64(a.LaborForce)
}

// LaborDensity is the share of family members who can work.
func (a *Agent) LaborDensity() float64 {
	if a.Members == 0 {
		return 0
	}
	return float64(a.LaborForce) / float64(a.Members)
}
