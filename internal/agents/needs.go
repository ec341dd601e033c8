package agents

// Grain is the staple resource every experiment distributes. The data model
// generalizes to more resources but survival needs are defined for grain.
const Grain = "grain"

const (
	laborerGrainNeed   = 2.0 // laborers burn more calories
	dependentGrainNeed = 1.0
)

// SurvivalNeed returns the grain required to keep the whole family fed for
// one round: 2 units per laborer, 1 per dependent.
func (a *Agent) SurvivalNeed() float64 {
	dependents := a.Members - a.LaborForce
	return float64(a.LaborForce)*laborerGrainNeed + float64(dependents)*dependentGrainNeed
}

// SurvivalNeeds returns the family's per-resource needs map.
func (a *Agent) SurvivalNeeds() map[string]float64 {
	return map[string]float64{Grain: a.SurvivalNeed()}
}

// SurvivalNeedsByAgent computes the needs map for a whole community, keyed
// by agent ID. Computed once per round; never mutated afterwards.
func SurvivalNeedsByAgent(families []*Agent) map[AgentID]map[string]float64 {
	needs := make(map[AgentID]map[string]float64, len(families))
	for _, f := range families {
		needs[f.ID] = f.SurvivalNeeds()
	}
	return needs
}

// SurvivalStatus reports how an allocation measures up against a need.
type SurvivalStatus struct {
	Satisfied    bool    `json:"satisfied"`
	Shortfall    float64 `json:"shortfall"`
	SurplusRatio float64 `json:"surplus_ratio"`
}

// CheckSurvival compares an allocated amount against a survival need.
func CheckSurvival(allocated, need float64) SurvivalStatus {
	st := SurvivalStatus{Satisfied: allocated >= need}
	if !st.Satisfied {
		st.Shortfall = need - allocated
	}
	if need > 0 {
		st.SurplusRatio = allocated / need
	} else {
		st.SurplusRatio = 1
	}
	return st
}
