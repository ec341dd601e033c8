package negotiation

import (
	"fmt"

	"github.com/talgya/farmshare/internal/agents"
	"github.com/talgya/farmshare/internal/alloc"
)

// Stage identifies a step of the pipeline. Transitions are one-directional;
// no stage is revisited.
type Stage uint8

const (
	StagePrinciples Stage = iota
	StageFramework
	StageDetails
	StageFinalization
	StageSuccess
	StageFallback
)

var stageNames = [...]string{
	StagePrinciples:   "principles",
	StageFramework:    "framework",
	StageDetails:      "details",
	StageFinalization: "finalization",
	StageSuccess:      "success",
	StageFallback:     "fallback",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

// Result is the outcome of a full negotiation session. The allocation is
// always complete and integerized, fallback or not.
type Result struct {
	SessionID           string           `json:"session_id"`
	Allocation          alloc.Allocation `json:"allocation"`
	Success             bool             `json:"success"`
	FinalStage          Stage            `json:"-"`
	FinalStageName      string           `json:"final_stage"`
	StagesCompleted     []string         `json:"stages_completed"`
	Method              string           `json:"method,omitempty"`
	AdoptedPrinciples   []string         `json:"adopted_principles,omitempty"`
	AverageSatisfaction float64          `json:"average_satisfaction"`
	ConflictRecorded    bool             `json:"conflict_recorded,omitempty"`
	FallbackReason      string           `json:"fallback_reason,omitempty"`

	// Satisfaction holds the final feedback round's per-family scores.
	// Empty on fallback, where no feedback round ran.
	Satisfaction map[agents.AgentID]float64 `json:"satisfaction,omitempty"`
}
