// Package oracle is the structured judgment boundary between the engine and
// the language model. The engine only ever sees typed responses; free text
// never crosses this line, and a failing model degrades to deterministic
// value-type defaults instead of surfacing an error mid-negotiation.
package oracle

import (
	"context"

	"github.com/talgya/farmshare/internal/agents"
)

// PrincipleContext describes the negotiation opening an agent responds to.
type PrincipleContext struct {
	Round        int
	PoolTotal    float64
	FamilyCount  int
	CanonicalSet []string
}

// PrincipleResponse is an agent's ranked distribution principles, most
// important first, at most three.
type PrincipleResponse struct {
	Ranked []string `json:"principles"`
}

// PersuasionContext frames an advocate's appeal for an unadopted principle.
type PersuasionContext struct {
	Principle  string
	Supporters []string
	Round      int
}

// PersuasionResponse carries the advocate's argument. The engine logs it but
// never interprets it; only the alignment table decides who is convinced.
type PersuasionResponse struct {
	Argument string `json:"argument"`
}

// OpinionContext shows an agent its proposed share for review.
type OpinionContext struct {
	Round     int
	Allocated float64
	Need      float64
	PoolTotal float64
	Method    string
}

// Opinion is an agent's reaction to a proposed share.
type Opinion struct {
	HasObjection   bool    `json:"has_objection"`
	ExpectedAmount float64 `json:"expected_amount"`
	Reason         string  `json:"reason"`
}

// SatisfactionContext frames a final confirmation query.
type SatisfactionContext struct {
	Round         int
	FeedbackRound int
	Allocated     float64
	Need          float64
	AverageShare  float64
}

// Satisfaction is a 1-5 confirmation rating, optionally with a requested
// adjustment target.
type Satisfaction struct {
	Score            float64  `json:"score"`
	AdjustmentTarget *float64 `json:"adjustment_target,omitempty"`
	Comment          string   `json:"comment"`
}

// Oracle answers agent judgment queries. Calls are blocking; timeouts and
// cancellation travel through ctx. Implementations are queried sequentially
// by a negotiation session.
type Oracle interface {
	PrinciplePreferences(ctx context.Context, a *agents.Agent, pc PrincipleContext) (PrincipleResponse, error)
	Persuade(ctx context.Context, advocate *agents.Agent, pc PersuasionContext) (PersuasionResponse, error)
	AllocationOpinion(ctx context.Context, a *agents.Agent, oc OpinionContext) (Opinion, error)
	SatisfactionRating(ctx context.Context, a *agents.Agent, sc SatisfactionContext) (Satisfaction, error)
}
