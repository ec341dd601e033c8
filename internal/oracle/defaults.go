package oracle

import (
	"fmt"

	"github.com/talgya/farmshare/internal/agents"
)

// Deterministic fallbacks used when the model is unavailable or keeps
// failing. Keyed by value type so a family still acts in character.

var defaultPrinciples = map[agents.ValueType][]string{
	agents.ValueEgalitarian: {PrincipleEqual, PrincipleProtectVulnerable, PrincipleSustainability},
	agents.ValueNeedsBased:  {PrincipleNeedsFirst, PrincipleProtectVulnerable, PrincipleEqual},
	agents.ValueMeritBased:  {PrincipleMeritBased, PrincipleEfficiency, PrincipleSustainability},
	agents.ValueAltruistic:  {PrincipleProtectVulnerable, PrincipleNeedsFirst, PrincipleEqual},
	agents.ValuePragmatic:   {PrincipleEfficiency, PrincipleSustainability, PrincipleMeritBased},
}

// DefaultPrinciples returns the ranked principles a family of the given
// orientation would argue for.
func DefaultPrinciples(v agents.ValueType) PrincipleResponse {
	ranked, ok := defaultPrinciples[v]
	if !ok {
		ranked = defaultPrinciples[agents.ValuePragmatic]
	}
	return PrincipleResponse{Ranked: append([]string(nil), ranked...)}
}

// DefaultPersuasion is a canned appeal; its content is never interpreted.
func DefaultPersuasion(pc PersuasionContext) PersuasionResponse {
	return PersuasionResponse{
		Argument: fmt.Sprintf("We believe %s should guide this round's distribution.", pc.Principle),
	}
}

// DefaultOpinion accepts the proposed share without objection.
func DefaultOpinion(oc OpinionContext) Opinion {
	return Opinion{HasObjection: false, ExpectedAmount: oc.Allocated}
}

// DefaultSatisfaction scores the share against the family's survival need:
// comfortable surplus rates 4, shortfall rates 2, anything else 3.
func DefaultSatisfaction(sc SatisfactionContext) Satisfaction {
	score := 3.0
	switch {
	case sc.Need > 0 && sc.Allocated < sc.Need:
		score = 2.0
	case sc.Allocated >= sc.Need*1.1 && sc.Need > 0:
		score = 4.0
	}
	return Satisfaction{Score: score}
}
