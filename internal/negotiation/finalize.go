package negotiation

import (
	"context"
	"log/slog"
	"math"

	"github.com/talgya/farmshare/internal/agents"
	"github.com/talgya/farmshare/internal/alloc"
	"github.com/talgya/farmshare/internal/oracle"
)

const (
	unsatisfiedBelow     = 3.0  // a score under this counts as unsatisfied
	adjustmentClamp      = 0.20 // requested targets stay within ±20% of current
	adjustmentDonorBar   = 1.1  // donors hold more than 1.1x the average share
	adjustmentSurplusCap = 0.5  // at most half the donor surplus moves
	adjustmentMinimum    = 0.5  // transfers below this are not worth applying
)

// finalizeOutcome is the last stage's output before integerization.
type finalizeOutcome struct {
	allocation          alloc.Allocation
	satisfaction        map[agents.AgentID]float64
	averageSatisfaction float64
	conflict            bool
}

// runFinalization collects satisfaction scores, lets a dissatisfied minority
// request clamped adjustments, and runs at most one more feedback round. A
// dissatisfied majority keeps the plan but records the conflict.
func (s *Session) runFinalization(ctx context.Context, log *slog.Logger, det *detailsOutcome) (*finalizeOutcome, error) {
	al := det.allocation
	n := len(s.Families)

	first := s.collectSatisfaction(ctx, log, al, 1)

	var unsatisfied []agents.AgentID
	for _, f := range s.Families {
		if first[f.ID].Score < unsatisfiedBelow {
			unsatisfied = append(unsatisfied, f.ID)
		}
	}

	out := &finalizeOutcome{
		allocation:          al,
		satisfaction:        scoreValues(s.Families, first),
		averageSatisfaction: averageScore(s.Families, first),
	}

	switch {
	case len(unsatisfied) == 0:
		log.Info("finalization unanimous", "avg_satisfaction", out.averageSatisfaction)

	case len(unsatisfied) >= majority(n):
		// Majority dissent: keep the plan, no further rounds.
		out.conflict = true
		log.Warn("majority unsatisfied, keeping plan",
			"unsatisfied", len(unsatisfied),
			"avg_satisfaction", out.averageSatisfaction,
		)

	default:
		if s.applyAdjustments(log, al, unsatisfied, first) {
			second := s.collectSatisfaction(ctx, log, al, 2)
			out.satisfaction = scoreValues(s.Families, second)
			out.averageSatisfaction = averageScore(s.Families, second)
			log.Info("second feedback round complete", "avg_satisfaction", out.averageSatisfaction)
		}
	}

	return out, nil
}

// collectSatisfaction queries every family's rating for the current plan.
func (s *Session) collectSatisfaction(ctx context.Context, log *slog.Logger, al alloc.Allocation, feedbackRound int) map[agents.AgentID]oracle.Satisfaction {
	poolGrain := s.Pool[agents.Grain]
	average := poolGrain / float64(len(s.Families))

	scores := make(map[agents.AgentID]oracle.Satisfaction, len(s.Families))
	for _, f := range s.Families {
		sc := oracle.SatisfactionContext{
			Round:         s.Round,
			FeedbackRound: feedbackRound,
			Allocated:     al.Amount(f.ID, agents.Grain),
			Need:          s.Needs.Amount(f.ID, agents.Grain),
			AverageShare:  average,
		}
		rating, err := s.Oracle.SatisfactionRating(ctx, f, sc)
		if err != nil {
			log.Warn("satisfaction query failed, using default", "family", f.FamilyName, "error", err)
			rating = oracle.DefaultSatisfaction(sc)
		}
		if rating.Score < 1 {
			rating.Score = 1
		} else if rating.Score > 5 {
			rating.Score = 5
		}
		scores[f.ID] = rating
	}
	return scores
}

// applyAdjustments redistributes toward the unsatisfied minority: targets
// are clamped to ±20% of the current share, donors are uninvolved families
// above 1.1x the average, and at most half the donor surplus moves. Returns
// whether anything actually changed.
func (s *Session) applyAdjustments(log *slog.Logger, al alloc.Allocation, unsatisfied []agents.AgentID, first map[agents.AgentID]oracle.Satisfaction) bool {
	poolGrain := s.Pool[agents.Grain]
	average := poolGrain / float64(len(s.Families))

	proposing := map[agents.AgentID]bool{}
	increases := map[agents.AgentID]float64{}
	var totalIncrease float64
	for _, id := range unsatisfied {
		proposing[id] = true
		rating := first[id]
		if rating.AdjustmentTarget == nil {
			continue
		}
		current := al.Amount(id, agents.Grain)
		target := *rating.AdjustmentTarget
		low, high := current*(1-adjustmentClamp), current*(1+adjustmentClamp)
		if target < low {
			target = low
		} else if target > high {
			target = high
		}
		if inc := target - current; inc > 0 {
			increases[id] = inc
			totalIncrease += inc
		}
	}
	if totalIncrease <= 0 {
		return false
	}

	surpluses := map[agents.AgentID]float64{}
	var totalSurplus float64
	for _, f := range s.Families {
		if proposing[f.ID] {
			continue
		}
		share := al.Amount(f.ID, agents.Grain)
		if share > average*adjustmentDonorBar {
			surpluses[f.ID] = share - average
			totalSurplus += share - average
		}
	}
	if totalSurplus <= 0 {
		return false
	}

	transfer := math.Min(totalIncrease, totalSurplus*adjustmentSurplusCap)
	if transfer <= adjustmentMinimum {
		return false
	}

	for id, surplus := range surpluses {
		al.Add(id, agents.Grain, -transfer*surplus/totalSurplus)
	}
	for id, inc := range increases {
		al.Add(id, agents.Grain, transfer*inc/totalIncrease)
	}

	log.Info("adjustment round applied", "transfer", transfer, "proposers", len(increases))
	return true
}

// scoreValues flattens a satisfaction round to its numeric scores.
func scoreValues(families []*agents.Agent, scores map[agents.AgentID]oracle.Satisfaction) map[agents.AgentID]float64 {
	out := make(map[agents.AgentID]float64, len(families))
	for _, f := range families {
		out[f.ID] = scores[f.ID].Score
	}
	return out
}

func averageScore(families []*agents.Agent, scores map[agents.AgentID]oracle.Satisfaction) float64 {
	if len(families) == 0 {
		return 0
	}
	var sum float64
	for _, f := range families {
		sum += scores[f.ID].Score
	}
	return sum / float64(len(families))
}
