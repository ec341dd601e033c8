package negotiation

import (
	"context"
	"log/slog"
	"sort"

	"github.com/talgya/farmshare/internal/agents"
	"github.com/talgya/farmshare/internal/oracle"
)

// principlesOutcome is the first stage's output: the adopted principle set
// and who supported what.
type principlesOutcome struct {
	adopted []string
	support map[string][]agents.AgentID
}

// runPrinciples collects each family's ranked principles, adopts those with
// majority support, and gives the two most-supported leftovers a persuasion
// round decided by the alignment table.
func (s *Session) runPrinciples(ctx context.Context, log *slog.Logger) (*principlesOutcome, error) {
	pc := oracle.PrincipleContext{
		Round:        s.Round,
		PoolTotal:    s.Pool.Total(),
		FamilyCount:  len(s.Families),
		CanonicalSet: oracle.CanonicalPrinciples(),
	}

	support := map[string][]agents.AgentID{}
	var seenOrder []string

	for _, f := range s.Families {
		resp, err := s.Oracle.PrinciplePreferences(ctx, f, pc)
		if err != nil {
			// Oracle failure is data, not an exception.
			log.Warn("principle query failed, using default", "family", f.FamilyName, "error", err)
			resp = oracle.DefaultPrinciples(f.ValueType)
		}

		accepted := 0
		dedup := map[string]bool{}
		for _, raw := range resp.Ranked {
			p := oracle.Normalize(raw)
			if p == "" || dedup[p] {
				continue
			}
			dedup[p] = true
			if _, known := support[p]; !known {
				seenOrder = append(seenOrder, p)
			}
			support[p] = append(support[p], f.ID)
			accepted++
			if accepted == s.Config.MaxPrinciples {
				break
			}
		}
	}

	threshold := majority(len(s.Families))

	var adopted []string
	adoptedSet := map[string]bool{}
	for _, p := range seenOrder {
		if len(support[p]) >= threshold {
			adopted = append(adopted, p)
			adoptedSet[p] = true
		}
	}

	// Persuasion round for the two most-supported unadopted principles.
	var candidates []string
	for _, p := range seenOrder {
		if !adoptedSet[p] {
			candidates = append(candidates, p)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(support[candidates[i]]) > len(support[candidates[j]])
	})
	if len(candidates) > 2 {
		candidates = candidates[:2]
	}

	for _, p := range candidates {
		supporters := support[p]
		if len(supporters) <= 1 {
			continue
		}

		advocate, ok := s.familyByID(supporters[0])
		if !ok {
			continue
		}

		names := make([]string, 0, len(supporters))
		for _, id := range supporters {
			if f, ok := s.familyByID(id); ok {
				names = append(names, f.FamilyName)
			}
		}

		appeal, err := s.Oracle.Persuade(ctx, advocate, oracle.PersuasionContext{
			Principle:  p,
			Supporters: names,
			Round:      s.Round,
		})
		if err != nil {
			log.Warn("persuasion query failed, using default", "family", advocate.FamilyName, "error", err)
			appeal = oracle.DefaultPersuasion(oracle.PersuasionContext{Principle: p})
		}

		// The argument's content is opaque; the alignment table alone
		// decides who comes around.
		convinced := 0
		supporterSet := map[agents.AgentID]bool{}
		for _, id := range supporters {
			supporterSet[id] = true
		}
		for _, f := range s.Families {
			if !supporterSet[f.ID] && s.Config.Convinces(p, f.ValueType) {
				convinced++
			}
		}

		log.Info("persuasion round",
			"principle", p,
			"advocate", advocate.FamilyName,
			"argument", appeal.Argument,
			"supporters", len(supporters),
			"convinced", convinced,
		)

		if len(supporters)+convinced >= threshold {
			adopted = append(adopted, p)
			adoptedSet[p] = true
		}
	}

	log.Info("principles stage complete", "adopted", adopted)
	return &principlesOutcome{adopted: adopted, support: support}, nil
}

func (s *Session) familyByID(id agents.AgentID) (*agents.Agent, bool) {
	for _, f := range s.Families {
		if f.ID == id {
			return f, true
		}
	}
	return nil, false
}
