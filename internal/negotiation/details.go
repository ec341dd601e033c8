package negotiation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/talgya/farmshare/internal/agents"
	"github.com/talgya/farmshare/internal/alloc"
	"github.com/talgya/farmshare/internal/oracle"
)

const (
	// conservationEpsilon is the imbalance tolerated before rescaling.
	conservationEpsilon = 0.01

	// mediation limits
	mediationTrigger     = 0.5  // min absolute net requested delta
	mediationPoolCap     = 0.10 // at most 10% of the pool moves
	mediationSurplusCap  = 0.30 // donors give at most 30% of total surplus
	mediationDonorFloor  = 1.0  // donors must hold this much above their need
	floorDonorShareLimit = 0.5  // survival-floor donors give at most half their surplus per transfer
)

// detailsOutcome is the third stage's output: a fractional allocation that
// exactly conserves the pool.
type detailsOutcome struct {
	allocation alloc.Allocation
	method     string
}

// runDetails computes the base allocation for the chosen framework, repairs
// survival-floor violations, hears objections, mediates when the dispute is
// material, and finally rescales to conserve the pool exactly.
func (s *Session) runDetails(ctx context.Context, log *slog.Logger, fw *frameworkOutcome) (*detailsOutcome, error) {
	al, err := s.baseAllocation(fw)
	if err != nil {
		return nil, err
	}

	s.repairSurvivalFloor(al)

	// Collect opinions. Oracle failures default to acceptance.
	var disputes []dispute
	var netDelta float64
	for _, f := range s.Families {
		allocated := al.Amount(f.ID, agents.Grain)
		op, opErr := s.Oracle.AllocationOpinion(ctx, f, oracle.OpinionContext{
			Round:     s.Round,
			Allocated: allocated,
			Need:      s.Needs.Amount(f.ID, agents.Grain),
			PoolTotal: s.Pool[agents.Grain],
			Method:    fw.method,
		})
		if opErr != nil {
			log.Warn("opinion query failed, treating as acceptance", "family", f.FamilyName, "error", opErr)
			op = oracle.DefaultOpinion(oracle.OpinionContext{Allocated: allocated})
		}
		if op.HasObjection {
			delta := op.ExpectedAmount - allocated
			netDelta += delta
			if delta > 0 {
				disputes = append(disputes, dispute{id: f.ID, requested: delta})
			}
			log.Info("objection raised",
				"family", f.FamilyName,
				"allocated", allocated,
				"expected", op.ExpectedAmount,
				"reason", op.Reason,
			)
		}
	}

	if len(disputes) > 0 && math.Abs(netDelta) >= mediationTrigger {
		s.mediate(log, al, disputes)
	}

	// Conservation checkpoint: rescale to the pool total exactly.
	poolGrain := s.Pool[agents.Grain]
	total := al.TotalOf(agents.Grain)
	if math.Abs(total-poolGrain) > conservationEpsilon {
		if total <= 0 {
			return nil, fmt.Errorf("details produced a zero-total allocation")
		}
		log.Info("rescaling allocation to conserve pool", "total", total, "pool", poolGrain)
		al.ScaleResource(agents.Grain, poolGrain/total)
	}

	log.Info("details stage complete", "method", fw.method, "disputes", len(disputes))
	return &detailsOutcome{allocation: al, method: fw.method}, nil
}

// baseAllocation builds the negotiation-internal allocation for the chosen
// method. These variants differ from the strategy library: they carve the
// pool into ratio tranches settled in the framework stage.
func (s *Session) baseAllocation(fw *frameworkOutcome) (alloc.Allocation, error) {
	poolGrain := s.Pool[agents.Grain]
	n := float64(len(s.Families))
	al := alloc.NewAllocation(s.Families)

	totalLabor := 0
	for _, f := range s.Families {
		totalLabor += f.LaborForce
	}

	switch fw.method {
	case MethodNeedsFirst:
		survivalBudget := poolGrain * fw.ratios[RatioSurvivalGuarantee]
		var needTotal float64
		for _, f := range s.Families {
			needTotal += s.Needs.Amount(f.ID, agents.Grain)
		}
		for _, f := range s.Families {
			if needTotal > 0 {
				al.Set(f.ID, agents.Grain, survivalBudget*s.Needs.Amount(f.ID, agents.Grain)/needTotal)
			} else {
				al.Set(f.ID, agents.Grain, survivalBudget/n)
			}
		}
		remainder := poolGrain - survivalBudget
		var weightSum float64
		weights := make(map[agents.AgentID]float64, len(s.Families))
		for _, f := range s.Families {
			w := float64(f.Members) * boundedDependencyRatio(f)
			weights[f.ID] = w
			weightSum += w
		}
		if weightSum > 0 {
			for _, f := range s.Families {
				al.Add(f.ID, agents.Grain, remainder*weights[f.ID]/weightSum)
			}
		}

	case MethodContributionBased:
		contributionBudget := poolGrain * fw.ratios[RatioContributionReward]
		for _, f := range s.Families {
			share := s.Needs.Amount(f.ID, agents.Grain)
			if totalLabor > 0 {
				share += contributionBudget * float64(f.LaborForce) / float64(totalLabor)
			} else {
				share += contributionBudget / n
			}
			al.Set(f.ID, agents.Grain, share)
		}

	case MethodEqualityBased:
		for _, f := range s.Families {
			al.Set(f.ID, agents.Grain, poolGrain/n)
		}

	case MethodBalancedHybrid:
		survivalBudget := poolGrain * fw.ratios[RatioSurvivalGuarantee]
		meritBudget := poolGrain * fw.ratios[RatioMeritPortion]
		equalBudget := poolGrain * fw.ratios[RatioEqualPortion]
		for _, f := range s.Families {
			share := math.Min(s.Needs.Amount(f.ID, agents.Grain), survivalBudget/n)
			if totalLabor > 0 {
				share += meritBudget * float64(f.LaborForce) / float64(totalLabor)
			} else {
				share += meritBudget / n
			}
			share += equalBudget / n
			al.Set(f.ID, agents.Grain, share)
		}

	default:
		return nil, fmt.Errorf("unknown base method %q", fw.method)
	}

	return al, nil
}

// boundedDependencyRatio is members per laborer capped for weighting: a
// family with no labor force counts as maximally burdened at ratio 2.
func boundedDependencyRatio(f *agents.Agent) float64 {
	if f.LaborForce == 0 {
		return 2.0
	}
	return float64(f.Members) / float64(f.LaborForce)
}

// repairSurvivalFloor pulls grain from families above their own survival
// need to any family below it. Donors are visited surplus-descending and
// each gives at most half its surplus per transfer.
func (s *Session) repairSurvivalFloor(al alloc.Allocation) {
	for _, f := range s.Families {
		need := s.Needs.Amount(f.ID, agents.Grain)
		deficit := need - al.Amount(f.ID, agents.Grain)
		if deficit <= 0 {
			continue
		}

		type donor struct {
			id      agents.AgentID
			surplus float64
		}
		var donors []donor
		for _, d := range s.Families {
			if d.ID == f.ID {
				continue
			}
			surplus := al.Amount(d.ID, agents.Grain) - s.Needs.Amount(d.ID, agents.Grain)
			if surplus > 0 {
				donors = append(donors, donor{id: d.ID, surplus: surplus})
			}
		}
		sort.SliceStable(donors, func(i, j int) bool { return donors[i].surplus > donors[j].surplus })

		for _, d := range donors {
			if deficit <= 0 {
				break
			}
			give := math.Min(d.surplus*floorDonorShareLimit, deficit)
			al.Add(d.id, agents.Grain, -give)
			al.Add(f.ID, agents.Grain, give)
			deficit -= give
		}
	}
}

// dispute is one family's requested increase over its proposed share.
type dispute struct {
	id        agents.AgentID
	requested float64
}

// mediate moves a bounded amount of grain from non-disputing surplus
// families toward disputants, proportional to each requested increase.
func (s *Session) mediate(log *slog.Logger, al alloc.Allocation, disputes []dispute) {
	poolGrain := s.Pool[agents.Grain]

	var totalRequested float64
	disputing := map[agents.AgentID]bool{}
	for _, d := range disputes {
		totalRequested += d.requested
		disputing[d.id] = true
	}
	if totalRequested <= 0 {
		return
	}

	type donor struct {
		id      agents.AgentID
		surplus float64
	}
	var donors []donor
	var totalSurplus float64
	for _, f := range s.Families {
		if disputing[f.ID] {
			continue
		}
		surplus := al.Amount(f.ID, agents.Grain) - s.Needs.Amount(f.ID, agents.Grain)
		if surplus > mediationDonorFloor {
			donors = append(donors, donor{id: f.ID, surplus: surplus})
			totalSurplus += surplus
		}
	}
	if totalSurplus <= 0 {
		return
	}

	capAmount := math.Min(totalRequested, poolGrain*mediationPoolCap)
	transfer := math.Min(capAmount, totalSurplus*mediationSurplusCap)
	if transfer <= 0 {
		return
	}

	for _, d := range donors {
		al.Add(d.id, agents.Grain, -transfer*d.surplus/totalSurplus)
	}
	for _, d := range disputes {
		al.Add(d.id, agents.Grain, transfer*d.requested/totalRequested)
	}

	log.Info("mediation applied", "transfer", transfer, "disputants", len(disputes), "donors", len(donors))
}
