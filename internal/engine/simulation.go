package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/farmshare/internal/agents"
	"github.com/talgya/farmshare/internal/alloc"
	"github.com/talgya/farmshare/internal/negotiation"
	"github.com/talgya/farmshare/internal/oracle"
	"github.com/talgya/farmshare/internal/stats"
	"github.com/talgya/farmshare/internal/weather"
)

// MethodNegotiation selects the negotiation pipeline instead of a single
// strategy from the library.
const MethodNegotiation = "negotiation"

// RoundResult captures one completed round.
type RoundResult struct {
	ExperimentID        string                                   `json:"experiment_id"`
	Round               int                                      `json:"round"`
	Method              string                                   `json:"method"`
	PoolTotal           float64                                  `json:"pool_total"`
	Allocation          alloc.Allocation                         `json:"allocation"`
	Report              stats.Report                             `json:"report"`
	AverageSatisfaction float64                                  `json:"average_satisfaction"`
	NegotiationSuccess  bool                                     `json:"negotiation_success"`
	FinalStage          string                                   `json:"final_stage,omitempty"`
	Productions         map[agents.AgentID]float64               `json:"productions"`
	SurvivalStatus      map[agents.AgentID]agents.SurvivalStatus `json:"survival_status"`
	YieldFactor         float64                                  `json:"yield_factor"`
	NextPoolTotal       float64                                  `json:"next_pool_total"`
	SustainabilityIndex float64                                  `json:"sustainability_index"`
}

// Simulation runs the allocation experiment round by round. Rounds run
// single-threaded; mu lets the HTTP handlers read state between and during
// rounds without tearing.
type Simulation struct {
	Registry  *agents.Registry
	Method    string
	Oracle    oracle.Oracle
	NegConfig negotiation.Config
	Log       *slog.Logger

	// Weather optionally overlays real-world growing conditions on the
	// harvest. Nil means a neutral overlay.
	Weather *weather.Client

	// mu guards ExperimentID, Round, History, and Gen.
	mu           sync.RWMutex
	ExperimentID string
	Round        int
	History      []*RoundResult
	Gen          *Generator

	noise opensimplex.Noise
}

// Snapshot is a consistent view of the simulation's mutable state for
// concurrent readers.
type Snapshot struct {
	ExperimentID        string
	Round               int
	Rounds              int
	PoolTotal           float64
	SustainabilityIndex float64
	Last                *RoundResult
}

// NewSimulation wires up a simulation. The seed only feeds the seasonal
// yield noise; allocation itself stays deterministic.
func NewSimulation(reg *agents.Registry, method string, orc oracle.Oracle, cfg negotiation.Config, initialGrain float64, seed int64, log *slog.Logger) (*Simulation, error) {
	if method != MethodNegotiation {
		if _, err := alloc.ParseStrategy(method); err != nil {
			return nil, fmt.Errorf("simulation: %w", err)
		}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Simulation{
		ExperimentID: uuid.NewString(),
		Registry:     reg,
		Method:       method,
		Oracle:       orc,
		Gen:          NewGenerator(initialGrain),
		NegConfig:    cfg,
		Log:          log,
		noise:        opensimplex.NewNormalized(seed),
	}, nil
}

// Reset abandons the current experiment: fresh ID, empty history, replenished
// pool. The next round starts at 1. Returns the new experiment ID.
func (s *Simulation) Reset(initialGrain float64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ExperimentID = uuid.NewString()
	s.Round = 0
	s.History = nil
	s.Gen = NewGenerator(initialGrain)
	return s.ExperimentID
}

// Snapshot reads the simulation's mutable state in one locked pass.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		ExperimentID:        s.ExperimentID,
		Round:               s.Round,
		Rounds:              len(s.History),
		PoolTotal:           s.Gen.Current.Total(),
		SustainabilityIndex: s.Gen.SustainabilityIndex,
	}
	if n := len(s.History); n > 0 {
		snap.Last = s.History[n-1]
	}
	return snap
}

// HistoryTail copies the most recent results, oldest first.
func (s *Simulation) HistoryTail(limit int) []*RoundResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if limit > 0 && len(s.History) > limit {
		start = len(s.History) - limit
	}
	return append([]*RoundResult(nil), s.History[start:]...)
}

// RunRound executes one full round: allocate, integerize, evaluate, produce,
// regenerate.
func (s *Simulation) RunRound(ctx context.Context) (*RoundResult, error) {
	s.mu.Lock()
	s.Round++
	round := s.Round
	experimentID := s.ExperimentID
	pool := s.Gen.Current.Clone()
	s.mu.Unlock()

	families := s.Registry.All()
	needs := alloc.Needs(agents.SurvivalNeedsByAgent(families))

	result := &RoundResult{
		ExperimentID: experimentID,
		Round:        round,
		Method:       s.Method,
		PoolTotal:    pool.Total(),
	}

	satisfaction := make(map[agents.AgentID]float64, len(families))

	if s.Method == MethodNegotiation {
		session := &negotiation.Session{
			Families: families,
			Pool:     pool,
			Needs:    needs,
			Round:    round,
			Oracle:   s.Oracle,
			Config:   s.NegConfig,
			Log:      s.Log,
		}
		neg := session.Run(ctx)
		result.Allocation = neg.Allocation
		result.AverageSatisfaction = neg.AverageSatisfaction
		result.NegotiationSuccess = neg.Success
		result.FinalStage = neg.FinalStageName
		for id, score := range neg.Satisfaction {
			satisfaction[id] = score
		}
	} else {
		strategy, err := alloc.ParseStrategy(s.Method)
		if err != nil {
			return nil, err
		}
		al := alloc.Distribute(strategy, pool, families, needs)
		alloc.IntegerizeResource(al, agents.Grain, needs, strategy.EnforcesFloor())
		result.Allocation = al
		result.NegotiationSuccess = true
		result.AverageSatisfaction = s.evaluate(ctx, round, al, needs, families, satisfaction)
	}

	// Survival check and production.
	result.SurvivalStatus = make(map[agents.AgentID]agents.SurvivalStatus, len(families))
	result.Productions = make(map[agents.AgentID]float64, len(families))
	result.YieldFactor = s.yieldFactor(round)
	for _, f := range families {
		allocated := result.Allocation.Amount(f.ID, agents.Grain)
		need := needs.Amount(f.ID, agents.Grain)
		result.SurvivalStatus[f.ID] = agents.CheckSurvival(allocated, need)

		satEff := 1.0
		if score, ok := satisfaction[f.ID]; ok && score > 0 {
			satEff = SatisfactionEfficiency(score)
		}
		result.Productions[f.ID] = Production(allocated, need, f.LaborForce, satEff, result.YieldFactor, s.Log)
	}

	result.Report = stats.BuildReport(families, result.Allocation, needs, result.Productions)

	s.mu.Lock()
	next := s.Gen.NextRound(result.Productions)
	result.NextPoolTotal = next.Total()
	result.SustainabilityIndex = s.Gen.SustainabilityIndex
	overuse := s.Gen.OveruseWarning
	s.History = append(s.History, result)
	s.mu.Unlock()

	s.Log.Info("round complete",
		"experiment", experimentID,
		"round", result.Round,
		"method", result.Method,
		"pool", result.PoolTotal,
		"gini_allocation", result.Report.Allocation.Gini,
		"gini_effective", result.Report.EffectiveInput.Gini,
		"gini_outcome", result.Report.Outcome.Gini,
		"avg_satisfaction", result.AverageSatisfaction,
		"next_pool", result.NextPoolTotal,
		"sustainability", result.SustainabilityIndex,
	)
	if overuse {
		s.Log.Warn("community pool shrinking", "sustainability", result.SustainabilityIndex)
	}

	return result, nil
}

// evaluate asks every family to rate the final plan; this is the strategy
// path's stand-in for the negotiation's feedback round.
func (s *Simulation) evaluate(ctx context.Context, round int, al alloc.Allocation, needs alloc.Needs, families []*agents.Agent, satisfaction map[agents.AgentID]float64) float64 {
	average := al.TotalOf(agents.Grain) / float64(len(families))

	var sum float64
	for _, f := range families {
		sc := oracle.SatisfactionContext{
			Round:         round,
			FeedbackRound: 1,
			Allocated:     al.Amount(f.ID, agents.Grain),
			Need:          needs.Amount(f.ID, agents.Grain),
			AverageShare:  average,
		}
		rating, err := s.Oracle.SatisfactionRating(ctx, f, sc)
		if err != nil {
			s.Log.Warn("evaluation query failed, using default", "family", f.FamilyName, "error", err)
			rating = oracle.DefaultSatisfaction(sc)
		}
		satisfaction[f.ID] = rating.Score
		sum += rating.Score
	}
	return sum / float64(len(families))
}

// yieldFactor is the seasonal harvest modifier: smooth noise over rounds
// within ±10% of baseline, shaded by real growing conditions when a weather
// client is configured.
func (s *Simulation) yieldFactor(round int) float64 {
	seasonal := 0.9 + 0.2*s.noise.Eval2(float64(round)*0.35, 0)
	return seasonal * weather.CurrentModifier(s.Weather)
}
