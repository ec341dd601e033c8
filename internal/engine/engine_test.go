package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/farmshare/internal/agents"
	"github.com/talgya/farmshare/internal/negotiation"
	"github.com/talgya/farmshare/internal/oracle"
)

func TestSatisfactionEfficiency(t *testing.T) {
	assert.InDelta(t, 1.0, SatisfactionEfficiency(2.5), 1e-9)
	assert.InDelta(t, 1.2, SatisfactionEfficiency(5), 1e-9)
	assert.InDelta(t, 1.2, SatisfactionEfficiency(4), 1e-9)
	assert.InDelta(t, 0.82, SatisfactionEfficiency(1), 1e-9)
	assert.InDelta(t, 0.8, SatisfactionEfficiency(0), 1e-9)
}

func TestProduction(t *testing.T) {
	// No usable input: natural growth only.
	assert.InDelta(t, 5.0, Production(8, 8, 3, 1.0, 1.0, nil), 1e-9)

	// No labor: natural growth only, whatever the input.
	assert.InDelta(t, 5.0, Production(20, 4, 0, 1.0, 1.0, nil), 1e-9)

	// 10 grain worked by 2 laborers at density 0.2.
	assert.InDelta(t, 17.0, Production(18, 8, 2, 1.0, 1.0, nil), 1e-9)

	// Input beyond the labor cap is wasted; output matches the capped case.
	assert.InDelta(t, 17.0, Production(30, 8, 2, 1.0, 1.0, nil), 1e-9)

	// Satisfaction and seasonal yield scale the harvest.
	assert.InDelta(t, 17.0*0.9, Production(18, 8, 2, 1.0, 0.9, nil), 1e-9)
	assert.Greater(t, Production(18, 8, 2, 1.2, 1.0, nil), Production(18, 8, 2, 0.8, 1.0, nil))
}

func TestGenerator(t *testing.T) {
	g := NewGenerator(100)
	assert.InDelta(t, 100.0, g.Current.Total(), 1e-9)
	assert.InDelta(t, 1.0, g.SustainabilityIndex, 1e-9)

	next := g.NextRound(map[agents.AgentID]float64{1: 40, 2: 45})
	assert.InDelta(t, 85.0, next.Total(), 1e-9)
	assert.InDelta(t, 0.85, g.SustainabilityIndex, 1e-9)
	assert.True(t, g.OveruseWarning)

	next = g.NextRound(map[agents.AgentID]float64{1: 50, 2: 45})
	assert.InDelta(t, 95.0, next.Total(), 1e-9)
	assert.InDelta(t, 95.0/85.0, g.SustainabilityIndex, 1e-9)
	assert.False(t, g.OveruseWarning)
}

func testSimulation(t *testing.T, method string) *Simulation {
	t.Helper()
	reg, err := agents.NewRegistry(agents.SampleCommunity())
	require.NoError(t, err)

	boundary := oracle.NewBoundary(nil, oracle.DefaultRetryPolicy(), nil)
	sim, err := NewSimulation(reg, method, boundary, negotiation.DefaultConfig(), 100, 1, nil)
	require.NoError(t, err)
	return sim
}

func TestNewSimulationRejectsUnknownMethod(t *testing.T) {
	reg, err := agents.NewRegistry(agents.SampleCommunity())
	require.NoError(t, err)
	boundary := oracle.NewBoundary(nil, oracle.DefaultRetryPolicy(), nil)

	_, err = NewSimulation(reg, "tribute", boundary, negotiation.DefaultConfig(), 100, 1, nil)
	assert.Error(t, err)
}

func TestRunRoundStrategy(t *testing.T) {
	sim := testSimulation(t, "equal")

	for round := 1; round <= 3; round++ {
		result, err := sim.RunRound(context.Background())
		require.NoError(t, err)

		assert.Equal(t, round, result.Round)
		assert.True(t, result.NegotiationSuccess)

		// Integerization conserves the rounded pool total.
		assert.InDelta(t, result.PoolTotal, result.Allocation.Total(), 0.5+1e-9)

		// Seasonal yield stays within ±10% of baseline.
		assert.GreaterOrEqual(t, result.YieldFactor, 0.9)
		assert.LessOrEqual(t, result.YieldFactor, 1.1)

		assert.Len(t, result.Productions, sim.Registry.Len())
		assert.InDelta(t, result.NextPoolTotal, sim.Snapshot().PoolTotal, 1e-9)
		assert.Greater(t, result.SustainabilityIndex, 0.0)
	}
	assert.Equal(t, 3, sim.Snapshot().Rounds)
}

func TestRunRoundNegotiationWithDefaults(t *testing.T) {
	// With no judge, every family answers from its value-type defaults; the
	// pipeline still reaches a full consensus deterministically.
	sim := testSimulation(t, MethodNegotiation)

	result, err := sim.RunRound(context.Background())
	require.NoError(t, err)

	assert.True(t, result.NegotiationSuccess)
	assert.Equal(t, "success", result.FinalStage)
	assert.InDelta(t, 100.0, result.Allocation.Total(), 1e-9)
	assert.InDelta(t, 4.0, result.AverageSatisfaction, 1e-9)

	for _, f := range sim.Registry.All() {
		st := result.SurvivalStatus[f.ID]
		assert.True(t, st.Satisfied, f.FamilyName)
	}
}

// ratedOracle answers the judgment queries with value-type defaults except
// for satisfaction, which it scores per family.
type ratedOracle struct {
	scores map[agents.AgentID]float64
}

func (o *ratedOracle) PrinciplePreferences(ctx context.Context, a *agents.Agent, pc oracle.PrincipleContext) (oracle.PrincipleResponse, error) {
	return oracle.DefaultPrinciples(a.ValueType), nil
}

func (o *ratedOracle) Persuade(ctx context.Context, advocate *agents.Agent, pc oracle.PersuasionContext) (oracle.PersuasionResponse, error) {
	return oracle.DefaultPersuasion(pc), nil
}

func (o *ratedOracle) AllocationOpinion(ctx context.Context, a *agents.Agent, oc oracle.OpinionContext) (oracle.Opinion, error) {
	return oracle.DefaultOpinion(oc), nil
}

func (o *ratedOracle) SatisfactionRating(ctx context.Context, a *agents.Agent, sc oracle.SatisfactionContext) (oracle.Satisfaction, error) {
	return oracle.Satisfaction{Score: o.scores[a.ID]}, nil
}

func TestRunRoundUsesPerFamilySatisfaction(t *testing.T) {
	// One delighted family among content ones: each family's output must
	// reflect its own score, not the session average.
	scores := map[agents.AgentID]float64{1: 5, 2: 3, 3: 3, 4: 3, 5: 3}
	reg, err := agents.NewRegistry(agents.SampleCommunity())
	require.NoError(t, err)

	sim, err := NewSimulation(reg, MethodNegotiation, &ratedOracle{scores: scores}, negotiation.DefaultConfig(), 100, 1, nil)
	require.NoError(t, err)

	result, err := sim.RunRound(context.Background())
	require.NoError(t, err)
	require.True(t, result.NegotiationSuccess)

	for _, f := range reg.All() {
		allocated := result.Allocation.Amount(f.ID, agents.Grain)
		want := Production(allocated, f.SurvivalNeed(), f.LaborForce,
			SatisfactionEfficiency(scores[f.ID]), result.YieldFactor, nil)
		assert.InDelta(t, want, result.Productions[f.ID], 1e-9, f.FamilyName)
	}

	// The delighted family out-produces the averaged-score baseline.
	f1 := reg.All()[0]
	averaged := Production(result.Allocation.Amount(f1.ID, agents.Grain), f1.SurvivalNeed(), f1.LaborForce,
		SatisfactionEfficiency(result.AverageSatisfaction), result.YieldFactor, nil)
	assert.Greater(t, result.Productions[f1.ID], averaged)
}

func TestSnapshotDuringConcurrentRounds(t *testing.T) {
	sim := testSimulation(t, "equal")

	const rounds = 5
	errs := make(chan error, 1)
	go func() {
		for i := 0; i < rounds; i++ {
			if _, err := sim.RunRound(context.Background()); err != nil {
				errs <- err
				return
			}
		}
		errs <- nil
	}()

	// Read snapshots while the rounds run; completed results are always
	// internally consistent.
	for {
		snap := sim.Snapshot()
		assert.LessOrEqual(t, snap.Rounds, rounds)
		if snap.Last != nil {
			assert.Equal(t, snap.ExperimentID, snap.Last.ExperimentID)
		}
		for _, rr := range sim.HistoryTail(3) {
			assert.Greater(t, rr.Round, 0)
		}

		select {
		case err := <-errs:
			require.NoError(t, err)
			assert.Equal(t, rounds, sim.Snapshot().Rounds)
			return
		default:
		}
	}
}

func TestResetStartsFreshExperiment(t *testing.T) {
	sim := testSimulation(t, "equal")
	_, err := sim.RunRound(context.Background())
	require.NoError(t, err)

	before := sim.Snapshot()
	id := sim.Reset(100)
	after := sim.Snapshot()

	assert.NotEqual(t, before.ExperimentID, id)
	assert.Equal(t, id, after.ExperimentID)
	assert.Equal(t, 0, after.Rounds)
	assert.InDelta(t, 100.0, after.PoolTotal, 1e-9)

	result, err := sim.RunRound(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Round)
	assert.Equal(t, id, result.ExperimentID)
}

func TestRunRoundReportLayers(t *testing.T) {
	sim := testSimulation(t, "needs_based")

	result, err := sim.RunRound(context.Background())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.Report.Allocation.Gini, 0.0)
	assert.Less(t, result.Report.Allocation.Gini, 1.0)
	assert.Greater(t, result.Report.Outcome.Mean, 0.0)
}
