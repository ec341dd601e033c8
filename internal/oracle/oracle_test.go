package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/farmshare/internal/agents"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"needs_first", PrincipleNeedsFirst},
		{"  Equal  ", PrincipleEqual},
		{"split everything evenly", PrincipleEqual},
		{"protect the needy", PrincipleProtectVulnerable}, // protect wins over need
		{"those who work harder deserve more", PrincipleMeritBased},
		{"basic needs come first", PrincipleNeedsFirst},
		{"maximize output", PrincipleEfficiency},
		{"think of future harvests", PrincipleSustainability},
		{"", ""},
		{"vibes", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.raw), "raw %q", tc.raw)
	}
}

func TestDefaultPrinciplesInCharacter(t *testing.T) {
	for _, v := range []agents.ValueType{
		agents.ValueEgalitarian, agents.ValueNeedsBased, agents.ValueMeritBased,
		agents.ValueAltruistic, agents.ValuePragmatic,
	} {
		resp := DefaultPrinciples(v)
		require.Len(t, resp.Ranked, 3, v.String())
		for _, p := range resp.Ranked {
			assert.Equal(t, p, Normalize(p), "principle %q must be canonical", p)
		}
	}

	assert.Equal(t, PrincipleEqual, DefaultPrinciples(agents.ValueEgalitarian).Ranked[0])
	assert.Equal(t, PrincipleMeritBased, DefaultPrinciples(agents.ValueMeritBased).Ranked[0])
}

func TestDefaultSatisfaction(t *testing.T) {
	cases := []struct {
		allocated, need float64
		want            float64
	}{
		{6, 8, 2},   // shortfall
		{8, 8, 3},   // exactly covered
		{8.5, 8, 3}, // surplus but under 10%
		{9, 8, 4},   // comfortable surplus
		{5, 0, 3},   // no need defined
	}
	for _, tc := range cases {
		got := DefaultSatisfaction(SatisfactionContext{Allocated: tc.allocated, Need: tc.need})
		assert.Equal(t, tc.want, got.Score, "allocated %g need %g", tc.allocated, tc.need)
	}
}

func TestDefaultOpinionAccepts(t *testing.T) {
	op := DefaultOpinion(OpinionContext{Allocated: 12.5})
	assert.False(t, op.HasObjection)
	assert.Equal(t, 12.5, op.ExpectedAmount)
}

// failingOracle errors a fixed number of times before succeeding.
type failingOracle struct {
	failures int
	calls    int
}

func (f *failingOracle) attempt() error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("model unavailable")
	}
	return nil
}

func (f *failingOracle) PrinciplePreferences(ctx context.Context, a *agents.Agent, pc PrincipleContext) (PrincipleResponse, error) {
	if err := f.attempt(); err != nil {
		return PrincipleResponse{}, err
	}
	return PrincipleResponse{Ranked: []string{PrincipleSustainability}}, nil
}

func (f *failingOracle) Persuade(ctx context.Context, advocate *agents.Agent, pc PersuasionContext) (PersuasionResponse, error) {
	if err := f.attempt(); err != nil {
		return PersuasionResponse{}, err
	}
	return PersuasionResponse{Argument: "hear us out"}, nil
}

func (f *failingOracle) AllocationOpinion(ctx context.Context, a *agents.Agent, oc OpinionContext) (Opinion, error) {
	if err := f.attempt(); err != nil {
		return Opinion{}, err
	}
	return Opinion{HasObjection: true, ExpectedAmount: 99}, nil
}

func (f *failingOracle) SatisfactionRating(ctx context.Context, a *agents.Agent, sc SatisfactionContext) (Satisfaction, error) {
	if err := f.attempt(); err != nil {
		return Satisfaction{}, err
	}
	return Satisfaction{Score: 9}, nil
}

func TestBoundaryRetriesThenSucceeds(t *testing.T) {
	judge := &failingOracle{failures: 2}
	b := NewBoundary(judge, RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}, nil)
	family := &agents.Agent{ID: 1, FamilyName: "Whitfield", ValueType: agents.ValueEgalitarian, Members: 5, LaborForce: 3}

	resp, err := b.PrinciplePreferences(context.Background(), family, PrincipleContext{})
	require.NoError(t, err)
	assert.Equal(t, []string{PrincipleSustainability}, resp.Ranked)
	assert.Equal(t, 3, judge.calls)
}

func TestBoundaryFallsBackToDefaults(t *testing.T) {
	judge := &failingOracle{failures: 1000}
	b := NewBoundary(judge, RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond}, nil)
	family := &agents.Agent{ID: 3, FamilyName: "Mercer", ValueType: agents.ValueMeritBased, Members: 4, LaborForce: 4}

	resp, err := b.PrinciplePreferences(context.Background(), family, PrincipleContext{})
	require.NoError(t, err)
	assert.Equal(t, DefaultPrinciples(agents.ValueMeritBased).Ranked, resp.Ranked)

	op, err := b.AllocationOpinion(context.Background(), family, OpinionContext{Allocated: 20})
	require.NoError(t, err)
	assert.False(t, op.HasObjection)
	assert.Equal(t, 20.0, op.ExpectedAmount)

	sat, err := b.SatisfactionRating(context.Background(), family, SatisfactionContext{Allocated: 10, Need: 8})
	require.NoError(t, err)
	assert.Equal(t, 4.0, sat.Score)
}

func TestBoundaryClampsScore(t *testing.T) {
	judge := &failingOracle{failures: 0}
	b := NewBoundary(judge, RetryPolicy{MaxAttempts: 1}, nil)
	family := &agents.Agent{ID: 5, FamilyName: "Pryce", ValueType: agents.ValuePragmatic, Members: 4, LaborForce: 3}

	sat, err := b.SatisfactionRating(context.Background(), family, SatisfactionContext{})
	require.NoError(t, err)
	assert.Equal(t, 5.0, sat.Score)
}

func TestBoundaryNilJudgeAnswersImmediately(t *testing.T) {
	b := NewBoundary(nil, DefaultRetryPolicy(), nil)
	family := &agents.Agent{ID: 4, FamilyName: "Alden", ValueType: agents.ValueAltruistic, Members: 5, LaborForce: 2}

	resp, err := b.PrinciplePreferences(context.Background(), family, PrincipleContext{})
	require.NoError(t, err)
	assert.Equal(t, PrincipleProtectVulnerable, resp.Ranked[0])
}

func TestBoundaryHonorsContextCancellation(t *testing.T) {
	judge := &failingOracle{failures: 1000}
	b := NewBoundary(judge, RetryPolicy{MaxAttempts: 10, Backoff: time.Hour}, nil)
	family := &agents.Agent{ID: 1, FamilyName: "Whitfield", Members: 5, LaborForce: 3}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, err := b.PrinciplePreferences(ctx, family, PrincipleContext{})
		assert.NoError(t, err)
		assert.NotEmpty(t, resp.Ranked) // default, not an hour-long retry loop
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("boundary ignored cancelled context")
	}
}
