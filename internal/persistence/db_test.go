package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/farmshare/internal/agents"
	"github.com/talgya/farmshare/internal/alloc"
	"github.com/talgya/farmshare/internal/engine"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFamiliesRoundTrip(t *testing.T) {
	db := openTestDB(t)
	families := agents.SampleCommunity()

	require.NoError(t, db.SaveFamilies(families))

	loaded, err := db.LoadFamilies()
	require.NoError(t, err)
	require.Len(t, loaded, len(families))
	for i, f := range families {
		assert.Equal(t, *f, *loaded[i])
	}

	// Save is a full replace.
	require.NoError(t, db.SaveFamilies(families[:2]))
	loaded, err = db.LoadFamilies()
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestSaveAndLoadRounds(t *testing.T) {
	db := openTestDB(t)
	const experiment = "exp-1"

	for round := 1; round <= 3; round++ {
		rr := &engine.RoundResult{
			Round:               round,
			Method:              "negotiation",
			PoolTotal:           100,
			Allocation:          alloc.Allocation{1: {agents.Grain: 60}, 2: {agents.Grain: 40}},
			AverageSatisfaction: 4,
			NegotiationSuccess:  true,
			FinalStage:          "success",
			Productions:         map[agents.AgentID]float64{1: 50, 2: 45},
			SustainabilityIndex: 0.95,
		}
		require.NoError(t, db.SaveRound(experiment, rr))
	}

	rows, err := db.RecentRounds(experiment, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Oldest first within the window.
	assert.Equal(t, 2, rows[0].Round)
	assert.Equal(t, 3, rows[1].Round)
	assert.Equal(t, "negotiation", rows[0].Method)
	assert.Equal(t, 1, rows[0].NegotiationSuccess)
	assert.Contains(t, rows[0].AllocationJSON, `"grain":60`)

	// Other experiments stay invisible.
	rows, err = db.RecentRounds("exp-2", 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveMeta("experiment_id", "abc"))
	v, err := db.GetMeta("experiment_id")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	require.NoError(t, db.SaveMeta("experiment_id", "def"))
	v, err = db.GetMeta("experiment_id")
	require.NoError(t, err)
	assert.Equal(t, "def", v)

	_, err = db.GetMeta("missing")
	assert.Error(t, err)
}
