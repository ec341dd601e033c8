package agents

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurvivalNeed(t *testing.T) {
	cases := []struct {
		name   string
		agent  Agent
		want   float64
	}{
		{"all laborers", Agent{Members: 4, LaborForce: 4}, 8},
		{"no laborers", Agent{Members: 4, LaborForce: 0}, 4},
		{"mixed", Agent{Members: 6, LaborForce: 2}, 8},
		{"single", Agent{Members: 1, LaborForce: 1}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.agent.SurvivalNeed())
		})
	}
}

func TestValidate(t *testing.T) {
	good := Agent{ID: 1, FamilyName: "Whitfield", Members: 5, LaborForce: 3}
	require.NoError(t, good.Validate())

	cases := []Agent{
		{ID: 2, FamilyName: "", Members: 3, LaborForce: 1},
		{ID: 3, FamilyName: "Empty", Members: 0, LaborForce: 0},
		{ID: 4, FamilyName: "Negative", Members: 3, LaborForce: -1},
		{ID: 5, FamilyName: "Overworked", Members: 3, LaborForce: 4},
	}
	for _, a := range cases {
		assert.Error(t, a.Validate(), a.FamilyName)
	}
}

func TestDependencyRatio(t *testing.T) {
	a := Agent{Members: 6, LaborForce: 2}
	assert.Equal(t, 3.0, a.DependencyRatio())

	laborless := Agent{Members: 4, LaborForce: 0}
	assert.True(t, math.IsInf(laborless.DependencyRatio(), 1))
}

func TestValueTypeRoundTrip(t *testing.T) {
	for _, v := range []ValueType{
		ValueEgalitarian, ValueNeedsBased, ValueMeritBased, ValueAltruistic, ValuePragmatic,
	} {
		parsed, err := ParseValueType(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, parsed)
	}

	_, err := ParseValueType("hedonistic")
	assert.Error(t, err)
}

func TestAgentJSON(t *testing.T) {
	a := Agent{ID: 2, FamilyName: "Harlan", ValueType: ValueNeedsBased, Members: 6, LaborForce: 2}
	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"value_type":"needs_based"`)

	var back Agent
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, a, back)
}

func TestRegistry(t *testing.T) {
	reg, err := NewRegistry(SampleCommunity())
	require.NoError(t, err)

	assert.Equal(t, 5, reg.Len())
	assert.Equal(t, 24, reg.TotalMembers())
	assert.Equal(t, 14, reg.TotalLabor())

	f, ok := reg.Get(2)
	require.True(t, ok)
	assert.Equal(t, "Harlan", f.FamilyName)

	_, ok = reg.Get(99)
	assert.False(t, ok)

	// Roster stays in ID order even when built out of order.
	shuffled := []*Agent{
		{ID: 3, FamilyName: "C", Members: 2, LaborForce: 1},
		{ID: 1, FamilyName: "A", Members: 2, LaborForce: 1},
		{ID: 2, FamilyName: "B", Members: 2, LaborForce: 1},
	}
	reg, err = NewRegistry(shuffled)
	require.NoError(t, err)
	ids := []AgentID{}
	for _, f := range reg.All() {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []AgentID{1, 2, 3}, ids)
}

func TestRegistryRejectsBadRosters(t *testing.T) {
	_, err := NewRegistry(nil)
	assert.Error(t, err)

	_, err = NewRegistry([]*Agent{
		{ID: 1, FamilyName: "A", Members: 2, LaborForce: 1},
		{ID: 1, FamilyName: "B", Members: 2, LaborForce: 1},
	})
	assert.Error(t, err)

	_, err = NewRegistry([]*Agent{
		{ID: 1, FamilyName: "", Members: 2, LaborForce: 1},
	})
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "families.json")
	payload := `[
		{"id": 1, "family_name": "Whitfield", "value_type": "egalitarian", "members": 5, "labor_force": 3},
		{"id": 2, "family_name": "Harlan", "value_type": "needs_based", "members": 6, "labor_force": 2}
	]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0644))

	reg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	f, _ := reg.Get(1)
	assert.Equal(t, ValueEgalitarian, f.ValueType)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestCheckSurvival(t *testing.T) {
	st := CheckSurvival(6, 8)
	assert.False(t, st.Satisfied)
	assert.Equal(t, 2.0, st.Shortfall)
	assert.InDelta(t, 0.75, st.SurplusRatio, 1e-9)

	st = CheckSurvival(10, 8)
	assert.True(t, st.Satisfied)
	assert.Zero(t, st.Shortfall)
	assert.InDelta(t, 1.25, st.SurplusRatio, 1e-9)
}
