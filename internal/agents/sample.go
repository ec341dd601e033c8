package agents

// SampleCommunity returns the default five-family roster, one family per
// value orientation, used when no agents file is supplied.
func SampleCommunity() []*Agent {
	return []*Agent{
		{ID: 1, FamilyName: "Whitfield", ValueType: ValueEgalitarian, Members: 5, LaborForce: 3},
		{ID: 2, FamilyName: "Harlan", ValueType: ValueNeedsBased, Members: 6, LaborForce: 2},
		{ID: 3, FamilyName: "Mercer", ValueType: ValueMeritBased, Members: 4, LaborForce: 4},
		{ID: 4, FamilyName: "Alden", ValueType: ValueAltruistic, Members: 5, LaborForce: 2},
		{ID: 5, FamilyName: "Pryce", ValueType: ValuePragmatic, Members: 4, LaborForce: 3},
	}
}
