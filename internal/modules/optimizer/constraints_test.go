package optimizer

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBounds_Defaults(t *testing.T) {
	req := Request{TotalBudget: 3000, Objective: ObjectiveMaximizeConversions}

	bounds, err := ResolveBounds([]string{"c1", "c2", "c3"}, req, zerolog.Nop())
	require.NoError(t, err)

	for _, id := range bounds.IDs {
		assert.Equal(t, 0.0, bounds.Min[id])
		// Unset max is capped at the total budget
		assert.Equal(t, 3000.0, bounds.Max[id])
	}
}

func TestResolveBounds_MinTimesNExceedsTotal(t *testing.T) {
	req := Request{
		TotalBudget: 1000,
		Objective:   ObjectiveMaximizeConversions,
		Constraints: Constraints{MinBudgetPerCampaign: 400},
	}

	_, err := ResolveBounds([]string{"c1", "c2", "c3"}, req, zerolog.Nop())
	require.Error(t, err)
	assert.True(t, IsInfeasible(err))

	var infeasible *InfeasibleConstraintsError
	require.ErrorAs(t, err, &infeasible)
	assert.Equal(t, "min_budget_per_campaign", infeasible.Bound)
}

func TestResolveBounds_MaxCannotAbsorbTotal(t *testing.T) {
	req := Request{
		TotalBudget: 1000,
		Objective:   ObjectiveMaximizeConversions,
		Constraints: Constraints{MaxBudgetPerCampaign: 200},
	}

	_, err := ResolveBounds([]string{"c1", "c2"}, req, zerolog.Nop())
	require.Error(t, err)

	var infeasible *InfeasibleConstraintsError
	require.ErrorAs(t, err, &infeasible)
	assert.Equal(t, "max_budget_per_campaign", infeasible.Bound)
}

func TestResolveBounds_MinAboveMax(t *testing.T) {
	req := Request{
		TotalBudget: 1000,
		Objective:   ObjectiveMaximizeConversions,
		Constraints: Constraints{MinBudgetPerCampaign: 300, MaxBudgetPerCampaign: 200},
	}

	_, err := ResolveBounds([]string{"c1", "c2"}, req, zerolog.Nop())
	assert.True(t, IsInfeasible(err))
}

func TestResolveBounds_NonPositiveTotal(t *testing.T) {
	_, err := ResolveBounds([]string{"c1"}, Request{TotalBudget: 0}, zerolog.Nop())
	assert.True(t, IsInfeasible(err))
}

func TestResolveBounds_NoCampaigns(t *testing.T) {
	_, err := ResolveBounds(nil, Request{TotalBudget: 100}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrNoCampaignData)
}
