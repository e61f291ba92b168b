package optimizer

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/beacon/internal/modules/campaigns"
)

func TestFallbackAllocator_ProportionalToEfficiency(t *testing.T) {
	records := []campaigns.Record{
		campaigns.NewRecord("c1", "Search", 1000, 2000, 50, 500, 10),
		campaigns.NewRecord("c2", "Social", 1000, 1500, 20, 200, 10),
		campaigns.NewRecord("c3", "Display", 1000, 3000, 80, 800, 10),
	}
	bounds := testBounds([]string{"c1", "c2", "c3"}, 0, 3000)
	req := Request{TotalBudget: 3000, Objective: ObjectiveMaximizeConversions}

	fa := NewFallbackAllocator(zerolog.Nop())
	alloc, err := fa.Allocate(records, req, bounds)
	require.NoError(t, err)

	assertFeasible(t, alloc, bounds, 3000)
	// conversions-per-dollar 0.05 : 0.02 : 0.08 over equal spend
	assert.InDelta(t, 1000.0, alloc["c1"], 1e-6)
	assert.InDelta(t, 400.0, alloc["c2"], 1e-6)
	assert.InDelta(t, 1600.0, alloc["c3"], 1e-6)
}

func TestFallbackAllocator_RevenueObjectiveUsesRevenueRatio(t *testing.T) {
	records := []campaigns.Record{
		campaigns.NewRecord("c1", "A", 1000, 0, 10, 3000, 10),
		campaigns.NewRecord("c2", "B", 1000, 0, 90, 1000, 10),
	}
	bounds := testBounds([]string{"c1", "c2"}, 0, 2000)
	req := Request{TotalBudget: 2000, Objective: ObjectiveMaximizeRevenue}

	fa := NewFallbackAllocator(zerolog.Nop())
	alloc, err := fa.Allocate(records, req, bounds)
	require.NoError(t, err)

	// c1 earns 3x the revenue per dollar despite fewer conversions
	assert.InDelta(t, 1500.0, alloc["c1"], 1e-6)
	assert.InDelta(t, 500.0, alloc["c2"], 1e-6)
}

func TestFallbackAllocator_EqualShareWithoutHistory(t *testing.T) {
	records := []campaigns.Record{
		campaigns.NewRecord("c1", "A", 0, 0, 0, 0, 0),
		campaigns.NewRecord("c2", "B", 0, 0, 0, 0, 0),
	}
	bounds := testBounds([]string{"c1", "c2"}, 0, 1000)
	req := Request{TotalBudget: 1000, Objective: ObjectiveMaximizeConversions}

	fa := NewFallbackAllocator(zerolog.Nop())
	alloc, err := fa.Allocate(records, req, bounds)
	require.NoError(t, err)

	assert.InDelta(t, 500.0, alloc["c1"], 1e-6)
	assert.InDelta(t, 500.0, alloc["c2"], 1e-6)
}

func TestFallbackAllocator_RespectsBounds(t *testing.T) {
	records := []campaigns.Record{
		campaigns.NewRecord("c1", "A", 1000, 0, 100, 1000, 10),
		campaigns.NewRecord("c2", "B", 1000, 0, 1, 10, 10),
	}
	bounds := testBounds([]string{"c1", "c2"}, 200, 1500)
	req := Request{TotalBudget: 2000, Objective: ObjectiveMaximizeConversions}

	fa := NewFallbackAllocator(zerolog.Nop())
	alloc, err := fa.Allocate(records, req, bounds)
	require.NoError(t, err)

	assertFeasible(t, alloc, bounds, 2000)
	// The strong campaign pins at its cap, the rest goes to the weak one
	assert.InDelta(t, 1500.0, alloc["c1"], 1e-6)
	assert.InDelta(t, 500.0, alloc["c2"], 1e-6)
}
