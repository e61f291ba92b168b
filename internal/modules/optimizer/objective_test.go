package optimizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/beacon/internal/modules/estimator"
)

// powerSnapshot builds a snapshot of power curves. conversionsPerDollar maps
// campaign ID to its historical conversions-per-dollar ratio at a base daily
// budget of 100; revenue is 10 per conversion and cost tracks spend.
func powerSnapshot(conversionsPerDollar map[string]float64, alpha float64) *estimator.Snapshot {
	const baseBudget = 100.0
	curves := make(map[string]estimator.Curve, len(conversionsPerDollar))
	for id, cpd := range conversionsPerDollar {
		curves[id] = estimator.Curve{
			CampaignID:       id,
			BaseBudget:       baseBudget,
			BaseClicks:       cpd * baseBudget * 20,
			BaseConversions:  cpd * baseBudget,
			BaseCost:         baseBudget,
			BaseRevenue:      cpd * baseBudget * 10,
			AlphaClicks:      alpha,
			AlphaConversions: alpha,
			AlphaRevenue:     alpha,
		}
	}
	return &estimator.Snapshot{
		Version:  "test",
		FittedAt: time.Now(),
		Curves:   curves,
	}
}

func TestEvaluator_ValueConversions(t *testing.T) {
	snapshot := powerSnapshot(map[string]float64{"c1": 0.05, "c2": 0.02}, 0.5)
	ev := NewEvaluator([]string{"c1", "c2"}, snapshot, ObjectiveMaximizeConversions, 0)

	// At base budgets the curves reproduce historical conversions
	value := ev.Value([]float64{100, 100})
	assert.InDelta(t, 5.0+2.0, value, 1e-9)

	// Shifting budget to the more efficient campaign increases the objective
	better := ev.Value([]float64{150, 50})
	assert.Greater(t, better, ev.Value([]float64{50, 150}))
}

func TestEvaluator_ValueROAS(t *testing.T) {
	snapshot := powerSnapshot(map[string]float64{"c1": 0.05}, 0.5)
	ev := NewEvaluator([]string{"c1"}, snapshot, ObjectiveMaximizeROAS, 0)

	// revenue = 50, cost = 100 at base
	assert.InDelta(t, 0.5, ev.Value([]float64{100}), 1e-9)
}

func TestEvaluator_GradientMatchesFiniteDifference(t *testing.T) {
	snapshot := powerSnapshot(map[string]float64{"c1": 0.05, "c2": 0.08}, 0.4)

	for _, objective := range []Objective{ObjectiveMaximizeConversions, ObjectiveMaximizeRevenue, ObjectiveMaximizeROAS} {
		ev := NewEvaluator([]string{"c1", "c2"}, snapshot, objective, 0)

		budgets := []float64{130, 70}
		grad := make([]float64, 2)
		ev.Gradient(grad, budgets)

		const h = 1e-5
		for i := range budgets {
			up := append([]float64{}, budgets...)
			down := append([]float64{}, budgets...)
			up[i] += h
			down[i] -= h
			numeric := (ev.Value(up) - ev.Value(down)) / (2 * h)
			assert.InDelta(t, numeric, grad[i], 1e-4,
				"objective %s gradient component %d", objective, i)
		}
	}
}

func TestEvaluator_PenaltyBelowMinROI(t *testing.T) {
	snapshot := powerSnapshot(map[string]float64{"c1": 0.05}, 0.5)

	// Portfolio ROI is 0.5 at base budget
	ev := NewEvaluator([]string{"c1"}, snapshot, ObjectiveMaximizeRevenue, 2.0)
	assert.Greater(t, ev.Penalty([]float64{100}), 0.0)
	assert.False(t, ev.ROIFeasible([]float64{100}))

	relaxed := NewEvaluator([]string{"c1"}, snapshot, ObjectiveMaximizeRevenue, 0.1)
	assert.Equal(t, 0.0, relaxed.Penalty([]float64{100}))
	assert.True(t, relaxed.ROIFeasible([]float64{100}))
}

func TestChurn(t *testing.T) {
	current := Allocation{"c1": 100, "c2": 200}

	require.Equal(t, 0.0, churn(Allocation{"c1": 100, "c2": 200}, current))
	assert.InDelta(t, 100.0, churn(Allocation{"c1": 150, "c2": 150}, current), 1e-9)

	// Campaigns missing from the proposal count as dropped to zero
	assert.InDelta(t, 200.0, churn(Allocation{"c1": 100}, current), 1e-9)
}

func TestObjectiveValid(t *testing.T) {
	assert.True(t, ObjectiveMaximizeConversions.Valid())
	assert.True(t, ObjectiveMaximizeRevenue.Valid())
	assert.True(t, ObjectiveMaximizeROAS.Valid())
	assert.False(t, Objective("maximize_vibes").Valid())
}
