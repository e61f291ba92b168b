package optimizer

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solverRequest(total float64) Request {
	return Request{TotalBudget: total, Objective: ObjectiveMaximizeConversions}
}

func assertFeasible(t *testing.T, alloc Allocation, bounds Bounds, total float64) {
	t.Helper()
	assert.InEpsilon(t, total, alloc.Total(), 1e-4, "budget not conserved")
	for _, id := range bounds.IDs {
		assert.GreaterOrEqual(t, alloc[id], bounds.Min[id]-1e-6)
		assert.LessOrEqual(t, alloc[id], bounds.Max[id]+1e-6)
	}
}

func TestGradientSolver_FavorsEfficientCampaign(t *testing.T) {
	snapshot := powerSnapshot(map[string]float64{"c1": 0.05, "c2": 0.02, "c3": 0.08}, 0.5)
	ids := []string{"c1", "c2", "c3"}
	ev := NewEvaluator(ids, snapshot, ObjectiveMaximizeConversions, 0)
	bounds := testBounds(ids, 0, 3000)
	req := solverRequest(3000)

	solver := NewGradientSolver(SolverConfig{MaxIterations: 500, Timeout: 5 * time.Second}, zerolog.Nop())
	alloc, _, err := solver.Solve(context.Background(), ev, bounds, req)
	require.NoError(t, err)

	assert.Greater(t, alloc["c3"], alloc["c2"], "most efficient campaign should outrank the least")
}

func TestGradientSolver_ConservesBudget(t *testing.T) {
	// The penalty method alone leaves the stationary point off the budget
	// simplex; the returned candidate must still sum to the total exactly.
	snapshot := powerSnapshot(map[string]float64{"c1": 0.05, "c2": 0.02, "c3": 0.08}, 0.5)
	ids := []string{"c1", "c2", "c3"}
	ev := NewEvaluator(ids, snapshot, ObjectiveMaximizeConversions, 0)
	bounds := testBounds(ids, 0, 3000)
	req := solverRequest(3000)

	solver := NewGradientSolver(SolverConfig{MaxIterations: 500, Timeout: 5 * time.Second}, zerolog.Nop())
	alloc, _, err := solver.Solve(context.Background(), ev, bounds, req)
	require.NoError(t, err)

	assert.LessOrEqual(t, relativeError(alloc.Total(), req.TotalBudget), BudgetTolerance)
	assert.True(t, bounds.WithinBounds(bounds.vector(alloc)))
}

func TestGradientSolver_TimedOutOnExpiredContext(t *testing.T) {
	snapshot := powerSnapshot(map[string]float64{"c1": 0.05}, 0.5)
	ev := NewEvaluator([]string{"c1"}, snapshot, ObjectiveMaximizeConversions, 0)
	bounds := testBounds([]string{"c1"}, 0, 1000)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	solver := NewGradientSolver(SolverConfig{MaxIterations: 100}, zerolog.Nop())
	_, _, err := solver.Solve(ctx, ev, bounds, solverRequest(1000))
	assert.ErrorIs(t, err, ErrSolverTimedOut)
}

func TestConvexSolver_GreedyAllocation(t *testing.T) {
	snapshot := powerSnapshot(map[string]float64{"c1": 0.05, "c2": 0.02, "c3": 0.08}, 0.5)
	ids := []string{"c1", "c2", "c3"}
	ev := NewEvaluator(ids, snapshot, ObjectiveMaximizeConversions, 0)
	bounds := testBounds(ids, 0, 3000)
	req := solverRequest(3000)

	solver := NewConvexSolver(SolverConfig{MaxIterations: 1000, Timeout: 5 * time.Second}, zerolog.Nop())
	alloc, iterations, err := solver.Solve(context.Background(), ev, bounds, req)
	require.NoError(t, err)
	assert.Greater(t, iterations, 0)

	assertFeasible(t, alloc, bounds, 3000)
	assert.Greater(t, alloc["c3"], alloc["c1"])
	assert.Greater(t, alloc["c1"], alloc["c2"])
}

func TestConvexSolver_RespectsMinBounds(t *testing.T) {
	snapshot := powerSnapshot(map[string]float64{"c1": 0.10, "c2": 0.01}, 0.5)
	ids := []string{"c1", "c2"}
	ev := NewEvaluator(ids, snapshot, ObjectiveMaximizeConversions, 0)
	bounds := testBounds(ids, 200, 1000)
	req := solverRequest(1200)

	solver := NewConvexSolver(SolverConfig{MaxIterations: 500}, zerolog.Nop())
	alloc, _, err := solver.Solve(context.Background(), ev, bounds, req)
	require.NoError(t, err)

	assertFeasible(t, alloc, bounds, 1200)
	// The weak campaign stays at its floor
	assert.InDelta(t, 200.0, alloc["c2"], 1e-6)
}

func TestConvexSolver_WeakMonotonicity(t *testing.T) {
	snapshot := powerSnapshot(map[string]float64{"c1": 0.05, "c2": 0.08}, 0.5)
	ids := []string{"c1", "c2"}
	ev := NewEvaluator(ids, snapshot, ObjectiveMaximizeConversions, 0)
	solver := NewConvexSolver(SolverConfig{MaxIterations: 500}, zerolog.Nop())

	var previous float64
	for _, total := range []float64{1000, 2000, 4000} {
		bounds := testBounds(ids, 0, total)
		alloc, _, err := solver.Solve(context.Background(), ev, bounds, solverRequest(total))
		require.NoError(t, err)

		value := ev.ValueOf(alloc)
		assert.GreaterOrEqual(t, value, previous, "objective should not decrease with a larger budget")
		previous = value
	}
}

func TestEvolutionarySolver_SeededIdempotence(t *testing.T) {
	snapshot := powerSnapshot(map[string]float64{"c1": 0.05, "c2": 0.02, "c3": 0.08}, 0.5)
	ids := []string{"c1", "c2", "c3"}
	ev := NewEvaluator(ids, snapshot, ObjectiveMaximizeConversions, 0)
	bounds := testBounds(ids, 0, 3000)
	req := solverRequest(3000)

	cfg := DefaultEvolutionConfig()
	cfg.Seed = 42
	cfg.MaxGenerations = 20
	cfg.Timeout = 10 * time.Second

	first, _, err := NewEvolutionarySolver(cfg, zerolog.Nop()).Solve(context.Background(), ev, bounds, req)
	require.NoError(t, err)
	second, _, err := NewEvolutionarySolver(cfg, zerolog.Nop()).Solve(context.Background(), ev, bounds, req)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for id, v := range first {
		assert.Equal(t, v, second[id], "same seed must produce identical allocations")
	}

	assertFeasible(t, first, bounds, 3000)
}

func TestEvolutionarySolver_TimedOut(t *testing.T) {
	snapshot := powerSnapshot(map[string]float64{"c1": 0.05, "c2": 0.02}, 0.5)
	ids := []string{"c1", "c2"}
	ev := NewEvaluator(ids, snapshot, ObjectiveMaximizeConversions, 0)
	bounds := testBounds(ids, 0, 1000)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	cfg := DefaultEvolutionConfig()
	cfg.Timeout = time.Hour

	_, _, err := NewEvolutionarySolver(cfg, zerolog.Nop()).Solve(ctx, ev, bounds, solverRequest(1000))
	assert.ErrorIs(t, err, ErrSolverTimedOut)
}

func TestLinprogSolver_SaturatesBestCampaign(t *testing.T) {
	snapshot := powerSnapshot(map[string]float64{"c1": 0.05, "c2": 0.02, "c3": 0.08}, 0.5)
	ids := []string{"c1", "c2", "c3"}
	ev := NewEvaluator(ids, snapshot, ObjectiveMaximizeConversions, 0)
	bounds := testBounds(ids, 0, 1500)
	req := solverRequest(3000)

	solver := NewLinprogSolver(zerolog.Nop())
	alloc, _, err := solver.Solve(context.Background(), ev, bounds, req)
	require.NoError(t, err)

	assertFeasible(t, alloc, bounds, 3000)
	// The linear proxy sends budget to the highest-marginal campaigns first
	assert.InDelta(t, 1500.0, alloc["c3"], 1e-6)
	assert.InDelta(t, 1500.0, alloc["c1"], 1e-6)
	assert.InDelta(t, 0.0, alloc["c2"], 1e-6)
}
