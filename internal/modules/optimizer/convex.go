package optimizer

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// ConvexSolver exploits the concavity of the fitted power curves: with a
// separable concave objective, greedily feeding the next budget increment to
// the campaign with the highest marginal gain is optimal. Starts every
// campaign at its lower bound and fills the remainder incrementally.
type ConvexSolver struct {
	cfg SolverConfig
	log zerolog.Logger
}

// NewConvexSolver creates a marginal-gain greedy solver.
func NewConvexSolver(cfg SolverConfig, log zerolog.Logger) *ConvexSolver {
	return &ConvexSolver{
		cfg: cfg,
		log: log.With().Str("component", "solver_convex").Logger(),
	}
}

// Name returns the strategy identifier.
func (cs *ConvexSolver) Name() Strategy {
	return StrategyConvexRelaxation
}

// Solve fills the budget greedily by marginal gain. The whole total is always
// placed, so campaigns with zero marginal (flat curves) still absorb budget
// once every better option is saturated.
func (cs *ConvexSolver) Solve(ctx context.Context, ev *Evaluator, bounds Bounds, req Request) (Allocation, int, error) {
	n := len(bounds.IDs)
	budgets := make([]float64, n)
	remaining := req.TotalBudget
	for i, id := range bounds.IDs {
		budgets[i] = bounds.Min[id]
		remaining -= bounds.Min[id]
	}
	if remaining < -req.TotalBudget*BudgetTolerance {
		return nil, 0, &InfeasibleConstraintsError{
			Bound:  "min_budget_per_campaign",
			Detail: "minimum budgets exceed the total budget",
		}
	}

	steps := cs.cfg.MaxIterations
	if steps <= 0 {
		steps = 1000
	}
	step := remaining / float64(steps)
	if step <= 0 {
		return bounds.allocation(budgets), 0, nil
	}

	deadline := time.Time{}
	if cs.cfg.Timeout > 0 {
		deadline = time.Now().Add(cs.cfg.Timeout)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && (deadline.IsZero() || ctxDeadline.Before(deadline)) {
		deadline = ctxDeadline
	}

	iterations := 0
	for remaining > req.TotalBudget*BudgetTolerance {
		if iterations%64 == 0 && !deadline.IsZero() && time.Now().After(deadline) {
			return nil, iterations, ErrSolverTimedOut
		}

		// Evaluate the true objective gain of giving this increment to each
		// campaign. Marginals alone fail at zero budgets, where the power
		// curve's derivative is undefined but the finite increment is not.
		base := ev.Value(budgets)
		best := -1
		bestGain := math.Inf(-1)
		for i, id := range bounds.IDs {
			headroom := bounds.Max[id] - budgets[i]
			if headroom <= BudgetTolerance {
				continue
			}
			add := math.Min(math.Min(step, headroom), remaining)
			budgets[i] += add
			gain := ev.Value(budgets) - base
			budgets[i] -= add
			if gain > bestGain {
				bestGain = gain
				best = i
			}
		}
		if best == -1 {
			// Everyone saturated with budget left over
			return nil, iterations, &InfeasibleConstraintsError{
				Bound:  "max_budget_per_campaign",
				Detail: "maximum budgets below the total budget",
			}
		}

		id := bounds.IDs[best]
		add := math.Min(step, bounds.Max[id]-budgets[best])
		add = math.Min(add, remaining)
		budgets[best] += add
		remaining -= add
		iterations++
	}

	if !ev.ROIFeasible(budgets) {
		return nil, iterations, ErrSolverDiverged
	}

	return bounds.allocation(budgets), iterations, nil
}
