package optimizer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// LinprogSolver linearizes the objective at the equal-share point and solves
// the resulting LP exactly with the simplex method. Coarse (the response
// curves are concave, not linear) but cheap and deterministic, which makes it
// a dependable last strategy before the fallback allocator.
type LinprogSolver struct {
	log zerolog.Logger
}

// NewLinprogSolver creates a simplex-based linearized solver.
func NewLinprogSolver(log zerolog.Logger) *LinprogSolver {
	return &LinprogSolver{
		log: log.With().Str("component", "solver_linprog").Logger(),
	}
}

// Name returns the strategy identifier.
func (ls *LinprogSolver) Name() Strategy {
	return StrategyLinearProgram
}

// Solve builds the standard-form LP
//
//	min -g'y  s.t.  Σy = total - Σmin,  y_i + s_i = span_i,  y, s >= 0
//
// where y_i is campaign i's budget above its lower bound, s_i its slack to
// the upper bound, and g the objective gradient at the equal-share point.
func (ls *LinprogSolver) Solve(ctx context.Context, ev *Evaluator, bounds Bounds, req Request) (Allocation, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, ErrSolverTimedOut
	}

	n := len(bounds.IDs)
	var minSum float64
	spans := make([]float64, n)
	for i, id := range bounds.IDs {
		minSum += bounds.Min[id]
		spans[i] = bounds.Max[id] - bounds.Min[id]
	}
	remaining := req.TotalBudget - minSum
	if remaining < 0 {
		return nil, 0, &InfeasibleConstraintsError{
			Bound:  "min_budget_per_campaign",
			Detail: "minimum budgets exceed the total budget",
		}
	}

	grad := make([]float64, n)
	ev.Gradient(grad, bounds.equalShare(req.TotalBudget))

	// Variables: y_1..y_n then s_1..s_n
	c := make([]float64, 2*n)
	for i := 0; i < n; i++ {
		c[i] = -grad[i]
	}

	a := mat.NewDense(n+1, 2*n, nil)
	b := make([]float64, n+1)
	for i := 0; i < n; i++ {
		a.Set(0, i, 1)
	}
	b[0] = remaining
	for i := 0; i < n; i++ {
		a.Set(i+1, i, 1)
		a.Set(i+1, n+i, 1)
		b[i+1] = spans[i]
	}

	_, x, err := lp.Simplex(c, a, b, 1e-10, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: simplex: %v", ErrSolverDiverged, err)
	}

	budgets := make([]float64, n)
	for i, id := range bounds.IDs {
		budgets[i] = bounds.Min[id] + x[i]
	}
	if !ev.ROIFeasible(budgets) {
		return nil, 0, fmt.Errorf("%w: min ROI constraint unsatisfied", ErrSolverDiverged)
	}

	return bounds.allocation(budgets), 0, nil
}
