package optimizer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

const budgetPenaltyWeight = 1000.0

// SolverConfig caps a single solver attempt.
type SolverConfig struct {
	MaxIterations int
	Timeout       time.Duration
}

// GradientSolver maximizes the objective with gonum's gradient-based
// minimizers. Bounds are enforced by projection inside the objective closure
// and the total-budget equality by a quadratic penalty term, so the search
// itself runs unconstrained.
type GradientSolver struct {
	cfg SolverConfig
	log zerolog.Logger
}

// NewGradientSolver creates a penalty-method gradient solver.
func NewGradientSolver(cfg SolverConfig, log zerolog.Logger) *GradientSolver {
	return &GradientSolver{
		cfg: cfg,
		log: log.With().Str("component", "solver_gradient").Logger(),
	}
}

// Name returns the strategy identifier.
func (gs *GradientSolver) Name() Strategy {
	return StrategyGradientConstrained
}

// Solve searches for the bounded allocation maximizing the evaluator's
// objective. The budget-sum penalty is expressed as a fraction of the total
// so its weight is comparable across dollar magnitudes.
func (gs *GradientSolver) Solve(ctx context.Context, ev *Evaluator, bounds Bounds, req Request) (Allocation, int, error) {
	ids := ev.IDs()
	n := len(ids)
	total := req.TotalBudget

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			budgets := gs.projectToBounds(x, bounds, total)

			// Minimize the negative objective
			obj := -ev.Value(budgets)
			obj += ev.Penalty(budgets)

			frac := floats.Sum(budgets)/total - 1.0
			obj += budgetPenaltyWeight * frac * frac

			return obj
		},
		Grad: func(grad, x []float64) {
			budgets := gs.projectToBounds(x, bounds, total)

			ev.Gradient(grad, budgets)
			for i := 0; i < n; i++ {
				grad[i] = -grad[i]
			}
			ev.PenaltyGradient(grad, budgets)

			frac := floats.Sum(budgets)/total - 1.0
			for i := 0; i < n; i++ {
				grad[i] += 2 * budgetPenaltyWeight * frac / total
			}
		},
	}

	initial := bounds.equalShare(total)

	settings := &optimize.Settings{
		MajorIterations: gs.cfg.MaxIterations,
		Runtime:         gs.cfg.Timeout,
	}
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, 0, ErrSolverTimedOut
		}
		if settings.Runtime == 0 || remaining < settings.Runtime {
			settings.Runtime = remaining
		}
	}

	result, err := optimize.Minimize(problem, initial, settings, &optimize.BFGS{})
	if err != nil || !gradientSuccess(result.Status) {
		// BFGS struggles near the projection boundary; retry derivative-free
		fallback, fbErr := optimize.Minimize(problem, initial, settings, &optimize.NelderMead{})
		if fbErr == nil {
			result, err = fallback, nil
		}
	}
	if err != nil {
		return nil, 0, fmt.Errorf("gradient optimization failed: %w", err)
	}

	iterations := result.Stats.MajorIterations

	switch {
	case gradientSuccess(result.Status):
		// converged
	case result.Status == optimize.IterationLimit || result.Status == optimize.RuntimeLimit:
		return nil, iterations, ErrSolverTimedOut
	default:
		gs.log.Debug().Str("status", result.Status.String()).Msg("Gradient solver did not converge")
		return nil, iterations, fmt.Errorf("%w: status=%v", ErrSolverDiverged, result.Status)
	}

	// The quadratic penalty only approximates the budget equality; its
	// stationary point can sit off the simplex. Repair the result onto it.
	budgets, err := renormalizeWithBounds(gs.projectToBounds(result.X, bounds, total), bounds, total)
	if err != nil {
		return nil, iterations, err
	}
	if !ev.ROIFeasible(budgets) {
		return nil, iterations, fmt.Errorf("%w: min ROI constraint unsatisfied", ErrSolverDiverged)
	}

	return bounds.allocation(budgets), iterations, nil
}

func gradientSuccess(status optimize.Status) bool {
	switch status {
	case optimize.Success, optimize.GradientThreshold, optimize.FunctionConvergence:
		return true
	}
	return false
}

// projectToBounds clips each budget into its campaign's bounds.
func (gs *GradientSolver) projectToBounds(x []float64, bounds Bounds, total float64) []float64 {
	proj := make([]float64, len(x))
	for i, id := range bounds.IDs {
		lo := bounds.Min[id]
		hi := math.Min(bounds.Max[id], total)
		proj[i] = math.Max(lo, math.Min(hi, x[i]))
	}
	return proj
}
