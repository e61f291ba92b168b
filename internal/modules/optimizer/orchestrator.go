package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Solver is one allocation strategy. Solve returns the proposed allocation
// and the iteration count it spent; ErrSolverTimedOut and ErrSolverDiverged
// are expected outcomes, not faults.
type Solver interface {
	Name() Strategy
	Solve(ctx context.Context, ev *Evaluator, bounds Bounds, req Request) (Allocation, int, error)
}

// Orchestrator runs every configured strategy in order, each inside its own
// iteration/time budget, and keeps the best feasible candidate. A strategy
// timing out is a normal state transition; the next strategy runs. Only when
// no strategy succeeds does the caller switch to the fallback allocator.
type Orchestrator struct {
	solvers []Solver
	log     zerolog.Logger
}

// NewOrchestrator wires the strategy list in attempt order.
func NewOrchestrator(solvers []Solver, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		solvers: solvers,
		log:     log.With().Str("component", "orchestrator").Logger(),
	}
}

// Run attempts every strategy and selects, among the successes, the one with
// the highest uniformly re-evaluated objective. Equal objectives within
// tolerance go to the candidate that deviates least from the current
// allocation. Returns ErrAllSolversFailed when nothing succeeded.
func (o *Orchestrator) Run(ctx context.Context, ev *Evaluator, bounds Bounds, req Request, current Allocation) (Allocation, Strategy, []AttemptDiagnostics, error) {
	diagnostics := make([]AttemptDiagnostics, 0, len(o.solvers))

	var best Allocation
	var bestStrategy Strategy
	bestValue := 0.0
	bestChurn := 0.0

	for _, solver := range o.solvers {
		attempt := AttemptDiagnostics{Strategy: solver.Name(), State: AttemptPending}

		if ctx.Err() != nil {
			attempt.State = AttemptSkipped
			attempt.Error = "overall deadline exhausted"
			diagnostics = append(diagnostics, attempt)
			continue
		}

		attempt.State = AttemptRunning
		o.log.Info().Str("strategy", string(solver.Name())).Msg("Running solver strategy")

		start := time.Now()
		alloc, iterations, err := solver.Solve(ctx, ev, bounds, req)
		attempt.Duration = time.Since(start)
		attempt.Iterations = iterations

		switch {
		case err == nil:
			// SUCCEEDED means constraints satisfied within tolerance, not
			// merely "the solver returned". A candidate off the budget simplex
			// would win the re-evaluation on inflated spend alone.
			vec := bounds.vector(alloc)
			switch {
			case relativeError(alloc.Total(), req.TotalBudget) > BudgetTolerance:
				attempt.State = AttemptFailed
				attempt.Error = fmt.Sprintf("candidate total %.2f violates budget conservation (want %.2f)",
					alloc.Total(), req.TotalBudget)
			case !bounds.WithinBounds(vec):
				attempt.State = AttemptFailed
				attempt.Error = "candidate violates per-campaign bounds"
			default:
				attempt.State = AttemptSucceeded
				attempt.Objective = ev.ValueOf(alloc)
			}
		case errors.Is(err, ErrSolverTimedOut):
			attempt.State = AttemptTimedOut
			attempt.Error = err.Error()
		case IsInfeasible(err):
			// Contradictory bounds fail every strategy identically
			attempt.State = AttemptFailed
			attempt.Error = err.Error()
			diagnostics = append(diagnostics, attempt)
			return nil, "", diagnostics, err
		default:
			attempt.State = AttemptFailed
			attempt.Error = err.Error()
		}
		diagnostics = append(diagnostics, attempt)

		o.log.Info().
			Str("strategy", string(solver.Name())).
			Str("state", string(attempt.State)).
			Dur("duration", attempt.Duration).
			Int("iterations", attempt.Iterations).
			Msg("Solver strategy finished")

		if attempt.State != AttemptSucceeded {
			continue
		}

		value := attempt.Objective
		candidateChurn := churn(alloc, current)
		if best == nil ||
			value > bestValue+objectiveTieTolerance(bestValue) ||
			(value >= bestValue-objectiveTieTolerance(bestValue) && candidateChurn < bestChurn) {
			best = alloc
			bestStrategy = solver.Name()
			bestValue = value
			bestChurn = candidateChurn
		}
	}

	if best == nil {
		return nil, "", diagnostics, fmt.Errorf("%w: %d strategies attempted", ErrAllSolversFailed, len(o.solvers))
	}

	o.log.Info().
		Str("strategy", string(bestStrategy)).
		Float64("objective", bestValue).
		Msg("Selected best solver candidate")

	return best, bestStrategy, diagnostics, nil
}

// objectiveTieTolerance scales the tie window with the objective magnitude.
func objectiveTieTolerance(value float64) float64 {
	if value < 0 {
		value = -value
	}
	return BudgetTolerance * (1 + value)
}
