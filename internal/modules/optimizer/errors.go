package optimizer

import (
	"errors"
	"fmt"
)

// ErrNoCampaignData indicates the request carried no campaign records at all.
// Fatal for the call: there is nothing to allocate over.
var ErrNoCampaignData = errors.New("no campaign data provided")

// ErrAllSolversFailed indicates every solver strategy failed or timed out.
// Non-fatal: the orchestrator's caller switches to the fallback allocator.
var ErrAllSolversFailed = errors.New("all solver strategies failed")

// ErrSolverDiverged indicates a single solver attempt did not converge to a
// feasible result. Non-fatal: recorded as a diagnostic, the next strategy runs.
var ErrSolverDiverged = errors.New("solver did not converge")

// ErrSolverTimedOut indicates a single solver attempt hit its iteration or
// wall-clock budget before converging. Non-fatal: the next strategy runs.
var ErrSolverTimedOut = errors.New("solver timed out")

// InfeasibleConstraintsError reports mutually contradictory bounds. Fatal for
// the call: no allocation can satisfy the request, fallback included.
type InfeasibleConstraintsError struct {
	Bound  string // which bound is violated, e.g. "min_budget_per_campaign"
	Detail string
}

func (e *InfeasibleConstraintsError) Error() string {
	return fmt.Sprintf("infeasible constraints: %s (%s)", e.Detail, e.Bound)
}

// IsInfeasible reports whether err is an InfeasibleConstraintsError.
func IsInfeasible(err error) bool {
	var infeasible *InfeasibleConstraintsError
	return errors.As(err, &infeasible)
}
