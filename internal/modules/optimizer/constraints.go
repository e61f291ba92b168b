package optimizer

import (
	"fmt"

	"github.com/rs/zerolog"
)

// ResolveBounds translates the request's constraint set into per-campaign
// budget bounds and verifies the bounds can coexist with the total budget.
// Violations are fatal: no allocation can satisfy a contradictory request.
func ResolveBounds(ids []string, req Request, log zerolog.Logger) (Bounds, error) {
	n := len(ids)
	if n == 0 {
		return Bounds{}, ErrNoCampaignData
	}

	if req.TotalBudget <= 0 {
		return Bounds{}, &InfeasibleConstraintsError{
			Bound:  "total_budget",
			Detail: fmt.Sprintf("total budget must be positive, got %.2f", req.TotalBudget),
		}
	}

	minPer := req.Constraints.MinBudgetPerCampaign
	if minPer < 0 {
		minPer = 0
	}
	maxPer := req.Constraints.MaxBudgetPerCampaign
	if maxPer <= 0 {
		// Unbounded above: cap at the total budget
		maxPer = req.TotalBudget
	}

	if minPer > maxPer {
		return Bounds{}, &InfeasibleConstraintsError{
			Bound:  "min_budget_per_campaign",
			Detail: fmt.Sprintf("minimum %.2f exceeds maximum %.2f", minPer, maxPer),
		}
	}

	if minPer*float64(n) > req.TotalBudget*(1+BudgetTolerance) {
		return Bounds{}, &InfeasibleConstraintsError{
			Bound: "min_budget_per_campaign",
			Detail: fmt.Sprintf("minimum %.2f x %d campaigns = %.2f exceeds total budget %.2f",
				minPer, n, minPer*float64(n), req.TotalBudget),
		}
	}

	if maxPer*float64(n) < req.TotalBudget*(1-BudgetTolerance) {
		return Bounds{}, &InfeasibleConstraintsError{
			Bound: "max_budget_per_campaign",
			Detail: fmt.Sprintf("maximum %.2f x %d campaigns = %.2f cannot absorb total budget %.2f",
				maxPer, n, maxPer*float64(n), req.TotalBudget),
		}
	}

	bounds := Bounds{
		IDs: ids,
		Min: make(map[string]float64, n),
		Max: make(map[string]float64, n),
	}
	for _, id := range ids {
		bounds.Min[id] = minPer
		bounds.Max[id] = maxPer
	}

	log.Debug().
		Int("campaigns", n).
		Float64("min_per_campaign", minPer).
		Float64("max_per_campaign", maxPer).
		Float64("total_budget", req.TotalBudget).
		Msg("Resolved budget bounds")

	return bounds, nil
}

// WithinBounds reports whether every entry of the vector lies inside its
// bounds within tolerance.
func (b Bounds) WithinBounds(budgets []float64) bool {
	tol := 1 + BudgetTolerance
	for i, id := range b.IDs {
		if budgets[i] < b.Min[id]/tol-BudgetTolerance || budgets[i] > b.Max[id]*tol+BudgetTolerance {
			return false
		}
	}
	return true
}

// vector converts an allocation map to a slice in bounds order. Missing
// campaigns become zero entries.
func (b Bounds) vector(alloc Allocation) []float64 {
	out := make([]float64, len(b.IDs))
	for i, id := range b.IDs {
		out[i] = alloc[id]
	}
	return out
}

// allocation converts a vector in bounds order back to a map.
func (b Bounds) allocation(budgets []float64) Allocation {
	out := make(Allocation, len(b.IDs))
	for i, id := range b.IDs {
		out[id] = budgets[i]
	}
	return out
}

// equalShare returns the equal-split allocation vector, the feasible
// starting point for local search.
func (b Bounds) equalShare(total float64) []float64 {
	out := make([]float64, len(b.IDs))
	share := total / float64(len(b.IDs))
	for i := range out {
		out[i] = share
	}
	return out
}
