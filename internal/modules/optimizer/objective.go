package optimizer

import (
	"math"

	"github.com/aristath/beacon/internal/modules/estimator"
)

// BudgetTolerance is the relative tolerance for budget-conservation checks.
const BudgetTolerance = 1e-6

// roiPenaltyWeight scales the soft minimum-ROI penalty for solvers that
// cannot express the constraint natively.
const roiPenaltyWeight = 1000.0

// Evaluator turns a snapshot of response curves into a scalar objective over
// allocation vectors. Vectors are ordered by ids; entry i is the proposed
// daily budget for ids[i].
type Evaluator struct {
	ids       []string
	snapshot  *estimator.Snapshot
	objective Objective
	minROI    float64
}

// NewEvaluator builds an evaluator for one optimization run.
func NewEvaluator(ids []string, snapshot *estimator.Snapshot, objective Objective, minROI float64) *Evaluator {
	return &Evaluator{
		ids:       ids,
		snapshot:  snapshot,
		objective: objective,
		minROI:    minROI,
	}
}

// IDs returns the campaign order the evaluator works in.
func (e *Evaluator) IDs() []string {
	return e.ids
}

// Value returns the objective value for an allocation vector. Higher is better.
func (e *Evaluator) Value(budgets []float64) float64 {
	var conversions, revenue, cost float64
	for i, id := range e.ids {
		curve, ok := e.snapshot.Curve(id)
		if !ok {
			continue
		}
		pred := curve.Predict(budgets[i])
		conversions += pred.Conversions
		revenue += pred.Revenue
		cost += pred.Cost
	}

	switch e.objective {
	case ObjectiveMaximizeConversions:
		return conversions
	case ObjectiveMaximizeRevenue:
		return revenue
	case ObjectiveMaximizeROAS:
		if cost < 1e-10 {
			return 0
		}
		return revenue / cost
	}
	return 0
}

// ValueOf evaluates an Allocation map in the evaluator's campaign order.
func (e *Evaluator) ValueOf(alloc Allocation) float64 {
	budgets := make([]float64, len(e.ids))
	for i, id := range e.ids {
		budgets[i] = alloc[id]
	}
	return e.Value(budgets)
}

// Gradient writes the objective gradient into grad. Uses the analytic
// marginals of the fitted power curves.
func (e *Evaluator) Gradient(grad, budgets []float64) {
	switch e.objective {
	case ObjectiveMaximizeConversions:
		for i, id := range e.ids {
			grad[i] = e.marginal(id, budgets[i]).Conversions
		}
	case ObjectiveMaximizeRevenue:
		for i, id := range e.ids {
			grad[i] = e.marginal(id, budgets[i]).Revenue
		}
	case ObjectiveMaximizeROAS:
		var revenue, cost float64
		for i, id := range e.ids {
			curve, ok := e.snapshot.Curve(id)
			if !ok {
				continue
			}
			pred := curve.Predict(budgets[i])
			revenue += pred.Revenue
			cost += pred.Cost
		}
		if cost < 1e-10 {
			for i := range grad {
				grad[i] = 0
			}
			return
		}
		// d(R/C)/db_i = (R'_i*C - R*C'_i) / C^2
		for i, id := range e.ids {
			m := e.marginal(id, budgets[i])
			grad[i] = (m.Revenue*cost - revenue*m.Cost) / (cost * cost)
		}
	}
}

// Penalty returns the soft minimum-ROI penalty for the allocation. Zero when
// no minimum-ROI constraint is set or the constraint holds.
func (e *Evaluator) Penalty(budgets []float64) float64 {
	if e.minROI <= 0 {
		return 0
	}

	roi := e.portfolioROI(budgets)
	if roi >= e.minROI {
		return 0
	}
	shortfall := e.minROI - roi
	return roiPenaltyWeight * shortfall * shortfall
}

// PenaltyGradient adds the gradient of the soft minimum-ROI penalty to grad.
func (e *Evaluator) PenaltyGradient(grad, budgets []float64) {
	if e.minROI <= 0 {
		return
	}

	var revenue, cost float64
	for i, id := range e.ids {
		curve, ok := e.snapshot.Curve(id)
		if !ok {
			continue
		}
		pred := curve.Predict(budgets[i])
		revenue += pred.Revenue
		cost += pred.Cost
	}
	if cost < 1e-10 {
		return
	}
	roi := revenue / cost
	if roi >= e.minROI {
		return
	}

	shortfall := e.minROI - roi
	for i, id := range e.ids {
		m := e.marginal(id, budgets[i])
		dROI := (m.Revenue*cost - revenue*m.Cost) / (cost * cost)
		grad[i] += -2 * roiPenaltyWeight * shortfall * dROI
	}
}

// ROIFeasible reports whether the allocation satisfies the minimum-ROI
// constraint within tolerance.
func (e *Evaluator) ROIFeasible(budgets []float64) bool {
	if e.minROI <= 0 {
		return true
	}
	return e.portfolioROI(budgets) >= e.minROI*(1-BudgetTolerance)
}

func (e *Evaluator) portfolioROI(budgets []float64) float64 {
	var revenue, cost float64
	for i, id := range e.ids {
		curve, ok := e.snapshot.Curve(id)
		if !ok {
			continue
		}
		pred := curve.Predict(budgets[i])
		revenue += pred.Revenue
		cost += pred.Cost
	}
	if cost < 1e-10 {
		return 0
	}
	return revenue / cost
}

func (e *Evaluator) marginal(id string, budget float64) estimator.Prediction {
	curve, ok := e.snapshot.Curve(id)
	if !ok {
		return estimator.Prediction{}
	}
	return curve.Marginals(budget)
}

// churn measures total absolute deviation between two allocations. Used to
// break objective-value ties in favor of less operational disruption.
func churn(a Allocation, current Allocation) float64 {
	var total float64
	for id, v := range a {
		total += math.Abs(v - current[id])
	}
	for id, v := range current {
		if _, ok := a[id]; !ok {
			total += math.Abs(v)
		}
	}
	return total
}
