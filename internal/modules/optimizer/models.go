// Package optimizer allocates a fixed advertising budget across campaigns to
// maximize a chosen objective, subject to budget conservation, per-campaign
// bounds and bounded-change safety limits.
package optimizer

import (
	"time"
)

// Objective selects which business outcome the optimizer maximizes.
type Objective string

const (
	ObjectiveMaximizeConversions Objective = "maximize_conversions"
	ObjectiveMaximizeRevenue     Objective = "maximize_revenue"
	ObjectiveMaximizeROAS        Objective = "maximize_roas"
)

// Valid reports whether the objective is one of the known values.
func (o Objective) Valid() bool {
	switch o {
	case ObjectiveMaximizeConversions, ObjectiveMaximizeRevenue, ObjectiveMaximizeROAS:
		return true
	}
	return false
}

// Strategy identifies one solver approach. The orchestrator dispatches on
// this tag rather than on solver subtypes.
type Strategy string

const (
	StrategyGradientConstrained Strategy = "gradient_constrained"
	StrategyEvolutionary        Strategy = "evolutionary"
	StrategyConvexRelaxation    Strategy = "convex_relaxation"
	StrategyLinearProgram       Strategy = "linear_programming"
)

// DefaultStrategyOrder is the order strategies are attempted when the
// configuration doesn't override it.
var DefaultStrategyOrder = []Strategy{
	StrategyGradientConstrained,
	StrategyEvolutionary,
	StrategyConvexRelaxation,
	StrategyLinearProgram,
}

// AttemptState tracks the lifecycle of one solver attempt.
type AttemptState string

const (
	AttemptPending   AttemptState = "PENDING"
	AttemptRunning   AttemptState = "RUNNING"
	AttemptSucceeded AttemptState = "SUCCEEDED"
	AttemptFailed    AttemptState = "FAILED"
	AttemptTimedOut  AttemptState = "TIMED_OUT"
	AttemptSkipped   AttemptState = "SKIPPED" // overall deadline exhausted before this attempt
)

// Constraints holds the caller-supplied constraint set for one request.
type Constraints struct {
	MinBudgetPerCampaign float64 `json:"min_budget_per_campaign"`
	MaxBudgetPerCampaign float64 `json:"max_budget_per_campaign"`
	MinROI               float64 `json:"min_roi"`             // 0 disables the minimum-ROI constraint
	MaxChangeFraction    float64 `json:"max_change_fraction"` // 0 disables the bounded-change limit
}

// Request describes one optimization run.
type Request struct {
	TotalBudget float64     `json:"total_budget"`
	Objective   Objective   `json:"objective"`
	Constraints Constraints `json:"constraints"`
}

// Allocation maps campaign ID to allocated daily budget.
type Allocation map[string]float64

// Total returns the sum of all allocated budgets.
func (a Allocation) Total() float64 {
	var sum float64
	for _, v := range a {
		sum += v
	}
	return sum
}

// Clone returns a copy of the allocation.
func (a Allocation) Clone() Allocation {
	out := make(Allocation, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Bounds holds resolved per-campaign budget bounds in a fixed campaign order.
type Bounds struct {
	IDs []string
	Min map[string]float64
	Max map[string]float64
}

// AttemptDiagnostics records the outcome of one solver attempt.
type AttemptDiagnostics struct {
	Strategy   Strategy      `json:"strategy"`
	State      AttemptState  `json:"state"`
	Objective  float64       `json:"objective"` // true objective value, uniformly re-evaluated
	Iterations int           `json:"iterations"`
	Duration   time.Duration `json:"duration_ns"`
	Error      string        `json:"error,omitempty"`
}

// PerformanceTotals aggregates predicted outcomes across all campaigns.
type PerformanceTotals struct {
	Clicks      float64 `json:"clicks"`
	Conversions float64 `json:"conversions"`
	Cost        float64 `json:"cost"`
	Revenue     float64 `json:"revenue"`
	ROAS        float64 `json:"roas"`
}

// ExpectedPerformance compares predicted outcomes for the current and the
// optimized allocation.
type ExpectedPerformance struct {
	Current   PerformanceTotals `json:"current"`
	Optimized PerformanceTotals `json:"optimized"`

	ConversionsDeltaPct float64 `json:"conversions_delta_pct"`
	RevenueDeltaPct     float64 `json:"revenue_delta_pct"`
	CostDeltaPct        float64 `json:"cost_delta_pct"`
	ROASDeltaPct        float64 `json:"roas_delta_pct"`
}

// Recommendation is one human-readable, directional budget change.
type Recommendation struct {
	CampaignID     string  `json:"campaign_id"`
	Name           string  `json:"name"`
	CurrentBudget  float64 `json:"current_budget"`
	ProposedBudget float64 `json:"proposed_budget"`
	ChangePct      float64 `json:"change_pct"`
	Message        string  `json:"message"`
}

// Result is the complete output of one optimization run.
type Result struct {
	RunID           string               `json:"run_id"`
	Timestamp       time.Time            `json:"timestamp"`
	Objective       Objective            `json:"objective"`
	TotalBudget     float64              `json:"total_budget"`
	Allocation      Allocation           `json:"allocation"`
	StrategyUsed    Strategy             `json:"strategy_used,omitempty"` // empty when the fallback allocator produced the result
	UsedFallback    bool                 `json:"used_fallback"`
	SnapshotVersion string               `json:"snapshot_version,omitempty"`
	Diagnostics     []AttemptDiagnostics `json:"diagnostics"`
	Expected        ExpectedPerformance  `json:"expected_performance"`
	Recommendations []Recommendation     `json:"recommendations"`
}
