// Package estimator builds per-campaign budget response models from
// historical daily metrics. A response model maps a proposed daily budget to
// expected clicks, conversions, cost and revenue.
package estimator

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInsufficientData indicates a campaign lacks enough history to fit a
// response curve. Non-fatal: callers substitute a flat historical-average
// response for the affected campaign.
var ErrInsufficientData = errors.New("insufficient historical data to fit response curve")

// Point is one observed (budget, outcome) pair, typically one day of history.
type Point struct {
	Budget      float64
	Clicks      float64
	Conversions float64
	Cost        float64
	Revenue     float64
}

// Prediction holds expected outcomes for a proposed budget.
type Prediction struct {
	Clicks      float64 `json:"clicks"`
	Conversions float64 `json:"conversions"`
	Cost        float64 `json:"cost"`
	Revenue     float64 `json:"revenue"`
}

// Curve is a fitted power-law response model for one campaign:
//
//	outcome(b) = base_outcome * (b / base_budget)^alpha
//
// with alpha in (0,1) modelling diminishing returns. Cost scales linearly
// with budget (spend rate preserved), clamped to never exceed the budget.
// A Flat curve predicts the historical average regardless of budget.
type Curve struct {
	CampaignID string `msgpack:"campaign_id"`

	BaseBudget      float64 `msgpack:"base_budget"`
	BaseClicks      float64 `msgpack:"base_clicks"`
	BaseConversions float64 `msgpack:"base_conversions"`
	BaseCost        float64 `msgpack:"base_cost"`
	BaseRevenue     float64 `msgpack:"base_revenue"`

	AlphaClicks      float64 `msgpack:"alpha_clicks"`
	AlphaConversions float64 `msgpack:"alpha_conversions"`
	AlphaRevenue     float64 `msgpack:"alpha_revenue"`

	Flat bool `msgpack:"flat"`
}

// Predict returns expected outcomes at the proposed daily budget.
// Guarantees: all outputs are non-negative, and cost is non-decreasing in the
// proposed budget.
func (c Curve) Predict(budget float64) Prediction {
	if budget <= 0 {
		return Prediction{}
	}

	if c.Flat || c.BaseBudget <= 0 {
		return Prediction{
			Clicks:      math.Max(0, c.BaseClicks),
			Conversions: math.Max(0, c.BaseConversions),
			Cost:        math.Max(0, math.Min(budget, c.BaseCost)),
			Revenue:     math.Max(0, c.BaseRevenue),
		}
	}

	m := budget / c.BaseBudget
	cost := c.BaseCost * m
	if cost > budget {
		cost = budget
	}

	return Prediction{
		Clicks:      math.Max(0, c.BaseClicks*math.Pow(m, c.AlphaClicks)),
		Conversions: math.Max(0, c.BaseConversions*math.Pow(m, c.AlphaConversions)),
		Cost:        math.Max(0, cost),
		Revenue:     math.Max(0, c.BaseRevenue*math.Pow(m, c.AlphaRevenue)),
	}
}

// Marginals returns the derivative of each predicted outcome with respect to
// the proposed budget. Flat curves have zero marginals.
func (c Curve) Marginals(budget float64) Prediction {
	if c.Flat || c.BaseBudget <= 0 || budget <= 0 {
		return Prediction{}
	}

	m := budget / c.BaseBudget

	costMarginal := c.BaseCost / c.BaseBudget
	if c.BaseCost*m > budget {
		// Cost is clamped to the budget in this region
		costMarginal = 1.0
	}

	return Prediction{
		Clicks:      c.AlphaClicks * c.BaseClicks * math.Pow(m, c.AlphaClicks-1) / c.BaseBudget,
		Conversions: c.AlphaConversions * c.BaseConversions * math.Pow(m, c.AlphaConversions-1) / c.BaseBudget,
		Cost:        costMarginal,
		Revenue:     c.AlphaRevenue * c.BaseRevenue * math.Pow(m, c.AlphaRevenue-1) / c.BaseBudget,
	}
}

// Snapshot is an immutable, versioned set of fitted curves. A single
// optimization run reads exactly one snapshot; retraining produces a new
// snapshot rather than mutating one in use.
type Snapshot struct {
	Version      string           `msgpack:"version"`
	FittedAt     time.Time        `msgpack:"fitted_at"`
	Curves       map[string]Curve `msgpack:"curves"`
	Insufficient []string         `msgpack:"insufficient"` // campaigns that got flat fallback curves
}

// Curve returns the fitted curve for a campaign.
func (s *Snapshot) Curve(campaignID string) (Curve, bool) {
	c, ok := s.Curves[campaignID]
	return c, ok
}

// Predict returns expected outcomes for a campaign at the proposed budget.
func (s *Snapshot) Predict(campaignID string, budget float64) (Prediction, error) {
	c, ok := s.Curves[campaignID]
	if !ok {
		return Prediction{}, fmt.Errorf("no response curve for campaign %s", campaignID)
	}
	return c.Predict(budget), nil
}
