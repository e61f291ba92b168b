// Package campaigns provides campaign metadata and historical metrics storage.
package campaigns

import "time"

// Campaign represents an advertising campaign tracked by Beacon.
type Campaign struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Channel   string    `json:"channel"` // e.g. "search", "social", "display"
	Status    string    `json:"status"`  // "active", "paused"
	CreatedAt time.Time `json:"created_at"`
}

// DailyMetric is one day of observed campaign performance. These rows are the
// historical (budget, outcome) pairs the performance estimator fits from.
type DailyMetric struct {
	CampaignID  string    `json:"campaign_id"`
	Date        time.Time `json:"date"`
	Spend       float64   `json:"spend"`
	Clicks      float64   `json:"clicks"`
	Conversions float64   `json:"conversions"`
	Revenue     float64   `json:"revenue"`
}

// Record is an immutable snapshot of one campaign's aggregate history for a
// single optimization run. It is created by the caller from the metrics store
// and never mutated by the optimizer.
type Record struct {
	CampaignID string `json:"campaign_id"`
	Name       string `json:"name"`

	// Historical aggregates
	Spend       float64 `json:"spend"`
	Clicks      float64 `json:"clicks"`
	Conversions float64 `json:"conversions"`
	Revenue     float64 `json:"revenue"`
	DaysActive  int     `json:"days_active"`

	// Derived efficiency ratios
	ConversionRate    float64 `json:"conversion_rate"`
	CostPerClick      float64 `json:"cost_per_click"`
	CostPerConversion float64 `json:"cost_per_conversion"`
	ReturnOnSpend     float64 `json:"return_on_spend"`
}

// NewRecord builds a Record from aggregates, deriving efficiency ratios with
// zero-denominator guards.
func NewRecord(campaignID, name string, spend, clicks, conversions, revenue float64, daysActive int) Record {
	r := Record{
		CampaignID:  campaignID,
		Name:        name,
		Spend:       spend,
		Clicks:      clicks,
		Conversions: conversions,
		Revenue:     revenue,
		DaysActive:  daysActive,
	}

	if clicks > 0 {
		r.ConversionRate = conversions / clicks
	}
	if spend > 0 {
		r.ReturnOnSpend = revenue / spend
	}
	if clicks > 0 {
		r.CostPerClick = spend / clicks
	}
	if conversions > 0 {
		r.CostPerConversion = spend / conversions
	}

	return r
}

// DailyBudget returns the campaign's historical average spend per day. It is
// the "current allocation" baseline the optimizer compares proposals against.
func (r Record) DailyBudget() float64 {
	if r.DaysActive <= 0 {
		return 0
	}
	return r.Spend / float64(r.DaysActive)
}
