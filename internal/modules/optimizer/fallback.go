package optimizer

import (
	"github.com/rs/zerolog"

	"github.com/aristath/beacon/internal/modules/campaigns"
)

// FallbackAllocator produces a usable allocation when every solver strategy
// failed. It weighs campaigns by historical efficiency for the requested
// objective and splits the budget proportionally, then repairs the split into
// the bounds. No curve fitting involved, so it works with any history.
type FallbackAllocator struct {
	log zerolog.Logger
}

// NewFallbackAllocator creates the last-resort proportional allocator.
func NewFallbackAllocator(log zerolog.Logger) *FallbackAllocator {
	return &FallbackAllocator{
		log: log.With().Str("component", "fallback_allocator").Logger(),
	}
}

// Allocate splits the total budget proportionally to each campaign's
// efficiency score. Campaigns without history score zero and sit at their
// lower bound; only when no campaign has any history does the whole split
// become equal-share.
func (fa *FallbackAllocator) Allocate(records []campaigns.Record, req Request, bounds Bounds) (Allocation, error) {
	scores := make([]float64, len(bounds.IDs))
	byID := make(map[string]campaigns.Record, len(records))
	for _, rec := range records {
		byID[rec.CampaignID] = rec
	}

	var scoreSum float64
	for i, id := range bounds.IDs {
		scores[i] = fa.efficiency(byID[id], req.Objective)
		scoreSum += scores[i]
	}

	budgets := make([]float64, len(bounds.IDs))
	if scoreSum <= 0 {
		fa.log.Info().Msg("No usable efficiency scores - falling back to equal share")
		budgets = bounds.equalShare(req.TotalBudget)
	} else {
		for i := range budgets {
			budgets[i] = req.TotalBudget * scores[i] / scoreSum
		}
	}

	repaired, err := renormalizeWithBounds(fa.clip(budgets, bounds), bounds, req.TotalBudget)
	if err != nil {
		return nil, err
	}
	return bounds.allocation(repaired), nil
}

// efficiency scores a campaign's historical outcome per dollar spent for the
// requested objective. Zero when the campaign has no spend history.
func (fa *FallbackAllocator) efficiency(rec campaigns.Record, objective Objective) float64 {
	if rec.Spend <= 0 {
		return 0
	}
	switch objective {
	case ObjectiveMaximizeConversions:
		return rec.Conversions / rec.Spend
	case ObjectiveMaximizeRevenue, ObjectiveMaximizeROAS:
		return rec.Revenue / rec.Spend
	}
	return 0
}

func (fa *FallbackAllocator) clip(budgets []float64, bounds Bounds) []float64 {
	clipped := make([]float64, len(budgets))
	for i, id := range bounds.IDs {
		v := budgets[i]
		if v < bounds.Min[id] {
			v = bounds.Min[id]
		}
		if v > bounds.Max[id] {
			v = bounds.Max[id]
		}
		clipped[i] = v
	}
	return clipped
}
