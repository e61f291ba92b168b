package optimizer

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/aristath/beacon/internal/modules/campaigns"
	"github.com/aristath/beacon/internal/modules/estimator"
)

// ImpactAnalyzer compares the current allocation against a proposed one and
// turns the difference into aggregate deltas plus per-campaign
// recommendations.
type ImpactAnalyzer struct {
	threshold float64 // minimum |change| fraction worth recommending
	log       zerolog.Logger
}

// NewImpactAnalyzer creates an analyzer. threshold is the minimum relative
// budget change that produces a recommendation, e.g. 0.10 for 10%.
func NewImpactAnalyzer(threshold float64, log zerolog.Logger) *ImpactAnalyzer {
	return &ImpactAnalyzer{
		threshold: threshold,
		log:       log.With().Str("component", "impact_analyzer").Logger(),
	}
}

// Expected predicts portfolio outcomes for the current and the proposed
// allocation and computes the relative deltas.
func (ia *ImpactAnalyzer) Expected(snapshot *estimator.Snapshot, current, proposed Allocation) ExpectedPerformance {
	cur := ia.totals(snapshot, current)
	opt := ia.totals(snapshot, proposed)

	return ExpectedPerformance{
		Current:             cur,
		Optimized:           opt,
		ConversionsDeltaPct: deltaPct(cur.Conversions, opt.Conversions),
		RevenueDeltaPct:     deltaPct(cur.Revenue, opt.Revenue),
		CostDeltaPct:        deltaPct(cur.Cost, opt.Cost),
		ROASDeltaPct:        deltaPct(cur.ROAS, opt.ROAS),
	}
}

// Recommendations lists the campaigns whose budget changes by at least the
// significance threshold, largest absolute budget move first. New campaigns
// (current budget zero) are always significant when they receive budget.
func (ia *ImpactAnalyzer) Recommendations(records []campaigns.Record, current, proposed Allocation) []Recommendation {
	names := make(map[string]string, len(records))
	for _, rec := range records {
		names[rec.CampaignID] = rec.Name
	}

	recs := make([]Recommendation, 0, len(proposed))
	for id, to := range proposed {
		from := current[id]

		// New campaigns (no current budget) are always worth surfacing
		// when they receive budget; keep their change fraction at zero to
		// stay finite
		var changePct float64
		switch {
		case from > 0:
			changePct = (to - from) / from
			if math.Abs(changePct) < ia.threshold {
				continue
			}
		case to > 0:
			changePct = 0
		default:
			continue
		}

		recs = append(recs, Recommendation{
			CampaignID:     id,
			Name:           names[id],
			CurrentBudget:  from,
			ProposedBudget: to,
			ChangePct:      changePct,
			Message:        recommendationMessage(names[id], id, from, to, changePct),
		})
	}

	// Largest absolute budget move first
	sort.Slice(recs, func(i, j int) bool {
		a := math.Abs(recs[i].ProposedBudget - recs[i].CurrentBudget)
		b := math.Abs(recs[j].ProposedBudget - recs[j].CurrentBudget)
		if a != b {
			return a > b
		}
		return recs[i].CampaignID < recs[j].CampaignID
	})

	return recs
}

func (ia *ImpactAnalyzer) totals(snapshot *estimator.Snapshot, alloc Allocation) PerformanceTotals {
	var t PerformanceTotals
	for id, budget := range alloc {
		curve, ok := snapshot.Curve(id)
		if !ok {
			continue
		}
		pred := curve.Predict(budget)
		t.Clicks += pred.Clicks
		t.Conversions += pred.Conversions
		t.Cost += pred.Cost
		t.Revenue += pred.Revenue
	}
	if t.Cost > 0 {
		t.ROAS = t.Revenue / t.Cost
	}
	return t
}

func recommendationMessage(name, id string, from, to, changePct float64) string {
	label := name
	if label == "" {
		label = id
	}
	switch {
	case from == 0:
		return fmt.Sprintf("Start %s with a daily budget of %.2f", label, to)
	case changePct > 0:
		return fmt.Sprintf("Increase %s from %.2f to %.2f per day (+%.0f%%)", label, from, to, changePct*100)
	default:
		return fmt.Sprintf("Decrease %s from %.2f to %.2f per day (%.0f%%)", label, from, to, changePct*100)
	}
}

// deltaPct returns the relative change, or zero when there is no baseline to
// compare against. Kept finite so results serialize cleanly.
func deltaPct(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from
}
