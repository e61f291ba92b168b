package optimizer

import (
	"math"

	"github.com/rs/zerolog"
)

// Clamp bounds a candidate allocation to the bounded-change band around the
// current allocation intersected with the absolute per-campaign bounds, then
// renormalizes so the total matches the requested budget exactly. Campaigns
// pushed outside a bound by renormalization are pinned at that bound and the
// remainder is redistributed among unpinned campaigns (water-filling).
func Clamp(candidate, current Allocation, req Request, bounds Bounds, log zerolog.Logger) (Allocation, error) {
	effective := effectiveBounds(current, req, bounds, log)
	budgets := effective.vector(candidate)

	// Per-campaign projection first
	for i, id := range effective.IDs {
		budgets[i] = math.Max(effective.Min[id], math.Min(effective.Max[id], budgets[i]))
	}

	normalized, err := renormalizeWithBounds(budgets, effective, req.TotalBudget)
	if err != nil {
		return nil, err
	}

	return effective.allocation(normalized), nil
}

// effectiveBounds intersects the absolute bounds with the bounded-change band
// around the current allocation. Campaigns without a current budget (new
// campaigns) and conflicting intersections keep the absolute bounds.
func effectiveBounds(current Allocation, req Request, bounds Bounds, log zerolog.Logger) Bounds {
	f := req.Constraints.MaxChangeFraction
	if f <= 0 {
		return bounds
	}

	effective := Bounds{
		IDs: bounds.IDs,
		Min: make(map[string]float64, len(bounds.IDs)),
		Max: make(map[string]float64, len(bounds.IDs)),
	}

	for _, id := range bounds.IDs {
		lo := bounds.Min[id]
		hi := bounds.Max[id]

		cur := current[id]
		if cur > 0 {
			bandLo := math.Max(lo, cur*(1-f))
			bandHi := math.Min(hi, cur*(1+f))
			if bandLo <= bandHi {
				lo, hi = bandLo, bandHi
			} else {
				log.Warn().
					Str("campaign_id", id).
					Float64("current", cur).
					Float64("band_lo", bandLo).
					Float64("band_hi", bandHi).
					Msg("Change band conflicts with absolute bounds - keeping absolute bounds")
			}
		}

		effective.Min[id] = lo
		effective.Max[id] = hi
	}

	return effective
}

// renormalizeWithBounds rescales the vector to sum to total while keeping
// every entry inside its bounds. Entries that a rescale would push past a
// bound are pinned there and excluded from subsequent rescales. When all
// entries end up pinned and the total still cannot be met, the total itself
// is infeasible under the bounds.
func renormalizeWithBounds(budgets []float64, b Bounds, total float64) ([]float64, error) {
	n := len(budgets)
	values := make([]float64, n)
	copy(values, budgets)
	pinned := make([]bool, n)

	// Each pass pins at least one entry, so n+1 passes always suffice.
	for pass := 0; pass <= n; pass++ {
		var pinnedSum, freeSum float64
		freeCount := 0
		for i := range values {
			if pinned[i] {
				pinnedSum += values[i]
			} else {
				freeSum += values[i]
				freeCount++
			}
		}

		remaining := total - pinnedSum

		if freeCount == 0 {
			if relativeError(pinnedSum, total) > BudgetTolerance {
				return nil, &InfeasibleConstraintsError{
					Bound:  "total_budget",
					Detail: "all campaigns pinned at their bounds; total budget unreachable",
				}
			}
			return values, nil
		}

		newPins := false
		if freeSum <= 0 {
			// Nothing to scale proportionally: spread the remainder equally
			share := remaining / float64(freeCount)
			for i, id := range b.IDs {
				if pinned[i] {
					continue
				}
				v := share
				if v < b.Min[id] {
					values[i] = b.Min[id]
					pinned[i] = true
					newPins = true
				} else if v > b.Max[id] {
					values[i] = b.Max[id]
					pinned[i] = true
					newPins = true
				} else {
					values[i] = v
				}
			}
		} else {
			scale := remaining / freeSum
			for i, id := range b.IDs {
				if pinned[i] {
					continue
				}
				v := values[i] * scale
				if v < b.Min[id]-BudgetTolerance {
					values[i] = b.Min[id]
					pinned[i] = true
					newPins = true
				} else if v > b.Max[id]+BudgetTolerance {
					values[i] = b.Max[id]
					pinned[i] = true
					newPins = true
				} else {
					values[i] = math.Max(b.Min[id], math.Min(b.Max[id], v))
				}
			}
		}

		if !newPins {
			return values, nil
		}
	}

	return nil, &InfeasibleConstraintsError{
		Bound:  "total_budget",
		Detail: "bound redistribution did not converge",
	}
}

func relativeError(got, want float64) float64 {
	if want == 0 {
		return math.Abs(got)
	}
	return math.Abs(got-want) / math.Abs(want)
}
