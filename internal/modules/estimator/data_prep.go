package estimator

import (
	talib "github.com/markcheno/go-talib"
	"github.com/montanaflynn/stats"

	"github.com/aristath/beacon/internal/modules/campaigns"
)

// PointsFromMetrics converts daily metric rows into fitting points. Click,
// conversion and revenue series are SMA-smoothed to damp day-to-day noise,
// and days with outlier spend (outside 1.5 IQR) are dropped so one-off budget
// spikes don't skew the curve fit.
func PointsFromMetrics(metrics []campaigns.DailyMetric, smoothingPeriod int) []Point {
	if len(metrics) == 0 {
		return nil
	}

	n := len(metrics)
	spend := make([]float64, n)
	clicks := make([]float64, n)
	conversions := make([]float64, n)
	revenue := make([]float64, n)
	for i, m := range metrics {
		spend[i] = m.Spend
		clicks[i] = m.Clicks
		conversions[i] = m.Conversions
		revenue[i] = m.Revenue
	}

	skip := 0
	if smoothingPeriod > 1 && n >= smoothingPeriod {
		clicks = talib.Sma(clicks, smoothingPeriod)
		conversions = talib.Sma(conversions, smoothingPeriod)
		revenue = talib.Sma(revenue, smoothingPeriod)
		// SMA output is zero-filled for the first period-1 entries
		skip = smoothingPeriod - 1
	}

	low, high, hasFence := spendFences(spend)

	points := make([]Point, 0, n-skip)
	for i := skip; i < n; i++ {
		if spend[i] <= 0 {
			continue
		}
		if hasFence && (spend[i] < low || spend[i] > high) {
			continue
		}
		points = append(points, Point{
			Budget:      spend[i],
			Clicks:      clicks[i],
			Conversions: conversions[i],
			Cost:        metrics[i].Spend,
			Revenue:     revenue[i],
		})
	}

	return points
}

// spendFences returns the Tukey fences (1.5 IQR) for the spend series.
// Returns hasFence=false when the series is too short for quartiles.
func spendFences(spend []float64) (float64, float64, bool) {
	if len(spend) < 4 {
		return 0, 0, false
	}

	quartiles, err := stats.Quartile(stats.Float64Data(spend))
	if err != nil {
		return 0, 0, false
	}

	iqr := quartiles.Q3 - quartiles.Q1
	return quartiles.Q1 - 1.5*iqr, quartiles.Q3 + 1.5*iqr, true
}
