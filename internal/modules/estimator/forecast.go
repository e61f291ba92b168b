package estimator

// forecastBlend controls how quickly the multi-day forecast pulls the curve's
// reference point toward the proposed budget's predicted outcomes.
const forecastBlend = 0.2

// StepForecast predicts one day at the proposed budget, then returns the
// curve with its reference point blended toward that prediction. The step is
// a pure function: repeated application converges on a steady state at the
// new budget level without retraining.
func StepForecast(c Curve, budget float64) (Prediction, Curve) {
	pred := c.Predict(budget)

	next := c
	if !c.Flat && c.BaseBudget > 0 {
		next.BaseBudget = blend(c.BaseBudget, budget)
		next.BaseClicks = blend(c.BaseClicks, pred.Clicks)
		next.BaseConversions = blend(c.BaseConversions, pred.Conversions)
		next.BaseCost = blend(c.BaseCost, pred.Cost)
		next.BaseRevenue = blend(c.BaseRevenue, pred.Revenue)
	}

	return pred, next
}

// Forecast runs the day-ahead recurrence over a bounded horizon and returns
// one prediction per day.
func Forecast(c Curve, budget float64, days int) []Prediction {
	if days <= 0 {
		return nil
	}

	predictions := make([]Prediction, 0, days)
	current := c
	for day := 0; day < days; day++ {
		var pred Prediction
		pred, current = StepForecast(current, budget)
		predictions = append(predictions, pred)
	}
	return predictions
}

func blend(prev, next float64) float64 {
	return (1-forecastBlend)*prev + forecastBlend*next
}
