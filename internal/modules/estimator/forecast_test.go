package estimator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForecast_HorizonLength(t *testing.T) {
	curve := testCurve()

	assert.Len(t, Forecast(curve, 200, 7), 7)
	assert.Len(t, Forecast(curve, 200, 1), 1)
	assert.Nil(t, Forecast(curve, 200, 0))
	assert.Nil(t, Forecast(curve, 200, -3))
}

func TestForecast_ConvergesTowardBudget(t *testing.T) {
	curve := testCurve()
	budget := 400.0

	predictions := Forecast(curve, budget, 40)
	require.Len(t, predictions, 40)

	// Day one is the plain curve prediction at the new budget.
	assert.Equal(t, curve.Predict(budget), predictions[0])

	// As the reference point drifts toward the new budget the one-day
	// uplift shrinks, so predictions decay monotonically toward a steady
	// state that still sits above the old reference outcomes.
	for i := 1; i < len(predictions); i++ {
		assert.LessOrEqual(t, predictions[i].Conversions, predictions[i-1].Conversions)
	}
	last := predictions[len(predictions)-1]
	assert.Greater(t, last.Conversions, curve.BaseConversions)

	firstStep := predictions[0].Conversions - predictions[1].Conversions
	lastStep := predictions[len(predictions)-2].Conversions - last.Conversions
	assert.Less(t, lastStep, firstStep/10)
}

func TestForecast_ReferenceAtBudgetIsFixedPoint(t *testing.T) {
	curve := testCurve()

	pred, next := StepForecast(curve, curve.BaseBudget)
	assert.InDelta(t, curve.BaseConversions, pred.Conversions, 1e-9)
	assert.Equal(t, curve, next)
}

func TestForecast_StepMovesReferenceBudget(t *testing.T) {
	curve := testCurve()

	_, next := StepForecast(curve, 400)
	assert.Greater(t, next.BaseBudget, curve.BaseBudget)
	assert.Less(t, next.BaseBudget, 400.0)

	gap := math.Abs(next.BaseBudget - 400)
	_, after := StepForecast(next, 400)
	assert.Less(t, math.Abs(after.BaseBudget-400), gap)
}

func TestForecast_FlatCurveIsStable(t *testing.T) {
	curve := testCurve()
	curve.Flat = true

	predictions := Forecast(curve, 400, 5)
	require.Len(t, predictions, 5)
	for _, p := range predictions {
		assert.Equal(t, predictions[0], p)
	}
}
