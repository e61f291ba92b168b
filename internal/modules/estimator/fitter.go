package estimator

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/beacon/internal/modules/campaigns"
)

// Exponent clamps keep fitted curves in diminishing-returns territory.
const (
	alphaFitMin = 0.05
	alphaFitMax = 0.95
)

// FitConfig holds curve fitting parameters.
type FitConfig struct {
	MinHistoryPoints int     // minimum usable points to fit at all
	MinFitPoints     int     // distinct budget levels required for regression
	AlphaClicks      float64 // default exponent when regression isn't possible
	AlphaConversions float64
	SmoothingPeriod  int
}

// Fitter builds response-curve snapshots from historical points.
type Fitter struct {
	cfg FitConfig
	log zerolog.Logger
}

// NewFitter creates a new curve fitter.
func NewFitter(cfg FitConfig, log zerolog.Logger) *Fitter {
	return &Fitter{
		cfg: cfg,
		log: log.With().Str("component", "estimator").Logger(),
	}
}

// FitCampaign fits a response curve for one campaign from its historical
// points. Returns ErrInsufficientData when the campaign has fewer usable
// points than the configured minimum.
func (f *Fitter) FitCampaign(campaignID string, points []Point) (Curve, error) {
	if len(points) < f.cfg.MinHistoryPoints {
		return Curve{}, ErrInsufficientData
	}

	curve := Curve{
		CampaignID:       campaignID,
		AlphaClicks:      f.cfg.AlphaClicks,
		AlphaConversions: f.cfg.AlphaConversions,
	}

	var sumBudget, sumClicks, sumConversions, sumCost, sumRevenue float64
	for _, p := range points {
		sumBudget += p.Budget
		sumClicks += p.Clicks
		sumConversions += p.Conversions
		sumCost += p.Cost
		sumRevenue += p.Revenue
	}
	n := float64(len(points))
	curve.BaseBudget = sumBudget / n
	curve.BaseClicks = sumClicks / n
	curve.BaseConversions = sumConversions / n
	curve.BaseCost = sumCost / n
	curve.BaseRevenue = sumRevenue / n

	// Fit exponents from observed budget variation when the history actually
	// varies; otherwise keep the configured defaults (synthetic diminishing
	// returns around the single observed budget level).
	if distinctBudgetLevels(points) >= f.cfg.MinFitPoints {
		if alpha, ok := f.fitAlpha(points, curve.BaseBudget, curve.BaseClicks, func(p Point) float64 { return p.Clicks }); ok {
			curve.AlphaClicks = alpha
		}
		if alpha, ok := f.fitAlpha(points, curve.BaseBudget, curve.BaseConversions, func(p Point) float64 { return p.Conversions }); ok {
			curve.AlphaConversions = alpha
		}
		if alpha, ok := f.fitAlpha(points, curve.BaseBudget, curve.BaseRevenue, func(p Point) float64 { return p.Revenue }); ok {
			curve.AlphaRevenue = alpha
		}
	}

	// Revenue tracks conversions unless separately fitted
	if curve.AlphaRevenue == 0 {
		curve.AlphaRevenue = curve.AlphaConversions
	}

	return curve, nil
}

// Fit builds a complete snapshot for a set of campaigns. Campaigns with
// insufficient history get a flat historical-average curve and are listed in
// the snapshot's Insufficient set.
func (f *Fitter) Fit(records []campaigns.Record, series map[string][]Point) *Snapshot {
	snapshot := &Snapshot{
		Version:  uuid.New().String(),
		FittedAt: time.Now().UTC(),
		Curves:   make(map[string]Curve, len(records)),
	}

	for _, rec := range records {
		points := series[rec.CampaignID]
		curve, err := f.FitCampaign(rec.CampaignID, points)
		if err != nil {
			f.log.Warn().
				Str("campaign_id", rec.CampaignID).
				Int("points", len(points)).
				Err(err).
				Msg("Falling back to flat response curve")
			curve = FlatCurveFromRecord(rec)
			snapshot.Insufficient = append(snapshot.Insufficient, rec.CampaignID)
		}
		snapshot.Curves[rec.CampaignID] = curve
	}

	f.log.Info().
		Str("version", snapshot.Version).
		Int("campaigns", len(snapshot.Curves)).
		Int("insufficient", len(snapshot.Insufficient)).
		Msg("Fitted response model snapshot")

	return snapshot
}

// fitAlpha estimates the diminishing-returns exponent from a log-log
// regression of outcome against budget multiplier. Only points with positive
// budget and outcome participate.
func (f *Fitter) fitAlpha(points []Point, baseBudget, baseOutcome float64, metric func(Point) float64) (float64, bool) {
	if baseBudget <= 0 || baseOutcome <= 0 {
		return 0, false
	}

	var xs, ys []float64
	for _, p := range points {
		v := metric(p)
		if p.Budget <= 0 || v <= 0 {
			continue
		}
		xs = append(xs, math.Log(p.Budget/baseBudget))
		ys = append(ys, math.Log(v/baseOutcome))
	}

	if len(xs) < f.cfg.MinFitPoints {
		return 0, false
	}

	_, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return 0, false
	}

	return math.Max(alphaFitMin, math.Min(alphaFitMax, beta)), true
}

// FlatCurveFromRecord builds a flat historical-average response curve from a
// campaign's aggregate record. Used when per-day history is too thin to fit.
func FlatCurveFromRecord(rec campaigns.Record) Curve {
	days := float64(rec.DaysActive)
	if days <= 0 {
		days = 1
	}
	return Curve{
		CampaignID:      rec.CampaignID,
		BaseBudget:      rec.Spend / days,
		BaseClicks:      rec.Clicks / days,
		BaseConversions: rec.Conversions / days,
		BaseCost:        rec.Spend / days,
		BaseRevenue:     rec.Revenue / days,
		Flat:            true,
	}
}

// distinctBudgetLevels counts budget levels that differ by more than 1%.
func distinctBudgetLevels(points []Point) int {
	seen := make(map[int64]bool)
	for _, p := range points {
		if p.Budget <= 0 {
			continue
		}
		// Bucket by 1% granularity on a log scale
		bucket := int64(math.Round(math.Log(p.Budget) * 100))
		seen[bucket] = true
	}
	return len(seen)
}
