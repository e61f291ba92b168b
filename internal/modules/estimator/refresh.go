package estimator

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/beacon/internal/modules/campaigns"
)

// RefreshJob re-fits the response-model snapshot from the metrics store and
// swaps it into the cache. Runs on the scheduler and on demand via the
// refresh endpoint.
type RefreshJob struct {
	repo   *campaigns.Repository
	fitter *Fitter
	cache  *Cache
	store  *Store
	log    zerolog.Logger
}

// NewRefreshJob creates the model refresh job.
func NewRefreshJob(repo *campaigns.Repository, fitter *Fitter, cache *Cache, store *Store, log zerolog.Logger) *RefreshJob {
	return &RefreshJob{
		repo:   repo,
		fitter: fitter,
		cache:  cache,
		store:  store,
		log:    log.With().Str("component", "refresh_models").Logger(),
	}
}

// Name returns the job identifier for scheduler logs.
func (j *RefreshJob) Name() string {
	return "refresh_models"
}

// Run fits a fresh snapshot from all stored daily metrics. The previous
// snapshot stays live until the new one is complete.
func (j *RefreshJob) Run() error {
	records, err := j.repo.BuildRecords()
	if err != nil {
		return fmt.Errorf("failed to load campaign records: %w", err)
	}
	if len(records) == 0 {
		j.log.Info().Msg("No campaigns to fit, keeping current snapshot")
		return nil
	}

	metrics, err := j.repo.AllMetrics()
	if err != nil {
		return fmt.Errorf("failed to load daily metrics: %w", err)
	}

	series := make(map[string][]Point, len(metrics))
	for campaignID, rows := range metrics {
		series[campaignID] = PointsFromMetrics(rows, j.fitter.cfg.SmoothingPeriod)
	}

	snapshot := j.fitter.Fit(records, series)
	j.cache.Replace(snapshot)

	if err := j.store.Save(snapshot); err != nil {
		// The in-memory swap already happened; persistence failure only
		// costs warm start after restart
		j.log.Warn().Err(err).Msg("Failed to persist model snapshot")
	}

	j.log.Info().
		Str("version", snapshot.Version).
		Int("campaigns", len(records)).
		Int("insufficient", len(snapshot.Insufficient)).
		Msg("Model snapshot refreshed")

	return nil
}
