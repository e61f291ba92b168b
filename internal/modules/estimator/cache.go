package estimator

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Cache holds the current fitted snapshot behind an atomic pointer.
// Optimization runs read a point-in-time snapshot; refreshes swap in a new
// snapshot (copy-on-write) and never mutate the one in use.
type Cache struct {
	current atomic.Pointer[Snapshot]
	log     zerolog.Logger
}

// NewCache creates an empty snapshot cache.
func NewCache(log zerolog.Logger) *Cache {
	return &Cache{
		log: log.With().Str("component", "estimator_cache").Logger(),
	}
}

// Current returns the current snapshot, or nil when nothing has been fitted yet.
func (c *Cache) Current() *Snapshot {
	return c.current.Load()
}

// Replace swaps in a new snapshot. In-flight readers keep the snapshot they
// already loaded.
func (c *Cache) Replace(s *Snapshot) {
	old := c.current.Swap(s)
	evt := c.log.Info().Str("version", s.Version)
	if old != nil {
		evt = evt.Str("previous_version", old.Version)
	}
	evt.Msg("Response model snapshot replaced")
}
