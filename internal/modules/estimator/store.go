package estimator

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

const storeSchema = `
CREATE TABLE IF NOT EXISTS model_snapshots (
	version   TEXT PRIMARY KEY,
	fitted_at TIMESTAMP NOT NULL,
	payload   BLOB NOT NULL
);
`

// Store persists fitted snapshots so a restart doesn't require refitting
// before the first scheduled refresh.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStore creates a snapshot store and ensures its schema exists.
func NewStore(db *sql.DB, log zerolog.Logger) (*Store, error) {
	if _, err := db.Exec(storeSchema); err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot schema: %w", err)
	}
	return &Store{
		db:  db,
		log: log.With().Str("component", "snapshot_store").Logger(),
	}, nil
}

// Save persists a snapshot, keeping only the most recent few versions.
func (s *Store) Save(snapshot *Snapshot) error {
	payload, err := msgpack.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot %s: %w", snapshot.Version, err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO model_snapshots (version, fitted_at, payload)
		VALUES (?, ?, ?)`,
		snapshot.Version, snapshot.FittedAt, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", snapshot.Version, err)
	}

	// Retain the five most recent snapshots
	_, err = s.db.Exec(`
		DELETE FROM model_snapshots
		WHERE version NOT IN (
			SELECT version FROM model_snapshots
			ORDER BY fitted_at DESC
			LIMIT 5
		)`)
	if err != nil {
		return fmt.Errorf("failed to prune old snapshots: %w", err)
	}

	s.log.Info().
		Str("version", snapshot.Version).
		Int("bytes", len(payload)).
		Msg("Snapshot persisted")
	return nil
}

// LoadLatest returns the most recently fitted snapshot, or nil when none exists.
func (s *Store) LoadLatest() (*Snapshot, error) {
	var payload []byte
	err := s.db.QueryRow(`
		SELECT payload FROM model_snapshots
		ORDER BY fitted_at DESC
		LIMIT 1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := msgpack.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}
