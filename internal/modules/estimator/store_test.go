package estimator

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/beacon/internal/database"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
		Name: "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db.Conn(), zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestStore_LoadLatestEmpty(t *testing.T) {
	store := testStore(t)

	snapshot, err := store.LoadLatest()
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestStore_SaveAndLoadRoundTrip(t *testing.T) {
	store := testStore(t)

	snapshot := &Snapshot{
		Version:  "v1",
		FittedAt: time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC),
		Curves: map[string]Curve{
			"c1": testCurve(),
		},
		Insufficient: []string{"c2"},
	}
	require.NoError(t, store.Save(snapshot))

	loaded, err := store.LoadLatest()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, snapshot.Version, loaded.Version)
	assert.True(t, snapshot.FittedAt.Equal(loaded.FittedAt))
	assert.Equal(t, snapshot.Curves, loaded.Curves)
	assert.Equal(t, snapshot.Insufficient, loaded.Insufficient)
}

func TestStore_LoadLatestPicksNewest(t *testing.T) {
	store := testStore(t)

	base := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	for i, version := range []string{"v1", "v2", "v3"} {
		require.NoError(t, store.Save(&Snapshot{
			Version:  version,
			FittedAt: base.Add(time.Duration(i) * time.Hour),
			Curves:   map[string]Curve{},
		}))
	}

	loaded, err := store.LoadLatest()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "v3", loaded.Version)
}

func TestStore_PrunesOldVersions(t *testing.T) {
	store := testStore(t)

	base := time.Date(2026, 8, 1, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		require.NoError(t, store.Save(&Snapshot{
			Version:  string(rune('a' + i)),
			FittedAt: base.Add(time.Duration(i) * time.Hour),
			Curves:   map[string]Curve{},
		}))
	}

	var count int
	err := store.db.QueryRow(`SELECT COUNT(*) FROM model_snapshots`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	loaded, err := store.LoadLatest()
	require.NoError(t, err)
	assert.Equal(t, "h", loaded.Version)
}
