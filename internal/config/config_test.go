package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.Nil(t, cfg.StrategyOrder)
	assert.Equal(t, DefaultSolverIterations, cfg.SolverIterations)
	assert.Equal(t, DefaultSolverTimeout, cfg.SolverTimeout)
	assert.Equal(t, DefaultEvolutionPopulation, cfg.EvolutionPopulation)
	assert.Equal(t, int64(DefaultEvolutionSeed), cfg.EvolutionSeed)
	assert.Equal(t, DefaultMinHistoryPoints, cfg.MinHistoryPoints)
	assert.InDelta(t, DefaultAlphaClicks, cfg.AlphaClicks, 1e-9)
	assert.InDelta(t, DefaultMaxChangeFraction, cfg.MaxChangeFraction, 1e-9)
	assert.Equal(t, DefaultRefreshSchedule, cfg.RefreshSchedule)
	assert.True(t, filepath.IsAbs(cfg.DataDir))
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BEACON_PORT", "9191")
	t.Setenv("BEACON_LOG_LEVEL", "debug")
	t.Setenv("BEACON_DEV_MODE", "true")
	t.Setenv("BEACON_STRATEGY_ORDER", "evolutionary, gradient_constrained")
	t.Setenv("BEACON_SOLVER_TIMEOUT_MS", "750")
	t.Setenv("BEACON_ALPHA_CONVERSIONS", "0.35")
	t.Setenv("BEACON_MAX_CHANGE_FRACTION", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, []string{"evolutionary", "gradient_constrained"}, cfg.StrategyOrder)
	assert.Equal(t, 750*time.Millisecond, cfg.SolverTimeout)
	assert.InDelta(t, 0.35, cfg.AlphaConversions, 1e-9)
	assert.InDelta(t, 0.5, cfg.MaxChangeFraction, 1e-9)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("bad int", func(t *testing.T) {
		t.Setenv("BEACON_PORT", "not-a-port")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("port out of range", func(t *testing.T) {
		t.Setenv("BEACON_PORT", "70000")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("alpha out of range", func(t *testing.T) {
		t.Setenv("BEACON_ALPHA_CLICKS", "1.5")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("non-positive change fraction", func(t *testing.T) {
		t.Setenv("BEACON_MAX_CHANGE_FRACTION", "0")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestParseStrategyOrder(t *testing.T) {
	assert.Nil(t, parseStrategyOrder(""))
	assert.Equal(t, []string{"a"}, parseStrategyOrder("a"))
	assert.Equal(t, []string{"a", "b"}, parseStrategyOrder(" a , b ,"))
}

func TestDatabasePath(t *testing.T) {
	cfg := &Config{DataDir: "/var/lib/beacon"}
	assert.Equal(t, filepath.Join("/var/lib/beacon", "beacon.db"), cfg.DatabasePath())
}
