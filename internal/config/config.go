// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for optimizer tuning knobs. All of them can be overridden via
// environment variables (see Load).
const (
	DefaultMinHistoryPoints      = 5
	DefaultMinFitPoints          = 4
	DefaultAlphaClicks           = 0.3
	DefaultAlphaConversions      = 0.2
	DefaultSmoothingPeriod       = 7
	DefaultSignificanceThreshold = 0.10
	DefaultMaxChangeFraction     = 0.25
	DefaultSolverIterations      = 500
	DefaultSolverTimeout         = 2 * time.Second
	DefaultEvolutionPopulation   = 80
	DefaultEvolutionGenerations  = 120
	DefaultEvolutionSeed         = 42
	DefaultRefreshSchedule       = "0 0 3 * * *" // 03:00 daily
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the database (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	// Solver orchestration
	StrategyOrder        []string      // ordered solver strategies
	SolverIterations     int           // per-strategy iteration cap
	SolverTimeout        time.Duration // per-strategy wall-clock cap
	EvolutionPopulation  int
	EvolutionGenerations int
	EvolutionSeed        int64

	// Performance estimation
	MinHistoryPoints int     // minimum daily metric rows to fit a campaign
	MinFitPoints     int     // distinct budget levels required for regression
	AlphaClicks      float64 // diminishing returns exponent for clicks
	AlphaConversions float64 // diminishing returns exponent for conversions
	SmoothingPeriod  int     // SMA window for daily metric smoothing

	// Recommendations
	SignificanceThreshold float64 // minimum relative change worth surfacing

	// Safety
	MaxChangeFraction float64 // default bounded-change limit per campaign

	// Background jobs
	RefreshSchedule string // cron spec for model snapshot refresh
}

// Load reads configuration from environment variables, optionally loading a
// .env file first. Missing values fall back to sensible defaults.
func Load() (*Config, error) {
	// .env is optional - ignore load errors
	_ = godotenv.Load()

	port, err := getEnvInt("BEACON_PORT", 8090)
	if err != nil {
		return nil, err
	}

	dataDir := getEnv("BEACON_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir %q: %w", dataDir, err)
	}

	solverIterations, err := getEnvInt("BEACON_SOLVER_ITERATIONS", DefaultSolverIterations)
	if err != nil {
		return nil, err
	}

	solverTimeoutMs, err := getEnvInt("BEACON_SOLVER_TIMEOUT_MS", int(DefaultSolverTimeout/time.Millisecond))
	if err != nil {
		return nil, err
	}

	population, err := getEnvInt("BEACON_EVOLUTION_POPULATION", DefaultEvolutionPopulation)
	if err != nil {
		return nil, err
	}

	generations, err := getEnvInt("BEACON_EVOLUTION_GENERATIONS", DefaultEvolutionGenerations)
	if err != nil {
		return nil, err
	}

	seed, err := getEnvInt("BEACON_EVOLUTION_SEED", DefaultEvolutionSeed)
	if err != nil {
		return nil, err
	}

	minHistory, err := getEnvInt("BEACON_MIN_HISTORY_POINTS", DefaultMinHistoryPoints)
	if err != nil {
		return nil, err
	}

	minFit, err := getEnvInt("BEACON_MIN_FIT_POINTS", DefaultMinFitPoints)
	if err != nil {
		return nil, err
	}

	smoothing, err := getEnvInt("BEACON_SMOOTHING_PERIOD", DefaultSmoothingPeriod)
	if err != nil {
		return nil, err
	}

	alphaClicks, err := getEnvFloat("BEACON_ALPHA_CLICKS", DefaultAlphaClicks)
	if err != nil {
		return nil, err
	}

	alphaConversions, err := getEnvFloat("BEACON_ALPHA_CONVERSIONS", DefaultAlphaConversions)
	if err != nil {
		return nil, err
	}

	threshold, err := getEnvFloat("BEACON_SIGNIFICANCE_THRESHOLD", DefaultSignificanceThreshold)
	if err != nil {
		return nil, err
	}

	maxChange, err := getEnvFloat("BEACON_MAX_CHANGE_FRACTION", DefaultMaxChangeFraction)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:               absDataDir,
		LogLevel:              getEnv("BEACON_LOG_LEVEL", "info"),
		Port:                  port,
		DevMode:               getEnv("BEACON_DEV_MODE", "false") == "true",
		StrategyOrder:         parseStrategyOrder(getEnv("BEACON_STRATEGY_ORDER", "")),
		SolverIterations:      solverIterations,
		SolverTimeout:         time.Duration(solverTimeoutMs) * time.Millisecond,
		EvolutionPopulation:   population,
		EvolutionGenerations:  generations,
		EvolutionSeed:         int64(seed),
		MinHistoryPoints:      minHistory,
		MinFitPoints:          minFit,
		AlphaClicks:           alphaClicks,
		AlphaConversions:      alphaConversions,
		SmoothingPeriod:       smoothing,
		SignificanceThreshold: threshold,
		MaxChangeFraction:     maxChange,
		RefreshSchedule:       getEnv("BEACON_REFRESH_SCHEDULE", DefaultRefreshSchedule),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.AlphaClicks <= 0 || c.AlphaClicks >= 1 {
		return fmt.Errorf("alpha_clicks must be in (0,1), got %f", c.AlphaClicks)
	}
	if c.AlphaConversions <= 0 || c.AlphaConversions >= 1 {
		return fmt.Errorf("alpha_conversions must be in (0,1), got %f", c.AlphaConversions)
	}
	if c.MaxChangeFraction <= 0 {
		return fmt.Errorf("max_change_fraction must be positive, got %f", c.MaxChangeFraction)
	}
	if c.MinHistoryPoints < 1 {
		return fmt.Errorf("min_history_points must be at least 1, got %d", c.MinHistoryPoints)
	}
	return nil
}

// DatabasePath returns the path to the campaigns database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "beacon.db")
}

// parseStrategyOrder parses a comma-separated strategy list. An empty value
// yields nil, meaning the optimizer's default order applies.
func parseStrategyOrder(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	order := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			order = append(order, p)
		}
	}
	return order
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q", key, value)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q", key, value)
	}
	return f, nil
}
