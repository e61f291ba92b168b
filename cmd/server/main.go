package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/beacon/internal/config"
	"github.com/aristath/beacon/internal/database"
	"github.com/aristath/beacon/internal/modules/campaigns"
	"github.com/aristath/beacon/internal/modules/estimator"
	"github.com/aristath/beacon/internal/modules/optimizer"
	"github.com/aristath/beacon/internal/scheduler"
	"github.com/aristath/beacon/internal/server"
	"github.com/aristath/beacon/pkg/logger"
)

func main() {
	// Load configuration first so the log level is respected from the start
	cfg, err := config.Load()
	if err != nil {
		bootstrap := logger.New(logger.Config{Level: "info", Pretty: true})
		bootstrap.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Beacon")

	// Database
	db, err := database.New(database.Config{
		Path: cfg.DatabasePath(),
		Name: "beacon",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Campaign store
	repo, err := campaigns.NewRepository(db.Conn(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize campaigns repository")
	}

	// Estimator: fitter, snapshot cache, persistence
	fitter := estimator.NewFitter(estimator.FitConfig{
		MinHistoryPoints: cfg.MinHistoryPoints,
		MinFitPoints:     cfg.MinFitPoints,
		AlphaClicks:      cfg.AlphaClicks,
		AlphaConversions: cfg.AlphaConversions,
		SmoothingPeriod:  cfg.SmoothingPeriod,
	}, log)
	cache := estimator.NewCache(log)
	store, err := estimator.NewStore(db.Conn(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize snapshot store")
	}

	// Warm start from the last persisted snapshot
	if snapshot, err := store.LoadLatest(); err != nil {
		log.Warn().Err(err).Msg("Failed to load persisted snapshot, starting cold")
	} else if snapshot != nil {
		cache.Replace(snapshot)
	}

	refreshJob := estimator.NewRefreshJob(repo, fitter, cache, store, log)

	// Optimizer pipeline
	solvers := optimizer.BuildSolvers(
		cfg.StrategyOrder,
		optimizer.SolverConfig{
			MaxIterations: cfg.SolverIterations,
			Timeout:       cfg.SolverTimeout,
		},
		optimizer.EvolutionConfig{
			PopulationSize: cfg.EvolutionPopulation,
			MaxGenerations: cfg.EvolutionGenerations,
			MutationRate:   0.1,
			CrossoverRate:  0.7,
			TournamentSize: 3,
			ElitismCount:   5,
			Seed:           cfg.EvolutionSeed,
			Timeout:        cfg.SolverTimeout,
		},
		log,
	)
	orchestrator := optimizer.NewOrchestrator(solvers, log)
	fallback := optimizer.NewFallbackAllocator(log)
	impact := optimizer.NewImpactAnalyzer(cfg.SignificanceThreshold, log)

	runTimeout := cfg.SolverTimeout * time.Duration(len(solvers)+1)
	service := optimizer.NewService(repo, cache, fitter, orchestrator, fallback, impact, runTimeout, log)

	// Scheduler: periodic snapshot refresh
	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.RefreshSchedule, refreshJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule model refresh")
	}
	sched.Start()
	defer sched.Stop()

	// Fit an initial snapshot if the warm start found nothing
	if cache.Current() == nil {
		if err := sched.RunNow(refreshJob); err != nil {
			log.Warn().Err(err).Msg("Initial model fit failed")
		}
	}

	// HTTP server
	srv := server.New(server.Config{
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Log:       log,
		DB:        db,
		Campaigns: campaigns.NewHandler(repo, log),
		Estimator: estimator.NewHandler(cache, refreshJob, log),
		Optimizer: optimizer.NewHandler(service, cfg.MaxChangeFraction, log),
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
