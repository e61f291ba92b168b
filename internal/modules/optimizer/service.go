package optimizer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/beacon/internal/modules/campaigns"
	"github.com/aristath/beacon/internal/modules/estimator"
)

// Service runs the full optimization pipeline: resolve bounds, evaluate
// strategies, clamp, and attach impact analysis. One call produces one
// immutable Result.
type Service struct {
	repo         *campaigns.Repository
	cache        *estimator.Cache
	fitter       *estimator.Fitter
	orchestrator *Orchestrator
	fallback     *FallbackAllocator
	impact       *ImpactAnalyzer
	runTimeout   time.Duration
	log          zerolog.Logger
}

// NewService wires the optimizer pipeline. runTimeout caps one whole
// optimization run across all strategies; zero disables the cap.
func NewService(
	repo *campaigns.Repository,
	cache *estimator.Cache,
	fitter *estimator.Fitter,
	orchestrator *Orchestrator,
	fallback *FallbackAllocator,
	impact *ImpactAnalyzer,
	runTimeout time.Duration,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:         repo,
		cache:        cache,
		fitter:       fitter,
		orchestrator: orchestrator,
		fallback:     fallback,
		impact:       impact,
		runTimeout:   runTimeout,
		log:          log.With().Str("component", "optimizer").Logger(),
	}
}

// BuildSolvers constructs the strategy list in the configured order. Unknown
// strategy names are skipped with a warning.
func BuildSolvers(order []string, solverCfg SolverConfig, evoCfg EvolutionConfig, log zerolog.Logger) []Solver {
	if len(order) == 0 {
		order = make([]string, len(DefaultStrategyOrder))
		for i, s := range DefaultStrategyOrder {
			order[i] = string(s)
		}
	}

	solvers := make([]Solver, 0, len(order))
	for _, name := range order {
		switch Strategy(name) {
		case StrategyGradientConstrained:
			solvers = append(solvers, NewGradientSolver(solverCfg, log))
		case StrategyEvolutionary:
			solvers = append(solvers, NewEvolutionarySolver(evoCfg, log))
		case StrategyConvexRelaxation:
			solvers = append(solvers, NewConvexSolver(solverCfg, log))
		case StrategyLinearProgram:
			solvers = append(solvers, NewLinprogSolver(log))
		default:
			log.Warn().Str("strategy", name).Msg("Unknown solver strategy in configuration, skipping")
		}
	}
	return solvers
}

// Optimize executes one optimization run. Only structurally infeasible
// requests and a total absence of campaign data surface as errors; solver
// trouble degrades into diagnostics and, at worst, the fallback allocator.
func (s *Service) Optimize(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if !req.Objective.Valid() {
		return nil, fmt.Errorf("unknown objective %q", req.Objective)
	}

	// Step 1: load campaign records
	records, err := s.repo.BuildRecords()
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign records: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoCampaignData
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.CampaignID
	}
	sort.Strings(ids)

	s.log.Info().
		Int("campaigns", len(ids)).
		Str("objective", string(req.Objective)).
		Float64("total_budget", req.TotalBudget).
		Msg("Step 1: Loaded campaign records")

	// Step 2: resolve and validate bounds
	bounds, err := ResolveBounds(ids, req, s.log)
	if err != nil {
		return nil, err
	}

	// Step 3: response model snapshot
	snapshot := s.cache.Current()
	if snapshot == nil {
		s.log.Warn().Msg("No model snapshot in cache, fitting flat curves from records")
		snapshot = s.fitter.Fit(records, nil)
		s.cache.Replace(snapshot)
	}

	current := currentAllocation(records)

	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	// Step 4: solver strategies, or straight to fallback without any
	// fitted response model
	var (
		candidate    Allocation
		strategyUsed Strategy
		diagnostics  []AttemptDiagnostics
		usedFallback bool
	)

	if allInsufficient(snapshot, ids) {
		s.log.Warn().Msg("Step 4: No campaign has a fitted response model, using fallback allocator")
		usedFallback = true
	} else {
		ev := NewEvaluator(ids, snapshot, req.Objective, req.Constraints.MinROI)
		candidate, strategyUsed, diagnostics, err = s.orchestrator.Run(ctx, ev, bounds, req, current)
		if err != nil {
			if IsInfeasible(err) {
				return nil, err
			}
			s.log.Warn().Err(err).Msg("Step 4: All solver strategies failed, using fallback allocator")
			usedFallback = true
		}
	}

	if usedFallback {
		candidate, err = s.fallback.Allocate(records, req, bounds)
		if err != nil {
			return nil, err
		}
		strategyUsed = ""
	}

	// Step 5: safety clamp
	final, err := Clamp(candidate, current, req, bounds, s.log)
	if err != nil {
		return nil, err
	}

	// Step 6: impact analysis
	expected := s.impact.Expected(snapshot, current, final)
	recommendations := s.impact.Recommendations(records, current, final)

	result := &Result{
		RunID:           uuid.New().String(),
		Timestamp:       time.Now().UTC(),
		Objective:       req.Objective,
		TotalBudget:     req.TotalBudget,
		Allocation:      final,
		StrategyUsed:    strategyUsed,
		UsedFallback:    usedFallback,
		SnapshotVersion: snapshot.Version,
		Diagnostics:     diagnostics,
		Expected:        expected,
		Recommendations: recommendations,
	}

	s.log.Info().
		Str("run_id", result.RunID).
		Str("strategy", string(strategyUsed)).
		Bool("used_fallback", usedFallback).
		Dur("duration", time.Since(start)).
		Msg("Optimization run complete")

	return result, nil
}

// currentAllocation derives the baseline daily budgets from spend history.
func currentAllocation(records []campaigns.Record) Allocation {
	current := make(Allocation, len(records))
	for _, rec := range records {
		current[rec.CampaignID] = rec.DailyBudget()
	}
	return current
}

// allInsufficient reports whether no requested campaign has a fitted curve.
func allInsufficient(snapshot *estimator.Snapshot, ids []string) bool {
	for _, id := range ids {
		curve, ok := snapshot.Curve(id)
		if ok && !curve.Flat {
			return false
		}
	}
	return true
}
