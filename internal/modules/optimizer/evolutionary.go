package optimizer

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// EvolutionConfig controls the genetic search.
type EvolutionConfig struct {
	PopulationSize int
	MaxGenerations int
	MutationRate   float64
	CrossoverRate  float64
	TournamentSize int
	ElitismCount   int
	Seed           int64
	Timeout        time.Duration
}

// DefaultEvolutionConfig returns the configuration used when nothing is
// overridden.
func DefaultEvolutionConfig() EvolutionConfig {
	return EvolutionConfig{
		PopulationSize: 100,
		MaxGenerations: 50,
		MutationRate:   0.1,
		CrossoverRate:  0.7,
		TournamentSize: 3,
		ElitismCount:   5,
	}
}

// EvolutionarySolver searches allocation space with a genetic algorithm.
// Works on non-smooth objectives where the gradient solver stalls, such as
// ROAS with many flat curves. The run is deterministic for a fixed seed.
type EvolutionarySolver struct {
	cfg EvolutionConfig
	log zerolog.Logger
}

type individual struct {
	genome  []float64
	fitness float64
}

// NewEvolutionarySolver creates a genetic-algorithm solver.
func NewEvolutionarySolver(cfg EvolutionConfig, log zerolog.Logger) *EvolutionarySolver {
	if cfg.PopulationSize <= 0 {
		cfg = DefaultEvolutionConfig()
	}
	return &EvolutionarySolver{
		cfg: cfg,
		log: log.With().Str("component", "solver_evolutionary").Logger(),
	}
}

// Name returns the strategy identifier.
func (es *EvolutionarySolver) Name() Strategy {
	return StrategyEvolutionary
}

// Solve evolves a population of repaired allocation vectors. Every genome is
// kept feasible (bounds plus exact budget total) by the same water-filling
// repair the safety clamp uses, so fitness never needs a budget penalty.
func (es *EvolutionarySolver) Solve(ctx context.Context, ev *Evaluator, bounds Bounds, req Request) (Allocation, int, error) {
	rng := rand.New(rand.NewSource(es.cfg.Seed))
	total := req.TotalBudget
	n := len(bounds.IDs)

	deadline := time.Now().Add(es.cfg.Timeout)
	if es.cfg.Timeout <= 0 {
		deadline = time.Now().Add(time.Hour)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	population := make([]individual, es.cfg.PopulationSize)
	equal := bounds.equalShare(total)
	for p := range population {
		genome := make([]float64, n)
		if p == 0 {
			copy(genome, equal)
		} else {
			for i, id := range bounds.IDs {
				span := bounds.Max[id] - bounds.Min[id]
				genome[i] = bounds.Min[id] + rng.Float64()*span
			}
		}
		repaired, ok := es.repair(genome, bounds, total)
		if !ok {
			repaired = make([]float64, n)
			copy(repaired, equal)
		}
		population[p] = individual{genome: repaired, fitness: es.fitness(ev, repaired)}
	}

	generations := 0
	for gen := 0; gen < es.cfg.MaxGenerations; gen++ {
		if time.Now().After(deadline) {
			return nil, generations, ErrSolverTimedOut
		}
		generations++

		sort.Slice(population, func(i, j int) bool {
			return population[i].fitness > population[j].fitness
		})

		next := make([]individual, 0, es.cfg.PopulationSize)
		for e := 0; e < es.cfg.ElitismCount && e < len(population); e++ {
			next = append(next, population[e])
		}

		for len(next) < es.cfg.PopulationSize {
			parentA := es.tournament(population, rng)
			parentB := es.tournament(population, rng)

			child := make([]float64, n)
			if rng.Float64() < es.cfg.CrossoverRate {
				// Blend crossover: per-gene convex combination
				for i := range child {
					mix := rng.Float64()
					child[i] = mix*parentA.genome[i] + (1-mix)*parentB.genome[i]
				}
			} else {
				copy(child, parentA.genome)
			}

			for i, id := range bounds.IDs {
				if rng.Float64() < es.cfg.MutationRate {
					span := bounds.Max[id] - bounds.Min[id]
					child[i] += rng.NormFloat64() * 0.1 * span
				}
			}

			repaired, ok := es.repair(child, bounds, total)
			if !ok {
				continue
			}
			next = append(next, individual{genome: repaired, fitness: es.fitness(ev, repaired)})
		}

		population = next
	}

	sort.Slice(population, func(i, j int) bool {
		return population[i].fitness > population[j].fitness
	})
	best := population[0]
	if best.genome == nil {
		return nil, generations, ErrSolverDiverged
	}
	if !ev.ROIFeasible(best.genome) {
		return nil, generations, ErrSolverDiverged
	}

	es.log.Debug().
		Int("generations", generations).
		Float64("fitness", best.fitness).
		Msg("Evolution finished")

	return bounds.allocation(best.genome), generations, nil
}

func (es *EvolutionarySolver) fitness(ev *Evaluator, genome []float64) float64 {
	return ev.Value(genome) - ev.Penalty(genome)
}

func (es *EvolutionarySolver) tournament(population []individual, rng *rand.Rand) individual {
	best := population[rng.Intn(len(population))]
	for round := 1; round < es.cfg.TournamentSize; round++ {
		challenger := population[rng.Intn(len(population))]
		if challenger.fitness > best.fitness {
			best = challenger
		}
	}
	return best
}

// repair projects the genome into bounds and restores the exact budget total.
func (es *EvolutionarySolver) repair(genome []float64, bounds Bounds, total float64) ([]float64, bool) {
	clipped := make([]float64, len(genome))
	for i, id := range bounds.IDs {
		v := genome[i]
		if v < bounds.Min[id] {
			v = bounds.Min[id]
		}
		if v > bounds.Max[id] {
			v = bounds.Max[id]
		}
		clipped[i] = v
	}
	repaired, err := renormalizeWithBounds(clipped, bounds, total)
	if err != nil {
		return nil, false
	}
	return repaired, true
}
