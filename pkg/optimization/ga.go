package optimization

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ducminhle1904/eod-backtester/internal/backtest"
	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

// GeneticOptimizer searches a parameter space by evolving a population of
// parameter points. Each generation is backtested as one sweep and every
// distinct point is run at most once.
type GeneticOptimizer struct {
	dims    []Dimension
	build   VariantBuilder
	fitness FitnessFunc
	cfg     OptimizationConfig
	op      *GeneticOperator
	logger  *zap.Logger

	sweepOpts    []backtest.SweepOption
	onGeneration func(GenerationStats)
}

// Option configures the optimizer
type Option func(*GeneticOptimizer)

func WithLogger(l *zap.Logger) Option {
	return func(g *GeneticOptimizer) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithSweepOptions is passed to every generation's sweep
func WithSweepOptions(opts ...backtest.SweepOption) Option {
	return func(g *GeneticOptimizer) {
		g.sweepOpts = append(g.sweepOpts, opts...)
	}
}

// WithGenerationHook is called after every evaluated generation
func WithGenerationHook(fn func(GenerationStats)) Option {
	return func(g *GeneticOptimizer) {
		g.onGeneration = fn
	}
}

// NewGeneticOptimizer checks the search space and settings
func NewGeneticOptimizer(dims []Dimension, build VariantBuilder, fitness FitnessFunc, cfg OptimizationConfig, opts ...Option) (*GeneticOptimizer, error) {
	if len(dims) == 0 {
		return nil, bterrors.NewConfigError(component, "new", "no dimensions to search")
	}
	for _, d := range dims {
		if len(d.Values) == 0 {
			return nil, bterrors.ConfigErrorf(component, "new", "parameter %q has no values", d.Name)
		}
	}
	if build == nil || fitness == nil {
		return nil, bterrors.NewConfigError(component, "new", "builder and fitness function are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &GeneticOptimizer{
		dims:    dims,
		build:   build,
		fitness: fitness,
		cfg:     cfg,
		op:      NewGeneticOperator(dims),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// search is the state of one Optimize call
type search struct {
	cache   map[string]*Individual
	outcome *Outcome
	best    *Individual
}

// Optimize runs the search on bars. The same seed, space and data give the
// same outcome regardless of the worker count.
func (g *GeneticOptimizer) Optimize(ctx context.Context, bars []types.Bar) (*Outcome, error) {
	rng := rand.New(rand.NewSource(g.cfg.Seed))
	s := &search{
		cache:   make(map[string]*Individual),
		outcome: &Outcome{SpaceSize: SpaceSize(g.dims)},
	}

	individuals := make([]*Individual, g.cfg.PopulationSize)
	for i := range individuals {
		individuals[i] = g.op.Random(rng)
	}
	population := NewPopulation(individuals)

	g.logger.Info("GA search started",
		zap.Int("space", s.outcome.SpaceSize),
		zap.Int("population", g.cfg.PopulationSize),
		zap.Int("generations", g.cfg.Generations),
		zap.Int64("seed", g.cfg.Seed),
	)

	for gen := 1; gen <= g.cfg.Generations; gen++ {
		evaluated, err := g.evaluate(ctx, population, bars, s)
		if err != nil {
			return nil, err
		}
		population.SortByFitness()

		if top := population.Best(); top.Ranked && (s.best == nil || top.Fitness > s.best.Fitness) {
			s.best = top.Copy()
		}

		stats := GenerationStats{
			Generation:     gen,
			AverageFitness: population.AverageFitness(),
			Evaluated:      evaluated,
		}
		if s.best != nil {
			stats.BestFitness = s.best.Fitness
			stats.BestName = s.best.Result.Variant.Name
		}
		s.outcome.History = append(s.outcome.History, stats)
		g.logger.Info("GA generation",
			zap.Int("generation", gen),
			zap.Int("new_variants", evaluated),
			zap.Float64("best", stats.BestFitness),
			zap.Float64("average", stats.AverageFitness),
		)
		if g.onGeneration != nil {
			g.onGeneration(stats)
		}

		if len(s.cache) >= s.outcome.SpaceSize {
			g.logger.Info("GA search covered the whole space", zap.Int("variants", len(s.cache)))
			break
		}
		if gen < g.cfg.Generations {
			population = g.nextGeneration(population, rng)
		}
	}

	if s.best == nil {
		return nil, bterrors.NewComputeError(component, "optimize", "no variant could be ranked")
	}
	s.outcome.Best = s.best.Result
	s.outcome.BestFitness = s.best.Fitness
	return s.outcome, nil
}

// evaluate backtests the individuals not seen before as one sweep and fills
// every individual from the cache. It returns the number of new variants.
func (g *GeneticOptimizer) evaluate(ctx context.Context, pop *Population, bars []types.Bar, s *search) (int, error) {
	var variants []backtest.Variant
	pending := make(map[int]string)

	for _, ind := range pop.Individuals() {
		key := ind.Key()
		if _, ok := s.cache[key]; ok {
			continue
		}

		index := len(s.outcome.Results) + len(pending)
		params := ind.Params(g.dims)
		v, err := g.build(index, params)
		if err != nil {
			// a point that does not compile is kept as a failed result
			failed := ind.Copy()
			failed.Reset()
			failed.Result = backtest.JobResult{
				Variant: backtest.Variant{Index: index, Name: pointName(params), Params: params},
				Err:     err,
			}
			s.cache[key] = failed
			s.outcome.Results = append(s.outcome.Results, failed.Result)
			continue
		}
		s.cache[key] = nil
		pending[index] = key
		variants = append(variants, v)
	}

	if len(variants) > 0 {
		results, err := backtest.Sweep(ctx, bars, variants, g.cfg.MaxWorkers, g.sweepOpts...)
		if err != nil {
			return 0, err
		}
		for _, res := range results {
			key, ok := pending[res.Variant.Index]
			if !ok {
				continue
			}
			scored := &Individual{Result: res}
			scored.Fitness, scored.Ranked = g.fitness(res)
			s.cache[key] = scored
			s.outcome.Results = append(s.outcome.Results, res)
		}
	}

	for _, ind := range pop.Individuals() {
		hit := s.cache[ind.Key()]
		if hit == nil {
			return 0, bterrors.ComputeErrorf(component, "evaluate", "variant %s was not backtested", pointName(ind.Params(g.dims)))
		}
		ind.Fitness, ind.Ranked, ind.Result = hit.Fitness, hit.Ranked, hit.Result
	}

	sort.SliceStable(s.outcome.Results, func(i, j int) bool {
		return s.outcome.Results[i].Variant.Index < s.outcome.Results[j].Variant.Index
	})
	return len(variants), nil
}

// nextGeneration keeps the elite and fills the rest with tournament
// selection, crossover and mutation. pop must be sorted.
func (g *GeneticOptimizer) nextGeneration(pop *Population, rng *rand.Rand) *Population {
	next := pop.Elite(g.cfg.EliteSize)
	for len(next) < g.cfg.PopulationSize {
		p1 := g.op.Select(pop, g.cfg.TournamentSize, rng)
		p2 := g.op.Select(pop, g.cfg.TournamentSize, rng)

		child := g.op.Crossover(p1, p2, g.cfg.CrossoverRate, rng)
		g.op.Mutate(child, g.cfg.MutationRate, rng)
		next = append(next, child)
	}
	return NewPopulation(next)
}

func pointName(params map[string]float64) string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = k + "=" + strconv.FormatFloat(params[k], 'f', -1, 64)
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ","))
}
