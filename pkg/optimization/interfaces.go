// Package optimization searches sweep parameter spaces with a genetic
// algorithm when the full grid is too large to run.
package optimization

import (
	"github.com/ducminhle1904/eod-backtester/internal/backtest"
	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
)

const component = "optimizer"

// Dimension is one searchable parameter and its candidate values
type Dimension struct {
	Name   string
	Values []float64
}

// VariantBuilder compiles one parameter point into a runnable variant
type VariantBuilder func(index int, params map[string]float64) (backtest.Variant, error)

// FitnessFunc scores a finished job, higher is better. False means the job
// cannot be ranked (failed, or the statistic is undefined).
type FitnessFunc func(res backtest.JobResult) (float64, bool)

// OptimizationConfig holds the configuration for the genetic algorithm
type OptimizationConfig struct {
	PopulationSize int
	Generations    int
	MutationRate   float64
	CrossoverRate  float64
	EliteSize      int
	TournamentSize int
	MaxWorkers     int
	Seed           int64
}

// GenerationStats describes one generation after evaluation
type GenerationStats struct {
	Generation     int
	BestFitness    float64
	AverageFitness float64
	Evaluated      int
	BestName       string
}

// Outcome is the result of a search. Results holds every distinct variant
// that was backtested, in evaluation order.
type Outcome struct {
	Best        backtest.JobResult
	BestFitness float64
	Results     []backtest.JobResult
	History     []GenerationStats
	SpaceSize   int
}

// Validate checks that the settings describe a runnable search
func (c OptimizationConfig) Validate() error {
	switch {
	case c.PopulationSize < 2:
		return bterrors.ConfigErrorf(component, "config", "population size must be at least 2, got %d", c.PopulationSize)
	case c.Generations < 1:
		return bterrors.ConfigErrorf(component, "config", "generations must be at least 1, got %d", c.Generations)
	case c.EliteSize < 0 || c.EliteSize >= c.PopulationSize:
		return bterrors.ConfigErrorf(component, "config", "elite size must be in [0, %d), got %d", c.PopulationSize, c.EliteSize)
	case c.TournamentSize < 1:
		return bterrors.ConfigErrorf(component, "config", "tournament size must be at least 1, got %d", c.TournamentSize)
	case c.MutationRate < 0 || c.MutationRate > 1:
		return bterrors.ConfigErrorf(component, "config", "mutation rate must be in [0, 1], got %g", c.MutationRate)
	case c.CrossoverRate < 0 || c.CrossoverRate > 1:
		return bterrors.ConfigErrorf(component, "config", "crossover rate must be in [0, 1], got %g", c.CrossoverRate)
	}
	return nil
}
