package optimization

import (
	"math"

	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
	"github.com/ducminhle1904/eod-backtester/pkg/config"
)

// GA defaults for daily index data. A sweep of a few years of bars runs in
// milliseconds per variant, so the population is kept generous.
const (
	DefaultPopulationSize = 40
	DefaultGenerations    = 20
	DefaultMutationRate   = 0.15
	DefaultCrossoverRate  = 0.8
	DefaultEliteSize      = 4
	DefaultTournamentSize = 3
)

// GetDefaultOptimizationConfig returns the default optimization configuration
func GetDefaultOptimizationConfig() OptimizationConfig {
	return OptimizationConfig{
		PopulationSize: DefaultPopulationSize,
		Generations:    DefaultGenerations,
		MutationRate:   DefaultMutationRate,
		CrossoverRate:  DefaultCrossoverRate,
		EliteSize:      DefaultEliteSize,
		TournamentSize: DefaultTournamentSize,
	}
}

// DimensionsFromSweep expands every sweep parameter into a search dimension
func DimensionsFromSweep(sc *config.SweepConfig) ([]Dimension, error) {
	if len(sc.Parameters) == 0 {
		return nil, bterrors.NewConfigError(component, "ranges", "sweep has no parameters")
	}
	dims := make([]Dimension, 0, len(sc.Parameters))
	for _, p := range sc.Parameters {
		values, err := p.Expand()
		if err != nil {
			return nil, err
		}
		dims = append(dims, Dimension{Name: p.Name, Values: values})
	}
	return dims, nil
}

// SpaceSize is the number of distinct parameter points, capped at
// math.MaxInt32.
func SpaceSize(dims []Dimension) int {
	size := 1
	for _, d := range dims {
		size = min(size*len(d.Values), math.MaxInt32)
	}
	return size
}
