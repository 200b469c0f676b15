package main

import (
	"context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/ducminhle1904/eod-backtester/internal/backtest"
	"github.com/ducminhle1904/eod-backtester/internal/performance"
	pkgconfig "github.com/ducminhle1904/eod-backtester/pkg/config"
	"github.com/ducminhle1904/eod-backtester/pkg/optimization"
	"github.com/ducminhle1904/eod-backtester/pkg/reporting"
	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

const (
	searchGrid = "grid"
	searchGA   = "ga"
)

func searchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "search",
			Usage: "grid runs every combination; ga evolves a population and suits spaces too large for a grid",
			Value: searchGrid,
		},
		&cli.IntFlag{
			Name:  "population",
			Usage: "GA population size",
			Value: optimization.DefaultPopulationSize,
		},
		&cli.IntFlag{
			Name:  "generations",
			Usage: "GA generations",
			Value: optimization.DefaultGenerations,
		},
		&cli.IntFlag{
			Name:  "elite",
			Usage: "GA individuals carried unchanged into the next generation",
			Value: optimization.DefaultEliteSize,
		},
		&cli.FloatFlag{
			Name:  "mutation-rate",
			Usage: "GA per-parameter mutation probability",
			Value: optimization.DefaultMutationRate,
		},
		&cli.IntFlag{
			Name:  "seed",
			Usage: "GA random seed; the same seed and data give the same search",
			Value: 1,
		},
	}
}

func gaConfig(cmd *cli.Command, workers int) optimization.OptimizationConfig {
	cfg := optimization.GetDefaultOptimizationConfig()
	cfg.PopulationSize = int(cmd.Int("population"))
	cfg.Generations = int(cmd.Int("generations"))
	cfg.EliteSize = int(cmd.Int("elite"))
	cfg.MutationRate = cmd.Float("mutation-rate")
	cfg.Seed = int64(cmd.Int("seed"))
	cfg.MaxWorkers = workers
	return cfg
}

// geneticSearch samples the sweep's parameter space with the GA, using the
// ranking statistic as fitness. It returns every backtested variant.
func (a *app) geneticSearch(ctx context.Context, cmd *cli.Command, sc *pkgconfig.SweepConfig, symbol string, bars []types.Bar, workers int, rankBy reporting.RankBy) ([]backtest.JobResult, []backtest.Variant, error) {
	dims, err := optimization.DimensionsFromSweep(sc)
	if err != nil {
		return nil, nil, err
	}
	cfg := gaConfig(cmd, workers)

	defaults := a.engineDefaults()
	build := func(index int, params map[string]float64) (backtest.Variant, error) {
		return sc.Variant(defaults, symbol, index, pkgconfig.Params(params))
	}
	fitness := func(res backtest.JobResult) (float64, bool) {
		if res.Err != nil || res.Result == nil {
			return 0, false
		}
		score := reporting.Score(performance.Analyze(res.Result.Trades, res.Result.Equity), rankBy)
		return score.TakeOr(0), score.IsSome()
	}

	space := optimization.SpaceSize(dims)
	logInfo("GA search over %d combinations of %s on %s (population %d, %d generations, seed %d)",
		space, sc.Base.Name, symbol, cfg.PopulationSize, cfg.Generations, cfg.Seed)
	a.health.SetTotal(min(space, cfg.PopulationSize*cfg.Generations))

	opts := []optimization.Option{
		optimization.WithLogger(a.log.Logger),
		optimization.WithSweepOptions(
			backtest.WithSweepLogger(a.log.Logger),
			backtest.WithResultHook(func(res backtest.JobResult) {
				a.health.RunFinished(res.Err)
			}),
		),
	}
	if !cmd.Bool("no-progress") {
		bar := progressbar.NewOptions(cfg.Generations,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(fmt.Sprintf("Evolving %s", symbol)),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		opts = append(opts, optimization.WithGenerationHook(func(optimization.GenerationStats) {
			_ = bar.Add(1)
		}))
	}

	opt, err := optimization.NewGeneticOptimizer(dims, build, fitness, cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	out, err := opt.Optimize(ctx, bars)
	if err != nil {
		return nil, nil, err
	}

	variants := make([]backtest.Variant, 0, len(out.Results))
	for _, res := range out.Results {
		if res.Err == nil {
			variants = append(variants, res.Variant)
		}
	}
	last := out.History[len(out.History)-1]
	logInfo("GA backtested %d of %d combinations over %d generations; best %s = %.4f",
		len(out.Results), space, last.Generation, rankBy, out.BestFitness)
	a.log.Info("GA search finished",
		zap.Int("evaluated", len(out.Results)),
		zap.Int("space", space),
		zap.String("best", out.Best.Variant.Name),
	)
	return out.Results, variants, nil
}
