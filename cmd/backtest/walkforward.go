package main

import (
	"context"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/ducminhle1904/eod-backtester/internal/backtest"
	"github.com/ducminhle1904/eod-backtester/pkg/reporting"
	"github.com/ducminhle1904/eod-backtester/pkg/types"
	"github.com/ducminhle1904/eod-backtester/pkg/validation"
)

func walkForwardFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "walk-forward",
			Usage: "Re-run the sweep on train windows and score each winner on the bars that follow",
		},
		&cli.BoolFlag{
			Name:  "wf-rolling",
			Usage: "Use rolling folds instead of a single holdout split",
		},
		&cli.FloatFlag{
			Name:  "wf-split-ratio",
			Usage: "Train share of the bars for the holdout split",
			Value: validation.DefaultSplitRatio,
		},
		&cli.IntFlag{
			Name:  "wf-train-days",
			Usage: "Calendar days per rolling train window",
			Value: validation.DefaultTrainDays,
		},
		&cli.IntFlag{
			Name:  "wf-test-days",
			Usage: "Calendar days per rolling test window",
			Value: validation.DefaultTestDays,
		},
		&cli.IntFlag{
			Name:  "wf-roll-days",
			Usage: "Calendar days the rolling window moves per fold",
			Value: validation.DefaultRollDays,
		},
	}
}

func walkForwardConfig(cmd *cli.Command) validation.WalkForwardConfig {
	return validation.WalkForwardConfig{
		Rolling:    cmd.Bool("wf-rolling"),
		SplitRatio: cmd.Float("wf-split-ratio"),
		TrainDays:  int(cmd.Int("wf-train-days")),
		TestDays:   int(cmd.Int("wf-test-days")),
		RollDays:   int(cmd.Int("wf-roll-days")),
	}
}

// walkForward validates the sweep out of sample and reports the folds.
func (a *app) walkForward(ctx context.Context, cmd *cli.Command, variants []backtest.Variant, bars []types.Bar, rankBy reporting.RankBy, workers int, dir string) error {
	wf := walkForwardConfig(cmd)
	if wf.Rolling {
		logInfo("Walk-forward: rolling %d/%d days, step %d", wf.TrainDays, wf.TestDays, wf.RollDays)
	} else {
		logInfo("Walk-forward: %.0f/%.0f holdout", wf.SplitRatio*100, (1-wf.SplitRatio)*100)
	}

	selector := func(results []backtest.JobResult) (backtest.JobResult, bool) {
		return bestResult(reporting.RankSweep(results, rankBy), results)
	}
	validator := validation.NewDefaultWalkForwardValidator(selector,
		validation.WithWorkers(workers),
		validation.WithLogger(a.log.Logger),
	)
	summary, err := validator.Validate(ctx, variants, bars, wf)
	if err != nil {
		return err
	}

	reporting.PrintWalkForward(a.out, summary)
	if cmd.Bool("console-only") {
		return nil
	}
	path := filepath.Join(dir, reporting.WalkForwardCSVFile)
	if err := reporting.WriteWalkForwardCSV(summary, path); err != nil {
		return err
	}
	logSuccess("Wrote %s", path)
	return nil
}
