package main

import (
	"context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/ducminhle1904/eod-backtester/internal/backtest"
	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
	pkgconfig "github.com/ducminhle1904/eod-backtester/pkg/config"
	"github.com/ducminhle1904/eod-backtester/pkg/reporting"
	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

func newSweepCommand() *cli.Command {
	flags := dateFlags()
	flags = append(flags,
		&cli.StringFlag{
			Name:     "sweep",
			Usage:    "Sweep YAML (base strategy plus parameter ranges); a bare name is looked up in configs/",
			Required: true,
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Usage:   "Parallel backtests; overrides EOD_WORKERS",
		},
		&cli.IntFlag{
			Name:  "top",
			Usage: "Variants shown in the ranking table",
			Value: 10,
		},
		&cli.StringFlag{
			Name:  "rank",
			Usage: "Ranking metric: net_pnl, sharpe, cagr, profit_factor, win_rate or max_drawdown",
			Value: string(reporting.RankNetPnL),
		},
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "Results root directory; overrides EOD_OUTPUT_DIR",
		},
		&cli.BoolFlag{
			Name:  "console-only",
			Usage: "Print the ranking without writing any file",
		},
		&cli.BoolFlag{
			Name:  "no-progress",
			Usage: "Hide the progress bar",
		},
	)
	flags = append(flags, searchFlags()...)
	flags = append(flags, walkForwardFlags()...)

	return &cli.Command{
		Name:   "sweep",
		Usage:  "Run the parameter combinations of a strategy in parallel and rank them",
		Flags:  flags,
		Action: sweepAction,
	}
}

func sweepAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	rankBy, ok := reporting.ParseRankBy(cmd.String("rank"))
	if !ok {
		return bterrors.ConfigErrorf("cli", "sweep", "unknown --rank %q", cmd.String("rank"))
	}
	search := cmd.String("search")
	if search != searchGrid && search != searchGA {
		return bterrors.ConfigErrorf("cli", "sweep", "unknown --search %q, use grid or ga", search)
	}

	sc, err := pkgconfig.LoadSweep(resolveConfigPath(cmd.String("sweep")))
	if err != nil {
		return err
	}
	configSymbol, err := sc.Base.ResolveSymbol()
	if err != nil {
		return err
	}
	symbol, err := pickSymbol(cmd.String("symbol"), configSymbol, cmd.String("data"))
	if err != nil {
		return err
	}
	bars, err := a.loadBars(cmd, symbol)
	if err != nil {
		return err
	}
	if symbol == "" {
		symbol = "UNKNOWN"
	}

	workers := a.cfg.Backtest.Workers
	if cmd.IsSet("workers") {
		workers = int(cmd.Int("workers"))
	}

	var results []backtest.JobResult
	var variants []backtest.Variant
	if search == searchGA {
		results, variants, err = a.geneticSearch(ctx, cmd, sc, symbol, bars, workers, rankBy)
	} else {
		results, variants, err = a.gridSearch(ctx, cmd, sc, symbol, bars, workers)
	}
	if err != nil {
		return err
	}

	rows := reporting.RankSweep(results, rankBy)
	failed := 0
	for _, r := range rows {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		logWarning("%d of %d variants failed; see the error column", failed, len(rows))
	}

	cfg := reportingConfig(cmd, a)
	cfg.TradeRows = 10
	manager := reporting.NewReportingManager(cfg, a.out, a.log.Logger)

	dir := reporting.NewDefaultPathManager().OutputDir(cfg.OutputDirectory, symbol, sc.Base.Name+" sweep")
	path, err := manager.ReportSweep(rows, int(cmd.Int("top")), dir)
	if err != nil {
		return err
	}
	if path != "" {
		logSuccess("Wrote %s", path)
	}

	best, ok := bestResult(rows, results)
	if !ok {
		return bterrors.NewComputeError("cli", "sweep", "no variant finished successfully")
	}
	logSuccess("Best by %s: %s", rankBy, best.Variant.Name)
	a.log.Info("Sweep best variant",
		zap.String("name", best.Variant.Name),
		zap.Any("params", best.Variant.Params),
		zap.Int("trades", len(best.Result.Trades)),
	)

	files, err := manager.ReportResults(reporting.NewReport(best.Result))
	if err != nil {
		return err
	}
	for _, f := range files {
		logSuccess("Wrote %s", f)
	}

	if cmd.Bool("walk-forward") {
		return a.walkForward(ctx, cmd, variants, bars, rankBy, workers, dir)
	}
	return nil
}

func (a *app) gridSearch(ctx context.Context, cmd *cli.Command, sc *pkgconfig.SweepConfig, symbol string, bars []types.Bar, workers int) ([]backtest.JobResult, []backtest.Variant, error) {
	variants, err := sc.Variants(a.engineDefaults(), symbol)
	if err != nil {
		return nil, nil, err
	}
	logInfo("Sweeping %d variants of %s on %s (%d bars, %d workers)",
		len(variants), sc.Base.Name, symbol, len(bars), workers)

	a.health.SetTotal(len(variants))
	opts := []backtest.SweepOption{
		backtest.WithSweepLogger(a.log.Logger),
		backtest.WithResultHook(func(res backtest.JobResult) {
			a.health.RunFinished(res.Err)
		}),
	}
	if !cmd.Bool("no-progress") {
		bar := progressbar.NewOptions(len(variants),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription(fmt.Sprintf("Sweeping %s", symbol)),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		opts = append(opts, backtest.WithProgress(func(done, total int) {
			_ = bar.Add(1)
		}))
	}

	results, err := backtest.Sweep(ctx, bars, variants, workers, opts...)
	if err != nil {
		return nil, nil, err
	}
	return results, variants, nil
}

// bestResult returns the job behind the top ranked row that succeeded.
func bestResult(rows []reporting.SweepRow, results []backtest.JobResult) (backtest.JobResult, bool) {
	byIndex := make(map[int]backtest.JobResult, len(results))
	for _, res := range results {
		byIndex[res.Variant.Index] = res
	}
	for _, r := range rows {
		if r.Err != nil {
			continue
		}
		if res, ok := byIndex[r.Index]; ok && res.Result != nil {
			return res, true
		}
	}
	return backtest.JobResult{}, false
}
