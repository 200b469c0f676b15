package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/ducminhle1904/eod-backtester/internal/backtest"
	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
	"github.com/ducminhle1904/eod-backtester/internal/rules"
	pkgconfig "github.com/ducminhle1904/eod-backtester/pkg/config"
	"github.com/ducminhle1904/eod-backtester/pkg/reporting"
)

func newRunCommand() *cli.Command {
	flags := dateFlags()
	flags = append(flags,
		&cli.StringFlag{
			Name:  "strategy",
			Usage: "Strategy YAML; a bare name is looked up in configs/. Defaults to the EMA 21/55 trend strategy",
		},
		&cli.FloatFlag{
			Name:  "capital",
			Usage: "Capital per trade in INR; overrides the strategy file and EOD_DEFAULT_CAPITAL",
		},
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "Results root directory; overrides EOD_OUTPUT_DIR",
		},
		&cli.BoolFlag{
			Name:  "xlsx",
			Usage: "Also write an Excel workbook",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Also write summary.json",
		},
		&cli.BoolFlag{
			Name:  "console-only",
			Usage: "Print results without writing any file",
		},
		&cli.IntFlag{
			Name:  "trades",
			Usage: "Trades shown in the console table, 0 for all",
			Value: 20,
		},
	)

	return &cli.Command{
		Name:   "run",
		Usage:  "Backtest one strategy on one instrument",
		Flags:  flags,
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	var sc *pkgconfig.StrategyConfig
	if path := resolveConfigPath(cmd.String("strategy")); path != "" {
		if sc, err = pkgconfig.LoadStrategy(path); err != nil {
			return err
		}
	}

	strategy, engineCfg, configSymbol, err := compileStrategy(sc, a.engineDefaults())
	if err != nil {
		return err
	}
	if cmd.IsSet("capital") {
		engineCfg.CapitalPerTrade = cmd.Float("capital")
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

	logInfo("Backtesting %s on %s: %d bars %s to %s", strategy.Name, symbol, len(bars),
		bars[0].Date.Format(dateLayout), bars[len(bars)-1].Date.Format(dateLayout))
	logInfo("Entry: %s", strategy.Entry)
	if !strategy.Exit.IsEmpty() {
		logInfo("Exit:  %s", strategy.Exit)
	}

	engine, err := backtest.NewEngine(engineCfg,
		backtest.WithLogger(a.log.Logger),
		backtest.WithMetrics(true),
	)
	if err != nil {
		return err
	}

	a.health.SetTotal(1)
	result, err := engine.Run(symbol, bars, strategy)
	a.health.RunFinished(err)
	if err != nil {
		return err
	}
	if result.WarmUp >= result.Bars {
		logWarning("Warm-up of %d bars covers the whole range; no signal could fire", result.WarmUp)
	}

	manager := reporting.NewReportingManager(reportingConfig(cmd, a), a.out, a.log.Logger)
	files, err := manager.ReportResults(reporting.NewReport(result))
	if err != nil {
		return err
	}
	if sc != nil && !cmd.Bool("console-only") {
		path, err := saveStrategy(sc, reportingConfig(cmd, a).OutputDirectory, symbol, result.Strategy)
		if err != nil {
			return err
		}
		files = append(files, path)
	}
	for _, f := range files {
		logSuccess("Wrote %s", f)
	}

	a.log.Info("Run finished",
		zap.String("run_id", result.RunID),
		zap.Int("trades", len(result.Trades)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Duration("elapsed", result.Duration.Round(time.Microsecond)),
	)
	return nil
}

// compileStrategy turns an optional strategy file into a runnable strategy.
// Without a file the built-in default strategy runs on defaults.
func compileStrategy(sc *pkgconfig.StrategyConfig, defaults backtest.Config) (rules.Strategy, backtest.Config, string, error) {
	if sc == nil {
		return rules.DefaultStrategy(), defaults, "", nil
	}
	symbol, err := sc.ResolveSymbol()
	if err != nil {
		return rules.Strategy{}, backtest.Config{}, "", err
	}
	strategy, cfg, err := sc.Compile(defaults, nil)
	if err != nil {
		return rules.Strategy{}, backtest.Config{}, "", err
	}
	return strategy, cfg, symbol, nil
}

// saveStrategy stores the strategy file that produced a run next to its
// results.
func saveStrategy(sc *pkgconfig.StrategyConfig, root, symbol, name string) (string, error) {
	paths := reporting.NewDefaultPathManager()
	path := filepath.Join(paths.OutputDir(root, symbol, name), strategyFile)
	if err := paths.EnsureDirectoryExists(path); err != nil {
		return "", err
	}
	raw, err := sc.Marshal()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return "", bterrors.Wrap(err, bterrors.KindData, "cli", "save", "cannot write "+path)
	}
	return path, nil
}

const strategyFile = "strategy.yaml"

func reportingConfig(cmd *cli.Command, a *app) reporting.ReportingConfig {
	dir := cmd.String("out")
	if dir == "" {
		dir = a.cfg.Output.Dir
	}
	return reporting.ReportingConfig{
		EnableConsole:   true,
		EnableFiles:     !cmd.Bool("console-only"),
		OutputDirectory: dir,
		CSVEnabled:      true,
		ExcelEnabled:    cmd.Bool("xlsx"),
		JSONEnabled:     cmd.Bool("json"),
		TradeRows:       int(cmd.Int("trades")),
	}
}
