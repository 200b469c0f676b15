package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/ducminhle1904/eod-backtester/internal/backtest"
	"github.com/ducminhle1904/eod-backtester/internal/config"
	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
	"github.com/ducminhle1904/eod-backtester/internal/logger"
	"github.com/ducminhle1904/eod-backtester/internal/monitoring"
	"github.com/ducminhle1904/eod-backtester/pkg/data"
	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

// app carries what every subcommand needs once the environment is loaded.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	health *monitoring.HealthChecker
	out    io.Writer
	server *http.Server
}

func newApp(cmd *cli.Command) (*app, error) {
	if err := config.LoadEnvFile(cmd.String("env")); err != nil {
		return nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if addr := cmd.String("metrics-addr"); addr != "" {
		cfg.Monitoring.MetricsAddr = addr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.NewWithOptions(logger.Options{
		Level:   cfg.LogLevel,
		LogDir:  cfg.LogDir,
		Name:    cmd.Name,
		Console: true,
	})
	if err != nil {
		return nil, bterrors.Wrap(err, bterrors.KindConfig, "cli", "logger", "cannot create logger")
	}

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}

	a := &app{
		cfg:    cfg,
		log:    log,
		health: monitoring.NewHealthChecker(),
		out:    out,
	}
	if cfg.Monitoring.MetricsAddr != "" {
		a.serveMetrics(cfg.Monitoring.MetricsAddr)
	}
	return a, nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())
	mux.Handle("/healthz", a.health)

	a.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("Metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	logInfo("Serving metrics on %s/metrics", addr)
}

func (a *app) close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.server.Shutdown(ctx)
	}
	_ = a.log.Sync()
}

// engineDefaults fills cost fields a strategy file leaves out.
func (a *app) engineDefaults() backtest.Config {
	cfg := backtest.DefaultConfig()
	cfg.CapitalPerTrade = a.cfg.Backtest.DefaultCapital
	return cfg
}

// loadBars reads --data when given, otherwise the symbol's file under the
// data directory, and applies the date flags.
func (a *app) loadBars(cmd *cli.Command, symbol string) ([]types.Bar, error) {
	r, err := dataRange(cmd)
	if err != nil {
		return nil, err
	}

	dm := data.NewDataManager(a.log.Logger)
	if path := cmd.String("data"); path != "" {
		return dm.Load(path, r)
	}
	if symbol == "" {
		return nil, bterrors.NewConfigError("cli", "data", "either --data or --symbol is required")
	}
	return dm.LoadSymbol(a.cfg.Data.Dir, symbol, r)
}

func dataRange(cmd *cli.Command) (data.Range, error) {
	r := data.Range{
		From: sessionDate(cmd.Timestamp("from")),
		To:   sessionDate(cmd.Timestamp("to")),
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return r, bterrors.ConfigErrorf("cli", "range", "--to %s is before --from %s",
			r.To.Format(dateLayout), r.From.Format(dateLayout))
	}
	if last := cmd.String("last"); last != "" {
		d, ok := data.ParseTrailingPeriod(last)
		if !ok {
			return r, bterrors.ConfigErrorf("cli", "range", "invalid --last %q, use e.g. 90d, 6m, 3y", last)
		}
		r.Trailing = d
	}
	return r, nil
}

// sessionDate drops the clock and zone so flags compare equal to bar dates.
func sessionDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// pickSymbol returns the first non-empty candidate as a canonical symbol.
// With nothing set, a data file named after an instrument still resolves.
func pickSymbol(flag, fromConfig, dataPath string) (string, error) {
	for _, s := range []string{flag, fromConfig} {
		if strings.TrimSpace(s) == "" {
			continue
		}
		inst, err := types.LookupInstrument(s)
		if err != nil {
			return "", bterrors.Wrap(err, bterrors.KindConfig, "cli", "symbol", "unknown symbol")
		}
		return inst.Symbol, nil
	}
	if dataPath == "" {
		return "", nil
	}

	base := strings.TrimSuffix(filepath.Base(dataPath), filepath.Ext(dataPath))
	if inst, err := types.LookupInstrument(base); err == nil {
		return inst.Symbol, nil
	}
	if dir := filepath.Base(filepath.Dir(dataPath)); dir != "." {
		if inst, err := types.LookupInstrument(dir); err == nil {
			return inst.Symbol, nil
		}
	}
	return strings.ToUpper(base), nil
}

// resolveConfigPath lets a bare name refer to configs/<name>.yaml.
func resolveConfigPath(path string) string {
	if path == "" || strings.ContainsAny(path, "/\\") {
		return path
	}
	if filepath.Ext(path) == "" {
		path += ".yaml"
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return filepath.Join("configs", path)
}

const dateLayout = "2006-01-02"

func dateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "data",
			Aliases: []string{"d"},
			Usage:   "EOD CSV file (Date,Open,High,Low,Close[,Adj Close],Volume); defaults to the symbol's file under EOD_DATA_DIR",
		},
		&cli.StringFlag{
			Name:    "symbol",
			Aliases: []string{"s"},
			Usage:   "Instrument: NIFTY or BANKNIFTY (aliases such as ^NSEI accepted)",
		},
		&cli.TimestampFlag{
			Name:  "from",
			Usage: "First session to include, `YYYY-MM-DD`",
			Config: cli.TimestampConfig{
				Layouts: []string{dateLayout},
			},
		},
		&cli.TimestampFlag{
			Name:  "to",
			Usage: "Last session to include, `YYYY-MM-DD`",
			Config: cli.TimestampConfig{
				Layouts: []string{dateLayout},
			},
		},
		&cli.StringFlag{
			Name:  "last",
			Usage: "Keep only a trailing window ending at the last bar (e.g. 90d, 6m, 5y)",
		},
	}
}
