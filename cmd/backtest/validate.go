package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/ducminhle1904/eod-backtester/internal/backtest"
	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
	"github.com/ducminhle1904/eod-backtester/internal/rules"
	pkgconfig "github.com/ducminhle1904/eod-backtester/pkg/config"
)

func newValidateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check strategy or sweep files without loading data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "Strategy YAML to check",
			},
			&cli.StringFlag{
				Name:  "sweep",
				Usage: "Sweep YAML to check",
			},
		},
		Action: validateAction,
	}
}

func validateAction(ctx context.Context, cmd *cli.Command) error {
	strategyPath := resolveConfigPath(cmd.String("strategy"))
	sweepPath := resolveConfigPath(cmd.String("sweep"))
	if strategyPath == "" && sweepPath == "" {
		return bterrors.NewConfigError("cli", "validate", "pass --strategy and/or --sweep")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if strategyPath != "" {
		sc, err := pkgconfig.LoadStrategy(strategyPath)
		if err != nil {
			return err
		}
		strategy, cfg, _, err := compileStrategy(sc, a.engineDefaults())
		if err != nil {
			return err
		}
		describeStrategy(a.out, strategy, cfg)
		logSuccess("%s is valid", strategyPath)
	}

	if sweepPath != "" {
		sc, err := pkgconfig.LoadSweep(sweepPath)
		if err != nil {
			return err
		}
		size, err := sc.Size()
		if err != nil {
			return err
		}
		if size > pkgconfig.MaxVariants {
			fmt.Fprintf(a.out, "Sweep %q: more than %d variants, run it with --search ga\n", sc.Base.Name, pkgconfig.MaxVariants)
		} else {
			// every grid point must compile, not just the first
			if _, err := sc.Variants(a.engineDefaults(), ""); err != nil {
				return bterrors.Wrap(err, bterrors.KindConfig, "cli", "validate", sweepPath)
			}
			fmt.Fprintf(a.out, "Sweep %q: %d variants\n", sc.Base.Name, size)
		}
		for _, p := range sc.Parameters {
			values, _ := p.Expand()
			fmt.Fprintf(a.out, "  %-16s %s\n", p.Name, joinFloats(values))
		}
		logSuccess("%s is valid", sweepPath)
	}
	return nil
}

func describeStrategy(w io.Writer, s rules.Strategy, cfg backtest.Config) {
	fmt.Fprintf(w, "Strategy: %s\n", s.Name)
	fmt.Fprintf(w, "  entry:   %s\n", s.Entry)
	if s.Exit.IsEmpty() {
		fmt.Fprintf(w, "  exit:    (stops only)\n")
	} else {
		fmt.Fprintf(w, "  exit:    %s\n", s.Exit)
	}
	if st := s.Stops; !st.IsZero() {
		if st.TimeExitBars > 0 {
			fmt.Fprintf(w, "  time exit after %d bars\n", st.TimeExitBars)
		}
		if st.StopLossPct > 0 {
			fmt.Fprintf(w, "  stop loss %.2f%% below entry\n", st.StopLossPct)
		}
		if t := st.ATRTrail; t != nil {
			fmt.Fprintf(w, "  ATR(%d) trail x%.2f\n", t.Period, t.Multiplier)
		}
	}
	fmt.Fprintf(w, "  warm-up: %d bars\n", s.WarmUp())
	fmt.Fprintf(w, "  capital %.0f, slippage %.1f bps, brokerage %.2f per order, end of data: %s\n",
		cfg.CapitalPerTrade, cfg.SlippageBps, cfg.BrokeragePerOrder, cfg.EndOfData)
}

func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return strings.Join(parts, ", ")
}
