package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
)

// Exit codes
const (
	exitOK          = 0
	exitRunFailed   = 1
	exitBadConfig   = 2
	exitDataProblem = 3
)

// Logging functions for human readable progress on stderr
func logInfo(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "ℹ️  "+format+"\n", args...)
}

func logWarning(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "⚠️  "+format+"\n", args...)
}

func logError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "❌ "+format+"\n", args...)
}

func logSuccess(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "✅ "+format+"\n", args...)
}

func newRootCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "backtest",
		Usage:  "End-of-day rule backtester for NIFTY 50 and BANKNIFTY",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "Environment file to load before reading EOD_* variables",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error); overrides EOD_LOG_LEVEL",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve /metrics and /healthz on this address, e.g. :9102; overrides EOD_METRICS_ADDR",
			},
		},
		Commands: []*cli.Command{
			newRunCommand(),
			newSweepCommand(),
			newValidateCommand(),
		},
	}
}

// exitCode maps an error to the process exit status by its category.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	kind, ok := bterrors.KindOf(err)
	if !ok {
		return exitRunFailed
	}
	switch kind {
	case bterrors.KindConfig:
		return exitBadConfig
	case bterrors.KindData:
		return exitDataProblem
	default:
		return exitRunFailed
	}
}

func main() {
	cmd := newRootCommand(os.Stdout)
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logError("%v", err)
		os.Exit(exitCode(err))
	}
}
