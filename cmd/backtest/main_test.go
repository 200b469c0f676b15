package main

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
)

// writeWaveCSV writes n weekday bars whose closes follow a slow sine wave so
// EMA crossovers occur several times.
func writeWaveCSV(t *testing.T, path string, n int) {
	t.Helper()

	var b strings.Builder
	b.WriteString("Date,Open,High,Low,Close,Volume\n")
	day := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	prev := 20000.0
	for i := 0; i < n; i++ {
		for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, 1)
		}
		closePx := 20000 + 1500*math.Sin(float64(i)/15)
		open := prev
		high := math.Max(open, closePx) + 25
		low := math.Min(open, closePx) - 25
		fmt.Fprintf(&b, "%s,%.2f,%.2f,%.2f,%.2f,%d\n", day.Format(dateLayout), open, high, low, closePx, 100000+i)
		prev = closePx
		day = day.AddDate(0, 0, 1)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
}

// isolateEnv keeps the caller's EOD_* variables out of command runs.
func isolateEnv(t *testing.T, dir string) {
	t.Helper()
	t.Setenv("EOD_LOG_LEVEL", "error")
	t.Setenv("EOD_LOG_DIR", "")
	t.Setenv("EOD_DATA_DIR", dir)
	t.Setenv("EOD_OUTPUT_DIR", filepath.Join(dir, "results"))
	t.Setenv("EOD_DEFAULT_CAPITAL", "")
	t.Setenv("EOD_WORKERS", "2")
	t.Setenv("EOD_METRICS_ADDR", "")
}

func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	argv := append([]string{"backtest", "--env", filepath.Join(dir, "missing.env")}, args...)
	err := newRootCommand(&out).Run(context.Background(), argv)
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitBadConfig, exitCode(bterrors.NewConfigError("cli", "x", "bad")))
	assert.Equal(t, exitDataProblem, exitCode(fmt.Errorf("wrapped: %w", bterrors.NewDataError("data", "x", "bad"))))
	assert.Equal(t, exitRunFailed, exitCode(bterrors.NewComputeError("engine", "x", "bad")))
	assert.Equal(t, exitRunFailed, exitCode(fmt.Errorf("plain")))
}

func TestPickSymbol(t *testing.T) {
	tests := []struct {
		name       string
		flag, conf string
		path       string
		want       string
	}{
		{"flag wins", "^NSEBANK", "NIFTY", "", "BANKNIFTY"},
		{"config", "", "nifty 50", "", "NIFTY"},
		{"file name", "", "", "data/banknifty.csv", "BANKNIFTY"},
		{"directory name", "", "", "data/NIFTY/daily.csv", "NIFTY"},
		{"unknown file", "", "", "data/custom.csv", "CUSTOM"},
		{"nothing", "", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pickSymbol(tt.flag, tt.conf, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := pickSymbol("SENSEX", "", "")
	assert.True(t, bterrors.IsKind(err, bterrors.KindConfig))
}

func TestResolveConfigPath(t *testing.T) {
	assert.Equal(t, "", resolveConfigPath(""))
	assert.Equal(t, "dir/s.yaml", resolveConfigPath("dir/s.yaml"))
	assert.Equal(t, filepath.Join("configs", "breakout.yaml"), resolveConfigPath("breakout"))
}

func TestRunCommand_WritesReports(t *testing.T) {
	dir := t.TempDir()
	isolateEnv(t, dir)
	csvPath := filepath.Join(dir, "nifty.csv")
	writeWaveCSV(t, csvPath, 260)
	outDir := filepath.Join(dir, "out")

	out, err := runCLI(t, dir, "run", "--data", csvPath, "--out", outDir, "--json", "--trades", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "NIFTY")

	for _, name := range []string{"trades.csv", "equity.csv", "summary.json"} {
		matches, err := filepath.Glob(filepath.Join(outDir, "NIFTY_*", name))
		require.NoError(t, err)
		assert.Len(t, matches, 1, name)
	}
	matches, _ := filepath.Glob(filepath.Join(outDir, "NIFTY_*", "backtest.xlsx"))
	assert.Empty(t, matches, "workbook only with --xlsx")
}

func TestRunCommand_StrategyFileAndConsoleOnly(t *testing.T) {
	dir := t.TempDir()
	isolateEnv(t, dir)
	csvPath := filepath.Join(dir, "prices.csv")
	writeWaveCSV(t, csvPath, 200)

	strategy := filepath.Join(dir, "momentum.yaml")
	require.NoError(t, os.WriteFile(strategy, []byte(`
name: momentum
symbol: BANKNIFTY
entry:
  conditions:
    - template: momentum
      period: 14
      level: 55
exit:
  conditions:
    - type: below
      a: {indicator: rsi, period: 14}
      level: 45
`), 0644))

	out, err := runCLI(t, dir, "run", "--data", csvPath, "--strategy", strategy,
		"--from", "2022-03-01", "--to", "2022-09-30", "--console-only")
	require.NoError(t, err)
	assert.Contains(t, out, "BANKNIFTY")

	_, statErr := os.Stat(filepath.Join(dir, "results"))
	assert.True(t, os.IsNotExist(statErr), "console-only writes nothing")
}

func TestRunCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	isolateEnv(t, dir)
	csvPath := filepath.Join(dir, "nifty.csv")
	writeWaveCSV(t, csvPath, 50)

	t.Run("no data source", func(t *testing.T) {
		_, err := runCLI(t, dir, "run")
		assert.Equal(t, exitBadConfig, exitCode(err))
	})
	t.Run("missing symbol file", func(t *testing.T) {
		_, err := runCLI(t, dir, "run", "--symbol", "BANKNIFTY")
		assert.Equal(t, exitDataProblem, exitCode(err))
	})
	t.Run("reversed range", func(t *testing.T) {
		_, err := runCLI(t, dir, "run", "--data", csvPath, "--from", "2023-01-01", "--to", "2022-01-01")
		assert.Equal(t, exitBadConfig, exitCode(err))
	})
	t.Run("bad trailing window", func(t *testing.T) {
		_, err := runCLI(t, dir, "run", "--data", csvPath, "--last", "forever")
		assert.Equal(t, exitBadConfig, exitCode(err))
	})
	t.Run("bad capital", func(t *testing.T) {
		_, err := runCLI(t, dir, "run", "--data", csvPath, "--capital", "-1", "--console-only")
		assert.Equal(t, exitBadConfig, exitCode(err))
	})
}

func TestSweepCommand_RanksVariants(t *testing.T) {
	dir := t.TempDir()
	isolateEnv(t, dir)
	csvPath := filepath.Join(dir, "nifty.csv")
	writeWaveCSV(t, csvPath, 260)
	outDir := filepath.Join(dir, "out")

	sweep := filepath.Join(dir, "sweep.yaml")
	require.NoError(t, os.WriteFile(sweep, []byte(`
base:
  name: trend
  entry:
    conditions:
      - template: trend_up
        fast_param: fast
        slow: 40
  exit:
    conditions:
      - template: trend_flip
        fast_param: fast
        slow: 40
parameters:
  - name: fast
    values: [5, 10, 20]
`), 0644))

	out, err := runCLI(t, dir, "sweep", "--data", csvPath, "--sweep", sweep,
		"--workers", "2", "--no-progress", "--out", outDir, "--rank", "sharpe")
	require.NoError(t, err)
	assert.Contains(t, out, "trend[fast=")

	matches, err := filepath.Glob(filepath.Join(outDir, "NIFTY_trend-sweep", "sweep.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	raw, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Len(t, lines, 4, "header plus one row per variant")

	best, _ := filepath.Glob(filepath.Join(outDir, "NIFTY_trend-fast-*", "trades.csv"))
	assert.Len(t, best, 1, "the best variant gets a full report")
}

func TestSweepCommand_GeneticSearch(t *testing.T) {
	dir := t.TempDir()
	isolateEnv(t, dir)
	csvPath := filepath.Join(dir, "banknifty.csv")
	writeWaveCSV(t, csvPath, 260)
	outDir := filepath.Join(dir, "out")

	sweep := filepath.Join(dir, "sweep.yaml")
	require.NoError(t, os.WriteFile(sweep, []byte(`
base:
  name: trend
  entry:
    conditions:
      - template: trend_up
        fast_param: fast
        slow_param: slow
  exit:
    conditions:
      - template: trend_flip
        fast_param: fast
        slow_param: slow
parameters:
  - {name: fast, min: 3, max: 20, step: 1}
  - {name: slow, values: [30, 40, 50]}
`), 0644))

	out, err := runCLI(t, dir, "sweep", "--data", csvPath, "--sweep", sweep, "--search", "ga",
		"--population", "6", "--generations", "3", "--elite", "1", "--seed", "3",
		"--no-progress", "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "trend[fast=")

	raw, err := os.ReadFile(filepath.Join(outDir, "BANKNIFTY_trend-sweep", "sweep.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.GreaterOrEqual(t, len(lines), 2)
	assert.LessOrEqual(t, len(lines), 1+6*3, "each distinct combination is backtested once")

	_, err = runCLI(t, dir, "sweep", "--data", csvPath, "--sweep", sweep, "--search", "annealing")
	assert.Equal(t, exitBadConfig, exitCode(err))
}

func TestSweepCommand_UnknownRank(t *testing.T) {
	dir := t.TempDir()
	isolateEnv(t, dir)

	_, err := runCLI(t, dir, "sweep", "--sweep", "whatever.yaml", "--rank", "luck")
	assert.Equal(t, exitBadConfig, exitCode(err))
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	isolateEnv(t, dir)

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
name: breakout
entry:
  conditions:
    - template: breakout
      period: 20
stops:
  time_exit_bars: 10
`), 0644))

	out, err := runCLI(t, dir, "validate", "--strategy", good)
	require.NoError(t, err)
	assert.Contains(t, out, "Strategy: breakout")
	assert.Contains(t, out, "warm-up: 20 bars")
	assert.Contains(t, out, "time exit after 10 bars")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: x\nentry:\n  conditions:\n    - type: sideways\n"), 0644))
	_, err = runCLI(t, dir, "validate", "--strategy", bad)
	assert.Equal(t, exitBadConfig, exitCode(err))

	huge := filepath.Join(dir, "huge.yaml")
	require.NoError(t, os.WriteFile(huge, []byte(`
base:
  name: wide
  entry:
    conditions:
      - template: trend_up
        fast_param: fast
        slow_param: slow
parameters:
  - {name: fast, min: 2, max: 200, step: 1}
  - {name: slow, min: 201, max: 400, step: 1}
`), 0644))
	out, err = runCLI(t, dir, "validate", "--sweep", huge)
	require.NoError(t, err)
	assert.Contains(t, out, "run it with --search ga")

	_, err = runCLI(t, dir, "validate")
	assert.Equal(t, exitBadConfig, exitCode(err))
}
