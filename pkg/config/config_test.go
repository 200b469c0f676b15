package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/eod-backtester/internal/backtest"
	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
	"github.com/ducminhle1904/eod-backtester/internal/rules"
)

const trendYAML = `
name: ema-trend
symbol: nifty 50
capital_per_trade: 250000
slippage_bps: 5
entry:
  combinator: all
  conditions:
    - type: greater_than
      a: {indicator: ema, period: 21}
      b: {indicator: ema, period: 55}
    - type: above
      a: {indicator: rsi, period: 14}
      level: 55
  groups:
    - combinator: not
      conditions:
        - type: in_range
          a: {price: close}
          low: 0
          high: 100
exit:
  combinator: any
  conditions:
    - type: crosses_below
      a: {price: close}
      b: {indicator: lowest, source: low, period: 10, offset: 1}
stops:
  time_exit_bars: 20
  stop_loss_pct: 2
  atr_trail: {period: 14, multiplier: 3}
`

func TestParseStrategy_Compiles(t *testing.T) {
	cfg, err := ParseStrategy([]byte(trendYAML))
	require.NoError(t, err)

	symbol, err := cfg.ResolveSymbol()
	require.NoError(t, err)
	assert.Equal(t, "NIFTY", symbol)

	strategy, engineCfg, err := cfg.Compile(backtest.DefaultConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, 250000.0, engineCfg.CapitalPerTrade)
	assert.Equal(t, 5.0, engineCfg.SlippageBps)
	assert.Equal(t, 20.0, engineCfg.BrokeragePerOrder, "omitted fields keep the defaults")
	assert.Equal(t, backtest.ForceClose, engineCfg.EndOfData)

	assert.Equal(t,
		"ema(close,21) greater_than ema(close,55) AND rsi(close,14) above 55 AND (NOT close in_range [0, 100])",
		strategy.Entry.String())
	assert.Equal(t, "close crosses_below lowest(low,10)[1]", strategy.Exit.String())
	assert.Equal(t, 20, strategy.Stops.TimeExitBars)
	assert.Equal(t, 2.0, strategy.Stops.StopLossPct)
	require.NotNil(t, strategy.Stops.ATRTrail)
	assert.Equal(t, rules.ATRTrail{Period: 14, Multiplier: 3}, *strategy.Stops.ATRTrail)
}

func TestParseStrategy_Templates(t *testing.T) {
	raw := `
name: breakout
entry:
  conditions:
    - template: breakout
      period: 20
    - template: momentum
      period: 14
      level: 55
exit:
  conditions:
    - template: trend_flip
      fast: 21
      slow: 55
`
	cfg, err := ParseStrategy([]byte(raw))
	require.NoError(t, err)

	strategy, _, err := cfg.Compile(backtest.DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, rules.All(rules.Breakout(20), rules.Momentum(14, 55)), strategy.Entry)
	assert.Equal(t, rules.All(rules.TrendFlip(21, 55)), strategy.Exit)
}

func TestParseStrategy_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown condition type",
			yaml: "name: x\nentry:\n  conditions:\n    - type: bigger\n      a: {price: close}\n      level: 1\n",
			want: "entry.conditions[0].type: bigger is not one of",
		},
		{
			name: "non-positive capital",
			yaml: "name: x\ncapital_per_trade: 0\nentry:\n  conditions:\n    - template: breakout\n      period: 20\n",
			want: "capital_per_trade must be greater than 0",
		},
		{
			name: "period out of range",
			yaml: "name: x\nentry:\n  conditions:\n    - type: above\n      a: {indicator: sma, period: 6000}\n      level: 1\n",
			want: "entry.conditions[0].a.period must be at most 5000",
		},
		{
			name: "zero period",
			yaml: "name: x\nentry:\n  conditions:\n    - type: above\n      a: {indicator: sma}\n      level: 1\n",
			want: "period must be",
		},
		{
			name: "missing name",
			yaml: "entry:\n  conditions:\n    - template: breakout\n      period: 20\n",
			want: "name is required",
		},
		{
			name: "empty entry",
			yaml: "name: x\n",
			want: "entry rule has no conditions",
		},
		{
			name: "operand with two sources",
			yaml: "name: x\nentry:\n  conditions:\n    - type: above\n      a: {price: close, value: 3}\n      level: 1\n",
			want: "set exactly one of price, indicator or value",
		},
		{
			name: "missing level",
			yaml: "name: x\nentry:\n  conditions:\n    - type: greater_than\n      a: {price: close}\n",
			want: "needs operand b or a level",
		},
		{
			name: "unresolved parameter",
			yaml: "name: x\nentry:\n  conditions:\n    - template: breakout\n      period_param: n\n",
			want: `parameter "n" has no value`,
		},
		{
			name: "unknown key",
			yaml: "name: x\nentyr: {}\n",
			want: "invalid yaml",
		},
		{
			name: "unknown symbol",
			yaml: "name: x\nsymbol: SENSEX\nentry:\n  conditions:\n    - template: breakout\n      period: 20\n",
			want: "unsupported instrument",
		},
		{
			name: "not with two children",
			yaml: "name: x\nentry:\n  combinator: not\n  conditions:\n    - template: breakout\n      period: 20\n    - template: breakout\n      period: 10\n",
			want: "not requires exactly one child",
		},
		{
			name: "empty document",
			yaml: "",
			want: "empty document",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStrategy([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, bterrors.IsKind(err, bterrors.KindConfig), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadStrategy_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trend.yaml")
	require.NoError(t, os.WriteFile(path, []byte(trendYAML), 0o644))

	cfg, err := LoadStrategy(path)
	require.NoError(t, err)

	out, err := cfg.Marshal()
	require.NoError(t, err)
	again, err := ParseStrategy(out)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)

	_, err = LoadStrategy(filepath.Join(dir, "missing.yaml"))
	assert.True(t, bterrors.IsKind(err, bterrors.KindConfig))
}

const sweepYAML = `
base:
  name: trend
  entry:
    conditions:
      - template: trend_up
        fast_param: fast
        slow_param: slow
  stops:
    stop_loss_pct_param: stop
parameters:
  - name: fast
    values: [10, 20]
  - name: slow
    min: 50
    max: 60
    step: 5
  - name: stop
    values: [2]
`

func TestSweepConfig_Variants(t *testing.T) {
	sweep, err := ParseSweep([]byte(sweepYAML))
	require.NoError(t, err)

	variants, err := sweep.Variants(backtest.DefaultConfig(), "BANKNIFTY")
	require.NoError(t, err)
	require.Len(t, variants, 6)

	for i, v := range variants {
		assert.Equal(t, i, v.Index)
		assert.Equal(t, "BANKNIFTY", v.Symbol)
		assert.Equal(t, 2.0, v.Strategy.Stops.StopLossPct)
	}

	assert.Equal(t, "trend[fast=10,slow=50,stop=2]", variants[0].Name)
	assert.Equal(t, "trend[fast=10,slow=55,stop=2]", variants[1].Name, "last parameter varies fastest")
	assert.Equal(t, "trend[fast=20,slow=60,stop=2]", variants[5].Name)
	assert.Equal(t, rules.All(rules.TrendUp(20, 60)), variants[5].Strategy.Entry)
	assert.Equal(t, map[string]float64{"fast": 20, "slow": 60, "stop": 2}, map[string]float64(variants[5].Params))
}

func TestSweepConfig_Errors(t *testing.T) {
	base := "base:\n  name: b\n  entry:\n    conditions:\n      - template: breakout\n        period_param: n\n"
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no parameters", base, "parameters is required"},
		{"values and range", base + "parameters:\n  - {name: n, values: [1], min: 1, max: 2, step: 1}\n", "not both"},
		{"incomplete range", base + "parameters:\n  - {name: n, min: 1, max: 2}\n", "needs values or min, max and step"},
		{"reversed range", base + "parameters:\n  - {name: n, min: 5, max: 2, step: 1}\n", "bad range"},
		{"duplicate", base + "parameters:\n  - {name: n, values: [5]}\n  - {name: n, values: [6]}\n", "declared twice"},
		{"fractional period", base + "parameters:\n  - {name: n, values: [2.5]}\n", "whole number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSweep([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, bterrors.IsKind(err, bterrors.KindConfig), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSweepConfig_GridLimit(t *testing.T) {
	yaml := "base:\n  name: b\n  entry:\n    conditions:\n      - template: breakout\n        period_param: n\n" +
		"parameters:\n  - {name: n, min: 2, max: 201, step: 1}\n  - {name: m, min: 1, max: 200, step: 1}\n"
	sweep, err := ParseSweep([]byte(yaml))
	require.NoError(t, err, "large spaces are valid for a genetic search")

	n, err := sweep.Size()
	require.NoError(t, err)
	assert.Equal(t, MaxVariants+1, n)

	_, err = sweep.Grid()
	require.Error(t, err)
	assert.True(t, bterrors.IsKind(err, bterrors.KindConfig))
	assert.Contains(t, err.Error(), "exceeds the limit")
}

func TestParamRange_ExpandFloatSteps(t *testing.T) {
	lo, hi, step := 1.0, 2.0, 0.1
	values, err := ParamRange{Name: "m", Min: &lo, Max: &hi, Step: &step}.Expand()
	require.NoError(t, err)
	require.Len(t, values, 11)
	assert.Equal(t, 1.3, values[3])
	assert.Equal(t, 2.0, values[10])
}
