package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/eod-backtester/internal/indicators"
	"github.com/ducminhle1904/eod-backtester/internal/rules"
	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

var testStart = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

// barsFromCloses builds daily bars that open at the previous close.
func barsFromCloses(closes ...float64) []types.Bar {
	bars := make([]types.Bar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		bars[i] = types.Bar{
			Date:   testStart.AddDate(0, 0, i),
			Open:   open,
			High:   max(open, c) + 1,
			Low:    min(open, c) - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

// generateWave produces a deterministic oscillating series long enough to
// trigger many crossovers.
func generateWave(n int) []float64 {
	out := make([]float64, n)
	level := 18000.0
	for i := range out {
		step := []float64{120, -80, 60, -150, 90, 40, -110, 70}[i%8]
		if (i/40)%2 == 1 {
			step = -step * 0.8
		}
		level += step
		out[i] = level
	}
	return out
}

func zeroCostConfig(capital float64) Config {
	return Config{CapitalPerTrade: capital, EndOfData: ForceClose}
}

func crossBelow(level float64) rules.Condition {
	return rules.Compare(rules.CrossesBelow, rules.Close(), rules.Const(level))
}

func always() rules.Condition {
	return rules.Threshold(rules.Above, rules.Close(), 0)
}

func smaCross(fast, slow int) rules.Strategy {
	f := rules.Ind(indicators.Spec{Kind: indicators.KindSMA, Period: fast})
	s := rules.Ind(indicators.Spec{Kind: indicators.KindSMA, Period: slow})
	return rules.Strategy{
		Name:  "sma-cross",
		Entry: rules.All(rules.Compare(rules.CrossesAbove, f, s)),
		Exit:  rules.Any(rules.Compare(rules.CrossesBelow, f, s)),
	}
}

func mustEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	return e
}

// assertLedgerInvariants checks the properties every ledger must satisfy.
func assertLedgerInvariants(t *testing.T, res *Result) {
	t.Helper()
	require.Len(t, res.Equity, res.Bars)
	for i, tr := range res.Trades {
		require.True(t, tr.EntryDate.Before(tr.ExitDate), "trade %d entry must precede exit", i)
		require.Less(t, tr.EntryIndex, tr.ExitIndex)
		require.GreaterOrEqual(t, tr.Quantity, 1)
		require.GreaterOrEqual(t, tr.EntryIndex, 1, "entries fill at the open after a signal")
		if i > 0 {
			prev := res.Trades[i-1]
			require.True(t, prev.ExitDate.Before(tr.EntryDate), "trade %d overlaps trade %d", i, i-1)
			require.Less(t, prev.ExitIndex, tr.EntryIndex)
		}
	}
}
