package performance

import (
	"time"

	"github.com/ducminhle1904/eod-backtester/internal/backtest"
)

// DrawdownPoint is the distance from the running equity peak at one bar.
type DrawdownPoint struct {
	Date        time.Time
	Equity      float64
	Peak        float64
	Drawdown    float64
	DrawdownPct float64
}

// Drawdown returns the drawdown series of an equity curve. Drawdowns are
// reported as non-negative magnitudes.
func Drawdown(equity []backtest.EquityPoint) []DrawdownPoint {
	out := make([]DrawdownPoint, len(equity))
	peak := 0.0
	for i, p := range equity {
		if i == 0 || p.Equity > peak {
			peak = p.Equity
		}
		d := DrawdownPoint{
			Date:     p.Date,
			Equity:   p.Equity,
			Peak:     peak,
			Drawdown: peak - p.Equity,
		}
		if peak > 0 {
			d.DrawdownPct = d.Drawdown / peak * 100
		}
		out[i] = d
	}
	return out
}
