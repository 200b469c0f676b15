package indicators

import (
	"math"

	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

// ATR computes the Average True Range with Wilder smoothing. True range needs
// the previous close, so the first value appears at index period.
func ATR(bars []types.Bar, period int) Series {
	out := NewSeries(len(bars))
	if period < 1 || len(bars) <= period {
		return out
	}

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += TrueRange(bars[i], bars[i-1].Close)
	}
	prev := sum / float64(period)
	out.set(period, prev)

	p := float64(period)
	for i := period + 1; i < len(bars); i++ {
		prev = (prev*(p-1) + TrueRange(bars[i], bars[i-1].Close)) / p
		out.set(i, prev)
	}
	return out
}

// TrueRange = max(High-Low, |High-PrevClose|, |Low-PrevClose|)
func TrueRange(current types.Bar, prevClose float64) float64 {
	hl := current.High - current.Low
	hc := math.Abs(current.High - prevClose)
	lc := math.Abs(current.Low - prevClose)

	return math.Max(hl, math.Max(hc, lc))
}
