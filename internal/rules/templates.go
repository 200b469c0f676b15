package rules

import (
	"github.com/ducminhle1904/eod-backtester/internal/indicators"
	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

// Breakout fires when the close exceeds the highest high of the previous n
// bars. The channel is read one bar back so today's high is not included.
func Breakout(n int) Condition {
	upper := Ind(indicators.Spec{Kind: indicators.KindHighest, Period: n, Source: types.FieldHigh}).Shift(1)
	return Compare(GreaterThan, Close(), upper)
}

// TrendUp fires while the fast EMA is above the slow EMA.
func TrendUp(fast, slow int) Condition {
	return Compare(GreaterThan, ema(fast), ema(slow))
}

// TrendFlip fires while the fast EMA is below the slow EMA.
func TrendFlip(fast, slow int) Condition {
	return Compare(LessThan, ema(fast), ema(slow))
}

// Momentum fires while RSI is above level.
func Momentum(period int, level float64) Condition {
	return Threshold(Above, Ind(indicators.Spec{Kind: indicators.KindRSI, Period: period}), level)
}

func ema(period int) Operand {
	return Ind(indicators.Spec{Kind: indicators.KindEMA, Period: period})
}

// DefaultStrategy is the trend-following setup used when no rules are given:
// enter on EMA(21) > EMA(55), exit on a 2% stop or a 3x ATR(14) trail.
func DefaultStrategy() Strategy {
	return Strategy{
		Name:  "ema-trend",
		Entry: All(TrendUp(21, 55)),
		Exit:  Any(),
		Stops: Stops{
			StopLossPct: 2,
			ATRTrail:    &ATRTrail{Period: 14, Multiplier: 3},
		},
	}
}
