package indicators

import "github.com/ducminhle1904/eod-backtester/pkg/types"

// Highest returns the rolling maximum of src over period bars (inclusive of
// the current bar).
func Highest(src []float64, period int) Series {
	return rolling(src, period, func(a, b float64) bool { return a > b })
}

// Lowest returns the rolling minimum of src over period bars.
func Lowest(src []float64, period int) Series {
	return rolling(src, period, func(a, b float64) bool { return a < b })
}

// DonchianUpper is the highest high of the last period bars.
func DonchianUpper(bars []types.Bar, period int) Series {
	highs := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
	}
	return Highest(highs, period)
}

// DonchianLower is the lowest low of the last period bars.
func DonchianLower(bars []types.Bar, period int) Series {
	lows := make([]float64, len(bars))
	for i, b := range bars {
		lows[i] = b.Low
	}
	return Lowest(lows, period)
}

// DonchianMiddle is the midpoint of the upper and lower channel.
func DonchianMiddle(bars []types.Bar, period int) Series {
	upper := DonchianUpper(bars, period)
	lower := DonchianLower(bars, period)

	out := NewSeries(len(bars))
	for i := range bars {
		u, okU := upper.At(i)
		l, okL := lower.At(i)
		if okU && okL {
			out.set(i, (u+l)/2.0)
		}
	}
	return out
}

// rolling keeps a monotonic deque of indexes so every window extreme is found
// in amortized O(1).
func rolling(src []float64, period int, better func(a, b float64) bool) Series {
	out := NewSeries(len(src))
	if period < 1 || len(src) < period {
		return out
	}

	deque := make([]int, 0, period)
	for i, v := range src {
		for len(deque) > 0 && deque[0] <= i-period {
			deque = deque[1:]
		}
		for len(deque) > 0 && !better(src[deque[len(deque)-1]], v) {
			deque = deque[:len(deque)-1]
		}
		deque = append(deque, i)
		if i >= period-1 {
			out.set(i, src[deque[0]])
		}
	}
	return out
}
