package indicators

// RSI computes the Relative Strength Index with Wilder smoothing. The first
// value needs period price changes, so entries [0, period) are unavailable.
func RSI(src []float64, period int) Series {
	out := NewSeries(len(src))
	if period < 1 || len(src) <= period {
		return out
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		gain, loss := splitChange(src[i] - src[i-1])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out.set(period, rsiValue(avgGain, avgLoss))

	p := float64(period)
	for i := period + 1; i < len(src); i++ {
		gain, loss := splitChange(src[i] - src[i-1])
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out.set(i, rsiValue(avgGain, avgLoss))
	}
	return out
}

func splitChange(change float64) (gain, loss float64) {
	if change > 0 {
		return change, 0
	}
	return 0, -change
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50 // no movement at all
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
