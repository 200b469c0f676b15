package indicators

// EMA computes the exponential moving average of src. The average is seeded
// with the SMA of the first period values, so the first period-1 entries are
// unavailable.
func EMA(src []float64, period int) Series {
	out := NewSeries(len(src))
	if period < 1 || len(src) < period {
		return out
	}

	alpha := 2.0 / float64(period+1) // Standard EMA alpha calculation

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += src[i]
	}
	prev := sum / float64(period)
	out.set(period-1, prev)

	for i := period; i < len(src); i++ {
		prev = src[i]*alpha + prev*(1-alpha)
		out.set(i, prev)
	}
	return out
}
