package indicators

// SMA computes the simple moving average of src over period bars. The first
// period-1 entries are unavailable.
func SMA(src []float64, period int) Series {
	out := NewSeries(len(src))
	if period < 1 || len(src) < period {
		return out
	}

	sum := 0.0
	for i, v := range src {
		sum += v
		if i >= period {
			sum -= src[i-period]
		}
		if i >= period-1 {
			out.set(i, sum/float64(period))
		}
	}
	return out
}
