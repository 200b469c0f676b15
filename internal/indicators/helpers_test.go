package indicators

import (
	"time"

	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// barsFromCloses builds daily bars whose open equals the previous close and
// whose high/low straddle the body by one point.
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

func generateCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		// deterministic zig-zag drifting upward
		out[i] = 100 + float64(i)*0.5
		if i%3 == 0 {
			out[i] -= 2
		}
	}
	return out
}
