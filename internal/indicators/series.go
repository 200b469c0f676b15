package indicators

import (
	"fmt"

	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

// Series is a numeric time series aligned 1:1 with a bar sequence. Entries
// whose Valid flag is false are unavailable (warm-up or insufficient history).
type Series struct {
	Values []float64
	Valid  []bool
}

// NewSeries creates a fully unavailable series of length n.
func NewSeries(n int) Series {
	return Series{
		Values: make([]float64, n),
		Valid:  make([]bool, n),
	}
}

// Len returns the number of entries.
func (s Series) Len() int {
	return len(s.Values)
}

// At returns the value at index i and whether it is available.
func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s.Values) || !s.Valid[i] {
		return 0, false
	}
	return s.Values[i], true
}

// FirstValid returns the index of the first available value, or -1.
func (s Series) FirstValid() int {
	for i, ok := range s.Valid {
		if ok {
			return i
		}
	}
	return -1
}

func (s Series) set(i int, v float64) {
	s.Values[i] = v
	s.Valid[i] = true
}

// Source extracts one price field from bars as a plain slice.
func Source(bars []types.Bar, field types.PriceField) ([]float64, error) {
	out := make([]float64, len(bars))
	for i, b := range bars {
		v, ok := b.Value(field)
		if !ok {
			return nil, fmt.Errorf("unknown price field %q", field)
		}
		out[i] = v
	}
	return out, nil
}

// FromValues wraps raw values as a fully available series.
func FromValues(values []float64) Series {
	s := NewSeries(len(values))
	for i, v := range values {
		s.set(i, v)
	}
	return s
}
