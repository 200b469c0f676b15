package data

import (
	"fmt"
	"sort"
	"time"

	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

// DefaultDataFilter implements DataFilter for daily bars
type DefaultDataFilter struct{}

// NewDefaultDataFilter creates a new default data filter
func NewDefaultDataFilter() *DefaultDataFilter {
	return &DefaultDataFilter{}
}

// FilterByPeriod keeps the bars within period of the last bar
func (f *DefaultDataFilter) FilterByPeriod(bars []types.Bar, period time.Duration) []types.Bar {
	if period <= 0 || len(bars) == 0 {
		return bars
	}

	cutoff := bars[len(bars)-1].Date.Add(-period)
	start := sort.Search(len(bars), func(i int) bool {
		return !bars[i].Date.Before(cutoff)
	})
	return bars[start:]
}

// FilterByDateRange keeps bars with start <= date <= end. A zero start or
// end leaves that side open.
func (f *DefaultDataFilter) FilterByDateRange(bars []types.Bar, start, end time.Time) []types.Bar {
	if len(bars) == 0 {
		return bars
	}

	filtered := make([]types.Bar, 0, len(bars))
	for _, b := range bars {
		if !start.IsZero() && b.Date.Before(start) {
			continue
		}
		if !end.IsZero() && b.Date.After(end) {
			continue
		}
		filtered = append(filtered, b)
	}
	return filtered
}

// ValidateTimeSequence ensures dates are strictly increasing
func (f *DefaultDataFilter) ValidateTimeSequence(bars []types.Bar) error {
	for i := 1; i < len(bars); i++ {
		prev, cur := bars[i-1].Date, bars[i].Date
		if cur.Equal(prev) {
			return fmt.Errorf("duplicate date at index %d: %s", i, cur.Format("2006-01-02"))
		}
		if cur.Before(prev) {
			return fmt.Errorf("dates not increasing at index %d: %s comes after %s",
				i, cur.Format("2006-01-02"), prev.Format("2006-01-02"))
		}
	}
	return nil
}

// SortByDate returns a copy of bars in ascending date order
func (f *DefaultDataFilter) SortByDate(bars []types.Bar) []types.Bar {
	sorted := types.CopyBars(bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// RemoveDuplicates drops repeated dates, keeping the first occurrence
func (f *DefaultDataFilter) RemoveDuplicates(bars []types.Bar) []types.Bar {
	if len(bars) <= 1 {
		return bars
	}

	filtered := make([]types.Bar, 0, len(bars))
	seen := make(map[time.Time]bool, len(bars))
	for _, b := range bars {
		if seen[b.Date] {
			continue
		}
		seen[b.Date] = true
		filtered = append(filtered, b)
	}
	return filtered
}
