package performance

import (
	"time"

	"github.com/moznion/go-optional"

	"github.com/ducminhle1904/eod-backtester/internal/backtest"
)

// MonthlyRow is one calendar year of month-over-month equity returns.
// Months without data are None.
type MonthlyRow struct {
	Year   int
	Months [12]optional.Option[float64]
	// YearReturn compounds the months present.
	YearReturn optional.Option[float64]
}

// MonthlyTable is a year by month grid, oldest year first.
type MonthlyTable struct {
	Rows []MonthlyRow
}

// MonthlyReturns compares each month-end equity with the previous month end.
// The first month is measured against the first equity point.
func MonthlyReturns(equity []backtest.EquityPoint) MonthlyTable {
	var table MonthlyTable
	if len(equity) == 0 {
		return table
	}

	rowIndex := make(map[int]int)
	prev := equity[0].Equity
	for i, p := range equity {
		// only the last point of each month counts
		if i+1 < len(equity) && sameMonth(p.Date, equity[i+1].Date) {
			continue
		}

		year := p.Date.Year()
		idx, ok := rowIndex[year]
		if !ok {
			idx = len(table.Rows)
			rowIndex[year] = idx
			table.Rows = append(table.Rows, newMonthlyRow(year))
		}
		if prev > 0 {
			table.Rows[idx].Months[p.Date.Month()-1] = optional.Some((p.Equity/prev - 1) * 100)
		}
		prev = p.Equity
	}

	for i := range table.Rows {
		table.Rows[i].YearReturn = compound(table.Rows[i].Months)
	}
	return table
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func newMonthlyRow(year int) MonthlyRow {
	row := MonthlyRow{Year: year, YearReturn: optional.None[float64]()}
	for m := range row.Months {
		row.Months[m] = optional.None[float64]()
	}
	return row
}

func compound(months [12]optional.Option[float64]) optional.Option[float64] {
	growth, found := 1.0, false
	for _, m := range months {
		if m.IsSome() {
			growth *= 1 + m.Unwrap()/100
			found = true
		}
	}
	if !found {
		return optional.None[float64]()
	}
	return optional.Some((growth - 1) * 100)
}
