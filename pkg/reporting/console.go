package reporting

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const dateLayout = "2006-01-02"

// DefaultConsoleReporter renders tables with go-pretty
type DefaultConsoleReporter struct{}

// NewDefaultConsoleReporter creates a new console reporter
func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return &DefaultConsoleReporter{}
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

// PrintSummary prints the run header and the headline statistics
func (r *DefaultConsoleReporter) PrintSummary(w io.Writer, rep *Report) {
	res := rep.Result
	t := newTable(w, fmt.Sprintf("BACKTEST %s · %s", res.Symbol, res.Strategy))

	t.AppendRows([]table.Row{
		{"Period", fmt.Sprintf("%s → %s", res.StartDate.Format(dateLayout), res.EndDate.Format(dateLayout))},
		{"Bars / Warm-up", fmt.Sprintf("%d / %d", res.Bars, res.WarmUp)},
		{"Capital per Trade", money(res.Config.CapitalPerTrade)},
		{"Slippage / Brokerage", fmt.Sprintf("%g bps / %s per order", res.Config.SlippageBps, money(res.Config.BrokeragePerOrder))},
	})
	t.AppendSeparator()
	for _, m := range summaryMetrics(rep.Summary) {
		t.AppendRow(table.Row{m.Label, formatMetric(m)})
	}

	if len(rep.Summary.ExitReasons) > 0 {
		t.AppendSeparator()
		for _, reason := range rep.Summary.SortedExitReasons() {
			t.AppendRow(table.Row{"Exits: " + string(reason), rep.Summary.ExitReasons[reason]})
		}
	}
	if n := len(res.Skipped); n > 0 {
		t.AppendRow(table.Row{"Skipped Entries", n})
	}
	if p := res.OpenPosition; p != nil {
		t.AppendRow(table.Row{"Open Position", fmt.Sprintf("%d @ %.2f since %s", p.Quantity, p.EntryPrice, p.EntryDate.Format(dateLayout))})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 22, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, Align: text.AlignRight},
	})
	t.Render()
}

// PrintTrades prints the ledger. A positive limit keeps only the most
// recent trades.
func (r *DefaultConsoleReporter) PrintTrades(w io.Writer, rep *Report, limit int) {
	trades := rep.Result.Trades
	title := fmt.Sprintf("TRADES (%d)", len(trades))
	if limit > 0 && len(trades) > limit {
		trades = trades[len(trades)-limit:]
		title = fmt.Sprintf("TRADES (last %d of %d)", limit, len(rep.Result.Trades))
	}

	t := newTable(w, title)
	t.AppendHeader(table.Row{"#", "Entry", "Entry Px", "Exit", "Exit Px", "Qty", "Net PnL", "Return %", "Bars", "Reason"})
	for _, tr := range trades {
		t.AppendRow(table.Row{
			tr.Seq,
			tr.EntryDate.Format(dateLayout),
			fmt.Sprintf("%.2f", tr.EntryPrice),
			tr.ExitDate.Format(dateLayout),
			fmt.Sprintf("%.2f", tr.ExitPrice),
			tr.Quantity,
			colorPnL(tr.NetPnL, money(tr.NetPnL)),
			fmt.Sprintf("%.2f", tr.ReturnPct),
			tr.HoldingBars,
			string(tr.ExitReason),
		})
	}
	if len(trades) == 0 {
		t.AppendRow(table.Row{"", "no trades"})
	}
	t.Render()
}

// PrintMonthly prints the year by month return grid
func (r *DefaultConsoleReporter) PrintMonthly(w io.Writer, rep *Report) {
	t := newTable(w, "MONTHLY RETURNS %")

	header := table.Row{"Year"}
	for m := time.January; m <= time.December; m++ {
		header = append(header, m.String()[:3])
	}
	header = append(header, "Year")
	t.AppendHeader(header)

	for _, row := range rep.Monthly.Rows {
		line := table.Row{strconv.Itoa(row.Year)}
		for _, m := range row.Months {
			line = append(line, pct(m))
		}
		line = append(line, pct(row.YearReturn))
		t.AppendRow(line)
	}
	t.Render()
}

// PrintSweep prints the best ranked variants
func (r *DefaultConsoleReporter) PrintSweep(w io.Writer, rows []SweepRow, top int) {
	if top > 0 && len(rows) > top {
		rows = rows[:top]
	}

	t := newTable(w, fmt.Sprintf("SWEEP RANKING (top %d)", len(rows)))
	t.AppendHeader(table.Row{"Rank", "Variant", "Trades", "Win %", "Net PnL", "PF", "CAGR %", "Max DD %", "Sharpe"})
	for i, row := range rows {
		if row.Err != nil {
			t.AppendRow(table.Row{i + 1, row.Name, text.FgRed.Sprint(row.Err.Error())})
			continue
		}
		s := row.Summary
		t.AppendRow(table.Row{
			i + 1,
			row.Name,
			s.TotalTrades,
			orNA(pct(s.WinRate)),
			colorPnL(s.TotalNetPnL, money(s.TotalNetPnL)),
			orNA(pct(s.ProfitFactor)),
			orNA(pct(s.CAGR)),
			fmt.Sprintf("%.2f", s.MaxDrawdownPct),
			orNA(pct(s.Sharpe)),
		})
	}
	t.Render()
}

func colorPnL(v float64, s string) string {
	switch {
	case v > 0:
		return text.FgGreen.Sprint(s)
	case v < 0:
		return text.FgRed.Sprint(s)
	}
	return s
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
