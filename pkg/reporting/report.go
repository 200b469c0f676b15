package reporting

import (
	"github.com/moznion/go-optional"

	"github.com/ducminhle1904/eod-backtester/internal/backtest"
	"github.com/ducminhle1904/eod-backtester/internal/performance"
)

// Report bundles a run with the statistics every output format needs.
type Report struct {
	Result   *backtest.Result
	Summary  performance.Summary
	Monthly  performance.MonthlyTable
	Drawdown []performance.DrawdownPoint
}

// NewReport analyzes result once for all formatters.
func NewReport(result *backtest.Result) *Report {
	return &Report{
		Result:   result,
		Summary:  performance.Analyze(result.Trades, result.Equity),
		Monthly:  performance.MonthlyReturns(result.Equity),
		Drawdown: performance.Drawdown(result.Equity),
	}
}

type metricFormat int

const (
	formatCount metricFormat = iota
	formatMoney
	formatPct
	formatRatio
)

// metric is one labelled line of the summary, shared by the console,
// the workbook and the sweep table.
type metric struct {
	Label  string
	Value  optional.Option[float64]
	Format metricFormat
}

func some(v float64) optional.Option[float64] {
	return optional.Some(v)
}

func summaryMetrics(s performance.Summary) []metric {
	return []metric{
		{"Total Trades", some(float64(s.TotalTrades)), formatCount},
		{"Wins", some(float64(s.Wins)), formatCount},
		{"Losses", some(float64(s.Losses)), formatCount},
		{"Win Rate", s.WinRate, formatPct},
		{"Avg Return / Trade", s.AvgReturnPct, formatPct},
		{"Avg Win", s.AvgWin, formatMoney},
		{"Avg Loss", s.AvgLoss, formatMoney},
		{"Best Trade", s.BestTrade, formatMoney},
		{"Worst Trade", s.WorstTrade, formatMoney},
		{"Profit Factor", s.ProfitFactor, formatRatio},
		{"Expectancy", s.Expectancy, formatMoney},
		{"Avg Holding (bars)", s.AvgHoldingBars, formatRatio},
		{"Gross Profit", some(s.GrossProfit), formatMoney},
		{"Gross Loss", some(s.GrossLoss), formatMoney},
		{"Total Costs", some(s.TotalCosts), formatMoney},
		{"Net PnL", some(s.TotalNetPnL), formatMoney},
		{"Start Equity", some(s.StartEquity), formatMoney},
		{"End Equity", some(s.EndEquity), formatMoney},
		{"Total Return", s.TotalReturnPct, formatPct},
		{"CAGR", s.CAGR, formatPct},
		{"Max Drawdown", some(s.MaxDrawdown), formatMoney},
		{"Max Drawdown %", some(s.MaxDrawdownPct), formatPct},
		{"Sharpe (ann.)", s.Sharpe, formatRatio},
		{"Exposure", s.Exposure, formatPct},
	}
}
