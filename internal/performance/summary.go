// Package performance turns a trade ledger and an equity curve into summary
// statistics. Ratios that are undefined for the input are None, never a
// division by zero.
package performance

import (
	"math"
	"sort"

	"github.com/moznion/go-optional"

	"github.com/ducminhle1904/eod-backtester/internal/backtest"
)

// TradingDaysPerYear annualizes daily statistics.
const TradingDaysPerYear = 252

const daysPerYear = 365.25

// Summary holds the headline statistics of one run. Percentages are in
// percent units (12.5 means 12.5%).
type Summary struct {
	TotalTrades int `json:"total_trades"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`
	Breakeven   int `json:"breakeven"`

	WinRate        optional.Option[float64] `json:"win_rate_pct"`
	AvgReturnPct   optional.Option[float64] `json:"avg_return_pct"`
	AvgWin         optional.Option[float64] `json:"avg_win"`
	AvgLoss        optional.Option[float64] `json:"avg_loss"`
	ProfitFactor   optional.Option[float64] `json:"profit_factor"`
	Expectancy     optional.Option[float64] `json:"expectancy"`
	AvgHoldingBars optional.Option[float64] `json:"avg_holding_bars"`
	BestTrade      optional.Option[float64] `json:"best_trade"`
	WorstTrade     optional.Option[float64] `json:"worst_trade"`

	GrossProfit float64 `json:"gross_profit"`
	GrossLoss   float64 `json:"gross_loss"`
	TotalNetPnL float64 `json:"total_net_pnl"`
	TotalCosts  float64 `json:"total_costs"`

	MaxDrawdown    float64                  `json:"max_drawdown"`
	MaxDrawdownPct float64                  `json:"max_drawdown_pct"`
	TotalReturnPct optional.Option[float64] `json:"total_return_pct"`
	CAGR           optional.Option[float64] `json:"cagr_pct"`
	Sharpe         optional.Option[float64] `json:"sharpe"`
	Exposure       optional.Option[float64] `json:"exposure_pct"`

	StartEquity float64 `json:"start_equity"`
	EndEquity   float64 `json:"end_equity"`

	ExitReasons map[backtest.ExitReason]int `json:"exit_reasons"`
}

// Analyze computes the summary for a ledger and its equity curve.
func Analyze(trades []backtest.Trade, equity []backtest.EquityPoint) Summary {
	none := optional.None[float64]()
	s := Summary{
		TotalTrades:    len(trades),
		ExitReasons:    make(map[backtest.ExitReason]int),
		WinRate:        none,
		AvgReturnPct:   none,
		AvgWin:         none,
		AvgLoss:        none,
		ProfitFactor:   none,
		Expectancy:     none,
		AvgHoldingBars: none,
		BestTrade:      none,
		WorstTrade:     none,
		TotalReturnPct: none,
		CAGR:           none,
		Sharpe:         none,
		Exposure:       none,
	}

	analyzeTrades(&s, trades)
	analyzeEquity(&s, equity)
	return s
}

func analyzeTrades(s *Summary, trades []backtest.Trade) {
	if len(trades) == 0 {
		return
	}

	sumReturn, sumHolding := 0.0, 0.0
	best, worst := math.Inf(-1), math.Inf(1)
	for _, t := range trades {
		switch {
		case t.NetPnL > 0:
			s.Wins++
			s.GrossProfit += t.NetPnL
		case t.NetPnL < 0:
			s.Losses++
			s.GrossLoss += t.NetPnL
		default:
			s.Breakeven++
		}
		s.TotalNetPnL += t.NetPnL
		s.TotalCosts += t.Costs
		sumReturn += t.ReturnPct
		sumHolding += float64(t.HoldingBars)
		best = math.Max(best, t.NetPnL)
		worst = math.Min(worst, t.NetPnL)
		s.ExitReasons[t.ExitReason]++
	}

	n := float64(len(trades))
	s.WinRate = optional.Some(float64(s.Wins) / n * 100)
	s.AvgReturnPct = optional.Some(sumReturn / n)
	s.Expectancy = optional.Some(s.TotalNetPnL / n)
	s.AvgHoldingBars = optional.Some(sumHolding / n)
	s.BestTrade = optional.Some(best)
	s.WorstTrade = optional.Some(worst)

	if s.Wins > 0 {
		s.AvgWin = optional.Some(s.GrossProfit / float64(s.Wins))
	}
	if s.Losses > 0 {
		s.AvgLoss = optional.Some(s.GrossLoss / float64(s.Losses))
		s.ProfitFactor = optional.Some(s.GrossProfit / math.Abs(s.GrossLoss))
	}
}

func analyzeEquity(s *Summary, equity []backtest.EquityPoint) {
	if len(equity) == 0 {
		return
	}

	first, last := equity[0], equity[len(equity)-1]
	s.StartEquity = first.Equity
	s.EndEquity = last.Equity

	inPosition := 0
	for _, p := range equity {
		if p.InPosition {
			inPosition++
		}
	}
	s.Exposure = optional.Some(float64(inPosition) / float64(len(equity)) * 100)

	for _, d := range Drawdown(equity) {
		if d.Drawdown > s.MaxDrawdown {
			s.MaxDrawdown = d.Drawdown
		}
		if d.DrawdownPct > s.MaxDrawdownPct {
			s.MaxDrawdownPct = d.DrawdownPct
		}
	}

	if first.Equity > 0 {
		s.TotalReturnPct = optional.Some((last.Equity/first.Equity - 1) * 100)

		years := last.Date.Sub(first.Date).Hours() / 24 / daysPerYear
		if years > 0 && last.Equity > 0 {
			s.CAGR = optional.Some((math.Pow(last.Equity/first.Equity, 1/years) - 1) * 100)
		}
	}

	s.Sharpe = sharpe(dailyReturns(equity))
}

func dailyReturns(equity []backtest.EquityPoint) []float64 {
	rets := make([]float64, 0, len(equity))
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev <= 0 {
			continue
		}
		rets = append(rets, equity[i].Equity/prev-1)
	}
	return rets
}

// sharpe annualizes mean/stddev of daily returns with a zero risk free rate.
func sharpe(rets []float64) optional.Option[float64] {
	if len(rets) < 3 {
		return optional.None[float64]()
	}
	mean := 0.0
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))

	variance := 0.0
	for _, r := range rets {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(rets) - 1)
	std := math.Sqrt(variance)
	if std < 1e-12 {
		return optional.None[float64]()
	}
	return optional.Some(mean / std * math.Sqrt(TradingDaysPerYear))
}

// SortedExitReasons returns the exit reason keys in a stable order.
func (s Summary) SortedExitReasons() []backtest.ExitReason {
	keys := make([]backtest.ExitReason, 0, len(s.ExitReasons))
	for k := range s.ExitReasons {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
