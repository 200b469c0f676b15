package reporting

import (
	"math"
	"sort"
	"strconv"

	"github.com/moznion/go-optional"

	"github.com/ducminhle1904/eod-backtester/internal/backtest"
	"github.com/ducminhle1904/eod-backtester/internal/performance"
)

// RankBy names the statistic a sweep is ordered by.
type RankBy string

const (
	RankNetPnL       RankBy = "net_pnl"
	RankSharpe       RankBy = "sharpe"
	RankCAGR         RankBy = "cagr"
	RankProfitFactor RankBy = "profit_factor"
	RankWinRate      RankBy = "win_rate"
	RankDrawdown     RankBy = "max_drawdown"
)

// ParseRankBy accepts the RankBy names; empty means net_pnl.
func ParseRankBy(s string) (RankBy, bool) {
	switch r := RankBy(s); r {
	case "":
		return RankNetPnL, true
	case RankNetPnL, RankSharpe, RankCAGR, RankProfitFactor, RankWinRate, RankDrawdown:
		return r, true
	}
	return "", false
}

// SweepRow is one analyzed variant.
type SweepRow struct {
	Index   int
	Name    string
	Params  map[string]float64
	Summary performance.Summary
	Err     error
}

func (r SweepRow) score(by RankBy) optional.Option[float64] {
	return Score(r.Summary, by)
}

// Score returns the statistic s is ranked by; higher is better.
func Score(s performance.Summary, by RankBy) optional.Option[float64] {
	switch by {
	case RankSharpe:
		return s.Sharpe
	case RankCAGR:
		return s.CAGR
	case RankProfitFactor:
		return s.ProfitFactor
	case RankWinRate:
		return s.WinRate
	case RankDrawdown:
		// smaller drawdowns rank first
		return optional.Some(-s.MaxDrawdownPct)
	}
	return optional.Some(s.TotalNetPnL)
}

// RankSweep analyzes every result and orders the rows best first. Failed
// variants and undefined scores go last; ties keep variant order.
func RankSweep(results []backtest.JobResult, by RankBy) []SweepRow {
	rows := make([]SweepRow, 0, len(results))
	for _, jr := range results {
		row := SweepRow{
			Index:  jr.Variant.Index,
			Name:   jr.Variant.Name,
			Params: jr.Variant.Params,
			Err:    jr.Err,
		}
		if jr.Err == nil && jr.Result != nil {
			row.Summary = performance.Analyze(jr.Result.Trades, jr.Result.Equity)
		}
		rows = append(rows, row)
	}

	key := func(r SweepRow) float64 {
		if r.Err != nil {
			return math.Inf(-1)
		}
		return r.score(by).TakeOr(math.Inf(-1))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		ki, kj := key(rows[i]), key(rows[j])
		if ki != kj {
			return ki > kj
		}
		return rows[i].Index < rows[j].Index
	})
	return rows
}

// WriteSweepCSV writes the ranked rows with one column per parameter.
func WriteSweepCSV(rows []SweepRow, path string) error {
	var params []string
	seen := map[string]bool{}
	for _, r := range rows {
		for k := range r.Params {
			if !seen[k] {
				seen[k] = true
				params = append(params, k)
			}
		}
	}
	sort.Strings(params)

	header := []string{"rank", "variant"}
	header = append(header, params...)
	header = append(header, "trades", "win_rate_pct", "net_pnl", "profit_factor", "cagr_pct", "max_drawdown_pct", "sharpe", "error")

	out := [][]string{header}
	for i, r := range rows {
		line := []string{strconv.Itoa(i + 1), r.Name}
		for _, p := range params {
			if v, ok := r.Params[p]; ok {
				line = append(line, strconv.FormatFloat(v, 'f', -1, 64))
			} else {
				line = append(line, "")
			}
		}
		if r.Err != nil {
			line = append(line, "", "", "", "", "", "", "", r.Err.Error())
		} else {
			s := r.Summary
			line = append(line,
				strconv.Itoa(s.TotalTrades),
				pct(s.WinRate),
				num(s.TotalNetPnL),
				pct(s.ProfitFactor),
				pct(s.CAGR),
				num(s.MaxDrawdownPct),
				pct(s.Sharpe),
				"",
			)
		}
		out = append(out, line)
	}
	return writeCSV(path, out)
}
