package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
)

// DefaultCSVReporter implements CSV output functionality
type DefaultCSVReporter struct{}

// NewDefaultCSVReporter creates a new CSV reporter
func NewDefaultCSVReporter() *DefaultCSVReporter {
	return &DefaultCSVReporter{}
}

var tradeHeader = []string{
	"seq", "symbol", "side",
	"entry_date", "entry_index", "entry_price",
	"exit_date", "exit_index", "exit_price",
	"quantity", "gross_pnl", "costs", "net_pnl", "return_pct",
	"holding_bars", "exit_reason",
}

// WriteTradesCSV writes one row per closed trade
func (r *DefaultCSVReporter) WriteTradesCSV(rep *Report, path string) error {
	rows := make([][]string, 0, len(rep.Result.Trades)+1)
	rows = append(rows, tradeHeader)
	for _, t := range rep.Result.Trades {
		rows = append(rows, []string{
			strconv.Itoa(t.Seq),
			t.Symbol,
			string(t.Side),
			t.EntryDate.Format(dateLayout),
			strconv.Itoa(t.EntryIndex),
			num(t.EntryPrice),
			t.ExitDate.Format(dateLayout),
			strconv.Itoa(t.ExitIndex),
			num(t.ExitPrice),
			strconv.Itoa(t.Quantity),
			num(t.GrossPnL),
			num(t.Costs),
			num(t.NetPnL),
			num(t.ReturnPct),
			strconv.Itoa(t.HoldingBars),
			string(t.ExitReason),
		})
	}
	return writeCSV(path, rows)
}

// WriteEquityCSV writes the marked equity curve with its drawdown
func (r *DefaultCSVReporter) WriteEquityCSV(rep *Report, path string) error {
	rows := make([][]string, 0, len(rep.Result.Equity)+1)
	rows = append(rows, []string{"date", "equity", "realized", "unrealized", "in_position", "drawdown", "drawdown_pct"})
	for i, p := range rep.Result.Equity {
		dd := rep.Drawdown[i]
		rows = append(rows, []string{
			p.Date.Format(dateLayout),
			num(p.Equity),
			num(p.Realized),
			num(p.Unrealized),
			strconv.FormatBool(p.InPosition),
			num(dd.Drawdown),
			num(dd.DrawdownPct),
		})
	}
	return writeCSV(path, rows)
}

func writeCSV(path string, rows [][]string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return bterrors.Wrap(err, bterrors.KindData, "reporting", "csv", "cannot create "+path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return bterrors.Wrap(err, bterrors.KindData, "reporting", "csv", fmt.Sprintf("cannot write %s", path))
	}
	return nil
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
