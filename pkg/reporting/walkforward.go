package reporting

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/eod-backtester/pkg/validation"
)

// WalkForwardCSVFile is written next to sweep.csv
const WalkForwardCSVFile = "walk_forward.csv"

// PrintWalkForward prints one row per fold and the overfitting verdict
func PrintWalkForward(w io.Writer, s *validation.WalkForwardSummary) {
	mode := "HOLDOUT"
	if s.Rolling {
		mode = "ROLLING"
	}
	t := newTable(w, fmt.Sprintf("WALK-FORWARD %s (%d folds)", mode, len(s.Folds)))
	t.AppendHeader(table.Row{"Fold", "Train", "Test", "Best Variant", "Train Ret %", "Test Ret %", "Train DD %", "Test DD %", "Test Trades"})
	for _, f := range s.Folds {
		t.AppendRow(table.Row{
			f.Fold,
			f.TrainStart.Format(dateLayout) + " → " + f.TrainEnd.Format(dateLayout),
			f.TestStart.Format(dateLayout) + " → " + f.TestEnd.Format(dateLayout),
			f.Best.Name,
			orNA(pct(f.Train.TotalReturnPct)),
			orNA(pct(f.Test.TotalReturnPct)),
			fmt.Sprintf("%.2f", f.Train.MaxDrawdownPct),
			fmt.Sprintf("%.2f", f.Test.MaxDrawdownPct),
			f.Test.TotalTrades,
		})
	}
	t.AppendFooter(table.Row{
		"AVG", "", "", "",
		fmt.Sprintf("%.2f ± %.2f", s.AverageTrainReturn, s.TrainReturnStdDev),
		fmt.Sprintf("%.2f ± %.2f", s.AverageTestReturn, s.TestReturnStdDev),
		fmt.Sprintf("%.2f", s.AverageTrainDrawdown),
		fmt.Sprintf("%.2f", s.AverageTestDrawdown),
		"",
	})
	t.Render()

	verdict := text.FgGreen.Sprint("LOW overfitting risk")
	switch s.OverfittingRisk {
	case "HIGH":
		verdict = text.FgRed.Sprint("HIGH overfitting risk")
	case "MODERATE":
		verdict = text.FgYellow.Sprint("MODERATE overfitting risk")
	}
	fmt.Fprintf(w, "Return degradation %.1f%%: %s\n", s.ReturnDegradation, verdict)
}

// WriteWalkForwardCSV writes one row per fold
func WriteWalkForwardCSV(s *validation.WalkForwardSummary, path string) error {
	rows := [][]string{{
		"fold", "train_start", "train_end", "test_start", "test_end", "best_variant",
		"train_trades", "train_return_pct", "train_max_drawdown_pct",
		"test_trades", "test_return_pct", "test_max_drawdown_pct",
	}}
	for _, f := range s.Folds {
		rows = append(rows, []string{
			strconv.Itoa(f.Fold),
			f.TrainStart.Format(dateLayout),
			f.TrainEnd.Format(dateLayout),
			f.TestStart.Format(dateLayout),
			f.TestEnd.Format(dateLayout),
			f.Best.Name,
			strconv.Itoa(f.Train.TotalTrades),
			pct(f.Train.TotalReturnPct),
			num(f.Train.MaxDrawdownPct),
			strconv.Itoa(f.Test.TotalTrades),
			pct(f.Test.TotalReturnPct),
			num(f.Test.MaxDrawdownPct),
		})
	}
	return writeCSV(path, rows)
}
