package reporting

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
)

const (
	summarySheet = "Summary"
	tradesSheet  = "Trades"
	equitySheet  = "Equity"
	monthlySheet = "Monthly"
	skippedSheet = "Skipped"
)

// DefaultExcelReporter implements Excel output functionality
type DefaultExcelReporter struct{}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

// WriteXLSX writes the Summary, Trades, Equity (with chart) and Monthly
// sheets, plus Skipped when entries could not be filled.
func (r *DefaultExcelReporter) WriteXLSX(rep *Report, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), summarySheet); err != nil {
		return xlsxError(err)
	}
	sheets := []string{tradesSheet, equitySheet, monthlySheet}
	if len(rep.Result.Skipped) > 0 {
		sheets = append(sheets, skippedSheet)
	}
	for _, s := range sheets {
		if _, err := fx.NewSheet(s); err != nil {
			return xlsxError(err)
		}
	}

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return xlsxError(err)
	}

	writers := []func(*excelize.File, *Report, ExcelStyles) error{
		r.writeSummarySheet,
		r.writeTradesSheet,
		r.writeEquitySheet,
		r.writeMonthlySheet,
	}
	if len(rep.Result.Skipped) > 0 {
		writers = append(writers, r.writeSkippedSheet)
	}
	for _, write := range writers {
		if err := write(fx, rep, styles); err != nil {
			return xlsxError(err)
		}
	}

	fx.SetActiveSheet(0)
	if err := fx.SaveAs(path); err != nil {
		return xlsxError(err)
	}
	return nil
}

func xlsxError(err error) error {
	return bterrors.Wrap(err, bterrors.KindData, "reporting", "xlsx", "cannot write workbook")
}

func (r *DefaultExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	border := []excelize.Border{
		{Type: "left", Color: "E0E0E0", Style: 1},
		{Type: "right", Color: "E0E0E0", Style: 1},
		{Type: "bottom", Color: "E0E0E0", Style: 1},
	}

	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	dateFmt := "yyyy-mm-dd"
	styles.DateStyle, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: &dateFmt,
		Alignment:    &excelize.Alignment{Horizontal: "center"},
		Border:       border,
	})
	if err != nil {
		return styles, err
	}

	moneyFmt := "#,##0.00"
	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: &moneyFmt,
		Alignment:    &excelize.Alignment{Horizontal: "right"},
		Border:       border,
	})
	if err != nil {
		return styles, err
	}

	styles.RedCurrencyStyle, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: &moneyFmt,
		Font:         &excelize.Font{Color: "C00000"},
		Alignment:    &excelize.Alignment{Horizontal: "right"},
		Border:       border,
	})
	if err != nil {
		return styles, err
	}

	styles.GreenCurrencyStyle, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: &moneyFmt,
		Font:         &excelize.Font{Color: "008000"},
		Alignment:    &excelize.Alignment{Horizontal: "right"},
		Border:       border,
	})
	if err != nil {
		return styles, err
	}

	pctFmt := "0.00"
	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: &pctFmt,
		Alignment:    &excelize.Alignment{Horizontal: "right"},
		Border:       border,
	})
	if err != nil {
		return styles, err
	}

	styles.LabelStyle, err = fx.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Border: border,
	})
	return styles, err
}

func writeHeader(fx *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := fx.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	return fx.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

// writeRow writes values starting at column A and applies one style per column.
func writeRow(fx *excelize.File, sheet string, row int, values []interface{}, colStyles []int) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := fx.SetSheetRow(sheet, start, &values); err != nil {
		return err
	}
	for i, st := range colStyles {
		if st == 0 {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := fx.SetCellStyle(sheet, cell, cell, st); err != nil {
			return err
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeSummarySheet(fx *excelize.File, rep *Report, st ExcelStyles) error {
	res := rep.Result
	if err := writeHeader(fx, summarySheet, []string{"Metric", "Value"}, st.HeaderStyle); err != nil {
		return err
	}
	fx.SetColWidth(summarySheet, "A", "A", 24)
	fx.SetColWidth(summarySheet, "B", "B", 28)

	rows := [][]interface{}{
		{"Run ID", res.RunID},
		{"Symbol", res.Symbol},
		{"Strategy", res.Strategy},
		{"Start", res.StartDate.Format(dateLayout)},
		{"End", res.EndDate.Format(dateLayout)},
		{"Bars", res.Bars},
		{"Warm-up Bars", res.WarmUp},
		{"Capital per Trade", res.Config.CapitalPerTrade},
		{"Slippage (bps)", res.Config.SlippageBps},
		{"Brokerage per Order", res.Config.BrokeragePerOrder},
		{"End of Data", string(res.Config.EndOfData)},
	}
	row := 2
	for _, v := range rows {
		if err := writeRow(fx, summarySheet, row, v, []int{st.LabelStyle}); err != nil {
			return err
		}
		row++
	}

	for _, m := range summaryMetrics(rep.Summary) {
		var value interface{} = notAvailable
		valueStyle := 0
		if m.Value.IsSome() {
			value = m.Value.Unwrap()
			switch m.Format {
			case formatMoney:
				valueStyle = st.CurrencyStyle
			case formatPct, formatRatio:
				valueStyle = st.PercentStyle
			}
		}
		if err := writeRow(fx, summarySheet, row, []interface{}{m.Label, value}, []int{st.LabelStyle, valueStyle}); err != nil {
			return err
		}
		row++
	}

	for _, reason := range rep.Summary.SortedExitReasons() {
		label := "Exits: " + string(reason)
		if err := writeRow(fx, summarySheet, row, []interface{}{label, rep.Summary.ExitReasons[reason]}, []int{st.LabelStyle}); err != nil {
			return err
		}
		row++
	}
	return nil
}

func (r *DefaultExcelReporter) writeTradesSheet(fx *excelize.File, rep *Report, st ExcelStyles) error {
	headers := []string{"#", "Entry Date", "Entry Price", "Exit Date", "Exit Price", "Quantity",
		"Gross PnL", "Costs", "Net PnL", "Return %", "Holding Bars", "Exit Reason"}
	if err := writeHeader(fx, tradesSheet, headers, st.HeaderStyle); err != nil {
		return err
	}
	fx.SetColWidth(tradesSheet, "A", "A", 6)
	fx.SetColWidth(tradesSheet, "B", "K", 14)
	fx.SetColWidth(tradesSheet, "L", "L", 14)

	for i, t := range rep.Result.Trades {
		pnlStyle := st.GreenCurrencyStyle
		if t.NetPnL < 0 {
			pnlStyle = st.RedCurrencyStyle
		}
		values := []interface{}{
			t.Seq, t.EntryDate, t.EntryPrice, t.ExitDate, t.ExitPrice, t.Quantity,
			t.GrossPnL, t.Costs, t.NetPnL, t.ReturnPct, t.HoldingBars, string(t.ExitReason),
		}
		colStyles := []int{0, st.DateStyle, st.CurrencyStyle, st.DateStyle, st.CurrencyStyle, 0,
			st.CurrencyStyle, st.CurrencyStyle, pnlStyle, st.PercentStyle}
		if err := writeRow(fx, tradesSheet, i+2, values, colStyles); err != nil {
			return err
		}
	}

	if n := len(rep.Result.Trades); n > 0 {
		last, _ := excelize.CoordinatesToCellName(len(headers), n+1)
		return fx.AutoFilter(tradesSheet, "A1:"+last, nil)
	}
	return nil
}

func (r *DefaultExcelReporter) writeEquitySheet(fx *excelize.File, rep *Report, st ExcelStyles) error {
	headers := []string{"Date", "Equity", "Realized", "Unrealized", "In Position", "Drawdown", "Drawdown %"}
	if err := writeHeader(fx, equitySheet, headers, st.HeaderStyle); err != nil {
		return err
	}
	fx.SetColWidth(equitySheet, "A", "G", 14)

	for i, p := range rep.Result.Equity {
		dd := rep.Drawdown[i]
		values := []interface{}{p.Date, p.Equity, p.Realized, p.Unrealized, p.InPosition, dd.Drawdown, dd.DrawdownPct}
		colStyles := []int{st.DateStyle, st.CurrencyStyle, st.CurrencyStyle, st.CurrencyStyle, 0, st.CurrencyStyle, st.PercentStyle}
		if err := writeRow(fx, equitySheet, i+2, values, colStyles); err != nil {
			return err
		}
	}

	n := len(rep.Result.Equity)
	if n < 2 {
		return nil
	}
	return fx.AddChart(equitySheet, "I2", &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$B$1", equitySheet),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", equitySheet, n+1),
			Values:     fmt.Sprintf("%s!$B$2:$B$%d", equitySheet, n+1),
		}},
		Title:     []excelize.RichTextRun{{Text: fmt.Sprintf("%s equity", rep.Result.Symbol)}},
		Legend:    excelize.ChartLegend{Position: "none"},
		Dimension: excelize.ChartDimension{Width: 800, Height: 400},
	})
}

func (r *DefaultExcelReporter) writeMonthlySheet(fx *excelize.File, rep *Report, st ExcelStyles) error {
	headers := []string{"Year"}
	for m := time.January; m <= time.December; m++ {
		headers = append(headers, m.String()[:3])
	}
	headers = append(headers, "Year %")
	if err := writeHeader(fx, monthlySheet, headers, st.HeaderStyle); err != nil {
		return err
	}
	fx.SetColWidth(monthlySheet, "A", "N", 9)

	for i, row := range rep.Monthly.Rows {
		values := []interface{}{row.Year}
		colStyles := []int{st.LabelStyle}
		for _, m := range row.Months {
			if m.IsSome() {
				values = append(values, m.Unwrap())
			} else {
				values = append(values, nil)
			}
			colStyles = append(colStyles, st.PercentStyle)
		}
		if row.YearReturn.IsSome() {
			values = append(values, row.YearReturn.Unwrap())
		} else {
			values = append(values, nil)
		}
		colStyles = append(colStyles, st.PercentStyle)

		if err := writeRow(fx, monthlySheet, i+2, values, colStyles); err != nil {
			return err
		}
	}
	return nil
}

func (r *DefaultExcelReporter) writeSkippedSheet(fx *excelize.File, rep *Report, st ExcelStyles) error {
	headers := []string{"Signal Date", "Fill Date", "Price", "Reason"}
	if err := writeHeader(fx, skippedSheet, headers, st.HeaderStyle); err != nil {
		return err
	}
	fx.SetColWidth(skippedSheet, "A", "D", 16)

	for i, s := range rep.Result.Skipped {
		values := []interface{}{s.SignalDate, s.Date, s.Price, string(s.Reason)}
		if err := writeRow(fx, skippedSheet, i+2, values, []int{st.DateStyle, st.DateStyle, st.CurrencyStyle}); err != nil {
			return err
		}
	}
	return nil
}
