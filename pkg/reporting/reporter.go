package reporting

import (
	"io"
	"path/filepath"

	"go.uber.org/zap"
)

// DefaultReporter implements every output format
type DefaultReporter struct {
	*DefaultConsoleReporter
	*DefaultCSVReporter
	*DefaultExcelReporter
	*DefaultJSONFormatter
	*DefaultPathManager
}

// NewDefaultReporter creates a new default reporter with all functionality
func NewDefaultReporter() *DefaultReporter {
	return &DefaultReporter{
		DefaultConsoleReporter: NewDefaultConsoleReporter(),
		DefaultCSVReporter:     NewDefaultCSVReporter(),
		DefaultExcelReporter:   NewDefaultExcelReporter(),
		DefaultJSONFormatter:   NewDefaultJSONFormatter(),
		DefaultPathManager:     NewDefaultPathManager(),
	}
}

var (
	_ ConsoleReporter = (*DefaultReporter)(nil)
	_ FileReporter    = (*DefaultReporter)(nil)
	_ PathManager     = (*DefaultReporter)(nil)
)

// Output file names inside a run directory
const (
	TradesCSVFile   = "trades.csv"
	EquityCSVFile   = "equity.csv"
	WorkbookFile    = "backtest.xlsx"
	SummaryJSONFile = "summary.json"
	SweepCSVFile    = "sweep.csv"
)

// ReportingManager writes a run's outputs according to its configuration
type ReportingManager struct {
	reporter *DefaultReporter
	config   ReportingConfig
	out      io.Writer
	logger   *zap.Logger
}

// NewReportingManager creates a new reporting manager. Console output goes
// to out.
func NewReportingManager(config ReportingConfig, out io.Writer, logger *zap.Logger) *ReportingManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportingManager{
		reporter: NewDefaultReporter(),
		config:   config,
		out:      out,
		logger:   logger,
	}
}

// ReportResults prints and writes rep, returning the files created
func (m *ReportingManager) ReportResults(rep *Report) ([]string, error) {
	if m.config.EnableConsole {
		m.reporter.PrintSummary(m.out, rep)
		m.reporter.PrintTrades(m.out, rep, m.config.TradeRows)
		m.reporter.PrintMonthly(m.out, rep)
	}
	if !m.config.EnableFiles {
		return nil, nil
	}

	dir := m.reporter.OutputDir(m.config.OutputDirectory, rep.Result.Symbol, rep.Result.Strategy)
	var written []string
	write := func(name string, fn func(*Report, string) error) error {
		path := filepath.Join(dir, name)
		if err := fn(rep, path); err != nil {
			return err
		}
		written = append(written, path)
		m.logger.Info("Report written", zap.String("path", path))
		return nil
	}

	if m.config.CSVEnabled {
		if err := write(TradesCSVFile, m.reporter.WriteTradesCSV); err != nil {
			return written, err
		}
		if err := write(EquityCSVFile, m.reporter.WriteEquityCSV); err != nil {
			return written, err
		}
	}
	if m.config.ExcelEnabled {
		if err := write(WorkbookFile, m.reporter.WriteXLSX); err != nil {
			return written, err
		}
	}
	if m.config.JSONEnabled {
		if err := write(SummaryJSONFile, m.reporter.WriteSummaryJSON); err != nil {
			return written, err
		}
	}
	return written, nil
}

// ReportSweep prints the ranking and writes sweep.csv under dir
func (m *ReportingManager) ReportSweep(rows []SweepRow, top int, dir string) (string, error) {
	if m.config.EnableConsole {
		m.reporter.PrintSweep(m.out, rows, top)
	}
	if !m.config.EnableFiles {
		return "", nil
	}

	path := filepath.Join(dir, SweepCSVFile)
	if err := WriteSweepCSV(rows, path); err != nil {
		return "", err
	}
	m.logger.Info("Sweep report written", zap.String("path", path))
	return path, nil
}
