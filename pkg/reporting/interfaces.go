package reporting

import "io"

// Package reporting renders run results to the console and to files

// ConsoleReporter defines interface for console output
type ConsoleReporter interface {
	PrintSummary(w io.Writer, rep *Report)
	PrintTrades(w io.Writer, rep *Report, limit int)
	PrintMonthly(w io.Writer, rep *Report)
	PrintSweep(w io.Writer, rows []SweepRow, top int)
}

// FileReporter defines interface for file output
type FileReporter interface {
	WriteTradesCSV(rep *Report, path string) error
	WriteEquityCSV(rep *Report, path string) error
	WriteXLSX(rep *Report, path string) error
	WriteSummaryJSON(rep *Report, path string) error
}

// PathManager defines interface for output path management
type PathManager interface {
	OutputDir(root, symbol, strategy string) string
	EnsureDirectoryExists(path string) error
}

// ExcelStyles holds Excel formatting styles
type ExcelStyles struct {
	HeaderStyle        int
	DateStyle          int
	CurrencyStyle      int
	PercentStyle       int
	RedCurrencyStyle   int
	GreenCurrencyStyle int
	LabelStyle         int
}

// ReportingConfig holds configuration for reporting
type ReportingConfig struct {
	EnableConsole   bool
	EnableFiles     bool
	OutputDirectory string
	ExcelEnabled    bool
	CSVEnabled      bool
	JSONEnabled     bool
	// TradeRows caps the console trade table; 0 prints every trade
	TradeRows int
}
