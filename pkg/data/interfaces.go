package data

import (
	"time"

	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

// DataProvider interface for loading historical daily bars
type DataProvider interface {
	// LoadData loads bars from the specified source
	LoadData(source string) ([]types.Bar, error)

	// ValidateData validates the integrity of the loaded bars
	ValidateData(bars []types.Bar) error

	// GetName returns the name of the data provider
	GetName() string
}

// DataCache interface for caching loaded bars
type DataCache interface {
	Get(key string) ([]types.Bar, bool)
	Set(key string, bars []types.Bar)
	Clear()
	Size() int
}

// DataFilter interface for filtering bars
type DataFilter interface {
	// FilterByPeriod keeps the trailing period ending at the last bar
	FilterByPeriod(bars []types.Bar, period time.Duration) []types.Bar

	// FilterByDateRange keeps bars within [start, end]; zero bounds are open
	FilterByDateRange(bars []types.Bar, start, end time.Time) []types.Bar

	// ValidateTimeSequence ensures dates are strictly increasing
	ValidateTimeSequence(bars []types.Bar) error
}

// FileLocator finds the data file for an instrument under a data root
type FileLocator interface {
	FindDataFile(dataRoot, symbol string) string
}

// CSVColumnMapping defines the column positions for a CSV layout
type CSVColumnMapping struct {
	Name       string
	DateCol    int
	OpenCol    int
	HighCol    int
	LowCol     int
	CloseCol   int
	VolumeCol  int // -1 when the file has no volume
	MinColumns int
	DateFormat string // empty tries DateLayouts
}

// DateLayouts are tried in order when a mapping has no fixed DateFormat.
var DateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05-07:00",
	"02-01-2006",
	"02-Jan-2006",
}

// Predefined CSV formats
var (
	// Date,Open,High,Low,Close,Volume
	DefaultCSVFormat = CSVColumnMapping{
		Name:       "default",
		DateCol:    0,
		OpenCol:    1,
		HighCol:    2,
		LowCol:     3,
		CloseCol:   4,
		VolumeCol:  5,
		MinColumns: 5,
	}

	// Date,Open,High,Low,Close,Adj Close,Volume as exported by Yahoo Finance
	YahooCSVFormat = CSVColumnMapping{
		Name:       "yahoo",
		DateCol:    0,
		OpenCol:    1,
		HighCol:    2,
		LowCol:     3,
		CloseCol:   4,
		VolumeCol:  6,
		MinColumns: 5,
	}
)
