package data

import (
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

// DataManager combines loading, locating and filtering of daily bars
type DataManager struct {
	provider DataProvider
	filter   DataFilter
	locator  FileLocator
	logger   *zap.Logger
}

// NewDataManager creates a new data manager with default components
func NewDataManager(logger *zap.Logger) *DataManager {
	return NewDataManagerWithProvider(NewCachedProvider(NewCSVProvider(), logger), logger)
}

// NewDataManagerWithProvider creates a data manager with a custom provider
func NewDataManagerWithProvider(provider DataProvider, logger *zap.Logger) *DataManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataManager{
		provider: provider,
		filter:   NewDefaultDataFilter(),
		locator:  NewDefaultFileLocator(logger),
		logger:   logger,
	}
}

// Range restricts the bars handed to a run. Zero values are open ends and
// a positive Trailing keeps only that span ending at the last bar.
type Range struct {
	From     time.Time
	To       time.Time
	Trailing time.Duration
}

// Load reads path and applies r. The result is non-empty.
func (dm *DataManager) Load(path string, r Range) ([]types.Bar, error) {
	bars, err := dm.provider.LoadData(path)
	if err != nil {
		return nil, err
	}

	bars = dm.filter.FilterByDateRange(bars, r.From, r.To)
	bars = dm.filter.FilterByPeriod(bars, r.Trailing)
	if len(bars) == 0 {
		return nil, bterrors.DataErrorf(component, "load", "no bars in %s for the requested range", path)
	}

	dm.logger.Debug("Bars selected",
		zap.String("file", path),
		zap.Int("bars", len(bars)),
		zap.Time("first", bars[0].Date),
		zap.Time("last", bars[len(bars)-1].Date),
	)
	return bars, nil
}

// LoadSymbol locates the file for symbol under dataRoot and loads it
func (dm *DataManager) LoadSymbol(dataRoot, symbol string, r Range) ([]types.Bar, error) {
	inst, err := types.LookupInstrument(symbol)
	if err != nil {
		return nil, bterrors.Wrap(err, bterrors.KindConfig, component, "locate", "unknown symbol")
	}

	path := dm.locator.FindDataFile(dataRoot, inst.Symbol)
	if path == "" {
		return nil, bterrors.DataErrorf(component, "locate", "no data file for %s under %s", inst.Symbol, dataRoot)
	}
	return dm.Load(path, r)
}

// ValidateData validates loaded data
func (dm *DataManager) ValidateData(bars []types.Bar) error {
	return dm.provider.ValidateData(bars)
}

// trailingUnits is tried in order so longer suffixes win over their tails.
var trailingUnits = []struct {
	suffix string
	days   int
}{
	{"days", 1},
	{"day", 1},
	{"d", 1},
	{"w", 7},
	{"m", 30},
	{"y", 365},
}

// ParseTrailingPeriod parses lookback strings such as "90d", "6m", "5y" or a
// Go duration like "720h". Months are 30 days and years 365.
func ParseTrailingPeriod(s string) (time.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	for _, u := range trailingUnits {
		if !strings.HasSuffix(s, u.suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(s, u.suffix))
		if err != nil || n <= 0 {
			return 0, false
		}
		return time.Duration(n*u.days) * 24 * time.Hour, true
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d, true
	}
	return 0, false
}
