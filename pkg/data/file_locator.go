package data

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

// DefaultFileLocator implements FileLocator for the local data directory
type DefaultFileLocator struct {
	logger *zap.Logger
}

// NewDefaultFileLocator creates a new default file locator
func NewDefaultFileLocator(logger *zap.Logger) *DefaultFileLocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultFileLocator{logger: logger}
}

// CandidatePaths lists where the daily file of symbol may live, in the order
// they are tried. Both the canonical symbol and the Yahoo ticker are used:
//
//	{root}/NIFTY.csv, {root}/NIFTY/daily.csv, {root}/nsei.csv, ...
func (f *DefaultFileLocator) CandidatePaths(dataRoot, symbol string) []string {
	names := []string{strings.ToUpper(strings.TrimSpace(symbol))}
	if inst, err := types.LookupInstrument(symbol); err == nil {
		names = []string{inst.Symbol, strings.TrimPrefix(inst.YahooTicker, "^")}
	}

	var paths []string
	for _, name := range names {
		for _, n := range []string{name, strings.ToLower(name)} {
			paths = append(paths,
				filepath.Join(dataRoot, n+".csv"),
				filepath.Join(dataRoot, n, "daily.csv"),
			)
		}
	}
	return paths
}

// FindDataFile returns the first existing candidate path, or "" if none exists
func (f *DefaultFileLocator) FindDataFile(dataRoot, symbol string) string {
	paths := f.CandidatePaths(dataRoot, symbol)
	for _, path := range paths {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}

	f.logger.Warn("No data file found",
		zap.String("symbol", symbol),
		zap.Strings("tried", paths),
	)
	return ""
}
