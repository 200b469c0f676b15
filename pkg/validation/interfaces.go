package validation

import (
	"time"

	"github.com/ducminhle1904/eod-backtester/internal/backtest"
	"github.com/ducminhle1904/eod-backtester/internal/performance"
	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

// Package validation re-runs a sweep on in-sample windows and checks the
// winner on the bars that follow

// DataSplitter defines the interface for splitting bars into train/test sets
type DataSplitter interface {
	SplitByRatio(bars []types.Bar, ratio float64) ([]types.Bar, []types.Bar)
	CreateRollingFolds(bars []types.Bar, trainDays, testDays, rollDays int) []Fold
}

// WalkForwardConfig holds the configuration for walk-forward validation
type WalkForwardConfig struct {
	Rolling    bool
	SplitRatio float64
	TrainDays  int
	TestDays   int
	RollDays   int
}

// Walk-forward defaults
const (
	DefaultSplitRatio = 0.7
	DefaultTrainDays  = 730
	DefaultTestDays   = 180
	DefaultRollDays   = 180
)

// DefaultWalkForwardConfig is a 70/30 holdout
func DefaultWalkForwardConfig() WalkForwardConfig {
	return WalkForwardConfig{
		SplitRatio: DefaultSplitRatio,
		TrainDays:  DefaultTrainDays,
		TestDays:   DefaultTestDays,
		RollDays:   DefaultRollDays,
	}
}

// Fold is one train window and the test window right after it
type Fold struct {
	Train      []types.Bar
	Test       []types.Bar
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
}

// FoldResult holds the sweep winner of a fold and how it did on both windows
type FoldResult struct {
	Fold       int
	TrainStart time.Time
	TrainEnd   time.Time
	TestStart  time.Time
	TestEnd    time.Time
	Best       backtest.Variant
	Train      performance.Summary
	Test       performance.Summary
}

// WalkForwardSummary holds the summary of all folds. Returns and drawdowns
// are percentages of the capital per trade.
type WalkForwardSummary struct {
	Rolling              bool
	Folds                []FoldResult
	AverageTrainReturn   float64
	AverageTestReturn    float64
	TrainReturnStdDev    float64
	TestReturnStdDev     float64
	AverageTrainDrawdown float64
	AverageTestDrawdown  float64
	ReturnDegradation    float64
	IsRobust             bool
	OverfittingRisk      string
}
