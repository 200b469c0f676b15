package validation

import (
	"time"

	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

// Fold size limits, in bars
const (
	minRollingBars = 100
	minTrainBars   = 50
	minTestBars    = 10
)

// DefaultDataSplitter implements the DataSplitter interface
type DefaultDataSplitter struct{}

// NewDefaultDataSplitter creates a new default data splitter
func NewDefaultDataSplitter() *DefaultDataSplitter {
	return &DefaultDataSplitter{}
}

// SplitByRatio puts the first ratio of the bars in train and the rest in
// test. An unusable ratio returns everything as train.
func (s *DefaultDataSplitter) SplitByRatio(bars []types.Bar, ratio float64) ([]types.Bar, []types.Bar) {
	if ratio <= 0 || ratio >= 1 {
		return bars, nil
	}

	n := int(float64(len(bars)) * ratio)
	if n < 1 || n >= len(bars) {
		return bars, nil
	}

	return bars[:n], bars[n:]
}

// CreateRollingFolds slides a calendar train window followed by a test
// window across the bars, rolling the start forward by rollDays.
func (s *DefaultDataSplitter) CreateRollingFolds(bars []types.Bar, trainDays, testDays, rollDays int) []Fold {
	var folds []Fold

	if len(bars) < minRollingBars || trainDays <= 0 || testDays <= 0 || rollDays <= 0 {
		return folds
	}

	trainDur := days(trainDays)
	testDur := days(testDays)
	rollDur := days(rollDays)

	start := 0
	for {
		trainEndTs := bars[start].Date.Add(trainDur)
		trainEnd := start
		for trainEnd < len(bars) && bars[trainEnd].Date.Before(trainEndTs) {
			trainEnd++
		}

		testEndTs := trainEndTs.Add(testDur)
		testEnd := trainEnd
		for testEnd < len(bars) && bars[testEnd].Date.Before(testEndTs) {
			testEnd++
		}

		if trainEnd-start < minTrainBars || testEnd-trainEnd < minTestBars {
			break
		}

		folds = append(folds, Fold{
			Train:      bars[start:trainEnd],
			Test:       bars[trainEnd:testEnd],
			TrainStart: bars[start].Date,
			TrainEnd:   bars[trainEnd-1].Date,
			TestStart:  bars[trainEnd].Date,
			TestEnd:    bars[testEnd-1].Date,
		})

		nextStartTs := bars[start].Date.Add(rollDur)
		nextStart := start
		for nextStart < len(bars) && bars[nextStart].Date.Before(nextStartTs) {
			nextStart++
		}
		if nextStart <= start {
			nextStart = start + 1
		}
		if nextStart >= len(bars) {
			break
		}
		start = nextStart
	}

	return folds
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
