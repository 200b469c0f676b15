package validation

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/ducminhle1904/eod-backtester/internal/backtest"
	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
	"github.com/ducminhle1904/eod-backtester/internal/performance"
	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

const component = "walk-forward"

// Degradation thresholds, in percent of the train return
const (
	highRiskDegradation     = 30
	moderateRiskDegradation = 15
)

// Selector picks the winner of a finished sweep.
type Selector func(results []backtest.JobResult) (backtest.JobResult, bool)

// DefaultWalkForwardValidator implements walk-forward validation of a sweep
type DefaultWalkForwardValidator struct {
	splitter DataSplitter
	selector Selector
	workers  int
	logger   *zap.Logger
}

// Option configures the validator
type Option func(*DefaultWalkForwardValidator)

// WithWorkers sets the sweep parallelism used on every train window
func WithWorkers(n int) Option {
	return func(v *DefaultWalkForwardValidator) {
		v.workers = n
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(v *DefaultWalkForwardValidator) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithSplitter replaces the default splitter
func WithSplitter(s DataSplitter) Option {
	return func(v *DefaultWalkForwardValidator) {
		if s != nil {
			v.splitter = s
		}
	}
}

// NewDefaultWalkForwardValidator creates a new walk-forward validator
func NewDefaultWalkForwardValidator(selector Selector, opts ...Option) *DefaultWalkForwardValidator {
	v := &DefaultWalkForwardValidator{
		splitter: NewDefaultDataSplitter(),
		selector: selector,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate sweeps variants on each train window and runs the winner on the
// following test window.
func (v *DefaultWalkForwardValidator) Validate(ctx context.Context, variants []backtest.Variant, bars []types.Bar, cfg WalkForwardConfig) (*WalkForwardSummary, error) {
	if len(variants) == 0 {
		return nil, bterrors.NewConfigError(component, "validate", "no variants to validate")
	}
	if v.selector == nil {
		return nil, bterrors.NewConfigError(component, "validate", "no selector")
	}

	folds, err := v.folds(bars, cfg)
	if err != nil {
		return nil, err
	}
	v.logger.Info("Walk-forward started",
		zap.Bool("rolling", cfg.Rolling),
		zap.Int("folds", len(folds)),
		zap.Int("variants", len(variants)),
	)

	results := make([]FoldResult, 0, len(folds))
	for i, fold := range folds {
		res, err := v.runFold(ctx, i+1, fold, variants)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	summary := calculateSummary(results)
	summary.Rolling = cfg.Rolling
	return summary, nil
}

func (v *DefaultWalkForwardValidator) folds(bars []types.Bar, cfg WalkForwardConfig) ([]Fold, error) {
	if cfg.Rolling {
		folds := v.splitter.CreateRollingFolds(bars, cfg.TrainDays, cfg.TestDays, cfg.RollDays)
		if len(folds) == 0 {
			return nil, bterrors.DataErrorf(component, "split",
				"not enough data for rolling walk-forward: %d bars, train %d days, test %d days",
				len(bars), cfg.TrainDays, cfg.TestDays)
		}
		return folds, nil
	}

	train, test := v.splitter.SplitByRatio(bars, cfg.SplitRatio)
	if len(train) < minTrainBars || len(test) < minTestBars {
		return nil, bterrors.DataErrorf(component, "split",
			"not enough data for a %.0f/%.0f holdout: %d bars", cfg.SplitRatio*100, (1-cfg.SplitRatio)*100, len(bars))
	}
	return []Fold{{
		Train:      train,
		Test:       test,
		TrainStart: train[0].Date,
		TrainEnd:   train[len(train)-1].Date,
		TestStart:  test[0].Date,
		TestEnd:    test[len(test)-1].Date,
	}}, nil
}

func (v *DefaultWalkForwardValidator) runFold(ctx context.Context, n int, fold Fold, variants []backtest.Variant) (FoldResult, error) {
	jobs, err := backtest.Sweep(ctx, fold.Train, variants, v.workers, backtest.WithSweepLogger(v.logger))
	if err != nil {
		return FoldResult{}, err
	}
	best, ok := v.selector(jobs)
	if !ok || best.Result == nil {
		return FoldResult{}, bterrors.ComputeErrorf(component, "fold", "fold %d: no variant finished on the train window", n)
	}

	test, err := v.outOfSample(best.Variant, fold)
	if err != nil {
		return FoldResult{}, err
	}

	res := FoldResult{
		Fold:       n,
		TrainStart: fold.TrainStart,
		TrainEnd:   fold.TrainEnd,
		TestStart:  fold.TestStart,
		TestEnd:    fold.TestEnd,
		Best:       best.Variant,
		Train:      performance.Analyze(best.Result.Trades, best.Result.Equity),
		Test:       test,
	}
	v.logger.Info("Fold finished",
		zap.Int("fold", n),
		zap.String("best", best.Variant.Name),
		zap.Float64("train_return_pct", res.Train.TotalReturnPct.TakeOr(0)),
		zap.Float64("test_return_pct", res.Test.TotalReturnPct.TakeOr(0)),
	)
	return res, nil
}

// outOfSample runs variant on the test window. The last warm-up bars of the
// train window are prepended so indicators are ready on the first test bar;
// no entry can be scheduled before the test window starts.
func (v *DefaultWalkForwardValidator) outOfSample(variant backtest.Variant, fold Fold) (performance.Summary, error) {
	lead := min(variant.Strategy.WarmUp(), len(fold.Train))
	window := make([]types.Bar, 0, lead+len(fold.Test))
	window = append(window, fold.Train[len(fold.Train)-lead:]...)
	window = append(window, fold.Test...)

	engine, err := backtest.NewEngine(variant.Config, backtest.WithLogger(v.logger))
	if err != nil {
		return performance.Summary{}, err
	}
	res, err := engine.Run(variant.Symbol, window, variant.Strategy)
	if err != nil {
		return performance.Summary{}, err
	}

	equity := res.Equity[:0:0]
	for _, p := range res.Equity {
		if !p.Date.Before(fold.TestStart) {
			equity = append(equity, p)
		}
	}
	return performance.Analyze(res.Trades, equity), nil
}

// calculateSummary averages the folds and grades the train to test decay
func calculateSummary(results []FoldResult) *WalkForwardSummary {
	if len(results) == 0 {
		return &WalkForwardSummary{}
	}

	var trainReturns, testReturns []float64
	var trainDrawdowns, testDrawdowns []float64
	for _, r := range results {
		trainReturns = append(trainReturns, r.Train.TotalReturnPct.TakeOr(0))
		testReturns = append(testReturns, r.Test.TotalReturnPct.TakeOr(0))
		trainDrawdowns = append(trainDrawdowns, r.Train.MaxDrawdownPct)
		testDrawdowns = append(testDrawdowns, r.Test.MaxDrawdownPct)
	}

	avgTrainReturn := average(trainReturns)
	avgTestReturn := average(testReturns)
	degradation := ((avgTrainReturn - avgTestReturn) / math.Max(0.01, math.Abs(avgTrainReturn))) * 100

	risk := "LOW"
	switch {
	case degradation > highRiskDegradation:
		risk = "HIGH"
	case degradation > moderateRiskDegradation:
		risk = "MODERATE"
	}

	return &WalkForwardSummary{
		Folds:                results,
		AverageTrainReturn:   avgTrainReturn,
		AverageTestReturn:    avgTestReturn,
		TrainReturnStdDev:    stdDev(trainReturns),
		TestReturnStdDev:     stdDev(testReturns),
		AverageTrainDrawdown: average(trainDrawdowns),
		AverageTestDrawdown:  average(testDrawdowns),
		ReturnDegradation:    degradation,
		IsRobust:             degradation <= highRiskDegradation,
		OverfittingRisk:      risk,
	}
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}

	avg := average(values)
	sumSquares := 0.0
	for _, v := range values {
		diff := v - avg
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(values)-1))
}
