package backtest

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
	"github.com/ducminhle1904/eod-backtester/internal/monitoring"
	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

// SweepOption configures Sweep.
type SweepOption func(*sweepOptions)

type sweepOptions struct {
	logger     *zap.Logger
	onProgress func(done, total int)
	onResult   func(JobResult)
}

// WithSweepLogger sets the logger used by the pool and every engine.
func WithSweepLogger(l *zap.Logger) SweepOption {
	return func(o *sweepOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithProgress is called after each finished variant.
func WithProgress(fn func(done, total int)) SweepOption {
	return func(o *sweepOptions) {
		o.onProgress = fn
	}
}

// WithResultHook is called with every finished variant, in completion order.
func WithResultHook(fn func(JobResult)) SweepOption {
	return func(o *sweepOptions) {
		o.onResult = fn
	}
}

// Sweep runs every variant against bars on a worker pool. Each job gets its
// own copy of the bars and its own engine. Results come back ordered by
// variant index whatever order the workers finish in. A failing variant is
// reported in its JobResult and does not stop the others.
func Sweep(ctx context.Context, bars []types.Bar, variants []Variant, workers int, opts ...SweepOption) ([]JobResult, error) {
	o := sweepOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	if len(bars) == 0 {
		return nil, bterrors.NewDataError("sweep", "run", "no bars to backtest")
	}
	if len(variants) == 0 {
		return nil, bterrors.NewConfigError("sweep", "run", "no variants to run")
	}

	pool := NewWorkerPool(ctx, workers, len(variants), o.logger)
	pool.Start()

	submitted := 0
	for _, v := range variants {
		job := Job{
			ID:      uuid.NewString(),
			Variant: v,
			Bars:    types.CopyBars(bars),
		}
		if err := pool.SubmitJob(job); err != nil {
			break
		}
		submitted++
	}

	tracker := NewProgressTracker(submitted)
	results := make([]JobResult, 0, submitted)

collect:
	for len(results) < submitted {
		select {
		case res, ok := <-pool.Results():
			if !ok {
				break collect
			}
			results = append(results, res)
			tracker.Increment(res.Err != nil)

			outcome := "ok"
			if res.Err != nil {
				outcome = "error"
				o.logger.Warn("Sweep variant failed",
					zap.Int("variant", res.Variant.Index),
					zap.String("name", res.Variant.Name),
					zap.Error(res.Err),
				)
			}
			monitoring.RecordSweepVariant(outcome)
			o.logger.Debug("Sweep progress",
				zap.Int("done", len(results)),
				zap.Int("total", submitted),
				zap.Duration("eta", tracker.EstimateTimeRemaining()),
			)

			if o.onResult != nil {
				o.onResult(res)
			}
			if o.onProgress != nil {
				o.onProgress(len(results), submitted)
			}
		case <-ctx.Done():
			break collect
		}
	}
	pool.Stop()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Variant.Index < results[j].Variant.Index
	})

	done, failed, total, elapsed := tracker.GetProgress()
	o.logger.Info("Sweep finished",
		zap.Int("completed", done),
		zap.Int("failed", failed),
		zap.Int("total", total),
		zap.Duration("elapsed", elapsed),
	)

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}
