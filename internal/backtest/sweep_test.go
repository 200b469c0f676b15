package backtest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
	"github.com/ducminhle1904/eod-backtester/internal/rules"
)

func sweepVariants(n int) []Variant {
	variants := make([]Variant, 0, n)
	for i := 0; i < n; i++ {
		fast := 3 + i
		variants = append(variants, Variant{
			Index:    i,
			Name:     fmt.Sprintf("fast=%d", fast),
			Symbol:   "NIFTY",
			Params:   map[string]float64{"fast": float64(fast)},
			Config:   DefaultConfig(),
			Strategy: smaCross(fast, 30),
		})
	}
	return variants
}

func TestSweep_OrderedAndMatchesSingleRuns(t *testing.T) {
	bars := barsFromCloses(generateWave(300)...)
	variants := sweepVariants(8)

	var calls atomic.Int32
	results, err := Sweep(context.Background(), bars, variants, 3, WithProgress(func(done, total int) {
		calls.Add(1)
		assert.LessOrEqual(t, done, total)
	}))
	require.NoError(t, err)
	require.Len(t, results, len(variants))
	assert.Equal(t, int32(len(variants)), calls.Load())

	for i, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, i, res.Variant.Index)
		assert.NotEmpty(t, res.ID)

		single, err := mustEngine(t, DefaultConfig()).Run("NIFTY", bars, variants[i].Strategy)
		require.NoError(t, err)
		assert.Equal(t, single.Trades, res.Result.Trades, "variant %d", i)
	}
}

func TestSweep_DoesNotMutateInput(t *testing.T) {
	bars := barsFromCloses(generateWave(120)...)
	before := append(bars[:0:0], bars...)

	_, err := Sweep(context.Background(), bars, sweepVariants(4), 4)
	require.NoError(t, err)
	assert.Equal(t, before, bars)
}

func TestSweep_FailingVariantIsReported(t *testing.T) {
	bars := barsFromCloses(generateWave(120)...)
	variants := sweepVariants(3)
	variants[1].Config.CapitalPerTrade = 0
	variants[2].Strategy = rules.Strategy{}

	var failed atomic.Int32
	results, err := Sweep(context.Background(), bars, variants, 2, WithResultHook(func(res JobResult) {
		if res.Err != nil {
			failed.Add(1)
		}
	}))
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, int32(2), failed.Load())

	assert.NoError(t, results[0].Err)
	assert.True(t, bterrors.IsKind(results[1].Err, bterrors.KindConfig))
	assert.True(t, bterrors.IsKind(results[2].Err, bterrors.KindConfig))
}

func TestSweep_InputErrors(t *testing.T) {
	_, err := Sweep(context.Background(), nil, sweepVariants(1), 1)
	assert.True(t, bterrors.IsKind(err, bterrors.KindData))

	_, err = Sweep(context.Background(), barsFromCloses(1, 2, 3), nil, 1)
	assert.True(t, bterrors.IsKind(err, bterrors.KindConfig))
}

func TestSweep_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := Sweep(ctx, barsFromCloses(generateWave(100)...), sweepVariants(5), 2)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, len(results), 5)
}

func TestProgressTracker(t *testing.T) {
	pt := NewProgressTracker(4)
	assert.Equal(t, int64(0), int64(pt.EstimateTimeRemaining()))

	pt.Increment(false)
	pt.Increment(true)

	done, failed, total, _ := pt.GetProgress()
	assert.Equal(t, 2, done)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 4, total)
}
