package backtest

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ducminhle1904/eod-backtester/internal/rules"
	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

// WorkerPool manages parallel backtest execution
type WorkerPool struct {
	workerCount int
	jobQueue    chan Job
	resultQueue chan JobResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	logger      *zap.Logger
}

// Variant is one strategy/config combination of a sweep.
type Variant struct {
	Index    int
	Name     string
	Symbol   string
	Params   map[string]float64
	Config   Config
	Strategy rules.Strategy
}

// Job represents a single backtest task. Bars are owned by the job.
type Job struct {
	ID      string
	Variant Variant
	Bars    []types.Bar
}

// JobResult represents the result of a backtest job
type JobResult struct {
	ID       string
	Variant  Variant
	Result   *Result
	Duration time.Duration
	Err      error
}

// NewWorkerPool creates a new worker pool for parallel backtesting
func NewWorkerPool(parent context.Context, workerCount int, jobBufferSize int, logger *zap.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(parent)

	return &WorkerPool{
		workerCount: workerCount,
		jobQueue:    make(chan Job, jobBufferSize),
		resultQueue: make(chan JobResult, jobBufferSize),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Start starts the worker pool
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop stops the worker pool gracefully
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// SubmitJob submits a backtest job to the pool
func (wp *WorkerPool) SubmitJob(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Results returns the result channel for collecting completed jobs
func (wp *WorkerPool) Results() <-chan JobResult {
	return wp.resultQueue
}

// worker processes backtest jobs
func (wp *WorkerPool) worker(workerID int) {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}

			result := wp.processJob(job)

			select {
			case wp.resultQueue <- result:
			case <-wp.ctx.Done():
				return
			}

		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob runs one variant on its own engine
func (wp *WorkerPool) processJob(job Job) JobResult {
	startTime := time.Now()

	result := JobResult{
		ID:      job.ID,
		Variant: job.Variant,
	}

	engine, err := NewEngine(job.Variant.Config, WithLogger(wp.logger), WithMetrics(true))
	if err != nil {
		result.Err = err
		result.Duration = time.Since(startTime)
		return result
	}

	result.Result, result.Err = engine.Run(job.Variant.Symbol, job.Bars, job.Variant.Strategy)
	result.Duration = time.Since(startTime)

	return result
}

// ProgressTracker tracks the progress of batch processing
type ProgressTracker struct {
	total     int
	completed int
	failed    int
	startTime time.Time
	mutex     sync.RWMutex
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{
		total:     total,
		startTime: time.Now(),
	}
}

// Increment increments the completion count
func (pt *ProgressTracker) Increment(failed bool) {
	pt.mutex.Lock()
	defer pt.mutex.Unlock()
	pt.completed++
	if failed {
		pt.failed++
	}
}

// GetProgress returns completed, failed, total and the elapsed time
func (pt *ProgressTracker) GetProgress() (int, int, int, time.Duration) {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	return pt.completed, pt.failed, pt.total, time.Since(pt.startTime)
}

// EstimateTimeRemaining estimates the remaining time based on current progress
func (pt *ProgressTracker) EstimateTimeRemaining() time.Duration {
	pt.mutex.RLock()
	defer pt.mutex.RUnlock()

	if pt.completed == 0 {
		return 0
	}

	elapsed := time.Since(pt.startTime)
	avgTimePerItem := elapsed / time.Duration(pt.completed)
	remaining := pt.total - pt.completed

	return avgTimePerItem * time.Duration(remaining)
}
