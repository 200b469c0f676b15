package backtest

import (
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
	"github.com/ducminhle1904/eod-backtester/internal/indicators"
	"github.com/ducminhle1904/eod-backtester/internal/monitoring"
	"github.com/ducminhle1904/eod-backtester/internal/rules"
	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

const component = "engine"

// Result is everything a single run produces.
type Result struct {
	RunID    string
	Symbol   string
	Strategy string
	Config   Config

	Trades  []Trade
	Skipped []SkippedEntry
	Equity  []EquityPoint
	// OpenPosition is set only under the Exclude policy when a position
	// survives the last bar. Under ForceClose it is always nil.
	OpenPosition *Position

	Bars      int
	WarmUp    int
	StartDate time.Time
	EndDate   time.Time
	Duration  time.Duration
}

// Engine runs one strategy over one instrument's bars. An Engine holds no
// per-run state and may be reused sequentially.
type Engine struct {
	cfg     Config
	logger  *zap.Logger
	metrics bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics enables Prometheus recording of runs and trades.
func WithMetrics(enabled bool) Option {
	return func(e *Engine) {
		e.metrics = enabled
	}
}

// NewEngine validates cfg and builds an engine.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.EndOfData = cfg.policy()

	e := &Engine{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Run computes the indicators the strategy needs and runs it over bars.
func (e *Engine) Run(symbol string, bars []types.Bar, strategy rules.Strategy) (*Result, error) {
	if len(bars) == 0 {
		return nil, e.fail(symbol, bterrors.NewDataError(component, "run", "no bars to backtest"))
	}
	if err := strategy.Validate(); err != nil {
		return nil, e.fail(symbol, bterrors.Wrap(err, bterrors.KindConfig, component, "run", "invalid strategy"))
	}

	set, err := indicators.Compute(bars, strategy.Specs())
	if err != nil {
		return nil, e.fail(symbol, bterrors.Wrap(err, bterrors.KindConfig, component, "run", "indicator computation failed"))
	}
	return e.RunWithSeries(symbol, bars, strategy, set)
}

// RunWithSeries runs the strategy against precomputed series. Every series
// must be aligned with bars.
func (e *Engine) RunWithSeries(symbol string, bars []types.Bar, strategy rules.Strategy, set indicators.Set) (*Result, error) {
	started := time.Now()

	if len(bars) == 0 {
		return nil, e.fail(symbol, bterrors.NewDataError(component, "run", "no bars to backtest"))
	}
	ctx, err := rules.NewContext(bars, set)
	if err != nil {
		return nil, e.fail(symbol, bterrors.Wrap(err, bterrors.KindConfig, component, "run", "series not aligned with bars"))
	}
	if err := ctx.Require(strategy.Specs()); err != nil {
		return nil, e.fail(symbol, bterrors.Wrap(err, bterrors.KindConfig, component, "run", "strategy references a missing series"))
	}

	r := &run{
		engine:   e,
		symbol:   symbol,
		strategy: strategy,
		ctx:      ctx,
		bars:     bars,
		result: &Result{
			RunID:     uuid.NewString(),
			Symbol:    symbol,
			Strategy:  strategy.Name,
			Config:    e.cfg,
			Trades:    make([]Trade, 0),
			Skipped:   make([]SkippedEntry, 0),
			Equity:    make([]EquityPoint, 0, len(bars)),
			Bars:      len(bars),
			WarmUp:    strategy.WarmUp(),
			StartDate: bars[0].Date,
			EndDate:   bars[len(bars)-1].Date,
		},
	}

	if err := r.loop(); err != nil {
		return nil, e.fail(symbol, err)
	}
	r.finish()

	r.result.Duration = time.Since(started)
	if e.metrics {
		monitoring.RecordRun(symbol, "ok", r.result.Duration)
	}
	e.logger.Info("Backtest finished",
		zap.String("symbol", symbol),
		zap.String("strategy", strategy.Name),
		zap.Int("bars", len(bars)),
		zap.Int("trades", len(r.result.Trades)),
		zap.Int("skipped", len(r.result.Skipped)),
		zap.Duration("elapsed", r.result.Duration),
	)
	return r.result, nil
}

func (e *Engine) fail(symbol string, err error) error {
	kind, _ := bterrors.KindOf(err)
	if e.metrics {
		monitoring.RecordRun(symbol, string(kind), 0)
		monitoring.RecordError(string(kind))
	}
	e.logger.Error("Backtest failed", zap.String("symbol", symbol), zap.Error(err))
	return err
}

// run is the mutable state of one backtest.
type run struct {
	engine   *Engine
	symbol   string
	strategy rules.Strategy
	ctx      *rules.Context
	bars     []types.Bar

	position *Position
	pending  *pendingOrder
	realized float64
	seq      int

	result *Result
}

func (r *run) state() PositionState {
	if r.position != nil {
		return Long
	}
	return Flat
}

func (r *run) loop() error {
	n := len(r.bars)
	warmUp := r.result.WarmUp

	for t := 0; t < n; t++ {
		if r.pending != nil {
			if err := r.execute(t); err != nil {
				return err
			}
		}

		r.mark(t)

		if t == n-1 {
			break
		}
		if t < warmUp {
			continue
		}

		switch r.state() {
		case Long:
			if r.pending != nil {
				// exit already waiting for a fillable open
				continue
			}
			if reason, ok := r.exitReason(t); ok {
				if err := r.schedule(pendingOrder{action: OrderExit, signalIndex: t, reason: reason}); err != nil {
					return err
				}
			}
		case Flat:
			if r.strategy.Entry.Signal(r.ctx, t) && r.bars[t].Close > 0 {
				if t == n-2 && r.engine.cfg.policy() == ForceClose {
					// force_close would book the fill and its exit on the same bar
					r.skip(&pendingOrder{action: OrderEnter, signalIndex: t}, n-1, r.bars[n-1].Open, SkipNoExitBar)
					continue
				}
				if err := r.schedule(pendingOrder{action: OrderEnter, signalIndex: t}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (r *run) schedule(order pendingOrder) error {
	if r.pending != nil {
		return bterrors.ComputeErrorf(component, "schedule", "%s order at bar %d while %s order from bar %d is pending",
			order.action, order.signalIndex, r.pending.action, r.pending.signalIndex)
	}
	if order.action == OrderEnter && r.state() == Long {
		return bterrors.ComputeErrorf(component, "schedule", "entry at bar %d while already long", order.signalIndex)
	}
	if order.action == OrderExit && r.state() == Flat {
		return bterrors.ComputeErrorf(component, "schedule", "exit at bar %d while flat", order.signalIndex)
	}
	r.pending = &order
	return nil
}

// execute fills the pending order at open(t).
func (r *run) execute(t int) error {
	order := r.pending
	bar := r.bars[t]
	cfg := r.engine.cfg

	switch order.action {
	case OrderEnter:
		r.pending = nil
		if r.state() == Long {
			return bterrors.ComputeErrorf(component, "execute", "entry fill at bar %d while already long", t)
		}

		if !(bar.Open > 0) {
			r.skip(order, t, bar.Open, SkipNonPositivePrice)
			return nil
		}
		fill := bar.Open * (1 + cfg.slippage())
		qty := int(math.Floor(cfg.CapitalPerTrade / fill))
		if qty < 1 {
			r.skip(order, t, fill, SkipZeroQuantity)
			return nil
		}

		r.position = &Position{
			Symbol:     r.symbol,
			Side:       SideLong,
			EntryDate:  bar.Date,
			EntryIndex: t,
			EntryPrice: fill,
			Quantity:   qty,
			EntryCost:  cfg.BrokeragePerOrder,
		}
		r.engine.logger.Debug("Entered position",
			zap.String("symbol", r.symbol),
			zap.Time("date", bar.Date),
			zap.Float64("price", fill),
			zap.Int("qty", qty),
		)

	case OrderExit:
		if r.state() == Flat {
			r.pending = nil
			return bterrors.ComputeErrorf(component, "execute", "exit fill at bar %d while flat", t)
		}
		if !(bar.Open > 0) {
			// stays pending until an open can be filled
			return nil
		}
		r.pending = nil
		r.close(t, bar.Open*(1-cfg.slippage()), order.reason)
	}
	return nil
}

func (r *run) skip(order *pendingOrder, t int, price float64, reason SkipReason) {
	r.result.Skipped = append(r.result.Skipped, SkippedEntry{
		SignalDate:  r.bars[order.signalIndex].Date,
		SignalIndex: order.signalIndex,
		Date:        r.bars[t].Date,
		Index:       t,
		Price:       price,
		Reason:      reason,
	})
	if r.engine.metrics {
		monitoring.RecordSkippedEntry(r.symbol, string(reason))
	}
	r.engine.logger.Warn("Entry skipped",
		zap.String("symbol", r.symbol),
		zap.Time("date", r.bars[t].Date),
		zap.Float64("price", price),
		zap.String("reason", string(reason)),
	)
}

// close books the open position at price on bar t.
func (r *run) close(t int, price float64, reason ExitReason) {
	p := r.position
	cfg := r.engine.cfg

	gross := (price - p.EntryPrice) * float64(p.Quantity)
	costs := 2 * cfg.BrokeragePerOrder
	net := gross - costs

	r.seq++
	trade := Trade{
		Seq:         r.seq,
		Symbol:      r.symbol,
		Side:        p.Side,
		EntryDate:   p.EntryDate,
		EntryIndex:  p.EntryIndex,
		EntryPrice:  p.EntryPrice,
		ExitDate:    r.bars[t].Date,
		ExitIndex:   t,
		ExitPrice:   price,
		Quantity:    p.Quantity,
		GrossPnL:    gross,
		Costs:       costs,
		NetPnL:      net,
		HoldingBars: t - p.EntryIndex,
		ExitReason:  reason,
	}
	if notional := trade.Notional(); notional > 0 {
		trade.ReturnPct = net / notional * 100
	}

	r.result.Trades = append(r.result.Trades, trade)
	r.realized += net
	r.position = nil

	if r.engine.metrics {
		monitoring.RecordTrade(r.symbol, string(reason), trade.ReturnPct)
	}
	r.engine.logger.Debug("Closed position",
		zap.String("symbol", r.symbol),
		zap.Time("date", trade.ExitDate),
		zap.Float64("price", price),
		zap.Float64("net_pnl", net),
		zap.String("reason", string(reason)),
	)
}

// mark appends the equity at close(t).
func (r *run) mark(t int) {
	point := EquityPoint{
		Date:     r.bars[t].Date,
		Realized: r.realized,
	}
	if r.position != nil {
		point.InPosition = true
		point.Unrealized = r.position.Unrealized(r.bars[t].Close)
	}
	point.Equity = r.engine.cfg.CapitalPerTrade + point.Realized + point.Unrealized
	r.result.Equity = append(r.result.Equity, point)
}

// exitReason evaluates the exits in priority order using data up to close(t).
func (r *run) exitReason(t int) (ExitReason, bool) {
	p := r.position
	stops := r.strategy.Stops
	closePrice := r.bars[t].Close

	// the trail moves before any check so today's close can trigger it
	if trail := stops.ATRTrail; trail != nil {
		if series, ok := r.ctx.Series.Get(trail.Spec()); ok {
			if atr, ok := series.At(t); ok {
				p.ratchet(closePrice - trail.Multiplier*atr)
			}
		}
	}

	if r.strategy.Exit.Signal(r.ctx, t) {
		return ExitRule, true
	}
	if stops.TimeExitBars > 0 && p.BarsHeld(t) >= stops.TimeExitBars {
		return ExitTime, true
	}
	if stops.StopLossPct > 0 && closePrice <= p.EntryPrice*(1-stops.StopLossPct/100) {
		return ExitStopLoss, true
	}
	if stops.ATRTrail != nil {
		if level, ok := p.Trail(); ok && closePrice <= level {
			return ExitATRTrail, true
		}
	}
	return "", false
}

// finish applies the end of data policy to a position still open.
func (r *run) finish() {
	if r.position == nil {
		r.pending = nil
		return
	}

	last := len(r.bars) - 1
	// a pending exit that never found a fillable open is dropped here
	r.pending = nil

	if r.engine.cfg.policy() == Exclude {
		r.result.OpenPosition = r.position
		r.engine.logger.Info("Position left open at end of data",
			zap.String("symbol", r.symbol),
			zap.Time("entry_date", r.position.EntryDate),
		)
		return
	}

	r.close(last, r.exitMark(last), ExitEndOfData)
	// restate the last mark so equity agrees with the ledger
	r.result.Equity[last].Realized = r.realized
	r.result.Equity[last].Unrealized = 0
	r.result.Equity[last].InPosition = false
	r.result.Equity[last].Equity = r.engine.cfg.CapitalPerTrade + r.realized
}

// exitMark is the forced exit price on the last bar: its close after
// slippage, else the latest positive close since entry, else the entry
// price so the trade books flat.
func (r *run) exitMark(last int) float64 {
	for t := last; t >= r.position.EntryIndex; t-- {
		if c := r.bars[t].Close; c > 0 {
			return c * (1 - r.engine.cfg.slippage())
		}
	}
	return r.position.EntryPrice
}
