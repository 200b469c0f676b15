package backtest

import (
	"math"
	"time"
)

// PositionState is the engine state machine: Flat or Long.
type PositionState int

const (
	Flat PositionState = iota
	Long
)

func (s PositionState) String() string {
	switch s {
	case Long:
		return "LONG"
	default:
		return "FLAT"
	}
}

// Position is the open position while the engine is Long.
type Position struct {
	Symbol     string
	Side       Side
	EntryDate  time.Time
	EntryIndex int
	EntryPrice float64
	Quantity   int
	// EntryCost is the brokerage already paid on the entry order.
	EntryCost float64

	trail    float64
	hasTrail bool
}

// BarsHeld counts bars since entry, including the entry bar and bar t.
func (p *Position) BarsHeld(t int) int {
	return t - p.EntryIndex + 1
}

// Unrealized is the mark-to-market P&L at price, net of the entry cost.
func (p *Position) Unrealized(price float64) float64 {
	return (price-p.EntryPrice)*float64(p.Quantity) - p.EntryCost
}

// Trail returns the current trailing stop level, if one has been set.
func (p *Position) Trail() (float64, bool) {
	return p.trail, p.hasTrail
}

// ratchet raises the trailing stop to candidate; it never lowers it.
func (p *Position) ratchet(candidate float64) {
	if math.IsNaN(candidate) || math.IsInf(candidate, 0) {
		return
	}
	if !p.hasTrail || candidate > p.trail {
		p.trail = candidate
		p.hasTrail = true
	}
}

// OrderAction is the kind of order waiting for the next open.
type OrderAction int

const (
	OrderEnter OrderAction = iota
	OrderExit
)

func (a OrderAction) String() string {
	if a == OrderExit {
		return "EXIT"
	}
	return "ENTER"
}

// pendingOrder is scheduled at close(t) and filled at open(t+1).
type pendingOrder struct {
	action      OrderAction
	signalIndex int
	reason      ExitReason
}
