package backtest

import "time"

// Side is the direction of a position. Only long is traded today.
type Side string

const (
	SideLong Side = "LONG"
)

// ExitReason explains why a position was closed.
type ExitReason string

const (
	ExitRule      ExitReason = "rule_exit"
	ExitTime      ExitReason = "time_exit"
	ExitStopLoss  ExitReason = "stop_loss"
	ExitATRTrail  ExitReason = "atr_trail"
	ExitEndOfData ExitReason = "end_of_data"
)

// Trade is one completed round trip. Trades are never modified after they
// are appended to the ledger.
type Trade struct {
	Seq         int
	Symbol      string
	Side        Side
	EntryDate   time.Time
	EntryIndex  int
	EntryPrice  float64
	ExitDate    time.Time
	ExitIndex   int
	ExitPrice   float64
	Quantity    int
	GrossPnL    float64
	Costs       float64
	NetPnL      float64
	ReturnPct   float64
	HoldingBars int
	ExitReason  ExitReason
}

// IsWin reports a strictly positive net result.
func (t Trade) IsWin() bool {
	return t.NetPnL > 0
}

// Notional is the capital actually deployed at entry.
func (t Trade) Notional() float64 {
	return t.EntryPrice * float64(t.Quantity)
}

// SkipReason explains why an entry signal did not turn into a position.
// SkipNoExitBar marks a signal whose fill would land on the last bar while
// ForceClose is in effect, leaving no later bar for the exit.
type SkipReason string

const (
	SkipNonPositivePrice SkipReason = "non_positive_price"
	SkipZeroQuantity     SkipReason = "zero_quantity"
	SkipNoExitBar        SkipReason = "no_exit_bar"
)

// SkippedEntry records an entry order that could not be filled.
type SkippedEntry struct {
	SignalDate  time.Time
	SignalIndex int
	Date        time.Time
	Index       int
	Price       float64
	Reason      SkipReason
}

// EquityPoint is the account value marked at one bar's close.
type EquityPoint struct {
	Date       time.Time
	Equity     float64
	Realized   float64
	Unrealized float64
	InPosition bool
}
