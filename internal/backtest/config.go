package backtest

import (
	"strings"

	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
)

// EndOfDataPolicy decides what happens to a position still open on the last bar.
type EndOfDataPolicy string

const (
	// ForceClose books the position at the last close with reason end_of_data.
	ForceClose EndOfDataPolicy = "force_close"
	// Exclude leaves the position out of the ledger and reports it separately.
	Exclude EndOfDataPolicy = "exclude"
)

// ParseEndOfDataPolicy accepts the policy names; empty means ForceClose.
func ParseEndOfDataPolicy(s string) (EndOfDataPolicy, bool) {
	switch EndOfDataPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ForceClose:
		return ForceClose, true
	case Exclude:
		return Exclude, true
	}
	return "", false
}

// Config holds the execution parameters of a run.
type Config struct {
	CapitalPerTrade   float64
	SlippageBps       float64
	BrokeragePerOrder float64
	EndOfData         EndOfDataPolicy
}

// DefaultConfig mirrors the values a new user starts with.
func DefaultConfig() Config {
	return Config{
		CapitalPerTrade:   500000,
		SlippageBps:       2,
		BrokeragePerOrder: 20,
		EndOfData:         ForceClose,
	}
}

// Validate rejects configurations that cannot produce a meaningful run.
func (c Config) Validate() error {
	if !(c.CapitalPerTrade > 0) {
		return bterrors.ConfigErrorf("engine", "validate", "capital per trade must be positive, got %.2f", c.CapitalPerTrade)
	}
	if c.SlippageBps < 0 || c.SlippageBps >= 10000 {
		return bterrors.ConfigErrorf("engine", "validate", "slippage must be in [0, 10000) bps, got %.2f", c.SlippageBps)
	}
	if c.BrokeragePerOrder < 0 {
		return bterrors.ConfigErrorf("engine", "validate", "brokerage per order must not be negative, got %.2f", c.BrokeragePerOrder)
	}
	if _, ok := ParseEndOfDataPolicy(string(c.EndOfData)); !ok {
		return bterrors.ConfigErrorf("engine", "validate", "unknown end of data policy %q", c.EndOfData)
	}
	return nil
}

func (c Config) slippage() float64 {
	return c.SlippageBps / 10000.0
}

func (c Config) policy() EndOfDataPolicy {
	p, _ := ParseEndOfDataPolicy(string(c.EndOfData))
	return p
}
