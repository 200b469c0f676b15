package types

import (
	"fmt"
	"strings"
)

// Instrument describes one of the supported indices and how the external
// data providers name it.
type Instrument struct {
	Symbol      string
	Name        string
	YahooTicker string
	KiteSymbol  string
}

var instruments = map[string]Instrument{
	"NIFTY": {
		Symbol:      "NIFTY",
		Name:        "NIFTY 50",
		YahooTicker: "^NSEI",
		KiteSymbol:  "NIFTY 50",
	},
	"BANKNIFTY": {
		Symbol:      "BANKNIFTY",
		Name:        "NIFTY BANK",
		YahooTicker: "^NSEBANK",
		KiteSymbol:  "NIFTY BANK",
	},
}

// LookupInstrument resolves a symbol or one of its aliases.
func LookupInstrument(symbol string) (Instrument, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	switch s {
	case "NIFTY50", "NIFTY 50", "^NSEI":
		s = "NIFTY"
	case "NIFTY BANK", "BANK NIFTY", "^NSEBANK":
		s = "BANKNIFTY"
	}
	inst, ok := instruments[s]
	if !ok {
		return Instrument{}, fmt.Errorf("unsupported instrument %q (supported: NIFTY, BANKNIFTY)", symbol)
	}
	return inst, nil
}

// SupportedSymbols lists the canonical symbols in a stable order.
func SupportedSymbols() []string {
	return []string{"NIFTY", "BANKNIFTY"}
}
