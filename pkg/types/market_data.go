package types

import (
	"strings"
	"time"
)

// Bar is one trading day of OHLCV data for a single instrument.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceField selects one of the raw values of a Bar.
type PriceField string

const (
	FieldOpen   PriceField = "open"
	FieldHigh   PriceField = "high"
	FieldLow    PriceField = "low"
	FieldClose  PriceField = "close"
	FieldVolume PriceField = "volume"
)

// Value returns the bar value for the field. Unknown fields report false.
func (b Bar) Value(field PriceField) (float64, bool) {
	switch field {
	case FieldOpen:
		return b.Open, true
	case FieldHigh:
		return b.High, true
	case FieldLow:
		return b.Low, true
	case FieldClose:
		return b.Close, true
	case FieldVolume:
		return b.Volume, true
	}
	return 0, false
}

// ParsePriceField normalizes a user supplied field name.
func ParsePriceField(s string) (PriceField, bool) {
	f := PriceField(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FieldOpen, FieldHigh, FieldLow, FieldClose, FieldVolume:
		return f, true
	}
	return "", false
}

// CopyBars returns an independent copy of bars, used to hand every parallel
// run its own input.
func CopyBars(bars []Bar) []Bar {
	out := make([]Bar, len(bars))
	copy(out, bars)
	return out
}
