package rules

import (
	"errors"
	"fmt"

	"github.com/ducminhle1904/eod-backtester/internal/indicators"
)

// ATRTrail is a chandelier stop: the stop ratchets up to close - Multiplier*ATR
// and never moves down while the position is open.
type ATRTrail struct {
	Period     int
	Multiplier float64
}

// Spec returns the ATR series the trail reads.
func (t ATRTrail) Spec() indicators.Spec {
	return indicators.Spec{Kind: indicators.KindATR, Period: t.Period}
}

// Stops are contextual exits that depend on the open position rather than
// on the bar alone. Zero values disable each stop.
type Stops struct {
	TimeExitBars int
	StopLossPct  float64
	ATRTrail     *ATRTrail
}

// IsZero reports whether no stop is configured.
func (s Stops) IsZero() bool {
	return s.TimeExitBars == 0 && s.StopLossPct == 0 && s.ATRTrail == nil
}

// Validate checks stop parameters.
func (s Stops) Validate() error {
	if s.TimeExitBars < 0 {
		return fmt.Errorf("time exit bars must not be negative, got %d", s.TimeExitBars)
	}
	if s.StopLossPct < 0 || s.StopLossPct >= 100 {
		return fmt.Errorf("stop loss percent must be in [0, 100), got %.4f", s.StopLossPct)
	}
	if t := s.ATRTrail; t != nil {
		if err := t.Spec().Validate(); err != nil {
			return fmt.Errorf("atr trail: %w", err)
		}
		if t.Multiplier <= 0 {
			return fmt.Errorf("atr trail multiplier must be positive, got %.4f", t.Multiplier)
		}
	}
	return nil
}

// Strategy pairs an entry rule with an exit rule and optional stops.
type Strategy struct {
	Name  string
	Entry Rule
	Exit  Rule
	Stops Stops
}

// Specs lists every indicator the strategy reads.
func (s Strategy) Specs() []indicators.Spec {
	seen := make(map[string]bool)
	var specs []indicators.Spec
	add := func(list []indicators.Spec) {
		for _, spec := range list {
			if !seen[spec.Key()] {
				seen[spec.Key()] = true
				specs = append(specs, spec)
			}
		}
	}
	add(s.Entry.Specs())
	add(s.Exit.Specs())
	if s.Stops.ATRTrail != nil {
		add([]indicators.Spec{s.Stops.ATRTrail.Spec()})
	}
	return specs
}

// WarmUp is the first bar index at which both rules can resolve. The ATR
// trail is excluded; it simply stays inactive until its series is available.
func (s Strategy) WarmUp() int {
	return max(s.Entry.Lookback(), s.Exit.Lookback())
}

// Validate checks rules and stops.
func (s Strategy) Validate() error {
	if s.Entry.IsEmpty() {
		return errors.New("entry rule has no conditions")
	}
	if err := s.Entry.Validate(); err != nil {
		return fmt.Errorf("entry: %w", err)
	}
	if !s.Exit.IsEmpty() {
		if err := s.Exit.Validate(); err != nil {
			return fmt.Errorf("exit: %w", err)
		}
	}
	if err := s.Stops.Validate(); err != nil {
		return fmt.Errorf("stops: %w", err)
	}
	return nil
}
