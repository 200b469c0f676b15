package indicators

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

// Kind names an indicator family.
type Kind string

const (
	KindSMA            Kind = "sma"
	KindEMA            Kind = "ema"
	KindRSI            Kind = "rsi"
	KindATR            Kind = "atr"
	KindDonchianUpper  Kind = "donchian_upper"
	KindDonchianLower  Kind = "donchian_lower"
	KindDonchianMiddle Kind = "donchian_middle"
	KindHighest        Kind = "highest"
	KindLowest         Kind = "lowest"
)

// MaxPeriod bounds indicator periods; a daily index has no use for windows
// longer than roughly twenty years of trading days.
const MaxPeriod = 5000

// Kinds lists every supported indicator family.
func Kinds() []Kind {
	return []Kind{
		KindSMA, KindEMA, KindRSI, KindATR,
		KindDonchianUpper, KindDonchianLower, KindDonchianMiddle,
		KindHighest, KindLowest,
	}
}

// ParseKind normalizes a user supplied indicator name.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// usesSource reports whether the family reads a single price field; the
// others read whole bars.
func (k Kind) usesSource() bool {
	switch k {
	case KindSMA, KindEMA, KindRSI, KindHighest, KindLowest:
		return true
	}
	return false
}

// Spec identifies one indicator series.
type Spec struct {
	Kind   Kind
	Period int
	// Source is the price field for single-source families; defaults to close.
	Source types.PriceField
}

// Normalize fills defaults so equal indicators share a key.
func (s Spec) Normalize() Spec {
	if s.Kind.usesSource() {
		if s.Source == "" {
			s.Source = types.FieldClose
		}
	} else {
		s.Source = ""
	}
	return s
}

// Key is a stable identifier such as "ema(close,21)" or "atr(14)".
func (s Spec) Key() string {
	s = s.Normalize()
	if s.Source != "" {
		return fmt.Sprintf("%s(%s,%d)", s.Kind, s.Source, s.Period)
	}
	return fmt.Sprintf("%s(%d)", s.Kind, s.Period)
}

// WarmUp returns the index of the first bar at which the indicator is
// available given enough history.
func (s Spec) WarmUp() int {
	switch s.Kind {
	case KindRSI, KindATR:
		return s.Period
	default:
		return s.Period - 1
	}
}

// Validate checks the kind, period and source.
func (s Spec) Validate() error {
	if _, ok := ParseKind(string(s.Kind)); !ok {
		return fmt.Errorf("unknown indicator %q", s.Kind)
	}
	if s.Period < 1 || s.Period > MaxPeriod {
		return fmt.Errorf("indicator %s: period must be between 1 and %d, got %d", s.Kind, MaxPeriod, s.Period)
	}
	s = s.Normalize()
	if s.Source != "" {
		if _, ok := types.ParsePriceField(string(s.Source)); !ok {
			return fmt.Errorf("indicator %s: unknown source %q", s.Kind, s.Source)
		}
	}
	return nil
}

// Calculate computes the series for bars.
func (s Spec) Calculate(bars []types.Bar) (Series, error) {
	if err := s.Validate(); err != nil {
		return Series{}, err
	}
	s = s.Normalize()

	switch s.Kind {
	case KindATR:
		return ATR(bars, s.Period), nil
	case KindDonchianUpper:
		return DonchianUpper(bars, s.Period), nil
	case KindDonchianLower:
		return DonchianLower(bars, s.Period), nil
	case KindDonchianMiddle:
		return DonchianMiddle(bars, s.Period), nil
	}

	src, err := Source(bars, s.Source)
	if err != nil {
		return Series{}, err
	}
	switch s.Kind {
	case KindSMA:
		return SMA(src, s.Period), nil
	case KindEMA:
		return EMA(src, s.Period), nil
	case KindRSI:
		return RSI(src, s.Period), nil
	case KindHighest:
		return Highest(src, s.Period), nil
	case KindLowest:
		return Lowest(src, s.Period), nil
	}
	return Series{}, fmt.Errorf("unknown indicator %q", s.Kind)
}

// Set holds computed series keyed by Spec.Key.
type Set map[string]Series

// Get looks up the series for spec.
func (set Set) Get(spec Spec) (Series, bool) {
	s, ok := set[spec.Key()]
	return s, ok
}

// Keys returns the sorted keys.
func (set Set) Keys() []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CheckLength verifies every series is aligned with n bars.
func (set Set) CheckLength(n int) error {
	for _, key := range set.Keys() {
		series := set[key]
		if series.Len() != n || len(series.Valid) != n {
			return fmt.Errorf("series %s has length %d, bars have length %d", key, series.Len(), n)
		}
	}
	return nil
}

// Compute calculates every spec against bars. Duplicate specs are computed once.
func Compute(bars []types.Bar, specs []Spec) (Set, error) {
	set := make(Set, len(specs))
	for _, spec := range specs {
		key := spec.Key()
		if _, done := set[key]; done {
			continue
		}
		series, err := spec.Calculate(bars)
		if err != nil {
			return nil, err
		}
		set[key] = series
	}
	return set, nil
}
