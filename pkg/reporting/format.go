package reporting

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/moznion/go-optional"
)

const notAvailable = "n/a"

func formatMetric(m metric) string {
	if m.Value.IsNone() {
		return notAvailable
	}
	v := m.Value.Unwrap()
	switch m.Format {
	case formatCount:
		return strconv.Itoa(int(v))
	case formatMoney:
		return money(v)
	case formatPct:
		return fmt.Sprintf("%.2f%%", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func pct(o optional.Option[float64]) string {
	if o.IsNone() {
		return ""
	}
	return fmt.Sprintf("%.2f", o.Unwrap())
}

// money groups thousands the Indian way, 1234567.8 -> 12,34,567.80.
func money(v float64) string {
	neg := v < 0
	s := strconv.FormatFloat(math.Abs(v), 'f', 2, 64)
	whole, frac := s[:len(s)-3], s[len(s)-3:]

	var parts []string
	if len(whole) > 3 {
		parts = append(parts, whole[len(whole)-3:])
		whole = whole[:len(whole)-3]
		for len(whole) > 2 {
			parts = append([]string{whole[len(whole)-2:]}, parts...)
			whole = whole[:len(whole)-2]
		}
		if whole != "" {
			parts = append([]string{whole}, parts...)
		}
	} else {
		parts = []string{whole}
	}

	out := strings.Join(parts, ",") + frac
	if neg {
		return "-" + out
	}
	return out
}
