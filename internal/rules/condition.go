package rules

import (
	"fmt"
	"strings"

	"github.com/ducminhle1904/eod-backtester/internal/indicators"
)

// ConditionType is one of the fixed comparison templates.
type ConditionType string

const (
	GreaterThan  ConditionType = "greater_than"
	LessThan     ConditionType = "less_than"
	Above        ConditionType = "above"
	Below        ConditionType = "below"
	CrossesAbove ConditionType = "crosses_above"
	CrossesBelow ConditionType = "crosses_below"
	InRange      ConditionType = "in_range"
	OutsideRange ConditionType = "outside_range"
)

// ConditionTypes lists every supported template.
func ConditionTypes() []ConditionType {
	return []ConditionType{
		GreaterThan, LessThan, Above, Below,
		CrossesAbove, CrossesBelow, InRange, OutsideRange,
	}
}

// ParseConditionType normalizes a user supplied template name.
func ParseConditionType(s string) (ConditionType, bool) {
	t := ConditionType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ConditionTypes() {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// Condition compares operand A against B, or against [Low, High] for the
// range templates.
type Condition struct {
	Type ConditionType
	A    Operand
	B    Operand
	Low  float64
	High float64
}

// Compare builds a two operand condition.
func Compare(t ConditionType, a, b Operand) Condition {
	return Condition{Type: t, A: a, B: b}
}

// Threshold builds an above/below condition against a fixed level.
func Threshold(t ConditionType, a Operand, level float64) Condition {
	return Condition{Type: t, A: a, B: Const(level)}
}

// Range builds an in_range/outside_range condition.
func Range(t ConditionType, a Operand, low, high float64) Condition {
	return Condition{Type: t, A: a, Low: low, High: high}
}

func (c Condition) isRange() bool {
	return c.Type == InRange || c.Type == OutsideRange
}

func (c Condition) isCross() bool {
	return c.Type == CrossesAbove || c.Type == CrossesBelow
}

// Evaluate decides the condition at bar i using only bars at or before i.
func (c Condition) Evaluate(ctx *Context, i int) TriState {
	if i < 0 || i >= ctx.Len() {
		return Unavailable
	}

	a, ok := c.A.Resolve(ctx, i)
	if !ok {
		return Unavailable
	}

	switch c.Type {
	case InRange:
		return FromBool(a >= c.Low && a <= c.High)
	case OutsideRange:
		return FromBool(a < c.Low || a > c.High)
	}

	b, ok := c.B.Resolve(ctx, i)
	if !ok {
		return Unavailable
	}

	switch c.Type {
	case GreaterThan, Above:
		return FromBool(a > b)
	case LessThan, Below:
		return FromBool(a < b)
	}

	if !c.isCross() {
		return Unavailable
	}
	prevA, ok := c.A.Resolve(ctx, i-1)
	if !ok {
		return Unavailable
	}
	prevB, ok := c.B.Resolve(ctx, i-1)
	if !ok {
		return Unavailable
	}

	// strict on both sides: touching the line is not a cross
	if c.Type == CrossesAbove {
		return FromBool(prevA < prevB && a > b)
	}
	return FromBool(prevA > prevB && a < b)
}

// Operands returns the operands the condition reads.
func (c Condition) Operands() []Operand {
	if c.isRange() {
		return []Operand{c.A}
	}
	return []Operand{c.A, c.B}
}

// Specs lists the indicators the condition needs.
func (c Condition) Specs() []indicators.Spec {
	var specs []indicators.Spec
	for _, op := range c.Operands() {
		if op.Kind == OperandIndicator {
			specs = append(specs, op.Indicator)
		}
	}
	return specs
}

// Lookback is the first bar index at which the condition can resolve.
func (c Condition) Lookback() int {
	lb := 0
	for _, op := range c.Operands() {
		lb = max(lb, op.Lookback())
	}
	if c.isCross() {
		lb++
	}
	return lb
}

// Validate checks the template and its operands.
func (c Condition) Validate() error {
	if _, ok := ParseConditionType(string(c.Type)); !ok {
		return fmt.Errorf("unknown condition type %q", c.Type)
	}
	for _, op := range c.Operands() {
		if err := op.Validate(); err != nil {
			return fmt.Errorf("%s: %w", c.Type, err)
		}
	}
	switch {
	case c.isRange():
		if c.Low > c.High {
			return fmt.Errorf("%s: low %.4f is greater than high %.4f", c.Type, c.Low, c.High)
		}
	case c.Type == Above || c.Type == Below:
		if c.B.Kind != OperandConstant {
			return fmt.Errorf("%s compares against a constant level, got %s", c.Type, c.B.Kind)
		}
	}
	return nil
}

func (c Condition) String() string {
	if c.isRange() {
		return fmt.Sprintf("%s %s [%g, %g]", c.A, c.Type, c.Low, c.High)
	}
	return fmt.Sprintf("%s %s %s", c.A, c.Type, c.B)
}
