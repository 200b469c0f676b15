package rules

import (
	"fmt"
	"strconv"

	"github.com/ducminhle1904/eod-backtester/internal/indicators"
	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

// OperandKind selects where an operand value comes from.
type OperandKind string

const (
	OperandPrice     OperandKind = "price"
	OperandIndicator OperandKind = "indicator"
	OperandConstant  OperandKind = "constant"
)

// Operand is one side of a comparison. Offset reads the value that many bars
// back, so Offset 1 at bar i reads bar i-1.
type Operand struct {
	Kind      OperandKind
	Field     types.PriceField
	Indicator indicators.Spec
	Value     float64
	Offset    int
}

// Price references a raw bar field.
func Price(field types.PriceField) Operand {
	return Operand{Kind: OperandPrice, Field: field}
}

// Close is shorthand for Price(types.FieldClose).
func Close() Operand {
	return Price(types.FieldClose)
}

// Ind references a computed indicator.
func Ind(spec indicators.Spec) Operand {
	return Operand{Kind: OperandIndicator, Indicator: spec.Normalize()}
}

// Const is a fixed level.
func Const(v float64) Operand {
	return Operand{Kind: OperandConstant, Value: v}
}

// Shift returns a copy reading n bars further back.
func (o Operand) Shift(n int) Operand {
	o.Offset += n
	return o
}

// Resolve returns the operand value at bar i.
func (o Operand) Resolve(ctx *Context, i int) (float64, bool) {
	if o.Kind == OperandConstant {
		return o.Value, true
	}

	j := i - o.Offset
	if j < 0 || j >= ctx.Len() {
		return 0, false
	}

	switch o.Kind {
	case OperandPrice:
		return ctx.Bars[j].Value(o.Field)
	case OperandIndicator:
		series, ok := ctx.Series.Get(o.Indicator)
		if !ok {
			return 0, false
		}
		return series.At(j)
	}
	return 0, false
}

// Lookback is the first bar index at which the operand can be available.
func (o Operand) Lookback() int {
	switch o.Kind {
	case OperandPrice:
		return o.Offset
	case OperandIndicator:
		return o.Indicator.WarmUp() + o.Offset
	}
	return 0
}

// Validate checks the operand is well formed.
func (o Operand) Validate() error {
	if o.Offset < 0 {
		return fmt.Errorf("operand %s: offset must not be negative", o)
	}
	switch o.Kind {
	case OperandPrice:
		if _, ok := types.ParsePriceField(string(o.Field)); !ok {
			return fmt.Errorf("unknown price field %q", o.Field)
		}
	case OperandIndicator:
		return o.Indicator.Validate()
	case OperandConstant:
	default:
		return fmt.Errorf("unknown operand kind %q", o.Kind)
	}
	return nil
}

func (o Operand) String() string {
	var s string
	switch o.Kind {
	case OperandPrice:
		s = string(o.Field)
	case OperandIndicator:
		s = o.Indicator.Key()
	case OperandConstant:
		return strconv.FormatFloat(o.Value, 'f', -1, 64)
	default:
		s = "?"
	}
	if o.Offset > 0 {
		s = fmt.Sprintf("%s[%d]", s, o.Offset)
	}
	return s
}
