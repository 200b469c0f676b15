package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/ducminhle1904/eod-backtester/internal/backtest"
	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
	"github.com/ducminhle1904/eod-backtester/internal/indicators"
	"github.com/ducminhle1904/eod-backtester/internal/rules"
	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

// Params maps sweep parameter names to the values of one variant.
type Params map[string]float64

// Validate checks field ranges and that the strategy compiles without
// sweep parameters.
func (c *StrategyConfig) Validate() error {
	if err := validateStruct("validate", c); err != nil {
		return err
	}
	_, _, err := c.Compile(backtest.DefaultConfig(), nil)
	return err
}

// ResolveSymbol returns the canonical instrument symbol, or "" when none is set.
func (c *StrategyConfig) ResolveSymbol() (string, error) {
	if strings.TrimSpace(c.Symbol) == "" {
		return "", nil
	}
	inst, err := types.LookupInstrument(c.Symbol)
	if err != nil {
		return "", bterrors.Wrap(err, bterrors.KindConfig, component, "compile", "symbol")
	}
	return inst.Symbol, nil
}

// Compile turns the configuration into an executable strategy and engine
// config. Omitted cost fields come from defaults and *_param fields are
// looked up in params.
func (c *StrategyConfig) Compile(defaults backtest.Config, params Params) (rules.Strategy, backtest.Config, error) {
	cp := compiler{params: params}

	if _, err := c.ResolveSymbol(); err != nil {
		return rules.Strategy{}, backtest.Config{}, err
	}

	cfg := defaults
	if c.CapitalPerTrade != nil {
		cfg.CapitalPerTrade = *c.CapitalPerTrade
	}
	if c.SlippageBps != nil {
		cfg.SlippageBps = *c.SlippageBps
	}
	if c.BrokeragePerOrder != nil {
		cfg.BrokeragePerOrder = *c.BrokeragePerOrder
	}
	if c.EndOfData != "" {
		cfg.EndOfData = backtest.EndOfDataPolicy(c.EndOfData)
	}
	if err := cfg.Validate(); err != nil {
		return rules.Strategy{}, backtest.Config{}, err
	}

	strategy := rules.Strategy{
		Name:  c.Name,
		Entry: cp.rule(c.Entry, "entry"),
		Exit:  cp.rule(c.Exit, "exit"),
	}
	if c.Stops != nil {
		strategy.Stops = cp.stops(*c.Stops)
	}
	if cp.err != nil {
		return rules.Strategy{}, backtest.Config{}, cp.err
	}

	if err := strategy.Validate(); err != nil {
		return rules.Strategy{}, backtest.Config{}, bterrors.Wrap(err, bterrors.KindConfig, component, "compile", c.Name)
	}
	return strategy, cfg, nil
}

// compiler keeps the first error so the tree can be walked without
// checking after every node.
type compiler struct {
	params Params
	err    error
}

func (cp *compiler) fail(path, format string, args ...interface{}) {
	if cp.err == nil {
		cp.err = bterrors.ConfigErrorf(component, "compile", "%s: %s", path, fmt.Sprintf(format, args...))
	}
}

func (cp *compiler) number(path string, fixed float64, param string) float64 {
	if param == "" {
		return fixed
	}
	v, ok := cp.params[param]
	if !ok {
		cp.fail(path, "parameter %q has no value", param)
		return 0
	}
	return v
}

func (cp *compiler) integer(path string, fixed int, param string) int {
	v := cp.number(path, float64(fixed), param)
	if v != math.Trunc(v) {
		cp.fail(path, "parameter %q must be a whole number, got %g", param, v)
		return 0
	}
	return int(v)
}

// optional resolves a value that may be given directly or by parameter.
func (cp *compiler) optional(path string, fixed *float64, param string) (float64, bool) {
	switch {
	case param != "":
		return cp.number(path, 0, param), true
	case fixed != nil:
		return *fixed, true
	}
	return 0, false
}

func (cp *compiler) rule(rc RuleConfig, path string) rules.Rule {
	comb, ok := rules.ParseCombinator(rc.Combinator)
	if !ok {
		cp.fail(path, "unknown combinator %q", rc.Combinator)
	}

	r := rules.Rule{Combinator: comb}
	for i, cc := range rc.Conditions {
		r.Conditions = append(r.Conditions, cp.condition(cc, fmt.Sprintf("%s.conditions[%d]", path, i)))
	}
	for i, g := range rc.Groups {
		r.Groups = append(r.Groups, cp.rule(g, fmt.Sprintf("%s.groups[%d]", path, i)))
	}
	return r
}

func (cp *compiler) condition(cc ConditionConfig, path string) rules.Condition {
	switch {
	case cc.Template != "" && cc.Type != "":
		cp.fail(path, "set either type or template, not both")
		return rules.Condition{}
	case cc.Template != "":
		return cp.template(cc, path)
	case cc.Type == "":
		cp.fail(path, "type or template is required")
		return rules.Condition{}
	}

	t, ok := rules.ParseConditionType(cc.Type)
	if !ok {
		cp.fail(path, "unknown condition type %q", cc.Type)
		return rules.Condition{}
	}
	if cc.A == nil {
		cp.fail(path, "operand a is required")
		return rules.Condition{}
	}
	a := cp.operand(*cc.A, path+".a")

	var cond rules.Condition
	switch t {
	case rules.InRange, rules.OutsideRange:
		low, okLow := cp.optional(path+".low", cc.Low, cc.LowParam)
		high, okHigh := cp.optional(path+".high", cc.High, cc.HighParam)
		if !okLow || !okHigh {
			cp.fail(path, "%s needs low and high", t)
			return rules.Condition{}
		}
		cond = rules.Range(t, a, low, high)
	default:
		level, hasLevel := cp.optional(path+".level", cc.Level, cc.LevelParam)
		switch {
		case cc.B != nil && hasLevel:
			cp.fail(path, "set either b or level, not both")
			return rules.Condition{}
		case cc.B != nil:
			cond = rules.Compare(t, a, cp.operand(*cc.B, path+".b"))
		case hasLevel:
			cond = rules.Threshold(t, a, level)
		default:
			cp.fail(path, "%s needs operand b or a level", t)
			return rules.Condition{}
		}
	}

	if cp.err == nil {
		if err := cond.Validate(); err != nil {
			cp.fail(path, "%v", err)
		}
	}
	return cond
}

func (cp *compiler) template(cc ConditionConfig, path string) rules.Condition {
	switch cc.Template {
	case "breakout":
		return rules.Breakout(cp.integer(path+".period", cc.Period, cc.PeriodParam))
	case "trend_up", "trend_flip":
		fast := cp.integer(path+".fast", cc.Fast, cc.FastParam)
		slow := cp.integer(path+".slow", cc.Slow, cc.SlowParam)
		if cp.err == nil && fast >= slow {
			cp.fail(path, "fast period %d must be below slow period %d", fast, slow)
		}
		if cc.Template == "trend_up" {
			return rules.TrendUp(fast, slow)
		}
		return rules.TrendFlip(fast, slow)
	case "momentum":
		level, ok := cp.optional(path+".level", cc.Level, cc.LevelParam)
		if !ok {
			cp.fail(path, "momentum needs a level")
		}
		return rules.Momentum(cp.integer(path+".period", cc.Period, cc.PeriodParam), level)
	}
	cp.fail(path, "unknown template %q", cc.Template)
	return rules.Condition{}
}

func (cp *compiler) operand(oc OperandConfig, path string) rules.Operand {
	value, isConst := cp.optional(path+".value", oc.Value, oc.ValueParam)

	set := 0
	for _, b := range []bool{oc.Price != "", oc.Indicator != "", isConst} {
		if b {
			set++
		}
	}
	if set != 1 {
		cp.fail(path, "set exactly one of price, indicator or value")
		return rules.Operand{}
	}

	switch {
	case isConst:
		return rules.Const(value)
	case oc.Price != "":
		field, ok := types.ParsePriceField(oc.Price)
		if !ok {
			cp.fail(path, "unknown price field %q", oc.Price)
		}
		return rules.Price(field).Shift(oc.Offset)
	}

	kind, ok := indicators.ParseKind(oc.Indicator)
	if !ok {
		cp.fail(path, "unknown indicator %q", oc.Indicator)
		return rules.Operand{}
	}
	spec := indicators.Spec{
		Kind:   kind,
		Period: cp.integer(path+".period", oc.Period, oc.PeriodParam),
	}
	if oc.Source != "" {
		field, ok := types.ParsePriceField(oc.Source)
		if !ok {
			cp.fail(path, "unknown source %q", oc.Source)
		}
		spec.Source = field
	}
	return rules.Ind(spec).Shift(oc.Offset)
}

func (cp *compiler) stops(sc StopsConfig) rules.Stops {
	s := rules.Stops{
		TimeExitBars: cp.integer("stops.time_exit_bars", sc.TimeExitBars, sc.TimeExitBarsParam),
		StopLossPct:  cp.number("stops.stop_loss_pct", sc.StopLossPct, sc.StopLossPctParam),
	}
	if t := sc.ATRTrail; t != nil {
		s.ATRTrail = &rules.ATRTrail{
			Period:     cp.integer("stops.atr_trail.period", t.Period, t.PeriodParam),
			Multiplier: cp.number("stops.atr_trail.multiplier", t.Multiplier, t.MultiplierParam),
		}
	}
	return s
}
