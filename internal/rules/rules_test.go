package rules

import (
	"testing"
	"time"

	"github.com/ducminhle1904/eod-backtester/internal/indicators"
	"github.com/ducminhle1904/eod-backtester/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func barsFromCloses(closes ...float64) []types.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, len(closes))
	for i, c := range closes {
		bars[i] = types.Bar{
			Date:  start.AddDate(0, 0, i),
			Open:  c,
			High:  c + 1,
			Low:   c - 1,
			Close: c,
		}
	}
	return bars
}

func newContext(t *testing.T, bars []types.Bar, specs ...indicators.Spec) *Context {
	t.Helper()
	set, err := indicators.Compute(bars, specs)
	require.NoError(t, err)
	ctx, err := NewContext(bars, set)
	require.NoError(t, err)
	return ctx
}

type ConditionSuite struct {
	suite.Suite
	ctx *Context
}

func (s *ConditionSuite) SetupTest() {
	s.ctx = newContext(s.T(), barsFromCloses(100, 98, 96, 94, 97, 101, 104, 103))
}

func (s *ConditionSuite) TestThresholds() {
	above := Threshold(Above, Close(), 100)
	below := Threshold(Below, Close(), 100)

	s.Equal(False, above.Evaluate(s.ctx, 0))
	s.Equal(False, below.Evaluate(s.ctx, 0))
	s.Equal(True, above.Evaluate(s.ctx, 5))
	s.Equal(True, below.Evaluate(s.ctx, 3))
}

func (s *ConditionSuite) TestCrossesAreStrict() {
	up := Compare(CrossesAbove, Close(), Const(100))
	down := Compare(CrossesBelow, Close(), Const(97))

	s.Equal(Unavailable, up.Evaluate(s.ctx, 0), "no previous bar")
	s.Equal(False, up.Evaluate(s.ctx, 1), "starting on the line is not a cross")
	s.Equal(True, up.Evaluate(s.ctx, 5))
	s.Equal(False, up.Evaluate(s.ctx, 6), "already above")

	s.Equal(True, down.Evaluate(s.ctx, 2))
	s.Equal(False, down.Evaluate(s.ctx, 3))
	s.Equal(False, Compare(CrossesBelow, Close(), Const(97)).Evaluate(s.ctx, 4), "rising back to the line is not a cross")
}

func (s *ConditionSuite) TestRanges() {
	in := Range(InRange, Close(), 96, 100)
	out := Range(OutsideRange, Close(), 96, 100)

	s.Equal(True, in.Evaluate(s.ctx, 0), "bounds are inclusive")
	s.Equal(True, in.Evaluate(s.ctx, 2))
	s.Equal(False, in.Evaluate(s.ctx, 3))
	s.Equal(True, out.Evaluate(s.ctx, 3))
	s.Equal(False, out.Evaluate(s.ctx, 1))
}

func (s *ConditionSuite) TestOffsetOutOfHistoryIsUnavailable() {
	c := Compare(GreaterThan, Close(), Close().Shift(1))

	s.Equal(Unavailable, c.Evaluate(s.ctx, 0))
	s.Equal(False, c.Evaluate(s.ctx, 1))
	s.Equal(True, c.Evaluate(s.ctx, 4))
}

func (s *ConditionSuite) TestIndexOutOfRange() {
	c := Threshold(Above, Close(), 0)
	s.Equal(Unavailable, c.Evaluate(s.ctx, -1))
	s.Equal(Unavailable, c.Evaluate(s.ctx, s.ctx.Len()))
}

func TestConditionSuite(t *testing.T) {
	suite.Run(t, new(ConditionSuite))
}

func TestCondition_IndicatorWarmUpIsUnavailable(t *testing.T) {
	spec := indicators.Spec{Kind: indicators.KindSMA, Period: 3}
	ctx := newContext(t, barsFromCloses(1, 2, 3, 4, 5), spec)
	c := Compare(GreaterThan, Close(), Ind(spec))

	assert.Equal(t, Unavailable, c.Evaluate(ctx, 1))
	assert.Equal(t, True, c.Evaluate(ctx, 2))
	assert.Equal(t, 2, c.Lookback())

	cross := Compare(CrossesAbove, Close(), Ind(spec))
	assert.Equal(t, 3, cross.Lookback())
	assert.Equal(t, Unavailable, cross.Evaluate(ctx, 2), "previous sma not yet available")
}

func TestCondition_MissingSeriesIsUnavailable(t *testing.T) {
	ctx := newContext(t, barsFromCloses(1, 2, 3))
	c := Compare(GreaterThan, Close(), Ind(indicators.Spec{Kind: indicators.KindEMA, Period: 2}))
	assert.Equal(t, Unavailable, c.Evaluate(ctx, 2))
	assert.Error(t, ctx.Require(c.Specs()))
}

func TestCondition_Validate(t *testing.T) {
	assert.NoError(t, Breakout(20).Validate())
	assert.Error(t, Condition{Type: "touches", A: Close(), B: Const(1)}.Validate())
	assert.Error(t, Range(InRange, Close(), 10, 5).Validate())
	assert.Error(t, Compare(Above, Close(), Close()).Validate())
	assert.Error(t, Compare(GreaterThan, Close().Shift(-1), Const(1)).Validate())
	assert.Error(t, Compare(GreaterThan, Ind(indicators.Spec{Kind: indicators.KindSMA, Period: 0}), Const(1)).Validate())
}

func TestBreakout_ExcludesCurrentBar(t *testing.T) {
	spec := indicators.Spec{Kind: indicators.KindHighest, Period: 3, Source: types.FieldHigh}
	ctx := newContext(t, barsFromCloses(10, 11, 12, 12.5, 14), spec)
	c := Breakout(3)

	assert.Equal(t, 3, c.Lookback())
	assert.Equal(t, Unavailable, c.Evaluate(ctx, 2))
	// highest high of bars 0..2 is 13
	assert.Equal(t, False, c.Evaluate(ctx, 3))
	// highest high of bars 1..3 is 13.5
	assert.Equal(t, True, c.Evaluate(ctx, 4))
}

func TestRule_Combinators(t *testing.T) {
	ctx := newContext(t, barsFromCloses(100, 105))
	yes := Threshold(Above, Close(), 50)
	no := Threshold(Below, Close(), 50)
	na := Compare(GreaterThan, Close(), Close().Shift(5))

	tests := []struct {
		name string
		rule Rule
		want TriState
	}{
		{"all true", All(yes, yes), True},
		{"all with false", All(yes, no), False},
		{"all with unavailable", All(yes, na), Unavailable},
		{"all false beats unavailable", All(no, na), False},
		{"any with true", Any(no, yes), True},
		{"any unavailable", Any(no, na), Unavailable},
		{"any false", Any(no, no), False},
		{"not false", Not(no), True},
		{"not true", Not(yes), False},
		{"not unavailable", Not(na), Unavailable},
		{"empty all", All(), False},
		{"nested", All(yes).With(Any(no, yes), NotGroup(All(no))), True},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.Evaluate(ctx, 1))
			assert.Equal(t, tt.want == True, tt.rule.Signal(ctx, 1))
		})
	}
}

func TestRule_NotOfUnavailableNeverSignals(t *testing.T) {
	ctx := newContext(t, barsFromCloses(100))
	na := Compare(CrossesAbove, Close(), Const(10))
	assert.False(t, Not(na).Signal(ctx, 0))
	assert.False(t, NotGroup(All(na)).Signal(ctx, 0))
}

func TestRule_Validate(t *testing.T) {
	assert.NoError(t, All(Breakout(10)).Validate())
	assert.Error(t, Rule{Combinator: CombineNot, Conditions: []Condition{Breakout(1), Breakout(2)}}.Validate())
	assert.Error(t, Rule{Combinator: "xor"}.Validate())
	assert.Error(t, All(Breakout(10)).With(All(Condition{Type: "bad"})).Validate())
}

func TestParseCombinator(t *testing.T) {
	c, ok := ParseCombinator("OR")
	assert.True(t, ok)
	assert.Equal(t, CombineAny, c)

	c, ok = ParseCombinator("")
	assert.True(t, ok)
	assert.Equal(t, CombineAll, c)

	_, ok = ParseCombinator("xor")
	assert.False(t, ok)
}

func TestStrategy_SpecsAndWarmUp(t *testing.T) {
	s := Strategy{
		Entry: All(Breakout(20), TrendUp(21, 55)),
		Exit:  Any(Compare(CrossesBelow, ema(21), ema(55))),
		Stops: Stops{ATRTrail: &ATRTrail{Period: 14, Multiplier: 3}},
	}

	keys := make([]string, 0)
	for _, spec := range s.Specs() {
		keys = append(keys, spec.Key())
	}
	assert.Equal(t, []string{"highest(high,20)", "ema(close,21)", "ema(close,55)", "atr(14)"}, keys)
	// slow EMA first valid at 54, crossover needs one more bar
	assert.Equal(t, 55, s.WarmUp())
	assert.NoError(t, s.Validate())
}

func TestStrategy_Validate(t *testing.T) {
	assert.Error(t, Strategy{}.Validate(), "entry required")
	assert.Error(t, Strategy{Entry: All(Breakout(5)), Stops: Stops{StopLossPct: -1}}.Validate())
	assert.Error(t, Strategy{Entry: All(Breakout(5)), Stops: Stops{ATRTrail: &ATRTrail{Period: 14}}}.Validate())
	assert.NoError(t, DefaultStrategy().Validate())
}

func TestCondition_String(t *testing.T) {
	assert.Equal(t, "close crosses_below 95", Compare(CrossesBelow, Close(), Const(95)).String())
	assert.Equal(t, "close greater_than highest(high,20)[1]", Breakout(20).String())
}
