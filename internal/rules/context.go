package rules

import (
	"fmt"

	"github.com/ducminhle1904/eod-backtester/internal/indicators"
	"github.com/ducminhle1904/eod-backtester/pkg/types"
)

// Context is the read-only view a rule evaluates against: the bars and the
// indicator series computed from them.
type Context struct {
	Bars   []types.Bar
	Series indicators.Set
}

// NewContext checks that every series is aligned with bars.
func NewContext(bars []types.Bar, series indicators.Set) (*Context, error) {
	if series == nil {
		series = indicators.Set{}
	}
	if err := series.CheckLength(len(bars)); err != nil {
		return nil, err
	}
	return &Context{Bars: bars, Series: series}, nil
}

// Require reports the first spec that has no computed series.
func (c *Context) Require(specs []indicators.Spec) error {
	for _, spec := range specs {
		if _, ok := c.Series.Get(spec); !ok {
			return fmt.Errorf("missing indicator series %s", spec.Key())
		}
	}
	return nil
}

// Len returns the number of bars.
func (c *Context) Len() int {
	return len(c.Bars)
}
