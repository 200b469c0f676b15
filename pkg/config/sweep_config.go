package config

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ducminhle1904/eod-backtester/internal/backtest"
	bterrors "github.com/ducminhle1904/eod-backtester/internal/errors"
)

// MaxVariants bounds the size of an exhaustive parameter grid. A genetic
// search samples larger spaces.
const MaxVariants = 10000

// SweepConfig runs one base strategy over the cartesian product of its
// parameters. Parameters are referenced from the base with *_param fields.
type SweepConfig struct {
	Base       StrategyConfig `yaml:"base"`
	Parameters []ParamRange   `yaml:"parameters" validate:"required,min=1,dive"`
}

// ParamRange lists the values of one parameter, either explicitly or as an
// inclusive min/max/step range.
type ParamRange struct {
	Name   string    `yaml:"name" validate:"required"`
	Values []float64 `yaml:"values,omitempty"`
	Min    *float64  `yaml:"min,omitempty"`
	Max    *float64  `yaml:"max,omitempty"`
	Step   *float64  `yaml:"step,omitempty" validate:"omitempty,gt=0"`
}

// Expand returns the values of the range in ascending order for ranges and
// in the given order for explicit lists.
func (p ParamRange) Expand() ([]float64, error) {
	if len(p.Values) > 0 {
		if p.Min != nil || p.Max != nil || p.Step != nil {
			return nil, bterrors.ConfigErrorf(component, "sweep", "parameter %q: set values or min/max/step, not both", p.Name)
		}
		return append([]float64(nil), p.Values...), nil
	}
	if p.Min == nil || p.Max == nil || p.Step == nil {
		return nil, bterrors.ConfigErrorf(component, "sweep", "parameter %q: needs values or min, max and step", p.Name)
	}

	lo, hi, step := *p.Min, *p.Max, *p.Step
	if step <= 0 || hi < lo {
		return nil, bterrors.ConfigErrorf(component, "sweep", "parameter %q: bad range [%g, %g] step %g", p.Name, lo, hi, step)
	}
	n := int(math.Floor((hi-lo)/step+1e-9)) + 1
	if n > MaxVariants {
		return nil, bterrors.ConfigErrorf(component, "sweep", "parameter %q: %d values exceed the limit of %d", p.Name, n, MaxVariants)
	}

	values := make([]float64, n)
	for i := range values {
		values[i] = math.Round((lo+float64(i)*step)*1e9) / 1e9
	}
	return values, nil
}

// Validate checks the base and the ranges, and that the first grid point
// compiles. Grid enforces MaxVariants.
func (s *SweepConfig) Validate() error {
	if err := validateStruct("validate", s); err != nil {
		return err
	}

	seen := make(map[string]bool, len(s.Parameters))
	first := make(Params, len(s.Parameters))
	for _, p := range s.Parameters {
		if seen[p.Name] {
			return bterrors.ConfigErrorf(component, "sweep", "parameter %q declared twice", p.Name)
		}
		seen[p.Name] = true

		values, err := p.Expand()
		if err != nil {
			return err
		}
		first[p.Name] = values[0]
	}

	_, _, err := s.Base.Compile(backtest.DefaultConfig(), first)
	return err
}

// Size is the number of grid points, saturating just above MaxVariants.
func (s *SweepConfig) Size() (int, error) {
	total := 1
	for _, p := range s.Parameters {
		values, err := p.Expand()
		if err != nil {
			return 0, err
		}
		total = min(total*len(values), MaxVariants+1)
	}
	return total, nil
}

// Grid returns every parameter combination. The last parameter varies
// fastest.
func (s *SweepConfig) Grid() ([]Params, error) {
	if n, err := s.Size(); err != nil {
		return nil, err
	} else if n > MaxVariants {
		return nil, bterrors.ConfigErrorf(component, "sweep", "grid exceeds the limit of %d variants, use --search ga", MaxVariants)
	}

	grid := []Params{{}}
	for _, p := range s.Parameters {
		values, err := p.Expand()
		if err != nil {
			return nil, err
		}
		next := make([]Params, 0, len(grid)*len(values))
		for _, g := range grid {
			for _, v := range values {
				point := make(Params, len(g)+1)
				for k, gv := range g {
					point[k] = gv
				}
				point[p.Name] = v
				next = append(next, point)
			}
		}
		grid = next
	}
	return grid, nil
}

// Variants compiles every grid point into a runnable variant for symbol.
func (s *SweepConfig) Variants(defaults backtest.Config, symbol string) ([]backtest.Variant, error) {
	grid, err := s.Grid()
	if err != nil {
		return nil, err
	}

	variants := make([]backtest.Variant, 0, len(grid))
	for i, params := range grid {
		v, err := s.Variant(defaults, symbol, i, params)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, nil
}

// Variant compiles one parameter point. Index identifies the variant in
// reports and must be unique within a run.
func (s *SweepConfig) Variant(defaults backtest.Config, symbol string, index int, params Params) (backtest.Variant, error) {
	strategy, cfg, err := s.Base.Compile(defaults, params)
	if err != nil {
		return backtest.Variant{}, fmt.Errorf("variant %s: %w", params, err)
	}
	strategy.Name = s.Base.Name + params.String()
	return backtest.Variant{
		Index:    index,
		Name:     strategy.Name,
		Symbol:   symbol,
		Params:   params,
		Config:   cfg,
		Strategy: strategy,
	}, nil
}

// String renders the parameters as [a=1,b=2] with sorted names.
func (p Params) String() string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = k + "=" + strconv.FormatFloat(p[k], 'f', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
