package config

// StrategyConfig is the YAML form of one strategy plus its execution costs.
//
//	name: ema-trend
//	symbol: NIFTY
//	capital_per_trade: 500000
//	entry:
//	  combinator: all
//	  conditions:
//	    - type: greater_than
//	      a: {indicator: ema, period: 21}
//	      b: {indicator: ema, period: 55}
//	stops:
//	  stop_loss_pct: 2
//	  atr_trail: {period: 14, multiplier: 3}
type StrategyConfig struct {
	Name   string `yaml:"name" validate:"required"`
	Symbol string `yaml:"symbol,omitempty"`

	// Execution costs; omitted values take the defaults.
	CapitalPerTrade   *float64 `yaml:"capital_per_trade,omitempty" validate:"omitempty,gt=0"`
	SlippageBps       *float64 `yaml:"slippage_bps,omitempty" validate:"omitempty,gte=0,lt=10000"`
	BrokeragePerOrder *float64 `yaml:"brokerage_per_order,omitempty" validate:"omitempty,gte=0"`
	EndOfData         string   `yaml:"end_of_data,omitempty" validate:"omitempty,oneof=force_close exclude"`

	Entry RuleConfig   `yaml:"entry"`
	Exit  RuleConfig   `yaml:"exit,omitempty"`
	Stops *StopsConfig `yaml:"stops,omitempty"`
}

// RuleConfig is a combinator over conditions and nested groups.
type RuleConfig struct {
	Combinator string            `yaml:"combinator,omitempty" validate:"omitempty,oneof=all any not and or"`
	Conditions []ConditionConfig `yaml:"conditions,omitempty" validate:"dive"`
	Groups     []RuleConfig      `yaml:"groups,omitempty" validate:"dive"`
}

// ConditionConfig is either a comparison template with operands or one of
// the named shortcuts (breakout, trend_up, trend_flip, momentum).
type ConditionConfig struct {
	Type     string `yaml:"type,omitempty" validate:"omitempty,oneof=greater_than less_than above below crosses_above crosses_below in_range outside_range"`
	Template string `yaml:"template,omitempty" validate:"omitempty,oneof=breakout trend_up trend_flip momentum"`

	A *OperandConfig `yaml:"a,omitempty"`
	B *OperandConfig `yaml:"b,omitempty"`

	Level      *float64 `yaml:"level,omitempty"`
	LevelParam string   `yaml:"level_param,omitempty"`
	Low        *float64 `yaml:"low,omitempty"`
	LowParam   string   `yaml:"low_param,omitempty"`
	High       *float64 `yaml:"high,omitempty"`
	HighParam  string   `yaml:"high_param,omitempty"`

	// Template arguments
	Period      int    `yaml:"period,omitempty" validate:"gte=0,lte=5000"`
	PeriodParam string `yaml:"period_param,omitempty"`
	Fast        int    `yaml:"fast,omitempty" validate:"gte=0,lte=5000"`
	FastParam   string `yaml:"fast_param,omitempty"`
	Slow        int    `yaml:"slow,omitempty" validate:"gte=0,lte=5000"`
	SlowParam   string `yaml:"slow_param,omitempty"`
}

// OperandConfig sets exactly one of price, indicator or value.
type OperandConfig struct {
	Price string `yaml:"price,omitempty" validate:"omitempty,oneof=open high low close volume"`

	Indicator   string `yaml:"indicator,omitempty" validate:"omitempty,oneof=sma ema rsi atr donchian_upper donchian_lower donchian_middle highest lowest"`
	Period      int    `yaml:"period,omitempty" validate:"gte=0,lte=5000"`
	PeriodParam string `yaml:"period_param,omitempty"`
	Source      string `yaml:"source,omitempty" validate:"omitempty,oneof=open high low close volume"`

	Value      *float64 `yaml:"value,omitempty"`
	ValueParam string   `yaml:"value_param,omitempty"`

	Offset int `yaml:"offset,omitempty" validate:"gte=0"`
}

// StopsConfig holds the position dependent exits.
type StopsConfig struct {
	TimeExitBars      int    `yaml:"time_exit_bars,omitempty" validate:"gte=0"`
	TimeExitBarsParam string `yaml:"time_exit_bars_param,omitempty"`

	StopLossPct      float64 `yaml:"stop_loss_pct,omitempty" validate:"gte=0,lt=100"`
	StopLossPctParam string  `yaml:"stop_loss_pct_param,omitempty"`

	ATRTrail *ATRTrailConfig `yaml:"atr_trail,omitempty"`
}

// ATRTrailConfig configures the chandelier trailing stop.
type ATRTrailConfig struct {
	Period          int     `yaml:"period" validate:"gte=0,lte=5000"`
	PeriodParam     string  `yaml:"period_param,omitempty"`
	Multiplier      float64 `yaml:"multiplier" validate:"gte=0"`
	MultiplierParam string  `yaml:"multiplier_param,omitempty"`
}
