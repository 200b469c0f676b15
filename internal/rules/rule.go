package rules

import (
	"fmt"
	"strings"

	"github.com/ducminhle1904/eod-backtester/internal/indicators"
)

// Combinator joins the children of a rule.
type Combinator string

const (
	CombineAll Combinator = "all"
	CombineAny Combinator = "any"
	CombineNot Combinator = "not"
)

// ParseCombinator accepts all/any/not and the and/or aliases.
func ParseCombinator(s string) (Combinator, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "and":
		return CombineAll, true
	case "any", "or":
		return CombineAny, true
	case "not":
		return CombineNot, true
	}
	return "", false
}

// Rule is a tree of conditions. Children are the conditions followed by the
// nested groups.
type Rule struct {
	Combinator Combinator
	Conditions []Condition
	Groups     []Rule
}

// All is true when every child is true.
func All(conds ...Condition) Rule {
	return Rule{Combinator: CombineAll, Conditions: conds}
}

// Any is true when at least one child is true.
func Any(conds ...Condition) Rule {
	return Rule{Combinator: CombineAny, Conditions: conds}
}

// Not negates a single condition.
func Not(cond Condition) Rule {
	return Rule{Combinator: CombineNot, Conditions: []Condition{cond}}
}

// NotGroup negates a nested rule.
func NotGroup(group Rule) Rule {
	return Rule{Combinator: CombineNot, Groups: []Rule{group}}
}

// With appends nested groups.
func (r Rule) With(groups ...Rule) Rule {
	r.Groups = append(append([]Rule(nil), r.Groups...), groups...)
	return r
}

// IsEmpty reports whether the rule has no children.
func (r Rule) IsEmpty() bool {
	return len(r.Conditions) == 0 && len(r.Groups) == 0
}

func (r Rule) children() int {
	return len(r.Conditions) + len(r.Groups)
}

// Evaluate combines children in tri-state logic. An unavailable child makes
// the result unavailable unless another child already decides it.
func (r Rule) Evaluate(ctx *Context, i int) TriState {
	if r.IsEmpty() {
		return False
	}

	results := make([]TriState, 0, r.children())
	for _, c := range r.Conditions {
		results = append(results, c.Evaluate(ctx, i))
	}
	for _, g := range r.Groups {
		results = append(results, g.Evaluate(ctx, i))
	}

	switch r.Combinator {
	case CombineNot:
		if len(results) != 1 {
			return Unavailable
		}
		switch results[0] {
		case True:
			return False
		case False:
			return True
		}
		return Unavailable
	case CombineAny:
		out := False
		for _, res := range results {
			if res == True {
				return True
			}
			if res == Unavailable {
				out = Unavailable
			}
		}
		return out
	default:
		out := True
		for _, res := range results {
			if res == False {
				return False
			}
			if res == Unavailable {
				out = Unavailable
			}
		}
		return out
	}
}

// Signal is the boolean decision at bar i; unavailable counts as false.
func (r Rule) Signal(ctx *Context, i int) bool {
	return r.Evaluate(ctx, i) == True
}

// Specs lists every indicator referenced anywhere in the tree, deduplicated
// in first-seen order.
func (r Rule) Specs() []indicators.Spec {
	seen := make(map[string]bool)
	var specs []indicators.Spec
	r.walk(func(c Condition) {
		for _, s := range c.Specs() {
			if !seen[s.Key()] {
				seen[s.Key()] = true
				specs = append(specs, s)
			}
		}
	})
	return specs
}

// Lookback is the largest condition lookback in the tree.
func (r Rule) Lookback() int {
	lb := 0
	r.walk(func(c Condition) {
		lb = max(lb, c.Lookback())
	})
	return lb
}

func (r Rule) walk(fn func(Condition)) {
	for _, c := range r.Conditions {
		fn(c)
	}
	for _, g := range r.Groups {
		g.walk(fn)
	}
}

// Validate checks the tree shape and every condition.
func (r Rule) Validate() error {
	if _, ok := ParseCombinator(string(r.Combinator)); !ok {
		return fmt.Errorf("unknown combinator %q", r.Combinator)
	}
	if r.Combinator == CombineNot && r.children() != 1 {
		return fmt.Errorf("not requires exactly one child, got %d", r.children())
	}
	for i, c := range r.Conditions {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("condition %d: %w", i+1, err)
		}
	}
	for i, g := range r.Groups {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("group %d: %w", i+1, err)
		}
	}
	return nil
}

func (r Rule) String() string {
	if r.IsEmpty() {
		return "<never>"
	}
	parts := make([]string, 0, r.children())
	for _, c := range r.Conditions {
		parts = append(parts, c.String())
	}
	for _, g := range r.Groups {
		parts = append(parts, "("+g.String()+")")
	}
	switch r.Combinator {
	case CombineNot:
		return "NOT " + parts[0]
	case CombineAny:
		return strings.Join(parts, " OR ")
	}
	return strings.Join(parts, " AND ")
}
