package optimization

import (
	"math"
	"strconv"
	"strings"

	"github.com/ducminhle1904/eod-backtester/internal/backtest"
)

// Individual is one parameter point, stored as an index into each
// dimension's values.
type Individual struct {
	Genes   []int
	Fitness float64
	Ranked  bool
	Result  backtest.JobResult
}

// NewIndividual creates an unevaluated individual with the given genes
func NewIndividual(genes []int) *Individual {
	return &Individual{Genes: genes}
}

// Key identifies the parameter point; equal keys give equal backtests.
func (i *Individual) Key() string {
	parts := make([]string, len(i.Genes))
	for k, g := range i.Genes {
		parts[k] = strconv.Itoa(g)
	}
	return strings.Join(parts, ":")
}

// Params resolves the genes against dims
func (i *Individual) Params(dims []Dimension) map[string]float64 {
	params := make(map[string]float64, len(dims))
	for k, d := range dims {
		params[d.Name] = d.Values[i.Genes[k]]
	}
	return params
}

// Score is the fitness used for comparisons; unranked individuals lose to
// every ranked one.
func (i *Individual) Score() float64 {
	if !i.Ranked {
		return math.Inf(-1)
	}
	return i.Fitness
}

// Copy creates a deep copy of this individual
func (i *Individual) Copy() *Individual {
	c := *i
	c.Genes = append([]int(nil), i.Genes...)
	return &c
}

// Reset clears the evaluation so the individual is scored again
func (i *Individual) Reset() {
	i.Fitness = 0
	i.Ranked = false
	i.Result = backtest.JobResult{}
}
