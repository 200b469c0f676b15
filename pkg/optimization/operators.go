package optimization

import (
	"math/rand"
)

// GeneticOperator implements selection, crossover and mutation over a set
// of dimensions
type GeneticOperator struct {
	dims []Dimension
}

func NewGeneticOperator(dims []Dimension) *GeneticOperator {
	return &GeneticOperator{dims: dims}
}

// Random draws a uniformly random individual
func (op *GeneticOperator) Random(rng *rand.Rand) *Individual {
	genes := make([]int, len(op.dims))
	for k, d := range op.dims {
		genes[k] = rng.Intn(len(d.Values))
	}
	return NewIndividual(genes)
}

// Select runs a tournament of size contestants drawn with replacement
func (op *GeneticOperator) Select(pop *Population, size int, rng *rand.Rand) *Individual {
	inds := pop.Individuals()
	best := inds[rng.Intn(len(inds))]
	for i := 1; i < size; i++ {
		candidate := inds[rng.Intn(len(inds))]
		if candidate.Score() > best.Score() {
			best = candidate
		}
	}
	return best
}

// Crossover starts from parent1 and, with probability rate, takes each gene
// from either parent with equal odds.
func (op *GeneticOperator) Crossover(parent1, parent2 *Individual, rate float64, rng *rand.Rand) *Individual {
	genes := append([]int(nil), parent1.Genes...)
	if rng.Float64() < rate {
		for k := range genes {
			if rng.Float64() < 0.5 {
				genes[k] = parent2.Genes[k]
			}
		}
	}
	return NewIndividual(genes)
}

// Mutate moves each gene with probability rate. Values are ordered, so
// half of the moves step to a neighbour and the rest jump anywhere.
func (op *GeneticOperator) Mutate(ind *Individual, rate float64, rng *rand.Rand) {
	changed := false
	for k, d := range op.dims {
		n := len(d.Values)
		if n < 2 || rng.Float64() >= rate {
			continue
		}

		g := ind.Genes[k]
		if rng.Float64() < 0.5 {
			switch {
			case g == 0:
				g = 1
			case g == n-1:
				g = n - 2
			case rng.Intn(2) == 0:
				g--
			default:
				g++
			}
		} else {
			// any other value
			g = (g + 1 + rng.Intn(n-1)) % n
		}
		ind.Genes[k] = g
		changed = true
	}
	if changed {
		ind.Reset()
	}
}
