package optimization

import (
	"sort"
)

// Population is one generation of individuals
type Population struct {
	individuals []*Individual
}

// NewPopulation creates a population with the given individuals
func NewPopulation(individuals []*Individual) *Population {
	return &Population{individuals: individuals}
}

func (p *Population) Individuals() []*Individual {
	return p.individuals
}

func (p *Population) Size() int {
	return len(p.individuals)
}

// Best returns the highest scoring individual; the first one wins ties.
func (p *Population) Best() *Individual {
	if len(p.individuals) == 0 {
		return nil
	}
	best := p.individuals[0]
	for _, ind := range p.individuals[1:] {
		if ind.Score() > best.Score() {
			best = ind
		}
	}
	return best
}

// SortByFitness orders the population best first, keeping the order of ties
func (p *Population) SortByFitness() {
	sort.SliceStable(p.individuals, func(i, j int) bool {
		return p.individuals[i].Score() > p.individuals[j].Score()
	})
}

// AverageFitness averages the ranked individuals
func (p *Population) AverageFitness() float64 {
	sum, n := 0.0, 0
	for _, ind := range p.individuals {
		if ind.Ranked {
			sum += ind.Fitness
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Elite returns copies of the top n individuals. The population must be
// sorted.
func (p *Population) Elite(n int) []*Individual {
	n = min(n, len(p.individuals))
	elite := make([]*Individual, n)
	for i := range elite {
		elite[i] = p.individuals[i].Copy()
	}
	return elite
}
