package population

import (
	"fmt"
	"math/rand"

	"xcs/internal/model"
)

// ParentSelector chooses two GA parents from a niche of population indices.
type ParentSelector interface {
	Name() string
	SelectParents(rng *rand.Rand, pop []model.Classifier, niche []int) (model.Classifier, model.Classifier, error)
}

func NewSelector(method SelectionMethod, thetaSel float64) (ParentSelector, error) {
	switch method {
	case SelectionRoulette:
		return RouletteSelector{}, nil
	case SelectionTournament:
		if thetaSel <= 0 || thetaSel > 1 {
			return nil, fmt.Errorf("tournament fraction theta_sel must be in (0, 1], got %g", thetaSel)
		}
		return TournamentSelector{Fraction: thetaSel}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSelection, method)
	}
}

// RouletteSelector draws two distinct niche members with probability
// proportional to fitness, removing the first pick before the second draw.
type RouletteSelector struct{}

func (RouletteSelector) Name() string {
	return string(SelectionRoulette)
}

func (RouletteSelector) SelectParents(rng *rand.Rand, pop []model.Classifier, niche []int) (model.Classifier, model.Classifier, error) {
	if rng == nil {
		return nil, nil, fmt.Errorf("random source is required")
	}
	switch len(niche) {
	case 0:
		return nil, nil, fmt.Errorf("empty niche")
	case 1:
		return pop[niche[0]], pop[niche[0]], nil
	case 2:
		return pop[niche[0]], pop[niche[1]], nil
	}

	pool := append([]int(nil), niche...)
	var picked [2]model.Classifier
	for k := range picked {
		fitSum := 0.0
		for _, ref := range pool {
			fitSum += pop[ref].Fitness()
		}
		choice := rng.Float64() * fitSum

		i := 0
		acc := pop[pool[0]].Fitness()
		for choice > acc && i < len(pool)-1 {
			i++
			acc += pop[pool[i]].Fitness()
		}
		picked[k] = pop[pool[i]]
		pool = append(pool[:i], pool[i+1:]...)
	}
	return picked[0], picked[1], nil
}

// TournamentSelector runs two independent tournaments, each over a random
// Fraction of the niche sampled without replacement. Parents may coincide.
type TournamentSelector struct {
	Fraction float64
}

func (TournamentSelector) Name() string {
	return string(SelectionTournament)
}

func (s TournamentSelector) SelectParents(rng *rand.Rand, pop []model.Classifier, niche []int) (model.Classifier, model.Classifier, error) {
	if rng == nil {
		return nil, nil, fmt.Errorf("random source is required")
	}
	if len(niche) == 0 {
		return nil, nil, fmt.Errorf("empty niche")
	}
	return s.pick(rng, pop, niche), s.pick(rng, pop, niche), nil
}

func (s TournamentSelector) pick(rng *rand.Rand, pop []model.Classifier, niche []int) model.Classifier {
	size := int(float64(len(niche)) * s.Fraction)
	best := niche[0]
	bestFitness := 0.0
	for _, j := range rng.Perm(len(niche))[:size] {
		ref := niche[j]
		if pop[ref].Fitness() > bestFitness {
			bestFitness = pop[ref].Fitness()
			best = ref
		}
	}
	return pop[best]
}
