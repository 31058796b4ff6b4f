package learn

import (
	"math/rand"

	"xcs/internal/model"
	"xcs/internal/population"
)

// predictionArray holds the fitness-weighted prediction of every phenotype
// advocated in the match set, in first-appearance order.
type predictionArray struct {
	phenotypes []model.Phenotype
	values     []float64
}

func buildPredictionArray(pop *population.ClassifierSet) predictionArray {
	index := make(map[model.Phenotype]int)
	var pa predictionArray
	var fitness []float64
	for _, ref := range pop.MatchSet() {
		cl := pop.At(ref)
		p := cl.Phenotype()
		i, ok := index[p]
		if !ok {
			i = len(pa.phenotypes)
			index[p] = i
			pa.phenotypes = append(pa.phenotypes, p)
			pa.values = append(pa.values, 0)
			fitness = append(fitness, 0)
		}
		pa.values[i] += cl.Prediction() * cl.Fitness()
		fitness[i] += cl.Fitness()
	}
	for i := range pa.values {
		if fitness[i] > 0 {
			pa.values[i] /= fitness[i]
		}
	}
	return pa
}

func (pa predictionArray) empty() bool { return len(pa.phenotypes) == 0 }

// best returns the phenotype with the highest prediction, ties broken
// uniformly.
func (pa predictionArray) best(rng *rand.Rand) model.Phenotype {
	bestIdx := 0
	ties := 1
	for i := 1; i < len(pa.values); i++ {
		switch {
		case pa.values[i] > pa.values[bestIdx]:
			bestIdx, ties = i, 1
		case pa.values[i] == pa.values[bestIdx]:
			ties++
			if rng.Intn(ties) == 0 {
				bestIdx = i
			}
		}
	}
	return pa.phenotypes[bestIdx]
}

func (pa predictionArray) random(rng *rand.Rand) model.Phenotype {
	return pa.phenotypes[rng.Intn(len(pa.phenotypes))]
}

// actionFor turns a chosen phenotype into the action presented to the
// environment: the label, or the interval midpoint.
func actionFor(p model.Phenotype) model.Action {
	if p.Continuous() {
		return model.ContinuousAction((p.Lo + p.Hi) / 2)
	}
	return model.DiscreteAction(p.Label)
}

// randomAction draws from the whole action space.
func randomAction(rng *rand.Rand, actions model.ActionSpace) model.Action {
	if actions.Discrete {
		return model.DiscreteAction(actions.Labels[rng.Intn(len(actions.Labels))])
	}
	return model.ContinuousAction(actions.Min + rng.Float64()*(actions.Max-actions.Min))
}

// correct reports whether the chosen phenotype advocates the target action.
func correct(chosen model.Phenotype, target model.Action) bool {
	return chosen.Advocates(target)
}
