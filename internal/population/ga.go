package population

import (
	"xcs/internal/model"
)

// RunGA evolves two offspring from the action set once the niche's mean GA
// timestamp is at least ThetaGA iterations old. A triggered cycle always ends
// with Deletion.
func (s *ClassifierSet) RunGA(iteration int, state model.State) {
	if len(s.actionSet) == 0 {
		return
	}
	if float64(iteration)-s.iterStampAverage() < float64(s.params.ThetaGA) {
		return
	}
	s.setIterStamps(iteration)
	gaRunsTotal.Inc()

	p1, p2, err := s.selector.SelectParents(s.rng, s.pop, s.actionSet)
	if err != nil {
		s.logger.Error("ga parent selection failed", "selector", s.selector.Name(), "error", err)
		s.Deletion()
		return
	}
	if p2 == nil {
		p2 = p1
	}
	p1.UpdateGACount()
	p2.UpdateGACount()

	c1 := p1.Offspring(iteration)
	c2 := p2.Offspring(iteration)

	crossed := false
	if !c1.Equals(c2) && s.rng.Float64() < s.params.Chi {
		crossed = s.crossover(c1, c2)
	}
	if crossed {
		c1.SetPrediction((c1.Prediction() + c2.Prediction()) / 2)
		c1.SetError((c1.Error() + c2.Error()) / 2)
		c1.SetFitness(s.params.FitnessReduction * (c1.Fitness() + c2.Fitness()) / 2)
		c2.SetPrediction(c1.Prediction())
		c2.SetError(c1.Error())
		c2.SetFitness(c1.Fitness())
	}
	c1.SetFitness(s.params.FitnessReduction * c1.Fitness())
	c2.SetFitness(s.params.FitnessReduction * c2.Fitness())

	mutated1 := c1.Mutate(s.rng, state)
	mutated2 := c2.Mutate(s.rng, state)

	if crossed || mutated1 || mutated2 {
		s.insertDiscoveredClassifiers(c1, c2, p1, p2)
	}
	s.Deletion()
}

func (s *ClassifierSet) crossover(c1, c2 model.Classifier) bool {
	if s.params.Crossover == CrossoverTwoPoint {
		return c1.TwoPointCrossover(s.rng, c2)
	}
	return c1.UniformCrossover(s.rng, c2)
}

// insertDiscoveredClassifiers adds the offspring, through parent subsumption
// when enabled. Rules with no specified attribute are never inserted.
func (s *ClassifierSet) insertDiscoveredClassifiers(c1, c2, p1, p2 model.Classifier) {
	for _, child := range []model.Classifier{c1, c2} {
		if len(child.SpecifiedAttributes()) == 0 {
			continue
		}
		if s.params.DoSubsumption {
			s.SubsumeClassifier(child, p1, p2)
			continue
		}
		s.AddClassifierToPopulation(child, false)
	}
}

// iterStampAverage is the numerosity-weighted mean GA timestamp of the
// action set.
func (s *ClassifierSet) iterStampAverage() float64 {
	stamps := 0.0
	numerosity := 0.0
	for _, ref := range s.actionSet {
		cl := s.pop[ref]
		stamps += float64(cl.GATimestamp()) * float64(cl.Numerosity())
		numerosity += float64(cl.Numerosity())
	}
	return stamps / numerosity
}

func (s *ClassifierSet) setIterStamps(iteration int) {
	for _, ref := range s.actionSet {
		s.pop[ref].SetGATimestamp(iteration)
	}
}
