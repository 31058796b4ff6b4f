package population

import (
	"xcs/internal/model"
)

// SubsumeClassifier folds cl into the first parent that subsumes it, else
// inserts it.
func (s *ClassifierSet) SubsumeClassifier(cl, p1, p2 model.Classifier) int {
	for _, parent := range []model.Classifier{p1, p2} {
		if parent != nil && parent.Subsumes(cl) {
			parent.AddNumerosity(1)
			s.microSize++
			subsumptionsTotal.WithLabelValues("offspring").Inc()
			return s.microSize
		}
	}
	return s.AddClassifierToPopulation(cl, false)
}

// SubsumeIntoMatchSet folds cl into a match-set rule chosen uniformly among
// those that subsume it, else inserts it.
func (s *ClassifierSet) SubsumeIntoMatchSet(cl model.Classifier) int {
	var choices []int
	for _, ref := range s.matchSet {
		if s.pop[ref].Subsumes(cl) {
			choices = append(choices, ref)
		}
	}
	if len(choices) > 0 {
		s.pop[choices[s.rng.Intn(len(choices))]].AddNumerosity(1)
		s.microSize++
		subsumptionsTotal.WithLabelValues("match_set").Inc()
		return s.microSize
	}
	return s.AddClassifierToPopulation(cl, false)
}

// DoActionSetSubsumption picks the most general eligible subsumer in the
// action set, ties broken uniformly, and absorbs every action-set rule it is
// more general than. Absorbed numerosity moves to the subsumer, so the
// micro size is unchanged.
func (s *ClassifierSet) DoActionSetSubsumption() {
	var subsumer model.Classifier
	subsumerSpec := 0
	ties := 0
	for _, ref := range s.actionSet {
		cl := s.pop[ref]
		if !cl.IsPossibleSubsumer() {
			continue
		}
		spec := len(cl.SpecifiedAttributes())
		switch {
		case subsumer == nil || spec < subsumerSpec:
			subsumer, subsumerSpec, ties = cl, spec, 1
		case spec == subsumerSpec:
			ties++
			if s.rng.Intn(ties) == 0 {
				subsumer = cl
			}
		}
	}
	if subsumer == nil {
		return
	}

	for i := 0; i < len(s.actionSet); {
		ref := s.actionSet[i]
		victim := s.pop[ref]
		if victim == subsumer || !subsumer.IsMoreGeneral(victim) {
			i++
			continue
		}
		subsumer.AddNumerosity(victim.Numerosity())
		s.removeMacroClassifier(ref)
		subsumptionsTotal.WithLabelValues("action_set").Inc()
	}
}
